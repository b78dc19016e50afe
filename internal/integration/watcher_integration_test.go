package integration

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/embed"
	"github.com/Aman-CERP/titlesearch/internal/index"
	"github.com/Aman-CERP/titlesearch/internal/logging"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/semantic"
	"github.com/Aman-CERP/titlesearch/internal/watcher"
)

// Watcher Integration Tests - a rebuilt artifact replaces the serving
// snapshot while searches keep running.

// reloader swaps the engine snapshot on every change that loads cleanly.
func reloader(engine *search.Engine, model embed.Embedder, reloads, failures *atomic.Int64) watcher.Handler {
	return func(_ context.Context, ev watcher.FileEvent) error {
		loaded, err := index.Load(ev.Path, index.LoadOptions{ExpectedModel: model.ModelName(), Logger: logging.Discard()})
		if err != nil {
			failures.Add(1)
			return err
		}
		engine.Swap(search.SnapshotFromLoaded(loaded, model, semantic.WithLogger(logging.Discard())))
		reloads.Add(1)
		return nil
	}
}

func startWatcher(t *testing.T, path string, fn watcher.Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watcher.New(path, watcher.Options{
			DebounceWindow: 50 * time.Millisecond,
			Logger:         logging.Discard(),
		}).Run(ctx, fn)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Wait for watcher to initialize
	time.Sleep(200 * time.Millisecond)
}

func TestWatcher_RebuildSwapsSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	model := embed.NewStaticEmbedder()
	path := buildFromCSV(t, model)
	engine := openEngine(t, path, model)
	require.Equal(t, 6, engine.Status().Jobs)

	var reloads, failures atomic.Int64
	startWatcher(t, path, reloader(engine, model, &reloads, &failures))

	// Searches run throughout the reload.
	stop := make(chan struct{})
	searching := make(chan struct{})
	go func() {
		defer close(searching)
		for {
			select {
			case <-stop:
				return
			default:
				results, err := engine.Search(context.Background(), "electrician", search.Options{Limit: 3})
				assert.NoError(t, err)
				assert.NotEmpty(t, results)
			}
		}
	}()

	records := append(corpus.SampleRecords(), corpus.Record{
		Title: "Wind Turbine Technician", Industry: "Energy", Location: corpus.Unknown,
		AutomationRisk: 12, GrowthProjection: 45,
	})
	f, err := index.NewBuilder(model, index.WithProbes([]string{"technician"})).Build(context.Background(), records)
	require.NoError(t, err)
	require.NoError(t, index.Save(path, f))

	require.Eventually(t, func() bool { return engine.Status().Jobs == 7 }, 5*time.Second, 50*time.Millisecond)
	close(stop)
	<-searching

	results, err := engine.Search(context.Background(), "wind turbine technican", search.Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Wind Turbine Technician", results[0].Title)
	assert.Equal(t, "Energy", results[0].Industry)
	assert.GreaterOrEqual(t, reloads.Load(), int64(1))
}

func TestWatcher_CorruptArtifactKeepsSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	model := embed.NewStaticEmbedder()
	path := buildFromCSV(t, model)
	engine := openEngine(t, path, model)

	var reloads, failures atomic.Int64
	startWatcher(t, path, reloader(engine, model, &reloads, &failures))

	require.NoError(t, os.WriteFile(path, []byte(`{"job_titles": [`), 0o644))

	require.Eventually(t, func() bool { return failures.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
	assert.Zero(t, reloads.Load())
	assert.Equal(t, 6, engine.Status().Jobs)

	results, err := engine.Search(context.Background(), "plumber", search.Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Plumber", results[0].Title)
}
