package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
)

// Save writes f to path atomically. The write holds the exclusive
// artifact lock, goes to a temporary file in the same directory and is
// renamed into place, so readers see either the old or the new artifact.
// Output is byte-identical for identical input.
func Save(path string, f *File) error {
	if f == nil {
		return tserrors.InternalError("nil index file", nil)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return tserrors.New(tserrors.ErrCodeFilePermission, "cannot create index directory", err).
			WithDetail("path", dir)
	}

	lock := NewFileLock(path)
	if err := lock.Lock(); err != nil {
		return tserrors.New(tserrors.ErrCodeLockHeld, "cannot lock index for writing", err).
			WithDetail("path", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.Marshal(normalize(f))
	if err != nil {
		return tserrors.InternalError("failed to encode index", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return tserrors.New(tserrors.ErrCodeFilePermission, "cannot create temporary index file", err).
			WithDetail("path", dir)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod index: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return tserrors.New(tserrors.ErrCodeFilePermission, "cannot replace index file", err).
			WithDetail("path", path)
	}
	return nil
}

// normalize replaces nil collections with empty ones so the encoded
// artifact always carries every key.
func normalize(f *File) *File {
	out := *f
	if out.Titles == nil {
		out.Titles = []string{}
	}
	if out.Data == nil {
		out.Data = map[string]corpus.Record{}
	}
	if out.QueryCache == nil {
		out.QueryCache = map[string]CacheEntry{}
	}
	if out.Embeddings == nil {
		out.Embeddings = [][]float32{}
	}
	return &out
}
