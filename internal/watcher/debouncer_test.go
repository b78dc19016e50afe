package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, d *Debouncer, within time.Duration) []FileEvent {
	t.Helper()
	select {
	case events := <-d.Output():
		return events
	case <-time.After(within):
		t.Fatal("timeout waiting for debounced events")
		return nil
	}
}

func TestDebouncer_SingleEventPassesThrough(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "index.json", Operation: OpModify})

	events := receive(t, d, time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, OpModify, events[0].Operation)
}

func TestDebouncer_BurstCoalesces(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "index.json", Operation: OpModify})
		time.Sleep(5 * time.Millisecond)
	}

	events := receive(t, d, time.Second)
	assert.Len(t, events, 1)
}

func TestDebouncer_CoalescingRules(t *testing.T) {
	tests := []struct {
		name     string
		ops      []Operation
		expected []Operation
	}{
		{"create then modify", []Operation{OpCreate, OpModify}, []Operation{OpCreate}},
		{"delete then create", []Operation{OpDelete, OpCreate}, []Operation{OpModify}},
		{"modify then delete", []Operation{OpModify, OpDelete}, []Operation{OpDelete}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(20 * time.Millisecond)
			defer d.Stop()

			for _, op := range tt.ops {
				d.Add(FileEvent{Path: "index.json", Operation: op})
			}

			events := receive(t, d, time.Second)
			got := make([]Operation, 0, len(events))
			for _, ev := range events {
				got = append(got, ev.Operation)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "index.json.tmp", Operation: OpCreate})
	d.Add(FileEvent{Path: "index.json.tmp", Operation: OpDelete})

	select {
	case events := <-d.Output():
		t.Fatalf("unexpected events: %v", events)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(time.Second)
	d.Add(FileEvent{Path: "index.json", Operation: OpModify})

	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "index.json", Operation: OpModify})

	_, open := <-d.Output()
	assert.False(t, open)
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "RENAME", OpRename.String())
	assert.Equal(t, "UNKNOWN", Operation(99).String())
}
