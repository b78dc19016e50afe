// Package watcher reports changes to a single file, typically the search
// index artifact, so a running server can reload it.
//
// fsnotify watches the file's directory, since atomic writers replace the
// file by rename and a watch on the file itself would be lost. When
// fsnotify cannot be started the watcher polls the file's size and
// modification time instead. Bursts of events are debounced into one
// notification.
//
// Usage:
//
//	w := watcher.New("/data/search_index.json", watcher.DefaultOptions())
//	err := w.Run(ctx, func(ctx context.Context, ev watcher.FileEvent) error {
//	    return reload(ctx)
//	})
package watcher
