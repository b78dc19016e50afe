// Package preflight checks that titlesearch can build and serve in the
// current environment.
//
// The checks cover:
//   - the index directory (writable, enough free disk)
//   - the index artifact (present, decodes, embeddings usable)
//   - the configured dataset
//   - the embedding model
//   - the telemetry store
//
// Use the Checker type to run them:
//
//	checker := preflight.New(preflight.Target{IndexPath: "search_index.json"})
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
