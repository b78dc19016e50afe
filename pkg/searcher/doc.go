// Package searcher is the embeddable entry point to titlesearch: it opens a
// built index artifact and answers job-title queries in process, without the
// CLI, HTTP or MCP layers.
//
// # Ranking
//
// Each query is first ranked by token-sort string similarity. When the best
// lexical score reaches the fuzzy threshold (default 85) those results are
// returned as-is; otherwise the query is embedded and titles are ranked by
// cosine similarity. If the embedding model is unavailable the lexical
// results are returned instead:
//
//	┌──────────┐  best ≥ threshold   ┌──────────────┐
//	│  query   │────────────────────▶│ fuzzy results│
//	└────┬─────┘                     └──────────────┘
//	     │ best < threshold                 ▲
//	     ▼                                  │ model unavailable
//	┌──────────┐                     ┌──────┴───────┐
//	│  embed   │────────────────────▶│vector results│
//	└──────────┘                     └──────────────┘
//
// # Usage
//
//	s, err := searcher.Open("search_index.json",
//	    searcher.WithProvider("ollama", "all-minilm"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	results, err := s.Search(ctx, "sofware engneer", 10)
//
// An artifact built without embeddings, or with embeddings from a different
// model, serves lexical results only; Status reports why.
//
// # Thread Safety
//
// All Searcher implementations are safe for concurrent use.
package searcher
