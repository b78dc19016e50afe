// Package index builds, saves and loads the precomputed search artifact:
// the corpus, one embedding row per title and a cache of rankings for
// common probe queries.
package index

import (
	"github.com/Aman-CERP/titlesearch/internal/corpus"
)

// Method names the ranking that produced a result. The values are part
// of the artifact and HTTP wire formats.
type Method string

const (
	// MethodLexical marks results ranked by fuzzy string similarity.
	MethodLexical Method = "fuzzy"

	// MethodSemantic marks results ranked by embedding similarity.
	MethodSemantic Method = "vector"
)

// CachedResult is one precomputed ranking entry.
type CachedResult struct {
	Title      string  `json:"job_title"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"match_method"`
}

// CacheEntry holds both rankings for one probe query. Vector confidences
// are stored unclamped.
type CacheEntry struct {
	Fuzzy  []CachedResult `json:"fuzzy"`
	Vector []CachedResult `json:"vector"`
}

// Metadata describes how the artifact was produced.
type Metadata struct {
	TotalJobs    int    `json:"total_jobs"`
	EmbeddingDim int    `json:"embedding_dim"`
	Model        string `json:"model"`
}

// File is the on-disk artifact. Embeddings[i] belongs to Titles[i].
type File struct {
	Titles     []string                 `json:"job_titles"`
	Data       map[string]corpus.Record `json:"job_data"`
	Metadata   Metadata                 `json:"metadata"`
	QueryCache map[string]CacheEntry    `json:"query_cache"`
	Embeddings [][]float32              `json:"embeddings"`
}

// Records returns the job records in title order. Titles missing from
// Data are skipped.
func (f *File) Records() []corpus.Record {
	out := make([]corpus.Record, 0, len(f.Titles))
	for _, t := range f.Titles {
		if r, ok := f.Data[t]; ok {
			out = append(out, r)
		}
	}
	return out
}
