package mcp

import (
	"time"

	"github.com/Aman-CERP/titlesearch/internal/corpus"
	"github.com/Aman-CERP/titlesearch/internal/search"
	"github.com/Aman-CERP/titlesearch/internal/telemetry"
)

// clampLimit clamps a limit to [min, max] with a default for zero or negative values.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

func toSearchOutput(results []*search.Result) SearchOutput {
	out := SearchOutput{Suggestions: make([]SuggestionOutput, 0, len(results))}
	for _, r := range results {
		out.Suggestions = append(out.Suggestions, SuggestionOutput{
			Title:            r.Title,
			Confidence:       r.Confidence,
			Method:           string(r.Method),
			Industry:         r.Industry,
			Location:         r.Location,
			AutomationRisk:   r.AutomationRisk,
			GrowthProjection: r.GrowthProjection,
		})
	}
	out.TotalMatches = len(out.Suggestions)
	return out
}

func toLookupOutput(m corpus.Match) LookupOutput {
	return LookupOutput{
		Title:            m.Title,
		Industry:         m.Industry,
		Location:         m.Location,
		AutomationRisk:   m.AutomationRisk,
		GrowthProjection: m.GrowthProjection,
		Confidence:       string(m.Confidence),
		Source:           string(m.Source),
	}
}

func toIndexStatusOutput(st search.Status, snap *telemetry.Snapshot) IndexStatusOutput {
	out := IndexStatusOutput{
		Jobs:          st.Jobs,
		Semantic:      st.SemanticAvailable,
		Reason:        st.Reason,
		Model:         st.Model,
		Dimensions:    st.Dimensions,
		CachedQueries: st.CachedQueries,
		LoadedAt:      st.LoadedAt.Format(time.RFC3339),
	}
	if snap != nil {
		out.Queries = &QueryStats{
			Total:           snap.TotalQueries,
			ByMethod:        snap.MethodCounts,
			CacheHitRate:    snap.CacheHitRate(),
			Fallbacks:       snap.FallbackCount,
			ZeroResultPct:   snap.ZeroResultPercentage(),
			LatencyP50Milli: millis(snap.LatencyP50),
			LatencyP95Milli: millis(snap.LatencyP95),
		}
	}
	return out
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
