// Package corpus holds the immutable catalog of job-title records and the
// ingestion code that turns external datasets into it.
package corpus

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Aman-CERP/titlesearch/internal/errors"
)

// Record is one canonical job-title entry.
type Record struct {
	Title            string  `json:"job_title"`
	Industry         string  `json:"industry"`
	Location         string  `json:"location"`
	AutomationRisk   float64 `json:"automation_risk"`
	GrowthProjection float64 `json:"growth_projection"`
}

// Confidence marks how trustworthy a Lookup result is.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Source names the rule that resolved a Lookup.
type Source string

const (
	SourceExact     Source = "exact"
	SourceSubstring Source = "substring"
	SourceIndustry  Source = "industry"
	SourceDefault   Source = "default"
)

// Unknown fills industry and location when nothing better is known.
const Unknown = "Unknown"

// Default values of the synthetic record returned for unmatched titles.
const (
	DefaultAutomationRisk   = 50.0
	DefaultGrowthProjection = 0.0
)

// Match is the result of Lookup.
type Match struct {
	Record
	Confidence Confidence `json:"confidence"`
	Source     Source     `json:"source"`
}

// Corpus is an immutable, ordered set of records with unique titles.
// It is safe for concurrent use.
type Corpus struct {
	records  []Record
	byTitle  map[string]int
	folded   []string
	industry []string
}

// foldString case-folds s for case-insensitive comparison. A Caser is
// stateful and not safe for concurrent use, so each call makes its own.
func foldString(s string) string {
	return cases.Fold().String(s)
}

// New builds a corpus from records in the given order. Later records whose
// title repeats an earlier one are dropped. A blank title is a corpus error.
func New(records []Record) (*Corpus, error) {
	c := &Corpus{
		records: make([]Record, 0, len(records)),
		byTitle: make(map[string]int, len(records)),
	}
	for i, r := range records {
		r.Title = strings.TrimSpace(r.Title)
		if r.Title == "" {
			return nil, errors.CorpusError(fmt.Sprintf("record %d has an empty job title", i+1), nil)
		}
		if _, dup := c.byTitle[r.Title]; dup {
			continue
		}
		if r.Industry == "" {
			r.Industry = Unknown
		}
		if r.Location == "" {
			r.Location = Unknown
		}
		c.byTitle[r.Title] = len(c.records)
		c.records = append(c.records, r)
		c.folded = append(c.folded, foldString(r.Title))
		c.industry = append(c.industry, foldString(r.Industry))
	}
	return c, nil
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Titles returns the titles in corpus order. The slice is a copy.
func (c *Corpus) Titles() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.records))
	for i, r := range c.records {
		out[i] = r.Title
	}
	return out
}

// Records returns the records in corpus order. The slice is a copy.
func (c *Corpus) Records() []Record {
	if c == nil {
		return nil
	}
	return append([]Record(nil), c.records...)
}

// Record returns the record stored under exactly title.
func (c *Corpus) Record(title string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	i, ok := c.byTitle[title]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// Lookup resolves title to a record. Rules are tried in order and the
// first hit wins: case-insensitive equality, case-insensitive containment
// of title inside a stored title, first record of industryHint, and
// finally a synthetic low-confidence default. Lookup never fails.
func (c *Corpus) Lookup(title, industryHint string) Match {
	if c != nil {
		if i, ok := c.byTitle[title]; ok {
			return Match{Record: c.records[i], Confidence: ConfidenceHigh, Source: SourceExact}
		}

		q := foldString(strings.TrimSpace(title))
		if q != "" {
			for i, f := range c.folded {
				if f == q {
					return Match{Record: c.records[i], Confidence: ConfidenceHigh, Source: SourceExact}
				}
			}
			for i, f := range c.folded {
				if strings.Contains(f, q) {
					return Match{Record: c.records[i], Confidence: ConfidenceHigh, Source: SourceSubstring}
				}
			}
		}

		if hint := foldString(strings.TrimSpace(industryHint)); hint != "" {
			for i, ind := range c.industry {
				if ind == hint {
					return Match{Record: c.records[i], Confidence: ConfidenceHigh, Source: SourceIndustry}
				}
			}
		}
	}

	fallback := strings.TrimSpace(industryHint)
	if fallback == "" {
		fallback = Unknown
	}
	return Match{
		Record: Record{
			Title:            title,
			Industry:         fallback,
			Location:         fallback,
			AutomationRisk:   DefaultAutomationRisk,
			GrowthProjection: DefaultGrowthProjection,
		},
		Confidence: ConfidenceLow,
		Source:     SourceDefault,
	}
}

// Summary describes the corpus as a whole.
type Summary struct {
	TotalJobs         int      `json:"total_jobs"`
	Industries        int      `json:"industries"`
	AvgAutomationRisk float64  `json:"avg_automation_risk"`
	HighestRisk       []Record `json:"highest_risk_jobs"`
	LowestRisk        []Record `json:"lowest_risk_jobs"`
}

// Summary returns aggregate statistics with the n highest- and lowest-risk
// records. Ties keep corpus order.
func (c *Corpus) Summary(n int) Summary {
	s := Summary{TotalJobs: c.Len()}
	if s.TotalJobs == 0 {
		return s
	}

	industries := make(map[string]struct{})
	var total float64
	for i, r := range c.records {
		industries[c.industry[i]] = struct{}{}
		total += r.AutomationRisk
	}
	s.Industries = len(industries)
	s.AvgAutomationRisk = total / float64(s.TotalJobs)

	if n > s.TotalJobs {
		n = s.TotalJobs
	}
	byRisk := c.Records()
	sort.SliceStable(byRisk, func(i, j int) bool { return byRisk[i].AutomationRisk > byRisk[j].AutomationRisk })
	s.HighestRisk = append([]Record(nil), byRisk[:n]...)

	sort.SliceStable(byRisk, func(i, j int) bool { return byRisk[i].AutomationRisk < byRisk[j].AutomationRisk })
	s.LowestRisk = append([]Record(nil), byRisk[:n]...)
	return s
}
