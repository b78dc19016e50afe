package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/titlesearch/internal/errors"
)

func testCorpus(t *testing.T) *Corpus {
	t.Helper()
	c, err := New([]Record{
		{Title: "Software Developer", Industry: "Technology", Location: "Berlin", AutomationRisk: 15, GrowthProjection: 25},
		{Title: "Software Engineer", Industry: "Technology", Location: "Austin", AutomationRisk: 12, GrowthProjection: 22},
		{Title: "Electrician", Industry: "Construction", Location: "Leeds", AutomationRisk: 10, GrowthProjection: 20},
		{Title: "Senior Accountant", Industry: "Finance", Location: "Paris", AutomationRisk: 70, GrowthProjection: -12},
	})
	require.NoError(t, err)
	return c
}

func TestNew_DropsDuplicateTitlesKeepingFirst(t *testing.T) {
	c, err := New([]Record{
		{Title: "Nurse", Industry: "Healthcare", AutomationRisk: 20},
		{Title: "Teacher", Industry: "Education"},
		{Title: "Nurse", Industry: "Retail", AutomationRisk: 99},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Nurse", "Teacher"}, c.Titles())
	r, ok := c.Record("Nurse")
	require.True(t, ok)
	assert.Equal(t, "Healthcare", r.Industry)
	assert.Equal(t, Unknown, r.Location)
}

func TestNew_RejectsBlankTitle(t *testing.T) {
	_, err := New([]Record{{Title: "  "}})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCorpusUnavailable))
}

func TestTitles_StableAndCopied(t *testing.T) {
	c := testCorpus(t)

	first := c.Titles()
	first[0] = "mutated"

	assert.Equal(t, "Software Developer", c.Titles()[0])
	assert.Equal(t, c.Titles(), c.Titles())
}

func TestLookup_ResolutionOrder(t *testing.T) {
	c := testCorpus(t)

	tests := []struct {
		name       string
		title      string
		industry   string
		wantTitle  string
		wantSource Source
		wantConf   Confidence
	}{
		{"exact", "Electrician", "", "Electrician", SourceExact, ConfidenceHigh},
		{"exact case-insensitive", "software ENGINEER", "", "Software Engineer", SourceExact, ConfidenceHigh},
		{"substring", "accountant", "", "Senior Accountant", SourceSubstring, ConfidenceHigh},
		{"substring first in corpus order", "software", "", "Software Developer", SourceSubstring, ConfidenceHigh},
		{"industry hint", "Plumber", "construction", "Electrician", SourceIndustry, ConfidenceHigh},
		{"default", "Plumber", "", "Plumber", SourceDefault, ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Lookup(tt.title, tt.industry)
			assert.Equal(t, tt.wantTitle, m.Title)
			assert.Equal(t, tt.wantSource, m.Source)
			assert.Equal(t, tt.wantConf, m.Confidence)
		})
	}
}

func TestLookup_SyntheticDefault(t *testing.T) {
	c := testCorpus(t)

	m := c.Lookup("Unknown Role", "")

	assert.Equal(t, "Unknown Role", m.Title)
	assert.Equal(t, 50.0, m.AutomationRisk)
	assert.Equal(t, 0.0, m.GrowthProjection)
	assert.Equal(t, Unknown, m.Industry)
	assert.Equal(t, Unknown, m.Location)
	assert.Equal(t, ConfidenceLow, m.Confidence)
}

func TestLookup_DefaultUsesIndustryHint(t *testing.T) {
	c := testCorpus(t)

	m := c.Lookup("Astronaut", "Aerospace")

	assert.Equal(t, "Aerospace", m.Industry)
	assert.Equal(t, "Aerospace", m.Location)
	assert.Equal(t, SourceDefault, m.Source)
}

func TestLookup_NilCorpus(t *testing.T) {
	var c *Corpus

	m := c.Lookup("Anything", "")

	assert.Equal(t, ConfidenceLow, m.Confidence)
	assert.Equal(t, 0, c.Len())
}

func TestSummary(t *testing.T) {
	c := testCorpus(t)

	s := c.Summary(2)

	assert.Equal(t, 4, s.TotalJobs)
	assert.Equal(t, 3, s.Industries)
	assert.InDelta(t, 26.75, s.AvgAutomationRisk, 1e-9)
	require.Len(t, s.HighestRisk, 2)
	assert.Equal(t, "Senior Accountant", s.HighestRisk[0].Title)
	assert.Equal(t, "Software Developer", s.HighestRisk[1].Title)
	require.Len(t, s.LowestRisk, 2)
	assert.Equal(t, "Electrician", s.LowestRisk[0].Title)
	assert.Equal(t, "Software Engineer", s.LowestRisk[1].Title)
}
