package corpus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Aman-CERP/titlesearch/internal/errors"
)

// Header variants seen in the job-market datasets this tool ingests.
var (
	titleColumns    = []string{"Job Title", "Job_Title", "job_title", "title"}
	industryColumns = []string{"Industry", "industry"}
	locationColumns = []string{"Location", "location"}
	riskColumns     = []string{"AI Automation Risk", "Automation Risk (%)", "AI_Automation_Risk", "automation_risk"}
	growthColumns   = []string{"Job Growth Projection (%)", "Job_Growth_Projection", "growth_projection"}
	openingsColumns = []string{"Job Openings (2024)", "Job_Openings_2024"}
	projectColumns  = []string{"Projected Openings (2030)", "Projected_Openings_2030"}
)

// Schema is the column layout resolved from a dataset header. Optional
// columns hold -1 when absent; Growth is -1 when growth is derived from
// the openings columns.
type Schema struct {
	Title    int
	Industry int
	Location int
	Risk     int
	Growth   int
	Open2024 int
	Open2030 int
}

// ResolveSchema maps header onto the canonical record fields. A header that
// lacks a title, industry, automation risk, or any growth source is rejected.
func ResolveSchema(header []string) (Schema, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := pos[n]; ok {
				return i
			}
		}
		return -1
	}

	s := Schema{
		Title:    find(titleColumns),
		Industry: find(industryColumns),
		Location: find(locationColumns),
		Risk:     find(riskColumns),
		Growth:   find(growthColumns),
		Open2024: find(openingsColumns),
		Open2030: find(projectColumns),
	}

	var missing []string
	if s.Title < 0 {
		missing = append(missing, "job title")
	}
	if s.Industry < 0 {
		missing = append(missing, "industry")
	}
	if s.Risk < 0 {
		missing = append(missing, "automation risk")
	}
	if s.Growth < 0 && (s.Open2024 < 0 || s.Open2030 < 0) {
		missing = append(missing, "growth projection or job openings")
	}
	if len(missing) > 0 {
		return Schema{}, errors.New(errors.ErrCodeUnrecognizedSchema,
			"unrecognized dataset schema: missing "+strings.Join(missing, ", "), nil).
			WithDetail("header", strings.Join(header, ",")).
			WithSuggestion("expected columns such as 'Job Title', 'Industry', 'AI Automation Risk', 'Job Growth Projection (%)'")
	}
	return s, nil
}

// Normalize converts tabular rows into canonical records. Row numbers in
// errors are 1-based and count data rows only.
func Normalize(header []string, rows [][]string) ([]Record, error) {
	s, err := ResolveSchema(header)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		r, err := s.record(row)
		if err != nil {
			return nil, errors.New(errors.ErrCodeUnrecognizedSchema,
				fmt.Sprintf("row %d: %v", i+1, err), err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (s Schema) record(row []string) (Record, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	r := Record{
		Title:    cell(s.Title),
		Industry: cell(s.Industry),
		Location: cell(s.Location),
	}
	if r.Location == "" {
		r.Location = Unknown
	}

	var err error
	if r.AutomationRisk, err = parseNumber(cell(s.Risk)); err != nil {
		return Record{}, fmt.Errorf("automation risk: %w", err)
	}

	if s.Growth >= 0 {
		if r.GrowthProjection, err = parseNumber(cell(s.Growth)); err != nil {
			return Record{}, fmt.Errorf("growth projection: %w", err)
		}
		return r, nil
	}

	o24, err := parseNumber(cell(s.Open2024))
	if err != nil {
		return Record{}, fmt.Errorf("openings 2024: %w", err)
	}
	o30, err := parseNumber(cell(s.Open2030))
	if err != nil {
		return Record{}, fmt.Errorf("openings 2030: %w", err)
	}
	r.GrowthProjection = GrowthFromOpenings(o24, o30)
	return r, nil
}

// GrowthFromOpenings returns the percentage change from 2024 to 2030
// openings, or 0 when there were no openings in 2024.
func GrowthFromOpenings(o2024, o2030 float64) float64 {
	if o2024 <= 0 {
		return 0
	}
	return (o2030 - o2024) / o2024 * 100
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}
