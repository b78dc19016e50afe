package corpus

import "context"

// SampleProvider serves a small built-in dataset, useful for demos and for
// running without a downloaded dataset.
type SampleProvider struct{}

// Name implements Provider.
func (SampleProvider) Name() string { return "sample" }

// Load implements Provider.
func (SampleProvider) Load(context.Context) ([]Record, error) {
	return SampleRecords(), nil
}

// SampleRecords returns the built-in dataset.
func SampleRecords() []Record {
	return []Record{
		{Title: "Software Developer", Industry: "Technology", Location: Unknown, AutomationRisk: 15, GrowthProjection: 25},
		{Title: "Accountant", Industry: "Finance", Location: Unknown, AutomationRisk: 75, GrowthProjection: -15},
		{Title: "Electrician", Industry: "Construction", Location: Unknown, AutomationRisk: 10, GrowthProjection: 20},
		{Title: "Graphic Designer", Industry: "Creative", Location: Unknown, AutomationRisk: 35, GrowthProjection: 10},
		{Title: "Nurse", Industry: "Healthcare", Location: Unknown, AutomationRisk: 20, GrowthProjection: 30},
		{Title: "Teacher", Industry: "Education", Location: Unknown, AutomationRisk: 25, GrowthProjection: 15},
	}
}
