//go:build ignore

// Package main generates a synthetic job dataset for benchmarking builds and
// searches at scale.
// Usage: go run scripts/generate-test-corpus.go -jobs 5000 -output testdata/bench/jobs.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

var (
	numJobs  = flag.Int("jobs", 5000, "Number of distinct job titles to generate")
	output   = flag.String("output", "testdata/bench/jobs.csv", "Output CSV file")
	seed     = flag.Int64("seed", 42, "Random seed for reproducibility")
	openings = flag.Bool("openings", false, "Write job openings columns instead of a growth column")
)

var seniority = []string{
	"", "", "", "Junior", "Senior", "Lead", "Principal", "Chief", "Assistant", "Associate",
}

// role families keyed by industry.
var families = map[string][]string{
	"Technology": {
		"Software Engineer", "Software Developer", "Data Scientist", "Data Engineer",
		"DevOps Engineer", "Cloud Architect", "Security Analyst", "QA Engineer",
		"Frontend Developer", "Backend Developer", "Network Administrator", "Database Administrator",
	},
	"Finance": {
		"Accountant", "Financial Analyst", "Auditor", "Tax Advisor", "Actuary",
		"Investment Banker", "Loan Officer", "Payroll Clerk", "Controller",
	},
	"Healthcare": {
		"Nurse", "Physician", "Pharmacist", "Radiographer", "Paramedic",
		"Physiotherapist", "Dental Hygienist", "Medical Coder", "Care Assistant",
	},
	"Education": {
		"Teacher", "Lecturer", "Tutor", "School Counselor", "Librarian",
		"Curriculum Designer", "Teaching Assistant",
	},
	"Construction": {
		"Electrician", "Plumber", "Carpenter", "Site Manager", "Surveyor",
		"Civil Engineer", "Bricklayer", "Crane Operator",
	},
	"Creative": {
		"Graphic Designer", "Copywriter", "Illustrator", "Photographer",
		"Video Editor", "Art Director", "UX Designer",
	},
	"Retail": {
		"Store Manager", "Cashier", "Merchandiser", "Buyer", "Sales Associate",
	},
	"Logistics": {
		"Truck Driver", "Warehouse Operative", "Supply Chain Analyst", "Dispatcher",
	},
}

var specialisms = []string{
	"", "", "", "", "Clinical", "Regional", "Digital", "Industrial", "Commercial",
	"Technical", "Environmental", "Field", "Remote",
}

var locations = []string{
	"London", "New York", "Berlin", "Toronto", "Sydney", "Bangalore", "Singapore", "Remote",
}

var industries = []string{
	"Technology", "Finance", "Healthcare", "Education", "Construction", "Creative", "Retail", "Logistics",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *output, err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"Job Title", "Industry", "Location", "AI Automation Risk"}
	if *openings {
		header = append(header, "Job Openings (2024)", "Projected Openings (2030)")
	} else {
		header = append(header, "Job Growth Projection (%)")
	}
	_ = w.Write(header)

	fmt.Printf("Generating %d job titles in %s (seed=%d)\n", *numJobs, *output, *seed)

	seen := make(map[string]bool, *numJobs)
	attempts := 0
	for len(seen) < *numJobs {
		attempts++
		if attempts > *numJobs*50 {
			fmt.Fprintf(os.Stderr, "Title space exhausted after %d titles\n", len(seen))
			break
		}

		industry := industries[rng.Intn(len(industries))]
		title := randomTitle(rng, industry, len(seen))
		if seen[title] {
			continue
		}
		seen[title] = true

		risk := rng.Float64() * 100
		row := []string{title, industry, locations[rng.Intn(len(locations))], formatFloat(risk)}
		if *openings {
			o2024 := 500 + rng.Intn(50000)
			// Riskier roles shrink more.
			factor := 1.4 - risk/100*0.8 + (rng.Float64()-0.5)*0.2
			row = append(row, strconv.Itoa(o2024), strconv.Itoa(int(float64(o2024)*factor)))
		} else {
			row = append(row, formatFloat(40-risk*0.6+(rng.Float64()-0.5)*20))
		}
		if err := w.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write row: %v\n", err)
			os.Exit(1)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d job titles successfully.\n", len(seen))
}

func randomTitle(rng *rand.Rand, industry string, n int) string {
	role := families[industry][rng.Intn(len(families[industry]))]
	title := role
	if s := specialisms[rng.Intn(len(specialisms))]; s != "" {
		title = s + " " + title
	}
	if s := seniority[rng.Intn(len(seniority))]; s != "" {
		title = s + " " + title
	}
	// Past the combinatorial space, number the grades.
	if n > 2000 && rng.Intn(3) == 0 {
		title = fmt.Sprintf("%s %s", title, romanGrade(1+rng.Intn(5)))
	}
	return title
}

func romanGrade(n int) string {
	return []string{"I", "II", "III", "IV", "V"}[n-1]
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
