package domain

import (
	"time"
)

// Chart labels shared by every rendering backend.
const (
	TrendTitle  = "Monthly Difference Trend"
	TrendXLabel = "Month"
	TrendYLabel = "Total Difference ($)"

	GenderTitle  = "Gender Distribution"
	GenderXLabel = "Gender"
	GenderYLabel = "Count"
)

// Report is the structured result of rendering a selection of hospitals
// against a dataset. Any backend (HTML, JSON, xlsx, PNG) consumes it.
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Source      SourceInfo        `json:"source"`
	Selection   []string          `json:"selection"`
	Sections    []HospitalSection `json:"sections"`
	Trend       TrendChart        `json:"trend"`
	Gender      GenderChart       `json:"gender"`
}

// IsEmpty reports whether the selection produced no sections.
func (r *Report) IsEmpty() bool {
	return len(r.Sections) == 0
}

// HospitalSection holds the metrics and leaderboard of one selected hospital.
type HospitalSection struct {
	Hospital    string           `json:"hospital"`
	Metrics     HospitalMetrics  `json:"metrics"`
	Leaderboard []LeaderboardRow `json:"leaderboard"`
}

// HospitalMetrics are the three scalar metrics shown per hospital.
// Averages are absent when the subset has no present values.
type HospitalMetrics struct {
	CaseCount              int      `json:"case_count"`
	AverageDifference      Optional `json:"average_difference"`
	AverageServiceDuration Optional `json:"average_service_duration"`
}

// LeaderboardRow is the per-doctor aggregate.
type LeaderboardRow struct {
	Doctor          string  `json:"doctor"`
	CaseCount       int     `json:"case_count"`
	TotalDifference float64 `json:"total_difference"`
}

// TrendChart is the cross-hospital monthly trend, one series per hospital.
type TrendChart struct {
	Title  string        `json:"title"`
	XLabel string        `json:"x_label"`
	YLabel string        `json:"y_label"`
	Series []TrendSeries `json:"series"`
}

// TrendSeries is one hospital's line.
type TrendSeries struct {
	Hospital string       `json:"hospital"`
	Points   []TrendPoint `json:"points"`
}

// TrendPoint is the summed Difference for a month. Month is nil for the
// bucket of rows whose month could not be parsed.
type TrendPoint struct {
	Month *int    `json:"month"`
	Sum   float64 `json:"sum"`
}

// GenderChart is the per-hospital gender distribution.
type GenderChart struct {
	Title  string        `json:"title"`
	XLabel string        `json:"x_label"`
	YLabel string        `json:"y_label"`
	Panels []GenderPanel `json:"panels"`
}

// GenderPanel is one hospital's bar chart.
type GenderPanel struct {
	Hospital string        `json:"hospital"`
	Counts   []GenderCount `json:"counts"`
}

// GenderCount is the number of rows with a given Sex value.
type GenderCount struct {
	Gender string `json:"gender"`
	Count  int    `json:"count"`
}

// MaxCount returns the largest count across all panels.
func (g GenderChart) MaxCount() int {
	max := 0
	for _, p := range g.Panels {
		for _, c := range p.Counts {
			if c.Count > max {
				max = c.Count
			}
		}
	}
	return max
}
