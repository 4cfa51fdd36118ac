package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/pkg/contracts/domain"
)

// MockPaths resolves export names under a base directory
type MockPaths struct {
	basePath string
}

func (m *MockPaths) GetExportPath(filename string) string {
	return filepath.Join(m.basePath, "exports", filename)
}

func sampleReport() *domain.Report {
	return &domain.Report{
		Selection: []string{"St. Mary", "General"},
		Sections: []domain.HospitalSection{
			{
				Hospital: "St. Mary",
				Metrics:  domain.HospitalMetrics{CaseCount: 3, AverageDifference: domain.Some(467), AverageServiceDuration: domain.Some(10)},
				Leaderboard: []domain.LeaderboardRow{
					{Doctor: "Dr. Adams", CaseCount: 2, TotalDifference: 1301},
					{Doctor: "Dr. Baker", CaseCount: 1, TotalDifference: 100},
				},
			},
			{
				Hospital:    "General",
				Metrics:     domain.HospitalMetrics{CaseCount: 0, AverageDifference: domain.None(), AverageServiceDuration: domain.None()},
				Leaderboard: []domain.LeaderboardRow{},
			},
		},
		Trend: domain.TrendChart{
			Title: domain.TrendTitle, XLabel: domain.TrendXLabel, YLabel: domain.TrendYLabel,
			Series: []domain.TrendSeries{
				{Hospital: "St. Mary", Points: []domain.TrendPoint{
					{Month: domain.MonthPtr(1), Sum: 1334.5},
					{Month: nil, Sum: 66.5},
				}},
				{Hospital: "General", Points: []domain.TrendPoint{}},
			},
		},
		Gender: domain.GenderChart{
			Title: domain.GenderTitle, XLabel: domain.GenderXLabel, YLabel: domain.GenderYLabel,
			Panels: []domain.GenderPanel{
				{Hospital: "St. Mary", Counts: []domain.GenderCount{{Gender: "F", Count: 2}, {Gender: "M", Count: 1}}},
				{Hospital: "General", Counts: []domain.GenderCount{}},
			},
		},
	}
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name:    "headers and records",
			options: WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}}},
			want:    "a,b\n1,2\n",
		},
		{
			name:    "bom prefix",
			options: WriteOptions{Headers: []string{"a"}, BOMPrefix: true},
			want:    "\xef\xbb\xbfa\n",
		},
		{
			name:    "append skips headers and bom",
			options: WriteOptions{Headers: []string{"a"}, Records: [][]string{{"x"}}, Append: true, BOMPrefix: true},
			want:    "x\n",
		},
		{
			name:    "quotes fields with commas",
			options: WriteOptions{Records: [][]string{{"$1,234.50"}}},
			want:    "\"$1,234.50\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tt.options))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLeaderboardRecords(t *testing.T) {
	records := LeaderboardRecords(sampleReport())

	assert.Equal(t, [][]string{
		{"St. Mary", "Dr. Adams", "2", "1301.00"},
		{"St. Mary", "Dr. Baker", "1", "100.00"},
	}, records)
}

func TestWriteLeaderboardCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLeaderboardCSV(&buf, sampleReport(), false))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, LeaderboardHeaders, rows[0])
	assert.Equal(t, "Dr. Adams", rows[1][1])
}

func TestCSVWriter_WriteLeaderboard(t *testing.T) {
	base := t.TempDir()
	writer := NewCSVWriter(&MockPaths{basePath: base})

	require.NoError(t, writer.WriteLeaderboard("leaderboard.csv", sampleReport()))

	data, err := os.ReadFile(filepath.Join(base, "exports", "leaderboard.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Contains(t, string(data), "Hospital,Doctor,Case_Count,Total_Difference")
}

func TestCSVWriter_AbsolutePathAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	writer := NewCSVWriter(nil)

	require.NoError(t, writer.WriteCSV(path, WriteOptions{Headers: []string{"h"}, Records: [][]string{{"1"}}}))
	require.NoError(t, writer.WriteCSV(path, WriteOptions{Records: [][]string{{"2"}}, Append: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "h\n1\n2\n", string(data))
}
