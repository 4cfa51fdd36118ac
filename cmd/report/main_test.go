package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"casepulse/internal/exporter"
	"casepulse/internal/shared/testutil"
	"casepulse/pkg/contracts"
	"casepulse/pkg/contracts/domain"
)

// execute runs the command tree with fresh flag state
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("CASEPULSE_CONFIG_FILE", "")

	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func decodeReport(t *testing.T, stdout string) domain.Report {
	t.Helper()
	var rep domain.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	return rep
}

func TestReport_Selection(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)

	tests := []struct {
		name          string
		args          []string
		wantSelection []string
		wantSummary   string
	}{
		{
			name:          "default selection",
			args:          nil,
			wantSelection: []string{"A", "B"},
			wantSummary:   "Top doctor at A: X (2 cases, $150.00)",
		},
		{
			name:          "explicit hospitals keep order",
			args:          []string{"--hospital", "B", "--hospital", "A"},
			wantSelection: []string{"B", "A"},
			wantSummary:   "Avg Difference",
		},
		{
			name:          "no hospitals",
			args:          []string{"--none"},
			wantSelection: []string{},
			wantSummary:   "No hospitals selected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := execute(t, append([]string{"--file", path}, tt.args...)...)
			require.NoError(t, err)

			rep := decodeReport(t, stdout)
			assert.ElementsMatch(t, tt.wantSelection, rep.Selection)
			if len(tt.wantSelection) > 0 {
				assert.Equal(t, tt.wantSelection, rep.Selection)
			}
			assert.Len(t, rep.Sections, len(tt.wantSelection))
			assert.Contains(t, stderr, "Source: cases.csv (3 rows")
			assert.Contains(t, stderr, tt.wantSummary)
		})
	}
}

func TestReport_Metrics(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)

	stdout, stderr, err := execute(t, "--file", path)
	require.NoError(t, err)

	rep := decodeReport(t, stdout)
	require.Len(t, rep.Sections, 2)

	a := rep.Sections[0]
	assert.Equal(t, 2, a.Metrics.CaseCount)
	assert.Equal(t, domain.Some(75), a.Metrics.AverageDifference)
	assert.Equal(t, domain.Some(15), a.Metrics.AverageServiceDuration)
	require.Len(t, a.Leaderboard, 1)
	assert.Equal(t, domain.LeaderboardRow{Doctor: "X", CaseCount: 2, TotalDifference: 150}, a.Leaderboard[0])

	b := rep.Sections[1]
	assert.Equal(t, 1, b.Metrics.CaseCount)
	assert.False(t, b.Metrics.AverageDifference.Valid)
	assert.Regexp(t, `B\s+1\s+n/a\s+5`, stderr)
}

func TestReport_Formats(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)

	t.Run("csv to stdout", func(t *testing.T) {
		stdout, _, err := execute(t, "--file", path, "--format", "csv")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.NotEmpty(t, lines)
		assert.Equal(t, strings.Join(exporter.LeaderboardHeaders, ","), strings.TrimSpace(lines[0]))
		assert.Contains(t, stdout, "A,X,2,150.00")
		assert.Contains(t, stdout, "B,Y,1,0.00")
	})

	t.Run("xlsx to stdout", func(t *testing.T) {
		stdout, _, err := execute(t, "--file", path, "--format", "xlsx")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stdout, "PK"))
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, stderr, err := execute(t, "--file", path, "--format", "pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unsupported format "pdf"`)
		assert.Contains(t, stderr, "Error:")
	})
}

func TestReport_OutFiles(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)
	exportDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("paths:\n  export_dir: "+exportDir+"\n"), 0644))

	tests := []struct {
		name  string
		out   string
		check func(t *testing.T, full string)
	}{
		{
			name: "json",
			out:  "report.json",
			check: func(t *testing.T, full string) {
				data, err := os.ReadFile(full)
				require.NoError(t, err)
				rep := decodeReport(t, string(data))
				assert.Equal(t, []string{"A", "B"}, rep.Selection)
			},
		},
		{
			name: "xlsx",
			out:  "nested/report.xlsx",
			check: func(t *testing.T, full string) {
				f, err := excelize.OpenFile(full)
				require.NoError(t, err)
				defer f.Close()
				assert.Contains(t, f.GetSheetList(), exporter.SheetSummary)
			},
		},
		{
			name: "csv",
			out:  "leaderboard.csv",
			check: func(t *testing.T, full string) {
				data, err := os.ReadFile(full)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
				assert.Contains(t, string(data), "A,X,2,150.00")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := execute(t, "--config", cfgPath, "--file", path, "--format", tt.name, "--out", tt.out)
			require.NoError(t, err)
			assert.Empty(t, stdout)

			full := filepath.Join(exportDir, tt.out)
			assert.Contains(t, stderr, "Wrote "+full)
			tt.check(t, full)
		})
	}
}

func TestReport_Charts(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)
	pngMagic := []byte("\x89PNG")

	tests := []struct {
		name       string
		args       []string
		wantGender bool
	}{
		{name: "default selection", args: nil, wantGender: true},
		{name: "no hospitals", args: []string{"--none"}, wantGender: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "charts")
			_, _, err := execute(t, append([]string{"--file", path, "--charts", dir}, tt.args...)...)
			require.NoError(t, err)

			trend, err := os.ReadFile(filepath.Join(dir, "trend.png"))
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(trend, pngMagic))

			gender, err := os.ReadFile(filepath.Join(dir, "gender.png"))
			if tt.wantGender {
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(gender, pngMagic))
			} else {
				assert.True(t, os.IsNotExist(err))
			}
		})
	}
}

func TestReport_Errors(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing file",
			args:    []string{"--file", filepath.Join(t.TempDir(), "missing.csv")},
			wantErr: "building report",
		},
		{
			name:    "hospital and none",
			args:    []string{"--file", path, "--hospital", "A", "--none"},
			wantErr: "none",
		},
		{
			name:    "bad config file",
			args:    []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")},
			wantErr: "loading config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHospitals(t *testing.T) {
	path := testutil.WriteCasesCSV(t,
		testutil.CaseRow{Hospital: "Zeta", Doctor: "D1", Sex: "F", Difference: "$1", ServiceDuration: "1", Month: "January"},
		testutil.CaseRow{Hospital: "Alpha", Doctor: "D2", Sex: "M", Difference: "$2", ServiceDuration: "2", Month: "February"},
		testutil.CaseRow{Hospital: "Alpha", Doctor: "D3", Sex: "M", Difference: "$3", ServiceDuration: "3", Month: "March"},
		testutil.CaseRow{Hospital: "Mid", Doctor: "D4", Sex: "F", Difference: "$4", ServiceDuration: "4", Month: "April"},
	)

	tests := []struct {
		name      string
		args      []string
		wantOrder []string
	}{
		{name: "file order", args: nil, wantOrder: []string{"Zeta", "Alpha", "Mid"}},
		{name: "sorted", args: []string{"--sorted"}, wantOrder: []string{"Alpha", "Mid", "Zeta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, append([]string{"hospitals", "--file", path}, tt.args...)...)
			require.NoError(t, err)

			lines := strings.Split(stdout, "\n")
			require.Greater(t, len(lines), len(tt.wantOrder))
			for i, name := range tt.wantOrder {
				assert.Contains(t, lines[i+1], name)
			}
			assert.Regexp(t, `\*\s*Zeta\s+1`, stdout)
			assert.Regexp(t, `\*\s*Alpha\s+2`, stdout)
			assert.NotRegexp(t, `\*\s*Mid`, stdout)
			assert.Contains(t, stdout, "3 hospitals, 4 cases")
		})
	}
}

func TestVersionFlag(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "casepulse-report version "+contracts.Version+" (commit ")
}
