package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
)

// CaseHeader is the header row of a case file.
var CaseHeader = []string{"Hospital", "Doctor", "Sex", "Difference", "Service Duration", "Month"}

// CaseRow is one line of a case file. Values are written verbatim so
// tests can feed malformed cells.
type CaseRow struct {
	Hospital        string
	Doctor          string
	Sex             string
	Difference      string
	ServiceDuration string
	Month           string
}

func (r CaseRow) record() []string {
	return []string{r.Hospital, r.Doctor, r.Sex, r.Difference, r.ServiceDuration, r.Month}
}

// SampleCases is a small two-hospital file. Hospital A has doctor X twice,
// both in January; hospital B has one case with an absent difference.
var SampleCases = []CaseRow{
	{"A", "X", "F", "$100.00", "10", "January"},
	{"A", "X", "M", "$50", "20", "January"},
	{"B", "Y", "F", "", "5", "March"},
}

// WriteCasesCSV writes rows under a temp dir and returns the file path
func WriteCasesCSV(t *testing.T, rows ...CaseRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.csv")
	WriteCasesCSVTo(t, path, rows...)
	return path
}

// WriteCasesCSVTo writes rows to path, replacing any existing file
func WriteCasesCSVTo(t *testing.T, path string, rows ...CaseRow) {
	t.Helper()

	records := make([][]string, 0, len(rows)+1)
	records = append(records, CaseHeader)
	for _, r := range rows {
		records = append(records, r.record())
	}

	df := dataframe.LoadRecords(records, dataframe.DetectTypes(false), dataframe.HasHeader(true))
	if df.Err != nil {
		t.Fatalf("failed to build case frame: %v", df.Err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create case file: %v", err)
	}
	defer f.Close()

	if err := df.WriteCSV(f); err != nil {
		t.Fatalf("failed to write case file: %v", err)
	}
}
