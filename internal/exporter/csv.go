package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"casepulse/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LeaderboardHeaders are the columns of the leaderboard CSV export.
var LeaderboardHeaders = []string{"Hospital", "Doctor", "Case_Count", "Total_Difference"}

// PathResolver resolves relative export file names.
type PathResolver interface {
	GetExportPath(filename string) string
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths PathResolver
}

// NewCSVWriter creates a new CSV writer instance. A nil resolver leaves
// relative paths relative to the working directory.
func NewCSVWriter(paths PathResolver) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write encodes the options' headers and records to w.
func Write(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix && !options.Append {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	if err := Write(file, options); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteLeaderboard writes the leaderboard export of rep to filePath.
func (w *CSVWriter) WriteLeaderboard(filePath string, rep *domain.Report) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   LeaderboardHeaders,
		Records:   LeaderboardRecords(rep),
		BOMPrefix: true,
	})
}

// WriteLeaderboardCSV streams the leaderboard export of rep to w.
func WriteLeaderboardCSV(w io.Writer, rep *domain.Report, bom bool) error {
	return Write(w, WriteOptions{
		Headers:   LeaderboardHeaders,
		Records:   LeaderboardRecords(rep),
		BOMPrefix: bom,
	})
}

// LeaderboardRecords flattens every section's leaderboard into rows, in
// selection order then rank order.
func LeaderboardRecords(rep *domain.Report) [][]string {
	var records [][]string
	for _, section := range rep.Sections {
		for _, row := range section.Leaderboard {
			records = append(records, []string{
				section.Hospital,
				row.Doctor,
				strconv.Itoa(row.CaseCount),
				amountCell(row.TotalDifference),
			})
		}
	}
	return records
}

// resolvePath resolves a relative path against the export directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetExportPath(filePath)
}
