// Package dataset loads the hospital case CSV into an immutable Dataset and
// memoizes it per file version.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"

	"casepulse/pkg/contracts/domain"
)

// Column names expected in the input file.
const (
	ColHospital        = "Hospital"
	ColDoctor          = "Doctor"
	ColSex             = "Sex"
	ColDifference      = "Difference"
	ColServiceDuration = "Service Duration"
	ColMonth           = "Month"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	ColHospital, ColDoctor, ColSex,
	ColDifference, ColServiceDuration, ColMonth,
}

var (
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("required column not found")
	// ErrReadCSV wraps failures reported by the CSV reader.
	ErrReadCSV = errors.New("failed to read CSV")
)

var currencyChars = regexp.MustCompile(`[\$,]`)

// MissingValues are the cell texts read as absent, matched exactly. Cells
// that are empty after trimming are absent too.
var MissingValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

var missingSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(MissingValues))
	for _, v := range MissingValues {
		m[v] = struct{}{}
	}
	return m
}()

// Load opens path and reads it as a Dataset. Missing files, malformed CSV and
// missing columns are fatal; unparseable cells become absent values.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset file: %w", err)
	}

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.source.Path = path
	ds.source.ModTime = info.ModTime()
	ds.source.Size = info.Size()
	return ds, nil
}

// Read parses CSV content from r. The returned Dataset has no file metadata.
// A file holding only a valid header row yields an empty Dataset.
func Read(r io.Reader) (*Dataset, error) {
	// Trim the Byte Order Marker if it's present
	content, err := io.ReadAll(utfbom.SkipOnly(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadCSV, err)
	}

	df := dataframe.ReadCSV(bytes.NewReader(content),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(MissingValues),
	)
	if df.Err != nil {
		header, ok := headerOnly(content)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrReadCSV, df.Err)
		}
		if err := validate(header); err != nil {
			return nil, err
		}
		return New(nil, domain.SourceInfo{LoadedAt: time.Now()}), nil
	}
	if err := validate(df.Names()); err != nil {
		return nil, err
	}

	hospital := df.Col(ColHospital).Records()
	doctor := df.Col(ColDoctor).Records()
	sex := df.Col(ColSex).Records()
	difference := df.Col(ColDifference).Records()
	duration := df.Col(ColServiceDuration).Records()
	month := df.Col(ColMonth).Records()

	records := make([]domain.CaseRecord, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		records = append(records, domain.CaseRecord{
			Hospital:        text(hospital[i]),
			Doctor:          text(doctor[i]),
			Sex:             text(sex[i]),
			Difference:      ParseCurrency(difference[i]),
			Month:           ParseMonth(month[i]),
			ServiceDuration: ParseNumber(duration[i]),
		})
	}

	return New(records, domain.SourceInfo{LoadedAt: time.Now()}), nil
}

// headerOnly reports whether content is exactly one well-formed CSV row,
// which the dataframe reader refuses as an empty frame.
func headerOnly(content []byte) ([]string, bool) {
	rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	if err != nil || len(rows) != 1 {
		return nil, false
	}
	return rows[0], true
}

func validate(fields []string) error {
	m := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		m[field] = struct{}{}
	}

	for _, required := range RequiredColumns {
		if _, ok := m[required]; !ok {
			return fmt.Errorf("%w: '%s'", ErrMissingColumn, required)
		}
	}
	return nil
}

// isMissing reports whether a cell is blank or one of MissingValues.
func isMissing(v string) bool {
	if _, ok := missingSet[v]; ok {
		return true
	}
	return strings.TrimSpace(v) == ""
}

// text keeps names verbatim, so "A" and "A " stay distinct hospitals.
func text(v string) string {
	if isMissing(v) {
		return ""
	}
	return v
}

// ParseCurrency strips dollar signs and thousands separators and parses the
// remainder. "$1,234.50" yields 1234.5.
func ParseCurrency(v string) domain.Optional {
	if isMissing(v) {
		return domain.None()
	}
	return ParseNumber(currencyChars.ReplaceAllString(v, ""))
}

// ParseNumber parses a plain float. Failures yield an absent value.
func ParseNumber(v string) domain.Optional {
	if isMissing(v) {
		return domain.None()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return domain.None()
	}
	return domain.Some(f)
}

// ParseMonth parses a full English month name ("March") into 1-12.
// Matching is case-insensitive; anything else yields nil.
func ParseMonth(v string) *int {
	if isMissing(v) {
		return nil
	}
	t, err := time.Parse("January", strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	m := int(t.Month())
	return &m
}
