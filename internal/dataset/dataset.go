package dataset

import (
	"sort"

	"casepulse/pkg/contracts/domain"
)

// Dataset is an ordered, read-only collection of case records.
type Dataset struct {
	records   []domain.CaseRecord
	source    domain.SourceInfo
	hospitals []string
}

// New builds a Dataset from records. The slice is owned by the Dataset afterwards.
func New(records []domain.CaseRecord, source domain.SourceInfo) *Dataset {
	seen := make(map[string]struct{})
	var hospitals []string
	for _, r := range records {
		if r.Hospital == "" {
			continue
		}
		if _, ok := seen[r.Hospital]; ok {
			continue
		}
		seen[r.Hospital] = struct{}{}
		hospitals = append(hospitals, r.Hospital)
	}
	source.Rows = len(records)
	return &Dataset{records: records, source: source, hospitals: hospitals}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns a copy of all records in file order.
func (d *Dataset) Records() []domain.CaseRecord {
	out := make([]domain.CaseRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Source returns metadata about the file the dataset came from.
func (d *Dataset) Source() domain.SourceInfo {
	return d.source
}

// Hospitals returns the distinct hospital names in discovery order.
func (d *Dataset) Hospitals() []string {
	out := make([]string, len(d.hospitals))
	copy(out, d.hospitals)
	return out
}

// SortedHospitals returns the distinct hospital names in lexical order.
func (d *Dataset) SortedHospitals() []string {
	out := d.Hospitals()
	sort.Strings(out)
	return out
}

// DefaultSelection returns the first n hospitals in discovery order.
func (d *Dataset) DefaultSelection(n int) []string {
	if n < 0 {
		n = 0
	}
	if n > len(d.hospitals) {
		n = len(d.hospitals)
	}
	out := make([]string, n)
	copy(out, d.hospitals[:n])
	return out
}

// Contains reports whether hospital appears in the dataset.
func (d *Dataset) Contains(hospital string) bool {
	for _, h := range d.hospitals {
		if h == hospital {
			return true
		}
	}
	return false
}

// Subset returns the records of one hospital in file order. Unknown names
// yield an empty slice.
func (d *Dataset) Subset(hospital string) []domain.CaseRecord {
	var out []domain.CaseRecord
	for _, r := range d.records {
		if r.Hospital == hospital {
			out = append(out, r)
		}
	}
	return out
}
