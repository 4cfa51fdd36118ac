package report

import (
	"strings"
)

// DefaultSelectionSize is how many hospitals are selected when the caller
// does not choose any.
const DefaultSelectionSize = 2

// Selection is the caller's hospital choice. Explicit distinguishes an empty
// choice ("no hospitals") from no choice at all ("use the default").
type Selection struct {
	Hospitals []string
	Explicit  bool
}

// Explicitly returns an explicit selection of the given hospitals.
func Explicitly(hospitals ...string) Selection {
	return Selection{Hospitals: hospitals, Explicit: true}
}

// HospitalSource is the part of a dataset a selection is resolved against.
type HospitalSource interface {
	DefaultSelection(n int) []string
}

// Resolve returns the ordered hospital names to report on. Blank names are
// dropped; duplicates and names absent from the dataset are kept.
func Resolve(src HospitalSource, sel Selection, defaultSize int) []string {
	if !sel.Explicit && len(sel.Hospitals) == 0 {
		return src.DefaultSelection(defaultSize)
	}

	out := make([]string, 0, len(sel.Hospitals))
	for _, h := range sel.Hospitals {
		// names are matched verbatim; only blank entries are dropped
		if strings.TrimSpace(h) == "" {
			continue
		}
		out = append(out, h)
	}
	return out
}
