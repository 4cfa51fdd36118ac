package domain

import "time"

// CaseRecord is one row of the billing dataset.
type CaseRecord struct {
	Hospital        string   `json:"hospital"`
	Doctor          string   `json:"doctor"`
	Sex             string   `json:"sex"`
	Difference      Optional `json:"difference"`
	Month           *int     `json:"month"`
	ServiceDuration Optional `json:"service_duration"`
}

// HasMonth reports whether the month cell parsed to a month number.
func (r CaseRecord) HasMonth() bool {
	return r.Month != nil
}

// SourceInfo describes the file a dataset was loaded from.
type SourceInfo struct {
	Path     string    `json:"path"`
	ModTime  time.Time `json:"mod_time"`
	Size     int64     `json:"size"`
	LoadedAt time.Time `json:"loaded_at"`
	Rows     int       `json:"rows"`
}

// MonthPtr returns a pointer to m. Convenient for building records in code.
func MonthPtr(m int) *int {
	return &m
}
