// Package api contains API contract definitions for the casepulse dashboard.
// Version v1 represents the current stable API version.
package api

import (
	"casepulse/pkg/contracts/domain"
)

// Report API Requests

// ReportRequest selects the hospitals to report on.
// Explicit is false when the caller sent no hospital parameter at all, which
// means "use the default selection". An explicit list whose names are all
// blank produces an empty report.
type ReportRequest struct {
	Hospitals []string `json:"hospitals" query:"hospital" validate:"dive,max=200,hospital"`
	Explicit  bool     `json:"-"`
}

// ChartRequest identifies a rendered chart image.
type ChartRequest struct {
	ReportRequest
	Chart  string `json:"chart" param:"chart" validate:"required,oneof=trend gender"`
	Format string `json:"format" param:"format" validate:"required,oneof=png svg"`
}

// Report API Responses

// HospitalsResponse lists the hospitals present in the loaded dataset.
type HospitalsResponse struct {
	Sorted           []string `json:"sorted"`
	Discovery        []string `json:"discovery"`
	DefaultSelection []string `json:"default_selection"`
}

// ReportResponse wraps a rendered report.
type ReportResponse struct {
	Status string         `json:"status"`
	Data   *domain.Report `json:"data"`
}

// ReloadResponse is returned after the dataset cache has been invalidated.
type ReloadResponse struct {
	Status string            `json:"status"`
	Source domain.SourceInfo `json:"source"`
}
