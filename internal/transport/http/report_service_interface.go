package http

import (
	"context"

	"casepulse/internal/report"
	"casepulse/internal/services"
	v1 "casepulse/pkg/contracts/api/v1"
	"casepulse/pkg/contracts/domain"
)

// ReportServiceInterface defines the report operations the handlers need
type ReportServiceInterface interface {
	Hospitals(ctx context.Context) (*v1.HospitalsResponse, error)
	Build(ctx context.Context, sel report.Selection) (*domain.Report, error)
	RenderChart(ctx context.Context, sel report.Selection, chart, format string) (*services.ChartImage, error)
	Export(ctx context.Context, sel report.Selection, format string) (*services.ExportFile, error)
	Reload(ctx context.Context) (*v1.ReloadResponse, error)
}
