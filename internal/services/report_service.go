package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"casepulse/internal/charts"
	"casepulse/internal/dataset"
	apierrors "casepulse/internal/errors"
	"casepulse/internal/exporter"
	"casepulse/internal/infrastructure"
	"casepulse/internal/report"
	v1 "casepulse/pkg/contracts/api/v1"
	"casepulse/pkg/contracts/domain"
)

// Chart names accepted by RenderChart.
const (
	ChartTrend  = "trend"
	ChartGender = "gender"
)

// Export formats accepted by Export.
const (
	ExportXLSX = "xlsx"
	ExportCSV  = "csv"
)

// DatasetCache is the memoizing dataset store the service reads through.
type DatasetCache interface {
	Get(ctx context.Context, path string) (*dataset.Dataset, error)
	Invalidate(path string) bool
}

// DatasetNotifier is told when the dataset changes or fails to reload.
type DatasetNotifier interface {
	DatasetChanged(path, reason string, source *domain.SourceInfo)
	DatasetError(path string, err error)
}

// ReportServiceConfig holds the report settings taken from configuration.
type ReportServiceConfig struct {
	DatasetPath          string
	DefaultSelectionSize int
	MaxHospitals         int
	ChartOptions         charts.Options
}

// ReportService loads the dataset through the cache and turns hospital
// selections into reports, chart images and exports.
type ReportService struct {
	cfg      ReportServiceConfig
	cache    DatasetCache
	builder  *report.Builder
	notifier DatasetNotifier
	tracer   trace.Tracer
	metrics  *infrastructure.DashboardMetrics
	logger   *slog.Logger
}

// ChartImage is a rendered chart.
type ChartImage struct {
	Data        []byte
	ContentType string
}

// ExportFile is a rendered export.
type ExportFile struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ReportServiceOption configures optional ReportService collaborators.
type ReportServiceOption func(*ReportService)

// WithTracer sets the tracer used for report spans.
func WithTracer(tracer trace.Tracer) ReportServiceOption {
	return func(s *ReportService) { s.tracer = tracer }
}

// WithMetrics sets the instruments report builds are recorded on.
func WithMetrics(metrics *infrastructure.DashboardMetrics) ReportServiceOption {
	return func(s *ReportService) { s.metrics = metrics }
}

// WithNotifier sets who is told about dataset reloads.
func WithNotifier(notifier DatasetNotifier) ReportServiceOption {
	return func(s *ReportService) { s.notifier = notifier }
}

// NewReportService creates a report service.
func NewReportService(cfg ReportServiceConfig, cache DatasetCache, builder *report.Builder, logger *slog.Logger, opts ...ReportServiceOption) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultSelectionSize <= 0 {
		cfg.DefaultSelectionSize = report.DefaultSelectionSize
	}
	if builder == nil {
		builder = report.NewBuilder(logger, report.BuilderConfig{})
	}

	s := &ReportService{
		cfg:     cfg,
		cache:   cache,
		builder: builder,
		tracer:  noop.NewTracerProvider().Tracer(infrastructure.InstrumentationName),
		metrics: infrastructure.NoopDashboardMetrics(),
		logger:  logger.With(slog.String("service", "report")),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info("ReportService initialized",
		slog.String("dataset_path", cfg.DatasetPath),
		slog.Int("default_selection_size", cfg.DefaultSelectionSize),
		slog.Int("max_hospitals", cfg.MaxHospitals))

	return s
}

// InstrumentedLoader wraps dataset.Load so every file read is counted.
func InstrumentedLoader(metrics *infrastructure.DashboardMetrics) dataset.LoadFunc {
	return func(path string) (*dataset.Dataset, error) {
		ds, err := dataset.Load(path)
		metrics.RecordDatasetLoad(context.Background(), err)
		return ds, err
	}
}

// DatasetPath returns the configured dataset file.
func (s *ReportService) DatasetPath() string {
	return s.cfg.DatasetPath
}

// Dataset returns the current dataset, loading it if the file changed.
// Unreadable files map to ErrDatasetUnavailable and files with a bad layout
// to a PARSING AppError.
func (s *ReportService) Dataset(ctx context.Context) (*dataset.Dataset, error) {
	ds, err := s.cache.Get(ctx, s.cfg.DatasetPath)
	if err == nil {
		return ds, nil
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case errors.Is(err, dataset.ErrMissingColumn), errors.Is(err, dataset.ErrReadCSV):
		return nil, parsingError(s.cfg.DatasetPath, err)
	default:
		return nil, apierrors.NewDatasetError("dataset file is unavailable",
			fmt.Errorf("%w: %w", apierrors.ErrDatasetUnavailable, err)).
			WithContext("path", s.cfg.DatasetPath)
	}
}

func parsingError(path string, err error) error {
	return apierrors.NewParsingError("dataset file is not a valid case CSV", err).
		WithContext("path", path)
}

// Hospitals lists the hospitals in the dataset for the selector.
func (s *ReportService) Hospitals(ctx context.Context) (*v1.HospitalsResponse, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return &v1.HospitalsResponse{
		Sorted:           ds.SortedHospitals(),
		Discovery:        ds.Hospitals(),
		DefaultSelection: ds.DefaultSelection(s.cfg.DefaultSelectionSize),
	}, nil
}

// Build resolves sel against the dataset and builds the report.
func (s *ReportService) Build(ctx context.Context, sel report.Selection) (*domain.Report, error) {
	ctx, span := s.tracer.Start(ctx, "report.build",
		trace.WithAttributes(
			attribute.Bool("report.explicit_selection", sel.Explicit),
			attribute.Int("report.requested", len(sel.Hospitals)),
		))
	defer span.End()

	start := time.Now()
	rep, err := s.build(ctx, sel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordReportBuild(ctx, len(sel.Hospitals), time.Since(start), err)
		return nil, err
	}

	span.SetAttributes(
		attribute.StringSlice("report.hospitals", rep.Selection),
		attribute.Int("report.sections", len(rep.Sections)),
	)
	s.metrics.RecordReportBuild(ctx, len(rep.Selection), time.Since(start), nil)

	s.logger.DebugContext(ctx, "report built",
		slog.Int("hospitals", len(rep.Selection)),
		slog.Duration("duration", time.Since(start)))
	return rep, nil
}

func (s *ReportService) build(ctx context.Context, sel report.Selection) (*domain.Report, error) {
	if s.cfg.MaxHospitals > 0 && len(sel.Hospitals) > s.cfg.MaxHospitals {
		return nil, fmt.Errorf("%w: %d selected, at most %d allowed",
			apierrors.ErrTooManyHospitals, len(sel.Hospitals), s.cfg.MaxHospitals)
	}

	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	hospitals := report.Resolve(ds, sel, s.cfg.DefaultSelectionSize)
	return s.builder.Build(ds, hospitals), nil
}

// RenderChart builds the report for sel and draws one of its charts.
func (s *ReportService) RenderChart(ctx context.Context, sel report.Selection, chart, format string) (*ChartImage, error) {
	normalized, err := charts.NormalizeFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", apierrors.ErrUnsupportedFormat, format)
	}
	format = normalized
	chart = strings.ToLower(chart)
	if chart != ChartTrend && chart != ChartGender {
		return nil, fmt.Errorf("%w: %q", apierrors.ErrUnknownChart, chart)
	}

	rep, err := s.Build(ctx, sel)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "report.render_chart",
		trace.WithAttributes(
			attribute.String("chart.name", chart),
			attribute.String("chart.format", format),
		))
	defer span.End()

	var buf bytes.Buffer
	switch chart {
	case ChartTrend:
		err = charts.RenderTrend(&buf, rep.Trend, format, s.cfg.ChartOptions)
	case ChartGender:
		err = charts.RenderGender(&buf, rep.Gender, format, s.cfg.ChartOptions)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, charts.ErrNoPanels) {
			return nil, fmt.Errorf("%w: %w", apierrors.ErrEmptySelection, err)
		}
		return nil, apierrors.NewRenderError("failed to render chart", err).
			WithContext("chart", chart).
			WithContext("format", format)
	}

	s.metrics.RecordChartRender(ctx, chart, format)
	return &ChartImage{Data: buf.Bytes(), ContentType: charts.ContentType(format)}, nil
}

// Export builds the report for sel and serializes it as an xlsx workbook or
// a leaderboard CSV.
func (s *ReportService) Export(ctx context.Context, sel report.Selection, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != ExportXLSX && format != ExportCSV {
		return nil, fmt.Errorf("%w: %q", apierrors.ErrUnsupportedFormat, format)
	}

	rep, err := s.Build(ctx, sel)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "report.export",
		trace.WithAttributes(attribute.String("export.format", format)))
	defer span.End()

	base := strings.TrimSuffix(filepath.Base(s.cfg.DatasetPath), filepath.Ext(s.cfg.DatasetPath))
	var (
		buf  bytes.Buffer
		file = &ExportFile{}
	)
	switch format {
	case ExportXLSX:
		err = exporter.WriteWorkbook(&buf, rep)
		file.ContentType = exporter.ContentTypeXLSX
		file.Filename = base + "-report.xlsx"
	case ExportCSV:
		err = exporter.WriteLeaderboardCSV(&buf, rep, true)
		file.ContentType = exporter.ContentTypeCSV
		file.Filename = base + "-leaderboard.csv"
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apierrors.NewExportError("failed to export report", err).
			WithContext("format", format)
	}

	s.metrics.RecordExport(ctx, format)
	file.Data = buf.Bytes()
	return file, nil
}

// Reload drops the cached dataset and loads it again. Open dashboards are
// notified either way.
func (s *ReportService) Reload(ctx context.Context) (*v1.ReloadResponse, error) {
	path := s.cfg.DatasetPath
	dropped := s.cache.Invalidate(path)

	ds, err := s.Dataset(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "dataset reload failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if s.notifier != nil {
			s.notifier.DatasetError(path, err)
		}
		return nil, err
	}

	source := ds.Source()
	s.logger.InfoContext(ctx, "dataset reloaded",
		slog.String("path", path),
		slog.Bool("was_cached", dropped),
		slog.Int("rows", ds.Len()))
	if s.notifier != nil {
		s.notifier.DatasetChanged(path, "reload", &source)
	}

	return &v1.ReloadResponse{Status: "reloaded", Source: source}, nil
}

// HandleFileChange is the dataset watcher callback. The watcher has already
// dropped the cache entry; dashboards are told to re-render.
func (s *ReportService) HandleFileChange(path string) {
	ctx := infrastructure.EnsureTraceID(context.Background())
	s.logger.InfoContext(ctx, "dataset file changed, notifying dashboards", slog.String("path", path))
	if s.notifier != nil {
		s.notifier.DatasetChanged(path, "file changed", nil)
	}
}
