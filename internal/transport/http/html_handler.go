package http

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dustin/go-humanize"

	apierrors "casepulse/internal/errors"
	mw "casepulse/internal/middleware"
	"casepulse/pkg/contracts/domain"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTemplate = template.Must(
	template.New("dashboard.html").Funcs(template.FuncMap{
		"count":    func(n int) string { return humanize.Comma(int64(n)) },
		"money":    formatMoney,
		"optional": formatOptional,
		"ago":      humanize.Time,
	}).ParseFS(templateFS, "templates/dashboard.html"),
)

// formatMoney renders a value with thousands separators and two decimals
func formatMoney(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// formatOptional renders absent metrics as n/a
func formatOptional(o domain.Optional) string {
	if !o.Valid {
		return "n/a"
	}
	return formatMoney(o.Value)
}

// HospitalOption is one entry of the hospital multi-select
type HospitalOption struct {
	Name     string
	Selected bool
}

// DashboardPage is the data the dashboard template renders
type DashboardPage struct {
	Title       string
	Hospitals   []HospitalOption
	Report      *domain.Report
	Query       template.URL
	Error       *apierrors.ProblemDetails
	LiveUpdates bool
}

// DashboardHandler renders the HTML dashboard
type DashboardHandler struct {
	service      ReportServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	liveUpdates  bool
}

// NewDashboardHandler creates the dashboard handler. liveUpdates adds the
// websocket script that reloads the page when the dataset changes.
func NewDashboardHandler(service ReportServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, liveUpdates bool) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
		liveUpdates:  liveUpdates,
	}
}

// ServeHTTP handles GET /
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := DashboardPage{
		Title:       "Hospital Case Dashboard",
		LiveUpdates: h.liveUpdates,
	}
	status := http.StatusOK

	if err := h.populate(r, &page); err != nil {
		problem := h.errorHandler.ErrorToProblem(err, r)
		h.logger.WarnContext(ctx, "dashboard render failed",
			slog.String("error", err.Error()),
			slog.Int("status", problem.Status))
		page.Error = problem
		page.Report = nil
		status = problem.Status
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, page); err != nil {
		h.logger.ErrorContext(ctx, "dashboard template failed", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *DashboardHandler) populate(r *http.Request, page *DashboardPage) error {
	ctx := r.Context()

	hospitals, err := h.service.Hospitals(ctx)
	if err != nil {
		return err
	}

	req := SelectionRequest(r.URL.Query())
	if err := h.validator.ValidateStruct(req); err != nil {
		return err
	}
	rep, err := h.service.Build(ctx, toSelection(req))
	if err != nil {
		return err
	}

	selected := make(map[string]bool, len(rep.Selection))
	for _, name := range rep.Selection {
		selected[name] = true
	}
	page.Hospitals = make([]HospitalOption, 0, len(hospitals.Sorted))
	for _, name := range hospitals.Sorted {
		page.Hospitals = append(page.Hospitals, HospitalOption{Name: name, Selected: selected[name]})
	}

	page.Report = rep
	page.Query = selectionQuery(rep.Selection)
	return nil
}

// selectionQuery encodes the resolved selection for chart and export links.
// The leading blank value keeps an empty selection explicit.
func selectionQuery(hospitals []string) template.URL {
	values := url.Values{HospitalParam: append([]string{""}, hospitals...)}
	return template.URL(values.Encode())
}

