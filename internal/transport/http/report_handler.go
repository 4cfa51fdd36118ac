package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "casepulse/internal/errors"
	mw "casepulse/internal/middleware"
	"casepulse/internal/report"
	"casepulse/internal/services"
	v1 "casepulse/pkg/contracts/api/v1"
)

// HospitalParam is the repeated query parameter naming selected hospitals.
const HospitalParam = "hospital"

// ReportHandler serves the report JSON API, chart images and exports
type ReportHandler struct {
	service      ReportServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes, mounted under /api
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/hospitals", h.GetHospitals)

	r.Route("/report", func(r chi.Router) {
		r.Get("/", h.GetReport)
		r.Get("/charts/{chart}.{format}", h.GetChart)
		r.Get("/export.xlsx", h.ExportWorkbook)
		r.Get("/leaderboard.csv", h.ExportLeaderboard)
	})

	r.With(mw.AuditLog(h.logger)).Post("/dataset/reload", h.ReloadDataset)

	return r
}

// SelectionRequest reads the hospital selection from a query string.
// The parameter being present at all, even empty, makes the selection
// explicit.
func SelectionRequest(q url.Values) v1.ReportRequest {
	values, ok := q[HospitalParam]
	return v1.ReportRequest{Hospitals: values, Explicit: ok}
}

// parseSelection validates the query selection
func (h *ReportHandler) parseSelection(r *http.Request) (report.Selection, error) {
	req := SelectionRequest(r.URL.Query())
	if err := h.validator.ValidateStruct(req); err != nil {
		return report.Selection{}, err
	}
	return toSelection(req), nil
}

func toSelection(req v1.ReportRequest) report.Selection {
	return report.Selection{Hospitals: req.Hospitals, Explicit: req.Explicit}
}

// GetHospitals handles GET /api/hospitals
func (h *ReportHandler) GetHospitals(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Hospitals(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// GetReport handles GET /api/report
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	sel, err := h.parseSelection(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rep, err := h.service.Build(r.Context(), sel)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "report served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("hospitals", len(rep.Selection)))

	render.JSON(w, r, v1.ReportResponse{Status: "success", Data: rep})
}

// GetChart handles GET /api/report/charts/{chart}.{format}
func (h *ReportHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	req := v1.ChartRequest{
		ReportRequest: SelectionRequest(r.URL.Query()),
		Chart:         chi.URLParam(r, "chart"),
		Format:        chi.URLParam(r, "format"),
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	img, err := h.service.RenderChart(r.Context(), toSelection(req.ReportRequest), req.Chart, req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write chart",
			slog.String("chart", req.Chart),
			slog.String("error", err.Error()))
	}
}

// ExportWorkbook handles GET /api/report/export.xlsx
func (h *ReportHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, services.ExportXLSX)
}

// ExportLeaderboard handles GET /api/report/leaderboard.csv
func (h *ReportHandler) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, services.ExportCSV)
}

func (h *ReportHandler) export(w http.ResponseWriter, r *http.Request, format string) {
	sel, err := h.parseSelection(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	file, err := h.service.Export(r.Context(), sel, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export",
			slog.String("format", format),
			slog.String("error", err.Error()))
	}
}

// ReloadDataset handles POST /api/dataset/reload
func (h *ReportHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}
