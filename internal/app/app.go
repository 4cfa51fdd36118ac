package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"casepulse/internal/charts"
	"casepulse/internal/config"
	"casepulse/internal/dataset"
	apierrors "casepulse/internal/errors"
	"casepulse/internal/infrastructure"
	customMiddleware "casepulse/internal/middleware"
	"casepulse/internal/report"
	"casepulse/internal/services"
	handlers "casepulse/internal/transport/http"
	ws "casepulse/internal/websocket"
	"casepulse/pkg/contracts"
)

// AppName is logged at startup.
const AppName = "casepulse - hospital case dashboard"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	DatasetCache  *dataset.Cache
	Watcher       *dataset.Watcher // nil when watching is disabled
	WebSocketHub  *ws.Hub
	ReportService *services.ReportService
	HealthService *services.HealthService
	ErrorHandler  *apierrors.ErrorHandler
}

// NewApplication loads configuration, initializes the global logger and
// builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.Any("build", contracts.GetVersionInfo()),
		slog.String("dataset", cfg.Dataset.Path))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, contracts.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices wires the dataset cache, websocket hub, report and
// health services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateDashboardMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create dashboard metrics: %w", err)
	}
	a.Metrics = metrics

	a.DatasetCache = dataset.NewCache(services.InstrumentedLoader(metrics), a.Logger)
	a.WebSocketHub = ws.NewHub(a.Config.WebSocket, metrics, a.Logger)

	builder := report.NewBuilder(a.Logger, report.BuilderConfig{})
	a.ReportService = services.NewReportService(
		services.ReportServiceConfig{
			DatasetPath:          a.Config.Dataset.Path,
			DefaultSelectionSize: a.Config.Report.DefaultSelectionSize,
			MaxHospitals:         a.Config.Report.MaxHospitals,
			ChartOptions:         charts.OptionsInches(a.Config.Report.ChartWidth, a.Config.Report.ChartHeight),
		},
		a.DatasetCache,
		builder,
		a.Logger,
		services.WithTracer(a.OTelProviders.Tracer),
		services.WithMetrics(metrics),
		services.WithNotifier(a.WebSocketHub),
	)

	if a.Config.Dataset.Watch {
		watcher, err := dataset.NewWatcher(a.Config.Dataset.Path, a.DatasetCache, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create dataset watcher: %w", err)
		}
		watcher.OnChange(a.ReportService.HandleFileChange)
		a.Watcher = watcher
	}

	a.HealthService = services.NewHealthService(
		services.BuildInfo{
			Version:   contracts.Version,
			BuildTime: contracts.BuildTime,
			GitCommit: contracts.GitCommit,
		},
		a.ReportService,
		a.WebSocketHub,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router. The websocket endpoint sits
// outside the main group so its ResponseWriter stays hijackable; it only
// gets panic recovery.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Must be set before any Mount so subrouters inherit them
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(apierrors.RecoveryMiddleware(a.ErrorHandler)).Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.Security.AllowedOrigins, a.Logger))

	validator := customMiddleware.NewValidator(a.Logger)
	reportHandler := handlers.NewReportHandler(a.ReportService, validator, a.Logger, a.ErrorHandler)
	dashboard := handlers.NewDashboardHandler(a.ReportService, validator, a.Logger, a.ErrorHandler, a.Watcher != nil)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	clientLogHandler := handlers.NewClientLogHandler(a.Logger)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → Errors → OTel → Security → CORS → RateLimit → Timeout
		r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(customMiddleware.Compress(5))

		r.Method(http.MethodGet, "/", dashboard)

		r.Route("/api", func(r chi.Router) {
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
			r.Post("/client-log", clientLogHandler.Handle)
			r.Mount("/", reportHandler.Routes())
		})
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run listens on the configured address and serves until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server, websocket hub and dataset watcher on ln until
// ctx is cancelled or one of them fails, then shuts everything down
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.WebSocketHub.Run(gctx)
	})

	if a.Watcher != nil {
		g.Go(func() error {
			// Live reload is optional; the dashboard keeps serving without it
			if err := a.Watcher.Run(gctx); err != nil {
				infrastructure.WithError(a.Logger, err).WarnContext(gctx, "dataset watcher disabled")
			}
			return nil
		})
	}

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	a.warmDataset(gctx)

	return g.Wait()
}

// warmDataset loads the dataset once at startup so the first dashboard
// request does not pay for it. Failures are logged; readiness reports them.
func (a *Application) warmDataset(ctx context.Context) {
	ds, err := a.ReportService.Dataset(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "dataset not loaded at startup",
			slog.String("path", a.Config.Dataset.Path),
			slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.Int("rows", ds.Len()),
		slog.Int("hospitals", len(ds.Hospitals())))
}

// Stop gracefully stops the HTTP server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}
