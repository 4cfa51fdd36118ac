package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"casepulse/internal/charts"
	"casepulse/internal/config"
	"casepulse/internal/dataset"
	"casepulse/internal/exporter"
	"casepulse/internal/infrastructure"
	"casepulse/internal/report"
	"casepulse/internal/services"
	"casepulse/pkg/contracts"
	"casepulse/pkg/contracts/domain"
)

var (
	cfgFile     string
	datasetPath string
	logLevel    string

	hospitals   []string
	noHospitals bool
	format      string
	outPath     string
	chartsDir   string
)

var rootCmd = &cobra.Command{
	Use:   "casepulse-report",
	Short: "Build hospital billing reports from a case CSV",
	Long: `casepulse-report reads a case CSV and writes per-hospital metrics, doctor
leaderboards and the monthly trend as JSON, an xlsx workbook or a leaderboard CSV.
Without --hospital the first two hospitals of the file are reported.`,
	Version:      contracts.GetVersionInfo().String(),
	SilenceUsage: true,
	RunE:         runReport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CASEPULSE_CONFIG_FILE or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&datasetPath, "file", "", "case CSV (default is dataset.path from the config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.Flags().StringArrayVar(&hospitals, "hospital", nil, "hospital to report on, repeatable")
	rootCmd.Flags().BoolVar(&noHospitals, "none", false, "select no hospitals")
	rootCmd.Flags().StringVar(&format, "format", "json", "output format: json, xlsx or csv")
	rootCmd.Flags().StringVar(&outPath, "out", "", "output file, relative to paths.export_dir (default is stdout)")
	rootCmd.Flags().StringVar(&chartsDir, "charts", "", "directory to write trend.png and gender.png to")
	rootCmd.MarkFlagsMutuallyExclusive("hospital", "none")
}

// loadConfig loads the configuration, honoring --config and --file
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if datasetPath != "" {
		cfg.Dataset.Path = datasetPath
	}
	return cfg, nil
}

func newReportService(cfg *config.Config, logger *slog.Logger) *services.ReportService {
	return services.NewReportService(services.ReportServiceConfig{
		DatasetPath:          cfg.Dataset.Path,
		DefaultSelectionSize: cfg.Report.DefaultSelectionSize,
		MaxHospitals:         cfg.Report.MaxHospitals,
		ChartOptions:         charts.OptionsInches(cfg.Report.ChartWidth, cfg.Report.ChartHeight),
	}, dataset.NewCache(dataset.Load, logger), nil, logger)
}

// selection maps --hospital and --none onto a report selection
func selection() report.Selection {
	if noHospitals {
		return report.Explicitly()
	}
	if len(hospitals) > 0 {
		return report.Explicitly(hospitals...)
	}
	return report.Selection{}
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := infrastructure.NewLogger(cmd.ErrOrStderr(), logLevel)
	svc := newReportService(cfg, logger)

	rep, err := svc.Build(cmd.Context(), selection())
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}

	if err := writeReport(cmd, cfg, rep); err != nil {
		return err
	}

	if chartsDir != "" {
		opts := charts.OptionsInches(cfg.Report.ChartWidth, cfg.Report.ChartHeight)
		written, err := writeCharts(rep, chartsDir, opts)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
		}
	}

	printSummary(cmd.ErrOrStderr(), rep)
	return nil
}

// writeReport writes rep in the --format encoding to --out or stdout
func writeReport(cmd *cobra.Command, cfg *config.Config, rep *domain.Report) error {
	f := strings.ToLower(strings.TrimSpace(format))

	if outPath == "" {
		w := cmd.OutOrStdout()
		switch f {
		case "json":
			return writeJSON(w, rep)
		case services.ExportXLSX:
			return exporter.WriteWorkbook(w, rep)
		case services.ExportCSV:
			return exporter.WriteLeaderboardCSV(w, rep, false)
		default:
			return fmt.Errorf("unsupported format %q (want json, xlsx or csv)", format)
		}
	}

	path := cfg.Paths.GetExportPath(outPath)
	var err error
	switch f {
	case "json":
		err = createFile(path, func(w io.Writer) error { return writeJSON(w, rep) })
	case services.ExportXLSX:
		err = createFile(path, func(w io.Writer) error { return exporter.WriteWorkbook(w, rep) })
	case services.ExportCSV:
		err = exporter.NewCSVWriter(cfg.Paths).WriteLeaderboard(outPath, rep)
	default:
		return fmt.Errorf("unsupported format %q (want json, xlsx or csv)", format)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}

func writeJSON(w io.Writer, rep *domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// writeCharts draws trend.png and, when hospitals are selected, gender.png
func writeCharts(rep *domain.Report, dir string, opts charts.Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating charts directory: %w", err)
	}

	var written []string
	trend := filepath.Join(dir, "trend.png")
	if err := createFile(trend, func(w io.Writer) error {
		return charts.RenderTrend(w, rep.Trend, "png", opts)
	}); err != nil {
		return nil, fmt.Errorf("rendering trend chart: %w", err)
	}
	written = append(written, trend)

	if rep.IsEmpty() {
		return written, nil
	}

	gender := filepath.Join(dir, "gender.png")
	err := createFile(gender, func(w io.Writer) error {
		return charts.RenderGender(w, rep.Gender, "png", opts)
	})
	switch {
	case errors.Is(err, charts.ErrNoPanels):
		_ = os.Remove(gender)
	case err != nil:
		return nil, fmt.Errorf("rendering gender chart: %w", err)
	default:
		written = append(written, gender)
	}
	return written, nil
}

// createFile creates path and its parent directory and fills it with fn
func createFile(path string, fn func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
