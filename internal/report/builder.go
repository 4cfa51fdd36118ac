package report

import (
	"log/slog"
	"time"

	"casepulse/pkg/contracts/domain"
)

// Dataset is the read side of a loaded dataset that reports are built from.
type Dataset interface {
	HospitalSource
	Subset(hospital string) []domain.CaseRecord
	Source() domain.SourceInfo
}

// Builder renders selections of a dataset into reports.
type Builder struct {
	logger *slog.Logger
	now    func() time.Time
}

// BuilderConfig holds optional Builder settings.
type BuilderConfig struct {
	// Clock overrides time.Now for GeneratedAt.
	Clock func() time.Time
}

// NewBuilder creates a Builder.
func NewBuilder(logger *slog.Logger, config BuilderConfig) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Builder{
		logger: logger.With(slog.String("component", "report_builder")),
		now:    config.Clock,
	}
}

// Build produces the report for hospitals, in the given order. Each hospital
// contributes one section, one trend series and one gender panel; names not in
// the dataset produce empty ones.
func (b *Builder) Build(ds Dataset, hospitals []string) *domain.Report {
	rep := &domain.Report{
		GeneratedAt: b.now().UTC(),
		Source:      ds.Source(),
		Selection:   append([]string{}, hospitals...),
		Sections:    make([]domain.HospitalSection, 0, len(hospitals)),
		Trend: domain.TrendChart{
			Title:  domain.TrendTitle,
			XLabel: domain.TrendXLabel,
			YLabel: domain.TrendYLabel,
			Series: make([]domain.TrendSeries, 0, len(hospitals)),
		},
		Gender: domain.GenderChart{
			Title:  domain.GenderTitle,
			XLabel: domain.GenderXLabel,
			YLabel: domain.GenderYLabel,
			Panels: make([]domain.GenderPanel, 0, len(hospitals)),
		},
	}

	for _, hospital := range hospitals {
		subset := ds.Subset(hospital)
		if len(subset) == 0 {
			b.logger.Debug("selected hospital has no rows", slog.String("hospital", hospital))
		}

		rep.Sections = append(rep.Sections, domain.HospitalSection{
			Hospital:    hospital,
			Metrics:     ComputeMetrics(subset),
			Leaderboard: ComputeLeaderboard(subset),
		})
		rep.Trend.Series = append(rep.Trend.Series, domain.TrendSeries{
			Hospital: hospital,
			Points:   ComputeTrend(subset),
		})
		rep.Gender.Panels = append(rep.Gender.Panels, domain.GenderPanel{
			Hospital: hospital,
			Counts:   ComputeGenderCounts(subset),
		})
	}

	b.logger.Debug("report built",
		slog.Int("hospitals", len(hospitals)),
		slog.Int("rows", rep.Source.Rows))

	return rep
}
