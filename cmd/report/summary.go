package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"casepulse/pkg/contracts/domain"
)

// printSummary writes a short human-readable digest of rep
func printSummary(w io.Writer, rep *domain.Report) {
	src := rep.Source
	fmt.Fprintf(w, "\nSource: %s (%s rows, modified %s)\n",
		filepath.Base(src.Path), humanize.Comma(int64(src.Rows)), humanize.Time(src.ModTime))

	if rep.IsEmpty() {
		fmt.Fprintln(w, "No hospitals selected")
		return
	}

	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "%-28s  %8s  %16s  %12s\n", "Hospital", "Cases", "Avg Difference", "Avg Duration")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, section := range rep.Sections {
		m := section.Metrics
		fmt.Fprintf(w, "%-28s  %8s  %16s  %12s\n",
			section.Hospital,
			humanize.Comma(int64(m.CaseCount)),
			money(m.AverageDifference),
			amount(m.AverageServiceDuration))
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))

	for _, section := range rep.Sections {
		if len(section.Leaderboard) == 0 {
			continue
		}
		top := section.Leaderboard[0]
		fmt.Fprintf(w, "Top doctor at %s: %s (%s cases, $%s)\n",
			section.Hospital, top.Doctor,
			humanize.Comma(int64(top.CaseCount)),
			humanize.FormatFloat("#,###.##", top.TotalDifference))
	}
}

func money(o domain.Optional) string {
	if !o.Valid {
		return "n/a"
	}
	return "$" + humanize.FormatFloat("#,###.##", o.Value)
}

func amount(o domain.Optional) string {
	if !o.Valid {
		return "n/a"
	}
	return humanize.FormatFloat("#,###.##", o.Value)
}
