package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"casepulse/internal/infrastructure"
)

var hospitalsSorted bool

var hospitalsCmd = &cobra.Command{
	Use:   "hospitals",
	Short: "List the hospitals in the case file",
	Long: `Lists every hospital with its case count, in the order the hospitals first
appear in the file. Hospitals in the default selection are marked with *.`,
	Args: cobra.NoArgs,
	RunE: runHospitals,
}

func init() {
	hospitalsCmd.Flags().BoolVar(&hospitalsSorted, "sorted", false, "sort alphabetically instead of file order")
	rootCmd.AddCommand(hospitalsCmd)
}

func runHospitals(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc := newReportService(cfg, infrastructure.NewLogger(cmd.ErrOrStderr(), logLevel))

	resp, err := svc.Hospitals(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	ds, err := svc.Dataset(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	names := resp.Discovery
	if hospitalsSorted {
		names = resp.Sorted
	}
	defaults := make(map[string]bool, len(resp.DefaultSelection))
	for _, name := range resp.DefaultSelection {
		defaults[name] = true
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No hospitals found")
		return nil
	}

	fmt.Fprintf(out, "%-2s%-36s  %8s\n", "", "Hospital", "Cases")
	for _, name := range names {
		mark := ""
		if defaults[name] {
			mark = "*"
		}
		fmt.Fprintf(out, "%-2s%-36s  %8s\n", mark, name, humanize.Comma(int64(len(ds.Subset(name)))))
	}
	fmt.Fprintf(out, "\n%d hospitals, %s cases\n", len(names), humanize.Comma(int64(ds.Len())))
	return nil
}
