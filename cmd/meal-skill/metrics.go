package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"meal-skill/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show recent intent usage and process health",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, r *runtime, _ []string) error {
		days, _ := cmd.Flags().GetInt("days")
		usage, err := r.metrics.GetDailyUsage(cmd.Context(), days)
		if err != nil {
			return err
		}
		counts, err := r.metrics.IntentCounts(cmd.Context(), days)
		if err != nil {
			return err
		}
		printMetrics(cmd.OutOrStdout(), usage, counts, metrics.GetSysHealth(r.cfg.DataDir))
		return nil
	}),
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old metric records",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, r *runtime, _ []string) error {
		days, _ := cmd.Flags().GetInt("days")
		affected, err := r.metrics.Cleanup(cmd.Context(), days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
		return nil
	}),
}

func printMetrics(w io.Writer, usage []metrics.DailyUsage, counts map[string]int, health metrics.SysHealth) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tINTENTS\tFAILED\tDECLINED\tAVG LATENCY")
	for _, d := range usage {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.0fms\n", d.Date, d.Executions, d.Failures, d.Declined, d.AvgLatencyMS)
	}
	tw.Flush()

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "%-12s %d\n", name, counts[name])
	}

	fmt.Fprintf(w, "\nRAM: %dMB (Alloc) / %dMB (Sys)  Goroutines: %d  Disk Data: %s\n",
		health.AllocMB, health.SysMB, health.Goroutines, health.DataDiskSize)
}

func init() {
	metricsCmd.Flags().Int("days", 7, "Report the last N days")
	metricsCleanupCmd.Flags().Int("days", 30, "Keep records for the last N days")

	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(metricsCleanupCmd)
}
