package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ukogan/removebadphotos/internal/cluster"
	"github.com/ukogan/removebadphotos/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Long: `Runs the fast metadata scan and prints overall library statistics:
photo and byte counts, date range, camera models, and the duplicate
cluster summary by priority.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	l, cleanup, err := newLoader(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, clusters, err := l.FastScan(cmd.Context(), barProgress())
	if err != nil {
		return err
	}
	fmt.Println()

	fmt.Printf("Photos:      %d\n", stats.TotalEntries)
	fmt.Printf("Total size:  %s\n", formatBytes(stats.TotalBytes))
	if !stats.DateStart.IsZero() {
		fmt.Printf("Date range:  %s to %s\n",
			stats.DateStart.Format("2006-01-02"), stats.DateEnd.Format("2006-01-02"))
	}
	fmt.Printf("Locations:   %v\n", stats.HasLocation)
	fmt.Printf("Cameras:     %d\n", len(stats.CameraModels))
	for _, model := range stats.CameraModels {
		fmt.Printf("  %s\n", model)
	}

	fmt.Printf("\nCandidate duplicate clusters: %d\n", len(clusters))
	printPrioritySummary(cluster.Summarize(clusters))

	info := l.CacheInfo()
	fmt.Printf("\nScan id: %s\n", info.ScanID)
	return nil
}
