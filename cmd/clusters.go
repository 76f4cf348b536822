package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/config"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "List candidate duplicate clusters",
	Long: `Runs the fast metadata scan and lists the candidate duplicate
clusters, optionally filtered by year, priority, camera model, file
extension or total size.

Example:
  removebadphotos clusters --year 2024 --priority P1,P2
  removebadphotos clusters --ext heic --min-bytes 10000000`,
	RunE: runClusters,
}

func init() {
	rootCmd.AddCommand(clustersCmd)

	clustersCmd.Flags().Int("year", 0, "Only clusters starting in this year")
	clustersCmd.Flags().StringSlice("priority", nil, "Only these priorities (P1..P10)")
	clustersCmd.Flags().StringSlice("camera", nil, "Only these camera models")
	clustersCmd.Flags().StringSlice("ext", nil, "Only clusters containing these extensions")
	clustersCmd.Flags().Int64("min-bytes", 0, "Minimum cluster size in bytes")
	clustersCmd.Flags().Int64("max-bytes", 0, "Maximum cluster size in bytes (0 = unbounded)")
	clustersCmd.Flags().Int("limit", 50, "Maximum number of clusters to print (0 = all)")
}

func runClusters(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	filter := catalog.Filter{
		Year:         mustGetInt(cmd, "year"),
		MinBytes:     mustGetInt64(cmd, "min-bytes"),
		MaxBytes:     mustGetInt64(cmd, "max-bytes"),
		CameraModels: mustGetStringSlice(cmd, "camera"),
		Extensions:   mustGetStringSlice(cmd, "ext"),
	}
	for _, p := range mustGetStringSlice(cmd, "priority") {
		filter.Priorities = append(filter.Priorities, catalog.Priority(p))
	}
	limit := mustGetInt(cmd, "limit")

	l, cleanup, err := newLoader(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, _, err := l.FastScan(cmd.Context(), barProgress()); err != nil {
		return err
	}
	fmt.Println()

	clusters, err := l.FilterClusters(filter)
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		fmt.Println("No clusters match the filter.")
		return nil
	}

	shown := clusters
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIORITY\tSCORE\tPHOTOS\tSTART\tCAMERA\tTOTAL\tRECLAIMABLE")
	for _, c := range shown {
		camera := c.CameraModel
		if camera == "" {
			camera = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%d\t%s\t%s\t%s\t%s\n",
			c.ID, c.Priority, c.Score, c.Count(),
			c.SpanStart.Format("2006-01-02 15:04:05"), camera,
			formatBytes(c.TotalBytes), formatBytes(c.ReclaimableBytes))
	}
	_ = w.Flush()

	if len(shown) < len(clusters) {
		fmt.Printf("\nShowing %d of %d clusters (use --limit to see more).\n", len(shown), len(clusters))
	}
	return nil
}
