package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/cluster"
	"github.com/ukogan/removebadphotos/internal/config"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the library and report duplicate candidates",
	Long: `Runs the fast metadata scan: enumerates the library, groups photos
taken within seconds of each other on the same camera into candidate
duplicate clusters, and summarizes them by priority. No image content
is downloaded.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Library: %d photos, %s\n", stats.TotalEntries, formatBytes(stats.TotalBytes))
	if !stats.DateStart.IsZero() {
		fmt.Printf("Date range: %s to %s\n",
			stats.DateStart.Format("2006-01-02"), stats.DateEnd.Format("2006-01-02"))
	}
	fmt.Printf("Cameras: %d\n", len(stats.CameraModels))
	fmt.Printf("Candidate clusters: %d\n\n", len(clusters))

	printPrioritySummary(cluster.Summarize(clusters))
	return nil
}

func printPrioritySummary(summary map[catalog.Priority]cluster.PrioritySummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tCLUSTERS\tPHOTOS\tRECLAIMABLE")
	for _, p := range catalog.Priorities {
		s := summary[p]
		if s.Clusters == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", p, s.Clusters, s.Entries, formatBytes(s.ReclaimableBytes))
	}
	_ = w.Flush()
}
