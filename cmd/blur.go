package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ukogan/removebadphotos/internal/blur"
	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/cluster"
	"github.com/ukogan/removebadphotos/internal/config"
)

var blurCmd = &cobra.Command{
	Use:   "blur",
	Short: "Find blurry and badly exposed photos",
	Long: `Downloads the photos of candidate duplicate clusters and classifies
each by sharpness (Laplacian variance) and exposure. Very blurry and
blurry photos are counted as removal candidates.

Example:
  removebadphotos blur --top 20
  removebadphotos blur --show very-blurry`,
	RunE: runBlur,
}

func init() {
	rootCmd.AddCommand(blurCmd)

	blurCmd.Flags().Int("top", 10, "Number of clusters to analyze, best first (0 = all)")
	blurCmd.Flags().StringSlice("show", nil, "Print individual photos in these buckets")
}

func runBlur(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	top := mustGetInt(cmd, "top")
	show := map[blur.Bucket]bool{}
	for _, b := range mustGetStringSlice(cmd, "show") {
		show[blur.Bucket(b)] = true
	}

	l, cleanup, err := newLoader(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, _, err := l.FastScan(cmd.Context(), barProgress()); err != nil {
		return err
	}
	fmt.Println()

	clusters, err := l.Clusters()
	if err != nil {
		return err
	}
	cluster.SortByScore(clusters)
	if top > 0 && len(clusters) > top {
		clusters = clusters[:top]
	}

	var entries []*catalog.FullEntry
	for _, c := range clusters {
		loaded, err := l.LoadCluster(cmd.Context(), c.ID, barProgress())
		if err != nil {
			fmt.Printf("\nSkipping %s: %v\n", c.ID, err)
			continue
		}
		entries = append(entries, loaded...)
	}
	fmt.Println()
	if len(entries) == 0 {
		fmt.Println("No photos to analyze.")
		return nil
	}

	classifier := blur.NewClassifier(cfg.Scoring.Blur)
	results, err := classifier.AnalyzeBatch(cmd.Context(), entries, barProgress())
	if err != nil {
		return err
	}
	fmt.Println()

	stats := blur.Statistics(results)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tPHOTOS")
	for _, b := range blur.Buckets {
		fmt.Fprintf(w, "%s\t%d\n", b, stats.ByBucket[b])
	}
	_ = w.Flush()

	fmt.Printf("\nQuality issues: %d photos, %s reclaimable if removed.\n",
		stats.QualityIssues, formatBytes(stats.ReclaimableBytes))
	if stats.Failed > 0 {
		fmt.Printf("Could not analyze %d photos.\n", stats.Failed)
	}

	if len(show) > 0 {
		fmt.Println()
		for _, r := range results {
			if show[r.Bucket] {
				fmt.Printf("%s  %s  blur %.0f  exposure %.0f  %s\n",
					r.EntryID, r.Bucket, r.BlurScore, r.ExposureScore, r.Assessment)
			}
		}
	}
	return nil
}
