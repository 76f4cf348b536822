package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/cluster"
	"github.com/ukogan/removebadphotos/internal/config"
	"github.com/ukogan/removebadphotos/internal/loader"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Deep-analyze duplicate clusters and recommend keepers",
	Long: `Runs the fast scan, then downloads and perceptually hashes the photos
of the highest-priority clusters. Each cluster is subdivided into
verified duplicate groups, and the best photo of each group is
recommended for keeping based on sharpness, exposure and resolution.

Example:
  removebadphotos analyze --top 10
  removebadphotos analyze --priority P1 --top 0`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Int("top", 5, "Number of clusters to analyze, best first (0 = all)")
	analyzeCmd.Flags().StringSlice("priority", nil, "Only analyze these priorities (P1..P10)")
	analyzeCmd.Flags().Bool("show-all", false, "Print every group member, not only the recommendation")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	top := mustGetInt(cmd, "top")
	showAll := mustGetBool(cmd, "show-all")
	var filter catalog.Filter
	for _, p := range mustGetStringSlice(cmd, "priority") {
		filter.Priorities = append(filter.Priorities, catalog.Priority(p))
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

	clusters, err := l.FilterClusters(filter)
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		fmt.Println("No clusters to analyze.")
		return nil
	}
	cluster.SortByScore(clusters)
	if top > 0 && len(clusters) > top {
		clusters = clusters[:top]
	}

	var totalReclaimable int64
	analyzed := 0
	for _, c := range clusters {
		groups, err := l.AnalyzeCluster(cmd.Context(), c.ID, barProgress())
		if err != nil {
			var resErr *loader.ResolutionError
			if errors.As(err, &resErr) {
				fmt.Printf("\nSkipping %s: %v\n", c.ID, err)
				continue
			}
			return err
		}
		fmt.Println()
		analyzed++

		fmt.Printf("%s (%s, %d photos, %s total)\n",
			c.ID, c.Priority, c.Count(), formatBytes(c.TotalBytes))
		if len(groups) == 0 {
			fmt.Println("  No verified duplicates.")
			continue
		}

		for i, g := range groups {
			reclaimable := g.ReclaimableBytes()
			totalReclaimable += reclaimable
			fmt.Printf("  Group %d: %d duplicates, %s reclaimable\n",
				i+1, len(g.Entries), formatBytes(reclaimable))
			for _, e := range g.Entries {
				marker := "remove"
				if e.ID == g.RecommendedID {
					marker = "keep  "
				} else if !showAll {
					continue
				}
				fmt.Printf("    [%s] %s  quality %.0f (%s)  %s\n",
					marker, e.ID, e.QualityScore, e.QualityBasis, formatBytes(e.SizeBytes))
			}
		}
	}

	fmt.Printf("\nAnalyzed %d clusters, %s reclaimable in verified duplicates.\n",
		analyzed, formatBytes(totalReclaimable))
	return nil
}
