package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ukogan/removebadphotos/internal/config"
	"github.com/ukogan/removebadphotos/internal/hashcache"
	"github.com/ukogan/removebadphotos/internal/library"
	"github.com/ukogan/removebadphotos/internal/loader"
)

var rootCmd = &cobra.Command{
	Use:   "removebadphotos",
	Short: "Find duplicate and low-quality photos in a PhotoPrism library",
	Long: `removebadphotos connects to a PhotoPrism instance, scans the library
metadata for bursts of near-identical photos, and analyzes the image
content to recommend which copy to keep and which blurry shots to remove.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newLoader builds the analysis pipeline against the configured PhotoPrism
// instance. The returned cleanup closes the session and the hash cache.
func newLoader(cfg *config.Config) (*loader.LazyLoader, func(), error) {
	pp, err := library.NewPhotoPrism(cfg.PhotoPrism.URL, cfg.PhotoPrism.Username, cfg.PhotoPrism.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PhotoPrism: %w", err)
	}

	var hashes loader.HashStore
	var cache *hashcache.Store
	if cfg.Analysis.HashCachePath != "" {
		cache, err = hashcache.Open(cfg.Analysis.HashCachePath)
		if err != nil {
			_ = pp.Logout()
			return nil, nil, err
		}
		hashes = cache
	}

	cleanup := func() {
		if cache != nil {
			_ = cache.Close()
		}
		_ = pp.Logout()
	}
	return loader.New(pp, cfg.Scoring, cfg.Analysis, hashes), cleanup, nil
}
