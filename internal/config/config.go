package config

import (
	_ "embed"
	"os"
	"strconv"
)

//go:embed scoring.yaml
var scoringYAML []byte

type Config struct {
	PhotoPrism PhotoPrismConfig
	Analysis   AnalysisConfig
	Scoring    ScoringConfig
}

type PhotoPrismConfig struct {
	URL      string
	Username string
	Password string
}

// AnalysisConfig tunes the clustering and deep-analysis pipeline.
type AnalysisConfig struct {
	WindowSeconds       int     // coarse clustering time window (default 10)
	SimilarityThreshold float64 // percent, for perceptual refinement (default 70)
	Workers             int     // decode/hash/score worker pool size (default 4)
	MatchUnknownDevice  bool    // treat two missing camera models as a match
	HashCachePath       string  // sqlite perceptual-hash cache, empty disables
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean, defaulting when unset
// or unparsable.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		PhotoPrism: PhotoPrismConfig{
			URL:      os.Getenv("PHOTOPRISM_URL"),
			Username: os.Getenv("PHOTOPRISM_USERNAME"),
			Password: os.Getenv("PHOTOPRISM_PASSWORD"),
		},
		Analysis: AnalysisConfig{
			WindowSeconds:       envInt("ANALYSIS_WINDOW_SECONDS", 10),
			SimilarityThreshold: envFloat("ANALYSIS_SIMILARITY_THRESHOLD", 70),
			Workers:             envInt("ANALYSIS_WORKERS", 4),
			MatchUnknownDevice:  envBool("ANALYSIS_MATCH_UNKNOWN_DEVICE", true),
			HashCachePath:       os.Getenv("HASH_CACHE_PATH"),
		},
		Scoring: loadScoring(),
	}
}
