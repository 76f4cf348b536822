package config

import "gopkg.in/yaml.v3"

// ScoringConfig carries the embedded scoring defaults: container-format
// preferences for metadata quality scoring and the blur bucket thresholds.
type ScoringConfig struct {
	Formats       map[string]float64 `yaml:"formats"`
	DefaultFormat float64            `yaml:"default_format"`
	Blur          BlurThresholds     `yaml:"blur"`
}

// BlurThresholds are the three Laplacian-variance cut points between blur
// buckets.
type BlurThresholds struct {
	Very     float64 `yaml:"very"`
	Moderate float64 `yaml:"moderate"`
	Slight   float64 `yaml:"slight"`
}

// FormatPreference returns the 0-1 preference weight for a container
// extension (lowercase, without dot).
func (s *ScoringConfig) FormatPreference(ext string) float64 {
	if w, ok := s.Formats[ext]; ok {
		return w
	}
	return s.DefaultFormat
}

func loadScoring() ScoringConfig {
	var scoring ScoringConfig
	if err := yaml.Unmarshal(scoringYAML, &scoring); err != nil {
		// Embedded file, cannot fail outside of a build error.
		panic("failed to unmarshal embedded scoring.yaml: " + err.Error())
	}
	return scoring
}
