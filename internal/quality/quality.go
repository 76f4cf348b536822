// Package quality scores individual photos so that the best member of a
// duplicate group can be recommended for keeping.
package quality

import (
	"image"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/config"
	"github.com/ukogan/removebadphotos/internal/imaging"
	"github.com/ukogan/removebadphotos/internal/logging"
)

const (
	maxResolutionPixels = 12_000_000 // ~12MP, beyond which more pixels stop mattering
	maxSizeBytes        = 5 * 1024 * 1024
	maxSharpness        = 1000.0
	maxNoiseStdDev      = 50.0
)

var log = logging.WithName("quality")

// Scorer computes 0-100 quality scores. Pixel-based scoring is used when
// the image bytes decode; otherwise it falls back to metadata.
type Scorer struct {
	scoring config.ScoringConfig
}

// NewScorer returns a Scorer using the given scoring weights.
func NewScorer(scoring config.ScoringConfig) *Scorer {
	return &Scorer{scoring: scoring}
}

// ScoreEntry fills in QualityScore and QualityBasis and marks the entry
// analyzed. Calling it again is a no-op.
func (s *Scorer) ScoreEntry(entry *catalog.FullEntry) {
	if entry.Analyzed {
		return
	}

	if len(entry.Content) > 0 {
		if gray, err := imaging.DecodeGray(entry.Content); err == nil {
			entry.QualityScore = s.scorePixels(entry, gray)
			entry.QualityBasis = catalog.QualityBasisPixel
			entry.Analyzed = true
			return
		} else {
			log.Debugf("falling back to metadata scoring for %s: %v", entry.ID, err)
		}
	}

	entry.QualityScore = s.ScoreMetadata(&entry.LibraryEntry)
	entry.QualityBasis = catalog.QualityBasisMetadata
	entry.Analyzed = true
}

// ScoreMetadata scores an entry from metadata alone: resolution (30),
// file size (25), container format (20) and existing organization (25).
func (s *Scorer) ScoreMetadata(entry *catalog.LibraryEntry) float64 {
	score := 30 * capRatio(float64(entry.PixelCount()), maxResolutionPixels)
	score += 25 * capRatio(float64(entry.SizeBytes), maxSizeBytes)
	score += 20 * s.scoring.FormatPreference(entry.Ext)
	score += 25 * entry.OrganizationScore / 100

	return clampScore(score)
}

// scorePixels scores from decoded pixels: sharpness (40), brightness
// centering (20), resolution (20) and noise (20).
func (s *Scorer) scorePixels(entry *catalog.FullEntry, gray *image.Gray) float64 {
	sharpness := capRatio(imaging.LaplacianVariance(gray), maxSharpness)
	noise := imaging.NoiseStdDev(gray)

	score := 40 * sharpness
	score += 20 * brightnessFactor(imaging.MeanBrightness(gray))
	score += 20 * capRatio(float64(entry.PixelCount()), maxResolutionPixels)
	score += 20 * max(0, 1-noise/maxNoiseStdDev)

	return clampScore(score)
}

// brightnessFactor rewards well-centered exposure. The 80-180 band is a
// comfortable midtone range for 8-bit luma.
func brightnessFactor(mean float64) float64 {
	switch {
	case mean >= 80 && mean <= 180:
		return 1.0
	case mean < 30 || mean > 220:
		return 0.3
	default:
		return 0.7
	}
}

// Recommend picks the entry to keep: highest quality score, ties broken by
// the most recent capture time. Returns empty for an empty group.
func Recommend(group *catalog.Group) string {
	var best *catalog.FullEntry
	for _, e := range group.Entries {
		if best == nil || e.QualityScore > best.QualityScore ||
			(e.QualityScore == best.QualityScore && e.TakenAt.After(best.TakenAt)) {
			best = e
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

func capRatio(value, limit float64) float64 {
	if value >= limit {
		return 1
	}
	if value < 0 {
		return 0
	}
	return value / limit
}

func clampScore(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
