// Package blur classifies photos by sharpness and exposure so obviously
// bad shots can be flagged for removal independently of duplicate groups.
package blur

import (
	"context"
	"image"
	"strings"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/config"
	"github.com/ukogan/removebadphotos/internal/imaging"
	"github.com/ukogan/removebadphotos/internal/logging"
)

// Bucket is the sharpness classification of a photo.
type Bucket string

const (
	BucketVeryBlurry     Bucket = "very-blurry"
	BucketBlurry         Bucket = "blurry"
	BucketSlightlyBlurry Bucket = "slightly-blurry"
	BucketSharp          Bucket = "sharp"
	BucketUnknown        Bucket = "unknown" // content missing or undecodable
)

// Buckets lists all classification buckets in ascending sharpness order,
// with unknown last.
var Buckets = []Bucket{
	BucketVeryBlurry, BucketBlurry, BucketSlightlyBlurry, BucketSharp, BucketUnknown,
}

var log = logging.WithName("blur")

// Result holds the sharpness and exposure analysis of one entry.
type Result struct {
	EntryID       string  `json:"entry_id"`
	Bucket        Bucket  `json:"bucket"`
	BlurScore     float64 `json:"blur_score"`     // Laplacian variance, higher = sharper
	ExposureScore float64 `json:"exposure_score"` // 0-100, 50 = ideal
	Assessment    string  `json:"assessment"`
	SizeBytes     int64   `json:"size_bytes"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
}

// Classifier buckets photos by Laplacian variance against configured
// thresholds.
type Classifier struct {
	thresholds config.BlurThresholds
}

// NewClassifier returns a Classifier using the given cut points.
func NewClassifier(thresholds config.BlurThresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// Classify maps a Laplacian variance to its bucket.
func (c *Classifier) Classify(blurScore float64) Bucket {
	switch {
	case blurScore < c.thresholds.Very:
		return BucketVeryBlurry
	case blurScore < c.thresholds.Moderate:
		return BucketBlurry
	case blurScore < c.thresholds.Slight:
		return BucketSlightlyBlurry
	default:
		return BucketSharp
	}
}

// Analyze inspects a single entry. Unreadable content yields a Result in
// the unknown bucket; Analyze never fails.
func (c *Classifier) Analyze(entry *catalog.FullEntry) Result {
	result := Result{
		EntryID:   entry.ID,
		SizeBytes: entry.SizeBytes,
		Width:     entry.Width,
		Height:    entry.Height,
	}

	gray, err := imaging.DecodeGray(entry.Content)
	if err != nil {
		log.Debugf("could not decode entry %s: %v", entry.ID, err)
		result.Bucket = BucketUnknown
		result.Assessment = "Analysis failed"
		return result
	}

	result.BlurScore = imaging.LaplacianVariance(gray)
	result.ExposureScore = exposureScore(gray)
	result.Bucket = c.Classify(result.BlurScore)
	result.Assessment = assess(result.Bucket, result.ExposureScore)

	return result
}

// AnalyzeBatch analyzes entries sequentially, reporting progress every 50
// photos and once on completion.
func (c *Classifier) AnalyzeBatch(ctx context.Context, entries []*catalog.FullEntry, progress catalog.ProgressFunc) ([]Result, error) {
	results := make([]Result, 0, len(entries))
	failed := 0

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i%50 == 0 {
			progress.Report("blur", i, len(entries), "")
		}

		result := c.Analyze(entry)
		if result.Bucket == BucketUnknown {
			failed++
		}
		results = append(results, result)
	}

	progress.Report("blur", len(entries), len(entries), "complete")
	if failed > 0 {
		log.Warnf("blur analysis could not decode %d of %d photos", failed, len(entries))
	}
	return results, nil
}

// Stats aggregates a batch of blur results.
type Stats struct {
	TotalAnalyzed    int            `json:"total_analyzed"`
	ByBucket         map[Bucket]int `json:"by_bucket"`
	QualityIssues    int            `json:"quality_issues"` // very-blurry + blurry
	ReclaimableBytes int64          `json:"reclaimable_bytes"`
	Failed           int            `json:"failed"`
}

// Statistics summarizes results. ReclaimableBytes counts the bytes of
// photos in the two worst buckets, the candidates for removal.
func Statistics(results []Result) Stats {
	stats := Stats{
		TotalAnalyzed: len(results),
		ByBucket:      make(map[Bucket]int, len(Buckets)),
	}
	for _, b := range Buckets {
		stats.ByBucket[b] = 0
	}

	for _, r := range results {
		stats.ByBucket[r.Bucket]++
		switch r.Bucket {
		case BucketVeryBlurry, BucketBlurry:
			stats.QualityIssues++
			stats.ReclaimableBytes += r.SizeBytes
		case BucketUnknown:
			stats.Failed++
		}
	}
	return stats
}

// exposureScore rates exposure on a 0-100 scale where 50 is ideal. Very
// dark or bright means pull toward 0 or 100, and the 5th-95th percentile
// spread adjusts for contrast.
func exposureScore(gray *image.Gray) float64 {
	mean := imaging.MeanBrightness(gray)

	var score float64
	switch {
	case mean < 30: // underexposed
		score = (mean / 30) * 25
	case mean > 225: // overexposed
		score = 100 - ((mean-225)/30)*25
	default:
		score = 50
	}

	hist := imaging.Histogram(gray)
	p5, p95 := imaging.PercentileRange(hist, 0.05, 0.95)
	switch spread := float64(p95 - p5); {
	case spread < 50: // low contrast
		score *= 0.7
	case spread > 200: // good contrast
		score = min(score*1.1, 100)
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func assess(bucket Bucket, exposure float64) string {
	var issues []string

	switch bucket {
	case BucketVeryBlurry:
		issues = append(issues, "Very blurry")
	case BucketBlurry:
		issues = append(issues, "Blurry")
	case BucketSlightlyBlurry:
		issues = append(issues, "Slightly blurry")
	}

	if exposure < 20 {
		issues = append(issues, "Underexposed")
	} else if exposure > 80 {
		issues = append(issues, "Overexposed")
	}

	if len(issues) == 0 {
		return "Good quality"
	}
	return strings.Join(issues, ", ")
}
