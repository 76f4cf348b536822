package blur

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/config"
)

func testClassifier() *Classifier {
	return NewClassifier(config.BlurThresholds{Very: 50, Moderate: 100, Slight: 200})
}

func jpegEntry(t *testing.T, id string, img image.Image, size int64) *catalog.FullEntry {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return &catalog.FullEntry{
		LibraryEntry: catalog.LibraryEntry{ID: id, SizeBytes: size},
		Content:      buf.Bytes(),
	}
}

func flatGray(size int, level uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return img
}

func checkerboard(size int) image.Image {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestClassify(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		score float64
		want  Bucket
	}{
		{0, BucketVeryBlurry},
		{49.9, BucketVeryBlurry},
		{50, BucketBlurry},
		{99.9, BucketBlurry},
		{100, BucketSlightlyBlurry},
		{199.9, BucketSlightlyBlurry},
		{200, BucketSharp},
		{5000, BucketSharp},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, c.Classify(tc.score), "score %f", tc.score)
	}
}

func TestAnalyze_FlatVsDetailed(t *testing.T) {
	c := testClassifier()

	flat := c.Analyze(jpegEntry(t, "flat", flatGray(64, 128), 0))
	assert.Equal(t, BucketVeryBlurry, flat.Bucket)

	sharp := c.Analyze(jpegEntry(t, "sharp", checkerboard(64), 0))
	assert.Equal(t, BucketSharp, sharp.Bucket)
	assert.Greater(t, sharp.BlurScore, flat.BlurScore)
}

func TestAnalyze_UnreadableContent(t *testing.T) {
	c := testClassifier()

	result := c.Analyze(&catalog.FullEntry{
		LibraryEntry: catalog.LibraryEntry{ID: "bad", SizeBytes: 123},
		Content:      []byte("not an image"),
	})
	assert.Equal(t, BucketUnknown, result.Bucket)
	assert.Equal(t, "Analysis failed", result.Assessment)
	assert.Equal(t, int64(123), result.SizeBytes)
}

func TestAnalyze_ExposureAssessment(t *testing.T) {
	c := testClassifier()

	dark := c.Analyze(jpegEntry(t, "dark", flatGray(64, 5), 0))
	assert.Less(t, dark.ExposureScore, 20.0)
	assert.Contains(t, dark.Assessment, "Underexposed")

	// Mostly blown-out whites with a dark stripe keeps the mean high
	// while preserving enough contrast to avoid the low-contrast penalty.
	blown := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range blown.Pix {
		blown.Pix[i] = 255
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 5; x++ {
			blown.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	bright := c.Analyze(jpegEntry(t, "bright", blown, 0))
	assert.Greater(t, bright.ExposureScore, 80.0)
	assert.Contains(t, bright.Assessment, "Overexposed")

	good := c.Analyze(jpegEntry(t, "good", checkerboard(64), 0))
	assert.Equal(t, "Good quality", good.Assessment)
}

func TestAnalyzeBatch(t *testing.T) {
	c := testClassifier()

	entries := []*catalog.FullEntry{
		jpegEntry(t, "a", flatGray(64, 128), 1000),
		jpegEntry(t, "b", checkerboard(64), 2000),
		{LibraryEntry: catalog.LibraryEntry{ID: "c"}, Content: []byte("garbage")},
	}

	var reports []catalog.Progress
	results, err := c.AnalyzeBatch(context.Background(), entries, func(p catalog.Progress) {
		reports = append(reports, p)
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.NotEmpty(t, reports)
	assert.Equal(t, len(entries), reports[len(reports)-1].Current)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.AnalyzeBatch(ctx, entries, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatistics(t *testing.T) {
	results := []Result{
		{Bucket: BucketVeryBlurry, SizeBytes: 1000},
		{Bucket: BucketBlurry, SizeBytes: 2000},
		{Bucket: BucketSharp, SizeBytes: 4000},
		{Bucket: BucketSlightlyBlurry, SizeBytes: 500},
		{Bucket: BucketUnknown, SizeBytes: 100},
	}

	stats := Statistics(results)
	assert.Equal(t, 5, stats.TotalAnalyzed)
	assert.Equal(t, 2, stats.QualityIssues)
	assert.Equal(t, int64(3000), stats.ReclaimableBytes)
	assert.Equal(t, 1, stats.Failed)
	for _, b := range Buckets {
		_, ok := stats.ByBucket[b]
		assert.True(t, ok, "bucket %s missing", b)
	}
}
