// Package imaging holds the grayscale pixel metrics shared by blur triage
// and pixel-based quality scoring.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
)

// DecodeGray decodes image bytes and converts them to 8-bit grayscale
// using the BT.601 luma weights.
func DecodeGray(data []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToGray(img), nil
}

// ToGray converts any image to 8-bit grayscale.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray.SetGray(x, y, color.Gray{Y: uint8(luma + 0.5)})
		}
	}
	return gray
}

// LaplacianVariance measures local edge response: the variance of the 4-
// neighbor Laplacian over the interior pixels. Sharp images score high,
// uniform or defocused images near zero.
func LaplacianVariance(g *image.Gray) float64 {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w < 3 || h < 3 {
		return 0
	}

	n := 0
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := float64(g.GrayAt(x, y).Y)
			lap := float64(g.GrayAt(x-1, y).Y) + float64(g.GrayAt(x+1, y).Y) +
				float64(g.GrayAt(x, y-1).Y) + float64(g.GrayAt(x, y+1).Y) - 4*center
			sum += lap
			sumSq += lap * lap
			n++
		}
	}

	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// MeanBrightness returns the average gray level, 0-255.
func MeanBrightness(g *image.Gray) float64 {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum += float64(g.GrayAt(x, y).Y)
		}
	}
	return sum / float64(w*h)
}

// Histogram returns the 256-bin gray-level histogram.
func Histogram(g *image.Gray) [256]int {
	var hist [256]int
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hist[g.GrayAt(x, y).Y]++
		}
	}
	return hist
}

// PercentileRange returns the gray levels at the given low and high
// cumulative percentiles (0-1), a cheap dynamic-range estimate.
func PercentileRange(hist [256]int, low, high float64) (int, int) {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 0, 0
	}

	lowLevel, highLevel := 0, 255
	cumulative := 0
	lowFound := false
	for level, c := range hist {
		cumulative += c
		frac := float64(cumulative) / float64(total)
		if !lowFound && frac >= low {
			lowLevel = level
			lowFound = true
		}
		if frac >= high {
			highLevel = level
			break
		}
	}
	return lowLevel, highLevel
}

// NoiseStdDev estimates sensor noise as the standard deviation of the
// high-frequency residual left after a 3x3 box smoothing.
func NoiseStdDev(g *image.Gray) float64 {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	if w < 3 || h < 3 {
		return 0
	}

	n := 0
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var box float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					box += float64(g.GrayAt(x+dx, y+dy).Y)
				}
			}
			residual := float64(g.GrayAt(x, y).Y) - box/9
			sum += residual
			sumSq += residual * residual
			n++
		}
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
