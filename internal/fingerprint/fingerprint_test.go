package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{"identical", 0x0, 0x0, 0},
		{"completely different", 0xFFFFFFFFFFFFFFFF, 0x0, 64},
		{"one bit different", 0x1, 0x0, 1},
		{"four bits different", 0xF, 0x0, 4},
		{"half different", 0xFFFFFFFF00000000, 0x0, 32},
		{"alternating", 0xAAAAAAAAAAAAAAAA, 0x5555555555555555, 64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := HammingDistance(tc.hash1, tc.hash2)
			if result != tc.expected {
				t.Errorf("HammingDistance(%x, %x) = %d; want %d",
					tc.hash1, tc.hash2, result, tc.expected)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected float64
	}{
		{"identical", 0xDEADBEEF, 0xDEADBEEF, 100},
		{"completely different", 0xFFFFFFFFFFFFFFFF, 0x0, 0},
		{"half different", 0xFFFFFFFF00000000, 0x0, 50},
		{"16 bits different", 0xFFFF, 0x0, 75},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Similarity(tc.hash1, tc.hash2)
			if result != tc.expected {
				t.Errorf("Similarity(%x, %x) = %f; want %f",
					tc.hash1, tc.hash2, result, tc.expected)
			}
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a, b := uint64(0xDEADBEEFCAFEBABE), uint64(0x0123456789ABCDEF)
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("similarity must be symmetric")
	}
}

func TestCompute(t *testing.T) {
	img := createTestImage(100, 100, color.White)

	hash, err := Compute(encodeJPEG(img))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if len(Hex(hash)) != 16 {
		t.Errorf("Hex hash should be 16 characters, got %s", Hex(hash))
	}
}

func TestCompute_Consistency(t *testing.T) {
	// Same image bytes must produce the same hash.
	img := createTestImage(100, 100, color.RGBA{128, 128, 128, 255})
	data := encodeJPEG(img)

	hash1, err := Compute(data)
	if err != nil {
		t.Fatalf("first Compute failed: %v", err)
	}
	hash2, err := Compute(data)
	if err != nil {
		t.Fatalf("second Compute failed: %v", err)
	}

	if hash1 != hash2 {
		t.Errorf("hashes should be consistent: %s vs %s", Hex(hash1), Hex(hash2))
	}
	if Similarity(hash1, hash2) != 100 {
		t.Errorf("identical hashes should have similarity 100, got %f", Similarity(hash1, hash2))
	}
}

func TestCompute_StructuredImagesDiffer(t *testing.T) {
	// Images with different coarse structure should be far apart.
	left := image.NewRGBA(image.Rect(0, 0, 100, 100))
	right := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				left.Set(x, y, color.White)
				right.Set(x, y, color.Black)
			} else {
				left.Set(x, y, color.Black)
				right.Set(x, y, color.White)
			}
		}
	}

	hashLeft, err := Compute(encodeJPEG(left))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	hashRight, err := Compute(encodeJPEG(right))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if d := HammingDistance(hashLeft, hashRight); d < 8 {
		t.Errorf("mirrored gradients should differ, distance %d", d)
	}
}

func TestCompute_InvalidData(t *testing.T) {
	if _, err := Compute([]byte("not an image")); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
