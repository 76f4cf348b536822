package cluster

import (
	"fmt"

	"github.com/ukogan/removebadphotos/internal/catalog"
)

const (
	mb = 1 << 20

	// locationThresholdDegrees bounds the lat/lng spread considered "the
	// same place", roughly 100 meters.
	locationThresholdDegrees = 0.001
)

// Score estimates how likely a cluster's members are duplicates of each
// other, 0-100. Weighted factors: time proximity 40, file-size magnitude
// 30 (plus aggregate-size credit), device consistency 20, location
// consistency 10. Each factor is monotonic in its signal.
func Score(members []*catalog.LibraryEntry) float64 {
	if len(members) < 2 {
		return 0
	}
	score := 0.0

	// Time proximity: mean inter-arrival gap of the sorted members.
	var gapSum, gapMax float64
	for i := 0; i < len(members)-1; i++ {
		gap := members[i+1].TakenAt.Sub(members[i].TakenAt).Seconds()
		gapSum += gap
		if gap > gapMax {
			gapMax = gap
		}
	}
	gapMean := gapSum / float64(len(members)-1)
	switch {
	case gapMean <= 5:
		score += 40
	case gapMean <= 10:
		score += 30
	case gapMax <= 60: // burst photography
		score += 20
	}

	// File-size magnitude: bigger duplicates mean bigger savings.
	var totalBytes int64
	for _, m := range members {
		totalBytes += m.SizeBytes
	}
	avgMB := float64(totalBytes) / float64(len(members)) / mb
	totalMB := float64(totalBytes) / mb
	switch {
	case avgMB > 10:
		score += 30
	case avgMB > 5:
		score += 20
	case avgMB > 2:
		score += 10
	}
	switch {
	case totalMB > 100:
		score += 15
	case totalMB > 50:
		score += 10
	}

	// Device consistency.
	models := make(map[string]struct{})
	for _, m := range members {
		if m.CameraModel != "" {
			models[m.CameraModel] = struct{}{}
		}
	}
	if len(models) <= 1 {
		score += 20
	}

	// Location consistency.
	located := locatedMembers(members)
	if len(located) >= 2 && locationsSimilar(located) {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

func locatedMembers(members []*catalog.LibraryEntry) []*catalog.LibraryEntry {
	var located []*catalog.LibraryEntry
	for _, m := range members {
		if m.HasLocation() {
			located = append(located, m)
		}
	}
	return located
}

// locationsSimilar reports whether every located member sits within the
// ~100m lat/lng envelope.
func locationsSimilar(members []*catalog.LibraryEntry) bool {
	if len(members) < 2 {
		return true
	}
	minLat, maxLat := *members[0].Lat, *members[0].Lat
	minLng, maxLng := *members[0].Lng, *members[0].Lng
	for _, m := range members[1:] {
		if *m.Lat < minLat {
			minLat = *m.Lat
		}
		if *m.Lat > maxLat {
			maxLat = *m.Lat
		}
		if *m.Lng < minLng {
			minLng = *m.Lng
		}
		if *m.Lng > maxLng {
			maxLng = *m.Lng
		}
	}
	return maxLat-minLat <= locationThresholdDegrees && maxLng-minLng <= locationThresholdDegrees
}

// locationSummary renders a short human-readable location description for
// a cluster, or empty when no member has coordinates.
func locationSummary(members []*catalog.LibraryEntry) string {
	located := locatedMembers(members)
	switch {
	case len(located) == 0:
		return ""
	case len(located) == 1:
		return "Single location"
	case locationsSimilar(located):
		return fmt.Sprintf("Same location (%d entries)", len(located))
	default:
		return fmt.Sprintf("Multiple locations (%d entries)", len(located))
	}
}
