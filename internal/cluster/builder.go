// Package cluster groups scanned entries into coarse candidate duplicate
// sets using capture time and device identity, and scores each set's
// duplicate probability.
package cluster

import (
	"fmt"
	"sort"
	"time"

	"github.com/ukogan/removebadphotos/internal/catalog"
)

// DefaultWindowSeconds is the coarse clustering time window.
const DefaultWindowSeconds = 10

// Options controls window size and the handling of entries without a
// camera model.
type Options struct {
	WindowSeconds int
	// MatchUnknownDevice makes two entries with no camera model count as
	// a device match. This mirrors burst shots from sources that strip
	// EXIF, at the cost of occasionally merging unrelated entries.
	MatchUnknownDevice bool
}

// DefaultOptions returns the reference behavior.
func DefaultOptions() Options {
	return Options{WindowSeconds: DefaultWindowSeconds, MatchUnknownDevice: true}
}

// Build sorts entries by capture time and makes a single forward pass:
// each unclustered entry seeds a cluster absorbing every later unclustered
// entry within the time window whose device matches. Entries without a
// timestamp never cluster. Only windows with at least two members become a
// Cluster.
func Build(entries []catalog.LibraryEntry, opts Options) []catalog.Cluster {
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = DefaultWindowSeconds
	}
	window := time.Duration(opts.WindowSeconds) * time.Second

	sorted := make([]catalog.LibraryEntry, 0, len(entries))
	for i := range entries {
		if !entries[i].TakenAt.IsZero() {
			sorted = append(sorted, entries[i])
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TakenAt.Before(sorted[j].TakenAt)
	})

	var clusters []catalog.Cluster
	used := make([]bool, len(sorted))

	for i := range sorted {
		if used[i] {
			continue
		}
		seed := &sorted[i]
		windowEnd := seed.TakenAt.Add(window)
		members := []*catalog.LibraryEntry{seed}

		for j := i + 1; j < len(sorted); j++ {
			candidate := &sorted[j]
			if candidate.TakenAt.After(windowEnd) {
				break // entries are sorted
			}
			if used[j] {
				continue
			}
			if deviceMatch(seed.CameraModel, candidate.CameraModel, opts.MatchUnknownDevice) {
				members = append(members, candidate)
				used[j] = true
			}
		}

		if len(members) < 2 {
			continue
		}
		used[i] = true
		clusters = append(clusters, assemble(members, len(clusters)+1))
	}
	return clusters
}

func deviceMatch(a, b string, matchUnknown bool) bool {
	if a == "" && b == "" {
		return matchUnknown
	}
	return a == b
}

func assemble(members []*catalog.LibraryEntry, ordinal int) catalog.Cluster {
	var totalBytes, largest int64
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
		totalBytes += m.SizeBytes
		if m.SizeBytes > largest {
			largest = m.SizeBytes
		}
	}

	score := Score(members)
	return catalog.Cluster{
		ID:               fmt.Sprintf("cluster_%04d", ordinal),
		EntryIDs:         ids,
		SpanStart:        members[0].TakenAt,
		SpanEnd:          members[len(members)-1].TakenAt,
		CameraModel:      members[0].CameraModel,
		TotalBytes:       totalBytes,
		ReclaimableBytes: totalBytes - largest,
		Score:            score,
		Priority:         catalog.PriorityFor(score),
		LocationSummary:  locationSummary(members),
	}
}

// SortByScore orders clusters best first: duplicate-probability score
// descending, ties broken by reclaimable bytes descending.
func SortByScore(clusters []catalog.Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Score != clusters[j].Score {
			return clusters[i].Score > clusters[j].Score
		}
		return clusters[i].ReclaimableBytes > clusters[j].ReclaimableBytes
	})
}

// PrioritySummary aggregates clusters per priority bucket.
type PrioritySummary struct {
	Clusters         int   `json:"clusters"`
	Entries          int   `json:"entries"`
	ReclaimableBytes int64 `json:"reclaimable_bytes"`
}

// Summarize counts clusters, member entries and reclaimable bytes per
// priority bucket. Every bucket is present in the result even when empty.
func Summarize(clusters []catalog.Cluster) map[catalog.Priority]PrioritySummary {
	summary := make(map[catalog.Priority]PrioritySummary, len(catalog.Priorities))
	for _, p := range catalog.Priorities {
		summary[p] = PrioritySummary{}
	}
	for i := range clusters {
		c := &clusters[i]
		s := summary[c.Priority]
		s.Clusters++
		s.Entries += c.Count()
		s.ReclaimableBytes += c.ReclaimableBytes
		summary[c.Priority] = s
	}
	return summary
}
