// Package similarity subdivides coarse clusters into pixel-verified
// duplicate groups using perceptual hashes.
package similarity

import (
	"context"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/fingerprint"
	"github.com/ukogan/removebadphotos/internal/logging"
)

// DefaultThreshold is the minimum similarity (percent) for two entries to
// land in the same group.
const DefaultThreshold = 70.0

var log = logging.WithName("similarity")

// EnsureHash computes and memoizes the perceptual hash of an entry. Entries
// without content or with undecodable content end up with HasHash false;
// the hash is never recomputed once HasHash is set.
func EnsureHash(entry *catalog.FullEntry) {
	if entry.HasHash {
		return
	}
	if len(entry.Content) == 0 {
		return
	}

	hash, err := fingerprint.Compute(entry.Content)
	if err != nil {
		log.Debugf("could not hash entry %s: %v", entry.ID, err)
		return
	}

	entry.PHash = hash
	entry.HasHash = true
}

// Refine partitions entries into groups of near-identical photos. Each
// hashed entry seeds a group and absorbs every later unassigned entry whose
// similarity to the seed reaches thresholdPct. Entries whose content could
// not be hashed are collected into a single trailing group. Groups with
// fewer than two members are discarded.
func Refine(ctx context.Context, entries []*catalog.FullEntry, thresholdPct float64, progress catalog.ProgressFunc) ([]catalog.Group, error) {
	if thresholdPct <= 0 {
		thresholdPct = DefaultThreshold
	}

	var groups []catalog.Group
	var unhashed []*catalog.FullEntry
	assigned := make([]bool, len(entries))

	for i, seed := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Report("comparing", i+1, len(entries), "")

		if assigned[i] {
			continue
		}
		if !seed.HasHash {
			assigned[i] = true
			unhashed = append(unhashed, seed)
			continue
		}

		members := []*catalog.FullEntry{seed}
		assigned[i] = true
		for j := i + 1; j < len(entries); j++ {
			if assigned[j] || !entries[j].HasHash {
				continue
			}
			if fingerprint.Similarity(seed.PHash, entries[j].PHash) >= thresholdPct {
				members = append(members, entries[j])
				assigned[j] = true
			}
		}

		if len(members) >= 2 {
			groups = append(groups, catalog.Group{Entries: members})
		}
	}

	// Entries we could not fingerprint may still be duplicates; keep them
	// together so the caller can surface them for manual review.
	if len(unhashed) >= 2 {
		groups = append(groups, catalog.Group{Entries: unhashed})
	}

	return groups, nil
}
