// Package scanner performs the fast, metadata-only pass over the whole
// collection. It never decodes image content.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/library"
	"github.com/ukogan/removebadphotos/internal/logging"
)

// progressEvery controls how often Scan reports enumeration progress.
const progressEvery = 500

// Scanner extracts lightweight metadata for every entry of the backing
// collection and computes per-entry organization scores.
type Scanner struct {
	provider library.Provider
	log      *logrus.Entry
}

func New(provider library.Provider) *Scanner {
	return &Scanner{
		provider: provider,
		log:      logging.WithName("scanner"),
	}
}

// Scan enumerates the full collection and converts each asset into a
// LibraryEntry. Individual extraction failures are logged and skipped; the
// scan only aborts on enumeration failure or cancellation.
func (s *Scanner) Scan(ctx context.Context, progress catalog.ProgressFunc) (catalog.LibraryStats, []catalog.LibraryEntry, error) {
	start := time.Now()

	assets, err := s.provider.EnumerateAll(ctx, library.EnumerateOptions{
		ExcludeTrashed: true,
		ExcludeVideo:   true,
	})
	if err != nil {
		return catalog.LibraryStats{}, nil, fmt.Errorf("could not enumerate collection: %w", err)
	}

	entries := make([]catalog.LibraryEntry, 0, len(assets))
	skipped := 0

	for i := range assets {
		if err := ctx.Err(); err != nil {
			return catalog.LibraryStats{}, nil, err
		}
		if i%progressEvery == 0 {
			progress.Report("scanning", i, len(assets), "")
		}

		entry, err := entryFromAsset(&assets[i])
		if err != nil {
			s.log.WithField("id", assets[i].ID).WithError(err).Warn("skipping entry")
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	progress.Report("scanning", len(assets), len(assets), "scan complete")

	stats := buildStats(entries)
	s.log.WithFields(logrus.Fields{
		"entries": len(entries),
		"skipped": skipped,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("metadata scan finished")

	return stats, entries, nil
}

// entryFromAsset converts a backing asset into a LibraryEntry. Missing
// fields get explicit defaults instead of failing; only an unusable
// identity is an error.
func entryFromAsset(a *library.Asset) (catalog.LibraryEntry, error) {
	if a.ID == "" {
		return catalog.LibraryEntry{}, fmt.Errorf("asset has no id")
	}

	folders := meaningfulFolders(a.FolderPath)
	entry := catalog.LibraryEntry{
		ID:          a.ID,
		TakenAt:     a.TakenAt,
		CameraModel: a.CameraModel,
		SizeBytes:   a.SizeBytes,
		Width:       a.Width,
		Height:      a.Height,
		Ext:         extensionOf(a.FileName),
		Path:        a.FolderPath,
		Albums:      a.Albums,
		Folders:     folders,
		Tags:        a.Tags,
		Lat:         a.Lat,
		Lng:         a.Lng,
	}
	entry.OrganizationScore = organizationScore(a.Albums, folders, a.Tags, a.FolderPath)
	return entry, nil
}

// extensionOf returns the lowercase extension of a filename without the
// dot, normalizing jpeg to jpg. Empty if the name has no extension.
func extensionOf(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	ext := strings.ToLower(filename[idx+1:])
	if ext == "jpeg" {
		ext = "jpg"
	}
	return ext
}

func buildStats(entries []catalog.LibraryEntry) catalog.LibraryStats {
	stats := catalog.LibraryStats{TotalEntries: len(entries)}
	models := make(map[string]struct{})

	for i := range entries {
		e := &entries[i]
		stats.TotalBytes += e.SizeBytes
		if !e.TakenAt.IsZero() {
			if stats.DateStart.IsZero() || e.TakenAt.Before(stats.DateStart) {
				stats.DateStart = e.TakenAt
			}
			if e.TakenAt.After(stats.DateEnd) {
				stats.DateEnd = e.TakenAt
			}
		}
		if e.CameraModel != "" {
			models[e.CameraModel] = struct{}{}
		}
		if e.HasLocation() {
			stats.HasLocation = true
		}
	}

	stats.CameraModels = make([]string, 0, len(models))
	for model := range models {
		stats.CameraModels = append(stats.CameraModels, model)
	}
	sort.Strings(stats.CameraModels)
	return stats
}
