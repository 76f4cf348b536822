// Package loader orchestrates the three-stage pipeline: a fast metadata
// scan that builds clusters, lazy materialization of cluster content, and
// deep per-cluster analysis. Results are cached in memory so the expensive
// stages run at most once per cluster per scan.
package loader

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/cluster"
	"github.com/ukogan/removebadphotos/internal/config"
	"github.com/ukogan/removebadphotos/internal/library"
	"github.com/ukogan/removebadphotos/internal/logging"
	"github.com/ukogan/removebadphotos/internal/quality"
	"github.com/ukogan/removebadphotos/internal/scanner"
	"github.com/ukogan/removebadphotos/internal/similarity"
)

// HashStore persists perceptual hashes across runs. Implementations must
// be safe for concurrent use.
type HashStore interface {
	Get(entryID string) (uint64, bool, error)
	Put(entryID string, hash uint64) error
}

// ResolutionError reports a cluster whose content could not be
// materialized at all.
type ResolutionError struct {
	ClusterID string
	Attempted int
	Resolved  int
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not materialize cluster %s: resolved %d of %d entries",
		e.ClusterID, e.Resolved, e.Attempted)
}

// snapshot is the immutable result of one fast scan. A new scan builds a
// fresh snapshot and swaps it in under the loader mutex.
type snapshot struct {
	scanID      string
	populatedAt time.Time
	stats       catalog.LibraryStats
	entries     map[string]*catalog.LibraryEntry
	clusters    []catalog.Cluster
	clusterByID map[string]*catalog.Cluster
}

// LazyLoader ties the pipeline together. Safe for concurrent use.
type LazyLoader struct {
	provider library.Provider
	scorer   *quality.Scorer
	analysis config.AnalysisConfig
	hashes   HashStore // optional
	log      *logrus.Entry
	now      func() time.Time

	mu   sync.Mutex
	snap *snapshot
	full map[string][]*catalog.FullEntry // cluster id -> materialized entries
	deep map[string][]catalog.Group      // cluster id -> analyzed groups

	// analyzing serializes deep analysis per cluster. Cached FullEntry
	// objects are shared between callers, so only one worker pool may
	// mutate their memoized hash/score fields at a time.
	analyzing map[string]*sync.Mutex
}

// New creates a LazyLoader. hashes may be nil to disable the persistent
// hash cache.
func New(provider library.Provider, scoring config.ScoringConfig, analysis config.AnalysisConfig, hashes HashStore) *LazyLoader {
	return &LazyLoader{
		provider: provider,
		scorer:   quality.NewScorer(scoring),
		analysis: analysis,
		hashes:   hashes,
		log:      logging.WithName("loader"),
		now:      time.Now,
		full:     make(map[string][]*catalog.FullEntry),
		deep:     make(map[string][]catalog.Group),

		analyzing: make(map[string]*sync.Mutex),
	}
}

// FastScan enumerates the collection, scores organization, builds coarse
// clusters and replaces the cached snapshot. Previous per-cluster caches
// are discarded.
func (l *LazyLoader) FastScan(ctx context.Context, progress catalog.ProgressFunc) (catalog.LibraryStats, []catalog.Cluster, error) {
	stats, entries, err := scanner.New(l.provider).Scan(ctx, progress)
	if err != nil {
		return catalog.LibraryStats{}, nil, fmt.Errorf("fast scan failed: %w", err)
	}

	opts := cluster.Options{
		WindowSeconds:      l.analysis.WindowSeconds,
		MatchUnknownDevice: l.analysis.MatchUnknownDevice,
	}
	clusters := cluster.Build(entries, opts)

	snap := &snapshot{
		scanID:      uuid.NewString(),
		populatedAt: l.now(),
		stats:       stats,
		entries:     make(map[string]*catalog.LibraryEntry, len(entries)),
		clusters:    clusters,
		clusterByID: make(map[string]*catalog.Cluster, len(clusters)),
	}
	for i := range entries {
		snap.entries[entries[i].ID] = &entries[i]
	}
	for i := range clusters {
		snap.clusterByID[clusters[i].ID] = &clusters[i]
	}

	l.mu.Lock()
	l.snap = snap
	l.full = make(map[string][]*catalog.FullEntry)
	l.deep = make(map[string][]catalog.Group)
	l.mu.Unlock()

	l.log.Infof("scan %s: %d entries, %d candidate clusters", snap.scanID, len(entries), len(clusters))
	return stats, clusters, nil
}

// Stats returns the library statistics of the cached scan.
func (l *LazyLoader) Stats() (catalog.LibraryStats, error) {
	snap, err := l.snapshot()
	if err != nil {
		return catalog.LibraryStats{}, err
	}
	return snap.stats, nil
}

// Clusters returns all cached clusters.
func (l *LazyLoader) Clusters() ([]catalog.Cluster, error) {
	return l.FilterClusters(catalog.Filter{})
}

// FilterClusters returns the cached clusters matching the filter. An empty
// filter matches everything.
func (l *LazyLoader) FilterClusters(filter catalog.Filter) ([]catalog.Cluster, error) {
	snap, err := l.snapshot()
	if err != nil {
		return nil, err
	}

	matched := make([]catalog.Cluster, 0, len(snap.clusters))
	for _, c := range snap.clusters {
		if snap.matches(&c, &filter) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (s *snapshot) matches(c *catalog.Cluster, f *catalog.Filter) bool {
	if f.Year != 0 && c.SpanStart.Year() != f.Year {
		return false
	}
	if f.MinBytes != 0 && c.TotalBytes < f.MinBytes {
		return false
	}
	if f.MaxBytes != 0 && c.TotalBytes > f.MaxBytes {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, c.Priority) {
		return false
	}
	if len(f.CameraModels) > 0 && !slices.Contains(f.CameraModels, c.CameraModel) {
		return false
	}
	if len(f.Extensions) > 0 && !s.hasAnyExtension(c, f.Extensions) {
		return false
	}
	return true
}

func (s *snapshot) hasAnyExtension(c *catalog.Cluster, exts []string) bool {
	for _, id := range c.EntryIDs {
		entry, ok := s.entries[id]
		if !ok {
			continue
		}
		for _, ext := range exts {
			if entry.Ext == normalizeExt(ext) {
				return true
			}
		}
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	return ext
}

// LoadCluster materializes the content of one cluster's entries, using a
// bounded worker pool. Entries that cannot be resolved or downloaded are
// skipped with a log line; only a cluster where nothing resolves is an
// error. Results are cached per cluster.
func (l *LazyLoader) LoadCluster(ctx context.Context, clusterID string, progress catalog.ProgressFunc) ([]*catalog.FullEntry, error) {
	snap, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	c, ok := snap.clusterByID[clusterID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrClusterNotFound, clusterID)
	}

	l.mu.Lock()
	cached, ok := l.full[clusterID]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	workers := l.analysis.Workers
	if workers <= 0 {
		workers = 1
	}

	type slot struct {
		entry *catalog.FullEntry
	}
	results := make([]slot, len(c.EntryIDs))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var done sync.Mutex
	completed := 0

	for i, id := range c.EntryIDs {
		wg.Add(1)
		go func(idx int, entryID string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}

			entry := l.materialize(ctx, snap, entryID)

			done.Lock()
			completed++
			current := completed
			done.Unlock()
			progress.Report("loading", current, len(c.EntryIDs), entryID)

			results[idx].entry = entry
		}(i, id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loaded := make([]*catalog.FullEntry, 0, len(results))
	for _, r := range results {
		if r.entry != nil {
			loaded = append(loaded, r.entry)
		}
	}
	if len(loaded) == 0 && len(c.EntryIDs) > 0 {
		return nil, &ResolutionError{ClusterID: clusterID, Attempted: len(c.EntryIDs), Resolved: 0}
	}

	l.mu.Lock()
	l.full[clusterID] = loaded
	l.mu.Unlock()

	return loaded, nil
}

// materialize resolves one entry and downloads its content. Returns nil
// when the entry cannot be produced.
func (l *LazyLoader) materialize(ctx context.Context, snap *snapshot, entryID string) *catalog.FullEntry {
	meta, ok := snap.entries[entryID]
	if !ok {
		l.log.Warnf("entry %s missing from scan snapshot", entryID)
		return nil
	}

	if _, err := l.provider.ResolveByID(ctx, entryID); err != nil {
		l.log.Warnf("could not resolve entry %s: %v", entryID, err)
		return nil
	}

	content, err := l.provider.MaterializeContent(ctx, entryID)
	if err != nil {
		l.log.Warnf("could not download entry %s: %v", entryID, err)
		return nil
	}

	return &catalog.FullEntry{LibraryEntry: *meta, Content: content}
}

// AnalyzeCluster runs deep analysis on one cluster: materialize, hash,
// score, then subdivide into pixel-verified groups with a keep
// recommendation each. Groups are ordered by reclaimable bytes, largest
// first. Results are cached per cluster.
func (l *LazyLoader) AnalyzeCluster(ctx context.Context, clusterID string, progress catalog.ProgressFunc) ([]catalog.Group, error) {
	// One analysis per cluster at a time: concurrent callers would
	// otherwise mutate the shared cached entries from both worker pools.
	// The second caller blocks here and then hits the deep cache.
	lock := l.clusterLock(clusterID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	cached, ok := l.deep[clusterID]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	entries, err := l.LoadCluster(ctx, clusterID, progress)
	if err != nil {
		return nil, err
	}

	if err := l.prepareEntries(ctx, entries, progress); err != nil {
		return nil, err
	}

	groups, err := similarity.Refine(ctx, entries, l.analysis.SimilarityThreshold, progress)
	if err != nil {
		return nil, err
	}

	for i := range groups {
		groups[i].RecommendedID = quality.Recommend(&groups[i])
	}
	slices.SortStableFunc(groups, func(a, b catalog.Group) int {
		return cmp.Compare(b.ReclaimableBytes(), a.ReclaimableBytes())
	})

	l.mu.Lock()
	l.deep[clusterID] = groups
	l.mu.Unlock()

	return groups, nil
}

// prepareEntries hashes and scores entries with the bounded worker pool,
// consulting the persistent hash store when configured.
func (l *LazyLoader) prepareEntries(ctx context.Context, entries []*catalog.FullEntry, progress catalog.ProgressFunc) error {
	workers := l.analysis.Workers
	if workers <= 0 {
		workers = 1
	}

	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var done sync.Mutex
	completed := 0

	for _, entry := range entries {
		wg.Add(1)
		go func(e *catalog.FullEntry) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}

			l.prepareOne(e)

			done.Lock()
			completed++
			current := completed
			done.Unlock()
			progress.Report("analyzing", current, len(entries), e.ID)
		}(entry)
	}
	wg.Wait()

	return ctx.Err()
}

func (l *LazyLoader) prepareOne(e *catalog.FullEntry) {
	if !e.Analyzed && l.hashes != nil {
		if hash, ok, err := l.hashes.Get(e.ID); err != nil {
			l.log.Warnf("hash cache read failed for %s: %v", e.ID, err)
		} else if ok {
			e.PHash = hash
			e.HasHash = true
		}
	}

	hadHash := e.HasHash
	similarity.EnsureHash(e)
	l.scorer.ScoreEntry(e)

	if e.HasHash && !hadHash && l.hashes != nil {
		if err := l.hashes.Put(e.ID, e.PHash); err != nil {
			l.log.Warnf("hash cache write failed for %s: %v", e.ID, err)
		}
	}
}

// CacheStats describes the loader's in-memory cache.
type CacheStats struct {
	ScanID         string    `json:"scan_id,omitempty"`
	PopulatedAt    time.Time `json:"populated_at,omitzero"`
	Entries        int       `json:"entries"`
	Clusters       int       `json:"clusters"`
	LoadedClusters int       `json:"loaded_clusters"`
	DeepAnalyzed   int       `json:"deep_analyzed"`
}

// CacheInfo reports the current cache state. Valid even before a scan.
func (l *LazyLoader) CacheInfo() CacheStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := CacheStats{
		LoadedClusters: len(l.full),
		DeepAnalyzed:   len(l.deep),
	}
	if l.snap != nil {
		stats.ScanID = l.snap.scanID
		stats.PopulatedAt = l.snap.populatedAt
		stats.Entries = len(l.snap.entries)
		stats.Clusters = len(l.snap.clusters)
	}
	return stats
}

// ClearCache drops the snapshot and all per-cluster caches.
func (l *LazyLoader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap = nil
	l.full = make(map[string][]*catalog.FullEntry)
	l.deep = make(map[string][]catalog.Group)
}

// clusterLock returns the mutex serializing deep analysis of one cluster,
// creating it on first use. The lock table survives rescans and cache
// clears so the same cluster id never has two coexisting locks.
func (l *LazyLoader) clusterLock(clusterID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.analyzing[clusterID]
	if !ok {
		lock = &sync.Mutex{}
		l.analyzing[clusterID] = lock
	}
	return lock
}

func (l *LazyLoader) snapshot() (*snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snap == nil {
		return nil, catalog.ErrNoScan
	}
	return l.snap, nil
}
