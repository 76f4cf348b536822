package loader

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukogan/removebadphotos/internal/catalog"
	"github.com/ukogan/removebadphotos/internal/config"
	"github.com/ukogan/removebadphotos/internal/library"
)

func testAnalysis() config.AnalysisConfig {
	return config.AnalysisConfig{
		WindowSeconds:       10,
		SimilarityThreshold: 70,
		Workers:             2,
		MatchUnknownDevice:  true,
	}
}

func testImage(t *testing.T, stripe int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x < 32 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	// A small stripe perturbs the hash by a few bits at most.
	for y := 0; y < stripe; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// burstLibrary returns a provider holding a three-shot burst of
// near-identical photos taken seconds apart on the same camera.
func burstLibrary(t *testing.T) *library.Memory {
	t.Helper()
	mem := library.NewMemory()
	base := time.Date(2024, 7, 14, 10, 30, 0, 0, time.UTC)
	for i, stripe := range []int{0, 1, 2} {
		id := string(rune('a' + i))
		mem.Add(library.Asset{
			ID:          id,
			TakenAt:     base.Add(time.Duration(i*3) * time.Second),
			CameraModel: "iPhone 15 Pro",
			SizeBytes:   int64(6_000_000 + i*100_000),
			Width:       4000,
			Height:      3000,
			FileName:    id + ".jpg",
		}, testImage(t, stripe))
	}
	return mem
}

func scannedLoader(t *testing.T, mem *library.Memory) (*LazyLoader, []catalog.Cluster) {
	t.Helper()
	l := New(mem, config.Load().Scoring, testAnalysis(), nil)
	_, clusters, err := l.FastScan(context.Background(), nil)
	require.NoError(t, err)
	return l, clusters
}

func TestFastScan_BuildsSnapshot(t *testing.T) {
	l, clusters := scannedLoader(t, burstLibrary(t))

	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].Count())

	info := l.CacheInfo()
	assert.NotEmpty(t, info.ScanID)
	assert.False(t, info.PopulatedAt.IsZero())
	assert.Equal(t, 3, info.Entries)
	assert.Equal(t, 1, info.Clusters)
	assert.Zero(t, info.LoadedClusters)

	stats, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEntries)
}

func TestFastScan_ReplacesSnapshot(t *testing.T) {
	mem := burstLibrary(t)
	l, clusters := scannedLoader(t, mem)

	_, err := l.LoadCluster(context.Background(), clusters[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, l.CacheInfo().LoadedClusters)

	first := l.CacheInfo().ScanID
	_, _, err = l.FastScan(context.Background(), nil)
	require.NoError(t, err)

	info := l.CacheInfo()
	assert.NotEqual(t, first, info.ScanID)
	assert.Zero(t, info.LoadedClusters, "per-cluster caches must reset on rescan")
}

func TestFilterClusters(t *testing.T) {
	l, clusters := scannedLoader(t, burstLibrary(t))

	all, err := l.FilterClusters(catalog.Filter{})
	require.NoError(t, err)
	assert.Equal(t, clusters, all)

	byYear, err := l.FilterClusters(catalog.Filter{Year: 2024})
	require.NoError(t, err)
	assert.Len(t, byYear, 1)

	none, err := l.FilterClusters(catalog.Filter{Year: 1999})
	require.NoError(t, err)
	assert.Empty(t, none)

	// Extension filters accept dotted and jpeg-spelled variants.
	byExt, err := l.FilterClusters(catalog.Filter{Extensions: []string{".JPEG"}})
	require.NoError(t, err)
	assert.Len(t, byExt, 1)

	byCamera, err := l.FilterClusters(catalog.Filter{CameraModels: []string{"Pixel 8"}})
	require.NoError(t, err)
	assert.Empty(t, byCamera)

	bySize, err := l.FilterClusters(catalog.Filter{MinBytes: 1 << 40})
	require.NoError(t, err)
	assert.Empty(t, bySize)
}

func TestFilterClusters_RequiresScan(t *testing.T) {
	l := New(library.NewMemory(), config.Load().Scoring, testAnalysis(), nil)
	_, err := l.FilterClusters(catalog.Filter{})
	assert.ErrorIs(t, err, catalog.ErrNoScan)
}

func TestLoadCluster_CachesContent(t *testing.T) {
	mem := burstLibrary(t)
	l, clusters := scannedLoader(t, mem)
	id := clusters[0].ID

	entries, err := l.LoadCluster(context.Background(), id, nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.NotEmpty(t, e.Content)
	}
	assert.Equal(t, 1, mem.MaterializeCalls("a"))

	// Second load comes from cache without touching the provider.
	again, err := l.LoadCluster(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
	assert.Equal(t, 1, mem.MaterializeCalls("a"))
}

func TestLoadCluster_UnknownID(t *testing.T) {
	l, _ := scannedLoader(t, burstLibrary(t))
	_, err := l.LoadCluster(context.Background(), "cluster_9999", nil)
	assert.ErrorIs(t, err, catalog.ErrClusterNotFound)
}

func TestAnalyzeCluster_GroupsAndRecommends(t *testing.T) {
	l, clusters := scannedLoader(t, burstLibrary(t))
	id := clusters[0].ID

	groups, err := l.AnalyzeCluster(context.Background(), id, nil)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Entries, 3)

	recommended := groups[0].RecommendedID
	require.NotEmpty(t, recommended)
	found := false
	for _, e := range groups[0].Entries {
		assert.True(t, e.Analyzed)
		if e.ID == recommended {
			found = true
		}
	}
	assert.True(t, found, "recommendation must name a group member")
	assert.Positive(t, groups[0].ReclaimableBytes())
}

func TestAnalyzeCluster_Cached(t *testing.T) {
	mem := burstLibrary(t)
	l, clusters := scannedLoader(t, mem)
	id := clusters[0].ID

	first, err := l.AnalyzeCluster(context.Background(), id, nil)
	require.NoError(t, err)
	second, err := l.AnalyzeCluster(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mem.MaterializeCalls("a"))
	assert.Equal(t, 1, l.CacheInfo().DeepAnalyzed)
}

// memoryHashStore is an in-process HashStore for cache plumbing tests.
type memoryHashStore struct {
	mu     sync.Mutex
	hashes map[string]uint64
	gets   int
	puts   int
}

func newMemoryHashStore() *memoryHashStore {
	return &memoryHashStore{hashes: make(map[string]uint64)}
}

func (m *memoryHashStore) Get(id string) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	h, ok := m.hashes[id]
	return h, ok, nil
}

func (m *memoryHashStore) Put(id string, hash uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.hashes[id] = hash
	return nil
}

func TestAnalyzeCluster_PersistsHashes(t *testing.T) {
	store := newMemoryHashStore()
	mem := burstLibrary(t)
	l := New(mem, config.Load().Scoring, testAnalysis(), store)

	_, clusters, err := l.FastScan(context.Background(), nil)
	require.NoError(t, err)
	_, err = l.AnalyzeCluster(context.Background(), clusters[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, store.puts, "each hashed entry is persisted once")

	// A fresh loader sharing the store reuses the persisted hashes.
	l2 := New(mem, config.Load().Scoring, testAnalysis(), store)
	_, clusters, err = l2.FastScan(context.Background(), nil)
	require.NoError(t, err)
	_, err = l2.AnalyzeCluster(context.Background(), clusters[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, store.puts, "cached hashes must not be rewritten")
}

func TestClearCache(t *testing.T) {
	l, _ := scannedLoader(t, burstLibrary(t))
	l.ClearCache()

	info := l.CacheInfo()
	assert.Empty(t, info.ScanID)
	assert.Zero(t, info.Entries)

	_, err := l.FilterClusters(catalog.Filter{})
	assert.ErrorIs(t, err, catalog.ErrNoScan)
}

func TestAnalyzeCluster_ConcurrentCallsShareOneAnalysis(t *testing.T) {
	mem := burstLibrary(t)
	l, clusters := scannedLoader(t, mem)
	id := clusters[0].ID

	const callers = 4
	results := make([][]catalog.Group, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = l.AnalyzeCluster(context.Background(), id, nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}

	// The cluster was materialized and analyzed exactly once; the other
	// callers waited and served from the cache.
	assert.Equal(t, 1, mem.MaterializeCalls("a"))
	assert.Equal(t, 1, l.CacheInfo().DeepAnalyzed)
}

func TestLoadCluster_ZeroResolvedIsError(t *testing.T) {
	mem := library.NewMemory()
	base := time.Date(2024, 7, 14, 10, 30, 0, 0, time.UTC)
	for i, id := range []string{"a", "b"} {
		mem.Add(library.Asset{
			ID:          id,
			TakenAt:     base.Add(time.Duration(i*3) * time.Second),
			CameraModel: "iPhone 15 Pro",
			SizeBytes:   6_000_000,
			FileName:    id + ".jpg",
		}, nil) // no content: materialization fails for every member
	}
	l, clusters := scannedLoader(t, mem)
	require.Len(t, clusters, 1)

	_, err := l.LoadCluster(context.Background(), clusters[0].ID, nil)
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, clusters[0].ID, resErr.ClusterID)
	assert.Equal(t, 2, resErr.Attempted)
	assert.Zero(t, resErr.Resolved)

	// The failure must not be cached as an empty success.
	_, err = l.LoadCluster(context.Background(), clusters[0].ID, nil)
	assert.ErrorAs(t, err, &resErr)
	assert.Zero(t, l.CacheInfo().LoadedClusters)
}

func TestLoadCluster_PartialResolutionIsCached(t *testing.T) {
	mem := burstLibrary(t)
	base := time.Date(2024, 7, 14, 10, 30, 9, 0, time.UTC)
	mem.Add(library.Asset{
		ID:          "broken",
		TakenAt:     base,
		CameraModel: "iPhone 15 Pro",
		SizeBytes:   6_000_000,
		FileName:    "broken.jpg",
	}, nil) // joins the burst but has no content

	l, clusters := scannedLoader(t, mem)
	require.Len(t, clusters, 1)
	require.Equal(t, 4, clusters[0].Count())

	entries, err := l.LoadCluster(context.Background(), clusters[0].ID, nil)
	require.NoError(t, err, "partial resolution is a success, not an error")
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.NotEqual(t, "broken", e.ID)
	}

	// The partial result is cached; the missing member is not retried.
	again, err := l.LoadCluster(context.Background(), clusters[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
	assert.Equal(t, 1, mem.MaterializeCalls("broken"))
}
