// Package catalog defines the shared data model for the duplicate-detection
// pipeline: scanned entries, coarse clusters, pixel-verified groups and the
// progress/filter types exchanged between stages.
package catalog

import "time"

// LibraryEntry holds the metadata-only view of a single photo, produced by
// the scanner. Immutable once created.
type LibraryEntry struct {
	ID          string    `json:"id"`
	TakenAt     time.Time `json:"taken_at"`
	CameraModel string    `json:"camera_model,omitempty"` // empty = unknown
	SizeBytes   int64     `json:"size_bytes"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Ext         string    `json:"ext"` // lowercase, without dot
	Path        string    `json:"path,omitempty"`

	Albums  []string `json:"albums,omitempty"`
	Folders []string `json:"folders,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`

	// OrganizationScore (0-100) reflects how well the entry is already
	// filed into albums, folders and tags.
	OrganizationScore float64 `json:"organization_score"`
}

// HasLocation reports whether the entry carries GPS coordinates.
func (e *LibraryEntry) HasLocation() bool {
	return e.Lat != nil && e.Lng != nil
}

// PixelCount returns width*height.
func (e *LibraryEntry) PixelCount() int {
	return e.Width * e.Height
}

// QualityBasis records which scoring mode produced a FullEntry's score.
type QualityBasis string

const (
	QualityBasisMetadata QualityBasis = "metadata"
	QualityBasisPixel    QualityBasis = "pixel"
)

// FullEntry extends LibraryEntry with materialized content and the memoized
// results of deep analysis. Created lazily, per cluster.
type FullEntry struct {
	LibraryEntry

	// Content holds the materialized image bytes. May be nil if the
	// backing collection could not produce them.
	Content []byte `json:"-"`

	// PHash is the 64-bit perceptual hash; valid only when HasHash is set.
	PHash   uint64 `json:"-"`
	HasHash bool   `json:"has_hash"`

	QualityScore float64      `json:"quality_score"`
	QualityBasis QualityBasis `json:"quality_basis,omitempty"`

	// Analyzed marks hash and score as computed; analysis is a no-op
	// once set.
	Analyzed bool `json:"analyzed"`
}

// Cluster is a coarse time+device candidate duplicate set, built from
// metadata only.
type Cluster struct {
	ID               string    `json:"id"`
	EntryIDs         []string  `json:"entry_ids"`
	SpanStart        time.Time `json:"span_start"`
	SpanEnd          time.Time `json:"span_end"`
	CameraModel      string    `json:"camera_model,omitempty"`
	TotalBytes       int64     `json:"total_bytes"`
	ReclaimableBytes int64     `json:"reclaimable_bytes"`
	Score            float64   `json:"score"` // duplicate probability, 0-100
	Priority         Priority  `json:"priority"`
	LocationSummary  string    `json:"location_summary,omitempty"`
}

// Count returns the number of member entries.
func (c *Cluster) Count() int { return len(c.EntryIDs) }

// Group is a pixel-verified subdivision of a cluster. RecommendedID is
// always the id of one of its entries.
type Group struct {
	Entries       []*FullEntry `json:"entries"`
	RecommendedID string       `json:"recommended_id"`
}

// ReclaimableBytes estimates the storage freed by keeping only the largest
// member of the group.
func (g *Group) ReclaimableBytes() int64 {
	var total, largest int64
	for _, e := range g.Entries {
		total += e.SizeBytes
		if e.SizeBytes > largest {
			largest = e.SizeBytes
		}
	}
	return total - largest
}

// LibraryStats aggregates the whole collection after a scan.
type LibraryStats struct {
	TotalEntries int       `json:"total_entries"`
	TotalBytes   int64     `json:"total_bytes"`
	DateStart    time.Time `json:"date_start"`
	DateEnd      time.Time `json:"date_end"`
	CameraModels []string  `json:"camera_models"`
	HasLocation  bool      `json:"has_location"`
}

// Progress is one incremental progress report from a long-running
// operation, consumed by a polling UI or a CLI progress bar.
type Progress struct {
	Stage   string `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// ProgressFunc receives progress reports. Implementations must be cheap;
// they are called from hot loops.
type ProgressFunc func(Progress)

// Report calls f if it is non-nil.
func (f ProgressFunc) Report(stage string, current, total int, message string) {
	if f != nil {
		f(Progress{Stage: stage, Current: current, Total: total, Message: message})
	}
}

// Filter selects clusters from the cached set. Zero-valued fields are
// ignored, so an empty Filter matches everything.
type Filter struct {
	Year         int        `json:"year,omitempty"`
	MinBytes     int64      `json:"min_bytes,omitempty"`
	MaxBytes     int64      `json:"max_bytes,omitempty"` // 0 = unbounded
	Priorities   []Priority `json:"priorities,omitempty"`
	CameraModels []string   `json:"camera_models,omitempty"`
	Extensions   []string   `json:"extensions,omitempty"`
}
