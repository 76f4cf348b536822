// Package library abstracts the backing photo collection. The pipeline only
// sees the Provider interface; the concrete implementations talk to a
// PhotoPrism instance or serve fixtures from memory.
package library

import (
	"context"
	"time"
)

// Asset is one entry of the backing collection, metadata only. Content is
// fetched separately through MaterializeContent.
type Asset struct {
	ID          string
	TakenAt     time.Time
	CameraMake  string
	CameraModel string
	SizeBytes   int64
	Width       int
	Height      int
	FileName    string
	FolderPath  string
	Albums      []string
	Tags        []string
	Lat         *float64
	Lng         *float64
}

// EnumerateOptions controls which assets an enumeration returns.
type EnumerateOptions struct {
	ExcludeTrashed bool
	ExcludeVideo   bool
}

// Provider is the boundary to the backing collection. MaterializeContent is
// the only call that may touch remote storage: it guarantees local image
// bytes on success, may be slow, and may fail for cloud-only assets.
type Provider interface {
	// EnumerateAll returns metadata for every asset matching opts.
	EnumerateAll(ctx context.Context, opts EnumerateOptions) ([]Asset, error)
	// ResolveByID returns the asset for an id, or an error if unknown.
	ResolveByID(ctx context.Context, id string) (*Asset, error)
	// MaterializeContent returns the image bytes for an id, fetching
	// them from remote storage if necessary.
	MaterializeContent(ctx context.Context, id string) ([]byte, error)
}
