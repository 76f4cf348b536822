package catalog

import "errors"

// ErrNoScan is returned by cache-backed operations invoked before any scan
// has populated the caches.
var ErrNoScan = errors.New("no scan has completed yet, run a fast scan first")

// ErrClusterNotFound is returned when a cluster id is not present in the
// cached cluster set.
var ErrClusterNotFound = errors.New("cluster not found in cache")
