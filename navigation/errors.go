package navigation

import "errors"

var (
	ErrNotLoaded        = errors.New("navigation: navmesh not loaded")
	ErrNoGeometry       = errors.New("navigation: no input geometry")
	ErrCapacityExceeded = errors.New("navigation: capacity exceeded")
	ErrStaleHandle      = errors.New("navigation: stale handle")
	ErrInvalidHandle    = errors.New("navigation: invalid handle")
	ErrNoPolygon        = errors.New("navigation: no polygon near position")
	ErrBadFormat        = errors.New("navigation: unrecognised navmesh file")
	ErrBuildFailed      = errors.New("navigation: build failed")
)
