package spacedrep

import "errors"

// Sentinel errors for the spacedrep package.
var (
	ErrInvalidSignal     = errors.New("spacedrep: invalid signal")
	ErrInvalidConfig     = errors.New("spacedrep: invalid config")
	ErrInvariant         = errors.New("spacedrep: state invariant violated")
	ErrTemporalInversion = errors.New("spacedrep: review time precedes last review")
)
