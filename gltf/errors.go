package gltf

import (
	"github.com/pkg/errors"
)

// Error kinds the loading pipeline distinguishes. Every error raised by
// the container, document and accessor layers wraps one of these
// sentinels, so callers classify failures with errors.Is.
var (
	// ErrFormat marks data that is not a valid GLB container or glTF
	// document: bad magic, wrong version, truncated chunks, unknown
	// component types, ranges outside their buffer view.
	ErrFormat = errors.New("malformed glb data")

	// ErrUnsupported marks valid glTF constructs this loader does not
	// handle: sparse accessors, matrix node transforms, external buffers,
	// cubic-spline samplers.
	ErrUnsupported = errors.New("unsupported gltf feature")
)
