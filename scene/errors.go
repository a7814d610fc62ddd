package scene

import (
	"github.com/pkg/errors"
)

// ErrReference marks a broken cross-reference: an index pointing outside
// its table (nodes, meshes, skins, materials, vertices), a cycle in the
// node graph, or an asset that cannot be resolved at instantiation time.
// Raised errors wrap it for errors.Is classification.
var ErrReference = errors.New("broken reference")
