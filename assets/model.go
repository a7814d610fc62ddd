package assets

import (
	"sync"

	"github.com/mirmik/glb_browser/entity"
	"github.com/mirmik/glb_browser/inst"
	"github.com/mirmik/glb_browser/scene"
)

// Model is one loaded asset: the decoded snapshot plus a lazily created
// live preview instance the viewer samples poses from.
type Model struct {
	Name string
	// Scene is the decoded snapshot after coordinate transforms.
	Scene *scene.Scene
	// JSON keeps the raw document chunk for dump endpoints.
	JSON []byte

	lib *Library

	mu      sync.Mutex
	pool    *entity.Pool
	preview *inst.Result
}

// Context wires the model's resolver view of the library into an
// instantiation context over the given pool.
func (m *Model) Context(pool *entity.Pool) inst.Context {
	return inst.Context{
		Pool:      pool,
		Meshes:    modelResolver{lib: m.lib, asset: m.Name},
		Materials: m.lib,
	}
}

// Instantiate mirrors the model into the pool.
func (m *Model) Instantiate(pool *entity.Pool) (*inst.Result, error) {
	return inst.Instantiate(m.Context(pool), m.Scene, m.Name)
}

// WithPreview runs fn against the model's live preview instance,
// creating it on first use. The model lock is held for the duration, so
// concurrent viewer requests cannot interleave pose updates.
func (m *Model) WithPreview(fn func(*inst.Result) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.preview == nil {
		pool := entity.NewPool()
		res, err := m.Instantiate(pool)
		if err != nil {
			return err
		}
		m.pool = pool
		m.preview = res
	}
	return fn(m.preview)
}

// modelResolver resolves bare mesh names within one asset's namespace.
type modelResolver struct {
	lib   *Library
	asset string
}

func (r modelResolver) Mesh(name string) (*scene.Mesh, bool) {
	return r.lib.MeshByKey(r.asset + "/" + name)
}
