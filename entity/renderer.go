package entity

import (
	"github.com/mirmik/glb_browser/scene"
	"github.com/mirmik/glb_browser/skeleton"
)

// Renderer is anything attached to an entity that draws a mesh.
type Renderer interface {
	RenderableMesh() *scene.Mesh
}

// MeshRenderer draws a static mesh with the entity's world transform.
type MeshRenderer struct {
	Mesh     *scene.Mesh
	Material *scene.Material
}

func (r *MeshRenderer) RenderableMesh() *scene.Mesh {
	return r.Mesh
}

// SkinnedMeshRenderer draws a mesh deformed by a shared skeleton
// instance's bone palette.
type SkinnedMeshRenderer struct {
	Mesh     *scene.Mesh
	Material *scene.Material
	Skeleton *skeleton.Instance
}

func (r *SkinnedMeshRenderer) RenderableMesh() *scene.Mesh {
	return r.Mesh
}
