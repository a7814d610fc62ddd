package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirmik/glb_browser/anim"
	"github.com/mirmik/glb_browser/utils"
)

// Scene is the engine-independent snapshot of one decoded asset. It is
// plain data: parsing fills it, the coordinate transforms mutate it in
// place, and instantiation reads it without changing it.
type Scene struct {
	Name      string `json:"name"`
	Generator string `json:"generator"`

	Nodes []Node `json:"nodes"`
	Roots []int  `json:"roots"`

	// Meshes holds one entry per glTF primitive. MeshPrimitives maps a
	// raw glTF mesh index to its primitives' indices in Meshes.
	Meshes         []*Mesh `json:"meshes"`
	MeshPrimitives [][]int `json:"meshPrimitives"`

	Materials []Material `json:"materials"`
	Textures  []Texture  `json:"textures"`
	Skins     []Skin     `json:"skins"`

	Clips []*anim.Clip `json:"clips"`
}

// Node mirrors one glTF node with defaults applied. Mesh keeps the raw
// glTF mesh index (resolve through MeshPrimitives); -1 means none.
type Node struct {
	Name        string     `json:"name"`
	Translation mgl32.Vec3 `json:"translation"`
	Rotation    mgl32.Quat `json:"rotation"`
	Scale       mgl32.Vec3 `json:"scale"`
	Children    []int      `json:"children"`
	Mesh        int        `json:"mesh"`
	Skin        int        `json:"skin"`
}

// Mesh is one primitive expanded through its index buffer: all attribute
// slices have one entry per index, and Indices is the sequential
// 0..N-1 triangle list over them.
type Mesh struct {
	Name      string       `json:"name"`
	Positions []mgl32.Vec3 `json:"positions"`
	Normals   []mgl32.Vec3 `json:"normals,omitempty"`
	UVs       []mgl32.Vec2 `json:"uvs,omitempty"`
	Joints    [][4]uint16  `json:"joints,omitempty"`
	Weights   [][4]float32 `json:"weights,omitempty"`
	Indices   []uint32     `json:"indices"`
	Material  int          `json:"material"`
}

// Skinned reports whether the mesh carries both joints and weights.
func (m *Mesh) Skinned() bool {
	return len(m.Joints) > 0 && len(m.Weights) > 0
}

type Material struct {
	Name             string           `json:"name"`
	BaseColorFactor  utils.ColorFloat `json:"baseColorFactor"`
	BaseColorTexture int              `json:"baseColorTexture"`
	DoubleSided      bool             `json:"doubleSided"`
}

// Texture is an embedded image. Images referenced by URI are skipped at
// parse time and keep nil Data; Source records where the bytes came from.
type Texture struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Source   string `json:"source"`
	Data     []byte `json:"-"`
}

// Skin pairs joint node indices with their inverse-bind matrices;
// len(InverseBind) always equals len(Joints). Armature is the declared
// skeleton root node, -1 when absent.
type Skin struct {
	Name        string       `json:"name"`
	Joints      []int        `json:"joints"`
	InverseBind []mgl32.Mat4 `json:"inverseBind"`
	Armature    int          `json:"armature"`
}
