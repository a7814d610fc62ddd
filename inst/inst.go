package inst

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/anim"
	"github.com/mirmik/glb_browser/entity"
	"github.com/mirmik/glb_browser/scene"
	"github.com/mirmik/glb_browser/skeleton"
)

// Phase tracks how far an instantiation has progressed. Steps only run
// in order; skipping or repeating one is a programming error, not a data
// error.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseNodesBuilt
	PhaseSkeletonBuilt
	PhaseRenderersBound
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseNodesBuilt:
		return "nodes-built"
	case PhaseSkeletonBuilt:
		return "skeleton-built"
	case PhaseRenderersBound:
		return "renderers-bound"
	}
	return "unknown"
}

// MeshResolver resolves a mesh asset by name. The library implements it;
// tests plug in maps.
type MeshResolver interface {
	Mesh(name string) (*scene.Mesh, bool)
}

// MaterialProvider supplies fallback materials for primitives without
// one.
type MaterialProvider interface {
	Default() *scene.Material
	Skinned() *scene.Material
}

// Context carries everything instantiation needs. It is passed
// explicitly; there is no package-level registry.
type Context struct {
	Pool      *entity.Pool
	Meshes    MeshResolver
	Materials MaterialProvider
}

// Result is a fully instantiated model.
type Result struct {
	Root       *entity.Entity
	Skeleton   *skeleton.Instance
	Controller *skeleton.Controller
	Player     *anim.Player
	Phase      Phase
}

type pendingBind struct {
	ent      *entity.Entity
	meshName string
	material *scene.Material
}

// Instantiator mirrors a scene snapshot into the live entity pool in
// three phases: entities, then the skeleton, then skinned renderer
// binding. Skinned primitives cannot bind before their skeleton exists,
// which is the whole reason binding is split out.
type Instantiator struct {
	ctx   Context
	scn   *scene.Scene
	name  string
	phase Phase

	root    *entity.Entity
	byNode  map[int]*entity.Entity
	created []entity.Id
	pending []pendingBind

	skelInst   *skeleton.Instance
	controller *skeleton.Controller
}

func New(ctx Context, s *scene.Scene, name string) *Instantiator {
	return &Instantiator{
		ctx:    ctx,
		scn:    s,
		name:   name,
		phase:  PhaseCreated,
		byNode: make(map[int]*entity.Entity),
	}
}

func (b *Instantiator) Phase() Phase {
	return b.phase
}

// Instantiate runs all three phases. On any failure every entity created
// so far is removed from the pool, so a half-built hierarchy is never
// left attached.
func Instantiate(ctx Context, s *scene.Scene, name string) (*Result, error) {
	b := New(ctx, s, name)
	if err := b.BuildNodes(); err != nil {
		b.rollback()
		return nil, err
	}
	if err := b.BuildSkeleton(); err != nil {
		b.rollback()
		return nil, err
	}
	if err := b.BindRenderers(); err != nil {
		b.rollback()
		return nil, err
	}
	return b.Result(), nil
}

func (b *Instantiator) rollback() {
	for _, id := range b.created {
		b.ctx.Pool.Remove(id)
	}
	b.created = nil
	b.root = nil
	b.byNode = make(map[int]*entity.Entity)
	b.pending = nil
	b.skelInst = nil
	b.controller = nil
}

func (b *Instantiator) create(name string) *entity.Entity {
	e := b.ctx.Pool.Create(name)
	b.created = append(b.created, e.Id)
	return e
}

// BuildNodes mirrors the node hierarchy into entities. A scene with one
// root maps directly; multiple roots hang under a synthetic root named
// after the asset; a scene without hierarchy gets one entity per mesh.
func (b *Instantiator) BuildNodes() error {
	if b.phase != PhaseCreated {
		return errors.Errorf("BuildNodes called in phase %s", b.phase)
	}

	switch len(b.scn.Roots) {
	case 0:
		b.root = b.create(b.name)
		for rawMesh := range b.scn.MeshPrimitives {
			if len(b.scn.MeshPrimitives[rawMesh]) == 0 {
				continue
			}
			e := b.create(b.scn.Meshes[b.scn.MeshPrimitives[rawMesh][0]].Name)
			if err := b.root.AddChild(e); err != nil {
				return err
			}
			if err := b.attachPrimitives(e, rawMesh, -1); err != nil {
				return err
			}
		}
	case 1:
		root, err := b.buildSubtree(b.scn.Roots[0], nil)
		if err != nil {
			return err
		}
		b.root = root
	default:
		b.root = b.create(b.name)
		for _, r := range b.scn.Roots {
			if _, err := b.buildSubtree(r, b.root); err != nil {
				return err
			}
		}
	}

	b.phase = PhaseNodesBuilt
	return nil
}

// buildSubtree walks the node graph iteratively. Revisiting a node means
// the graph is not a tree, which instantiation refuses.
func (b *Instantiator) buildSubtree(rootNode int, parent *entity.Entity) (*entity.Entity, error) {
	type item struct {
		node   int
		parent *entity.Entity
	}
	visited := make(map[int]bool)
	stack := []item{{rootNode, parent}}
	var subtreeRoot *entity.Entity

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.node < 0 || it.node >= len(b.scn.Nodes) {
			return nil, errors.Wrapf(scene.ErrReference, "Node %d out of range [0:%d)", it.node, len(b.scn.Nodes))
		}
		if visited[it.node] {
			return nil, errors.Wrapf(scene.ErrReference, "Node %d reached twice (graph is not a tree)", it.node)
		}
		visited[it.node] = true

		n := &b.scn.Nodes[it.node]
		e := b.create(n.Name)
		e.Local = entity.Transform{
			Translation: n.Translation,
			Rotation:    n.Rotation,
			Scale:       n.Scale,
		}
		if it.parent != nil {
			if err := it.parent.AddChild(e); err != nil {
				return nil, err
			}
		}
		b.byNode[it.node] = e
		if subtreeRoot == nil {
			subtreeRoot = e
		}

		if n.Mesh >= 0 {
			if err := b.attachPrimitives(e, n.Mesh, n.Skin); err != nil {
				return nil, err
			}
		}

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{n.Children[i], e})
		}
	}
	return subtreeRoot, nil
}

// attachPrimitives resolves a raw glTF mesh into its primitives and
// attaches renderers. Skinned primitives on a skinned node are deferred
// until the skeleton exists.
func (b *Instantiator) attachPrimitives(e *entity.Entity, rawMesh int, skin int) error {
	if rawMesh < 0 || rawMesh >= len(b.scn.MeshPrimitives) {
		return errors.Wrapf(scene.ErrReference, "Mesh %d out of range [0:%d)", rawMesh, len(b.scn.MeshPrimitives))
	}
	for _, mi := range b.scn.MeshPrimitives[rawMesh] {
		mesh := b.scn.Meshes[mi]

		var material *scene.Material
		switch {
		case mesh.Material >= 0:
			if mesh.Material >= len(b.scn.Materials) {
				return errors.Wrapf(scene.ErrReference, "Material %d out of range [0:%d)", mesh.Material, len(b.scn.Materials))
			}
			material = &b.scn.Materials[mesh.Material]
		case mesh.Skinned():
			material = b.ctx.Materials.Skinned()
		default:
			material = b.ctx.Materials.Default()
		}

		if mesh.Skinned() && skin >= 0 {
			b.pending = append(b.pending, pendingBind{ent: e, meshName: mesh.Name, material: material})
			continue
		}
		resolved, ok := b.ctx.Meshes.Mesh(mesh.Name)
		if !ok {
			return errors.Wrapf(scene.ErrReference, "Mesh asset %q is not registered", mesh.Name)
		}
		e.AttachRenderer(&entity.MeshRenderer{Mesh: resolved, Material: material})
	}
	return nil
}

// BuildSkeleton assembles the first skin's runtime skeleton over the
// entities created in phase one. Without skins or deferred skinned
// primitives it is a no-op.
func (b *Instantiator) BuildSkeleton() error {
	if b.phase != PhaseNodesBuilt {
		return errors.Errorf("BuildSkeleton called in phase %s", b.phase)
	}
	if len(b.scn.Skins) == 0 || len(b.pending) == 0 {
		b.phase = PhaseSkeletonBuilt
		return nil
	}

	skel, err := skeleton.Build(b.scn, 0)
	if err != nil {
		return err
	}
	skin := &b.scn.Skins[0]

	handles := make([]skeleton.BoneHandle, len(skin.Joints))
	sources := make([]skeleton.TransformSource, len(skin.Joints))
	for i, nodeIndex := range skin.Joints {
		e := b.byNode[nodeIndex]
		if e == nil {
			return errors.Wrapf(scene.ErrReference,
				"Joint node %d is not part of the instantiated hierarchy", nodeIndex)
		}
		handles[i] = e
		sources[i] = e
	}

	var rootSource skeleton.TransformSource = b.root
	if skin.Armature >= 0 {
		if armature := b.byNode[skin.Armature]; armature != nil {
			rootSource = armature
		}
	}

	if b.skelInst, err = skeleton.NewInstance(skel, rootSource, sources); err != nil {
		return err
	}
	if b.controller, err = skeleton.NewController(b.skelInst, handles); err != nil {
		return err
	}
	b.phase = PhaseSkeletonBuilt
	return nil
}

// BindRenderers resolves every deferred skinned primitive against the
// registry and attaches it, pointing at the shared skeleton instance.
func (b *Instantiator) BindRenderers() error {
	if b.phase != PhaseSkeletonBuilt {
		return errors.Errorf("BindRenderers called in phase %s", b.phase)
	}
	for _, pend := range b.pending {
		if b.skelInst == nil {
			return errors.Wrapf(scene.ErrReference, "Mesh %q needs a skeleton but none was built", pend.meshName)
		}
		mesh, ok := b.ctx.Meshes.Mesh(pend.meshName)
		if !ok {
			return errors.Wrapf(scene.ErrReference, "Mesh asset %q is not registered", pend.meshName)
		}
		pend.ent.AttachRenderer(&entity.SkinnedMeshRenderer{
			Mesh:     mesh,
			Material: pend.material,
			Skeleton: b.skelInst,
		})
	}
	b.phase = PhaseRenderersBound
	return nil
}

// Result assembles the instantiated model with a player pre-loaded with
// every clip. With a skeleton the player routes into the controller;
// otherwise into the root entity through the single "clip" channel.
func (b *Instantiator) Result() *Result {
	var sink anim.PoseSink
	if b.controller != nil {
		sink = b.controller
	} else {
		sink = rootSink{root: b.root}
	}
	player := anim.NewPlayer(sink)
	for _, clip := range b.scn.Clips {
		player.AddClip(clip)
	}
	return &Result{
		Root:       b.root,
		Skeleton:   b.skelInst,
		Controller: b.controller,
		Player:     player,
		Phase:      b.phase,
	}
}

// rootSink drives a skeleton-less model: only the well-known "clip"
// channel is routed, straight into the root entity's pose.
type rootSink struct {
	root *entity.Entity
}

func (s rootSink) ApplyPose(name string, t *mgl32.Vec3, r *mgl32.Quat, sc *mgl32.Vec3) bool {
	if name != "clip" || s.root == nil {
		return false
	}
	s.root.SetLocalPose(t, r, sc)
	return true
}
