package entity

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/scene"
	"github.com/mirmik/glb_browser/utils"
)

type Id int

const None Id = -1

// Pool is an arena of live entities. Slots are never reused: Remove
// leaves nil holes so ids stay stable for the pool's lifetime.
type Pool struct {
	entities []*Entity
	namegen  utils.NameGenerator
}

func NewPool() *Pool {
	return &Pool{}
}

// Create adds a parentless entity. Unnamed entities get a generated
// placeholder name.
func (p *Pool) Create(name string) *Entity {
	if name == "" {
		name = p.namegen.Next()
	}
	e := &Entity{
		Id:     Id(len(p.entities)),
		Name:   name,
		Local:  IdentityTransform(),
		Parent: None,
		pool:   p,
	}
	p.entities = append(p.entities, e)
	return e
}

// Get returns nil for out-of-range and removed ids.
func (p *Pool) Get(id Id) *Entity {
	if id < 0 || int(id) >= len(p.entities) {
		return nil
	}
	return p.entities[id]
}

// Size counts live entities.
func (p *Pool) Size() int {
	n := 0
	for _, e := range p.entities {
		if e != nil {
			n++
		}
	}
	return n
}

// Remove detaches an entity from its parent and drops it together with
// its whole subtree.
func (p *Pool) Remove(id Id) {
	e := p.Get(id)
	if e == nil {
		return
	}
	if parent := p.Get(e.Parent); parent != nil {
		parent.removeChild(id)
	}
	stack := []Id{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ent := p.Get(cur)
		if ent == nil {
			continue
		}
		p.entities[cur] = nil
		stack = append(stack, ent.Children...)
	}
}

// Entity is one node of the live hierarchy.
type Entity struct {
	Id        Id
	Name      string
	Local     Transform
	Parent    Id
	Children  []Id
	Renderers []Renderer

	pool *Pool
}

func (e *Entity) Pool() *Pool {
	return e.pool
}

// AddChild re-parents child under the receiver, keeping the child's
// local pose. Moves that would make an entity its own ancestor are
// refused.
func (e *Entity) AddChild(child *Entity) error {
	if child == nil || child.pool != e.pool {
		return errors.Errorf("Entity %q belongs to a different pool", e.Name)
	}
	for cur := e; cur != nil; cur = e.pool.Get(cur.Parent) {
		if cur.Id == child.Id {
			return errors.Wrapf(scene.ErrReference, "Entity %q is an ancestor of %q", child.Name, e.Name)
		}
	}
	if old := e.pool.Get(child.Parent); old != nil {
		old.removeChild(child.Id)
	}
	child.Parent = e.Id
	e.Children = append(e.Children, child.Id)
	return nil
}

// Relocate moves the entity under a new parent.
func (e *Entity) Relocate(newParent *Entity) error {
	return newParent.AddChild(e)
}

func (e *Entity) removeChild(id Id) {
	for i, c := range e.Children {
		if c == id {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return
		}
	}
}

func (e *Entity) LocalMatrix() mgl32.Mat4 {
	return e.Local.Matrix()
}

// WorldMatrix composes local matrices up the parent chain. AddChild
// keeps the hierarchy a forest, so the walk always terminates.
func (e *Entity) WorldMatrix() mgl32.Mat4 {
	m := e.Local.Matrix()
	for id := e.Parent; id != None; {
		parent := e.pool.Get(id)
		if parent == nil {
			break
		}
		m = parent.Local.Matrix().Mul4(m)
		id = parent.Parent
	}
	return m
}

// SetLocalPose overwrites the pose components that are non-nil.
func (e *Entity) SetLocalPose(t *mgl32.Vec3, r *mgl32.Quat, s *mgl32.Vec3) {
	if t != nil {
		e.Local.Translation = *t
	}
	if r != nil {
		e.Local.Rotation = *r
	}
	if s != nil {
		e.Local.Scale = *s
	}
}

func (e *Entity) AttachRenderer(r Renderer) {
	e.Renderers = append(e.Renderers, r)
}
