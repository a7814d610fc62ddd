package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// TransformSource yields a live world matrix. Entities satisfy it; the
// skeleton never owns the transforms it reads.
type TransformSource interface {
	WorldMatrix() mgl32.Mat4
}

// Instance evaluates the bone-matrix palette of one skinned model
// against live transforms. Bones are driven externally (by an animation
// player or by hand); Update only reads.
type Instance struct {
	skel  *Skeleton
	root  TransformSource
	bones []TransformSource

	palette []mgl32.Mat4
}

// NewInstance binds a skeleton to its live transform sources, one per
// bone in bone order, plus the skeleton root the palette is expressed
// relative to.
func NewInstance(skel *Skeleton, root TransformSource, bones []TransformSource) (*Instance, error) {
	if len(bones) != len(skel.Bones) {
		return nil, errors.Errorf("Got %d transform sources for %d bones", len(bones), len(skel.Bones))
	}
	inst := &Instance{
		skel:    skel,
		root:    root,
		bones:   bones,
		palette: make([]mgl32.Mat4, len(skel.Bones)),
	}
	for i := range inst.palette {
		inst.palette[i] = mgl32.Ident4()
	}
	return inst, nil
}

func (inst *Instance) Skeleton() *Skeleton {
	return inst.skel
}

// Update recomputes every bone matrix from the current world transforms:
//
//	bone = rootWorldInverse * boneWorld * inverseBind
//
// The root inverse is recomputed on every call, so moving the whole
// model does not bend the skin.
func (inst *Instance) Update() {
	rootInv := inst.root.WorldMatrix().Inv()
	for i := range inst.palette {
		inst.palette[i] = rootInv.
			Mul4(inst.bones[i].WorldMatrix()).
			Mul4(inst.skel.Bones[i].InverseBind)
	}
}

// Matrices is the palette in bone order. Valid until the next Update;
// callers copy if they keep it.
func (inst *Instance) Matrices() []mgl32.Mat4 {
	return inst.palette
}

func (inst *Instance) BoneMatrix(i int) mgl32.Mat4 {
	return inst.palette[i]
}
