package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// BoneHandle is a live, writable bone: a world matrix to read and a
// local pose to set. Entities satisfy it.
type BoneHandle interface {
	TransformSource
	SetLocalPose(t *mgl32.Vec3, r *mgl32.Quat, s *mgl32.Vec3)
}

// Controller routes poses into bones by name. It satisfies the animation
// player's sink interface, reporting false for names the skeleton does
// not carry so the player can apply its unmatched-channel policy.
type Controller struct {
	inst    *Instance
	handles []BoneHandle
}

func NewController(inst *Instance, handles []BoneHandle) (*Controller, error) {
	if len(handles) != len(inst.skel.Bones) {
		return nil, errors.Errorf("Got %d bone handles for %d bones", len(handles), len(inst.skel.Bones))
	}
	return &Controller{inst: inst, handles: handles}, nil
}

func (c *Controller) Instance() *Instance {
	return c.inst
}

func (c *Controller) Skeleton() *Skeleton {
	return c.inst.skel
}

// ApplyPose sets the named bone's local pose. Nil components keep their
// current value.
func (c *Controller) ApplyPose(name string, t *mgl32.Vec3, r *mgl32.Quat, s *mgl32.Vec3) bool {
	i, ok := c.inst.skel.BoneIndex(name)
	if !ok {
		return false
	}
	c.handles[i].SetLocalPose(t, r, s)
	return true
}

// ResetBindPose puts every bone back to the pose it was parsed with.
func (c *Controller) ResetBindPose() {
	for i := range c.handles {
		b := &c.inst.skel.Bones[i]
		t, r, s := b.Translation, b.Rotation, b.Scale
		c.handles[i].SetLocalPose(&t, &r, &s)
	}
}

// Update re-evaluates the bone palette from the current entity poses.
func (c *Controller) Update() {
	c.inst.Update()
}
