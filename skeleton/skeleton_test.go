package skeleton_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/gltf"
	"github.com/mirmik/glb_browser/scene"
	"github.com/mirmik/glb_browser/skeleton"
)

// limbScene is a three-joint chain: hip -> knee -> foot, with the knee
// and foot one unit above their parents.
func limbScene() *scene.Scene {
	node := func(name string, ty float32, children ...int) scene.Node {
		return scene.Node{
			Name:        name,
			Translation: mgl32.Vec3{0, ty, 0},
			Rotation:    mgl32.QuatIdent(),
			Scale:       mgl32.Vec3{1, 1, 1},
			Children:    children,
			Mesh:        -1,
			Skin:        -1,
		}
	}
	return &scene.Scene{
		Nodes: []scene.Node{
			node("hip", 0, 1),
			node("knee", 1, 2),
			node("foot", 1),
		},
		Roots: []int{0},
		Skins: []scene.Skin{{
			Name:   "limb",
			Joints: []int{0, 1, 2},
			InverseBind: []mgl32.Mat4{
				mgl32.Ident4(),
				mgl32.Translate3D(0, -1, 0),
				mgl32.Translate3D(0, -2, 0),
			},
			Armature: 0,
		}},
	}
}

func TestBuild(t *testing.T) {
	skel, err := skeleton.Build(limbScene(), 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if skel.BoneCount() != 3 {
		t.Fatalf("bones = %d; expected 3", skel.BoneCount())
	}
	wantParents := []int{-1, 0, 1}
	for i, b := range skel.Bones {
		if b.Index != i {
			t.Errorf("bone %d carries index %d", i, b.Index)
		}
		if b.Parent != wantParents[i] {
			t.Errorf("bone %q parent = %d; expected %d", b.Name, b.Parent, wantParents[i])
		}
	}
	if len(skel.Roots) != 1 || skel.Roots[0] != 0 {
		t.Errorf("roots = %v; expected [0]", skel.Roots)
	}

	knee := skel.Bones[1]
	if knee.Name != "knee" || knee.Translation != (mgl32.Vec3{0, 1, 0}) || knee.Scale != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("knee bind pose not copied: %+v", knee)
	}
	if !knee.InverseBind.ApproxEqual(mgl32.Translate3D(0, -1, 0)) {
		t.Errorf("knee inverse bind = %v", knee.InverseBind)
	}

	if i, ok := skel.BoneIndex("foot"); !ok || i != 2 {
		t.Errorf("BoneIndex(foot) = %d, %v; expected 2, true", i, ok)
	}
	if _, ok := skel.BoneIndex("tail"); ok {
		t.Error("BoneIndex resolved a name the skeleton does not carry")
	}
}

// Parent discovery goes through node children, so the joint order in the
// skin must not matter.
func TestBuildJointOrder(t *testing.T) {
	s := limbScene()
	s.Skins[0].Joints = []int{2, 0, 1}
	s.Skins[0].InverseBind = []mgl32.Mat4{
		mgl32.Translate3D(0, -2, 0),
		mgl32.Ident4(),
		mgl32.Translate3D(0, -1, 0),
	}

	skel, err := skeleton.Build(s, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Bone order follows joint order: foot, hip, knee.
	wantParents := []int{2, -1, 1}
	for i, b := range skel.Bones {
		if b.Parent != wantParents[i] {
			t.Errorf("bone %q parent = %d; expected %d", b.Name, b.Parent, wantParents[i])
		}
	}
	if len(skel.Roots) != 1 || skel.Roots[0] != 1 {
		t.Errorf("roots = %v; expected [1]", skel.Roots)
	}
}

func TestBuildMultipleRoots(t *testing.T) {
	s := limbScene()
	// Detach the foot from the knee: two independent chains in one skin.
	s.Nodes[1].Children = nil

	skel, err := skeleton.Build(s, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(skel.Roots) != 2 {
		t.Errorf("roots = %v; expected two", skel.Roots)
	}
}

func TestBuildErrors(t *testing.T) {
	cycled := limbScene()
	cycled.Nodes[2].Children = []int{0}

	badJoint := limbScene()
	badJoint.Skins[0].Joints = []int{0, 1, 7}

	badIBM := limbScene()
	badIBM.Skins[0].InverseBind = badIBM.Skins[0].InverseBind[:2]

	huge := limbScene()
	huge.Skins[0].Joints = make([]int, skeleton.MaxBones+1)

	tests := []struct {
		name string
		s    *scene.Scene
		skin int
		want error
	}{
		{"skin out of range", limbScene(), 1, scene.ErrReference},
		{"negative skin", limbScene(), -1, scene.ErrReference},
		{"joint node out of range", badJoint, 0, scene.ErrReference},
		{"inverse bind count mismatch", badIBM, 0, gltf.ErrFormat},
		{"too many joints", huge, 0, gltf.ErrUnsupported},
		{"parent cycle", cycled, 0, scene.ErrReference},
	}
	for _, test := range tests {
		_, err := skeleton.Build(test.s, test.skin)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: err = %v; expected %v", test.name, err, test.want)
		}
	}
}

// staticXform is a fixed world matrix standing in for a live entity.
type staticXform mgl32.Mat4

func (x *staticXform) WorldMatrix() mgl32.Mat4 {
	return mgl32.Mat4(*x)
}

func xform(m mgl32.Mat4) *staticXform {
	x := staticXform(m)
	return &x
}

func TestInstanceUpdate(t *testing.T) {
	skel, err := skeleton.Build(limbScene(), 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// The whole model sits at x=5. The knee has lifted half a unit above
	// its bind height, the foot follows rigidly.
	model := mgl32.Translate3D(5, 0, 0)
	inst, err := skeleton.NewInstance(skel, xform(model), []skeleton.TransformSource{
		xform(model),
		xform(model.Mul4(mgl32.Translate3D(0, 1.5, 0))),
		xform(model.Mul4(mgl32.Translate3D(0, 2.5, 0))),
	})
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	if len(inst.Matrices()) != 3 {
		t.Fatalf("palette size = %d; expected 3", len(inst.Matrices()))
	}
	for i, m := range inst.Matrices() {
		if !m.ApproxEqual(mgl32.Ident4()) {
			t.Errorf("palette[%d] before Update = %v; expected identity", i, m)
		}
	}

	inst.Update()

	// The model offset cancels against the root inverse; each bone is
	// left with its deviation from bind pose.
	wants := []mgl32.Mat4{
		mgl32.Ident4(),
		mgl32.Translate3D(0, 0.5, 0),
		mgl32.Translate3D(0, 0.5, 0),
	}
	for i, want := range wants {
		if got := inst.BoneMatrix(i); !got.ApproxEqualThreshold(want, 1e-5) {
			t.Errorf("bone %d matrix = %v; expected %v", i, got, want)
		}
	}
}

func TestNewInstanceCountMismatch(t *testing.T) {
	skel, err := skeleton.Build(limbScene(), 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := skeleton.NewInstance(skel, xform(mgl32.Ident4()), nil); err == nil {
		t.Error("expected an error for a transform source count mismatch")
	}
}

// fakeBone records the poses the controller writes.
type fakeBone struct {
	world mgl32.Mat4
	t     *mgl32.Vec3
	r     *mgl32.Quat
	s     *mgl32.Vec3
	sets  int
}

func (b *fakeBone) WorldMatrix() mgl32.Mat4 {
	return b.world
}

func (b *fakeBone) SetLocalPose(t *mgl32.Vec3, r *mgl32.Quat, s *mgl32.Vec3) {
	b.t, b.r, b.s = t, r, s
	b.sets++
}

func newTestController(t *testing.T) (*skeleton.Controller, []*fakeBone) {
	t.Helper()
	skel, err := skeleton.Build(limbScene(), 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	bones := []*fakeBone{
		{world: mgl32.Ident4()},
		{world: mgl32.Translate3D(0, 1, 0)},
		{world: mgl32.Translate3D(0, 2, 0)},
	}
	sources := make([]skeleton.TransformSource, len(bones))
	handles := make([]skeleton.BoneHandle, len(bones))
	for i, b := range bones {
		sources[i] = b
		handles[i] = b
	}
	inst, err := skeleton.NewInstance(skel, xform(mgl32.Ident4()), sources)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	ctrl, err := skeleton.NewController(inst, handles)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl, bones
}

func TestControllerApplyPose(t *testing.T) {
	ctrl, bones := newTestController(t)

	tr := mgl32.Vec3{0, 3, 0}
	if !ctrl.ApplyPose("knee", &tr, nil, nil) {
		t.Fatal("ApplyPose(knee) reported no such bone")
	}
	if bones[1].sets != 1 || bones[1].t == nil || *bones[1].t != tr {
		t.Errorf("knee handle got t=%v after %d sets", bones[1].t, bones[1].sets)
	}
	if bones[1].r != nil || bones[1].s != nil {
		t.Error("nil pose components must be passed through untouched")
	}
	if bones[0].sets != 0 || bones[2].sets != 0 {
		t.Error("ApplyPose touched bones it was not aimed at")
	}

	if ctrl.ApplyPose("tail", &tr, nil, nil) {
		t.Error("ApplyPose(tail) claimed a bone the skeleton does not carry")
	}
}

func TestControllerResetBindPose(t *testing.T) {
	ctrl, bones := newTestController(t)
	ctrl.ResetBindPose()

	wantT := []mgl32.Vec3{{0, 0, 0}, {0, 1, 0}, {0, 1, 0}}
	for i, b := range bones {
		if b.sets != 1 {
			t.Errorf("bone %d set %d times; expected once", i, b.sets)
			continue
		}
		if b.t == nil || b.r == nil || b.s == nil {
			t.Errorf("bone %d reset left nil components", i)
			continue
		}
		if *b.t != wantT[i] || *b.r != mgl32.QuatIdent() || *b.s != (mgl32.Vec3{1, 1, 1}) {
			t.Errorf("bone %d reset to t=%v r=%v s=%v", i, *b.t, *b.r, *b.s)
		}
	}
}

func TestNewControllerCountMismatch(t *testing.T) {
	skel, err := skeleton.Build(limbScene(), 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sources := []skeleton.TransformSource{
		xform(mgl32.Ident4()), xform(mgl32.Ident4()), xform(mgl32.Ident4()),
	}
	inst, err := skeleton.NewInstance(skel, xform(mgl32.Ident4()), sources)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if _, err := skeleton.NewController(inst, nil); err == nil {
		t.Error("expected an error for a bone handle count mismatch")
	}
}
