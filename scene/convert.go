package scene

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirmik/glb_browser/utils"
)

// The Y-up to Z-up basis change is a +90 degree rotation about X. It is
// applied as exact component permutations so repeated conversions never
// accumulate float error; the matrix form is used only to conjugate
// inverse-bind matrices.
var (
	yToZMat = mgl32.Mat4{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, -1, 0, 0,
		0, 0, 0, 1,
	}
	yToZMatT = yToZMat.Transpose()
)

func yUpToZUpVec(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v[0], -v[2], v[1]}
}

func yUpToZUpQuat(q mgl32.Quat) mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.V[0], -q.V[2], q.V[1]}}
}

func yUpToZUpAxes(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[2], v[1]}
}

// ConvertYUpToZUp rebases the whole snapshot from glTF's Y-up frame into
// a Z-up frame: positions and translations map (x,y,z) to (x,-z,y),
// rotations get the matching quaternion axis permutation, per-axis
// scales swap their Y and Z components, and inverse-bind matrices are
// conjugated with the (orthogonal) conversion matrix.
func ConvertYUpToZUp(s *Scene) {
	for i := range s.Nodes {
		n := &s.Nodes[i]
		n.Translation = yUpToZUpVec(n.Translation)
		n.Rotation = yUpToZUpQuat(n.Rotation)
		n.Scale = yUpToZUpAxes(n.Scale)
	}
	for _, m := range s.Meshes {
		for k := range m.Positions {
			m.Positions[k] = yUpToZUpVec(m.Positions[k])
		}
		for k := range m.Normals {
			m.Normals[k] = yUpToZUpVec(m.Normals[k])
		}
	}
	for si := range s.Skins {
		ibms := s.Skins[si].InverseBind
		for k := range ibms {
			ibms[k] = yToZMat.Mul4(ibms[k]).Mul4(yToZMatT)
		}
	}
	for _, clip := range s.Clips {
		for _, ch := range clip.Channels {
			for k := range ch.Translations {
				ch.Translations[k] = yUpToZUpVec(ch.Translations[k])
			}
			for k := range ch.Rotations {
				ch.Rotations[k] = yUpToZUpQuat(ch.Rotations[k])
			}
			for k := range ch.Scales {
				ch.Scales[k] = yUpToZUpAxes(ch.Scales[k])
			}
		}
	}
}

// NormalizeScale bakes a non-unit scale on the scene root into the rest
// of the data: the root scale becomes (1,1,1), every descendant
// translation and every translation keyframe is multiplied by the
// factor, and every inverse-bind matrix is left-multiplied by the root
// scale matrix, which keeps skinned bind-pose world positions unchanged.
// Running it twice is a no-op.
func NormalizeScale(s *Scene) {
	if len(s.Roots) == 0 {
		return
	}
	root := &s.Nodes[s.Roots[0]]
	if root.Scale.ApproxEqualThreshold(mgl32.Vec3{1, 1, 1}, 1e-6) {
		return
	}
	if !utils.IsUniform(root.Scale, 1e-5) {
		log.Printf("[scene] Root %q scale %v is not uniform, normalizing by x component", root.Name, root.Scale)
	}
	factor := root.Scale[0]
	root.Scale = mgl32.Vec3{1, 1, 1}

	visited := make(map[int]bool)
	stack := append([]int(nil), root.Children...)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if idx < 0 || idx >= len(s.Nodes) || visited[idx] {
			continue
		}
		visited[idx] = true
		n := &s.Nodes[idx]
		n.Translation = n.Translation.Mul(factor)
		stack = append(stack, n.Children...)
	}

	for _, clip := range s.Clips {
		for _, ch := range clip.Channels {
			for k := range ch.Translations {
				ch.Translations[k] = ch.Translations[k].Mul(factor)
			}
		}
	}

	scaleMat := mgl32.Scale3D(factor, factor, factor)
	for si := range s.Skins {
		ibms := s.Skins[si].InverseBind
		for k := range ibms {
			ibms[k] = scaleMat.Mul4(ibms[k])
		}
	}
}

// ApplyBlenderZUpFix compensates Blender's Z-up GLB exports, which bake
// a -90 degree X rotation into scene roots and expect the first joint to
// be counter-rotated. Heuristic for that exporter only, not a
// general-purpose transform.
func ApplyBlenderZUpFix(s *Scene) {
	minus90 := mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0})
	plus90 := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{1, 0, 0})

	for _, ri := range s.Roots {
		n := &s.Nodes[ri]
		n.Rotation = minus90.Mul(n.Rotation)
	}

	if len(s.Skins) == 0 || len(s.Skins[0].Joints) == 0 {
		return
	}
	joint := &s.Nodes[s.Skins[0].Joints[0]]
	joint.Rotation = plus90.Mul(joint.Rotation)
	joint.Scale = yUpToZUpAxes(joint.Scale)

	for _, clip := range s.Clips {
		ch, ok := clip.Channels[joint.Name]
		if !ok {
			continue
		}
		for k := range ch.Rotations {
			ch.Rotations[k] = plus90.Mul(ch.Rotations[k])
		}
		for k := range ch.Translations {
			ch.Translations[k] = yUpToZUpVec(ch.Translations[k])
		}
		for k := range ch.Scales {
			ch.Scales[k] = yUpToZUpAxes(ch.Scales[k])
		}
	}
}
