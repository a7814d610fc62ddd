package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/gltf"
	"github.com/mirmik/glb_browser/scene"
)

// MaxBones is the bone-palette size renderers allocate for; skins with
// more joints are rejected.
const MaxBones = 256

// Bone is one joint of a skeleton in joint order. Parent indexes Bones,
// -1 for roots. The bind pose is the joint node's local TRS at parse
// time.
type Bone struct {
	Index       int
	Name        string
	Parent      int
	InverseBind mgl32.Mat4
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// Skeleton is the static bone hierarchy of one skin.
type Skeleton struct {
	Bones  []Bone
	Roots  []int
	byName map[string]int
}

func (s *Skeleton) BoneCount() int {
	return len(s.Bones)
}

// BoneIndex resolves a bone by name.
func (s *Skeleton) BoneIndex(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Build derives the bone hierarchy of one skin. Parents are discovered
// by scanning every other joint's node children (J is small, capped by
// MaxBones); roots are exactly the bones left parentless. A joint set
// whose parent links do not terminate is rejected.
func Build(s *scene.Scene, skinIndex int) (*Skeleton, error) {
	if skinIndex < 0 || skinIndex >= len(s.Skins) {
		return nil, errors.Wrapf(scene.ErrReference, "Skin index %d out of range [0:%d)", skinIndex, len(s.Skins))
	}
	skin := &s.Skins[skinIndex]
	if len(skin.Joints) > MaxBones {
		return nil, errors.Wrapf(gltf.ErrUnsupported, "Skin %q has %d joints, limit is %d", skin.Name, len(skin.Joints), MaxBones)
	}
	if len(skin.InverseBind) != len(skin.Joints) {
		return nil, errors.Wrapf(gltf.ErrFormat,
			"Skin %q has %d inverse bind matrices for %d joints", skin.Name, len(skin.InverseBind), len(skin.Joints))
	}

	skel := &Skeleton{
		Bones:  make([]Bone, 0, len(skin.Joints)),
		byName: make(map[string]int, len(skin.Joints)),
	}
	for bi, nodeIndex := range skin.Joints {
		if nodeIndex < 0 || nodeIndex >= len(s.Nodes) {
			return nil, errors.Wrapf(scene.ErrReference,
				"Skin %q joint %d references node %d of %d", skin.Name, bi, nodeIndex, len(s.Nodes))
		}
		node := &s.Nodes[nodeIndex]
		skel.Bones = append(skel.Bones, Bone{
			Index:       bi,
			Name:        node.Name,
			Parent:      -1,
			InverseBind: skin.InverseBind[bi],
			Translation: node.Translation,
			Rotation:    node.Rotation,
			Scale:       node.Scale,
		})
		skel.byName[node.Name] = bi
	}

	for bi, ni := range skin.Joints {
	parentScan:
		for bj, nj := range skin.Joints {
			if bi == bj {
				continue
			}
			for _, child := range s.Nodes[nj].Children {
				if child == ni {
					skel.Bones[bi].Parent = bj
					break parentScan
				}
			}
		}
	}

	for i := range skel.Bones {
		if skel.Bones[i].Parent == -1 {
			skel.Roots = append(skel.Roots, i)
		}
	}

	for i := range skel.Bones {
		steps := 0
		for j := i; skel.Bones[j].Parent != -1; j = skel.Bones[j].Parent {
			steps++
			if steps > len(skel.Bones) {
				return nil, errors.Wrapf(scene.ErrReference, "Bone %q never reaches a root (parent cycle)", skel.Bones[i].Name)
			}
		}
	}
	return skel, nil
}
