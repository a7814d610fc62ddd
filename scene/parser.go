package scene

import (
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mirmik/glb_browser/anim"
	"github.com/mirmik/glb_browser/gltf"
	"github.com/mirmik/glb_browser/utils"
)

type parser struct {
	doc   *gltf.Document
	dec   *gltf.Decoder
	out   *Scene
	trace *utils.Logger

	warnedStep bool
}

// Parse builds a Scene snapshot from a decoded document and its binary
// chunk.
func Parse(doc *gltf.Document, bin []byte) (*Scene, error) {
	return ParseWithTrace(doc, bin, nil)
}

func ParseWithTrace(doc *gltf.Document, bin []byte, trace *utils.Logger) (*Scene, error) {
	p := &parser{
		doc:   doc,
		dec:   gltf.NewDecoder(doc, bin),
		trace: trace,
		out: &Scene{
			Generator: doc.Asset.Generator,
		},
	}

	if err := p.parseNodes(); err != nil {
		return nil, err
	}
	p.parseRoots()
	if err := p.parseMaterials(); err != nil {
		return nil, err
	}
	if err := p.parseTextures(); err != nil {
		return nil, err
	}
	if err := p.parseMeshes(); err != nil {
		return nil, err
	}
	if err := p.parseSkins(); err != nil {
		return nil, err
	}
	if err := p.parseAnimations(); err != nil {
		return nil, err
	}
	return p.out, nil
}

func (p *parser) parseNodes() error {
	p.out.Nodes = make([]Node, len(p.doc.Nodes))
	for i := range p.doc.Nodes {
		src := &p.doc.Nodes[i]
		if len(src.Matrix) != 0 {
			return errors.Wrapf(gltf.ErrUnsupported, "Node %d carries a matrix transform", i)
		}

		node := Node{
			Name:        utils.CleanName(src.Name),
			Translation: mgl32.Vec3{0, 0, 0},
			Rotation:    mgl32.QuatIdent(),
			Scale:       mgl32.Vec3{1, 1, 1},
			Mesh:        -1,
			Skin:        -1,
		}
		if node.Name == "" {
			node.Name = fmt.Sprintf("node_%d", i)
		}
		if len(src.Translation) == 3 {
			node.Translation = mgl32.Vec3{src.Translation[0], src.Translation[1], src.Translation[2]}
		}
		if len(src.Rotation) == 4 {
			node.Rotation = mgl32.Quat{
				W: src.Rotation[3],
				V: mgl32.Vec3{src.Rotation[0], src.Rotation[1], src.Rotation[2]},
			}
		}
		if len(src.Scale) == 3 {
			node.Scale = mgl32.Vec3{src.Scale[0], src.Scale[1], src.Scale[2]}
		}

		for _, child := range src.Children {
			if child < 0 || child >= len(p.doc.Nodes) {
				return errors.Wrapf(ErrReference, "Node %d child %d out of range [0:%d)", i, child, len(p.doc.Nodes))
			}
			node.Children = append(node.Children, child)
		}
		if src.Mesh != nil {
			if *src.Mesh < 0 || *src.Mesh >= len(p.doc.Meshes) {
				return errors.Wrapf(ErrReference, "Node %d mesh %d out of range [0:%d)", i, *src.Mesh, len(p.doc.Meshes))
			}
			node.Mesh = *src.Mesh
		}
		if src.Skin != nil {
			if *src.Skin < 0 || *src.Skin >= len(p.doc.Skins) {
				return errors.Wrapf(ErrReference, "Node %d skin %d out of range [0:%d)", i, *src.Skin, len(p.doc.Skins))
			}
			node.Skin = *src.Skin
		}
		p.out.Nodes[i] = node
	}
	p.trace.Printf("nodes: %d", len(p.out.Nodes))
	return nil
}

func (p *parser) parseRoots() {
	sceneIndex := 0
	if p.doc.Scene != nil {
		sceneIndex = *p.doc.Scene
	}
	if sceneIndex < 0 || sceneIndex >= len(p.doc.Scenes) {
		return
	}
	for _, n := range p.doc.Scenes[sceneIndex].Nodes {
		if n >= 0 && n < len(p.out.Nodes) {
			p.out.Roots = append(p.out.Roots, n)
		}
	}
	p.trace.Printf("roots: %v", p.out.Roots)
}

func (p *parser) parseMaterials() error {
	for i := range p.doc.Materials {
		src := &p.doc.Materials[i]
		mat := Material{
			Name:             utils.CleanName(src.Name),
			BaseColorFactor:  utils.White(),
			BaseColorTexture: -1,
			DoubleSided:      src.DoubleSided,
		}
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material_%d", i)
		}
		if pbr := src.PBRMetallicRoughness; pbr != nil {
			if len(pbr.BaseColorFactor) == 4 {
				mat.BaseColorFactor = utils.NewColorFloatA(pbr.BaseColorFactor)
			}
			if pbr.BaseColorTexture != nil {
				ti := pbr.BaseColorTexture.Index
				if ti < 0 || ti >= len(p.doc.Textures) {
					return errors.Wrapf(ErrReference, "Material %d texture %d out of range [0:%d)", i, ti, len(p.doc.Textures))
				}
				mat.BaseColorTexture = ti
			}
		}
		p.out.Materials = append(p.out.Materials, mat)
	}
	return nil
}

func (p *parser) parseTextures() error {
	for i := range p.doc.Textures {
		src := &p.doc.Textures[i]
		tex := Texture{Name: utils.CleanName(src.Name)}
		if tex.Name == "" {
			tex.Name = fmt.Sprintf("texture_%d", i)
		}
		if src.Source != nil {
			si := *src.Source
			if si < 0 || si >= len(p.doc.Images) {
				return errors.Wrapf(ErrReference, "Texture %d image %d out of range [0:%d)", i, si, len(p.doc.Images))
			}
			img := &p.doc.Images[si]
			tex.MimeType = img.MimeType
			switch {
			case img.BufferView != nil:
				data, err := p.dec.ViewBytes(*img.BufferView)
				if err != nil {
					return errors.Wrapf(err, "Failed to read image %d bytes", si)
				}
				tex.Data = append([]byte(nil), data...)
				tex.Source = "buffer"
			case img.URI != "":
				// Only embedded images are decoded; everything else is a
				// soft skip.
				log.Printf("[scene] Skipping image %d with external uri %q", si, img.URI)
				tex.Source = img.URI
			}
		}
		p.out.Textures = append(p.out.Textures, tex)
	}
	return nil
}

func (p *parser) parseMeshes() error {
	p.out.MeshPrimitives = make([][]int, len(p.doc.Meshes))
	for mi := range p.doc.Meshes {
		src := &p.doc.Meshes[mi]
		baseName := utils.CleanName(src.Name)
		if baseName == "" {
			baseName = fmt.Sprintf("mesh_%d", mi)
		}
		for pi := range src.Primitives {
			mesh, err := p.parsePrimitive(baseName, pi, &src.Primitives[pi])
			if err != nil {
				return errors.Wrapf(err, "Failed to parse mesh %q primitive %d", baseName, pi)
			}
			p.out.MeshPrimitives[mi] = append(p.out.MeshPrimitives[mi], len(p.out.Meshes))
			p.out.Meshes = append(p.out.Meshes, mesh)
		}
	}
	return nil
}

// parsePrimitive reads one primitive's attributes and expands them
// through the index buffer into dense arrays re-indexed 0..N-1.
func (p *parser) parsePrimitive(baseName string, pi int, prim *gltf.Primitive) (*Mesh, error) {
	if prim.Mode != nil && *prim.Mode != 4 {
		return nil, errors.Wrapf(gltf.ErrUnsupported, "Primitive mode %d (only triangles)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, errors.Wrap(gltf.ErrFormat, "Primitive has no POSITION attribute")
	}
	positions, err := p.dec.Vec3s(posAccessor)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read POSITION")
	}

	var normals []mgl32.Vec3
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = p.dec.Vec3s(idx); err != nil {
			return nil, errors.Wrapf(err, "Failed to read NORMAL")
		}
		if len(normals) != len(positions) {
			return nil, errors.Wrapf(gltf.ErrFormat, "NORMAL count %d != POSITION count %d", len(normals), len(positions))
		}
	}
	var uvs []mgl32.Vec2
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = p.dec.Vec2s(idx); err != nil {
			return nil, errors.Wrapf(err, "Failed to read TEXCOORD_0")
		}
		if len(uvs) != len(positions) {
			return nil, errors.Wrapf(gltf.ErrFormat, "TEXCOORD_0 count %d != POSITION count %d", len(uvs), len(positions))
		}
	}
	var joints [][4]uint16
	if idx, ok := prim.Attributes["JOINTS_0"]; ok {
		if joints, err = p.dec.Joints(idx); err != nil {
			return nil, errors.Wrapf(err, "Failed to read JOINTS_0")
		}
		if len(joints) != len(positions) {
			return nil, errors.Wrapf(gltf.ErrFormat, "JOINTS_0 count %d != POSITION count %d", len(joints), len(positions))
		}
	}
	var weights [][4]float32
	if idx, ok := prim.Attributes["WEIGHTS_0"]; ok {
		if weights, err = p.dec.Weights(idx); err != nil {
			return nil, errors.Wrapf(err, "Failed to read WEIGHTS_0")
		}
		if len(weights) != len(positions) {
			return nil, errors.Wrapf(gltf.ErrFormat, "WEIGHTS_0 count %d != POSITION count %d", len(weights), len(positions))
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = p.dec.Indices(*prim.Indices); err != nil {
			return nil, errors.Wrapf(err, "Failed to read indices")
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	material := -1
	if prim.Material != nil {
		if *prim.Material < 0 || *prim.Material >= len(p.out.Materials) {
			return nil, errors.Wrapf(ErrReference, "Material %d out of range [0:%d)", *prim.Material, len(p.out.Materials))
		}
		material = *prim.Material
	}

	mesh := &Mesh{
		Name:      fmt.Sprintf("%s_prim%d", baseName, pi),
		Material:  material,
		Positions: make([]mgl32.Vec3, len(indices)),
		Indices:   make([]uint32, len(indices)),
	}
	if normals != nil {
		mesh.Normals = make([]mgl32.Vec3, len(indices))
	}
	if uvs != nil {
		mesh.UVs = make([]mgl32.Vec2, len(indices))
	}
	if joints != nil {
		mesh.Joints = make([][4]uint16, len(indices))
	}
	if weights != nil {
		mesh.Weights = make([][4]float32, len(indices))
	}
	for k, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, errors.Wrapf(ErrReference, "Index %d outside %d vertices", idx, len(positions))
		}
		mesh.Positions[k] = positions[idx]
		if normals != nil {
			mesh.Normals[k] = normals[idx]
		}
		if uvs != nil {
			mesh.UVs[k] = uvs[idx]
		}
		if joints != nil {
			mesh.Joints[k] = joints[idx]
		}
		if weights != nil {
			mesh.Weights[k] = weights[idx]
		}
		mesh.Indices[k] = uint32(k)
	}
	p.trace.Printf("mesh %s: %d vertices (%d source), skinned %v",
		mesh.Name, len(mesh.Positions), len(positions), mesh.Skinned())
	return mesh, nil
}

func (p *parser) parseSkins() error {
	for i := range p.doc.Skins {
		src := &p.doc.Skins[i]
		skin := Skin{
			Name:     utils.CleanName(src.Name),
			Armature: -1,
		}
		if skin.Name == "" {
			skin.Name = fmt.Sprintf("skin_%d", i)
		}
		for _, j := range src.Joints {
			if j < 0 || j >= len(p.out.Nodes) {
				return errors.Wrapf(ErrReference, "Skin %d joint node %d out of range [0:%d)", i, j, len(p.out.Nodes))
			}
			skin.Joints = append(skin.Joints, j)
		}
		if src.Skeleton != nil {
			if *src.Skeleton < 0 || *src.Skeleton >= len(p.out.Nodes) {
				return errors.Wrapf(ErrReference, "Skin %d skeleton node %d out of range [0:%d)", i, *src.Skeleton, len(p.out.Nodes))
			}
			skin.Armature = *src.Skeleton
		}

		if src.InverseBindMatrices != nil {
			ibms, err := p.dec.Mat4s(*src.InverseBindMatrices)
			if err != nil {
				return errors.Wrapf(err, "Failed to read skin %d inverse bind matrices", i)
			}
			if len(ibms) != len(skin.Joints) {
				return errors.Wrapf(gltf.ErrFormat,
					"Skin %d has %d inverse bind matrices for %d joints", i, len(ibms), len(skin.Joints))
			}
			skin.InverseBind = ibms
		} else {
			skin.InverseBind = make([]mgl32.Mat4, len(skin.Joints))
			for k := range skin.InverseBind {
				skin.InverseBind[k] = mgl32.Ident4()
			}
		}
		p.out.Skins = append(p.out.Skins, skin)
	}
	return nil
}

func (p *parser) parseAnimations() error {
	for ai := range p.doc.Animations {
		src := &p.doc.Animations[ai]
		name := utils.CleanName(src.Name)
		if name == "" {
			name = fmt.Sprintf("animation_%d", ai)
		}
		clip := anim.NewClip(name, 1)

		for ci := range src.Channels {
			ch := &src.Channels[ci]

			var path anim.Path
			switch ch.Target.Path {
			case "translation":
				path = anim.PathTranslation
			case "rotation":
				path = anim.PathRotation
			case "scale":
				path = anim.PathScale
			case "weights":
				// Morph targets are out of scope.
				p.trace.Printf("clip %s: skipping weights channel %d", name, ci)
				continue
			default:
				return errors.Wrapf(gltf.ErrFormat, "Clip %q channel %d has unknown path %q", name, ci, ch.Target.Path)
			}
			if ch.Target.Node == nil {
				p.trace.Printf("clip %s: channel %d has no target node", name, ci)
				continue
			}
			nodeIndex := *ch.Target.Node
			if nodeIndex < 0 || nodeIndex >= len(p.out.Nodes) {
				return errors.Wrapf(ErrReference, "Clip %q channel %d node %d out of range [0:%d)", name, ci, nodeIndex, len(p.out.Nodes))
			}
			if ch.Sampler < 0 || ch.Sampler >= len(src.Samplers) {
				return errors.Wrapf(ErrReference, "Clip %q channel %d sampler %d out of range [0:%d)", name, ci, ch.Sampler, len(src.Samplers))
			}
			sampler := &src.Samplers[ch.Sampler]

			switch sampler.Interpolation {
			case "", "LINEAR":
			case "STEP":
				if !p.warnedStep {
					p.warnedStep = true
					log.Printf("[scene] STEP interpolation sampled linearly (clip %q)", name)
				}
			case "CUBICSPLINE":
				return errors.Wrapf(gltf.ErrUnsupported, "Clip %q uses CUBICSPLINE interpolation", name)
			default:
				return errors.Wrapf(gltf.ErrFormat, "Clip %q has unknown interpolation %q", name, sampler.Interpolation)
			}

			times, err := p.dec.Floats(sampler.Input)
			if err != nil {
				return errors.Wrapf(err, "Failed to read clip %q channel %d times", name, ci)
			}
			target := clip.Channel(p.out.Nodes[nodeIndex].Name)

			switch path {
			case anim.PathTranslation:
				values, err := p.dec.Vec3s(sampler.Output)
				if err != nil {
					return errors.Wrapf(err, "Failed to read clip %q channel %d translations", name, ci)
				}
				if len(values) != len(times) {
					return errors.Wrapf(gltf.ErrFormat, "Clip %q channel %d: %d values for %d times", name, ci, len(values), len(times))
				}
				target.TranslationTimes = times
				target.Translations = values
			case anim.PathRotation:
				values, err := p.dec.Vec4s(sampler.Output)
				if err != nil {
					return errors.Wrapf(err, "Failed to read clip %q channel %d rotations", name, ci)
				}
				if len(values) != len(times) {
					return errors.Wrapf(gltf.ErrFormat, "Clip %q channel %d: %d values for %d times", name, ci, len(values), len(times))
				}
				quats := make([]mgl32.Quat, len(values))
				for k, v := range values {
					quats[k] = mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
				}
				target.RotationTimes = times
				target.Rotations = quats
			case anim.PathScale:
				values, err := p.dec.Vec3s(sampler.Output)
				if err != nil {
					return errors.Wrapf(err, "Failed to read clip %q channel %d scales", name, ci)
				}
				if len(values) != len(times) {
					return errors.Wrapf(gltf.ErrFormat, "Clip %q channel %d: %d values for %d times", name, ci, len(values), len(times))
				}
				target.ScaleTimes = times
				target.Scales = values
			}
		}

		clip.RecomputeDuration()
		p.trace.Printf("clip %s: %d channels, %.3fs", name, len(clip.Channels), clip.Duration)
		p.out.Clips = append(p.out.Clips, clip)
	}
	return nil
}
