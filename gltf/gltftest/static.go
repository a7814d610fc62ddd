package gltftest

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// 1x1 transparent PNG. The bytes only travel through buffer views, they
// are never decoded.
const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func PixelPNG() []byte {
	data, err := base64.StdEncoding.DecodeString(pixelPNG)
	if err != nil {
		panic("gltftest: bad pixel png literal: " + err.Error())
	}
	return data
}

// Static builds a document through the qmuntal modeler: a textured
// triangle on a transformed parent node and a material-less quad on its
// child. Callers may adjust the document before encoding it.
func Static(t *testing.T) *gltf.Document {
	t.Helper()
	doc := gltf.NewDocument()

	triPositions := modeler.WritePosition(doc, [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
	})
	triNormals := modeler.WriteNormal(doc, [][3]float32{
		{0, 0, 1}, {0, 0, 1}, {0, 0, 1},
	})
	triUVs := modeler.WriteTextureCoord(doc, [][2]float32{
		{0, 0}, {1, 0}, {0, 1},
	})
	triIndices := modeler.WriteIndices(doc, []uint32{0, 1, 2})

	quadPositions := modeler.WritePosition(doc, [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	})
	quadIndices := modeler.WriteIndices(doc, []uint32{0, 1, 2, 0, 2, 3})

	imageIndex, err := modeler.WriteImage(doc, "px_image", "image/png", bytes.NewReader(PixelPNG()))
	if err != nil {
		t.Fatalf("write fixture image: %v", err)
	}
	doc.Samplers = append(doc.Samplers, &gltf.Sampler{
		Name:      "px_sampler",
		MinFilter: gltf.MinLinear,
		MagFilter: gltf.MagLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	})
	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    "px",
		Sampler: gltf.Index(0),
		Source:  gltf.Index(imageIndex),
	})

	color := new([4]float32)
	*color = [4]float32{1, 0.5, 0.25, 1}
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "painted",
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
			BaseColorTexture: &gltf.TextureInfo{
				Index: 0,
			},
		},
	})

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				"POSITION":   triPositions,
				"NORMAL":     triNormals,
				"TEXCOORD_0": triUVs,
			},
			Indices:  gltf.Index(triIndices),
			Material: gltf.Index(0),
		}},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "quad",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				"POSITION": quadPositions,
			},
			Indices: gltf.Index(quadIndices),
		}},
	})

	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name:        "tri_holder",
		Mesh:        gltf.Index(0),
		Children:    []uint32{1},
		Translation: [3]float32{1, 2, 3},
		Rotation:    [4]float32{0, 0, 0.70710678, 0.70710678},
		Scale:       [3]float32{2, 2, 2},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: "quad_holder",
		Mesh: gltf.Index(1),
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	return doc
}

// Encode writes the document as one binary container.
func Encode(t *testing.T, doc *gltf.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	encoder := gltf.NewEncoder(&buf)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

// StaticGLB is Static followed by Encode.
func StaticGLB(t *testing.T) []byte {
	t.Helper()
	return Encode(t, Static(t))
}
