package gltf

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Document is the subset of the glTF 2.0 JSON tree this loader consumes.
// Optional index references are pointers so that "absent" and "zero" stay
// distinguishable.
type Document struct {
	Asset       Asset        `json:"asset"`
	Scene       *int         `json:"scene"`
	Scenes      []Scene      `json:"scenes"`
	Nodes       []Node       `json:"nodes"`
	Meshes      []Mesh       `json:"meshes"`
	Accessors   []Accessor   `json:"accessors"`
	BufferViews []BufferView `json:"bufferViews"`
	Buffers     []Buffer     `json:"buffers"`
	Materials   []Material   `json:"materials"`
	Textures    []Texture    `json:"textures"`
	Images      []Image      `json:"images"`
	Skins       []Skin       `json:"skins"`
	Animations  []Animation  `json:"animations"`
}

type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}

type Scene struct {
	Name  string `json:"name"`
	Nodes []int  `json:"nodes"`
}

type Node struct {
	Name        string    `json:"name"`
	Children    []int     `json:"children"`
	Mesh        *int      `json:"mesh"`
	Skin        *int      `json:"skin"`
	Matrix      []float32 `json:"matrix"`
	Translation []float32 `json:"translation"`
	Rotation    []float32 `json:"rotation"` // x, y, z, w
	Scale       []float32 `json:"scale"`
}

type Mesh struct {
	Name       string      `json:"name"`
	Primitives []Primitive `json:"primitives"`
}

type Primitive struct {
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices"`
	Material   *int             `json:"material"`
	Mode       *int             `json:"mode"`
	Targets    []map[string]int `json:"targets"`
}

type Accessor struct {
	BufferView    *int            `json:"bufferView"`
	ByteOffset    int             `json:"byteOffset"`
	ComponentType int             `json:"componentType"`
	Count         int             `json:"count"`
	Type          string          `json:"type"`
	Normalized    bool            `json:"normalized"`
	Sparse        *AccessorSparse `json:"sparse"`
}

// AccessorSparse is decoded only far enough to detect presence.
type AccessorSparse struct {
	Count int `json:"count"`
}

type BufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride"`
	Target     int `json:"target"`
}

type Buffer struct {
	ByteLength int    `json:"byteLength"`
	URI        string `json:"uri"`
}

type Material struct {
	Name                 string                `json:"name"`
	PBRMetallicRoughness *PBRMetallicRoughness `json:"pbrMetallicRoughness"`
	DoubleSided          bool                  `json:"doubleSided"`
}

type PBRMetallicRoughness struct {
	BaseColorFactor  []float32    `json:"baseColorFactor"`
	BaseColorTexture *TextureInfo `json:"baseColorTexture"`
}

type TextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord"`
}

type Texture struct {
	Name   string `json:"name"`
	Source *int   `json:"source"`
}

type Image struct {
	Name       string `json:"name"`
	MimeType   string `json:"mimeType"`
	BufferView *int   `json:"bufferView"`
	URI        string `json:"uri"`
}

type Skin struct {
	Name                string `json:"name"`
	InverseBindMatrices *int   `json:"inverseBindMatrices"`
	Skeleton            *int   `json:"skeleton"`
	Joints              []int  `json:"joints"`
}

type Animation struct {
	Name     string             `json:"name"`
	Channels []AnimationChannel `json:"channels"`
	Samplers []AnimationSampler `json:"samplers"`
}

type AnimationChannel struct {
	Sampler int                    `json:"sampler"`
	Target  AnimationChannelTarget `json:"target"`
}

type AnimationChannelTarget struct {
	Node *int   `json:"node"`
	Path string `json:"path"`
}

type AnimationSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation"`
}

func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrFormat, "Failed to unmarshal document: %v", err)
	}
	return &doc, nil
}
