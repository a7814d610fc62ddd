package gltf

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// glTF component type codes.
const (
	ComponentInt8    = 5120
	ComponentUint8   = 5121
	ComponentInt16   = 5122
	ComponentUint16  = 5123
	ComponentUint32  = 5125
	ComponentFloat32 = 5126
)

func componentSize(componentType int) int {
	switch componentType {
	case ComponentInt8, ComponentUint8:
		return 1
	case ComponentInt16, ComponentUint16:
		return 2
	case ComponentUint32, ComponentFloat32:
		return 4
	}
	return 0
}

func elementComponents(accessorType string) int {
	switch accessorType {
	case "SCALAR":
		return 1
	case "VEC2":
		return 2
	case "VEC3":
		return 3
	case "VEC4":
		return 4
	case "MAT2":
		return 4
	case "MAT3":
		return 9
	case "MAT4":
		return 16
	}
	return 0
}

// Decoder reads accessor payloads out of the document and its binary
// chunk. It performs and bounds-checks all buffer-view arithmetic; the
// typed readers on top of it never convert integer data through floats.
type Decoder struct {
	doc *Document
	bin []byte
}

func NewDecoder(doc *Document, bin []byte) *Decoder {
	return &Decoder{doc: doc, bin: bin}
}

func (d *Decoder) accessor(index int) (*Accessor, error) {
	if index < 0 || index >= len(d.doc.Accessors) {
		return nil, errors.Wrapf(ErrFormat, "Accessor index %d out of range [0:%d)", index, len(d.doc.Accessors))
	}
	return &d.doc.Accessors[index], nil
}

// viewBytes returns the byte window of a buffer view inside the binary
// chunk. Only the GLB-embedded buffer is supported.
func (d *Decoder) viewBytes(viewIndex int) ([]byte, error) {
	if viewIndex < 0 || viewIndex >= len(d.doc.BufferViews) {
		return nil, errors.Wrapf(ErrFormat, "Buffer view index %d out of range [0:%d)", viewIndex, len(d.doc.BufferViews))
	}
	bv := &d.doc.BufferViews[viewIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(d.doc.Buffers) {
		return nil, errors.Wrapf(ErrFormat, "Buffer view %d references buffer %d of %d", viewIndex, bv.Buffer, len(d.doc.Buffers))
	}
	if uri := d.doc.Buffers[bv.Buffer].URI; uri != "" {
		return nil, errors.Wrapf(ErrUnsupported, "Buffer %d is external (uri %q)", bv.Buffer, uri)
	}
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > len(d.bin) {
		return nil, errors.Wrapf(ErrFormat,
			"Buffer view %d [%d:%d] outside binary chunk of size %d", viewIndex, bv.ByteOffset, bv.ByteOffset+bv.ByteLength, len(d.bin))
	}
	return d.bin[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

// ViewBytes exposes a buffer view window (used for embedded images).
func (d *Decoder) ViewBytes(viewIndex int) ([]byte, error) {
	return d.viewBytes(viewIndex)
}

// elements gathers the accessor's data into a tightly packed buffer.
// With no stride (or a stride equal to the element size) this is a single
// bulk copy; otherwise one copy per element at offset + i*stride.
func (d *Decoder) elements(index int) ([]byte, *Accessor, error) {
	acc, err := d.accessor(index)
	if err != nil {
		return nil, nil, err
	}
	if acc.Sparse != nil {
		return nil, nil, errors.Wrapf(ErrUnsupported, "Accessor %d is sparse", index)
	}

	compSize := componentSize(acc.ComponentType)
	if compSize == 0 {
		return nil, nil, errors.Wrapf(ErrFormat, "Accessor %d has unknown component type %d", index, acc.ComponentType)
	}
	compCount := elementComponents(acc.Type)
	if compCount == 0 {
		return nil, nil, errors.Wrapf(ErrFormat, "Accessor %d has unknown element type %q", index, acc.Type)
	}
	elemSize := compSize * compCount

	packed := make([]byte, acc.Count*elemSize)
	if acc.BufferView == nil {
		// Legal per glTF: accessor data defaults to zeros.
		return packed, acc, nil
	}
	view, err := d.viewBytes(*acc.BufferView)
	if err != nil {
		return nil, nil, err
	}

	stride := 0
	if bv := &d.doc.BufferViews[*acc.BufferView]; bv.ByteStride != 0 {
		stride = bv.ByteStride
	}
	if stride == 0 || stride == elemSize {
		end := acc.ByteOffset + acc.Count*elemSize
		if acc.ByteOffset < 0 || end > len(view) {
			return nil, nil, errors.Wrapf(ErrFormat,
				"Accessor %d range [%d:%d] outside buffer view of size %d", index, acc.ByteOffset, end, len(view))
		}
		copy(packed, view[acc.ByteOffset:end])
		return packed, acc, nil
	}
	for i := 0; i < acc.Count; i++ {
		off := acc.ByteOffset + i*stride
		if off < 0 || off+elemSize > len(view) {
			return nil, nil, errors.Wrapf(ErrFormat,
				"Accessor %d element %d at %d outside buffer view of size %d", index, i, off, len(view))
		}
		copy(packed[i*elemSize:(i+1)*elemSize], view[off:off+elemSize])
	}
	return packed, acc, nil
}

func (d *Decoder) floatElements(index int, accessorType string, compCount int) ([]float32, error) {
	packed, acc, err := d.elements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType {
		return nil, errors.Wrapf(ErrFormat, "Accessor %d: expected type %s, got %s", index, accessorType, acc.Type)
	}
	if acc.ComponentType != ComponentFloat32 {
		return nil, errors.Wrapf(ErrFormat, "Accessor %d: expected float components, got %d", index, acc.ComponentType)
	}
	out := make([]float32, acc.Count*compCount)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(packed[i*4:]))
	}
	return out, nil
}

// Floats reads a SCALAR float accessor (animation keyframe times).
func (d *Decoder) Floats(index int) ([]float32, error) {
	return d.floatElements(index, "SCALAR", 1)
}

func (d *Decoder) Vec2s(index int) ([]mgl32.Vec2, error) {
	flat, err := d.floatElements(index, "VEC2", 2)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Vec2, len(flat)/2)
	for i := range out {
		out[i] = mgl32.Vec2{flat[i*2], flat[i*2+1]}
	}
	return out, nil
}

func (d *Decoder) Vec3s(index int) ([]mgl32.Vec3, error) {
	flat, err := d.floatElements(index, "VEC3", 3)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Vec3, len(flat)/3)
	for i := range out {
		out[i] = mgl32.Vec3{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out, nil
}

func (d *Decoder) Vec4s(index int) ([]mgl32.Vec4, error) {
	flat, err := d.floatElements(index, "VEC4", 4)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Vec4, len(flat)/4)
	for i := range out {
		out[i] = mgl32.Vec4{flat[i*4], flat[i*4+1], flat[i*4+2], flat[i*4+3]}
	}
	return out, nil
}

// Mat4s reads a MAT4 float accessor. glTF stores matrices column-major,
// which is also mgl32's layout, so the floats map straight through.
func (d *Decoder) Mat4s(index int) ([]mgl32.Mat4, error) {
	flat, err := d.floatElements(index, "MAT4", 16)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Mat4, len(flat)/16)
	for i := range out {
		copy(out[i][:], flat[i*16:(i+1)*16])
	}
	return out, nil
}

// Indices reads a SCALAR integer accessor into uint32s. Index data keeps
// integer semantics the whole way; it is never routed through floats.
func (d *Decoder) Indices(index int) ([]uint32, error) {
	packed, acc, err := d.elements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != "SCALAR" {
		return nil, errors.Wrapf(ErrFormat, "Accessor %d: expected SCALAR indices, got %s", index, acc.Type)
	}
	out := make([]uint32, acc.Count)
	switch acc.ComponentType {
	case ComponentUint8:
		for i := range out {
			out[i] = uint32(packed[i])
		}
	case ComponentUint16:
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(packed[i*2:]))
		}
	case ComponentUint32:
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(packed[i*4:])
		}
	default:
		return nil, errors.Wrapf(ErrFormat, "Accessor %d: component type %d is not a valid index type", index, acc.ComponentType)
	}
	return out, nil
}

// Joints reads a VEC4 u8/u16 accessor (JOINTS_0).
func (d *Decoder) Joints(index int) ([][4]uint16, error) {
	packed, acc, err := d.elements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != "VEC4" {
		return nil, errors.Wrapf(ErrFormat, "Accessor %d: expected VEC4 joints, got %s", index, acc.Type)
	}
	out := make([][4]uint16, acc.Count)
	switch acc.ComponentType {
	case ComponentUint8:
		for i := range out {
			for j := 0; j < 4; j++ {
				out[i][j] = uint16(packed[i*4+j])
			}
		}
	case ComponentUint16:
		for i := range out {
			for j := 0; j < 4; j++ {
				out[i][j] = binary.LittleEndian.Uint16(packed[(i*4+j)*2:])
			}
		}
	default:
		return nil, errors.Wrapf(ErrFormat, "Accessor %d: component type %d is not a valid joint type", index, acc.ComponentType)
	}
	return out, nil
}

// Weights reads a VEC4 float accessor (WEIGHTS_0).
func (d *Decoder) Weights(index int) ([][4]float32, error) {
	flat, err := d.floatElements(index, "VEC4", 4)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, len(flat)/4)
	for i := range out {
		copy(out[i][:], flat[i*4:(i+1)*4])
	}
	return out, nil
}
