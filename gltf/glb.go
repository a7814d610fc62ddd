package gltf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	glbMagic   = 0x46546C67 // "glTF"
	glbVersion = 2

	chunkTypeJSON = 0x4E4F534A // "JSON"
	chunkTypeBIN  = 0x004E4942 // "BIN\x00"

	glbHeaderSize   = 12
	chunkHeaderSize = 8
)

// Container is a GLB file split into its chunks. BIN is empty when the
// file carries no binary chunk. Unknown chunk types are dropped.
type Container struct {
	JSON []byte
	BIN  []byte
}

type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

func ParseGLBBytes(data []byte) (*Container, error) {
	return ParseGLB(bytes.NewReader(data))
}

// ParseGLB reads a GLB stream: a 12-byte header followed by 4-byte
// aligned chunks of (length, type, payload). Reading stops at the length
// the header declares; a stream shorter than that is malformed.
func ParseGLB(r io.Reader) (*Container, error) {
	var h glbHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrapf(ErrFormat, "Failed to read glb header: %v", err)
	}
	if h.Magic != glbMagic {
		return nil, errors.Wrapf(ErrFormat, "Bad magic 0x%.8x", h.Magic)
	}
	if h.Version != glbVersion {
		return nil, errors.Wrapf(ErrFormat, "Unsupported glb version %d", h.Version)
	}
	if h.Length < glbHeaderSize {
		return nil, errors.Wrapf(ErrFormat, "Declared length %d shorter than header", h.Length)
	}

	c := &Container{}
	remaining := int64(h.Length) - glbHeaderSize
	for remaining >= chunkHeaderSize {
		var chunkLen, chunkType uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkLen); err != nil {
			return nil, errors.Wrapf(ErrFormat, "Failed to read chunk length: %v", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkType); err != nil {
			return nil, errors.Wrapf(ErrFormat, "Failed to read chunk type: %v", err)
		}
		remaining -= chunkHeaderSize

		padding := int64((4 - chunkLen%4) % 4)
		if int64(chunkLen)+padding > remaining {
			return nil, errors.Wrapf(ErrFormat,
				"Chunk 0x%.8x of size %d does not fit in remaining %d bytes", chunkType, chunkLen, remaining)
		}

		payload := make([]byte, chunkLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.Wrapf(ErrFormat, "Failed to read chunk 0x%.8x payload: %v", chunkType, err)
		}
		if padding != 0 {
			var pad [4]byte
			if _, err := io.ReadFull(r, pad[:padding]); err != nil {
				return nil, errors.Wrapf(ErrFormat, "Failed to read chunk 0x%.8x padding: %v", chunkType, err)
			}
		}
		remaining -= int64(chunkLen) + padding

		switch chunkType {
		case chunkTypeJSON:
			if c.JSON == nil {
				c.JSON = payload
			}
		case chunkTypeBIN:
			if c.BIN == nil {
				c.BIN = payload
			}
		}
	}
	if remaining != 0 {
		return nil, errors.Wrapf(ErrFormat, "Trailing %d bytes do not form a chunk", remaining)
	}
	if c.JSON == nil {
		return nil, errors.Wrap(ErrFormat, "Missing JSON chunk")
	}
	return c, nil
}

// Document decodes the JSON chunk.
func (c *Container) Document() (*Document, error) {
	return DecodeDocument(c.JSON)
}
