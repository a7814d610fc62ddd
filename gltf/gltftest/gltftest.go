// Package gltftest builds small binary assets for tests. Static scenes
// go through the qmuntal encoder so the decoder is exercised against
// real encoder output; skinned scenes are assembled byte by byte so
// every offset in them is spelled out.
package gltftest

import (
	"bytes"
	"encoding/binary"
)

// GLB wraps a document string and an optional binary payload into a
// container. The writer is independent from the reader under test on
// purpose: magic values are restated here, not imported.
func GLB(jsonDoc string, bin []byte) []byte {
	j := []byte(jsonDoc)
	for len(j)%4 != 0 {
		j = append(j, ' ')
	}

	b := append([]byte(nil), bin...)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}

	total := 12 + 8 + len(j)
	if bin != nil {
		total += 8 + len(b)
	}

	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, uint32(0x46546C67)) // "glTF"
	binary.Write(buf, binary.LittleEndian, uint32(2))
	binary.Write(buf, binary.LittleEndian, uint32(total))
	binary.Write(buf, binary.LittleEndian, uint32(len(j)))
	binary.Write(buf, binary.LittleEndian, uint32(0x4E4F534A)) // "JSON"
	buf.Write(j)
	if bin != nil {
		binary.Write(buf, binary.LittleEndian, uint32(len(b)))
		binary.Write(buf, binary.LittleEndian, uint32(0x004E4942)) // "BIN\0"
		buf.Write(b)
	}
	return buf.Bytes()
}

// Bin accumulates a binary payload and remembers where each block
// landed, so fixture documents can reference exact byte offsets.
type Bin struct {
	buf bytes.Buffer
}

// Put appends a fixed-size value (a slice of numeric scalars or arrays)
// aligned to 4 bytes and returns its offset and length.
func (b *Bin) Put(data interface{}) (offset, length int) {
	for b.buf.Len()%4 != 0 {
		b.buf.WriteByte(0)
	}
	offset = b.buf.Len()
	if err := binary.Write(&b.buf, binary.LittleEndian, data); err != nil {
		panic("gltftest: unwritable fixture data: " + err.Error())
	}
	return offset, b.buf.Len() - offset
}

func (b *Bin) Bytes() []byte {
	return b.buf.Bytes()
}
