package fdt

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/matzehuels/layoutflash/pkg/errors"
)

// Builder assembles a blob node by node. The first misuse (an unbalanced
// EndNode, a name containing NUL) is remembered and reported by Bytes.
type Builder struct {
	structs []byte
	strs    []byte
	offsets map[string]uint32
	depth   int
	err     error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{offsets: make(map[string]uint32)}
}

// BeginNode opens a node. The root node has the empty name.
func (b *Builder) BeginNode(name string) {
	if b.err != nil {
		return
	}
	if strings.IndexByte(name, 0) >= 0 {
		b.err = errors.New(errors.ErrCodeInvalidInput, "fdt: node name %q contains NUL", name)
		return
	}
	b.structs = binary.BigEndian.AppendUint32(b.structs, tokenBeginNode)
	b.structs = append(b.structs, name...)
	b.structs = append(b.structs, 0)
	b.pad()
	b.depth++
}

// EndNode closes the most recently opened node.
func (b *Builder) EndNode() {
	if b.err != nil {
		return
	}
	if b.depth == 0 {
		b.err = errors.New(errors.ErrCodeInvalidInput, "fdt: EndNode without matching BeginNode")
		return
	}
	b.structs = binary.BigEndian.AppendUint32(b.structs, tokenEndNode)
	b.depth--
}

// PropString adds a NUL-terminated string property.
func (b *Builder) PropString(name, value string) {
	b.PropBytes(name, append([]byte(value), 0))
}

// PropU32 adds a single big-endian cell.
func (b *Builder) PropU32(name string, value uint32) {
	b.PropBytes(name, binary.BigEndian.AppendUint32(nil, value))
}

// PropBytes adds a property with a raw value.
func (b *Builder) PropBytes(name string, value []byte) {
	if b.err != nil {
		return
	}
	if b.depth == 0 {
		b.err = errors.New(errors.ErrCodeInvalidInput, "fdt: property %q outside of any node", name)
		return
	}
	if strings.IndexByte(name, 0) >= 0 {
		b.err = errors.New(errors.ErrCodeInvalidInput, "fdt: property name %q contains NUL", name)
		return
	}
	b.structs = binary.BigEndian.AppendUint32(b.structs, tokenProp)
	b.structs = binary.BigEndian.AppendUint32(b.structs, uint32(len(value)))
	b.structs = binary.BigEndian.AppendUint32(b.structs, b.stringOffset(name))
	b.structs = append(b.structs, value...)
	b.pad()
}

// Bytes terminates the structure block and returns the complete blob.
// The builder must not be used afterwards.
func (b *Builder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.depth != 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "fdt: %d nodes left open", b.depth)
	}
	b.structs = binary.BigEndian.AppendUint32(b.structs, tokenEnd)

	// The memory reservation map is a single terminating (0, 0) entry.
	const rsvmapSize = 16
	offRsvmap := uint32(headerSize)
	offStruct := offRsvmap + rsvmapSize
	offStrings := offStruct + uint32(len(b.structs))
	total := offStrings + uint32(len(b.strs))

	var buf bytes.Buffer
	buf.Grow(int(total))
	for _, v := range []uint32{
		Magic,
		total,
		offStruct,
		offStrings,
		offRsvmap,
		Version,
		LastCompVersion,
		0,
		uint32(len(b.strs)),
		uint32(len(b.structs)),
	} {
		_ = binary.Write(&buf, binary.BigEndian, v)
	}
	buf.Write(make([]byte, rsvmapSize))
	buf.Write(b.structs)
	buf.Write(b.strs)
	return buf.Bytes(), nil
}

func (b *Builder) stringOffset(name string) uint32 {
	if off, ok := b.offsets[name]; ok {
		return off
	}
	off := uint32(len(b.strs))
	b.strs = append(b.strs, name...)
	b.strs = append(b.strs, 0)
	b.offsets[name] = off
	return off
}

func (b *Builder) pad() {
	for len(b.structs)%4 != 0 {
		b.structs = append(b.structs, 0)
	}
}
