package fdt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/matzehuels/layoutflash/pkg/errors"
)

// Kind identifies a structural event.
type Kind int

const (
	StartNode Kind = iota + 1
	EndNode
	Property
)

func (k Kind) String() string {
	switch k {
	case StartNode:
		return "start-node"
	case EndNode:
		return "end-node"
	case Property:
		return "property"
	default:
		return "unknown"
	}
}

// Entry is one event of the structure block.
type Entry struct {
	Kind Kind
	// Name is the node name for StartNode and the property name for Property.
	Name string
	// Value holds the raw property bytes. Nil unless Kind is Property.
	Value *io.SectionReader
}

// Iterator walks the structure block of a Reader.
// It is not safe for concurrent use.
type Iterator struct {
	r     *Reader
	pos   int
	depth int
	done  bool
}

// Depth returns the number of nodes currently entered.
func (it *Iterator) Depth() int {
	return it.depth
}

// Next returns the next event. NOP tokens are skipped. It returns io.EOF
// once the FDT_END token (or the end of the block at depth 0) is reached.
func (it *Iterator) Next() (Entry, error) {
	for {
		if it.done {
			return Entry{}, io.EOF
		}
		if it.pos == len(it.r.structs) && it.depth == 0 {
			it.done = true
			return Entry{}, io.EOF
		}

		at := it.pos
		tok, err := it.u32()
		if err != nil {
			return Entry{}, err
		}

		switch tok {
		case tokenNop:
			continue

		case tokenBeginNode:
			name, err := it.nodeName()
			if err != nil {
				return Entry{}, err
			}
			it.depth++
			return Entry{Kind: StartNode, Name: name}, nil

		case tokenEndNode:
			if it.depth == 0 {
				return Entry{}, it.errorf(at, "unexpected end of node")
			}
			it.depth--
			return Entry{Kind: EndNode}, nil

		case tokenProp:
			if it.depth == 0 {
				return Entry{}, it.errorf(at, "property outside of any node")
			}
			return it.property()

		case tokenEnd:
			if it.depth != 0 {
				return Entry{}, it.errorf(at, "end of structure block with %d unterminated nodes", it.depth)
			}
			it.done = true
			return Entry{}, io.EOF

		default:
			return Entry{}, it.errorf(at, "unknown token 0x%08x", tok)
		}
	}
}

// SkipNode consumes events up to and including the EndNode that closes the
// most recently entered node.
func (it *Iterator) SkipNode() error {
	target := it.depth - 1
	if target < 0 {
		return it.errorf(it.pos, "skip requested outside of any node")
	}
	for it.depth > target {
		if _, err := it.Next(); err != nil {
			if err == io.EOF {
				return it.errorf(it.pos, "structure block ended inside a node")
			}
			return err
		}
	}
	return nil
}

func (it *Iterator) u32() (uint32, error) {
	if it.pos+4 > len(it.r.structs) {
		return 0, it.errorf(it.pos, "truncated token")
	}
	v := binary.BigEndian.Uint32(it.r.structs[it.pos:])
	it.pos += 4
	return v, nil
}

func (it *Iterator) nodeName() (string, error) {
	rest := it.r.structs[it.pos:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return "", it.errorf(it.pos, "unterminated node name")
	}
	name := string(rest[:n])
	it.pos = align4(it.pos + n + 1)
	return name, nil
}

func (it *Iterator) property() (Entry, error) {
	at := it.pos
	size, err := it.u32()
	if err != nil {
		return Entry{}, err
	}
	nameOff, err := it.u32()
	if err != nil {
		return Entry{}, err
	}

	start := it.pos
	end := uint64(start) + uint64(size)
	if end > uint64(len(it.r.structs)) {
		return Entry{}, it.errorf(at, "property value of %d bytes runs past the structure block", size)
	}

	name, err := it.r.stringAt(nameOff)
	if err != nil {
		return Entry{}, err
	}

	it.pos = align4(int(end))
	value := io.NewSectionReader(bytes.NewReader(it.r.structs), int64(start), int64(size))
	return Entry{Kind: Property, Name: name, Value: value}, nil
}

func (r *Reader) stringAt(off uint32) (string, error) {
	if uint64(off) >= uint64(len(r.strs)) {
		return "", errors.New(errors.ErrCodeInvalidFormat, "fdt: property name offset %d outside strings block", off)
	}
	rest := r.strs[off:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return "", errors.New(errors.ErrCodeInvalidFormat, "fdt: unterminated property name at strings offset %d", off)
	}
	return string(rest[:n]), nil
}

func (it *Iterator) errorf(at int, format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidFormat, "fdt: %s at structure offset %d", fmt.Sprintf(format, args...), at)
}
