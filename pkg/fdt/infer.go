package fdt

import (
	"bytes"
	"encoding/binary"
	"unicode"
	"unicode/utf8"
)

// ScalarKind is the type inferred for a raw property value.
type ScalarKind int

const (
	Unknown ScalarKind = iota
	String
	U32
	U64
)

func (k ScalarKind) String() string {
	switch k {
	case String:
		return "string"
	case U32:
		return "u32"
	case U64:
		return "u64"
	default:
		return "unknown"
	}
}

// Scalar is a decoded property value. Only the field matching Kind is set.
type Scalar struct {
	Kind ScalarKind
	Str  string
	U32  uint32
	U64  uint64
}

// InferType guesses the type of a raw property value. A value is a String
// when it is printable UTF-8 terminated by a single NUL, a U32 when it is 4
// bytes long and a U64 when it is 8 bytes long (both big-endian). Anything
// else, including string lists and cell arrays, is Unknown.
func InferType(data []byte) Scalar {
	if s, ok := asString(data); ok {
		return Scalar{Kind: String, Str: s}
	}
	switch len(data) {
	case 4:
		return Scalar{Kind: U32, U32: binary.BigEndian.Uint32(data)}
	case 8:
		return Scalar{Kind: U64, U64: binary.BigEndian.Uint64(data)}
	}
	return Scalar{Kind: Unknown}
}

func asString(data []byte) (string, bool) {
	if len(data) == 0 || data[len(data)-1] != 0 {
		return "", false
	}
	body := data[:len(data)-1]
	if bytes.IndexByte(body, 0) >= 0 || !utf8.Valid(body) {
		return "", false
	}
	for _, r := range string(body) {
		if !unicode.IsPrint(r) {
			return "", false
		}
	}
	return string(body), true
}
