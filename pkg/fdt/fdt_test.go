package fdt

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/matzehuels/layoutflash/pkg/errors"
)

// sampleBlob builds:
//
//	/ {
//	    model = "test";
//	    cpus { cpu@0 { reg = <0>; }; };
//	    area@0 { size = <0x10>; };
//	};
func sampleBlob(t *testing.T) []byte {
	t.Helper()
	b := NewBuilder()
	b.BeginNode("")
	b.PropString("model", "test")
	b.BeginNode("cpus")
	b.BeginNode("cpu@0")
	b.PropU32("reg", 0)
	b.EndNode()
	b.EndNode()
	b.BeginNode("area@0")
	b.PropU32("size", 0x10)
	b.EndNode()
	b.EndNode()
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	return data
}

func readValue(t *testing.T, e Entry) []byte {
	t.Helper()
	buf := make([]byte, e.Value.Size())
	if _, err := e.Value.ReadAt(buf, 0); err != nil && err != io.EOF {
		t.Fatalf("ReadAt: %v", err)
	}
	return buf
}

func TestNewReaderHeader(t *testing.T) {
	data := sampleBlob(t)
	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	h := r.Header()
	if h.Magic != Magic {
		t.Errorf("Magic = 0x%x, want 0x%x", h.Magic, Magic)
	}
	if h.TotalSize != uint32(len(data)) {
		t.Errorf("TotalSize = %d, want %d", h.TotalSize, len(data))
	}
	if h.Version != Version {
		t.Errorf("Version = %d, want %d", h.Version, Version)
	}
	if !IsBlob(data) {
		t.Error("IsBlob() = false, want true")
	}
}

func TestNewReaderRejects(t *testing.T) {
	good := sampleBlob(t)

	badMagic := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(badMagic, 0xdeadbeef)

	badTotal := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(badTotal[4:], uint32(len(good)+1))

	badStruct := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(badStruct[36:], uint32(len(good)))

	futureVersion := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(futureVersion[24:], 18)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", good[:20]},
		{"bad magic", badMagic},
		{"total size past end", badTotal},
		{"struct block past end", badStruct},
		{"incompatible version", futureVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
			}
		})
	}
}

func TestIteratorEvents(t *testing.T) {
	r, err := NewReader(sampleBlob(t))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	type event struct {
		kind Kind
		name string
	}
	want := []event{
		{StartNode, ""},
		{Property, "model"},
		{StartNode, "cpus"},
		{StartNode, "cpu@0"},
		{Property, "reg"},
		{EndNode, ""},
		{EndNode, ""},
		{StartNode, "area@0"},
		{Property, "size"},
		{EndNode, ""},
		{EndNode, ""},
	}

	it := r.Walk()
	for i, w := range want {
		e, err := it.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if e.Kind != w.kind || e.Name != w.name {
			t.Errorf("event %d = %v %q, want %v %q", i, e.Kind, e.Name, w.kind, w.name)
		}
	}
	if _, err := it.Next(); err != io.EOF {
		t.Errorf("final Next() error = %v, want io.EOF", err)
	}
	if _, err := it.Next(); err != io.EOF {
		t.Errorf("Next() after EOF error = %v, want io.EOF", err)
	}
}

func TestIteratorPropertyValues(t *testing.T) {
	r, err := NewReader(sampleBlob(t))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	it := r.Walk()
	got := map[string]Scalar{}
	for {
		e, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if e.Kind == Property {
			got[e.Name] = InferType(readValue(t, e))
		}
	}

	if s := got["model"]; s.Kind != String || s.Str != "test" {
		t.Errorf("model = %+v, want string \"test\"", s)
	}
	if s := got["size"]; s.Kind != U32 || s.U32 != 0x10 {
		t.Errorf("size = %+v, want u32 16", s)
	}
}

func TestSkipNode(t *testing.T) {
	r, err := NewReader(sampleBlob(t))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	it := r.Walk()

	if e, _ := it.Next(); e.Kind != StartNode {
		t.Fatalf("expected root node, got %v", e.Kind)
	}
	if e, _ := it.Next(); e.Name != "model" {
		t.Fatalf("expected model property, got %q", e.Name)
	}
	if e, _ := it.Next(); e.Name != "cpus" {
		t.Fatalf("expected cpus node, got %q", e.Name)
	}
	if err := it.SkipNode(); err != nil {
		t.Fatalf("SkipNode: %v", err)
	}
	if it.Depth() != 1 {
		t.Errorf("Depth() after skip = %d, want 1", it.Depth())
	}
	e, err := it.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if e.Kind != StartNode || e.Name != "area@0" {
		t.Errorf("after skip got %v %q, want start-node area@0", e.Kind, e.Name)
	}
}

func TestSkipNodeOutsideNode(t *testing.T) {
	r, err := NewReader(sampleBlob(t))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if err := r.Walk().SkipNode(); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("SkipNode() at depth 0 error = %v, want INVALID_FORMAT", err)
	}
}

func TestIteratorMalformed(t *testing.T) {
	// Header for a hand-written structure block with no strings.
	blob := func(structs ...uint32) []byte {
		var s []byte
		for _, v := range structs {
			s = binary.BigEndian.AppendUint32(s, v)
		}
		var out []byte
		total := uint32(headerSize + len(s))
		for _, v := range []uint32{Magic, total, headerSize, total, headerSize, Version, LastCompVersion, 0, 0, uint32(len(s))} {
			out = binary.BigEndian.AppendUint32(out, v)
		}
		return append(out, s...)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"end node at depth 0", blob(tokenEndNode)},
		{"property at depth 0", blob(tokenProp, 0, 0)},
		{"unknown token", blob(0x7)},
		{"end with open node", blob(tokenBeginNode, 0, tokenEnd)},
		{"unterminated node name", blob(tokenBeginNode, 0x41414141)},
		{"property name outside strings", blob(tokenBeginNode, 0, tokenProp, 0, 0, tokenEndNode, tokenEnd)},
		{"property value past block", blob(tokenBeginNode, 0, tokenProp, 64, 0)},
		{"truncated block", blob(tokenBeginNode, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(tt.data)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			it := r.Walk()
			for {
				_, err = it.Next()
				if err != nil {
					break
				}
			}
			if err == io.EOF {
				t.Fatal("expected decode error, got io.EOF")
			}
			if !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("error = %v, want INVALID_FORMAT", err)
			}
		})
	}
}

func TestIteratorSkipsNop(t *testing.T) {
	var s []byte
	for _, v := range []uint32{tokenNop, tokenBeginNode, 0, tokenNop, tokenEndNode, tokenEnd} {
		s = binary.BigEndian.AppendUint32(s, v)
	}
	var data []byte
	total := uint32(headerSize + len(s))
	for _, v := range []uint32{Magic, total, headerSize, total, headerSize, Version, LastCompVersion, 0, 0, uint32(len(s))} {
		data = binary.BigEndian.AppendUint32(data, v)
	}
	data = append(data, s...)

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	it := r.Walk()
	kinds := []Kind{StartNode, EndNode}
	for i, want := range kinds {
		e, err := it.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if e.Kind != want {
			t.Errorf("event %d = %v, want %v", i, e.Kind, want)
		}
	}
	if _, err := it.Next(); err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestBuilderMisuse(t *testing.T) {
	t.Run("unbalanced end", func(t *testing.T) {
		b := NewBuilder()
		b.EndNode()
		if _, err := b.Bytes(); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("open node", func(t *testing.T) {
		b := NewBuilder()
		b.BeginNode("")
		if _, err := b.Bytes(); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("property outside node", func(t *testing.T) {
		b := NewBuilder()
		b.PropU32("size", 1)
		if _, err := b.Bytes(); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("NUL in name", func(t *testing.T) {
		b := NewBuilder()
		b.BeginNode("a\x00b")
		if _, err := b.Bytes(); err == nil {
			t.Error("expected error")
		}
	})
}

func TestBuilderDeduplicatesStrings(t *testing.T) {
	b := NewBuilder()
	b.BeginNode("")
	for i := 0; i < 3; i++ {
		b.BeginNode("area@0")
		b.PropU32("size", 1)
		b.EndNode()
	}
	b.EndNode()
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if got := r.Header().SizeDtStrings; got != uint32(len("size\x00")) {
		t.Errorf("SizeDtStrings = %d, want %d", got, len("size\x00"))
	}
}
