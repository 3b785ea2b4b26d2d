package fdt

import (
	"encoding/binary"

	"github.com/matzehuels/layoutflash/pkg/errors"
)

// Header constants.
const (
	Magic           uint32 = 0xd00dfeed
	Version         uint32 = 17
	LastCompVersion uint32 = 16

	headerSize = 40
)

// MaxValueSize is the largest property value a consumer is expected to read
// into its fixed buffer.
const MaxValueSize = 1024

// Structure block tokens.
const (
	tokenBeginNode uint32 = 0x1
	tokenEndNode   uint32 = 0x2
	tokenProp      uint32 = 0x3
	tokenNop       uint32 = 0x4
	tokenEnd       uint32 = 0x9
)

// Header is the fixed-size header at the start of every blob.
type Header struct {
	Magic           uint32
	TotalSize       uint32
	OffDtStruct     uint32
	OffDtStrings    uint32
	OffMemRsvmap    uint32
	Version         uint32
	LastCompVersion uint32
	BootCPUIDPhys   uint32
	SizeDtStrings   uint32
	SizeDtStruct    uint32
}

// Reader gives access to the blocks of a validated blob.
type Reader struct {
	hdr     Header
	structs []byte
	strs    []byte
}

// NewReader validates the header of data and locates the structure and
// strings blocks. data is retained, not copied.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < headerSize {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "fdt: blob too short for header (%d bytes)", len(data))
	}

	be := binary.BigEndian
	h := Header{
		Magic:           be.Uint32(data[0:]),
		TotalSize:       be.Uint32(data[4:]),
		OffDtStruct:     be.Uint32(data[8:]),
		OffDtStrings:    be.Uint32(data[12:]),
		OffMemRsvmap:    be.Uint32(data[16:]),
		Version:         be.Uint32(data[20:]),
		LastCompVersion: be.Uint32(data[24:]),
		BootCPUIDPhys:   be.Uint32(data[28:]),
		SizeDtStrings:   be.Uint32(data[32:]),
		SizeDtStruct:    be.Uint32(data[36:]),
	}

	if h.Magic != Magic {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "fdt: invalid magic 0x%08x", h.Magic)
	}
	if h.LastCompVersion > Version {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "fdt: unsupported version %d (last compatible %d)", h.Version, h.LastCompVersion)
	}
	if uint64(h.TotalSize) > uint64(len(data)) {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "fdt: total size %d exceeds blob length %d", h.TotalSize, len(data))
	}

	// Blobs older than version 17 do not record the structure block size.
	structSize := h.SizeDtStruct
	if h.Version < 17 && h.OffDtStruct <= h.TotalSize {
		structSize = h.TotalSize - h.OffDtStruct
	}

	structs, err := block(data, h, "structure", h.OffDtStruct, structSize)
	if err != nil {
		return nil, err
	}
	strs, err := block(data, h, "strings", h.OffDtStrings, h.SizeDtStrings)
	if err != nil {
		return nil, err
	}

	return &Reader{hdr: h, structs: structs, strs: strs}, nil
}

func block(data []byte, h Header, name string, off, size uint32) ([]byte, error) {
	end := uint64(off) + uint64(size)
	if end > uint64(h.TotalSize) {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "fdt: %s block [%d, %d) outside blob of %d bytes", name, off, end, h.TotalSize)
	}
	return data[off:end], nil
}

// Header returns the decoded header.
func (r *Reader) Header() Header {
	return r.hdr
}

// Walk returns an iterator positioned at the start of the structure block.
func (r *Reader) Walk() *Iterator {
	return &Iterator{r: r}
}

// IsBlob reports whether data starts with the FDT magic.
func IsBlob(data []byte) bool {
	return len(data) >= 4 && binary.BigEndian.Uint32(data) == Magic
}

func align4(n int) int {
	return (n + 3) &^ 3
}
