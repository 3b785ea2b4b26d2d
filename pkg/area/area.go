// Package area extracts flash area descriptors from a device tree.
//
// An area is a node whose name starts with "area@". Its properties describe
// one region of the flash image:
//
//	area@1 {
//	    description = "Boot blob";
//	    compatible = "ore-bootblob";
//	    offset = <0x0>;
//	    size = <0x80000>;
//	    file = "$(TARGET_DIR)/bootblob.bin";
//	};
//
// Extraction is permissive: properties with unknown names or with values of
// the wrong type are ignored, so layouts may carry extra annotations.
package area

import (
	"fmt"
)

// Prefix marks the nodes that describe areas.
const Prefix = "area@"

// Area is one declared region of the flash image.
type Area struct {
	Description string
	Compatible  string
	// Offset is nil when the area follows the previous one.
	Offset *uint32
	Size   uint32
	// File is embedded at the start of the area. It may reference
	// environment variables as $(NAME).
	File *string
}

// End returns the first byte past the area. It requires a resolved offset.
func (a Area) End() uint64 {
	if a.Offset == nil {
		return uint64(a.Size)
	}
	return uint64(*a.Offset) + uint64(a.Size)
}

// String formats the area for log and error output.
func (a Area) String() string {
	off := "auto"
	if a.Offset != nil {
		off = fmt.Sprintf("0x%x", *a.Offset)
	}
	return fmt.Sprintf("%q offset=%s size=0x%x", a.Description, off, a.Size)
}

// Uint32 returns a pointer to v, for building areas with explicit offsets.
func Uint32(v uint32) *uint32 { return &v }

// Str returns a pointer to s, for building areas with files.
func Str(s string) *string { return &s }
