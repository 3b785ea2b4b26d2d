// Package manifest reads flash layouts written as TOML.
//
// A manifest lists areas in order, with the same fields a device tree area
// node carries:
//
//	[[area]]
//	description = "Boot blob"
//	offset = 0x0
//	size = 0x80000
//	file = "$(TARGET_DIR)/bootblob.bin"
//
//	[[area]]
//	description = "Payload"
//	offset = 0x80000
//	size = 0x100000
//
// Areas without an offset are placed before all areas with one, in the
// order they are listed, starting at 0.
//
// Manifests are converted to a device tree blob with [Manifest.FDT] so both
// input formats go through the same extraction.
package manifest

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/layoutflash/pkg/errors"
	"github.com/matzehuels/layoutflash/pkg/fdt"
)

// Manifest is a decoded TOML layout.
type Manifest struct {
	Areas []Area `toml:"area"`
}

// Area is one [[area]] table. Unset fields are omitted from the tree.
type Area struct {
	Description *string `toml:"description"`
	Compatible  *string `toml:"compatible"`
	Offset      *uint32 `toml:"offset"`
	Size        *uint32 `toml:"size"`
	File        *string `toml:"file"`
}

// Parse decodes a manifest. Unknown keys are rejected so typos surface
// instead of silently producing a different layout.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "decode manifest")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "unknown manifest key %q", undecoded[0].String())
	}
	return &m, nil
}

// ParseFile reads and decodes the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "could not open: %s", path)
	}
	return Parse(data)
}

// FDT encodes the manifest as a device tree with one area@<index> node per
// area directly below the root.
func (m *Manifest) FDT() ([]byte, error) {
	b := fdt.NewBuilder()
	b.BeginNode("")
	b.PropU32("#address-cells", 1)
	b.PropU32("#size-cells", 1)
	for i, a := range m.Areas {
		b.BeginNode(fmt.Sprintf("area@%d", i))
		if a.Description != nil {
			b.PropString("description", *a.Description)
		}
		if a.Compatible != nil {
			b.PropString("compatible", *a.Compatible)
		}
		if a.Offset != nil {
			b.PropU32("offset", *a.Offset)
		}
		if a.Size != nil {
			b.PropU32("size", *a.Size)
		}
		if a.File != nil {
			b.PropString("file", *a.File)
		}
		b.EndNode()
	}
	b.EndNode()
	return b.Bytes()
}
