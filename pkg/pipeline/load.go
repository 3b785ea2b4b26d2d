package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/layoutflash/pkg/errors"
	"github.com/matzehuels/layoutflash/pkg/fdt"
	"github.com/matzehuels/layoutflash/pkg/manifest"
)

// Load reads a layout description and returns it as a device tree blob.
// Files ending in .toml that are not already blobs are parsed as manifests.
// Anything else is returned unchanged and validated when it is decoded.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "could not open: %s", path)
	}
	if fdt.IsBlob(data) || !IsManifest(path) {
		return data, nil
	}

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m.FDT()
}

// IsManifest reports whether path names a TOML manifest.
func IsManifest(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
