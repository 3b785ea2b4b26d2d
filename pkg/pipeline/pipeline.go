// Package pipeline provides the image build pipeline for layoutflash.
//
// This package implements the load → extract → compile sequence used by the
// CLI, so embedding tools get identical behavior.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read the input, converting TOML manifests to a device tree blob
//  2. Extract: Collect area descriptors from the tree
//  3. Compile: Resolve offsets and write the flash image
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	opts := pipeline.Options{
//	    Input:  "fixed-dtfs.dtb",
//	    Output: "flash.img",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Digest)
//
// Inspect a layout without writing it:
//
//	areas, err := runner.Plan(ctx, opts)
package pipeline

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layoutflash/pkg/area"
	"github.com/matzehuels/layoutflash/pkg/errors"
	"github.com/matzehuels/layoutflash/pkg/flash"
)

// DefaultAreasPath is the node whose children are read as areas.
const DefaultAreasPath = "/"

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one image build.
type Options struct {
	Input     string `json:"input"`
	Output    string `json:"output,omitempty"`
	AreasPath string `json:"areas_path,omitempty"`

	// Runtime options (not serialized)
	Env    flash.Env   `json:"-"` // defaults to the process environment
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Areas are the resolved areas in image order.
	Areas []area.Area

	// Digest is the SHA-256 of the written image.
	Digest string

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	AreaCount    int
	FileCount    int
	SkippedFiles int
	ImageSize    uint64
	ExtractTime  time.Duration
	CompileTime  time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for a
// full build. Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForExtract(); err != nil {
		return err
	}
	if o.Output == "" {
		return errors.New(errors.ErrCodeInvalidInput, "output path is required")
	}
	o.validated = true
	return nil
}

// ValidateForExtract checks required fields for reading areas.
func (o *Options) ValidateForExtract() error {
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input path is required")
	}
	if o.AreasPath == "" {
		o.AreasPath = DefaultAreasPath
	}
	if o.Env == nil {
		o.Env = flash.EnvFromList(os.Environ())
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}
