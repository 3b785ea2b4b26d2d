// Package pkg provides the libraries behind layoutflash.
//
// # Overview
//
// Layoutflash turns a flash layout, described as area@ nodes in a flattened
// device tree, into a flat firmware image. The pkg directory is organized as:
//
//  1. [fdt] - Device tree blob decoding, scalar inference and encoding
//  2. [area] - Area descriptors and their extraction from tree events
//  3. [flash] - Offset resolution, overlap checks and image writing
//  4. [manifest] - TOML layouts, converted to device trees
//  5. [pipeline] - Orchestration (load → extract → compile)
//  6. [errors], [observability], [buildinfo] - Shared infrastructure
//
// # Architecture
//
//	fixed-dtfs.dtb / layout.toml
//	         ↓
//	    [pipeline.Load] (TOML manifests become blobs)
//	         ↓
//	    [fdt.Reader] (structural events)
//	         ↓
//	    [area.Extractor] (typed area records)
//	         ↓
//	    [flash.Compiler] (resolved layout, image file)
//
// # Quick Start
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:     "fixed-dtfs.dtb",
//	    Output:    "flash.img",
//	    AreasPath: "/flash-info/areas",
//	})
//
// Lower-level use, on a blob already in memory:
//
//	r, err := fdt.NewReader(blob)
//	areas, err := area.NewExtractor(nil).ExtractPath(r.Walk(), "/")
//	stats, err := flash.NewCompiler(flash.EnvFromList(os.Environ()), nil).Compile("flash.img", areas)
//
// [fdt]: github.com/matzehuels/layoutflash/pkg/fdt
// [area]: github.com/matzehuels/layoutflash/pkg/area
// [flash]: github.com/matzehuels/layoutflash/pkg/flash
// [manifest]: github.com/matzehuels/layoutflash/pkg/manifest
// [pipeline]: github.com/matzehuels/layoutflash/pkg/pipeline
// [errors]: github.com/matzehuels/layoutflash/pkg/errors
// [observability]: github.com/matzehuels/layoutflash/pkg/observability
// [buildinfo]: github.com/matzehuels/layoutflash/pkg/buildinfo
package pkg
