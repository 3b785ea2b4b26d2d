package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layoutflash/pkg/area"
	"github.com/matzehuels/layoutflash/pkg/errors"
	"github.com/matzehuels/layoutflash/pkg/fdt"
	"github.com/matzehuels/layoutflash/pkg/flash"
	"github.com/matzehuels/layoutflash/pkg/observability"
)

// Runner executes the pipeline. It holds no state besides its logger, so
// one Runner can serve several builds.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. If logger is nil, log.Default() is used.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs the complete load → extract → compile pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1+2: Load and extract
	extractStart := time.Now()
	areas, err := r.Extract(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.ExtractTime = time.Since(extractStart)
	if len(areas) == 0 {
		r.Logger.Warn("no areas found, the image will be empty",
			"input", opts.Input,
			"areas_path", opts.AreasPath)
	}

	r.Logger.Info("extracted areas",
		"input", opts.Input,
		"areas", len(areas),
		"duration", result.Stats.ExtractTime)

	// Stage 3: Compile
	compileStart := time.Now()
	observability.Pipeline().OnCompileStart(ctx, opts.Output, len(areas))
	stats, err := flash.NewCompiler(opts.Env, opts.Logger).Compile(opts.Output, areas)
	result.Stats.CompileTime = time.Since(compileStart)
	observability.Pipeline().OnCompileComplete(ctx, opts.Output, stats.Size, result.Stats.CompileTime, err)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", opts.Output, err)
	}

	result.Areas = areas
	result.Stats.AreaCount = stats.Areas
	result.Stats.FileCount = stats.Files
	result.Stats.SkippedFiles = stats.Skipped
	result.Stats.ImageSize = stats.Size

	digest, err := fileDigest(opts.Output)
	if err != nil {
		return nil, err
	}
	result.Digest = digest

	r.Logger.Info("compiled image",
		"output", opts.Output,
		"size", stats.Size,
		"files", stats.Files,
		"duration", result.Stats.CompileTime)

	return result, nil
}

// Extract loads the input and returns its areas in tree order.
func (r *Runner) Extract(ctx context.Context, opts Options) (areas []area.Area, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForExtract(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	observability.Pipeline().OnExtractStart(ctx, opts.Input)
	defer func() {
		observability.Pipeline().OnExtractComplete(ctx, opts.Input, len(areas), time.Since(start), err)
	}()

	data, err := Load(opts.Input)
	if err != nil {
		return nil, err
	}
	reader, err := fdt.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.Input, err)
	}

	areas, err = area.NewExtractor(opts.Logger).ExtractPath(reader.Walk(), opts.AreasPath)
	if err != nil {
		return nil, fmt.Errorf("extract areas from %s: %w", opts.Input, err)
	}
	return areas, nil
}

// Plan extracts and resolves the areas without writing an image.
func (r *Runner) Plan(ctx context.Context, opts Options) ([]area.Area, error) {
	areas, err := r.Extract(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := flash.Resolve(areas); err != nil {
		return nil, fmt.Errorf("resolve layout: %w", err)
	}
	return areas, nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// fileDigest returns the hex SHA-256 of the file at path.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "could not open: %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
