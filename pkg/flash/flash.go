// Package flash lays out areas and writes them into a flat flash image.
//
// Layout happens in two steps. [Resolve] orders the areas and gives every
// area without an explicit offset the end of the area before it, failing
// when two areas overlap. [Compiler.Write] then fills each area with [Fill]
// and copies the area's file, if any, to its start. Bytes between areas are
// never written, so in a fresh file they read back as zero.
//
//	c := flash.NewCompiler(flash.EnvFromList(os.Environ()), logger)
//	stats, err := c.Compile("build/flash.img", areas)
package flash

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layoutflash/pkg/area"
	"github.com/matzehuels/layoutflash/pkg/errors"
)

// Fill is written across every area before its file contents.
const Fill byte = 0xff

// fillChunk bounds the buffer used to fill large areas.
const fillChunk = 64 << 10

// Stats summarizes a written image.
type Stats struct {
	Areas   int    // areas written
	Files   int    // files embedded
	Skipped int    // files left out because their path named an unset variable
	Size    uint64 // image length in bytes
}

// Resolve sorts areas by offset and assigns offsets to areas that have none.
//
// Areas without an offset sort before all others and keep their relative
// order. Walking the sorted list, an area without an offset starts where the
// previous one ended (0 for the first). An area that starts before the end
// of its predecessor is an overlap error. On success every Offset is set.
func Resolve(areas []area.Area) error {
	sort.SliceStable(areas, func(i, j int) bool {
		return offsetLess(areas[i].Offset, areas[j].Offset)
	})

	var lastEnd uint64
	prev := ""
	for i := range areas {
		a := &areas[i]
		off := lastEnd
		if a.Offset != nil {
			off = uint64(*a.Offset)
		}
		if off < lastEnd {
			return errors.New(errors.ErrCodeOverlap,
				"areas are overlapping, last area %q finished at offset %d, next area %q starts at %d",
				prev, lastEnd, a.Description, off)
		}
		end := off + uint64(a.Size)
		if off > math.MaxUint32 || end > math.MaxUint32+1 {
			return errors.New(errors.ErrCodeInvalidInput,
				"area %q at offset %d with size %d does not fit in a 32-bit address space",
				a.Description, off, a.Size)
		}
		a.Offset = area.Uint32(uint32(off))
		lastEnd = end
		prev = a.Description
	}
	return nil
}

// offsetLess orders absent offsets first.
func offsetLess(a, b *uint32) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return *a < *b
	}
}

// Compiler writes resolved areas into an image.
type Compiler struct {
	// Env expands $(NAME) references in file paths.
	Env Env
	// ReadFile loads embedded files. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
	// Logger receives progress output.
	Logger *log.Logger
}

// NewCompiler creates a compiler that reads files from disk.
// If logger is nil, output is discarded.
func NewCompiler(env Env, logger *log.Logger) *Compiler {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Compiler{Env: env, ReadFile: os.ReadFile, Logger: logger}
}

// Compile resolves areas and writes the image to path, creating or
// truncating it. The file is exactly as long as the highest area end.
// On error the file may be left partially written.
func (c *Compiler) Compile(path string, areas []area.Area) (Stats, error) {
	if err := Resolve(areas); err != nil {
		return Stats{}, err
	}

	f, err := os.Create(path)
	if err != nil {
		return Stats{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "could not create: %s", path)
	}

	stats, err := c.Write(f, areas)
	// Zero-size areas past the last written byte still extend the image.
	if err == nil {
		if terr := f.Truncate(int64(stats.Size)); terr != nil {
			err = errors.Wrap(errors.ErrCodeInternal, terr, "extend %s to %d bytes", path, stats.Size)
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(errors.ErrCodeInternal, cerr, "close %s", path)
	}
	return stats, err
}

// Write fills each area of the already resolved list and embeds its file.
func (c *Compiler) Write(w io.WriterAt, areas []area.Area) (Stats, error) {
	stats := Stats{}
	for _, a := range areas {
		if a.Offset == nil {
			return stats, errors.New(errors.ErrCodeInternal, "area %q has no resolved offset", a.Description)
		}
		off := int64(*a.Offset)

		c.logger().Debug("placing area",
			"area", a.Description,
			"offset", fmt.Sprintf("0x%x", off),
			"size", fmt.Sprintf("0x%x", a.Size))

		if err := fill(w, off, int64(a.Size)); err != nil {
			return stats, errors.Wrap(errors.ErrCodeInternal, err, "fill area %q", a.Description)
		}
		stats.Areas++
		if end := a.End(); end > stats.Size {
			stats.Size = end
		}

		if a.File == nil {
			continue
		}
		path, ok := Expand(*a.File, c.Env)
		if !ok {
			c.logger().Info("skipping file with unset variable", "area", a.Description, "file", path)
			stats.Skipped++
			continue
		}

		data, err := c.readFile(path)
		if err != nil {
			return stats, errors.Wrap(errors.ErrCodeFileNotFound, err, "could not open: %s", path)
		}
		if uint64(len(data)) > uint64(a.Size) {
			return stats, errors.New(errors.ErrCodeFileTooLarge,
				"file %s is too big to fit into the flash area, file size: %d, area size: %d",
				path, len(data), a.Size)
		}
		if _, err := w.WriteAt(data, off); err != nil {
			return stats, errors.Wrap(errors.ErrCodeInternal, err, "write %s into area %q", path, a.Description)
		}
		stats.Files++
		c.logger().Debug("embedded file", "area", a.Description, "file", path, "bytes", len(data))
	}
	return stats, nil
}

func fill(w io.WriterAt, off, size int64) error {
	buf := make([]byte, min(size, fillChunk))
	for i := range buf {
		buf[i] = Fill
	}
	for size > 0 {
		n := min(size, int64(len(buf)))
		if _, err := w.WriteAt(buf[:n], off); err != nil {
			return err
		}
		off += n
		size -= n
	}
	return nil
}

func (c *Compiler) readFile(path string) ([]byte, error) {
	if c.ReadFile == nil {
		return os.ReadFile(path)
	}
	return c.ReadFile(path)
}

func (c *Compiler) logger() *log.Logger {
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return c.Logger
}
