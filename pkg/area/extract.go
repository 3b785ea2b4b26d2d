package area

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layoutflash/pkg/errors"
	"github.com/matzehuels/layoutflash/pkg/fdt"
)

// Source yields structural tree events. *fdt.Iterator implements it.
type Source interface {
	// Next returns the next event, or io.EOF after the last one.
	Next() (fdt.Entry, error)
	// SkipNode consumes the rest of the most recently entered node.
	SkipNode() error
}

// Extractor turns tree events into areas.
type Extractor struct {
	// Infer decodes raw property values. Defaults to fdt.InferType.
	Infer func([]byte) fdt.Scalar
	// Logger receives debug output about skipped nodes and properties.
	Logger *log.Logger
}

// NewExtractor creates an Extractor using fdt.InferType.
// If logger is nil, output is discarded.
func NewExtractor(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Extractor{Infer: fdt.InferType, Logger: logger}
}

// Extract reads the children of the node src is currently inside and returns
// one Area per child named area@*, in tree order. Other children are skipped
// without being interpreted. Extraction stops at the EndNode closing the
// container, or at the end of the stream.
func (x *Extractor) Extract(src Source) ([]Area, error) {
	var areas []Area
	for {
		e, err := src.Next()
		if err == io.EOF {
			return areas, nil
		}
		if err != nil {
			return nil, err
		}

		switch e.Kind {
		case fdt.StartNode:
			if !strings.HasPrefix(e.Name, Prefix) {
				x.logger().Debug("skipping node", "node", e.Name)
				if err := src.SkipNode(); err != nil {
					return nil, err
				}
				continue
			}
			a, err := x.readArea(src, e.Name)
			if err != nil {
				return nil, err
			}
			x.logger().Debug("found area", "node", e.Name, "area", a)
			areas = append(areas, a)
		case fdt.EndNode:
			return areas, nil
		}
	}
}

// ExtractPath enters the root node of src, descends to the node at path
// ("/" or "" for the root itself, otherwise e.g. "/flash-info/areas") and
// extracts the areas below it.
func (x *Extractor) ExtractPath(src Source, path string) ([]Area, error) {
	e, err := src.Next()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "tree has no root node")
	}
	if err != nil {
		return nil, err
	}
	if e.Kind != fdt.StartNode {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "expected root node, got %s", e.Kind)
	}

	for _, name := range splitPath(path) {
		found, err := enter(src, name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.New(errors.ErrCodeNotFound, "node %s not found", path)
		}
	}
	return x.Extract(src)
}

func (x *Extractor) readArea(src Source, node string) (Area, error) {
	var a Area
	for {
		e, err := src.Next()
		if err == io.EOF {
			return Area{}, errors.New(errors.ErrCodeInvalidFormat, "tree ended inside %s", node)
		}
		if err != nil {
			return Area{}, err
		}

		switch e.Kind {
		case fdt.StartNode:
			// Areas do not nest.
			if err := src.SkipNode(); err != nil {
				return Area{}, err
			}
		case fdt.EndNode:
			return a, nil
		case fdt.Property:
			data, err := readValue(e)
			if err != nil {
				return Area{}, fmt.Errorf("%s: property %s: %w", node, e.Name, err)
			}
			x.assign(&a, node, e.Name, x.infer(data))
		}
	}
}

// assign stores v in the field named by prop. Last assignment wins.
func (x *Extractor) assign(a *Area, node, prop string, v fdt.Scalar) {
	switch {
	case prop == "description" && v.Kind == fdt.String:
		a.Description = v.Str
	case prop == "compatible" && v.Kind == fdt.String:
		a.Compatible = v.Str
	case prop == "offset" && v.Kind == fdt.U32:
		a.Offset = Uint32(v.U32)
	case prop == "size" && v.Kind == fdt.U32:
		a.Size = v.U32
	case prop == "file" && v.Kind == fdt.String:
		a.File = Str(v.Str)
	default:
		x.logger().Debug("ignoring property", "node", node, "property", prop, "type", v.Kind)
	}
}

func (x *Extractor) infer(data []byte) fdt.Scalar {
	if x.Infer == nil {
		return fdt.InferType(data)
	}
	return x.Infer(data)
}

func (x *Extractor) logger() *log.Logger {
	if x.Logger == nil {
		x.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return x.Logger
}

// readValue copies a property value, refusing values larger than
// fdt.MaxValueSize rather than truncating them.
func readValue(e fdt.Entry) ([]byte, error) {
	if e.Value == nil {
		return nil, nil
	}
	size := e.Value.Size()
	if size > fdt.MaxValueSize {
		return nil, errors.New(errors.ErrCodeValueTooLarge, "value of %d bytes exceeds the %d byte limit", size, fdt.MaxValueSize)
	}
	buf := make([]byte, size)
	n, err := e.Value.ReadAt(buf, 0)
	if n < len(buf) {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "short property value")
	}
	return buf, nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// enter advances src into the child node called name, skipping every other
// child. It reports false when the current node closes first.
func enter(src Source, name string) (bool, error) {
	for {
		e, err := src.Next()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch e.Kind {
		case fdt.StartNode:
			if e.Name == name {
				return true, nil
			}
			if err := src.SkipNode(); err != nil {
				return false, err
			}
		case fdt.EndNode:
			return false, nil
		}
	}
}
