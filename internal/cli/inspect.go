package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layoutflash/pkg/area"
	"github.com/matzehuels/layoutflash/pkg/pipeline"
)

// inspectOptions holds the flags of the inspect command.
type inspectOptions struct {
	areasPath string
	json      bool
}

// layoutEntry is the JSON form of a resolved area.
type layoutEntry struct {
	Description string `json:"description"`
	Compatible  string `json:"compatible,omitempty"`
	Offset      uint32 `json:"offset"`
	Size        uint32 `json:"size"`
	End         uint64 `json:"end"`
	File        string `json:"file,omitempty"`
}

// inspectCommand creates the inspect command for printing a resolved layout.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect <in_fdt>",
		Short: "Print the resolved area layout without writing an image",
		Long: `Print every area with its resolved offset, size and file.

Areas without an offset are placed before all areas with one, in tree order
starting at offset 0, exactly as they would be when building the image.
Overlapping areas are reported as errors.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFiles(layoutExts),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	addAreasPathFlag(cmd, &opts.areasPath)
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the layout as JSON")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, w io.Writer, input string, opts inspectOptions) error {
	areas, err := c.newRunner().Plan(ctx, pipeline.Options{
		Input:     input,
		AreasPath: opts.areasPath,
		Logger:    loggerFromContext(ctx),
	})
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(layoutEntries(areas))
	}

	fmt.Fprintln(w, renderLayout(areas))
	return nil
}

func layoutEntries(areas []area.Area) []layoutEntry {
	entries := make([]layoutEntry, 0, len(areas))
	for _, a := range areas {
		e := layoutEntry{
			Description: a.Description,
			Compatible:  a.Compatible,
			Size:        a.Size,
			End:         a.End(),
		}
		if a.Offset != nil {
			e.Offset = *a.Offset
		}
		if a.File != nil {
			e.File = *a.File
		}
		entries = append(entries, e)
	}
	return entries
}
