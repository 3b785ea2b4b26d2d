package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layoutflash/pkg/errors"
	"github.com/matzehuels/layoutflash/pkg/manifest"
)

// convertCommand creates the convert command for turning TOML manifests into
// device tree blobs.
func (c *CLI) convertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <manifest.toml> <out.dtb>",
		Short: "Encode a TOML layout manifest as a device tree blob",
		Long: `Encode a TOML layout manifest as a device tree blob.

Each [[area]] table becomes an area@<index> node directly below the root, so
the blob can be passed to any tool that reads area layouts from a device tree.

Areas without an offset are placed before all areas with one when the image
is built, so give every area after the first explicit one an offset too.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeFiles([]string{"toml"}, []string{"dtb"}),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args[0], args[1])
		},
	}
	return cmd
}

func (c *CLI) runConvert(ctx context.Context, input, output string) error {
	logger := loggerFromContext(ctx)

	m, err := manifest.ParseFile(input)
	if err != nil {
		return err
	}
	data, err := m.FDT()
	if err != nil {
		return fmt.Errorf("encode %s: %w", input, err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "could not create: %s", output)
	}
	logger.Debug("wrote device tree", "output", output, "bytes", len(data))

	printSuccess("Converted %d areas", len(m.Areas))
	printFile(output)
	printNextStep("Build the image", fmt.Sprintf("%s %s flash.img", appName, output))
	return nil
}
