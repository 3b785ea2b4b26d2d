package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/layoutflash/pkg/buildinfo"
	"github.com/matzehuels/layoutflash/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used in help and completion output.
const appName = "layoutflash"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The root command itself builds an image from its two arguments.
func (c *CLI) RootCommand() *cobra.Command {
	var areasPath string

	root := &cobra.Command{
		Use:   appName + " <in_fdt> <out_firmware>",
		Short: "Layoutflash compiles a device tree area layout into a flash image",
		Long: `Layoutflash reads area@ nodes from a flattened device tree (or a TOML
manifest) and writes a flat flash image. Every area is filled with 0xff and
the file it names, if any, is copied to its start. File paths may reference
environment variables as $(NAME).`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeFiles(layoutExts, nil),
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), args[0], args[1], areasPath)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	addAreasPathFlag(root, &areasPath)

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger)
}

// =============================================================================
// Flag Helpers
// =============================================================================

func addAreasPathFlag(cmd *cobra.Command, p *string) {
	cmd.Flags().StringVar(p, "areas-path", pipeline.DefaultAreasPath,
		"tree node whose area@ children describe the image (e.g. /flash-info/areas)")
}
