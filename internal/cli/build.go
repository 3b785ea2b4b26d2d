package cli

import (
	"context"
	"fmt"

	"github.com/matzehuels/layoutflash/pkg/pipeline"
)

// runBuild compiles input into the image at output.
func (c *CLI) runBuild(ctx context.Context, input, output, areasPath string) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	result, err := c.newRunner().Execute(ctx, pipeline.Options{
		Input:     input,
		Output:    output,
		AreasPath: areasPath,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Wrote %s", output))

	printSuccess("Flash image written")
	printFile(output)
	printStats(result.Stats)
	printKeyValue("sha256", result.Digest)
	if n := result.Stats.SkippedFiles; n > 0 {
		printWarning("%d area file(s) left out because they name an unset variable", n)
	}
	return nil
}
