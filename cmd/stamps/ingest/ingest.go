// Package ingestcmder provides the `stamps ingest` CLI command.
package ingestcmder

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tomp11/sb-stamp-manager/pkg/app"
	"github.com/tomp11/sb-stamp-manager/pkg/cliui"
	"github.com/tomp11/sb-stamp-manager/pkg/extract"
	"github.com/tomp11/sb-stamp-manager/pkg/stamp"
)

type ingestCommander struct {
	mock  bool
	debug bool
}

const ingestLongDesc string = `Extract stamps from passport screenshots and merge them into the collection.

Each image may show a single stamp detail page or a grid of many stamps.
Stamps already in the collection only update when the screenshot carries a
later visit date or a higher visit count; re-ingesting an old screenshot
never erases newer data.

Examples:
  stamps ingest passport.png            Ingest one screenshot
  stamps ingest page1.png page2.png     Ingest several screenshots
  stamps ingest --mock any.png          Use the sample dataset (no API key needed)`

const ingestShortDesc string = "Extract and merge stamps from screenshots"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <image> [image...]",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), configDir, args)
		},
	}

	cmd.Flags().BoolVar(&cmder.mock, "mock", false, "Use the sample dataset instead of a real extraction provider")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, configDir string, images []string) error {
	a, err := app.New(ctx, configDir, c.debug)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.ActivateCurrent(ctx); err != nil {
		return err
	}

	extractor, err := a.Extractor(c.mock)
	if err != nil {
		return err
	}
	defer extractor.Close()

	var total stamp.Tally
	for _, path := range images {
		var tally stamp.Tally
		if err := cliui.Step(os.Stdout, fmt.Sprintf("Extracting %s", filepath.Base(path)), func() error {
			image, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			candidates, err := extractor.Extract(ctx, image, mimeTypeOf(path))
			if err != nil {
				return err
			}

			tally, err = a.Store.Ingest(ctx, extract.ToRecords(candidates))
			return err
		}); err != nil {
			return err
		}

		total.Added += tally.Added
		total.Updated += tally.Updated
		total.Skipped += tally.Skipped
	}

	// Flush instead of leaving the push to the debounce timer, which would
	// die with the process.
	if a.Store.IsDirty() {
		if err := cliui.Step(os.Stdout, "Syncing collection", func() error {
			return a.Store.Sync(ctx)
		}); err != nil {
			fmt.Printf("\n  %s Changes are saved locally and will sync on the next run.\n", cliui.WarnStyle.Render("!"))
		}
	}

	fmt.Printf("\n  %s %d added, %d updated, %d skipped\n\n",
		cliui.SuccessMark, total.Added, total.Updated, total.Skipped)

	return nil
}

// mimeTypeOf guesses the image MIME type from the file extension.
func mimeTypeOf(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "image/jpeg"
}
