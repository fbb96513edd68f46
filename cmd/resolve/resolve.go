// Package resolve implements the single-image resolution command.
package resolve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wallrot/wallrot/internal/app"
	"github.com/wallrot/wallrot/internal/buildinfo"
	"github.com/wallrot/wallrot/internal/conf"
)

// Command creates the resolve command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Show the candidates for an image and which one loads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, build)
			if err != nil {
				return err
			}
			defer a.Close()

			source, localBase, err := a.CatalogSource()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			rec, err := source.Lookup(ctx, args[0])
			if err != nil {
				return err
			}

			orch := a.Orchestrator(localBase)
			fmt.Fprintf(out, "Image %s\n", rec.ID)
			for i, c := range orch.Candidates(rec) {
				fmt.Fprintf(out, "  %d. %-16s %s\n", i+1, c.Strategy, c.URL)
			}
			if dryRun {
				return nil
			}

			img, err := orch.ResolveImage(ctx, rec)
			if err != nil {
				fmt.Fprintf(out, "Failed: %v\n", err)
				return err
			}
			fmt.Fprintf(out, "Loaded from %s (%s)\n", img.SourceKind, img.URL)
			if img.Width > 0 {
				fmt.Fprintf(out, "  %dx%d %s, %d bytes\n", img.Width, img.Height, img.ContentType, img.Size)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list candidates, do not load")
	return cmd
}
