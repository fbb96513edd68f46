// Package mapping implements commands for the Drive mapping file.
package mapping

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/drivemap"
)

// Command creates the mapping command with its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect the filename to Drive file id mapping",
	}
	cmd.AddCommand(checkCommand(settings), extractCommand())
	return cmd
}

func checkCommand(settings *conf.Settings) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:          "check",
		Short:        "Compare the mapping file with the image directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := drivemap.Load(settings.Catalog.MappingFile)
			if err != nil {
				return err
			}

			present, err := catalog.ScanDir(settings.Catalog.ImageDir)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Cannot read image directory, skipping disk comparison: %v\n", err)
				present = nil
			}

			report := drivemap.Check(m, present)
			PrintReport(cmd.OutOrStdout(), settings.Catalog.MappingFile, report)

			if strict && !report.OK() {
				return fmt.Errorf("mapping check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when files are unmapped or ids are invalid")
	return cmd
}

func extractCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "extract <url-or-id>...",
		Short:        "Print the Drive file id contained in share links",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, ref := range args {
				id, ok := drivemap.ExtractFileID(ref)
				if !ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: no file id found\n", ref)
					failed++
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d references had no file id", failed, len(args))
			}
			return nil
		},
	}
}

// PrintReport writes a human readable mapping report.
func PrintReport(w io.Writer, path string, r drivemap.Report) {
	fmt.Fprintf(w, "Mapping file: %s\n", path)
	fmt.Fprintf(w, "Mapped files: %d\n", r.Total)

	if len(r.Sample) > 0 {
		fmt.Fprintf(w, "Sample: %s\n", strings.Join(r.Sample, ", "))
	}
	if len(r.Examples) > 0 {
		fmt.Fprintf(w, "Ignored example entries: %s\n", strings.Join(r.Examples, ", "))
	}
	printList(w, "Invalid file ids", r.Invalid)
	printList(w, "Mapped but missing on disk", r.Missing)
	printList(w, "On disk but not mapped", r.Unmapped)

	if r.OK() {
		fmt.Fprintln(w, "Mapping looks good")
	} else if r.Total == 0 {
		fmt.Fprintln(w, "Mapping is empty; run the upload command to populate it")
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", title, len(items))
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
