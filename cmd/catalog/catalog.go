// Package catalog implements the catalog generation command.
package catalog

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/drivemap"
)

// Command creates the catalog command.
func Command(settings *conf.Settings) *cobra.Command {
	var output string
	var noDrive bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Generate the image catalog",
		Long:  "Scan the image directory and write the catalog of image records, merging Drive file ids from the mapping file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = settings.Catalog.DataFile
			}
			if noDrive {
				settings.Catalog.UseGoogleDrive = false
			}
			_, err := Generate(cmd.OutOrStdout(), settings, output)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Catalog file to write (default: catalog.datafile)")
	cmd.Flags().BoolVar(&noDrive, "no-drive", false, "Ignore the Drive mapping and write local-only records")
	return cmd
}

// Generate builds the catalog from settings and writes it to output.
// It is shared with the upload command's --regenerate.
func Generate(w io.Writer, settings *conf.Settings, output string) ([]catalog.Payload, error) {
	var mapping *drivemap.Mapping
	if settings.Catalog.UseGoogleDrive {
		m, err := drivemap.Load(settings.Catalog.MappingFile)
		if err != nil {
			return nil, err
		}
		if m.Len() == 0 {
			fmt.Fprintf(w, "No Drive mapping found at %s, records will be local only\n", settings.Catalog.MappingFile)
		}
		mapping = m
	}

	payloads, err := catalog.Build(settings.Catalog.ImageDir, mapping, catalog.BuildOptions{
		LocalImagePath: settings.Catalog.LocalImagePath,
		UseGoogleDrive: settings.Catalog.UseGoogleDrive,
		RemoteHost:     settings.Remote.Host,
		ThumbnailWidth: settings.Remote.ThumbnailWidth,
	})
	if err != nil {
		return nil, err
	}

	if err := catalog.WriteFile(output, payloads); err != nil {
		return nil, err
	}

	remote := 0
	for _, p := range payloads {
		if p.Source == catalog.SourceGoogleDrive {
			remote++
		}
	}
	fmt.Fprintf(w, "Wrote %d images to %s (%d on Google Drive, %d local only)\n",
		len(payloads), output, remote, len(payloads)-remote)
	return payloads, nil
}
