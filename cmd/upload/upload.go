// Package upload implements the Drive upload command.
package upload

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	catalogcmd "github.com/wallrot/wallrot/cmd/catalog"
	"github.com/wallrot/wallrot/internal/app"
	"github.com/wallrot/wallrot/internal/buildinfo"
	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/drivemap"
	"github.com/wallrot/wallrot/internal/gdrive"
)

// Command creates the upload command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var sel gdrive.Selection
	var regenerate bool

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload wallpapers to Google Drive and record their file ids",
		Long: `Upload images from the image directory to a public Google Drive folder,
merge the new file ids into the mapping file and optionally regenerate the catalog.

Select the files with exactly one of --all, --batch N or --file NAME.`,
		Example: `  wallrot upload --all
  wallrot upload --batch 20 --random
  wallrot upload --batch 20 --start 40 --regenerate
  wallrot upload --file sunset.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			names, err := catalog.ScanDir(settings.Catalog.ImageDir)
			if err != nil {
				return err
			}
			selected, err := gdrive.Select(names, sel)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				fmt.Fprintln(out, "No images to upload")
				return nil
			}

			a, err := app.New(settings, build)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := gdrive.NewService(ctx, settings.Drive.CredentialsFile)
			if err != nil {
				return err
			}
			uploader := gdrive.New(svc, a.Logger("gdrive"))

			folderID, err := uploader.EnsureFolder(ctx, settings.Drive.FolderID)
			if err != nil {
				return err
			}
			if folderID != settings.Drive.FolderID {
				fmt.Fprintf(out, "Uploading into new folder %s; set drive.folderid to reuse it\n", folderID)
			}

			paths := make([]string, len(selected))
			for i, name := range selected {
				paths[i] = filepath.Join(settings.Catalog.ImageDir, name)
			}

			uploaded, uploadErr := uploader.UploadAll(ctx, folderID, paths, func(p gdrive.Progress) {
				if p.Err != nil {
					fmt.Fprintf(out, "[%d/%d] %s failed: %v\n", p.Done, p.Total, p.File, p.Err)
					return
				}
				fmt.Fprintf(out, "[%d/%d] %s -> %s\n", p.Done, p.Total, p.File, p.FileID)
			})

			// Save whatever succeeded even when some uploads failed.
			if len(uploaded) > 0 {
				if err := mergeMapping(settings.Catalog.MappingFile, uploaded); err != nil {
					return err
				}
				fmt.Fprintf(out, "Recorded %d file ids in %s\n", len(uploaded), settings.Catalog.MappingFile)

				if regenerate {
					if _, err := catalogcmd.Generate(out, settings, settings.Catalog.DataFile); err != nil {
						return err
					}
				}
			}
			return uploadErr
		},
	}

	cmd.Flags().BoolVar(&sel.All, "all", false, "Upload every image in the image directory")
	cmd.Flags().IntVar(&sel.Batch, "batch", 0, "Upload a batch of N images")
	cmd.Flags().BoolVar(&sel.Random, "random", false, "Pick the batch at random")
	cmd.Flags().IntVar(&sel.Start, "start", 0, "Index of the first image of a sequential batch")
	cmd.Flags().StringVar(&sel.File, "file", "", "Upload a single image by file name")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Regenerate the catalog after uploading")

	cmd.MarkFlagsMutuallyExclusive("all", "batch", "file")
	cmd.MarkFlagsOneRequired("all", "batch", "file")
	cmd.MarkFlagsMutuallyExclusive("random", "start")

	return cmd
}

func mergeMapping(path string, uploaded map[string]string) error {
	m, err := drivemap.Load(path)
	if err != nil {
		return err
	}
	m.Merge(uploaded)
	return m.Save(path)
}
