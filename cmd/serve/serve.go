// Package serve implements the HTTP server command.
package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wallrot/wallrot/internal/app"
	"github.com/wallrot/wallrot/internal/buildinfo"
	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/httpcontroller"
	"github.com/wallrot/wallrot/internal/logger"
)

// Command creates the serve command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the image API and web client",
		Long:  "Serve the image listing, image files, catalog records and the static web client over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, build)
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := httpcontroller.New(settings,
				httpcontroller.WithLogger(a.Logger("httpcontroller")),
				httpcontroller.WithMetrics(a.Metrics))
			if err != nil {
				return err
			}
			defer server.Close()

			a.Logger("serve").Info("starting wallrot server",
				logger.String("version", build.Version()),
				logger.String("listen", settings.WebServer.Listen),
				logger.String("image_dir", settings.Catalog.ImageDir))
			return server.Start(cmd.Context())
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", "", "Listen address, e.g. :8080")
	cmd.Flags().String("webroot", "", "Directory with the web client")
	cmd.Flags().String("imagedir", "", "Directory with wallpaper files")

	for flag, key := range map[string]string{
		"listen":   "webserver.listen",
		"webroot":  "webserver.webroot",
		"imagedir": "catalog.imagedir",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
