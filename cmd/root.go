// Package cmd assembles the wallrot command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wallrot/wallrot/cmd/catalog"
	"github.com/wallrot/wallrot/cmd/mapping"
	"github.com/wallrot/wallrot/cmd/resolve"
	"github.com/wallrot/wallrot/cmd/rotate"
	"github.com/wallrot/wallrot/cmd/serve"
	"github.com/wallrot/wallrot/cmd/upload"
	"github.com/wallrot/wallrot/internal/buildinfo"
	"github.com/wallrot/wallrot/internal/conf"
)

// RootCommand creates and returns the root command. Subcommands share
// settings, which is filled from the config file before any of them runs.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "wallrot",
		Short:         "Wallpaper rotator with Google Drive delivery and local fallback",
		Version:       build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: search standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	rootCmd.AddCommand(
		serve.Command(settings, build),
		catalog.Command(settings),
		mapping.Command(settings),
		upload.Command(settings, build),
		rotate.Command(settings, build),
		resolve.Command(settings, build),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded
		return nil
	}

	return rootCmd
}
