// Package rotate implements the terminal rotation client.
package rotate

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wallrot/wallrot/internal/app"
	"github.com/wallrot/wallrot/internal/buildinfo"
	"github.com/wallrot/wallrot/internal/conf"
	"github.com/wallrot/wallrot/internal/logger"
	"github.com/wallrot/wallrot/internal/mqtt"
	"github.com/wallrot/wallrot/internal/rotator"
	"github.com/wallrot/wallrot/internal/tui"
)

// Command creates the rotate command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var plain bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate through the catalog in the terminal",
		Long: `Rotate through the catalog, loading each image from Google Drive with local
fallback. The interactive view takes ←/→ for previous/next, r for a random
image and q to quit. --plain prints one line per image instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !plain {
				// The terminal belongs to the viewer, logs go to the file only.
				settings.Logging.Console = &logger.ConsoleOutput{Enabled: false}
				if settings.Logging.FileOutput != nil {
					settings.Logging.FileOutput.Enabled = true
				}
			}
			return run(cmd.Context(), cmd.OutOrStdout(), settings, build, plain, interval)
		},
	}

	if err := setupFlags(cmd, &plain, &interval); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags configures flags specific to the rotate command.
func setupFlags(cmd *cobra.Command, plain *bool, interval *time.Duration) error {
	cmd.Flags().BoolVar(plain, "plain", false, "Print events as lines instead of the interactive view")
	cmd.Flags().DurationVar(interval, "interval", 0, "Advance to the next image at this interval, 0 disables")
	cmd.Flags().String("server", "", "Catalog API base URL, empty reads the local catalog file")
	cmd.Flags().Int("start", -1, "Start index, -1 picks a random image")

	for flag, key := range map[string]string{
		"server": "client.serverurl",
		"start":  "client.startindex",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func run(ctx context.Context, out io.Writer, settings *conf.Settings, build *buildinfo.Context, plain bool, interval time.Duration) error {
	a, err := app.New(settings, build)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, err := a.StartPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	events, unsubscribe := p.Rotator.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	if settings.MQTT.Enabled {
		mqttEvents, mqttUnsubscribe := p.Rotator.Subscribe()
		defer mqttUnsubscribe()

		log := a.Logger("mqtt")
		client := mqtt.NewClient(mqtt.ConfigFromSettings(settings.MQTT), a.Metrics.MQTT, log)
		publisher := mqtt.NewPublisher(client, settings.MQTT.Topic, log)
		wg.Go(func() {
			if err := publisher.Run(ctx, mqttEvents); err != nil && ctx.Err() == nil {
				log.Error("event publisher stopped", logger.Error(err))
			}
		})
	}

	if err := p.Rotator.Initialize(ctx); err != nil {
		return err
	}

	if interval > 0 {
		wg.Go(func() { advance(ctx, p.Rotator, interval) })
	}

	if plain {
		return printEvents(ctx, out, events)
	}
	return tui.Run(ctx, p.Rotator, events)
}

// advance moves to the next image every interval until ctx ends.
func advance(ctx context.Context, r *rotator.Rotator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Next()
		}
	}
}

func printEvents(ctx context.Context, out io.Writer, events <-chan rotator.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Fprintln(out, FormatEvent(ev))
		}
	}
}

// FormatEvent renders one event as a log line.
func FormatEvent(ev rotator.Event) string {
	pos := fmt.Sprintf("[%d/%d]", ev.Index+1, ev.Total)
	if ev.Err != nil {
		return fmt.Sprintf("%s %s error: %v", pos, ev.ID, ev.Err)
	}
	line := fmt.Sprintf("%s %s %s", pos, ev.ID, ev.SourceKind)
	if ev.Width > 0 && ev.Height > 0 {
		line += fmt.Sprintf(" %dx%d", ev.Width, ev.Height)
	}
	return line + " " + ev.URL
}
