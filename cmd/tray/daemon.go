package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	trayConfig "github.com/yourusername/tray-cli/internal/config"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/section"
	trayState "github.com/yourusername/tray-cli/internal/state"
)

var daemonLogStderr bool

// daemonCmd keeps the layout cache current until interrupted
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep the menu bar sections up to date",
	Long: `Runs the refresh coordinator: the layout cache is rebuilt on a timer and
whenever TrayServer reports a menu bar change. The config file is watched and
its settings apply without a restart; move and cache tuning is read at start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if daemonLogStderr {
			logging.Mirror(os.Stderr)
		}

		return withEngine(cmd.Context(), func(ctx context.Context, e *engine) error {
			logging.Info().
				Str("socket", socketPath).
				Int("items", e.manager.Cache().Len()).
				Msg("daemon started")

			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return e.manager.Run(ctx, e.backend.Signals())
			})

			if e.store.Path() != "" {
				if err := e.store.Watch(ctx, func(cfg *trayConfig.Config) {
					logging.Info().
						Dur("rehideInterval", cfg.Settings.RehideInterval.D()).
						Bool("alwaysHidden", cfg.Settings.AlwaysHiddenEnabled).
						Msg("settings updated")
				}); err != nil {
					logging.Warn().Err(err).Msg("config watch disabled")
				}
			}

			g.Go(func() error {
				updates, cancel := e.manager.Subscribe()
				defer cancel()
				for {
					select {
					case <-ctx.Done():
						return nil
					case c, ok := <-updates:
						if !ok {
							return nil
						}
						logCache(c)
						updateState(func(rs *trayState.RuntimeState) { rs.RecordLayout(c) })
					}
				}
			})

			err := g.Wait()
			if errors.Is(err, context.Canceled) {
				logging.Info().Msg("daemon stopped")
				return nil
			}
			if err != nil {
				return fmt.Errorf("daemon: %w", err)
			}
			return nil
		})
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonLogStderr, "log-stderr", false, "Also write logs to stderr")
}

func logCache(c *section.Cache) {
	ev := logging.Info().Str("display", c.DisplayID)
	for _, n := range section.Names {
		ev = ev.Int(n.String(), len(c.Items(n)))
	}
	ev.Msg("layout cache updated")
}
