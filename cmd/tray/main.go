package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yourusername/tray-cli/internal/client"
	trayConfig "github.com/yourusername/tray-cli/internal/config"
	"github.com/yourusername/tray-cli/internal/items"
	"github.com/yourusername/tray-cli/internal/logging"
	"github.com/yourusername/tray-cli/internal/manager"
	"github.com/yourusername/tray-cli/internal/output"
	"github.com/yourusername/tray-cli/internal/section"
	trayServer "github.com/yourusername/tray-cli/internal/server"
	trayState "github.com/yourusername/tray-cli/internal/state"
)

var (
	socketPath string
	timeout    time.Duration
	configPath string
	jsonOutput bool
	noColor    bool
	debugMode  bool

	// Color functions
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	keyColor     = color.New(color.FgYellow)
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "tray",
	Short: "Tray - macOS menu bar organizer",
	Long: `Tray arranges macOS menu bar items into visible, hidden and always-hidden
sections by dragging them with synthetic events through the TrayServer helper.

It can list and visualize the current sections, move and click items, and
temporarily reveal hidden items.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// pingCmd tests server connectivity
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test connection to TrayServer",
	Long:  `Sends a ping request to the server to test connectivity and response time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(socketPath, timeout)
		defer c.Close()

		start := time.Now()
		result, err := c.Ping(cmd.Context())
		elapsed := time.Since(start)

		if err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}

		if jsonOutput {
			return printJSON(result)
		}

		successColor.Println("✓ Pong received")
		fmt.Printf("Response time: %v\n", elapsed)
		if ts, ok := result["timestamp"].(float64); ok {
			fmt.Printf("Server timestamp: %v\n", time.Unix(int64(ts), 0))
		}

		return nil
	},
}

// MARK: - Item Commands

// itemsCmd is the parent command for menu bar item subcommands
var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Inspect and arrange menu bar items",
	Long: `Commands that read the menu bar sections and relocate items.

Items are addressed by tag, written "namespace:title", for example
"com.apple.controlcenter:Clock". Use "tray items list" to see every tag.`,
}

// itemsListCmd lists items grouped by section
var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List menu bar items by section",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(ctx context.Context, e *engine) error {
			cache := e.manager.Cache()
			if jsonOutput {
				return printJSON(cacheJSON(cache))
			}
			output.PrintSectionsTable(os.Stdout, cache)
			return nil
		})
	},
}

// itemsGetCmd shows one item
var itemsGetCmd = &cobra.Command{
	Use:   "get <tag>",
	Short: "Show details of a menu bar item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := parseTagArg(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd.Context(), func(ctx context.Context, e *engine) error {
			item, err := e.manager.Lookup(ctx, tag)
			if err != nil {
				return err
			}
			name, cached := e.manager.Cache().SectionOf(tag)
			if jsonOutput {
				out := map[string]interface{}{"item": item}
				if cached {
					out["section"] = name.String()
				}
				return printJSON(out)
			}
			output.PrintItemDetail(os.Stdout, item, name, cached)
			return nil
		})
	},
}

// Visualization flags
var (
	showASCII   bool
	showUnicode bool
	showWidth   int
)

// itemsShowBarCmd visualizes the sections
var itemsShowBarCmd = &cobra.Command{
	Use:   "show-bar",
	Short: "Draw the menu bar sections",
	Long: `Draws every cached item as a box scaled to the terminal width, colored by
section, with the control items marked V, H and AH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(ctx context.Context, e *engine) error {
			output.PrintBar(os.Stdout, e.manager.Cache(), getVisualizationOptions())
			return nil
		})
	},
}

// itemsMoveCmd moves an item next to another
var itemsMoveCmd = &cobra.Command{
	Use:   "move <tag>",
	Short: "Move an item beside another item",
	Long: `Drags the item so it ends up immediately left or right of the anchor item.

Examples:
  tray items move com.example:Status --left-of tray:TrayControlItem.Hidden
  tray items move com.apple.controlcenter:Battery --right-of com.apple.controlcenter:WiFi`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := parseTagArg(args[0])
		if err != nil {
			return err
		}
		leftOf, _ := cmd.Flags().GetString("left-of")
		rightOf, _ := cmd.Flags().GetString("right-of")
		if (leftOf == "") == (rightOf == "") {
			return fmt.Errorf("exactly one of --left-of or --right-of is required")
		}

		anchorArg, side := leftOf, "left of"
		if rightOf != "" {
			anchorArg, side = rightOf, "right of"
		}
		anchorTag, err := parseTagArg(anchorArg)
		if err != nil {
			return err
		}

		return withEngine(cmd.Context(), func(ctx context.Context, e *engine) error {
			item, err := e.manager.Lookup(ctx, tag)
			if err != nil {
				return err
			}
			anchor, err := e.manager.Lookup(ctx, anchorTag)
			if err != nil {
				return err
			}

			dest := items.LeftOfItem(anchor)
			if rightOf != "" {
				dest = items.RightOfItem(anchor)
			}
			if err := e.manager.Move(ctx, item, dest); err != nil {
				return err
			}
			if err := e.manager.Refresh(ctx, true); err != nil {
				logging.Warn().Err(err).Msg("refresh after move failed")
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{"moved": tag.String(), "destination": dest.String()})
			}
			successColor.Printf("✓ Moved %s %s %s\n", tag, side, anchorTag)
			return nil
		})
	},
}

// itemsClickCmd clicks an item
var itemsClickCmd = &cobra.Command{
	Use:   "click <tag>",
	Short: "Click a menu bar item",
	Long:  `Sends a synthetic click to the item, opening its menu if it has one.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := parseTagArg(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd.Context(), func(ctx context.Context, e *engine) error {
			item, err := e.manager.Lookup(ctx, tag)
			if err != nil {
				return err
			}
			if err := e.manager.Click(ctx, item); err != nil {
				return err
			}
			if !jsonOutput {
				successColor.Printf("✓ Clicked %s\n", tag)
			}
			return nil
		})
	},
}

// itemsRevealCmd temporarily shows a hidden item
var itemsRevealCmd = &cobra.Command{
	Use:   "reveal <tag>",
	Short: "Temporarily show a hidden item and click it",
	Long: `Moves a hidden item into the visible section, clicks it, and returns it to
its slot once the rehide interval passes and its menu has closed.

The command stays running until the item is back in place. Interrupting it
leaves the item in the visible section; "tray items rehide" returns it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := parseTagArg(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd.Context(), func(ctx context.Context, e *engine) error {
			e.manager.OnShown(func(tag items.Tag, dest items.Destination) {
				updateState(func(rs *trayState.RuntimeState) { rs.RecordShown(tag, dest) })
			})
			if err := e.manager.TempShow(ctx, tag); err != nil {
				return err
			}
			if !jsonOutput {
				successColor.Printf("✓ Showing %s\n", tag)
				fmt.Printf("Rehiding after %v\n", e.store.RehideInterval())
			}

			tick := time.NewTicker(100 * time.Millisecond)
			defer tick.Stop()
			for e.manager.IsTemporarilyShown(tag) {
				select {
				case <-ctx.Done():
					return fmt.Errorf("interrupted, %s left visible (run \"tray items rehide\"): %w", tag, ctx.Err())
				case <-tick.C:
				}
			}

			updateState(func(rs *trayState.RuntimeState) { rs.ForgetShown(tag) })

			if jsonOutput {
				return printJSON(map[string]interface{}{"revealed": tag.String(), "rehidden": true})
			}
			successColor.Printf("✓ %s returned to its section\n", tag)
			return nil
		})
	},
}

// itemsRehideCmd returns items left visible by an interrupted reveal
var itemsRehideCmd = &cobra.Command{
	Use:   "rehide",
	Short: "Return items left visible by an interrupted reveal",
	Long: `Moves every item recorded by "tray items reveal" that was never returned
back to its slot, then clears it from the state file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := trayState.LoadState()
		if err != nil {
			return err
		}
		pending := rs.ShownItems()
		if len(pending) == 0 {
			if !jsonOutput {
				fmt.Println("No items to rehide")
			}
			return nil
		}

		return withEngine(cmd.Context(), func(ctx context.Context, e *engine) error {
			var failed []string
			for _, s := range pending {
				dest, ok := s.Destination()
				if !ok {
					logging.Warn().Str("tag", s.Tag.String()).Str("side", s.Side).Msg("bad side in state, dropping")
					rs.ForgetShown(s.Tag)
					continue
				}
				if err := e.manager.ReturnItem(ctx, s.Tag, dest); err != nil {
					printError(fmt.Sprintf("%s: %v", s.Tag, err))
					failed = append(failed, s.Tag.String())
					continue
				}
				rs.ForgetShown(s.Tag)
				if !jsonOutput {
					successColor.Printf("✓ Returned %s\n", s.Tag)
				}
			}

			if err := rs.Save(); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]interface{}{"returned": len(pending) - len(failed), "failed": failed})
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d items could not be returned", len(failed), len(pending))
			}
			return nil
		})
	},
}

// MARK: - State Commands

// trayStateCmd is the parent command for state subcommands
var trayStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage runtime state",
	Long:  `Commands for showing and resetting the saved layouts and revealed items.`,
}

// stateShowCmd shows the state file
var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show runtime state",
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := trayState.LoadState()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rs)
		}

		summary := rs.Summary()
		keyColor.Print("State file: ")
		fmt.Println(trayState.GetStatePath())
		keyColor.Print("Displays: ")
		fmt.Println(summary["displays"])
		keyColor.Println("Revealed items:")
		for _, s := range rs.ShownItems() {
			fmt.Printf("  %s (%s %s, since %s)\n", s.Tag, s.Side, s.Anchor, s.ShownAt.Format(time.Kitchen))
		}
		return nil
	},
}

// stateResetCmd clears the state file
var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear runtime state",
	RunE: func(cmd *cobra.Command, args []string) error {
		rs := trayState.NewRuntimeState()
		if err := rs.Reset(trayState.GetStatePath()); err != nil {
			return err
		}
		successColor.Println("✓ State cleared")
		return nil
	},
}

// MARK: - Config Commands

// trayConfigCmd is the parent command for config subcommands
var trayConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for showing, validating and creating the tray configuration.`,
}

// configShowCmd shows current config
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		return printJSON(cfg)
	},
}

// configValidateCmd validates config file
var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := trayConfig.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		successColor.Println("✓ Configuration is valid")
		keyColor.Print("  Rehide interval: ")
		fmt.Println(cfg.Settings.RehideInterval)
		keyColor.Print("  Always-hidden section: ")
		fmt.Println(cfg.Settings.AlwaysHiddenEnabled)
		keyColor.Print("  Move attempts: ")
		fmt.Println(cfg.Move.Attempts)

		return nil
	},
}

// configInitCmd creates default config
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = trayConfig.GetConfigPath()
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s", path)
		}

		if err := trayConfig.Write(path, trayConfig.DefaultConfig()); err != nil {
			return err
		}

		successColor.Printf("✓ Created default config at: %s\n", path)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", client.DefaultSocketPath, "Unix socket path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/tray/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(daemonCmd)

	rootCmd.AddCommand(itemsCmd)
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsGetCmd)
	itemsCmd.AddCommand(itemsShowBarCmd)
	itemsCmd.AddCommand(itemsMoveCmd)
	itemsCmd.AddCommand(itemsClickCmd)
	itemsCmd.AddCommand(itemsRevealCmd)
	itemsCmd.AddCommand(itemsRehideCmd)

	itemsMoveCmd.Flags().String("left-of", "", "Tag of the item to move left of")
	itemsMoveCmd.Flags().String("right-of", "", "Tag of the item to move right of")

	itemsShowBarCmd.Flags().BoolVar(&showASCII, "ascii", false, "Use ASCII box characters")
	itemsShowBarCmd.Flags().BoolVar(&showUnicode, "unicode", false, "Use Unicode box characters")
	itemsShowBarCmd.Flags().IntVar(&showWidth, "width", 0, "Override terminal width")

	rootCmd.AddCommand(trayStateCmd)
	trayStateCmd.AddCommand(stateShowCmd)
	trayStateCmd.AddCommand(stateResetCmd)

	rootCmd.AddCommand(trayConfigCmd)
	trayConfigCmd.AddCommand(configShowCmd)
	trayConfigCmd.AddCommand(configValidateCmd)
	trayConfigCmd.AddCommand(configInitCmd)

	cobra.OnInitialize(func() {
		if noColor {
			color.NoColor = true
		}
		if debugMode {
			logging.SetDebug(true)
		}
	})
}

func main() {
	// Initialize logging
	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(err.Error())
		logging.Close()
		os.Exit(1)
	}
}

// MARK: - Engine

// engine is a connected relocation engine for the lifetime of one command
type engine struct {
	client  *client.Client
	backend *trayServer.Backend
	manager *manager.Manager
	store   *trayConfig.Store
}

// openEngine connects to TrayServer and builds the first layout cache
func openEngine(ctx context.Context) (*engine, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store := trayConfig.NewStore(cfg, path)

	c := client.NewClient(socketPath, timeout)
	if err := c.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to TrayServer: %w", err)
	}

	b := trayServer.New(c)
	if err := b.Start(ctx); err != nil {
		c.Close()
		return nil, err
	}

	e := &engine{
		client:  c,
		backend: b,
		manager: manager.New(b, store, cfg.ManagerOptions()),
		store:   store,
	}
	if err := e.manager.Refresh(ctx, true); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to read menu bar sections: %w", err)
	}
	return e, nil
}

func (e *engine) Close() {
	e.manager.Close()
	e.backend.Close()
	e.client.Close()
}

func withEngine(ctx context.Context, fn func(context.Context, *engine) error) error {
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}

// loadConfig loads the --config file, or the default one when it exists.
// A missing default file means defaults.
func loadConfig() (*trayConfig.Config, string, error) {
	cfg, err := trayConfig.LoadConfig(configPath)
	switch {
	case err == nil:
		path := configPath
		if path == "" {
			path = existingDefaultConfig()
		}
		return cfg, path, nil
	case configPath == "" && errors.Is(err, trayConfig.ErrNoConfig):
		logging.Debug().Msg("no config file, using defaults")
		return trayConfig.DefaultConfig(), "", nil
	default:
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
}

func existingDefaultConfig() string {
	yamlPath := trayConfig.GetConfigPath()
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	jsonPath := yamlPath[:len(yamlPath)-len(".yaml")] + ".json"
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	return ""
}

// Helper functions

// updateState applies fn to the saved state. Failures only cost the
// ability to undo an interrupted reveal, so they are logged.
func updateState(fn func(*trayState.RuntimeState)) {
	rs, err := trayState.LoadState()
	if err != nil {
		logging.Warn().Err(err).Msg("failed to load state")
		return
	}
	fn(rs)
	if err := rs.Save(); err != nil {
		logging.Warn().Err(err).Msg("failed to save state")
	}
}

func parseTagArg(s string) (items.Tag, error) {
	tag, ok := items.ParseTag(s)
	if !ok {
		return items.Tag{}, fmt.Errorf("invalid tag %q: want namespace:title", s)
	}
	return tag, nil
}

// cacheJSON keys sections by name instead of by number
func cacheJSON(c *section.Cache) map[string]interface{} {
	sections := make(map[string][]items.Item, len(section.Names))
	for _, n := range section.Names {
		sections[n.String()] = c.Items(n)
	}
	return map[string]interface{}{
		"displayId": c.DisplayID,
		"sections":  sections,
	}
}

func printJSON(data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printError(msg string) {
	if noColor {
		fmt.Fprintln(os.Stderr, "Error:", msg)
	} else {
		errorColor.Fprint(os.Stderr, "✗ Error: ")
		fmt.Fprintln(os.Stderr, msg)
	}
}

// getVisualizationOptions builds options from flags
func getVisualizationOptions() output.VisualizationOptions {
	opts := output.DefaultVisualizationOptions()

	if showASCII {
		opts.UseUnicode = false
	}
	if showUnicode {
		opts.UseUnicode = true
	}
	if showWidth > 0 {
		opts.MaxWidth = showWidth
	}

	return opts
}
