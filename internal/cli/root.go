package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/config"
	"trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/screenshot"
	"trade-journal/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// commandTimeout bounds a single command's store work.
const commandTimeout = 30 * time.Second

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.SnapshotStore
	Session *journal.Session

	// newLogger builds the logger once config is known; tests replace it.
	newLogger func(logging.LogConfig) zerolog.Logger
}

// Execute builds the root command, runs it with args and releases the store
// afterwards, also when the command fails. Configuration is loaded before
// any subcommand runs so --config is honored.
func Execute(ctx context.Context, logger zerolog.Logger, args []string) error {
	app := newApp(logger)
	rootCmd := newRootCmd(app)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := app.Close(); err == nil {
		err = closeErr
	}
	return err
}

func newApp(logger zerolog.Logger) *App {
	return &App{
		Logger:    logger,
		newLogger: logging.NewLoggerWithConfig,
	}
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal - record trades and review your edge",
		Long: `Trade journal records trades across the USA and India markets, derives
position size, P&L and R multiples from your risk settings, and reports
performance by strategy, weekday, time of day and EMA distance.

Use 'journal <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("market", "", "market for this command only: usa or india")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addReportCommands(rootCmd, app)
	addSettingsCommands(rootCmd, app)
	addHelpCommands(rootCmd)

	return rootCmd
}

// setup loads configuration and builds the logger.
func (a *App) setup(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.Config = cfg
	a.Logger = a.newLogger(cfg.Logging)

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		a.Logger = a.Logger.Level(zerolog.DebugLevel)
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	cmd.SetContext(logging.WithLogger(parent, a.Logger))
	a.Logger.Debug().Str("config_dir", cfg.Dir).Str("store", cfg.Store.Driver).Msg("Configuration loaded")
	return nil
}

// session opens the store and the journal on first use.
func (a *App) session(cmd *cobra.Command) (*journal.Session, error) {
	if a.Session != nil {
		return a.Session, nil
	}

	var pinned models.Market
	if name, _ := cmd.Flags().GetString("market"); name != "" {
		m, err := models.ParseMarket(name)
		if err != nil {
			return nil, err
		}
		pinned = m
	}

	st, err := a.openStore()
	if err != nil {
		return nil, fmt.Errorf("opening journal store: %w", err)
	}

	s := journal.New(journal.Options{
		Store:           st,
		Scorer:          screenshot.NewLuminanceScorer(),
		Logger:          a.Logger,
		DefaultMarket:   a.Config.Market(),
		Market:          pinned,
		Risk:            a.Config.Markets.RiskSettings(),
		SizingMode:      a.Config.SizingMode(),
		OpenTradePolicy: a.Config.OpenTradePolicy(),
		DefaultStrategy: a.Config.Journal.DefaultStrategy,
		EMAPeriod:       a.Config.Journal.EMAPeriod,
	})

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := s.Open(ctx); err != nil {
		st.Close()
		return nil, err
	}

	a.Store = st
	a.Session = s
	a.Logger.Debug().Str("backend", st.Name()).Str("market", string(s.Market())).Msg("Journal opened")
	return s, nil
}

// openStore opens the configured backend. A damaged database file is moved
// aside and replaced by an empty one.
func (a *App) openStore() (store.SnapshotStore, error) {
	driver, path := a.Config.Store.Driver, a.Config.Store.Path
	st, err := store.Open(driver, path)
	if err == nil || !errors.Is(err, errors.ErrSnapshotCorrupt) {
		return st, err
	}

	moved, qerr := store.Quarantine(path, time.Now())
	if qerr != nil {
		return nil, errors.Wrap(qerr, err.Error())
	}
	a.Logger.Warn().Err(err).Str("moved_to", moved).Msg("Journal database unreadable, starting with an empty journal")
	return store.Open(driver, path)
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	a.Session = nil
	return err
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Trade Journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": app.Config.ConfigFile()})
			} else {
				output.Println(app.Config.ConfigFile())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Journal")
	output.Printf("  Default Market:  %s\n", cfg.Market())
	output.Printf("  Sizing Mode:     %s\n", cfg.SizingMode())
	output.Printf("  Open Trades:     %s\n", cfg.OpenTradePolicy())
	output.Printf("  Default Strategy: %s\n", valueOr(cfg.Journal.DefaultStrategy, "-"))
	output.Printf("  EMA Period:      %d\n", cfg.Journal.EMAPeriod)
	output.Println()

	output.Bold("Store")
	output.Printf("  Driver:          %s\n", cfg.Store.Driver)
	output.Printf("  Path:            %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Risk Seeds")
	for _, m := range models.Markets {
		rc := cfg.Markets.RiskSettings().For(m)
		output.Printf("  %-6s           %s @ %.2f%%\n", strings.ToUpper(string(m)), FormatCurrency(m, rc.AccountSize), rc.RiskPercent)
	}
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %s\n", cfg.Logging.FilePath)
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
