package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/database"
	"trading-journal-go/internal/logger"
	"trading-journal-go/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once the root command has set it up.
type app struct {
	configPath string
	owner      string

	cfg  config.Config
	log  *zap.Logger
	repo *database.Repository
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Trading journal: accounts, trades, statistics and reviews",
		Long: `Journal records trades against personal, funded and challenge accounts
and derives win rate, profit factor, streaks and calendar views from them.

Examples:
  journal serve
  journal stats --account "FTMO 100k"
  journal import trades.csv --account Main --risk 50
  journal export -o backup.json
  journal restore backup.json`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "./configs", "directory holding config.yml")
	cmd.PersistentFlags().StringVar(&a.owner, "owner", "", "journal owner id (default journal.default_owner)")

	cmd.AddCommand(
		newServeCmd(a),
		newStatsCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newRestoreCmd(a),
	)
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	a.cfg = cfg

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}
	a.log = log

	db, err := database.NewDatabase(&cfg)
	if err != nil {
		return err
	}
	a.repo = database.NewRepository(db, log).
		WithFallbackBalance(decimal.NewFromFloat(cfg.Journal.FallbackBalance))

	if a.owner == "" {
		a.owner = cfg.Journal.DefaultOwner
	}
	log.Debug("Configuration loaded", zap.String("dsn", cfg.Database.DSN), zap.String("owner", a.owner))
	return nil
}

func (a *app) newStore(owner string) *store.Store {
	return store.New(a.repo.ForOwner(owner), store.Options{
		CommissionPerLot: decimal.NewFromFloat(a.cfg.Journal.CommissionPerLot),
		BaseAccountSize:  decimal.NewFromFloat(a.cfg.Journal.BaseAccountSize),
		MentorWindow:     a.cfg.Mentor.MaxTrades,
	}, a.log)
}

// loadStore returns the owner's journal, fully fetched.
func (a *app) loadStore(ctx context.Context) (*store.Store, error) {
	st := a.newStore(a.owner)
	if err := st.FetchAll(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
