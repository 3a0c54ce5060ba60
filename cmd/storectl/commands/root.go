package commands

import (
	"context"
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var verbose bool

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storectl",
	Short: "Operator tooling for the storefront API",
	Long: `storectl runs maintenance tasks against the storefront database.

It reads the same .env file and environment variables as the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(unlockCmd)
}

// env bundles what every subcommand needs.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     database.Service
}

func (e *env) close() {
	e.db.Close()
	e.logger.Sync()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	log := logger.NewWithWriter(os.Stderr, level)

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &env{cfg: cfg, logger: log, db: db}, nil
}
