// Command inspectctl administers the rail inspection service: it seeds the
// product dataset, prints products and histories, renders QR labels and
// follows the domain events forwarded over Redis.
package main

import (
	"fmt"
	"os"

	"github.com/railinspect/backend/internal/infrastructure/config"
	"github.com/railinspect/backend/internal/infrastructure/logger"
	"github.com/railinspect/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand
type globals struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "inspectctl",
		Short:         "Administer the rail inspection service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (TOML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		seedCmd(g),
		productCmd(g),
		listCmd(g),
		historyCmd(g),
		labelCmd(),
		watchCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "inspectctl version %s\n", Version)
			},
		},
	)
	return cmd
}

func (g *globals) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:      g.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, log, nil
}

// openDatabase connects and migrates the configured database
func openDatabase(cmd *cobra.Command, cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(cmd.Context()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
