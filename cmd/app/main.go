package main

import (
	"fmt"
	"log"
	"os"

	"refbot/internal/repository"
	"refbot/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:           "refbot",
		Short:         "Referral bot backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (default ./config.yaml)")

	root.AddCommand(serveCmd(), migrateCmd(), exportCmd(), tailEventsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads the config, initializes the logger and opens the repository.
// The caller owns the returned cleanup.
func bootstrap() (*Config, *repository.Repository, func(), error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	repo, err := repository.New(cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	cleanup := func() {
		if err := repo.Close(); err != nil {
			logger.Logger().Error("failed to close repository", zap.Error(err))
		}
		if err := logger.Sync(); err != nil {
			log.Printf("failed to sync logger: %v", err)
		}
	}

	return cfg, repo, cleanup, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := repo.Migrate(cfg.Database.Name); err != nil {
				return err
			}
			logger.Logger().Info("migrations applied", zap.String("database", cfg.Database.Name))
			return nil
		},
	}
}
