package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wellnessgrid/backend/internal/config"
	"github.com/wellnessgrid/backend/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "wellnessgrid-api",
	Short: "WellnessGrid analytics API server",
	Long: `A REST API server that records health tracker entries and derives
analytics, wellness scores, threshold alerts and generated insights.`,
	SilenceUsage: true,
}

var (
	configFile string
	envFile    string
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig reads configuration and installs the default logger
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(config.Options{ConfigFile: configFile, EnvFile: envFile})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Backend:   cfg.Logging.Backend,
		Level:     logger.ParseLevel(cfg.Logging.Level),
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetDefault(log)

	return cfg, log, nil
}
