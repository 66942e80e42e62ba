package main

import (
	"fmt"
	"log"
	"os"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/config"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/infrastructure/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

var configPath string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	rootCmd := &cobra.Command{
		Use:          "affiliate-ledger",
		Short:        "Referral attribution and commission ledger",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv(config.ConfigPathEnv), "path to YAML config")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.LedgerConfig, *zap.Logger, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("config path is empty: pass --config or set LEDGER_CONFIG_PATH")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Env, cfg.LogConfig.LogLevel, cfg.LogConfig.LogOutput)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log.With(zap.String("service", "affiliate-ledger")), nil
}
