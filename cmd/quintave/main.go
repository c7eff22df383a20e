package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/cli"
	"github.com/quintave/quintave/internal/common"
	"github.com/quintave/quintave/internal/config"
	"github.com/quintave/quintave/internal/storage"
)

var (
	cfgFile string
	envFile string
	version = "dev"
	logger  = zap.NewNop()
	rootCmd = &cobra.Command{
		Use:   "quintave",
		Short: "Envelope budgeting server",
		Long: `quintave serves the Quintave budgeting API: five spending buckets,
income fan-out, habits, goals, journaling and a trial/purchase gate.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/quintave/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add commands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx := cli.NewShutdownHandler(os.Stderr).Watch(context.Background())

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	config.SetDefaults(viper.GetViper())

	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/quintave", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Set up logging
	l, err := common.NewLogger(common.LogLevel(viper.GetString("logging.level")), viper.GetString("logging.format"))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger = l
	zap.ReplaceGlobals(logger)

	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

func openStorage(cmd *cobra.Command, cfg *config.Config) (*storage.SQLStorage, error) {
	store, err := storage.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN,
		storage.Options{MaxOpenConns: cfg.Database.MaxOpenConns}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "quintave", version)
		},
	}
}
