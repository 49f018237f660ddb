package foodkit

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/saadjs/foodkit/internal/app"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	logFormat  string

	cfg    = app.DefaultConfig()
	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "foodkit",
	Short: "foodkit builds foods from ingredients and reports their nutrients",
	Long:  "foodkit is a local-first CLI that stores foods as ingredient lists and aggregates their nutrients by serving, weight, or 100 g reference.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadRuntime(cmd)
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (or FOODKIT_DB)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// loadRuntime reads .env, the config file and the environment, then builds
// the logger shared by every command.
func loadRuntime(cmd *cobra.Command) error {
	if err := app.LoadDotEnv(".env"); err != nil {
		return err
	}
	loaded, err := app.LoadConfig(configPath, os.Getenv)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(logLevel); v != "" {
		loaded.Log.Level = v
	}
	if v := strings.TrimSpace(logFormat); v != "" {
		loaded.Log.Format = v
	}
	l, err := app.NewLogger(cmd.ErrOrStderr(), loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return err
	}
	cfg, logger = loaded, l
	logger.Debug("runtime loaded", "config", configPath, "db", dbPath)
	return nil
}
