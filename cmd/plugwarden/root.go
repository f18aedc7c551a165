package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plugwarden/plugwarden/internal/infrastructure/container"
)

var (
	cfgFile  string
	verbose  bool
	dbPath   string
	cacheTTL time.Duration
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "plugwarden",
	Short: "Capability permission engine for plugins",
	Long: `Plugwarden manages what plugins are allowed to do on a host. Plugins
declare the capabilities they need in a permission manifest; the host
ingests the manifest, grants or revokes capabilities, and answers
authorization checks against the compiled grant set.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.plugwarden.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the permission database (default: in-memory)")
	rootCmd.PersistentFlags().DurationVar(&cacheTTL, "cache-ttl", 0, "snapshot cache TTL (0 means no expiry)")

	_ = viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("cache_ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))
}

// initConfig loads configuration from the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("failed to find home directory", "error", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".plugwarden")
	}

	viper.SetEnvPrefix("PLUGWARDEN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Using TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// newContainer builds the dependency container from global flags and the
// config file.
func newContainer() (*container.Container, error) {
	return container.New(container.Options{
		Logger:       slog.Default(),
		DatabasePath: viper.GetString("database"),
		HostVersion:  version,
		CacheTTL:     viper.GetDuration("cache_ttl"),
	})
}
