package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacklau/issuecache/internal/config"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "issuecache",
	Short: "Cache GitHub issues locally and analyze them offline",
	Long: `Issuecache incrementally fetches the issues (and their comments) of a
GitHub repository into a local JSON file, then summarizes states and labels
from that file without touching the network.`,
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight requests.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default %s)", defaultConfigPath()))
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", fmt.Sprintf("dotenv file with GITHUB_TOKEN (default %s)", defaultEnvPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".issuecache/config.yaml"
	}
	return home + "/.issuecache/config.yaml"
}

func defaultEnvPath() string {
	return filepath.Join(filepath.Dir(defaultConfigPath()), ".env")
}

func setupLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads --env-file and --config when given. The default locations
// are optional.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(expandHome(envFile), false); err != nil {
			return nil, err
		}
	} else if err := config.LoadEnvFile(defaultEnvPath(), true); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		return config.Load(cfgFile, false)
	}
	return config.Load(defaultConfigPath(), true)
}
