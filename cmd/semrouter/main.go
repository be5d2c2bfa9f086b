package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/semrouter/internal/config"
	"github.com/liliang-cn/semrouter/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath  string
	logLevel    string
	catalogPath string
)

var rootCmd = &cobra.Command{
	Use:   "semrouter",
	Short: "Semantic intent router",
	Long: `Route free-text queries to named intents by comparing their embeddings
with example utterances of every route in a catalog.`,
	SilenceUsage: true,
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if catalogPath != "" {
		cfg.Router.Catalog = catalogPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger; logs go to stderr so that command
// output on stdout stays machine readable.
func newLogger(cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Logging.Format, config.LogFormatJSON) {
		return logging.New(os.Stderr, level), nil
	}
	return logging.NewConsole(os.Stderr, level), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "semrouter.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Route catalog file (overrides router.catalog)")

	rootCmd.AddCommand(
		serveCmd,
		routeCmd,
		replCmd,
		similarityCmd,
		catalogCmd,
		versionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
