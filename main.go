package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sector-intel/api"
	"sector-intel/config"
	"sector-intel/logger"
	"sector-intel/models"
)

var (
	// Global flags
	configPath string
	apiURL     string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sector-intel",
	Short: "Industry Intelligence Tracker dashboard",
	Long: `sector-intel serves the Industry Intelligence Tracker: a server-rendered
dashboard of macro sector trends, narratives and detected signals, backed by
the sector-intelligence API.

Run "sector-intel serve" to start the web UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, err = logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL, overrides api.base_url")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, pipelineCmd, sectorsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAPIClient() *api.Client {
	return api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log),
	)
}

// loadCatalog fetches signal type descriptions. The built-in labels are
// used alone when the backend cannot be reached.
func loadCatalog(ctx context.Context, client *api.Client) *models.Catalog {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	descriptions, err := client.GetSignalTypes(ctx)
	if err != nil {
		log.Warn("signal types unavailable, using built-in labels", zap.Error(err))
		return models.NewCatalog(nil)
	}
	log.Info("loaded signal types", zap.Int("count", len(descriptions)))
	return models.NewCatalog(descriptions)
}
