package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockpilot/internal/app"
	"stockpilot/internal/config"
	"stockpilot/internal/constants"
	"stockpilot/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start StockPilot server (main command)",
	Long: `Start the StockPilot server with the specified configuration.
This will initialize all components (stores, LLM provider, chain orchestrator,
event hub, schedule trigger, HTTP server) and handle graceful shutdown.

The serve command is the main entry point for running StockPilot.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	// Load .env file if exists
	if _, err := os.Stat(constants.DefaultEnvPath); err == nil {
		if err := godotenv.Load(constants.DefaultEnvPath); err != nil {
			fmt.Printf("❌ Failed to load .env file: %v\n", err)
			os.Exit(1)
		}
	}

	// Determine config path
	configPath := serveConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	// Validate configuration
	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	// Log startup information
	log.Info("🚀 Starting StockPilot",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "listen", Value: cfg.Server.Listen},
		logger.Field{Key: "llm_provider", Value: cfg.LLM.Provider},
	)

	// Create context canceled on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, log)
	if err := application.Run(ctx); err != nil {
		log.Error("❌ Application failed", err)
		os.Exit(1)
	}

	log.Info("👋 StockPilot stopped")
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}
