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
	runConfigPath string
	runDebug      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a single chain run and exit",
	Long: `Execute the full chain once (refresh prices, synthesize the report,
dispatch it) without starting the HTTP server, then exit. Exits non-zero when
any step fails.`,
	Run: runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	// Load .env file if exists
	if _, err := os.Stat(constants.DefaultEnvPath); err == nil {
		if err := godotenv.Load(constants.DefaultEnvPath); err != nil {
			fmt.Printf("❌ Failed to load .env file: %v\n", err)
			os.Exit(1)
		}
	}

	// Determine config path
	configPath := runConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Enable debug mode if flag is set
	if runDebug {
		cfg.Logging.Level = "debug"
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

	log.Info("🚀 Running chain once",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "llm_provider", Value: cfg.LLM.Provider},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, log)
	if err := application.RunChainOnce(ctx); err != nil {
		log.Error("❌ Chain run failed", err)
		os.Exit(1)
	}

	log.Info("✅ Chain run completed")
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file")
	runCmd.Flags().BoolVarP(&runDebug, "debug", "d", false, "Enable debug logging")
}
