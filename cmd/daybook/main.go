package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/daybook/internal/app"
	"github.com/ternarybob/daybook/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
	triggerNow   = flag.Bool("run-now", false, "Trigger a precompute batch immediately after startup")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Daybook version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("daybook.toml"); err == nil {
			configFiles = append(configFiles, "daybook.toml")
		} else if _, err := os.Stat("deployments/local/daybook.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/daybook.toml")
		}
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> files -> env)
	// 2. Validate, refusing to start on any config error
	// 3. Initialize logger
	// 4. Print banner, wire the app
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if err := config.Validate(); err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("version", common.GetFullVersion()).
		Str("environment", config.Environment).
		Str("timezone", config.Timezone).
		Str("schedule", config.Precompute.Schedule).
		Msg("Starting daybook")

	application, err := app.New(context.Background(), config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	if *triggerNow {
		invocation, err := application.Controller.Trigger("manual")
		if err != nil {
			logger.Error().Err(err).Msg("Immediate precompute trigger rejected")
		} else {
			logger.Info().
				Str("invocation_id", invocation.ID).
				Str("business_date", invocation.BusinessDate.String()).
				Msg("Immediate precompute accepted")
		}
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	application.Close()
	logger.Info().Msg("Shutdown complete")
}
