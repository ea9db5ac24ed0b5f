// Command syncd is the FlashNote cloud sync daemon: a manifest-driven
// WebDAV sync engine with a legacy change-log fallback, a local
// control/status HTTP surface, and a cobra CLI front end.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/flashnote/syncd/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// baseLogWriter is the console/stderr sink initLogging picked, kept around
// so setupDebugLog can layer a file sink on top of it rather than replace
// it.
var baseLogWriter io.Writer = os.Stderr

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "syncd",
	Short: "FlashNote cloud sync daemon",
	Long: `syncd drives FlashNote's WebDAV-based bidirectional sync: a
manifest-driven engine for devices that have bootstrapped onto it, and a
legacy incremental push/pull protocol for devices that haven't yet.`,
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(forceFullSyncCmd)
}

func initLogging() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "flashnote-syncd").Logger()

	if os.Getenv("ENV") == "dev" {
		baseLogWriter = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		log.Logger = log.Output(baseLogWriter)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	setupDebugLog(cfg)
	if !cfg.IsDev() && cfg.ControlJWTSecret == "" {
		log.Fatal().Msg("SYNCD_CONTROL_JWT_SECRET is required outside ENV=dev")
	}
	return cfg
}
