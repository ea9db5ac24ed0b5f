package main

import (
	"os"

	"github.com/flashnote/syncd/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxDebugLogBytes = 10 * 1024 * 1024

// setupDebugLog attaches a debug.log file sink in cfg.DataDir on top of
// whatever the normal logger output is and lowers the logger to debug
// level (for both sinks), so every Transport request outcome is captured.
// If the file is already larger than maxDebugLogBytes at startup it is
// removed and started afresh; its size is not checked again while the
// process runs, teacher-style
// (cmd/server/main.go keeps its own logging setup this direct, no
// external rotation library).
func setupDebugLog(cfg *config.Config) {
	if !cfg.EnableDebugLog {
		return
	}

	path := cfg.DataDir + "/debug.log"
	if info, err := os.Stat(path); err == nil && info.Size() > maxDebugLogBytes {
		_ = os.Remove(path)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Warn().Err(err).Msg("could not create data dir for debug log, skipping")
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn().Err(err).Msg("could not open debug log file, skipping")
		return
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(baseLogWriter, f)).Level(zerolog.DebugLevel)
}
