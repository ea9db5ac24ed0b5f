package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashnote/syncd/internal/control"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the sync daemon loop and the local control server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st := buildStack(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctrl := &control.Server{
			Orchestrator: st.orch,
			JWTSecret:    cfg.ControlJWTSecret,
			DevMode:      cfg.IsDev(),
		}
		httpServer := &http.Server{
			Addr:         cfg.ControlAddr,
			Handler:      ctrl.Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			log.Info().Str("addr", cfg.ControlAddr).Msg("starting control server")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("control server failed")
			}
		}()

		go runSyncLoop(ctx, st, cfg.SyncIntervalSeconds)

		<-ctx.Done()
		log.Info().Msg("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("control server shutdown error")
		}
		st.orch.Stop()
		log.Info().Msg("syncd stopped")
	},
}

func runSyncLoop(ctx context.Context, st *stack, intervalSeconds int) {
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	runOnce := func() {
		report, err := st.orch.PerformSync(ctx)
		if err != nil {
			log.Error().Err(err).Msg("sync pass failed")
			return
		}
		log.Info().
			Bool("success", report.Success).
			Int("uploaded", report.Uploaded).
			Int("downloaded", report.Downloaded).
			Int("errors", report.Errors).
			Msg("sync pass complete")
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
