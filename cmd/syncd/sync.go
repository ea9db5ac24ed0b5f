package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync pass and exit",
	Long:  "Builds the sync stack directly and performs one PerformSync pass, for cron or manual invocation without a running daemon.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st := buildStack(cfg)

		report, err := st.orch.PerformSync(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("sync pass failed")
		}
		fmt.Printf("success=%v uploaded=%d downloaded=%d deleted=%d skipped=%d errors=%d\n",
			report.Success, report.Uploaded, report.Downloaded, report.Deleted, report.Skipped, report.Errors)
		if !report.Success {
			for _, d := range report.ErrorDetails {
				fmt.Fprintln(os.Stderr, d)
			}
			os.Exit(1)
		}
	},
}
