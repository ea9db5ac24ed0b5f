package main

import "github.com/spf13/cobra"

var forceFullSyncCmd = &cobra.Command{
	Use:   "force-full-sync",
	Short: "Ask the running daemon to clear its manifest cache and fully reconcile",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		body := mustControlRequest(cfg, "POST", "/force-full-sync")
		printPrettyJSON(body)
	},
}
