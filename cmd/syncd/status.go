package main

import "github.com/spf13/cobra"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the running daemon's last sync report",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		body := mustControlRequest(cfg, "GET", "/status")
		printPrettyJSON(body)
	},
}
