package cmd

import (
	"AsciiTV/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the AsciiTV HTTP server",
	Long:  `Start the AsciiTV HTTP server, serving the upload API and the terminal playback streams.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
