package cmd

import (
	"fmt"
	"log"
	"os"

	"AsciiTV/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "asciitv",
	Short: "AsciiTV converts uploaded videos into looping terminal ASCII streams.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting AsciiTV server...")
		// server.Start handles its own port and logging for startup.
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
