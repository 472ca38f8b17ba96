package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ironhand",
	Short: "Real-time narrated tabletop session server",
	Long: `ironhand hosts narrated tabletop sessions over websockets.

Players send free-text actions or /r dice commands; the server resolves
checks, asks the configured text generator for narration, and broadcasts
every log entry to all clients of the session.

Configuration is read from the environment (APP_*, DATABASE_URL,
GENERATOR_*, GOOGLE_API_KEY, GEMINI_MODEL, WS_*).`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var rollCmd = &cobra.Command{
	Use:   "roll <notation>",
	Short: "Roll dice locally, e.g. ironhand roll 2d10+5",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoll,
}

var rollSeed int64

func init() {
	rollCmd.Flags().Int64Var(&rollSeed, "seed", 0, "seed for a reproducible roll (0 = random)")
	rootCmd.AddCommand(serveCmd, rollCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
