// Package main provides the lumina CLI entry point.
// lumina is a meeting session orchestrator: it watches a calendar, attends
// video meetings automatically, records them, and turns the recordings into
// transcripts, minutes, and email notifications.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/cmd"
	"github.com/luminahq/lumina/pkg/buildinfo"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lumina",
	Short: "Automated meeting attendance and minutes",
	Long: `lumina attends your video meetings for you.

It polls your calendar for meetings with video links, joins each one in a
real browser with the microphone and camera muted, records the meeting
audio, and when the meeting ends produces a transcript, structured minutes,
and an email to the configured recipients.

GETTING STARTED:
  1. lumina auth calendar --token-file token.json   # calendar access
  2. lumina auth smtp                               # minutes delivery
  3. lumina calendar upcoming                       # verify the connection
  4. lumina monitor                                 # run the daemon

Configuration lives in ~/.lumina/config.yaml; every setting can also be
provided as a LUMINA_* environment variable. Artifacts (recordings,
transcripts, minutes) are written under ~/.lumina/data.`,
	Version:       buildinfo.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cmd.Debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		cmd.MonitorCmd,
		cmd.JoinCmd,
		cmd.ProcessCmd,
		cmd.CalendarCmd,
		cmd.AuthCmd,
		cmd.SessionsCmd,
		cmd.VersionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
