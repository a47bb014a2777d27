package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsLimit int

// SessionsCmd lists session history from the ledger.
var SessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent meeting sessions from the ledger",
	Long: `List recent sessions recorded in the Postgres ledger, newest first.

Requires the ledger to be configured in ~/.lumina/config.yaml:

  ledger:
    host: localhost
    database: lumina
    user: lumina

Examples:
  lumina sessions
  lumina sessions --limit 50`,
	RunE: runSessions,
}

func init() {
	SessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum sessions to list")
}

func runSessions(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	if a.ledger == nil {
		return fmt.Errorf("session ledger is not configured")
	}

	records, err := a.ledger.RecentSessions(cmd.Context(), sessionsLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No sessions recorded.")
		return nil
	}

	fmt.Printf("%-19s  %-30s  %-12s  %-10s  %s\n",
		"STARTED", "TITLE", "OUTCOME", "DURATION", "ERROR")
	for _, rec := range records {
		title := rec.MeetingTitle
		if len(title) > 30 {
			title = title[:27] + "..."
		}
		fmt.Printf("%-19s  %-30s  %-12s  %-10s  %s\n",
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			title,
			rec.Outcome,
			rec.EndedAt.Sub(rec.StartedAt).Truncate(time.Second),
			rec.ErrorCode)
	}
	return nil
}
