package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/pkg/calendar"
	"github.com/luminahq/lumina/pkg/session"
)

var joinTitle string

// JoinCmd joins a single meeting by URL, outside the calendar flow.
var JoinCmd = &cobra.Command{
	Use:   "join <meet-url>",
	Short: "Join one meeting now and process it when it ends",
	Long: `Join the given meeting immediately, record it, and run the pipeline when
it ends. This bypasses the calendar entirely; useful for ad-hoc meetings and
for testing the join sequence.

Examples:
  lumina join https://meet.google.com/abc-defg-hij
  lumina join https://meet.google.com/abc-defg-hij --title "Design sync"`,
	Args: cobra.ExactArgs(1),
	RunE: runJoin,
}

func init() {
	JoinCmd.Flags().StringVar(&joinTitle, "title", "", "Meeting title used in minutes and notifications")
}

func runJoin(cmd *cobra.Command, args []string) error {
	link := strings.TrimSpace(args[0])
	if !strings.HasPrefix(link, "https://") {
		return fmt.Errorf("meeting URL must start with https://, got %q", link)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	title := joinTitle
	if title == "" {
		title = "Ad-hoc meeting"
	}
	meeting := calendar.Meeting{
		ID:        "adhoc-" + uuid.NewString()[:8],
		Title:     title,
		JoinLink:  link,
		StartTime: time.Now(),
	}

	result, err := a.orchestrator.HandleMeeting(ctx, meeting)
	if err != nil && result == nil {
		return err
	}

	fmt.Printf("Session %s finished: %s\n", result.SessionID, result.Outcome)
	if !result.Artifact.Empty() {
		fmt.Printf("Recording: %s (%s)\n", result.Artifact.Path,
			result.Artifact.Duration.Truncate(time.Second))
	}
	if result.Outcome == session.OutcomeJoinFailed {
		return fmt.Errorf("could not join the meeting: %w", result.Err)
	}

	a.orchestrator.Wait()
	return nil
}
