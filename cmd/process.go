package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/config"
	"github.com/luminahq/lumina/pkg/pipeline"
)

// Process command flags.
var (
	processMeetingID      string
	processTitle          string
	processAttachment     bool
	processNoEmail        bool
	processSkipTranscribe bool
)

// ProcessCmd reruns the pipeline on an existing recording.
var ProcessCmd = &cobra.Command{
	Use:   "process <recording.wav>",
	Short: "Run the post-processing pipeline on an existing recording",
	Long: `Run the persist/transcribe/minutes/notify pipeline on a recording file.

Useful for reprocessing a meeting after a collaborator failure (for example
the transcription server was down) or for processing recordings captured
elsewhere. Completed artifacts from a previous run are overwritten.

Examples:
  lumina process ~/.lumina/data/staging/abc123.wav
  lumina process meeting.wav --meeting-id abc123 --title "Weekly sync"
  lumina process meeting.wav --attach-transcript`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	ProcessCmd.Flags().StringVar(&processMeetingID, "meeting-id", "",
		"Meeting ID for artifact naming (default: recording filename)")
	ProcessCmd.Flags().StringVar(&processTitle, "title", "",
		"Meeting title used in minutes and notifications")
	ProcessCmd.Flags().BoolVar(&processAttachment, "attach-transcript", false,
		"Attach the transcript to the notification email")
	ProcessCmd.Flags().BoolVar(&processNoEmail, "no-email", false,
		"Skip the notification stage")
	ProcessCmd.Flags().BoolVar(&processSkipTranscribe, "skip-transcribe", false,
		"Stop after persisting the recording")
}

func runProcess(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("recording not found: %w", err)
	}

	a, err := buildApp(cmd.Context(), false, func(cfg *config.Config) {
		if processNoEmail {
			cfg.Pipeline.SkipNotify = true
		}
		if processSkipTranscribe {
			cfg.Pipeline.SkipTranscribe = true
		}
	})
	if err != nil {
		return err
	}
	defer a.close()

	meetingID := processMeetingID
	if meetingID == "" {
		meetingID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	title := processTitle
	if title == "" {
		title = meetingID
	}

	run := a.orchestrator.ProcessRecording(cmd.Context(), pipeline.Input{
		MeetingID:            meetingID,
		MeetingTitle:         title,
		RecordingPath:        path,
		TranscriptAttachment: processAttachment,
	})

	fmt.Printf("Pipeline run %s for meeting %s\n", run.RunID, run.MeetingID)
	fmt.Printf("  stages: %s succeeded of %s attempted\n",
		joinOrNone(run.StagesSucceeded), joinOrNone(run.StagesAttempted))
	if run.RecordingRef != "" {
		fmt.Printf("  recording:  %s\n", run.RecordingRef)
	}
	if run.TranscriptRef != "" {
		fmt.Printf("  transcript: %s\n", run.TranscriptRef)
	}
	if run.MinutesRef != "" {
		fmt.Printf("  minutes:    %s\n", run.MinutesRef)
	}
	if run.Notified {
		fmt.Println("  notification sent")
	}
	if run.Err != nil {
		return fmt.Errorf("pipeline finished with error [%s]: %w", run.ErrorCode(), run.Err)
	}
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ",")
}
