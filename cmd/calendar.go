package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var calendarWindow time.Duration

// CalendarCmd groups calendar inspection commands.
var CalendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Inspect the connected calendar",
}

// calendarUpcomingCmd lists joinable meetings in a window.
var calendarUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List upcoming meetings with video links",
	Long: `List meetings in the upcoming window that carry a joinable video link.
This is the same query the monitor daemon runs on every poll, so it is the
quickest way to verify calendar credentials and link extraction.

Examples:
  lumina calendar upcoming
  lumina calendar upcoming --window 24h`,
	RunE: runCalendarUpcoming,
}

func init() {
	calendarUpcomingCmd.Flags().DurationVar(&calendarWindow, "window", time.Hour,
		"How far ahead to look")
	CalendarCmd.AddCommand(calendarUpcomingCmd)
}

func runCalendarUpcoming(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	service, err := buildCalendarService(a.cfg, a.logger)
	if err != nil {
		return err
	}

	now := time.Now()
	meetings, err := service.ListMeetings(cmd.Context(), now, now.Add(calendarWindow))
	if err != nil {
		return err
	}

	if len(meetings) == 0 {
		fmt.Printf("No meetings with video links in the next %s.\n", calendarWindow)
		return nil
	}
	for _, m := range meetings {
		fmt.Printf("%s  %-40s  %s\n",
			m.StartTime.Local().Format("15:04"), m.Title, m.JoinLink)
	}
	return nil
}
