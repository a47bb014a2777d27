package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/luminahq/lumina/credentials"
	"github.com/luminahq/lumina/pkg/calendar"
)

var authTokenFile string

// AuthCmd groups credential management commands.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored credentials",
	Long: `Manage the secrets lumina needs: the calendar OAuth token and the SMTP
password for minutes delivery.

Secrets are encrypted at rest in ~/.lumina/credentials.yaml. The encryption
key lives in the system keyring when one is available, or in the
LUMINA_ENCRYPTION_KEY environment variable otherwise.`,
}

// authCalendarCmd stores the calendar OAuth token.
var authCalendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Store the calendar OAuth token",
	Long: `Store the Google Calendar OAuth token used by the poller.

The token is a JSON blob holding the refresh token and client identity from
a one-time consent flow, for example the output of Google's oauth2 tooling:

  {"access_token": "...", "refresh_token": "...",
   "client_id": "...", "client_secret": "..."}

Examples:
  # Read the token from a file
  lumina auth calendar --token-file token.json

  # Paste the token on stdin
  lumina auth calendar < token.json`,
	RunE: runAuthCalendar,
}

// authSMTPCmd stores the SMTP password.
var authSMTPCmd = &cobra.Command{
	Use:   "smtp",
	Short: "Store the SMTP password for minutes delivery",
	Long: `Prompt for the SMTP account password and store it encrypted.

For Gmail accounts use an app password, not the account password.

Examples:
  lumina auth smtp`,
	RunE: runAuthSMTP,
}

// authStatusCmd shows which secrets are stored.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are stored",
	RunE:  runAuthStatus,
}

// authClearCmd removes stored secrets.
var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored credentials",
	RunE:  runAuthClear,
}

func init() {
	authCalendarCmd.Flags().StringVar(&authTokenFile, "token-file", "",
		"File containing the OAuth token JSON (default: stdin)")
	AuthCmd.AddCommand(authCalendarCmd, authSMTPCmd, authStatusCmd, authClearCmd)
}

func runAuthCalendar(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if authTokenFile != "" {
		raw, err = os.ReadFile(authTokenFile)
	} else {
		fmt.Fprintln(os.Stderr, "Paste the OAuth token JSON, then EOF (Ctrl-D):")
		raw, err = os.ReadFile("/dev/stdin")
	}
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}

	token := strings.TrimSpace(string(raw))
	if _, err := calendar.ParseStoredToken(token); err != nil {
		return err
	}

	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	if err := store.Set(credentials.SecretCalendarToken, token); err != nil {
		return err
	}
	fmt.Println("Calendar token stored.")
	return nil
}

func runAuthSMTP(cmd *cobra.Command, args []string) error {
	fmt.Fprint(os.Stderr, "SMTP password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if len(password) == 0 {
		return fmt.Errorf("empty password")
	}

	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	if err := store.Set(credentials.SecretSMTPPassword, string(password)); err != nil {
		return err
	}
	fmt.Println("SMTP password stored.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	names, err := store.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No credentials stored.")
		return nil
	}
	for _, name := range names {
		fmt.Printf("  %s: stored\n", name)
	}
	return nil
}

func runAuthClear(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	names, err := store.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := store.Delete(name); err != nil {
			return err
		}
	}
	fmt.Printf("Removed %d credential(s).\n", len(names))
	return nil
}
