package browser

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultUserDataDir returns the platform's standard Chrome user data
// directory, or "" when it cannot be determined or does not exist. Reusing
// it gives the session the operator's signed-in Google account.
func DefaultUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(home, "Library", "Application Support", "Google", "Chrome")
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			dir = filepath.Join(localAppData, "Google", "Chrome", "User Data")
		}
	default:
		dir = filepath.Join(home, ".config", "google-chrome")
	}

	if dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); err != nil {
		return ""
	}
	return dir
}
