package buildinfo

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// These vars are set at build time via ldflags:
// -X github.com/luminahq/lumina/pkg/buildinfo.Version=v0.3.0
// -X github.com/luminahq/lumina/pkg/buildinfo.Commit=1a2b3c4
// -X github.com/luminahq/lumina/pkg/buildinfo.BuildTime=2026-08-30T10:30:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info holds build information for the lumina binary.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns build info.
func Get() Info {
	return Info{
		Name:      "lumina",
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String returns a human-readable one-liner like "v0.3.0 (1a2b3c4, 2026-08-30T10:30:00Z)"
func String() string {
	return Version + " (" + Commit + ", " + BuildTime + ")"
}

// Handler returns an HTTP handler that responds with build info JSON. It is
// mounted next to the metrics endpoint when the monitor daemon runs with an
// HTTP listener.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Get())
	}
}
