// Package config provides configuration management for the lumina CLI.
// It supports loading configuration from a YAML file, environment variables,
// and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultConfigDir  = ".lumina"
	DefaultConfigFile = "config.yaml"

	DefaultPollInterval     = 60 * time.Second
	DefaultLookahead        = 2 * time.Minute
	DefaultElementTimeout   = 10 * time.Second
	DefaultAdmissionTimeout = 60 * time.Second
	DefaultAdmissionGrace   = 30 * time.Second
	DefaultMonitorInterval  = 2 * time.Second
	DefaultSampleRate       = 16000
	DefaultMaxStoreAttempts = 3
	DefaultCalendarID       = "primary"
	DefaultOllamaURL        = "http://localhost:11434"
	DefaultOllamaModel      = "llama3"
	DefaultSMTPServer       = "smtp.gmail.com"
	DefaultSMTPPort         = 587
)

// Transcription backend names.
const (
	TranscribeBackendWhisperCPP = "whisper-cpp"
	TranscribeBackendHTTP       = "http"
)

// CalendarConfig holds calendar polling settings.
type CalendarConfig struct {
	// CalendarID is the calendar to poll (default: "primary").
	CalendarID string `yaml:"calendar_id,omitempty"`

	// PollInterval is how often the poller queries the calendar.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Lookahead is the window ahead of now in which meetings are joinable.
	Lookahead time.Duration `yaml:"lookahead"`
}

// BrowserConfig holds browser launch and join-sequence settings.
type BrowserConfig struct {
	// UseExistingProfile reuses the operator's Chrome profile so meeting
	// sign-in state carries over.
	UseExistingProfile bool `yaml:"use_existing_profile"`

	// ProfileDir overrides the detected Chrome user data directory.
	ProfileDir string `yaml:"profile_dir,omitempty"`

	// ProfileName selects the profile inside the user data directory.
	ProfileName string `yaml:"profile_name,omitempty"`

	// Headless launches the browser without a window. Join reliability is
	// lower headless; default is headful.
	Headless bool `yaml:"headless,omitempty"`

	// ElementTimeout bounds each element wait during the join sequence.
	ElementTimeout time.Duration `yaml:"element_timeout"`

	// AdmissionTimeout bounds the wait for host admission.
	AdmissionTimeout time.Duration `yaml:"admission_timeout"`

	// AdmissionGrace is the extra wait before a final in-meeting probe when
	// the admission signal did not appear in time.
	AdmissionGrace time.Duration `yaml:"admission_grace"`

	// MonitorInterval is the in-meeting poll interval.
	MonitorInterval time.Duration `yaml:"monitor_interval"`

	// SyntheticActivity enables randomized low-amplitude interaction while
	// in the meeting to look less like an idle bot.
	SyntheticActivity bool `yaml:"synthetic_activity"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	// SampleRate for capture, in Hz (default: 16000, mono).
	SampleRate int `yaml:"sample_rate"`
}

// PipelineConfig holds post-processing settings.
type PipelineConfig struct {
	// SkipPersist, SkipTranscribe, SkipMinutes, SkipNotify opt individual
	// stages out. Each completed stage remains a precondition for the next.
	SkipPersist    bool `yaml:"skip_persist,omitempty"`
	SkipTranscribe bool `yaml:"skip_transcribe,omitempty"`
	SkipMinutes    bool `yaml:"skip_minutes,omitempty"`
	SkipNotify     bool `yaml:"skip_notify,omitempty"`

	// MaxStoreAttempts bounds persist-stage retries (backoff is 2^attempt
	// seconds).
	MaxStoreAttempts int `yaml:"max_store_attempts"`
}

// TranscribeConfig selects and configures the transcription backend.
type TranscribeConfig struct {
	// Backend is "whisper-cpp" (local binary) or "http" (OpenAI-compatible
	// transcription endpoint).
	Backend string `yaml:"backend"`

	// WhisperPath is the whisper.cpp binary (default: "whisper-cli").
	WhisperPath string `yaml:"whisper_path,omitempty"`

	// ModelPath is the whisper model file for the local backend.
	ModelPath string `yaml:"model_path,omitempty"`

	// Endpoint is the HTTP transcription URL for the http backend.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Language hint passed to the transcriber (default: "en").
	Language string `yaml:"language,omitempty"`
}

// MinutesConfig configures the minutes-generation LLM.
type MinutesConfig struct {
	// OllamaURL is the base URL of the local Ollama server.
	OllamaURL string `yaml:"ollama_url"`

	// Model is the Ollama model name (e.g. "llama3", "mistral").
	Model string `yaml:"model"`
}

// NotifyConfig configures minutes email delivery.
type NotifyConfig struct {
	// SMTPServer and SMTPPort identify the mail relay.
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`

	// SMTPUser is the sending account. The password lives in the credential
	// store, never in this file.
	SMTPUser string `yaml:"smtp_user,omitempty"`

	// Recipients receive the minutes. Empty means notify is skipped.
	Recipients []string `yaml:"recipients,omitempty"`
}

// LedgerConfig holds optional Postgres session-ledger settings.
type LedgerConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

// ConnectionString returns the Postgres connection string, or empty when the
// ledger is not configured.
func (c *LedgerConfig) ConnectionString() string {
	if !c.IsConfigured() {
		return ""
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "prefer"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=%s",
		c.Host, port, c.Database, c.User, sslmode)
}

// IsConfigured returns true when the required ledger fields are present.
func (c *LedgerConfig) IsConfigured() bool {
	return c != nil && c.Host != "" && c.Database != "" && c.User != ""
}

// Config holds the full lumina configuration.
type Config struct {
	// DataDir is the root for recordings, transcripts, minutes, and session
	// logs. Defaults to ~/.lumina/data.
	DataDir string `yaml:"data_dir"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// JSONLogs switches log output to JSON (daemon mode).
	JSONLogs bool `yaml:"json_logs,omitempty"`

	Calendar   CalendarConfig   `yaml:"calendar"`
	Browser    BrowserConfig    `yaml:"browser"`
	Audio      AudioConfig      `yaml:"audio"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Minutes    MinutesConfig    `yaml:"minutes"`
	Notify     NotifyConfig     `yaml:"notify"`

	// Ledger is the optional Postgres session history. Nil disables it.
	Ledger *LedgerConfig `yaml:"ledger,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Calendar: CalendarConfig{
			CalendarID:   DefaultCalendarID,
			PollInterval: DefaultPollInterval,
			Lookahead:    DefaultLookahead,
		},
		Browser: BrowserConfig{
			UseExistingProfile: true,
			ElementTimeout:     DefaultElementTimeout,
			AdmissionTimeout:   DefaultAdmissionTimeout,
			AdmissionGrace:     DefaultAdmissionGrace,
			MonitorInterval:    DefaultMonitorInterval,
			SyntheticActivity:  true,
		},
		Audio: AudioConfig{
			SampleRate: DefaultSampleRate,
		},
		Pipeline: PipelineConfig{
			MaxStoreAttempts: DefaultMaxStoreAttempts,
		},
		Transcribe: TranscribeConfig{
			Backend:     "whisper-cpp",
			WhisperPath: "whisper-cli",
			Language:    "en",
		},
		Minutes: MinutesConfig{
			OllamaURL: DefaultOllamaURL,
			Model:     DefaultOllamaModel,
		},
		Notify: NotifyConfig{
			SMTPServer: DefaultSMTPServer,
			SMTPPort:   DefaultSMTPPort,
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $LUMINA_CONFIG_DIR if set, otherwise ~/.lumina
func ConfigDir() (string, error) {
	if dir := os.Getenv("LUMINA_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.lumina/config.yaml or $LUMINA_CONFIG_DIR/config.yaml)
// 3. Environment variables (LUMINA_DATA_DIR, LUMINA_POLL_INTERVAL, ...)
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if cfg.DataDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = filepath.Join(dir, "data")
	}
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.Browser.ProfileDir = expandPath(cfg.Browser.ProfileDir)
	cfg.Transcribe.ModelPath = expandPath(cfg.Transcribe.ModelPath)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// loadFromEnv overlays environment variables onto cfg.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("LUMINA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LUMINA_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := os.Getenv("LUMINA_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
	if v := os.Getenv("LUMINA_CALENDAR_ID"); v != "" {
		cfg.Calendar.CalendarID = v
	}
	if v := os.Getenv("LUMINA_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Calendar.PollInterval = d
		}
	}
	if v := os.Getenv("LUMINA_LOOKAHEAD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Calendar.Lookahead = d
		}
	}
	if v := os.Getenv("LUMINA_CHROME_PROFILE_DIR"); v != "" {
		cfg.Browser.ProfileDir = v
	}
	if v := os.Getenv("LUMINA_CHROME_PROFILE_NAME"); v != "" {
		cfg.Browser.ProfileName = v
	}
	if v := os.Getenv("LUMINA_HEADLESS"); v != "" {
		cfg.Browser.Headless = parseBool(v)
	}
	if v := os.Getenv("LUMINA_SAMPLE_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Audio.SampleRate = n
		}
	}
	if v := os.Getenv("LUMINA_OLLAMA_URL"); v != "" {
		cfg.Minutes.OllamaURL = v
	}
	if v := os.Getenv("LUMINA_OLLAMA_MODEL"); v != "" {
		cfg.Minutes.Model = v
	}
	if v := os.Getenv("LUMINA_SMTP_SERVER"); v != "" {
		cfg.Notify.SMTPServer = v
	}
	if v := os.Getenv("LUMINA_SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Notify.SMTPPort = n
		}
	}
	if v := os.Getenv("LUMINA_SMTP_USER"); v != "" {
		cfg.Notify.SMTPUser = v
	}
	if v := os.Getenv("LUMINA_RECIPIENTS"); v != "" {
		parts := strings.Split(v, ",")
		recipients := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				recipients = append(recipients, p)
			}
		}
		cfg.Notify.Recipients = recipients
	}
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Calendar.PollInterval <= 0 {
		return fmt.Errorf("calendar poll_interval must be positive, got %v", c.Calendar.PollInterval)
	}
	if c.Calendar.Lookahead <= 0 {
		return fmt.Errorf("calendar lookahead must be positive, got %v", c.Calendar.Lookahead)
	}
	if c.Browser.ElementTimeout <= 0 {
		return fmt.Errorf("browser element_timeout must be positive, got %v", c.Browser.ElementTimeout)
	}
	if c.Browser.MonitorInterval <= 0 {
		return fmt.Errorf("browser monitor_interval must be positive, got %v", c.Browser.MonitorInterval)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Pipeline.MaxStoreAttempts <= 0 {
		return fmt.Errorf("pipeline max_store_attempts must be positive, got %d", c.Pipeline.MaxStoreAttempts)
	}
	switch c.Transcribe.Backend {
	case TranscribeBackendWhisperCPP, TranscribeBackendHTTP:
	default:
		return fmt.Errorf("transcribe backend must be \"whisper-cpp\" or \"http\", got %q", c.Transcribe.Backend)
	}
	if c.Transcribe.Backend == TranscribeBackendHTTP && c.Transcribe.Endpoint == "" {
		return fmt.Errorf("transcribe endpoint is required for the http backend")
	}
	return nil
}

// Save writes the configuration to the config file, creating the directory
// if needed.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
