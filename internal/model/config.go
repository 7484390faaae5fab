package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Secret holds a credential that must never be printed.
type Secret string

// String redacts the secret for logs and fmt output.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the raw secret.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool {
	return s != ""
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// VerifySignatures enables signing-secret verification of inbound
	// platform requests. Only disable for local development.
	VerifySignatures bool `mapstructure:"verify_signatures" yaml:"verify_signatures"`

	// BodyLimit caps request bodies (echo size syntax, e.g. "1M").
	BodyLimit string `mapstructure:"body_limit" yaml:"body_limit"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlackConfig holds chat platform credentials and endpoints.
type SlackConfig struct {
	BotToken      Secret `mapstructure:"bot_token" yaml:"bot_token"`
	SigningSecret Secret `mapstructure:"signing_secret" yaml:"signing_secret"`

	// APIURL overrides the Web API base URL (tests, proxies).
	APIURL string `mapstructure:"api_url" yaml:"api_url"`

	// RegisterCommand is the slash command that opens the registration form.
	RegisterCommand string `mapstructure:"register_command" yaml:"register_command"`
}

// SummarizerConfig selects and tunes the summarization backend.
type SummarizerConfig struct {
	// Provider is one of "huggingface", "anthropic" or "none".
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	APIKey   Secret `mapstructure:"api_key" yaml:"api_key"`

	MinLength      int `mapstructure:"min_length" yaml:"min_length"`
	MaxLength      int `mapstructure:"max_length" yaml:"max_length"`
	MaxInputTokens int `mapstructure:"max_input_tokens" yaml:"max_input_tokens"`
	TimeoutSec     int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// RatePerSec limits outbound summarization calls; 0 disables limiting.
	RatePerSec float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`
}

// Timeout returns the per-call summarization deadline.
func (c SummarizerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// TracksConfig selects the track catalog and the no-match policy.
type TracksConfig struct {
	// Catalog is "extended" or "legacy".
	Catalog string `mapstructure:"catalog" yaml:"catalog"`

	// Policy is "general" (fall back to the general track) or "drop".
	Policy string `mapstructure:"policy" yaml:"policy"`
}

// ExtractionConfig tunes deadline and endpoint extraction.
type ExtractionConfig struct {
	// EndpointPolicy is "backend_only" or "always".
	EndpointPolicy string `mapstructure:"endpoint_policy" yaml:"endpoint_policy"`
}

// AnnouncementConfig controls which messages are treated as announcements
// and how many are processed at once.
type AnnouncementConfig struct {
	Signals   []string `mapstructure:"signals" yaml:"signals"`
	QueueSize int      `mapstructure:"queue_size" yaml:"queue_size"`
	Workers   int      `mapstructure:"workers" yaml:"workers"`
}

// FanoutConfig tunes delivery to subscribers.
type FanoutConfig struct {
	Concurrency    int    `mapstructure:"concurrency" yaml:"concurrency"`
	SendTimeoutSec int    `mapstructure:"send_timeout_sec" yaml:"send_timeout_sec"`
	Attribution    string `mapstructure:"attribution" yaml:"attribution"`
}

// SendTimeout returns the per-recipient delivery deadline.
func (c FanoutConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSec) * time.Second
}

// SMTPConfig holds outbound mail settings for email subscribers.
type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password Secret `mapstructure:"password" yaml:"password"`
	From     string `mapstructure:"from" yaml:"from"`

	// TLS selects implicit TLS; otherwise STARTTLS is used.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// IMAPConfig holds settings for the mailbox announcement source.
type IMAPConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Host            string `mapstructure:"host" yaml:"host"`
	Port            int    `mapstructure:"port" yaml:"port"`
	Username        string `mapstructure:"username" yaml:"username"`
	Password        Secret `mapstructure:"password" yaml:"password"`
	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox         string `mapstructure:"mailbox" yaml:"mailbox"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	// Level is a zap level name ("debug", "info", "warn", "error").
	Level string `mapstructure:"level" yaml:"level"`

	// Format is "json" or "console".
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server        ServerConfig       `mapstructure:"server" yaml:"server"`
	Slack         SlackConfig        `mapstructure:"slack" yaml:"slack"`
	Summarizer    SummarizerConfig   `mapstructure:"summarizer" yaml:"summarizer"`
	Tracks        TracksConfig       `mapstructure:"tracks" yaml:"tracks"`
	Extraction    ExtractionConfig   `mapstructure:"extraction" yaml:"extraction"`
	Announcements AnnouncementConfig `mapstructure:"announcements" yaml:"announcements"`
	Fanout        FanoutConfig       `mapstructure:"fanout" yaml:"fanout"`
	SMTP          SMTPConfig         `mapstructure:"smtp" yaml:"smtp"`
	IMAP          IMAPConfig         `mapstructure:"imap" yaml:"imap"`
	Store         StoreConfig        `mapstructure:"store" yaml:"store"`
	Log           LogConfig          `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/track-notifier/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "track-notifier", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite location next to the config.
func DefaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "subscribers.db")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             3000,
			VerifySignatures: true,
			BodyLimit:        "1M",
		},
		Slack: SlackConfig{
			RegisterCommand: "/register-track",
		},
		Summarizer: SummarizerConfig{
			Provider:       "huggingface",
			Model:          "sshleifer/distilbart-cnn-12-6",
			MinLength:      50,
			MaxLength:      120,
			MaxInputTokens: 700,
			TimeoutSec:     20,
			RatePerSec:     2,
		},
		Tracks: TracksConfig{
			Catalog: "extended",
			Policy:  "general",
		},
		Extraction: ExtractionConfig{
			EndpointPolicy: "backend_only",
		},
		Announcements: AnnouncementConfig{
			Signals:   []string{"@channel", "<!channel>", "task", "stage"},
			QueueSize: 64,
			Workers:   2,
		},
		Fanout: FanoutConfig{
			Concurrency:    8,
			SendTimeoutSec: 10,
			Attribution:    "This was sent by Task Assistant",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		IMAP: IMAPConfig{
			Port:            993,
			TLS:             true,
			Mailbox:         "INBOX",
			PollIntervalSec: 120,
		},
		Store: StoreConfig{
			Path: DefaultDatabasePath(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envBindings maps config keys to the environment variables that
// override them.
var envBindings = map[string][]string{
	"server.port":          {"PORT"},
	"slack.bot_token":      {"SLACK_BOT_TOKEN"},
	"slack.signing_secret": {"SLACK_SIGNING_SECRET"},
	"summarizer.model":     {"HUGGINGFACE_MODEL", "SUMMARIZER_MODEL"},
	"summarizer.api_key":   {"HUGGINGFACE_API_TOKEN", "ANTHROPIC_API_KEY", "SUMMARIZER_API_KEY"},
	"store.path":           {"DATABASE_PATH"},
	"smtp.password":        {"SMTP_PASSWORD"},
	"imap.password":        {"IMAP_PASSWORD"},
	"log.level":            {"LOG_LEVEL"},
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error: defaults and environment overrides apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	d := DefaultAppConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.verify_signatures", d.Server.VerifySignatures)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("slack.register_command", d.Slack.RegisterCommand)
	v.SetDefault("summarizer.provider", d.Summarizer.Provider)
	v.SetDefault("summarizer.model", d.Summarizer.Model)
	v.SetDefault("summarizer.min_length", d.Summarizer.MinLength)
	v.SetDefault("summarizer.max_length", d.Summarizer.MaxLength)
	v.SetDefault("summarizer.max_input_tokens", d.Summarizer.MaxInputTokens)
	v.SetDefault("summarizer.timeout_sec", d.Summarizer.TimeoutSec)
	v.SetDefault("summarizer.rate_per_sec", d.Summarizer.RatePerSec)
	v.SetDefault("tracks.catalog", d.Tracks.Catalog)
	v.SetDefault("tracks.policy", d.Tracks.Policy)
	v.SetDefault("extraction.endpoint_policy", d.Extraction.EndpointPolicy)
	v.SetDefault("announcements.signals", d.Announcements.Signals)
	v.SetDefault("announcements.queue_size", d.Announcements.QueueSize)
	v.SetDefault("announcements.workers", d.Announcements.Workers)
	v.SetDefault("fanout.concurrency", d.Fanout.Concurrency)
	v.SetDefault("fanout.send_timeout_sec", d.Fanout.SendTimeoutSec)
	v.SetDefault("fanout.attribution", d.Fanout.Attribution)
	v.SetDefault("smtp.port", d.SMTP.Port)
	v.SetDefault("imap.port", d.IMAP.Port)
	v.SetDefault("imap.tls", d.IMAP.TLS)
	v.SetDefault("imap.mailbox", d.IMAP.Mailbox)
	v.SetDefault("imap.poll_interval_sec", d.IMAP.PollIntervalSec)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks option values that cannot be expressed as defaults.
// Catalog and policy names are checked by the track package when the
// classifier is built.
func (c *AppConfig) Validate() error {
	var errs []error

	s := c.Summarizer
	switch s.Provider {
	case "huggingface", "anthropic", "none":
	default:
		errs = append(errs, fmt.Errorf("summarizer.provider: unknown provider %q", s.Provider))
	}
	if s.MinLength <= 0 || s.MaxLength <= 0 {
		errs = append(errs, errors.New("summarizer: min_length and max_length must be positive"))
	}
	if s.MinLength > s.MaxLength {
		errs = append(errs, fmt.Errorf("summarizer: min_length %d exceeds max_length %d", s.MinLength, s.MaxLength))
	}
	if s.MaxInputTokens <= 0 {
		errs = append(errs, errors.New("summarizer.max_input_tokens must be positive"))
	}

	switch c.Extraction.EndpointPolicy {
	case "backend_only", "always":
	default:
		errs = append(errs, fmt.Errorf("extraction.endpoint_policy: unknown policy %q", c.Extraction.EndpointPolicy))
	}

	if c.Fanout.Concurrency <= 0 {
		errs = append(errs, errors.New("fanout.concurrency must be positive"))
	}
	if c.Announcements.Workers <= 0 || c.Announcements.QueueSize <= 0 {
		errs = append(errs, errors.New("announcements: workers and queue_size must be positive"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	if c.SMTP.Enabled && (c.SMTP.Host == "" || c.SMTP.From == "") {
		errs = append(errs, errors.New("smtp: host and from are required when enabled"))
	}
	if c.IMAP.Enabled && (c.IMAP.Host == "" || c.IMAP.Username == "") {
		errs = append(errs, errors.New("imap: host and username are required when enabled"))
	}

	return errors.Join(errs...)
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. Secrets are never written.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	out := *cfg
	out.Slack.BotToken = ""
	out.Slack.SigningSecret = ""
	out.Summarizer.APIKey = ""
	out.SMTP.Password = ""
	out.IMAP.Password = ""

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", out.Server)
	v.Set("slack", out.Slack)
	v.Set("summarizer", out.Summarizer)
	v.Set("tracks", out.Tracks)
	v.Set("extraction", out.Extraction)
	v.Set("announcements", out.Announcements)
	v.Set("fanout", out.Fanout)
	v.Set("smtp", out.SMTP)
	v.Set("imap", out.IMAP)
	v.Set("store", out.Store)
	v.Set("log", out.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
