package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ryosukesatoh/leftoff-summarizer/internal/auth"
	"github.com/ryosukesatoh/leftoff-summarizer/internal/errors"
)

// Artifact file names under BaseDir.
const (
	ActivitiesFile  = "last-7-days-activities.md"
	SummaryFile     = "last-7-days-activities-summary.md"
	SummaryHTMLFile = "last-7-days-activities-summary.html"
	PromptFile      = "prompt.md"
)

type Config struct {
	BaseDir    string           `yaml:"base_dir"`
	Timezone   string           `yaml:"timezone"`
	Document   DocumentConfig   `yaml:"document"`
	Identity   IdentityConfig   `yaml:"identity"`
	Storage    StorageConfig    `yaml:"storage"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Publishers []string         `yaml:"publishers"`
	Discord    DiscordConfig    `yaml:"discord"`
	Log        LogConfig        `yaml:"log"`
}

type DocumentConfig struct {
	FileID   string `yaml:"file_id"`
	FileName string `yaml:"file_name"`
}

type IdentityConfig struct {
	Authority        string   `yaml:"authority"`
	ClientID         string   `yaml:"client_id"`
	ClientSecret     string   `yaml:"client_secret"`
	RefreshToken     string   `yaml:"refresh_token"`
	RefreshTokenFile string   `yaml:"refresh_token_file"`
	Scopes           []string `yaml:"scopes"`

	// RefreshTokenSeed is the configured token a persisted rotation chain
	// descends from. It is written next to every rotated token.
	RefreshTokenSeed string `yaml:"-"`
}

// TokenURL is the OAuth2 token endpoint under the authority.
func (c IdentityConfig) TokenURL() string {
	return strings.TrimSuffix(c.Authority, "/") + "/oauth2/v2.0/token"
}

type StorageConfig struct {
	BaseURL string `yaml:"base_url"`
}

type SummarizerConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

type ExtractorConfig struct {
	WindowDays int `yaml:"window_days"`
}

type ScheduleConfig struct {
	Cron   string        `yaml:"cron"`
	Window time.Duration `yaml:"window"`
}

type TimeoutsConfig struct {
	HTTP       time.Duration `yaml:"http"`
	Generation time.Duration `yaml:"generation"`
	Run        time.Duration `yaml:"run"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Paths are the filesystem artifacts of one run.
type Paths struct {
	Document    string
	Activities  string
	Summary     string
	SummaryHTML string
	Prompt      string
}

// Paths resolves every artifact under BaseDir.
func (c *Config) Paths() Paths {
	return Paths{
		Document:    filepath.Join(c.BaseDir, c.Document.FileName),
		Activities:  filepath.Join(c.BaseDir, ActivitiesFile),
		Summary:     filepath.Join(c.BaseDir, SummaryFile),
		SummaryHTML: filepath.Join(c.BaseDir, SummaryHTMLFile),
		Prompt:      filepath.Join(c.BaseDir, PromptFile),
	}
}

// Location returns the configured time zone, defaulting to the local one.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.NewInvalidConfig(fmt.Sprintf("unknown timezone %q", c.Timezone), err)
	}
	return loc, nil
}

// HasPublisher reports whether the named publisher is enabled.
func (c *Config) HasPublisher(name string) bool {
	for _, p := range c.Publishers {
		if p == name {
			return true
		}
	}
	return false
}

// envOverrides maps environment variables to the settings they override.
// The names are the ones operators already keep in their .env files.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"PATH_LEFT_OFF_SUMMARIZER", func(c *Config) *string { return &c.BaseDir }},
	{"NAME_TARGET_FILE", func(c *Config) *string { return &c.Document.FileName }},
	{"TARGET_FILE_ID", func(c *Config) *string { return &c.Document.FileID }},
	{"APPLICATION_ID", func(c *Config) *string { return &c.Identity.ClientID }},
	{"CLIENT_SECRET", func(c *Config) *string { return &c.Identity.ClientSecret }},
	{"REFRESH_TOKEN", func(c *Config) *string { return &c.Identity.RefreshToken }},
	{"KEY_OPENAI", func(c *Config) *string { return &c.Summarizer.APIKey }},
	{"URL_BASE_OPENAI", func(c *Config) *string { return &c.Summarizer.BaseURL }},
	{"DISCORD_WEBHOOK_URL", func(c *Config) *string { return &c.Discord.WebhookURL }},
	{"LOG_LEVEL", func(c *Config) *string { return &c.Log.Level }},
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// unexpanded reports whether s is still a ${VAR} reference, meaning the
// variable was not set.
func unexpanded(s string) bool {
	return envVarRegex.MatchString(s)
}

func applyEnv(cfg *Config) {
	for _, o := range envOverrides {
		if val, ok := os.LookupEnv(o.name); ok && val != "" {
			*o.field(cfg) = val
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Document.FileName == "" {
		cfg.Document.FileName = "LEFT-OFF.docx"
	}
	if cfg.Identity.Authority == "" {
		cfg.Identity.Authority = "https://login.microsoftonline.com/consumers"
	}
	if len(cfg.Identity.Scopes) == 0 {
		cfg.Identity.Scopes = []string{"offline_access", "Files.Read", "Files.Read.All"}
	}
	if cfg.Identity.RefreshTokenFile == "" {
		cfg.Identity.RefreshTokenFile = ".refresh-token"
	}
	if cfg.BaseDir != "" && !filepath.IsAbs(cfg.Identity.RefreshTokenFile) {
		cfg.Identity.RefreshTokenFile = filepath.Join(cfg.BaseDir, cfg.Identity.RefreshTokenFile)
	}
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = "https://graph.microsoft.com/v1.0/me/drive"
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "openai"
	}
	if cfg.Summarizer.Model == "" {
		switch cfg.Summarizer.Type {
		case "anthropic":
			cfg.Summarizer.Model = "claude-sonnet-4-20250514"
		default:
			cfg.Summarizer.Model = "gpt-4o-mini"
		}
	}
	if cfg.Summarizer.MaxTokens == 0 {
		cfg.Summarizer.MaxTokens = 4096
	}
	if cfg.Extractor.WindowDays == 0 {
		cfg.Extractor.WindowDays = 7
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 0 * * 1"
	}
	if cfg.Schedule.Window == 0 {
		cfg.Schedule.Window = 24 * time.Hour
	}
	if cfg.Timeouts.HTTP == 0 {
		cfg.Timeouts.HTTP = 30 * time.Second
	}
	if cfg.Timeouts.Generation == 0 {
		cfg.Timeouts.Generation = 120 * time.Second
	}
	if cfg.Timeouts.Run == 0 {
		cfg.Timeouts.Run = 10 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// loadRefreshToken prefers a token persisted by an earlier run over the
// configured one, as long as that token was rotated from the configured
// one. A configured token that differs from the stored seed is a fresh
// authorization and wins.
func loadRefreshToken(cfg *Config) error {
	configured := cfg.Identity.RefreshToken
	cfg.Identity.RefreshTokenSeed = configured

	token, seed, err := auth.NewFileStore(cfg.Identity.RefreshTokenFile, "").Load()
	if err != nil {
		return errors.NewInvalidConfig(fmt.Sprintf("cannot read %s", cfg.Identity.RefreshTokenFile), err)
	}

	switch {
	case token == "":
	case configured == "":
		cfg.Identity.RefreshToken = token
		cfg.Identity.RefreshTokenSeed = seed
	case seed == configured:
		cfg.Identity.RefreshToken = token
	default:
		slog.Info("configured refresh token differs from the stored one; ignoring stored token",
			"file", cfg.Identity.RefreshTokenFile)
	}
	return nil
}

type requirement struct {
	key   string
	env   string
	value string
}

// label names the setting and, when there is one, the variable that sets it.
func (r requirement) label() string {
	if r.env == "" {
		return r.key
	}
	return r.key + " (" + r.env + ")"
}

func validate(cfg *Config) error {
	required := []requirement{
		{"base_dir", "PATH_LEFT_OFF_SUMMARIZER", cfg.BaseDir},
		{"document.file_id", "TARGET_FILE_ID", cfg.Document.FileID},
		{"identity.client_id", "APPLICATION_ID", cfg.Identity.ClientID},
		{"identity.client_secret", "CLIENT_SECRET", cfg.Identity.ClientSecret},
		{"identity.refresh_token", "REFRESH_TOKEN", cfg.Identity.RefreshToken},
		{"summarizer.api_key", "KEY_OPENAI", cfg.Summarizer.APIKey},
	}
	if cfg.Summarizer.Type == "openai" {
		required = append(required, requirement{"summarizer.base_url", "URL_BASE_OPENAI", cfg.Summarizer.BaseURL})
	}
	if cfg.HasPublisher("discord") {
		required = append(required, requirement{"discord.webhook_url", "DISCORD_WEBHOOK_URL", cfg.Discord.WebhookURL})
	}

	var missing []string
	for _, r := range required {
		if r.value == "" || unexpanded(r.value) {
			missing = append(missing, r.label())
		}
	}
	if len(missing) > 0 {
		return errors.NewConfiguration(missing)
	}

	switch cfg.Summarizer.Type {
	case "openai", "anthropic":
	default:
		return errors.NewInvalidConfig(fmt.Sprintf("unsupported summarizer type %q (supported: openai, anthropic)", cfg.Summarizer.Type), nil)
	}
	for _, p := range cfg.Publishers {
		switch p {
		case "stdout", "html", "discord":
		default:
			return errors.NewInvalidConfig(fmt.Sprintf("unsupported publisher %q (supported: stdout, html, discord)", p), nil)
		}
	}
	if cfg.Extractor.WindowDays < 0 {
		return errors.NewInvalidConfig("extractor.window_days must not be negative", nil)
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.NewInvalidConfig(fmt.Sprintf("cannot load %s", path), err)
	}
	return nil
}

// Load reads the optional YAML config file, expands environment variables,
// overlays the environment, applies defaults, and validates the result.
// An empty path configures the process from the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewInvalidConfig(fmt.Sprintf("failed to read %s", path), err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, errors.NewInvalidConfig(fmt.Sprintf("failed to parse %s", path), err)
		}
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	if cfg.BaseDir != "" {
		if err := loadRefreshToken(&cfg); err != nil {
			return nil, err
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
