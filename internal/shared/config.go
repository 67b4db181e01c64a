package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Google   GoogleConfig   `toml:"google"`
	LLM      LLMConfig      `toml:"llm"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Feed     FeedConfig     `toml:"feed"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig contains HTTP server and session settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	SecretKey    string `toml:"secret_key"`
	MockMode     bool   `toml:"mock_mode"`
	CookieSecure bool   `toml:"cookie_secure"`
}

// GoogleConfig contains the OAuth client used to access the user's YouTube account.
type GoogleConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
	APIEndpoint  string   `toml:"api_endpoint"` // overrides the YouTube Data API base URL
}

// LLMConfig contains summary provider credentials. Gemini is tried before OpenAI.
type LLMConfig struct {
	GeminiAPIKey    string        `toml:"gemini_api_key"`
	GeminiModel     string        `toml:"gemini_model"`
	GeminiBaseURL   string        `toml:"gemini_base_url"`
	OpenAIAPIKey    string        `toml:"openai_api_key"`
	OpenAIModel     string        `toml:"openai_model"`
	OpenAIBaseURL   string        `toml:"openai_base_url"`
	MaxContentChars int           `toml:"max_content_chars"`
	Timeout         time.Duration `toml:"timeout"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StorageConfig contains flat-file storage locations.
type StorageConfig struct {
	PreferencesPath string `toml:"preferences_path"`
}

// FeedConfig tunes feed composition.
type FeedConfig struct {
	WindowHours        int           `toml:"window_hours"`
	PerChannel         int           `toml:"per_channel"`
	CacheTTL           time.Duration `toml:"cache_ttl"`
	PageSize           int           `toml:"page_size"`
	SavedPlaylistTitle string        `toml:"saved_playlist_title"`
	IncludeShorts      bool          `toml:"include_shorts"`
	ShortsConcurrency  int           `toml:"shorts_concurrency"`
	ShortsRPS          float64       `toml:"shorts_rps"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads the .env file (when present), the TOML file at path (when present, defaults otherwise) and
// applies environment overrides.
func ResolveConfig(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	config.ApplyEnv()
	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides configuration values with their environment variable counterparts.
func (c *Config) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.RedirectURI, "GOOGLE_REDIRECT_URI")
	setString(&c.Server.SecretKey, "SECRET_KEY")
	setString(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.Database.Path, "TUBESWIPE_DB")
	setString(&c.Storage.PreferencesPath, "TUBESWIPE_PREFS")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v, ok := os.LookupEnv("MOCK_MODE"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Server.MockMode = b
		}
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// Mock reports whether the application runs without Google credentials, serving canned data.
func (c *Config) Mock() bool {
	return c.Server.MockMode || c.Google.ClientID == ""
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.SecretKey == "" {
		return fmt.Errorf("%w: server.secret_key is required", ErrInvalidConfig)
	}
	if !c.Mock() && c.Google.ClientSecret == "" {
		return fmt.Errorf("%w: google.client_secret is required when client_id is set", ErrMissingCredentials)
	}
	if c.Feed.WindowHours <= 0 {
		return fmt.Errorf("%w: feed.window_hours must be positive", ErrInvalidConfig)
	}
	return nil
}
