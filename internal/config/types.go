package config

import (
	"time"

	"github.com/raaihank/textrules/internal/cache"
	"github.com/raaihank/textrules/internal/logger"
	"github.com/spf13/viper"
)

// Config represents the main configuration structure
type Config struct {
	Logging    LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	Resolution ResolutionConfig    `yaml:"resolution" mapstructure:"resolution"`
	Cache      cache.Config        `yaml:"cache" mapstructure:"cache"`
	Commands   map[string][]string `yaml:"commands" mapstructure:"commands"`
	Workspace  WorkspaceConfig     `yaml:"workspace" mapstructure:"workspace"`
	Server     ServerConfig        `yaml:"server" mapstructure:"server"`
	WebSocket  WebSocketConfig     `yaml:"websocket" mapstructure:"websocket"`
	Actions    map[string]any      `yaml:"actions" mapstructure:"actions"`

	v *viper.Viper
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	Output string `yaml:"output" mapstructure:"output"` // stderr or stdout
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// Logger converts the logging section into a logger configuration
func (c LoggingConfig) Logger() logger.Config {
	cfg := logger.Config{Level: c.Level, Format: c.Format, Output: c.Output}
	if c.File.Enabled {
		cfg.File = &logger.FileConfig{Enabled: true, Path: c.File.Path}
	}
	return cfg
}

// On-error policies for recoverable resolution errors
const (
	OnErrorPrompt   = "prompt"
	OnErrorContinue = "continue"
	OnErrorAbort    = "abort"
)

// ResolutionConfig controls action resolution
type ResolutionConfig struct {
	OnError      string        `yaml:"on_error" mapstructure:"on_error"` // prompt, continue or abort
	MatchTimeout time.Duration `yaml:"match_timeout" mapstructure:"match_timeout"`
}

// WorkspaceConfig names the workspace root and additional folders
type WorkspaceConfig struct {
	Root    string            `yaml:"root" mapstructure:"root"`
	Folders map[string]string `yaml:"folders" mapstructure:"folders"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string          `yaml:"host" mapstructure:"host"`
	Port         int             `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration   `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// AllowPlaceholders names the server-side placeholder sources that
	// requests may read (see PlaceholderSources). Empty allows none.
	AllowPlaceholders []string `yaml:"allow_placeholders" mapstructure:"allow_placeholders"`
}

// Placeholder sources that expose the serving machine to HTTP clients
const (
	PlaceholderEnv       = "env"
	PlaceholderConfig    = "config"
	PlaceholderCommand   = "command"
	PlaceholderWorkspace = "workspace"
	PlaceholderHost      = "host"
)

// PlaceholderSources lists the values accepted in server.allow_placeholders
var PlaceholderSources = []string{PlaceholderEnv, PlaceholderConfig, PlaceholderCommand, PlaceholderWorkspace, PlaceholderHost}

// RateLimitConfig limits requests per client IP
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
		Resolution: ResolutionConfig{
			OnError:      OnErrorPrompt,
			MatchTimeout: 5 * time.Second,
		},
		Cache: cache.Config{
			Backend:         "memory",
			MaxConnections:  10,
			MinIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			DefaultTTL:      10 * time.Minute,
			KeyPrefix:       "textrules",
		},
		Commands: map[string][]string{},
		Workspace: WorkspaceConfig{
			Root:    ".",
			Folders: map[string]string{},
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             20,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
			AllowedOrigins:  []string{"*"},
		},
		Actions: map[string]any{},
	}
}
