package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/raaihank/textrules/internal/logger"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

// EnvPrefix prefixes environment variable overrides (TEXTRULES_LOGGING_LEVEL)
const EnvPrefix = "TEXTRULES"

// envKeys can be set from the environment even when absent from the file
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"resolution.on_error",
	"resolution.match_timeout",
	"cache.backend",
	"cache.redis_url",
	"cache.key_prefix",
	"workspace.root",
	"server.host",
	"server.port",
}

// Load loads configuration from file and environment variables. An empty
// path searches the working directory and the user's config directory.
func Load(configPath string) (*Config, error) {
	v := newViper()

	switch {
	case configPath == "":
		v.SetConfigName("textrules")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/textrules/")
		v.AddConfigPath("/etc/textrules/")

		if err := v.ReadInConfig(); err != nil {
			// Config file not found is not an error - we'll use defaults
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	case isJSON(configPath):
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := readJSONC(v, data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	default:
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// LoadBytes loads configuration from data in the given format (yaml, json
// or jsonc).
func LoadBytes(data []byte, format string) (*Config, error) {
	v := newViper()

	if format == "json" || format == "jsonc" {
		if err := readJSONC(v, data); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else {
		v.SetConfigType(format)
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// readJSONC strips comments and trailing commas before handing the
// document to viper's JSON codec.
func readJSONC(v *viper.Viper, data []byte) error {
	v.SetConfigType("json")
	return v.ReadConfig(bytes.NewReader(jsonc.ToJSON(data)))
}

func isJSON(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".json" || ext == ".jsonc"
}

func decode(v *viper.Viper) (*Config, error) {
	config := GetDefaults()

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.v = v
	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	for _, source := range config.Server.AllowPlaceholders {
		if !slices.Contains(PlaceholderSources, source) {
			return fmt.Errorf("invalid server.allow_placeholders entry: %s (must be one of %s)", source, strings.Join(PlaceholderSources, ", "))
		}
	}

	switch config.Resolution.OnError {
	case OnErrorPrompt, OnErrorContinue, OnErrorAbort:
	default:
		return fmt.Errorf("invalid on_error policy: %s (must be prompt, continue, or abort)", config.Resolution.OnError)
	}

	if config.Resolution.MatchTimeout <= 0 {
		return fmt.Errorf("invalid match timeout: %s", config.Resolution.MatchTimeout)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.Cache.Backend != "" && config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", config.Cache.Backend)
	}

	for name, argv := range config.Commands {
		if len(argv) == 0 {
			return fmt.Errorf("command %q has no program", name)
		}
	}

	return nil
}

// Get returns the raw configuration value at a dotted path. Lookups are
// case-insensitive.
func (c *Config) Get(path string) (any, bool) {
	if c.v == nil || path == "" || !c.v.IsSet(path) {
		return nil, false
	}
	return c.v.Get(path), true
}

// File returns the configuration file in use, if any
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch reloads configPath whenever it changes and passes the new
// configuration to callback until ctx is done. Invalid files are logged
// and skipped.
func Watch(ctx context.Context, configPath string, log *logger.Logger, callback func(*Config)) error {
	if configPath == "" {
		return fmt.Errorf("no configuration file to watch")
	}
	if log == nil {
		log = logger.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Editors often replace the file, so watch its directory.
	file := filepath.Clean(configPath)
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", file, err)
	}

	go func() {
		defer watcher.Close()

		var reload <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != file || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Collapse bursts of events from a single save.
				reload = time.After(100 * time.Millisecond)
			case <-reload:
				reload = nil
				config, err := Load(configPath)
				if err != nil {
					log.Warn("Ignoring invalid configuration change",
						zap.String("file", configPath),
						zap.Error(err),
					)
					continue
				}
				log.Info("Configuration reloaded", zap.String("file", configPath))
				callback(config)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("Config watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}
