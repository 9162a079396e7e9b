// Command textrules applies configured pattern/replacement rule lists to
// the clipboard, files, standard input, or HTTP requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raaihank/textrules/internal/action"
	"github.com/raaihank/textrules/internal/cache"
	"github.com/raaihank/textrules/internal/config"
	"github.com/raaihank/textrules/internal/engine"
	"github.com/raaihank/textrules/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

var (
	configPath string
	logLevel   string
	onError    string
)

// app is the state shared by subcommands once configuration is loaded
type app struct {
	config *config.Config
	logger *logger.Logger
	engine *engine.Engine
}

var current *app

var rootCmd = &cobra.Command{
	Use:           "textrules",
	Short:         "Apply named lists of regular expression rules to text",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current == nil {
			return nil
		}
		current.logger.Sync()
		return current.engine.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (yaml, json or jsonc)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&onError, "on-error", "", "override resolution.on_error (prompt, continue, abort)")

	rootCmd.AddCommand(clipboardCmd, pasteCmd, runCmd, fileCmd, listCmd, stringifyCmd, serveCmd, versionCmd)
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyFlags(cfg); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	provider, err := cache.New(&cfg.Cache, log.WithComponent("cache").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create placeholder cache: %w", err)
	}

	log.Debug("Configuration loaded",
		zap.String("file", cfg.File()),
		zap.Int("action_lists", len(cfg.Actions)),
		zap.String("on_error", cfg.Resolution.OnError),
	)

	return &app{config: cfg, logger: log, engine: engine.New(cfg, provider, log)}, nil
}

// applyFlags overrides configuration values with command-line flags
func applyFlags(cfg *config.Config) error {
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	switch onError {
	case "":
	case config.OnErrorPrompt, config.OnErrorContinue, config.OnErrorAbort:
		cfg.Resolution.OnError = onError
	default:
		return fmt.Errorf("invalid --on-error value: %s", onError)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, action.ErrAborted) || errors.Is(err, action.ErrNoSelection) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
