package main

import (
	"fmt"

	"github.com/raaihank/textrules/internal/config"
	"github.com/raaihank/textrules/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveHost  string
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and WebSocket API",
	Long: `Starts an HTTP server exposing /health, /info, /actions and POST /apply.
When the configuration was loaded from a file it is reloaded on change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := current.engine.Config()
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		log := current.logger

		srv := server.New(current.engine, cfg, log, version)

		if serveWatch && cfg.File() != "" {
			err := config.Watch(ctx, cfg.File(), log.WithComponent("config"), func(next *config.Config) {
				if err := applyFlags(next); err != nil {
					log.Error("Ignoring reloaded configuration", zap.Error(err))
					return
				}
				next.Server = cfg.Server
				current.engine.Reload(next)
				srv.ConfigReloaded(next)
			})
			if err != nil {
				return fmt.Errorf("failed to watch configuration: %w", err)
			}
			log.Info("Watching configuration", zap.String("file", cfg.File()))
		}

		log.Info("Build information",
			zap.String("version", version),
			zap.String("commit", commit),
			zap.String("build_date", date),
		)

		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		log.Info("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "address to listen on (overrides server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "reload the configuration file when it changes")
}
