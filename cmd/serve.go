/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/config"
	"github.com/sony-level/tfpanel/internal/logging"
	"github.com/sony-level/tfpanel/internal/server"
)

var (
	serveAddr    string
	serveNoWatch bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser control panel",
	Long: `Start the HTTP control panel. Each browser tab gets its own session with
a form, a console capped at the configured number of lines, and at most one
running terraform command.

The config file is watched while the panel runs: changes to the terraform
binary, module directory, form choices and log level apply to later
operations without a restart.

Examples:
  tfpanel serve
  tfpanel serve --addr 0.0.0.0:8501
  tfpanel serve --config ./panel.yaml --log-format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeServe(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr, 127.0.0.1:8501)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload the config file when it changes")
	rootCmd.AddCommand(serveCmd)
}

func executeServe(cmd *cobra.Command) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	srvConfig := server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Manager:         a.manager,
		Logger:          logger,
		Version:         Version,
	}
	if a.runs != nil {
		srvConfig.Runs = a.runs
	}
	srv, err := server.New(srvConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfgFile != "" && !serveNoWatch {
		go watchConfig(ctx, a)
	}

	logger.Info("starting tfpanel",
		zap.String("version", Version),
		zap.String("workspaces", a.store.Root()),
		zap.String("modules", cfg.Modules.Dir),
	)
	return srv.ListenAndServe(ctx)
}

// watchConfig applies config file edits to the running panel
func watchConfig(ctx context.Context, a *app) {
	loader := config.NewLoader()
	err := loader.Watch(ctx, cfgFile, logger.Named("config"), func(next *config.Config) {
		applyFlagOverrides(next)
		if err := next.Validate(); err != nil {
			logger.Warn("ignoring config change", zap.Error(err))
			return
		}
		if err := next.Resolve(); err != nil {
			logger.Warn("ignoring config change", zap.Error(err))
			return
		}
		if err := logging.SetLevel(logLevels, next.Log.Level); err != nil {
			logger.Warn("ignoring log level change", zap.Error(err))
		}
		a.manager.UpdateSettings(settingsFrom(next))
	})
	if err != nil {
		logger.Warn("config watch stopped", zap.Error(err))
	}
}
