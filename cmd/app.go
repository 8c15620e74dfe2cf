/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/config"
	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/history"
	"github.com/sony-level/tfpanel/internal/session"
	"github.com/sony-level/tfpanel/internal/workspace"
)

// app holds the components every command works with
type app struct {
	store   *workspace.Store
	runs    *history.Store // nil when run history is disabled
	manager *session.Manager
}

func newApp() (*app, error) {
	store, err := workspace.NewStore(&workspace.StoreConfig{
		Root:    cfg.Workspace.Root,
		History: cfg.Workspace.History,
		Author:  cfg.Workspace.Author,
		Email:   cfg.Workspace.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace store: %w", err)
	}

	a := &app{store: store}
	managerConfig := &session.ManagerConfig{
		Store: store,
		Runner: exec.NewRunner(&exec.RunnerConfig{
			GracePeriod: cfg.Terraform.GracePeriod,
			LineDelay:   cfg.Terraform.LineDelay,
			Logger:      logger.Named("exec"),
		}),
		Settings: settingsFrom(cfg),
		Logger:   logger,
	}

	if cfg.History.Enabled {
		runs, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return nil, err
		}
		a.runs = runs
		managerConfig.Recorder = runs
		logger.Debug("run history enabled", zap.String("db", runs.Path()))
	}

	a.manager, err = session.NewManager(managerConfig)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close stops running commands and releases the history database
func (a *app) Close() {
	if a.manager != nil {
		a.manager.Close()
	}
	if a.runs != nil {
		if err := a.runs.Close(); err != nil {
			logger.Warn("failed to close history database", zap.Error(err))
		}
	}
}

// settingsFrom extracts the hot-reloadable session settings
func settingsFrom(c *config.Config) session.Settings {
	return session.Settings{
		ModulesDir:       c.Modules.Dir,
		Terraform:        exec.Terraform{Binary: c.Terraform.Binary, Color: c.Terraform.Color},
		DefaultWorkspace: c.Panel.DefaultWorkspace,
		Regions:          c.Panel.Regions,
		Environments:     c.Panel.Environments,
		ConsoleLines:     c.Console.Lines,
		Welcome:          c.Console.Welcome,
	}
}
