// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Application configuration

package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/logbuf"
	"github.com/sony-level/tfpanel/internal/render"
)

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Workspace WorkspaceConfig `yaml:"workspace" json:"workspace"`
	Modules   ModulesConfig   `yaml:"modules" json:"modules"`
	Terraform TerraformConfig `yaml:"terraform" json:"terraform"`
	History   HistoryConfig   `yaml:"history" json:"history"`
	Console   ConsoleConfig   `yaml:"console" json:"console"`
	Panel     PanelConfig     `yaml:"panel" json:"panel"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// ServerConfig configures the HTTP control panel
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// WorkspaceConfig configures where generated configuration lives
type WorkspaceConfig struct {
	Root    string `yaml:"root" json:"root"`       // one subdirectory per workspace
	History bool   `yaml:"history" json:"history"` // git snapshot on every generation
	Author  string `yaml:"author" json:"author"`
	Email   string `yaml:"email" json:"email"`
}

// ModulesConfig points at the pre-existing module sources
type ModulesConfig struct {
	Dir    string `yaml:"dir" json:"dir"`       // absolute after Resolve
	Source string `yaml:"source" json:"source"` // git URL or local directory for "modules sync"
	Ref    string `yaml:"ref" json:"ref"`       // branch or tag to sync, default branch when empty
}

// TerraformConfig configures the provisioning CLI
type TerraformConfig struct {
	Binary      string        `yaml:"binary" json:"binary"`
	Color       bool          `yaml:"color" json:"color"`
	GracePeriod time.Duration `yaml:"grace_period" json:"grace_period"` // SIGINT to SIGKILL on cancel
	LineDelay   time.Duration `yaml:"line_delay" json:"line_delay"`
}

// HistoryConfig configures the run history database
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	DBPath  string `yaml:"db_path" json:"db_path"`
}

// ConsoleConfig configures the session console
type ConsoleConfig struct {
	Lines   int    `yaml:"lines" json:"lines"`
	Welcome string `yaml:"welcome" json:"welcome"`
}

// PanelConfig configures the choices the form offers
type PanelConfig struct {
	DefaultWorkspace string   `yaml:"default_workspace" json:"default_workspace"`
	Regions          []string `yaml:"regions" json:"regions"`
	Environments     []string `yaml:"environments" json:"environments"`
}

// LogConfig configures application logging
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug|info|warn|error
	Format string `yaml:"format" json:"format"` // console|json
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8501",
			ShutdownTimeout: 15 * time.Second,
		},
		Workspace: WorkspaceConfig{
			Root:    "./client_workspaces",
			History: true,
		},
		Modules: ModulesConfig{
			Dir: "./modules",
		},
		Terraform: TerraformConfig{
			Binary:      exec.DefaultTerraformBinary,
			GracePeriod: exec.DefaultGracePeriod,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "./.tfpanel/history.db",
		},
		Console: ConsoleConfig{
			Lines:   logbuf.DefaultCapacity,
			Welcome: "Welcome to tfpanel. Ready to launch.",
		},
		Panel: PanelConfig{
			DefaultWorkspace: "client_alpha",
			Regions:          slices.Clone(render.Regions),
			Environments:     slices.Clone(render.Environments),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace.root is required")
	}
	if c.Modules.Dir == "" {
		return fmt.Errorf("modules.dir is required")
	}
	if c.Terraform.Binary == "" {
		return fmt.Errorf("terraform.binary is required")
	}
	if c.Terraform.GracePeriod < 0 || c.Terraform.LineDelay < 0 {
		return fmt.Errorf("terraform durations must not be negative")
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path is required when history is enabled")
	}
	if c.Console.Lines <= 0 || c.Console.Lines > logbuf.DefaultCapacity {
		return fmt.Errorf("console.lines must be between 1 and %d, got %d", logbuf.DefaultCapacity, c.Console.Lines)
	}
	if len(c.Panel.Regions) == 0 {
		return fmt.Errorf("panel.regions must not be empty")
	}
	if len(c.Panel.Environments) == 0 {
		return fmt.Errorf("panel.environments must not be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("invalid log.level %q, must be one of %v", c.Log.Level, validLevels)
	}
	validFormats := []string{"console", "json"}
	if !slices.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("invalid log.format %q, must be one of %v", c.Log.Format, validFormats)
	}

	return nil
}
