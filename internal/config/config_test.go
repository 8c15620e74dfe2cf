// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Configuration tests

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tfpanel.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"no root", func(c *Config) { c.Workspace.Root = "" }, "workspace.root"},
		{"no modules", func(c *Config) { c.Modules.Dir = "" }, "modules.dir"},
		{"no binary", func(c *Config) { c.Terraform.Binary = "" }, "terraform.binary"},
		{"zero lines", func(c *Config) { c.Console.Lines = 0 }, "console.lines"},
		{"lines over the console cap", func(c *Config) { c.Console.Lines = 5000 }, "console.lines"},
		{"no regions", func(c *Config) { c.Panel.Regions = nil }, "panel.regions"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"history without db", func(c *Config) { c.History.DBPath = "" }, "history.db_path"},
		{"history disabled without db", func(c *Config) { c.History.Enabled = false; c.History.DBPath = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
server:
  addr: ":9000"
terraform:
  binary: /opt/terraform
  grace_period: 3s
panel:
  regions: [ap-south-1]
`)

	cfg, err := NewLoaderWithPaths(nil).LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Terraform.Binary != "/opt/terraform" || cfg.Terraform.GracePeriod != 3*time.Second {
		t.Errorf("Terraform = %+v", cfg.Terraform)
	}
	if len(cfg.Panel.Regions) != 1 || cfg.Panel.Regions[0] != "ap-south-1" {
		t.Errorf("Panel.Regions = %v", cfg.Panel.Regions)
	}
	// untouched keys keep defaults
	if cfg.Console.Lines != 1000 || cfg.Log.Level != "info" {
		t.Errorf("defaults lost: console %d, log %q", cfg.Console.Lines, cfg.Log.Level)
	}
}

func TestLoadConfigSearchPriority(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "low.yaml")
	high := filepath.Join(dir, "high.yaml")
	if err := os.WriteFile(low, []byte("log:\n  level: debug\nserver:\n  addr: low:1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(high, []byte("server:\n  addr: high:1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoaderWithPaths([]string{high, low, filepath.Join(dir, "missing.yaml")}).LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Addr != "high:1" {
		t.Errorf("Server.Addr = %q, want high:1", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug from lower-priority file", cfg.Log.Level)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TFPANEL_TERRAFORM_BINARY", "tofu")
	t.Setenv("TFPANEL_CONSOLE_LINES", "250")
	t.Setenv("TFPANEL_WORKSPACE_HISTORY", "false")
	t.Setenv("TFPANEL_PANEL_REGIONS", "us-east-1, eu-central-1 ,")
	t.Setenv("TFPANEL_MODULES_SOURCE", "git@github.com:acme/terraform-modules.git")
	t.Setenv("TFPANEL_MODULES_REF", "v1.4.0")

	cfg, err := NewLoaderWithPaths(nil).LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Terraform.Binary != "tofu" || cfg.Console.Lines != 250 || cfg.Workspace.History {
		t.Errorf("env overrides not applied: %+v %+v %+v", cfg.Terraform, cfg.Console, cfg.Workspace)
	}
	if len(cfg.Panel.Regions) != 2 || cfg.Panel.Regions[1] != "eu-central-1" {
		t.Errorf("Panel.Regions = %v", cfg.Panel.Regions)
	}
	if cfg.Modules.Source != "git@github.com:acme/terraform-modules.git" || cfg.Modules.Ref != "v1.4.0" {
		t.Errorf("Modules = %+v", cfg.Modules)
	}
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	t.Setenv("TFPANEL_CONSOLE_LINES", "many")
	if _, err := NewLoaderWithPaths(nil).LoadConfig(""); err == nil {
		t.Error("expected error for non-numeric TFPANEL_CONSOLE_LINES")
	}

	if _, err := NewLoaderWithPaths(nil).LoadConfig("../config.yaml"); err == nil {
		t.Error("expected error for traversal in config path")
	}
	if _, err := NewLoaderWithPaths(nil).LoadConfig("config.json"); err == nil {
		t.Error("expected error for non-yaml config path")
	}
}

func TestResolveMakesPathsAbsolute(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	for _, p := range []string{cfg.Workspace.Root, cfg.Modules.Dir, cfg.History.DBPath} {
		if !filepath.IsAbs(p) {
			t.Errorf("%q is not absolute", p)
		}
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- NewLoaderWithPaths(nil).Watch(ctx, path, nil, func(c *Config) { changes <- c })
	}()

	// give the watcher time to register before writing
	time.Sleep(300 * time.Millisecond)
	writeConfig(t, dir, "log:\n  level: debug\n")

	select {
	case cfg := <-changes:
		if cfg.Log.Level != "debug" {
			t.Errorf("reloaded Log.Level = %q, want debug", cfg.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config change")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
