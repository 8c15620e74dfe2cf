// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Configuration loading: files, environment, path resolution

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.tfpanel.yaml",               // Project-specific config (highest priority)
	"~/.config/tfpanel/config.yaml", // User config
	"/etc/tfpanel/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{configPaths: ConfigPaths}
}

// NewLoaderWithPaths creates a loader searching only the given paths
func NewLoaderWithPaths(paths []string) *Loader {
	return &Loader{configPaths: paths}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. The custom path, or the search paths from lowest to highest priority
// 4. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			path := expandPath(l.configPaths[i])
			if !fileExists(path) {
				continue
			}
			if err := loadFromFile(config, path); err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile returns the highest-priority config file that exists
func (l *Loader) FindConfigFile() (string, bool) {
	for _, path := range l.configPaths {
		expanded := expandPath(path)
		if fileExists(expanded) {
			return expanded, true
		}
	}
	return "", false
}

// Resolve expands ~ and makes filesystem paths absolute.
// Module sources are referenced from generated files, so they must not be relative.
func (c *Config) Resolve() error {
	for _, p := range []*string{&c.Workspace.Root, &c.Modules.Dir, &c.History.DBPath} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(expandPath(*p))
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// loadFromFile decodes YAML over the existing values; absent keys keep their value
func loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated or comes from the fixed search list
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyEnvOverrides applies TFPANEL_* environment variables to the config
func applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		"TFPANEL_ADDR":                    func(v string) error { config.Server.Addr = v; return nil },
		"TFPANEL_WORKSPACE_ROOT":          func(v string) error { config.Workspace.Root = v; return nil },
		"TFPANEL_WORKSPACE_HISTORY":       func(v string) error { return parseBool(v, &config.Workspace.History) },
		"TFPANEL_MODULES_DIR":             func(v string) error { config.Modules.Dir = v; return nil },
		"TFPANEL_MODULES_SOURCE":          func(v string) error { config.Modules.Source = v; return nil },
		"TFPANEL_MODULES_REF":             func(v string) error { config.Modules.Ref = v; return nil },
		"TFPANEL_TERRAFORM_BINARY":        func(v string) error { config.Terraform.Binary = v; return nil },
		"TFPANEL_TERRAFORM_GRACE":         func(v string) error { return parseDuration(v, &config.Terraform.GracePeriod) },
		"TFPANEL_HISTORY_ENABLED":         func(v string) error { return parseBool(v, &config.History.Enabled) },
		"TFPANEL_HISTORY_DB":              func(v string) error { config.History.DBPath = v; return nil },
		"TFPANEL_CONSOLE_LINES":           func(v string) error { return parseInt(v, &config.Console.Lines) },
		"TFPANEL_LOG_LEVEL":               func(v string) error { config.Log.Level = v; return nil },
		"TFPANEL_LOG_FORMAT":              func(v string) error { config.Log.Format = v; return nil },
		"TFPANEL_PANEL_DEFAULT_WORKSPACE": func(v string) error { config.Panel.DefaultWorkspace = v; return nil },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	if regions := os.Getenv("TFPANEL_PANEL_REGIONS"); regions != "" {
		config.Panel.Regions = splitList(regions)
	}

	return nil
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}
	return nil
}

func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBool(value string, target *bool) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*target = b
	return nil
}

func parseInt(value string, target *int) error {
	i, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*target = i
	return nil
}

func parseDuration(value string, target *time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*target = d
	return nil
}
