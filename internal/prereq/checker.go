// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Toolchain checker for tool existence and versions

package prereq

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// DefaultVersionTimeout bounds each version probe
const DefaultVersionTimeout = 5 * time.Second

// Checker verifies tool existence
type Checker struct {
	tools   []*Tool
	timeout time.Duration
}

// NewChecker creates a checker for terraform and git
func NewChecker(terraformBinary string) *Checker {
	return NewCheckerWithTools(DefaultTools(terraformBinary))
}

// NewCheckerWithTools creates a checker with custom tools
func NewCheckerWithTools(tools []*Tool) *Checker {
	return &Checker{
		tools:   tools,
		timeout: DefaultVersionTimeout,
	}
}

// Check runs every tool check
func (c *Checker) Check(ctx context.Context) *CheckSummary {
	summary := NewCheckSummary()
	for _, tool := range c.tools {
		summary.AddResult(c.CheckTool(ctx, tool))
	}
	return summary
}

// CheckTool checks if a specific tool exists and reads its version
func (c *Checker) CheckTool(ctx context.Context, tool *Tool) CheckResult {
	result := CheckResult{
		Name:     tool.Name,
		Command:  tool.Command,
		Required: tool.Required,
	}

	path, err := exec.LookPath(tool.Command)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Found = true
	result.Path = path
	result.Version = c.getVersion(ctx, path, tool.VersionArgs)
	return result
}

// GetTool returns a tool definition by name
func (c *Checker) GetTool(name string) *Tool {
	for _, t := range c.tools {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// GetInstallGuide returns installation instructions for a tool
func (c *Checker) GetInstallGuide(name string) string {
	tool := c.GetTool(name)
	if tool == nil {
		return "No installation guide available for " + name
	}
	return tool.InstallGuide
}

// getVersion executes a version command and returns its first line
func (c *Checker) getVersion(ctx context.Context, path string, args []string) string {
	if len(args) == 0 {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return ""
	}

	output := strings.TrimSpace(string(out))
	if idx := strings.Index(output, "\n"); idx > 0 {
		output = output[:idx]
	}
	return output
}

// FormatMissing returns a formatted string of missing tools with install guides
func (c *Checker) FormatMissing(summary *CheckSummary) string {
	if summary.AllFound {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Missing prerequisites:\n\n")

	for _, name := range summary.MissingTools {
		sb.WriteString("─────────────────────────────────\n")
		sb.WriteString(name + "\n")
		sb.WriteString("─────────────────────────────────\n")
		sb.WriteString(c.GetInstallGuide(name))
		sb.WriteString("\n\n")
	}

	return sb.String()
}
