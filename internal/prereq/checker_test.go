// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Toolchain checker tests

package prereq

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeTool writes an executable script printing a version banner
func fakeTool(t *testing.T, dir, name, banner string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\necho '" + banner + "'\necho 'second line'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckToolFound(t *testing.T) {
	bin := fakeTool(t, t.TempDir(), "terraform", "Terraform v1.9.5")

	c := NewCheckerWithTools([]*Tool{Terraform(bin)})
	summary := c.Check(context.Background())

	if !summary.AllFound || !summary.Ready {
		t.Fatalf("summary = %+v, want all found", summary)
	}
	got := summary.Results[0]
	if got.Path != bin {
		t.Errorf("Path = %q, want %q", got.Path, bin)
	}
	if got.Version != "Terraform v1.9.5" {
		t.Errorf("Version = %q, want first line only", got.Version)
	}
}

func TestCheckToolMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-terraform")
	optional := &Tool{Name: "extra", Command: "tfpanel-no-such-tool"}

	c := NewCheckerWithTools([]*Tool{Terraform(missing), optional})
	summary := c.Check(context.Background())

	if summary.AllFound || summary.Ready {
		t.Errorf("summary = %+v, want missing and not ready", summary)
	}
	if len(summary.MissingTools) != 2 || summary.MissingTools[0] != "terraform" {
		t.Errorf("MissingTools = %v", summary.MissingTools)
	}
	if summary.Results[0].Error == "" {
		t.Error("expected lookup error on missing tool")
	}

	text := c.FormatMissing(summary)
	if !strings.Contains(text, "Install Terraform") {
		t.Errorf("FormatMissing() missing install guide:\n%s", text)
	}
}

func TestOptionalToolKeepsReady(t *testing.T) {
	bin := fakeTool(t, t.TempDir(), "terraform", "Terraform v1.9.5")
	optional := &Tool{Name: "extra", Command: "tfpanel-no-such-tool"}

	summary := NewCheckerWithTools([]*Tool{Terraform(bin), optional}).Check(context.Background())
	if summary.AllFound {
		t.Error("AllFound should be false")
	}
	if !summary.Ready {
		t.Error("Ready should stay true when only optional tools are missing")
	}
}

func TestGetInstallGuide(t *testing.T) {
	c := NewChecker("")
	if !strings.Contains(c.GetInstallGuide("GIT"), "apt install git") {
		t.Error("git guide lookup should be case-insensitive")
	}
	if got := c.GetInstallGuide("unknown"); !strings.HasPrefix(got, "No installation guide") {
		t.Errorf("GetInstallGuide(unknown) = %q", got)
	}
	if c.GetTool("terraform").Command != "terraform" {
		t.Error("empty binary should default to terraform")
	}
}
