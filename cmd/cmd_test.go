/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sony-level/tfpanel/internal/config"
	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/logbuf"
	"github.com/sony-level/tfpanel/internal/modsrc"
)

func TestStyleLineKeepsText(t *testing.T) {
	lines := []string{
		"$ terraform plan -input=false -no-color",
		exec.SuccessMarker,
		"❌ Command failed with exit code 3.",
		exec.CancelMarker,
		"📄 Generated main.tf",
		"Plan: 1 to add, 0 to change, 0 to destroy.",
	}
	for _, line := range lines {
		assert.Contains(t, styleLine(line), line)
	}
	assert.Equal(t, "plain output", styleLine("plain output"))
}

func TestConsolePrinterPrintsOnlyNewLines(t *testing.T) {
	buf := logbuf.New(10)
	buf.Append("welcome")

	var out bytes.Buffer
	p := newConsolePrinter(&out, buf)
	buf.Append("first\nsecond")
	p.flush()
	p.flush()

	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, got, 2)
	assert.Contains(t, got[0], "first")
	assert.Contains(t, got[1], "second")
	assert.NotContains(t, out.String(), "welcome")
}

func TestConsolePrinterFollow(t *testing.T) {
	buf := logbuf.New(10)
	var out bytes.Buffer
	p := newConsolePrinter(&out, buf)

	done := make(chan struct{})
	go func() {
		buf.Append("$ terraform init")
		buf.Append(exec.SuccessMarker)
		close(done)
	}()
	p.follow(done)

	assert.Contains(t, out.String(), "terraform init")
	assert.Contains(t, out.String(), exec.SuccessMarker)
}

func TestApplyFlagOverrides(t *testing.T) {
	defer func() {
		verbose, terraformBin, noHistory, modulesDir = false, "", false, ""
	}()

	c := config.DefaultConfig()
	verbose = true
	terraformBin = "/opt/terraform"
	modulesDir = "/srv/modules"
	noHistory = true
	applyFlagOverrides(c)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "/opt/terraform", c.Terraform.Binary)
	assert.Equal(t, "/srv/modules", c.Modules.Dir)
	assert.False(t, c.History.Enabled)
	assert.False(t, c.Workspace.History)
}

func TestFormFromFlags(t *testing.T) {
	cfg = config.DefaultConfig()
	defer func() {
		cfg = nil
		formRegion, formEnvironment, formModules, formDBTProject = "", "", nil, ""
	}()

	formEnvironment = "prod"
	formModules = []string{"object-storage", "transformation-project"}
	formDBTProject = "beta_dbt"

	form := formFromFlags([]string{"client_beta"})
	assert.Equal(t, "client_beta", form.Workspace)
	assert.Equal(t, "us-east-1", form.Region)
	assert.Equal(t, "prod", form.Environment)
	assert.Equal(t, formModules, form.Modules)
	assert.Equal(t, "beta_dbt", form.Inputs.DBTProjectName)
	assert.Empty(t, form.Inputs.BucketPrefix, "empty prefix falls back to <workspace>-data-lake at render time")

	form = formFromFlags(nil)
	assert.Equal(t, "client_alpha", form.Workspace)
}

func TestConfirmApply(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"yes", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"apply\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := confirmApply(strings.NewReader(tt.input), &out, "client_alpha", "terraform apply -auto-approve")
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "client_alpha")
		assert.Contains(t, out.String(), "terraform apply -auto-approve")
	}
}

func TestPrintModuleReport(t *testing.T) {
	report := modsrc.Verify(t.TempDir())

	var out bytes.Buffer
	printModuleReport(&out, report)

	for _, m := range report.Modules {
		assert.Contains(t, out.String(), string(m.Flag))
	}
	assert.Contains(t, out.String(), "directory missing")
}
