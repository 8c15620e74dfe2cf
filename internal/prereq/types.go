// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Toolchain types and tool definitions

package prereq

// Tool represents a binary the panel shells out to
type Tool struct {
	Name         string   // Tool name
	Command      string   // Command to check existence
	VersionArgs  []string // Arguments printing the version
	Required     bool     // Whether commands cannot run without it
	InstallGuide string   // Installation instructions
}

// Terraform returns the provisioning CLI definition for the given binary
func Terraform(binary string) *Tool {
	if binary == "" {
		binary = "terraform"
	}
	return &Tool{
		Name:        "terraform",
		Command:     binary,
		VersionArgs: []string{"version"},
		Required:    true,
		InstallGuide: `Install Terraform:
  macOS:   brew tap hashicorp/tap && brew install hashicorp/tap/terraform
  Ubuntu:  https://developer.hashicorp.com/terraform/install#linux
  Windows: choco install terraform
  Or set terraform.binary in .tfpanel.yaml to an existing binary`,
	}
}

// Git returns the git definition; only needed to inspect generation history by hand
func Git() *Tool {
	return &Tool{
		Name:        "git",
		Command:     "git",
		VersionArgs: []string{"--version"},
		InstallGuide: `Install git:
  macOS:   brew install git
  Ubuntu:  sudo apt install git
  Fedora:  sudo dnf install git
  Windows: https://git-scm.com/download/win`,
	}
}

// DefaultTools returns the toolchain checked by doctor and /api/health
func DefaultTools(terraformBinary string) []*Tool {
	return []*Tool{Terraform(terraformBinary), Git()}
}

// CheckResult contains the result of checking a tool
type CheckResult struct {
	Name     string `json:"name"`
	Command  string `json:"command"`
	Found    bool   `json:"found"`
	Required bool   `json:"required"`
	Version  string `json:"version,omitempty"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CheckSummary contains results for all checks
type CheckSummary struct {
	Results      []CheckResult `json:"results"`
	AllFound     bool          `json:"all_found"`
	Ready        bool          `json:"ready"` // every required tool is present
	MissingTools []string      `json:"missing,omitempty"`
}

// NewCheckSummary creates a new check summary
func NewCheckSummary() *CheckSummary {
	return &CheckSummary{
		Results:      []CheckResult{},
		AllFound:     true,
		Ready:        true,
		MissingTools: []string{},
	}
}

// AddResult adds a check result to the summary
func (s *CheckSummary) AddResult(result CheckResult) {
	s.Results = append(s.Results, result)
	if !result.Found {
		s.AllFound = false
		s.MissingTools = append(s.MissingTools, result.Name)
		if result.Required {
			s.Ready = false
		}
	}
}
