// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Terraform state file summary

package tfstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrNoState is returned when a workspace has not been applied yet
var ErrNoState = errors.New("no terraform state")

// State mirrors the parts of terraform.tfstate (format v4) we read
type State struct {
	Version          int               `json:"version"`
	TerraformVersion string            `json:"terraform_version"`
	Serial           int               `json:"serial"`
	Lineage          string            `json:"lineage"`
	Outputs          map[string]Output `json:"outputs,omitempty"`
	Resources        []ResourceState   `json:"resources"`
}

type Output struct {
	Value     any  `json:"value"`
	Type      any  `json:"type"`
	Sensitive bool `json:"sensitive,omitempty"`
}

type ResourceState struct {
	Mode      string             `json:"mode"`
	Type      string             `json:"type"`
	Name      string             `json:"name"`
	Provider  string             `json:"provider"`
	Module    string             `json:"module,omitempty"`
	Instances []ResourceInstance `json:"instances"`
}

type ResourceInstance struct {
	SchemaVersion int `json:"schema_version"`
	IndexKey      any `json:"index_key,omitempty"`
}

// Summary is the condensed view shown by the panel and CLI
type Summary struct {
	Version          int        `json:"version"`
	TerraformVersion string     `json:"terraform_version"`
	Serial           int        `json:"serial"`
	Resources        []Resource `json:"resources"`
	Outputs          []string   `json:"outputs"`
}

// Resource is one managed or data resource with its instance count
type Resource struct {
	Address   string `json:"address"`
	Module    string `json:"module,omitempty"`
	Mode      string `json:"mode"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Instances int    `json:"instances"`
}

// Load reads and summarizes a state file
func Load(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	return Parse(data)
}

// Parse summarizes raw state JSON
func Parse(data []byte) (*Summary, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	return Summarize(&st), nil
}

// Summarize condenses a decoded state
func Summarize(st *State) *Summary {
	sum := &Summary{
		Version:          st.Version,
		TerraformVersion: st.TerraformVersion,
		Serial:           st.Serial,
		Resources:        make([]Resource, 0, len(st.Resources)),
		Outputs:          make([]string, 0, len(st.Outputs)),
	}

	for _, r := range st.Resources {
		sum.Resources = append(sum.Resources, Resource{
			Address:   address(r),
			Module:    r.Module,
			Mode:      r.Mode,
			Type:      r.Type,
			Name:      r.Name,
			Instances: len(r.Instances),
		})
	}
	sort.SliceStable(sum.Resources, func(i, j int) bool {
		return sum.Resources[i].Address < sum.Resources[j].Address
	})

	for name := range st.Outputs {
		sum.Outputs = append(sum.Outputs, name)
	}
	sort.Strings(sum.Outputs)
	return sum
}

// InstanceCount totals instances across all resources
func (s *Summary) InstanceCount() int {
	n := 0
	for _, r := range s.Resources {
		n += r.Instances
	}
	return n
}

func address(r ResourceState) string {
	addr := r.Type + "." + r.Name
	if r.Mode == "data" {
		addr = "data." + addr
	}
	if r.Module != "" {
		addr = r.Module + "." + addr
	}
	return addr
}
