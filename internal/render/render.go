// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Terraform configuration rendering

package render

import (
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Generated file names inside a workspace
const (
	DeclarationsFile   = "main.tf"
	VariableSchemaFile = "variables.tf"
	VariableValuesFile = "terraform.tfvars"
)

// FileNames lists the generated files in write order
var FileNames = []string{DeclarationsFile, VariableSchemaFile, VariableValuesFile}

const header = "# Auto-generated by tfpanel\n"

// Globals are the settings every configuration carries
type Globals struct {
	Region      string
	Environment string
	ModulesDir  string // absolute directory holding the module sources
}

// Rendered is the text of the three generated files
type Rendered struct {
	Declarations   string
	VariableSchema string
	VariableValues string
}

// File is a generated file and its content
type File struct {
	Name    string
	Content string
}

// Files returns the rendered documents paired with their file names
func (r Rendered) Files() []File {
	return []File{
		{Name: DeclarationsFile, Content: r.Declarations},
		{Name: VariableSchemaFile, Content: r.VariableSchema},
		{Name: VariableValuesFile, Content: r.VariableValues},
	}
}

// Render turns module selections and variables into configuration text.
// It has no side effects; identical input yields identical output.
func Render(g Globals, flags Flags, vars Variables) Rendered {
	var enabled []Module
	for _, m := range catalog {
		if flags[m.Flag] {
			enabled = append(enabled, m)
		}
	}

	return Rendered{
		Declarations:   string(declarations(g, enabled)),
		VariableSchema: string(variableSchema(enabled)),
		VariableValues: string(variableValues(enabled, vars)),
	}
}

func declarations(g Globals, enabled []Module) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.AppendUnstructuredTokens(hclwrite.Tokens{
		{Type: hclsyntax.TokenComment, Bytes: []byte(header)},
	})

	provider := body.AppendNewBlock("provider", []string{"aws"})
	provider.Body().SetAttributeValue("region", cty.StringVal(g.Region))
	body.AppendNewline()

	locals := body.AppendNewBlock("locals", nil)
	locals.Body().SetAttributeValue("environment", cty.StringVal(g.Environment))

	for _, m := range enabled {
		body.AppendNewline()
		block := body.AppendNewBlock("module", []string{m.Block})
		mb := block.Body()
		mb.SetAttributeValue("source", cty.StringVal(moduleSource(g.ModulesDir, m)))
		for _, arg := range m.Args {
			mb.SetAttributeTraversal(arg.Name, arg.traversal())
		}
	}

	return hclwrite.Format(f.Bytes())
}

func variableSchema(enabled []Module) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	seen := make(map[string]bool)
	for _, name := range referenced(enabled) {
		if seen[name] {
			continue
		}
		seen[name] = true
		if len(seen) > 1 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("variable", []string{name})
		block.Body().SetAttributeTraversal("type", hclTraversal("string"))
	}

	return hclwrite.Format(f.Bytes())
}

func variableValues(enabled []Module, vars Variables) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	wanted := make(map[string]bool)
	for _, name := range referenced(enabled) {
		wanted[name] = true
	}
	for _, v := range vars {
		if wanted[v.Name] {
			body.SetAttributeValue(v.Name, cty.StringVal(v.Value))
		}
	}

	return hclwrite.Format(f.Bytes())
}

// referenced lists variable names used by enabled modules, catalog order
func referenced(enabled []Module) []string {
	var names []string
	for _, m := range enabled {
		names = append(names, m.Variables()...)
	}
	return names
}

func moduleSource(modulesDir string, m Module) string {
	return filepath.ToSlash(filepath.Join(modulesDir, m.SourceDir))
}
