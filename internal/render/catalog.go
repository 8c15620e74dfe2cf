// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Module catalog and form value types

package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Flag names an optional infrastructure module
type Flag string

const (
	ObjectStorage         Flag = "object-storage"
	DataWarehouse         Flag = "data-warehouse"
	TransformationProject Flag = "transformation-project"
	WorkflowOrchestration Flag = "workflow-orchestration"
	VersionControl        Flag = "version-control"
)

// Variable names referenced by module blocks
const (
	VarBucketName     = "s3_bucket_name"
	VarSnowflakeAcct  = "snowflake_account"
	VarDBTProjectName = "dbt_project_name"
)

// Regions and Environments are the choices offered by the form
var (
	Regions      = []string{"us-east-1", "us-west-2", "eu-west-1"}
	Environments = []string{"dev", "staging", "prod"}
)

// Arg is one attribute of a module block. Exactly one of Var or Local is set.
type Arg struct {
	Name  string
	Var   string
	Local string
}

func (a Arg) traversal() hcl.Traversal {
	if a.Var != "" {
		return hcl.Traversal{hcl.TraverseRoot{Name: "var"}, hcl.TraverseAttr{Name: a.Var}}
	}
	return hcl.Traversal{hcl.TraverseRoot{Name: "local"}, hcl.TraverseAttr{Name: a.Local}}
}

// Module describes how an enabled flag turns into a module block
type Module struct {
	Flag      Flag   `json:"flag"`
	Label     string `json:"label"`
	Block     string `json:"block"`
	SourceDir string `json:"source_dir"`
	Args      []Arg  `json:"-"`
}

// Variables returns the input variables the module block references
func (m Module) Variables() []string {
	var names []string
	for _, a := range m.Args {
		if a.Var != "" {
			names = append(names, a.Var)
		}
	}
	return names
}

// catalog order is render order
var catalog = []Module{
	{
		Flag:      ObjectStorage,
		Label:     "AWS S3 Buckets",
		Block:     "s3_datalake",
		SourceDir: "s3",
		Args: []Arg{
			{Name: "bucket_name", Var: VarBucketName},
			{Name: "environment", Local: "environment"},
		},
	},
	{
		Flag:      DataWarehouse,
		Label:     "Snowflake Data Platform",
		Block:     "snowflake",
		SourceDir: "snowflake",
		Args:      []Arg{{Name: "account_name", Var: VarSnowflakeAcct}},
	},
	{
		Flag:      TransformationProject,
		Label:     "dbt Cloud Project",
		Block:     "dbt",
		SourceDir: "dbt_cloud",
		Args:      []Arg{{Name: "project_name", Var: VarDBTProjectName}},
	},
	{
		Flag:      WorkflowOrchestration,
		Label:     "AWS MWAA (Airflow)",
		Block:     "mwaa",
		SourceDir: "mwaa",
	},
	{
		Flag:      VersionControl,
		Label:     "GitHub Repository",
		Block:     "github",
		SourceDir: "github",
	},
}

// Catalog returns the known modules in render order
func Catalog() []Module {
	return slices.Clone(catalog)
}

// Lookup finds a module by flag
func Lookup(f Flag) (Module, bool) {
	for _, m := range catalog {
		if m.Flag == f {
			return m, true
		}
	}
	return Module{}, false
}

// Flags is the set of module toggles
type Flags map[Flag]bool

// ParseFlags builds an enabled set from flag names, rejecting unknown ones
func ParseFlags(names []string) (Flags, error) {
	flags := make(Flags, len(names))
	for _, name := range names {
		f := Flag(strings.TrimSpace(name))
		if f == "" {
			continue
		}
		if _, ok := Lookup(f); !ok {
			return nil, fmt.Errorf("unknown module %q", name)
		}
		flags[f] = true
	}
	return flags, nil
}

// Enabled returns the enabled flags in catalog order
func (f Flags) Enabled() []Flag {
	var out []Flag
	for _, m := range catalog {
		if f[m.Flag] {
			out = append(out, m.Flag)
		}
	}
	return out
}

// Variable is one collected name/value pair
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variables keeps insertion order
type Variables []Variable

// Set replaces an existing value in place or appends a new pair
func (v *Variables) Set(name, value string) {
	for i := range *v {
		if (*v)[i].Name == name {
			(*v)[i].Value = value
			return
		}
	}
	*v = append(*v, Variable{Name: name, Value: value})
}

// Get returns the value for name
func (v Variables) Get(name string) (string, bool) {
	for _, pair := range v {
		if pair.Name == name {
			return pair.Value, true
		}
	}
	return "", false
}

// Inputs are the free-form per-module fields of the form
type Inputs struct {
	BucketPrefix     string `json:"bucket_prefix" yaml:"bucket_prefix"`
	SnowflakeAccount string `json:"snowflake_account" yaml:"snowflake_account"`
	DBTProjectName   string `json:"dbt_project_name" yaml:"dbt_project_name"`
}

// DefaultInputs returns the values the form pre-fills for a workspace
func DefaultInputs(workspaceID string) Inputs {
	return Inputs{
		BucketPrefix:   workspaceID + "-data-lake",
		DBTProjectName: workspaceID + "_analytics",
	}
}

// Collect derives module variables from the form, in form order.
// Only enabled modules contribute.
func Collect(workspaceID, environment string, flags Flags, in Inputs) Variables {
	defaults := DefaultInputs(workspaceID)
	var vars Variables

	if flags[ObjectStorage] {
		prefix := in.BucketPrefix
		if prefix == "" {
			prefix = defaults.BucketPrefix
		}
		vars.Set(VarBucketName, prefix+"-"+environment)
	}
	if flags[DataWarehouse] {
		vars.Set(VarSnowflakeAcct, in.SnowflakeAccount)
	}
	if flags[TransformationProject] {
		name := in.DBTProjectName
		if name == "" {
			name = defaults.DBTProjectName
		}
		vars.Set(VarDBTProjectName, name)
	}

	return vars
}

func hclTraversal(root string) hcl.Traversal {
	return hcl.Traversal{hcl.TraverseRoot{Name: root}}
}
