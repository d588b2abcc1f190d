// Package schema loads table definitions from YAML files, so deployments can
// share one table layout between infrastructure templates and runtime
// clients.
package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/asayed18/tynamo/table"
)

// File is the root structure of a table schema YAML file.
type File struct {
	Tables []Table `yaml:"tables"`
}

// Table describes a single DynamoDB table.
type Table struct {
	Name          string `yaml:"name"`
	PartitionKey  Key    `yaml:"partitionKey"`
	SortKey       *Key   `yaml:"sortKey,omitempty"`
	TimeToLiveKey string `yaml:"timeToLiveKey,omitempty"`
}

// Key is a key attribute definition.
type Key struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "S", "N", or "B"
}

// Load reads a schema file and converts it to runtime table definitions.
func Load(path string) ([]table.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return defs, nil
}

// LoadGlob loads every schema file matching the pattern and merges their
// tables. A table name appearing in two files is an error.
func LoadGlob(pattern string) ([]table.Definition, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no schema files match %s", pattern)
	}
	var defs []table.Definition
	seen := make(map[string]string)
	for _, path := range matches {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		for _, def := range loaded {
			if prev, ok := seen[def.Name]; ok {
				return nil, fmt.Errorf("table %q defined in both %s and %s", def.Name, prev, path)
			}
			seen[def.Name] = path
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// Parse converts raw YAML into table definitions.
func Parse(data []byte) ([]table.Definition, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse schema yaml: %w", err)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("schema has no tables")
	}
	defs := make([]table.Definition, 0, len(f.Tables))
	for _, t := range f.Tables {
		def, err := t.Definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Definition converts the YAML table into its runtime form.
func (t Table) Definition() (table.Definition, error) {
	if t.Name == "" {
		return table.Definition{}, fmt.Errorf("table name is required")
	}
	pk, err := t.PartitionKey.def()
	if err != nil {
		return table.Definition{}, fmt.Errorf("table %q partition key: %w", t.Name, err)
	}
	def := table.Definition{
		Name:          t.Name,
		Keys:          table.PrimaryKeyDefinition{PartitionKey: pk},
		TimeToLiveKey: t.TimeToLiveKey,
	}
	if t.SortKey != nil {
		sk, err := t.SortKey.def()
		if err != nil {
			return table.Definition{}, fmt.Errorf("table %q sort key: %w", t.Name, err)
		}
		def.Keys.SortKey = sk
	}
	return def, nil
}

func (k Key) def() (table.KeyDef, error) {
	if k.Name == "" {
		return table.KeyDef{}, fmt.Errorf("key name is required")
	}
	switch kind := table.KeyKind(k.Kind); kind {
	case table.KeyKindS, table.KeyKindN, table.KeyKindB:
		return table.KeyDef{Name: k.Name, Kind: kind}, nil
	}
	return table.KeyDef{}, fmt.Errorf("key %q has unknown kind %q, want S, N or B", k.Name, k.Kind)
}
