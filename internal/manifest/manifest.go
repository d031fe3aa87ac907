// Package manifest loads YAML view manifests, an alternative to SQL state
// files for declaring desired view state.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pgview/pgview/ir"
	"github.com/pgview/pgview/view"
)

// Manifest is the YAML document declaring the desired views of one schema
type Manifest struct {
	// Schema overrides the target schema from the command line when set
	Schema            string                 `yaml:"schema,omitempty"`
	Views             []ViewEntry            `yaml:"views,omitempty"`
	MaterializedViews []MaterializedEntry    `yaml:"materialized_views,omitempty"`
}

// ViewEntry declares a plain view
type ViewEntry struct {
	Name    string `yaml:"name"`
	Query   string `yaml:"query"`
	Comment string `yaml:"comment,omitempty"`
}

// MaterializedEntry declares a materialized view
type MaterializedEntry struct {
	Name     string       `yaml:"name"`
	Query    string       `yaml:"query"`
	Comment  string       `yaml:"comment,omitempty"`
	WithData bool         `yaml:"with_data,omitempty"`
	Indexes  []IndexEntry `yaml:"indexes,omitempty"`
}

// IndexEntry declares an index on a materialized view
type IndexEntry struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
	Method  string   `yaml:"method,omitempty"`
}

// Load reads a manifest file and converts it into a desired-state catalog
func Load(path string, targetSchema string) (*ir.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data, targetSchema)
}

// Parse converts manifest YAML into a desired-state catalog. Declarations go
// through the same validation as programmatic registrations.
func Parse(data []byte, targetSchema string) (*ir.Catalog, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if m.Schema != "" {
		targetSchema = m.Schema
	}

	registry := view.NewRegistry()
	for _, entry := range m.Views {
		err := registry.Register(&view.View{
			Name:    entry.Name,
			Query:   entry.Query,
			Comment: entry.Comment,
		})
		if err != nil {
			return nil, err
		}
	}
	for _, entry := range m.MaterializedViews {
		indexes := make([]view.Index, 0, len(entry.Indexes))
		for _, index := range entry.Indexes {
			indexes = append(indexes, view.Index{
				Name:    index.Name,
				Columns: index.Columns,
				Unique:  index.Unique,
				Method:  index.Method,
			})
		}
		err := registry.Register(&view.MaterializedView{
			Name:     entry.Name,
			Query:    entry.Query,
			Comment:  entry.Comment,
			WithData: entry.WithData,
			Indexes:  indexes,
		})
		if err != nil {
			return nil, err
		}
	}

	return registry.Catalog(targetSchema)
}
