// Package ir defines the intermediate representation of a set of database
// views. A Catalog can be built from the live database (Inspector), from SQL
// state files (ParseSQL), or from declared definitions, and is the input to
// diffing and fingerprinting.
package ir

import (
	"sort"
	"strings"
	"sync"
)

// Catalog represents the managed views of one target schema. Declarations may
// name another schema explicitly, so views are keyed by qualified name.
type Catalog struct {
	Schema string           `json:"schema"`
	Views  map[string]*View `json:"views"` // schema.view_name -> View
	mu     sync.RWMutex
}

// View represents a database view or materialized view
type View struct {
	Schema       string            `json:"schema"`
	Name         string            `json:"name"`
	Definition   string            `json:"definition"`
	Comment      string            `json:"comment,omitempty"`
	Materialized bool              `json:"materialized,omitempty"`
	WithData     bool              `json:"with_data,omitempty"`          // materialized views only
	Indexes      map[string]*Index `json:"indexes,omitempty"`            // materialized views only
	Dependencies []string          `json:"dependencies,omitempty"`       // qualified names of referenced relations
}

// Index represents an index on a materialized view
type Index struct {
	Name    string   `json:"name"`
	Unique  bool     `json:"unique,omitempty"`
	Method  string   `json:"method,omitempty"` // defaults to btree
	Columns []string `json:"columns"`
}

// NewCatalog creates an empty catalog for the given target schema
func NewCatalog(schema string) *Catalog {
	return &Catalog{
		Schema: schema,
		Views:  make(map[string]*View),
	}
}

// GetView retrieves a view from the catalog with thread safety. A bare name
// resolves against the target schema; a qualified name is looked up as given.
func (c *Catalog) GetView(name string) (*View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !strings.Contains(name, ".") {
		name = c.Schema + "." + name
	}
	view, ok := c.Views[name]
	return view, ok
}

// SetView stores a view under its qualified name with thread safety. An empty
// view schema defaults to the target schema.
func (c *Catalog) SetView(view *View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if view.Schema == "" {
		view.Schema = c.Schema
	}
	c.Views[view.QualifiedName()] = view
}

// Schemas returns the distinct schemas the catalog's views live in, in
// lexical order. The target schema is always included.
func (c *Catalog) Schemas() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{c.Schema: true}
	for _, view := range c.Views {
		seen[view.Schema] = true
	}
	schemas := make([]string, 0, len(seen))
	for schema := range seen {
		schemas = append(schemas, schema)
	}
	sort.Strings(schemas)
	return schemas
}

// SortedNames returns the qualified view names in lexical order
func (c *Catalog) SortedNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.Views))
	for name := range c.Views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedViews returns the views in lexical name order
func (c *Catalog) SortedViews() []*View {
	names := c.SortedNames()
	views := make([]*View, 0, len(names))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, name := range names {
		views = append(views, c.Views[name])
	}
	return views
}

// QualifiedName returns the schema-qualified name of the view
func (v *View) QualifiedName() string {
	return v.Schema + "." + v.Name
}

// ObjectType returns the SQL object type keyword for the view
func (v *View) ObjectType() string {
	if v.Materialized {
		return "MATERIALIZED VIEW"
	}
	return "VIEW"
}

// SortedIndexes returns the view's indexes in lexical name order
func (v *View) SortedIndexes() []*Index {
	names := make([]string, 0, len(v.Indexes))
	for name := range v.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	indexes := make([]*Index, 0, len(names))
	for _, name := range names {
		indexes = append(indexes, v.Indexes[name])
	}
	return indexes
}

// HasUniqueIndex reports whether the view has at least one unique index.
// REFRESH MATERIALIZED VIEW CONCURRENTLY requires one.
func (v *View) HasUniqueIndex() bool {
	for _, idx := range v.Indexes {
		if idx.Unique {
			return true
		}
	}
	return false
}
