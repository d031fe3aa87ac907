// Package view lets applications declare PostgreSQL views and materialized
// views as first-class objects. Declarations are registered in a Registry and
// picked up by the plan/apply machinery, so views migrate alongside the rest
// of the schema instead of living in hand-maintained SQL scripts.
package view

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pgview/pgview/ir"
)

// Definition is implemented by View and MaterializedView
type Definition interface {
	// Validate checks the declaration for structural problems
	Validate() error
	// IR converts the declaration to its intermediate representation,
	// resolving an empty Schema against defaultSchema
	IR(defaultSchema string) *ir.View
}

// View declares a plain SQL view
type View struct {
	Schema  string // target schema; empty means the registry's default
	Name    string
	Query   string // the SELECT the view is defined as
	Comment string
}

// Index declares an index on a materialized view. A unique index is required
// for REFRESH MATERIALIZED VIEW CONCURRENTLY.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Method  string // defaults to btree
}

// MaterializedView declares a materialized view
type MaterializedView struct {
	Schema   string
	Name     string
	Query    string
	Comment  string
	WithData bool // populate at creation time (WITH DATA)
	Indexes  []Index
}

// Validate checks the view declaration
func (v *View) Validate() error {
	return validateDeclaration("view", v.Name, v.Query)
}

// IR converts the view declaration to its intermediate representation
func (v *View) IR(defaultSchema string) *ir.View {
	schema := v.Schema
	if schema == "" {
		schema = defaultSchema
	}
	return &ir.View{
		Schema:     schema,
		Name:       v.Name,
		Definition: v.Query,
		Comment:    v.Comment,
	}
}

// Validate checks the materialized view declaration, including its indexes
func (m *MaterializedView) Validate() error {
	if err := validateDeclaration("materialized view", m.Name, m.Query); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, index := range m.Indexes {
		if index.Name == "" {
			return fmt.Errorf("materialized view %q: index must be named", m.Name)
		}
		if len(index.Columns) == 0 {
			return fmt.Errorf("materialized view %q: index %q has no columns", m.Name, index.Name)
		}
		if seen[index.Name] {
			return fmt.Errorf("materialized view %q: duplicate index %q", m.Name, index.Name)
		}
		seen[index.Name] = true
	}
	return nil
}

// IR converts the materialized view declaration to its intermediate
// representation
func (m *MaterializedView) IR(defaultSchema string) *ir.View {
	schema := m.Schema
	if schema == "" {
		schema = defaultSchema
	}
	view := &ir.View{
		Schema:       schema,
		Name:         m.Name,
		Definition:   m.Query,
		Comment:      m.Comment,
		Materialized: true,
		WithData:     m.WithData,
		Indexes:      make(map[string]*ir.Index),
	}
	for _, index := range m.Indexes {
		view.Indexes[index.Name] = &ir.Index{
			Name:    index.Name,
			Unique:  index.Unique,
			Method:  index.Method,
			Columns: append([]string(nil), index.Columns...),
		}
	}
	return view
}

// validateDeclaration checks that the declaration has a name and that its
// query parses as exactly one SELECT statement
func validateDeclaration(kind, name, query string) error {
	if name == "" {
		return fmt.Errorf("%s declaration is missing a name", kind)
	}
	if query == "" {
		return fmt.Errorf("%s %q is missing a query", kind, name)
	}

	result, err := pg_query.Parse(query)
	if err != nil {
		return fmt.Errorf("%s %q: query does not parse: %w", kind, name, err)
	}
	if len(result.Stmts) != 1 {
		return fmt.Errorf("%s %q: query must be a single statement", kind, name)
	}
	if result.Stmts[0].Stmt.GetSelectStmt() == nil {
		return fmt.Errorf("%s %q: query must be a SELECT statement", kind, name)
	}
	return nil
}
