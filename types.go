package pgview

import (
	"github.com/pgview/pgview/internal/plan"
	"github.com/pgview/pgview/ir"
	"github.com/pgview/pgview/view"
)

// Re-export important types for external consumption

// Plan represents a migration plan that can be applied to a database.
type Plan = plan.Plan

// Registry holds declared view definitions.
type Registry = view.Registry

// View declares a plain database view.
type View = view.View

// MaterializedView declares a materialized view.
type MaterializedView = view.MaterializedView

// Index declares an index on a materialized view.
type Index = view.Index

// Catalog represents the views of one schema, either declared or inspected.
type Catalog = ir.Catalog
