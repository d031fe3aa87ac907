package view

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgview/pgview/ir"
)

// Refresh re-populates a materialized view
func Refresh(ctx context.Context, db *sql.DB, mv *MaterializedView) error {
	return refresh(ctx, db, mv, false)
}

// RefreshConcurrently re-populates a materialized view without locking out
// readers. PostgreSQL requires a unique index on the view for this; the
// declaration is checked up front so the error names the view instead of
// surfacing as a server error mid-refresh.
func RefreshConcurrently(ctx context.Context, db *sql.DB, mv *MaterializedView) error {
	return refresh(ctx, db, mv, true)
}

// RefreshAll refreshes every registered materialized view in registration
// order, stopping at the first failure
func (r *Registry) RefreshAll(ctx context.Context, db *sql.DB) error {
	for _, mv := range r.MaterializedViews() {
		if err := Refresh(ctx, db, mv); err != nil {
			return err
		}
	}
	return nil
}

func refresh(ctx context.Context, db *sql.DB, mv *MaterializedView, concurrently bool) error {
	if mv == nil {
		return fmt.Errorf("cannot refresh a nil materialized view")
	}
	if err := mv.Validate(); err != nil {
		return err
	}
	if concurrently && !hasUniqueIndex(mv) {
		return fmt.Errorf("materialized view %q has no unique index, which REFRESH CONCURRENTLY requires", mv.Name)
	}

	schema := mv.Schema
	if schema == "" {
		schema = "public"
	}

	stmt := "REFRESH MATERIALIZED VIEW "
	if concurrently {
		stmt += "CONCURRENTLY "
	}
	stmt += ir.QuoteIdentifier(schema) + "." + ir.QuoteIdentifier(mv.Name)

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to refresh materialized view %s: %w", mv.Name, err)
	}
	return nil
}

func hasUniqueIndex(mv *MaterializedView) bool {
	for _, index := range mv.Indexes {
		if index.Unique {
			return true
		}
	}
	return false
}
