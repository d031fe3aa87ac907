package pgview

import (
	"context"

	"github.com/pgview/pgview/internal/plan"
	"github.com/pgview/pgview/view"
)

// Register adds view definitions to the package-level registry. It is the
// usual way to declare views at package init time.
func Register(defs ...view.Definition) error {
	return view.Register(defs...)
}

// MustRegister is like Register but panics on error.
func MustRegister(defs ...view.Definition) {
	view.MustRegister(defs...)
}

// GeneratePlan is a convenience function to plan a migration from the
// package-level registry.
func GeneratePlan(ctx context.Context, dbConfig DatabaseConfig) (*plan.Plan, error) {
	client := NewClient(dbConfig)
	return client.Plan(ctx, PlanOptions{})
}

// ApplyRegistered is a convenience function to migrate the database to the
// views declared in the package-level registry.
func ApplyRegistered(ctx context.Context, dbConfig DatabaseConfig) error {
	client := NewClient(dbConfig)
	return client.Apply(ctx, ApplyOptions{})
}

// ApplyPlan is a convenience function to apply a pre-generated migration plan.
func ApplyPlan(ctx context.Context, dbConfig DatabaseConfig, migrationPlan *plan.Plan) error {
	client := NewClient(dbConfig)
	return client.Apply(ctx, ApplyOptions{Plan: migrationPlan})
}

// RefreshAll is a convenience function to refresh every materialized view in
// the target schema.
func RefreshAll(ctx context.Context, dbConfig DatabaseConfig) ([]string, error) {
	client := NewClient(dbConfig)
	return client.Refresh(ctx, RefreshOptions{})
}

// DumpViews is a convenience function to dump the views of the target schema
// as a SQL state file.
func DumpViews(ctx context.Context, dbConfig DatabaseConfig) (string, error) {
	client := NewClient(dbConfig)
	return client.Dump(ctx, DumpOptions{})
}
