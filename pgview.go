// Package pgview provides a programmatic API for managing PostgreSQL views
// and materialized views declaratively. Views are declared in Go (or SQL
// state files, or YAML manifests) and migrated with plan/apply operations.
package pgview

import (
	"context"
	"fmt"
	"time"

	"github.com/pgview/pgview/cmd/apply"
	planCmd "github.com/pgview/pgview/cmd/plan"
	"github.com/pgview/pgview/cmd/refresh"
	"github.com/pgview/pgview/cmd/util"
	"github.com/pgview/pgview/internal/codegen"
	"github.com/pgview/pgview/internal/diff"
	"github.com/pgview/pgview/internal/plan"
	"github.com/pgview/pgview/ir"
	"github.com/pgview/pgview/view"
)

// DatabaseConfig holds connection details for a PostgreSQL database.
type DatabaseConfig struct {
	Host     string // Database server host
	Port     int    // Database server port
	Database string // Database name
	User     string // Database user
	Password string // Database password (optional)
	Schema   string // Target schema name (default: "public")
}

// PlanOptions configures how migration planning is performed.
type PlanOptions struct {
	DatabaseConfig
	Registry        *view.Registry // Declared views (default: the package-level registry)
	File            string         // Path to desired state SQL file (alternative to Registry)
	Manifest        string         // Path to desired state YAML manifest (alternative to Registry)
	Prune           bool           // Drop database views absent from the desired state
	ApplicationName string         // Application name for database connection (default: "pgview")
}

// ApplyOptions configures how migration application is performed.
type ApplyOptions struct {
	DatabaseConfig
	Registry        *view.Registry // Declared views (default: the package-level registry)
	File            string         // Path to desired state SQL file (alternative to Registry)
	Manifest        string         // Path to desired state YAML manifest (alternative to Registry)
	Plan            *plan.Plan     // Pre-generated plan (alternative to the above)
	Prune           bool           // Drop database views absent from the desired state
	LockTimeout     time.Duration  // Maximum time to wait for database locks
	ApplicationName string         // Application name for database connection (default: "pgview")
}

// RefreshOptions configures materialized view refreshing.
type RefreshOptions struct {
	DatabaseConfig
	Views           []string // Names of materialized views to refresh (empty: all in schema)
	Concurrently    bool     // Refresh without locking out readers (requires unique indexes)
	ApplicationName string   // Application name for database connection (default: "pgview")
}

// DumpOptions configures view dumping.
type DumpOptions struct {
	DatabaseConfig
	NoComments      bool   // Omit COMMENT ON statements
	ApplicationName string // Application name for database connection (default: "pgview")
}

// GenOptions configures Go code generation from existing database views.
type GenOptions struct {
	DatabaseConfig
	Package         string // Package name for the generated file (default: "views")
	ApplicationName string // Application name for database connection (default: "pgview")
}

// Client provides the main interface for pgview operations.
type Client struct {
	defaultDB  DatabaseConfig
	defaultApp string
}

// NewClient creates a new pgview client with default database configuration.
func NewClient(dbConfig DatabaseConfig) *Client {
	if dbConfig.Schema == "" {
		dbConfig.Schema = "public"
	}

	return &Client{
		defaultDB:  dbConfig,
		defaultApp: "pgview",
	}
}

// Plan generates a migration plan by comparing the current database views
// with the desired state. The desired state comes from a registry of
// declared views, a SQL state file, or a YAML manifest; when none is set the
// package-level registry is used.
func (c *Client) Plan(ctx context.Context, opts PlanOptions) (*plan.Plan, error) {
	if opts.Host == "" {
		opts.DatabaseConfig = c.defaultDB
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.ApplicationName == "" {
		opts.ApplicationName = c.defaultApp
	}
	if opts.Registry == nil && opts.File == "" && opts.Manifest == "" {
		opts.Registry = view.Default()
	}

	config := &planCmd.PlanConfig{
		Host:            opts.Host,
		Port:            opts.Port,
		DB:              opts.Database,
		User:            opts.User,
		Password:        opts.Password,
		Schema:          opts.Schema,
		File:            opts.File,
		Manifest:        opts.Manifest,
		Registry:        opts.Registry,
		Prune:           opts.Prune,
		ApplicationName: opts.ApplicationName,
	}

	return planCmd.GeneratePlan(ctx, config)
}

// Apply brings the database views to the desired state. Either provide a
// pre-generated plan (opts.Plan) or a desired state source; with a source a
// plan is generated and applied in one step. Changes run in a single
// transaction and no approval prompt is involved.
func (c *Client) Apply(ctx context.Context, opts ApplyOptions) error {
	if opts.Host == "" {
		opts.DatabaseConfig = c.defaultDB
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.ApplicationName == "" {
		opts.ApplicationName = c.defaultApp
	}

	migrationPlan := opts.Plan
	if migrationPlan == nil {
		generated, err := c.Plan(ctx, PlanOptions{
			DatabaseConfig:  opts.DatabaseConfig,
			Registry:        opts.Registry,
			File:            opts.File,
			Manifest:        opts.Manifest,
			Prune:           opts.Prune,
			ApplicationName: opts.ApplicationName,
		})
		if err != nil {
			return err
		}
		migrationPlan = generated
	}

	if !migrationPlan.HasChanges() {
		return nil
	}

	db, err := util.Connect(c.connectionConfig(opts.DatabaseConfig, opts.ApplicationName))
	if err != nil {
		return err
	}
	defer db.Close()

	return apply.ExecutePlan(ctx, db, migrationPlan, opts.LockTimeout)
}

// Refresh re-populates materialized views in dependency order and returns
// the qualified names of the refreshed views.
func (c *Client) Refresh(ctx context.Context, opts RefreshOptions) ([]string, error) {
	if opts.Host == "" {
		opts.DatabaseConfig = c.defaultDB
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.ApplicationName == "" {
		opts.ApplicationName = c.defaultApp
	}

	db, err := util.Connect(c.connectionConfig(opts.DatabaseConfig, opts.ApplicationName))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return refresh.RefreshViews(ctx, db, opts.Schema, opts.Views, opts.Concurrently)
}

// Dump renders the views of the target schema as a SQL state file.
func (c *Client) Dump(ctx context.Context, opts DumpOptions) (string, error) {
	if opts.Host == "" {
		opts.DatabaseConfig = c.defaultDB
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.ApplicationName == "" {
		opts.ApplicationName = c.defaultApp
	}

	catalog, err := c.inspect(ctx, opts.DatabaseConfig, opts.ApplicationName)
	if err != nil {
		return "", err
	}

	return diff.GenerateCatalogSQL(catalog, !opts.NoComments), nil
}

// Gen generates Go source that declares the views of the target schema.
func (c *Client) Gen(ctx context.Context, opts GenOptions) ([]byte, error) {
	if opts.Host == "" {
		opts.DatabaseConfig = c.defaultDB
	}
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	if opts.ApplicationName == "" {
		opts.ApplicationName = c.defaultApp
	}

	catalog, err := c.inspect(ctx, opts.DatabaseConfig, opts.ApplicationName)
	if err != nil {
		return nil, err
	}

	return codegen.Generate(catalog, opts.Package)
}

func (c *Client) inspect(ctx context.Context, dbConfig DatabaseConfig, appName string) (*ir.Catalog, error) {
	db, err := util.Connect(c.connectionConfig(dbConfig, appName))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	catalog, err := ir.NewInspector(db).Build(ctx, dbConfig.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema %s: %w", dbConfig.Schema, err)
	}
	return catalog, nil
}

func (c *Client) connectionConfig(dbConfig DatabaseConfig, appName string) *util.ConnectionConfig {
	return &util.ConnectionConfig{
		Host:            dbConfig.Host,
		Port:            dbConfig.Port,
		Database:        dbConfig.Database,
		User:            dbConfig.User,
		Password:        dbConfig.Password,
		ApplicationName: appName,
	}
}
