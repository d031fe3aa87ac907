// Package refresh implements the refresh command. It re-populates
// materialized views in dependency order.
package refresh

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgview/pgview/cmd/util"
	"github.com/pgview/pgview/internal/diff"
	"github.com/pgview/pgview/ir"
)

var (
	refreshHost            string
	refreshPort            int
	refreshDB              string
	refreshUser            string
	refreshPassword        string
	refreshSchema          string
	refreshViews           []string
	refreshAll             bool
	refreshConcurrently    bool
	refreshApplicationName string
)

var RefreshCmd = &cobra.Command{
	Use:          "refresh",
	Short:        "Refresh materialized views",
	Long:         "Refresh one or more materialized views in a target schema. Views are refreshed in dependency order so that a view selecting from another materialized view sees its refreshed data. With --concurrently, every selected view must have a unique index.",
	RunE:         runRefresh,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithEnvVars(&refreshDB, &refreshUser, &refreshHost, &refreshPort, &refreshApplicationName),
}

func init() {
	RefreshCmd.Flags().StringVar(&refreshHost, "host", "localhost", "Database server host (env: PGHOST)")
	RefreshCmd.Flags().IntVar(&refreshPort, "port", 5432, "Database server port (env: PGPORT)")
	RefreshCmd.Flags().StringVar(&refreshDB, "db", "", "Database name (required) (env: PGDATABASE)")
	RefreshCmd.Flags().StringVar(&refreshUser, "user", "", "Database user name (required) (env: PGUSER)")
	RefreshCmd.Flags().StringVar(&refreshPassword, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	RefreshCmd.Flags().StringVar(&refreshSchema, "schema", "public", "Schema name")

	RefreshCmd.Flags().StringArrayVar(&refreshViews, "view", nil, "Materialized view to refresh (repeatable)")
	RefreshCmd.Flags().BoolVar(&refreshAll, "all", false, "Refresh every materialized view in the schema")
	RefreshCmd.Flags().BoolVar(&refreshConcurrently, "concurrently", false, "Refresh without locking out readers (requires a unique index)")
	RefreshCmd.Flags().StringVar(&refreshApplicationName, "application-name", "pgview", "Application name for database connection (visible in pg_stat_activity)")

	RefreshCmd.MarkFlagsOneRequired("view", "all")
	RefreshCmd.MarkFlagsMutuallyExclusive("view", "all")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	finalPassword := refreshPassword
	if finalPassword == "" {
		if envPassword := os.Getenv("PGPASSWORD"); envPassword != "" {
			finalPassword = envPassword
		}
	}

	conn, err := util.Connect(&util.ConnectionConfig{
		Host:            refreshHost,
		Port:            refreshPort,
		Database:        refreshDB,
		User:            refreshUser,
		Password:        finalPassword,
		ApplicationName: refreshApplicationName,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	refreshed, err := RefreshViews(ctx, conn, refreshSchema, refreshViews, refreshConcurrently)
	if err != nil {
		return err
	}

	for _, name := range refreshed {
		fmt.Printf("Refreshed %s\n", name)
	}
	if len(refreshed) == 0 {
		fmt.Println("No materialized views to refresh.")
	}
	return nil
}

// RefreshViews refreshes the named materialized views in dependency order.
// An empty names slice selects every materialized view in the schema. The
// returned slice lists the qualified names in refresh order.
func RefreshViews(ctx context.Context, db *sql.DB, schema string, names []string, concurrently bool) ([]string, error) {
	catalog, err := ir.NewInspector(db).Build(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema %s: %w", schema, err)
	}

	selected, err := selectMaterializedViews(catalog, names)
	if err != nil {
		return nil, err
	}

	if concurrently {
		for _, view := range selected {
			if !view.HasUniqueIndex() {
				return nil, fmt.Errorf("materialized view %q has no unique index, which REFRESH CONCURRENTLY requires", view.Name)
			}
		}
	}

	var refreshed []string
	for _, view := range diff.SortByDependencies(selected) {
		stmt := refreshStatement(view, concurrently)
		description := fmt.Sprintf("refresh materialized view %s", view.QualifiedName())
		if _, err := util.ExecContextWithLogging(ctx, db, stmt, description); err != nil {
			return refreshed, fmt.Errorf("failed to refresh materialized view %s: %w", view.QualifiedName(), err)
		}
		refreshed = append(refreshed, view.QualifiedName())
	}
	return refreshed, nil
}

// selectMaterializedViews resolves the requested names against the catalog.
// An empty request selects all materialized views.
func selectMaterializedViews(catalog *ir.Catalog, names []string) ([]*ir.View, error) {
	if len(names) == 0 {
		var selected []*ir.View
		for _, view := range catalog.SortedViews() {
			if view.Materialized {
				selected = append(selected, view)
			}
		}
		return selected, nil
	}

	var selected []*ir.View
	for _, name := range names {
		view, ok := catalog.GetView(name)
		if !ok {
			return nil, fmt.Errorf("materialized view %q does not exist in schema %s", name, catalog.Schema)
		}
		if !view.Materialized {
			return nil, fmt.Errorf("%q is a plain view and cannot be refreshed", name)
		}
		selected = append(selected, view)
	}
	return selected, nil
}

func refreshStatement(view *ir.View, concurrently bool) string {
	stmt := "REFRESH MATERIALIZED VIEW "
	if concurrently {
		stmt += "CONCURRENTLY "
	}
	return stmt + ir.QuoteIdentifier(view.Schema) + "." + ir.QuoteIdentifier(view.Name) + ";"
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	refreshHost = "localhost"
	refreshPort = 5432
	refreshDB = ""
	refreshUser = ""
	refreshPassword = ""
	refreshSchema = "public"
	refreshViews = nil
	refreshAll = false
	refreshConcurrently = false
	refreshApplicationName = "pgview"
}
