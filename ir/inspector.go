package ir

import (
	"context"
	"database/sql"
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"golang.org/x/sync/errgroup"
)

// Inspector builds a catalog of the views that currently exist in a database
type Inspector struct {
	db *sql.DB
}

// NewInspector creates an inspector on top of an open database connection
func NewInspector(db *sql.DB) *Inspector {
	return &Inspector{db: db}
}

const viewsQuery = `
SELECT
    n.nspname AS schema_name,
    c.relname AS view_name,
    c.relkind = 'm' AS materialized,
    pg_catalog.pg_get_viewdef(c.oid, true) AS definition,
    pg_catalog.obj_description(c.oid, 'pg_class') AS comment,
    c.relispopulated AS with_data
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = ANY($1)
  AND c.relkind IN ('v', 'm')
ORDER BY n.nspname, c.relname`

const matviewIndexesQuery = `
SELECT
    n.nspname AS schema_name,
    t.relname AS view_name,
    ci.relname AS index_name,
    pg_catalog.pg_get_indexdef(ci.oid) AS definition
FROM pg_catalog.pg_index ix
JOIN pg_catalog.pg_class ci ON ci.oid = ix.indexrelid
JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
WHERE n.nspname = ANY($1)
  AND t.relkind = 'm'
ORDER BY n.nspname, ci.relname`

type viewRow struct {
	schema       string
	name         string
	materialized bool
	definition   sql.NullString
	comment      sql.NullString
	withData     bool
}

type indexRow struct {
	schema     string
	viewName   string
	indexName  string
	definition string
}

// Build inspects the target schema, plus any additional schemas named by
// declarations, and returns the combined view catalog.
func (i *Inspector) Build(ctx context.Context, targetSchema string, extraSchemas ...string) (*Catalog, error) {
	seen := make(map[string]bool)
	var schemas []string
	for _, schema := range append([]string{targetSchema}, extraSchemas...) {
		if schema == "" || seen[schema] {
			continue
		}
		seen[schema] = true
		schemas = append(schemas, schema)
	}

	var (
		views   []viewRow
		indexes []indexRow
	)

	// The two catalog queries are independent; run them concurrently.
	var eg errgroup.Group
	eg.Go(func() error {
		var err error
		views, err = i.fetchViews(ctx, schemas)
		return err
	})
	eg.Go(func() error {
		var err error
		indexes, err = i.fetchMatviewIndexes(ctx, schemas)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	catalog := NewCatalog(targetSchema)

	for _, row := range views {
		view := &View{
			Schema:       row.schema,
			Name:         row.name,
			Materialized: row.materialized,
		}
		if row.definition.Valid {
			view.Definition = row.definition.String
		}
		if row.comment.Valid {
			view.Comment = row.comment.String
		}
		if row.materialized {
			view.WithData = row.withData
			view.Indexes = make(map[string]*Index)
		}
		catalog.SetView(view)
	}

	for _, row := range indexes {
		view, ok := catalog.GetView(row.schema + "." + row.viewName)
		if !ok {
			continue
		}
		index, err := parseIndexDefinition(row.definition)
		if err != nil {
			// Expression indexes cannot be declared in desired state either;
			// leaving them out keeps both sides of the diff consistent.
			continue
		}
		view.Indexes[index.Name] = index
	}

	NormalizeCatalog(catalog)
	return catalog, nil
}

func (i *Inspector) fetchViews(ctx context.Context, schemas []string) ([]viewRow, error) {
	rows, err := i.db.QueryContext(ctx, viewsQuery, schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	var result []viewRow
	for rows.Next() {
		var row viewRow
		if err := rows.Scan(&row.schema, &row.name, &row.materialized, &row.definition, &row.comment, &row.withData); err != nil {
			return nil, fmt.Errorf("failed to scan view row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (i *Inspector) fetchMatviewIndexes(ctx context.Context, schemas []string) ([]indexRow, error) {
	rows, err := i.db.QueryContext(ctx, matviewIndexesQuery, schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to query materialized view indexes: %w", err)
	}
	defer rows.Close()

	var result []indexRow
	for rows.Next() {
		var row indexRow
		if err := rows.Scan(&row.schema, &row.viewName, &row.indexName, &row.definition); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// parseIndexDefinition converts pg_get_indexdef() output into the IR form
func parseIndexDefinition(definition string) (*Index, error) {
	result, err := pg_query.Parse(definition)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index definition: %w", err)
	}
	if len(result.Stmts) != 1 {
		return nil, fmt.Errorf("unexpected index definition: %s", definition)
	}
	stmt := result.Stmts[0].Stmt.GetIndexStmt()
	if stmt == nil {
		return nil, fmt.Errorf("unexpected index definition: %s", definition)
	}
	return indexFromStmt(stmt)
}
