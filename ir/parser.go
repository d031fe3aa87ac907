package ir

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseSQL builds a catalog from the SQL text of a state file. State files
// may contain only view-level statements: CREATE VIEW, CREATE MATERIALIZED
// VIEW, CREATE INDEX on a materialized view, and COMMENT ON (MATERIALIZED)
// VIEW. Anything else is rejected so that table DDL cannot sneak into the
// managed state.
func ParseSQL(sqlText string, targetSchema string) (*Catalog, error) {
	result, err := pg_query.Parse(sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	catalog := NewCatalog(targetSchema)

	for _, raw := range result.Stmts {
		stmt := raw.Stmt
		if stmt == nil {
			continue
		}

		switch {
		case stmt.GetViewStmt() != nil:
			if err := parseViewStmt(catalog, result.Version, stmt.GetViewStmt()); err != nil {
				return nil, err
			}
		case stmt.GetCreateTableAsStmt() != nil:
			if err := parseMaterializedViewStmt(catalog, result.Version, stmt.GetCreateTableAsStmt()); err != nil {
				return nil, err
			}
		case stmt.GetIndexStmt() != nil:
			if err := parseIndexStmt(catalog, stmt.GetIndexStmt()); err != nil {
				return nil, err
			}
		case stmt.GetCommentStmt() != nil:
			if err := parseCommentStmt(catalog, stmt.GetCommentStmt()); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported statement in state file: %s", statementText(result.Version, raw))
		}
	}

	NormalizeCatalog(catalog)
	return catalog, nil
}

func parseViewStmt(catalog *Catalog, version int32, stmt *pg_query.ViewStmt) error {
	if stmt.View == nil {
		return fmt.Errorf("CREATE VIEW statement has no target relation")
	}

	name := stmt.View.Relname
	schema := stmt.View.Schemaname
	if schema == "" {
		schema = catalog.Schema
	}

	if _, exists := catalog.GetView(schema + "." + name); exists {
		return fmt.Errorf("duplicate view definition: %s.%s", schema, name)
	}

	definition, err := deparseNode(version, stmt.Query)
	if err != nil {
		return fmt.Errorf("failed to deparse definition of view %s: %w", name, err)
	}

	catalog.SetView(&View{
		Schema:     schema,
		Name:       name,
		Definition: definition,
	})
	return nil
}

func parseMaterializedViewStmt(catalog *Catalog, version int32, stmt *pg_query.CreateTableAsStmt) error {
	// CREATE MATERIALIZED VIEW is parsed as CreateTableAsStmt; the object
	// type distinguishes it from CREATE TABLE AS, which is not allowed here.
	if stmt.Objtype != pg_query.ObjectType_OBJECT_MATVIEW {
		return fmt.Errorf("unsupported statement in state file: CREATE TABLE AS")
	}
	if stmt.Into == nil || stmt.Into.Rel == nil {
		return fmt.Errorf("CREATE MATERIALIZED VIEW statement has no target relation")
	}

	name := stmt.Into.Rel.Relname
	schema := stmt.Into.Rel.Schemaname
	if schema == "" {
		schema = catalog.Schema
	}

	if _, exists := catalog.GetView(schema + "." + name); exists {
		return fmt.Errorf("duplicate view definition: %s.%s", schema, name)
	}

	definition, err := deparseNode(version, stmt.Query)
	if err != nil {
		return fmt.Errorf("failed to deparse definition of materialized view %s: %w", name, err)
	}

	catalog.SetView(&View{
		Schema:       schema,
		Name:         name,
		Definition:   definition,
		Materialized: true,
		WithData:     !stmt.Into.SkipData,
		Indexes:      make(map[string]*Index),
	})
	return nil
}

func parseIndexStmt(catalog *Catalog, stmt *pg_query.IndexStmt) error {
	if stmt.Relation == nil {
		return fmt.Errorf("CREATE INDEX statement has no target relation")
	}
	if stmt.Idxname == "" {
		return fmt.Errorf("index on %s must be named explicitly", stmt.Relation.Relname)
	}

	target := stmt.Relation.Relname
	if stmt.Relation.Schemaname != "" {
		target = stmt.Relation.Schemaname + "." + target
	}
	view, ok := catalog.GetView(target)
	if !ok || !view.Materialized {
		return fmt.Errorf("index %s references %s, which is not a materialized view in this state file",
			stmt.Idxname, target)
	}

	index, err := indexFromStmt(stmt)
	if err != nil {
		return err
	}

	if view.Indexes == nil {
		view.Indexes = make(map[string]*Index)
	}
	if _, exists := view.Indexes[index.Name]; exists {
		return fmt.Errorf("duplicate index definition: %s", index.Name)
	}
	view.Indexes[index.Name] = index
	return nil
}

// indexFromStmt converts a parsed CREATE INDEX into the IR form. Only plain
// column elements are supported; expression indexes on materialized views
// cannot be declared in state files either, so both sides stay consistent.
func indexFromStmt(stmt *pg_query.IndexStmt) (*Index, error) {
	index := &Index{
		Name:   stmt.Idxname,
		Unique: stmt.Unique,
		Method: stmt.AccessMethod,
	}
	if index.Method == "" {
		index.Method = "btree"
	}

	for _, paramNode := range stmt.IndexParams {
		elem := paramNode.GetIndexElem()
		if elem == nil {
			continue
		}
		if elem.Name == "" {
			return nil, fmt.Errorf("index %s: expression index elements are not supported", stmt.Idxname)
		}
		index.Columns = append(index.Columns, elem.Name)
	}

	if len(index.Columns) == 0 {
		return nil, fmt.Errorf("index %s has no columns", stmt.Idxname)
	}
	return index, nil
}

func parseCommentStmt(catalog *Catalog, stmt *pg_query.CommentStmt) error {
	if stmt.Objtype != pg_query.ObjectType_OBJECT_VIEW && stmt.Objtype != pg_query.ObjectType_OBJECT_MATVIEW {
		return fmt.Errorf("unsupported COMMENT ON statement in state file (only views may be commented)")
	}

	name := commentObjectName(stmt.Object)
	if name == "" {
		return fmt.Errorf("COMMENT ON statement has no object name")
	}

	view, ok := catalog.GetView(name)
	if !ok {
		return fmt.Errorf("COMMENT ON references unknown view %s", name)
	}
	view.Comment = stmt.Comment
	return nil
}

// commentObjectName extracts the possibly schema-qualified relation name
// from a COMMENT ON object reference
func commentObjectName(object *pg_query.Node) string {
	if object == nil {
		return ""
	}
	list := object.GetList()
	if list == nil || len(list.Items) == 0 {
		if s := object.GetString_(); s != nil {
			return s.Sval
		}
		return ""
	}
	var parts []string
	for _, item := range list.Items {
		if s := item.GetString_(); s != nil {
			parts = append(parts, s.Sval)
		}
	}
	// Catalog-qualified references collapse to schema.name
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return strings.Join(parts, ".")
}

// deparseNode renders a single statement node back to SQL
func deparseNode(version int32, node *pg_query.Node) (string, error) {
	if node == nil {
		return "", fmt.Errorf("empty statement")
	}
	return pg_query.Deparse(&pg_query.ParseResult{
		Version: version,
		Stmts:   []*pg_query.RawStmt{{Stmt: node}},
	})
}

func statementText(version int32, raw *pg_query.RawStmt) string {
	text, err := deparseNode(version, raw.Stmt)
	if err != nil {
		return "(unprintable statement)"
	}
	return text
}
