package diff

import (
	"fmt"
	"strings"

	"github.com/pgview/pgview/ir"
)

// GenerateSteps renders the diff as an ordered list of SQL statements.
// Drops run before creates, and both respect dependency order among the
// managed views: a modified view that feeds another modified view is dropped
// after its dependent and recreated before it.
func GenerateSteps(d *DDLDiff) []PlanStep {
	collector := NewSQLCollector()

	// Indexes dropped from otherwise unchanged materialized views go first;
	// indexes on dropped or recreated views disappear with their view.
	for _, change := range d.DroppedIndexes {
		collector.Collect("index", "drop", change.View.QualifiedName()+"."+change.Index.Name,
			DropIndexStatement(change.View, change.Index))
	}

	drops := collectDrops(d)
	for _, view := range reverseViews(sortViewsByDependencies(drops)) {
		collector.Collect(objectTypeName(view), "drop", view.QualifiedName(), DropViewStatement(view))
	}

	creates := collectCreates(d)
	for _, view := range sortViewsByDependencies(creates) {
		collector.Collect(objectTypeName(view), "create", view.QualifiedName(), CreateViewStatement(view))
		for _, index := range view.SortedIndexes() {
			collector.Collect("index", "create", view.QualifiedName()+"."+index.Name,
				CreateIndexStatement(view, index))
		}
		if view.Comment != "" {
			collector.Collect("comment", "comment", view.QualifiedName(),
				CommentStatement(view, view.Comment))
		}
	}

	for _, change := range d.AddedIndexes {
		collector.Collect("index", "create", change.View.QualifiedName()+"."+change.Index.Name,
			CreateIndexStatement(change.View, change.Index))
	}

	for _, change := range d.CommentChanges {
		collector.Collect("comment", "comment", change.View.QualifiedName(),
			CommentStatement(change.View, change.Comment))
	}

	return collector.Steps()
}

// GenerateMigrationSQL renders the diff as a single SQL script
func GenerateMigrationSQL(d *DDLDiff) string {
	steps := GenerateSteps(d)
	if len(steps) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, step := range steps {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(step.SQL)
		sb.WriteString("\n")
	}
	return sb.String()
}

func collectDrops(d *DDLDiff) []*ir.View {
	var drops []*ir.View
	drops = append(drops, d.DroppedViews...)
	drops = append(drops, d.DroppedMaterializedViews...)
	for _, diff := range d.ModifiedViews {
		drops = append(drops, diff.Old)
	}
	for _, diff := range d.ModifiedMaterializedViews {
		drops = append(drops, diff.Old)
	}
	return drops
}

func collectCreates(d *DDLDiff) []*ir.View {
	var creates []*ir.View
	creates = append(creates, d.AddedViews...)
	creates = append(creates, d.AddedMaterializedViews...)
	for _, diff := range d.ModifiedViews {
		creates = append(creates, diff.New)
	}
	for _, diff := range d.ModifiedMaterializedViews {
		creates = append(creates, diff.New)
	}
	return creates
}

func objectTypeName(view *ir.View) string {
	if view.Materialized {
		return "materialized view"
	}
	return "view"
}

func qualifiedName(view *ir.View) string {
	return ir.QuoteIdentifier(view.Schema) + "." + ir.QuoteIdentifier(view.Name)
}

// CreateViewStatement generates the CREATE statement for a view
func CreateViewStatement(view *ir.View) string {
	if !view.Materialized {
		return fmt.Sprintf("CREATE VIEW %s AS\n%s;", qualifiedName(view), view.Definition)
	}

	stmt := fmt.Sprintf("CREATE MATERIALIZED VIEW %s AS\n%s", qualifiedName(view), view.Definition)
	if !view.WithData {
		stmt += "\nWITH NO DATA"
	}
	return stmt + ";"
}

// DropViewStatement generates the DROP statement for a view
func DropViewStatement(view *ir.View) string {
	return fmt.Sprintf("DROP %s IF EXISTS %s;", view.ObjectType(), qualifiedName(view))
}

// CreateIndexStatement generates the CREATE INDEX statement for a
// materialized view index
func CreateIndexStatement(view *ir.View, index *ir.Index) string {
	unique := ""
	if index.Unique {
		unique = "UNIQUE "
	}

	columns := make([]string, len(index.Columns))
	for i, column := range index.Columns {
		columns[i] = ir.QuoteIdentifier(column)
	}

	method := index.Method
	if method == "" {
		method = "btree"
	}

	return fmt.Sprintf("CREATE %sINDEX %s ON %s USING %s (%s);",
		unique, ir.QuoteIdentifier(index.Name), qualifiedName(view), method, strings.Join(columns, ", "))
}

// DropIndexStatement generates the DROP INDEX statement for a materialized
// view index
func DropIndexStatement(view *ir.View, index *ir.Index) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s.%s;",
		ir.QuoteIdentifier(view.Schema), ir.QuoteIdentifier(index.Name))
}

// CommentStatement generates the COMMENT ON statement for a view. An empty
// comment removes the existing comment.
func CommentStatement(view *ir.View, comment string) string {
	value := "NULL"
	if comment != "" {
		value = ir.QuoteLiteral(comment)
	}
	return fmt.Sprintf("COMMENT ON %s %s IS %s;", view.ObjectType(), qualifiedName(view), value)
}
