package diff

import (
	"fmt"
	"strings"

	"github.com/pgview/pgview/ir"
)

// SQLWriter is a helper for building SQL dump output with comment headers
type SQLWriter struct {
	output          strings.Builder
	includeComments bool
}

// NewSQLWriter creates a new SQLWriter with configurable header inclusion
func NewSQLWriter(includeComments bool) *SQLWriter {
	return &SQLWriter{includeComments: includeComments}
}

// WriteStatementWithComment writes a SQL statement with an optional header
func (w *SQLWriter) WriteStatementWithComment(objectType, objectName, schemaName, stmt string) {
	if w.includeComments {
		w.output.WriteString("--\n")
		w.output.WriteString(fmt.Sprintf("-- Name: %s; Type: %s; Schema: %s\n", objectName, objectType, schemaName))
		w.output.WriteString("--\n\n")
	}
	w.output.WriteString(stmt)
	w.output.WriteString("\n")
}

// WriteDDLSeparator writes the separator between statements
func (w *SQLWriter) WriteDDLSeparator() {
	w.output.WriteString("\n")
}

// String returns the accumulated SQL output
func (w *SQLWriter) String() string {
	return w.output.String()
}

// GenerateCatalogSQL renders a whole catalog as a SQL state file. The output
// round-trips through ir.ParseSQL, so a dump can serve as the desired state
// for a later plan.
func GenerateCatalogSQL(catalog *ir.Catalog, includeComments bool) string {
	w := NewSQLWriter(includeComments)

	views := sortViewsByDependencies(catalog.SortedViews())
	for i, view := range views {
		if i > 0 {
			w.WriteDDLSeparator()
		}
		w.WriteStatementWithComment(view.ObjectType(), view.Name, view.Schema, CreateViewStatement(view))

		for _, index := range view.SortedIndexes() {
			w.WriteDDLSeparator()
			w.WriteStatementWithComment("INDEX", index.Name, view.Schema, CreateIndexStatement(view, index))
		}

		if view.Comment != "" {
			w.WriteDDLSeparator()
			w.WriteStatementWithComment("COMMENT", view.Name, view.Schema, CommentStatement(view, view.Comment))
		}
	}

	return w.String()
}
