package diff

import (
	"strings"
)

// PlanStep represents a single SQL statement with its context
type PlanStep struct {
	SQL        string `json:"sql"`
	ObjectType string `json:"object_type"` // view, materialized view, index, comment
	Operation  string `json:"operation"`   // create, drop, comment
	ObjectPath string `json:"object_path"` // schema-qualified object name
}

// SQLCollector collects SQL statements with their context information
type SQLCollector struct {
	steps []PlanStep
}

// NewSQLCollector creates a new SQLCollector
func NewSQLCollector() *SQLCollector {
	return &SQLCollector{}
}

// Collect records a SQL statement with its context
func (c *SQLCollector) Collect(objectType, operation, objectPath, stmt string) {
	c.steps = append(c.steps, PlanStep{
		SQL:        strings.TrimSpace(stmt),
		ObjectType: objectType,
		Operation:  operation,
		ObjectPath: objectPath,
	})
}

// Steps returns all collected plan steps
func (c *SQLCollector) Steps() []PlanStep {
	return c.steps
}
