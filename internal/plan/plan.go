// Package plan turns a catalog diff into an executable, serializable
// migration plan with Terraform-style human output.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pgview/pgview/internal/color"
	"github.com/pgview/pgview/internal/diff"
	"github.com/pgview/pgview/internal/fingerprint"
	"github.com/pgview/pgview/internal/version"
	"github.com/pgview/pgview/ir"
)

// Plan represents the migration between two view catalog states. All fields
// are serializable so a plan written at review time can be applied later.
type Plan struct {
	PgviewVersion string                   `json:"pgview_version"`
	TargetSchema  string                   `json:"target_schema"`
	// Schemas lists every schema the source inspection covered: the target
	// plus any schema named by a declaration. Apply re-inspects the same set
	// for drift detection.
	Schemas       []string                 `json:"schemas,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	// Transaction is always true for view DDL; kept explicit so stored plans
	// state the execution mode they were generated for.
	Transaction   bool                     `json:"transaction"`
	Fingerprint   *fingerprint.Fingerprint `json:"fingerprint,omitempty"`
	Summary       Summary                  `json:"summary"`
	ObjectChanges []ObjectChange           `json:"object_changes"`
	Steps         []diff.PlanStep          `json:"steps"`
}

// ObjectChange represents a single change to a database object
type ObjectChange struct {
	Address string   `json:"address"`
	Type    string   `json:"type"`
	Schema  string   `json:"schema"`
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}

// Summary provides counts of changes by type
type Summary struct {
	Add     int                    `json:"add"`
	Change  int                    `json:"change"`
	Destroy int                    `json:"destroy"`
	Total   int                    `json:"total"`
	ByType  map[string]TypeSummary `json:"by_type"`
}

// TypeSummary provides counts for a specific object type
type TypeSummary struct {
	Add     int `json:"add"`
	Change  int `json:"change"`
	Destroy int `json:"destroy"`
}

// objectTypeOrder lists object types in display order
func objectTypeOrder() []string {
	return []string{"views", "materialized views", "indexes", "comments"}
}

// NewPlan creates a plan from a diff. The fingerprint captures the current
// (pre-migration) catalog so apply can detect drift.
func NewPlan(d *diff.DDLDiff, targetSchema string, fp *fingerprint.Fingerprint) *Plan {
	p := &Plan{
		PgviewVersion: version.App(),
		TargetSchema:  targetSchema,
		CreatedAt:     time.Now().UTC(),
		Transaction:   true,
		Fingerprint:   fp,
		Steps:         diff.GenerateSteps(d),
	}
	p.ObjectChanges = collectObjectChanges(d)
	p.Summary = summarize(p.ObjectChanges)
	return p
}

// FromJSON reconstructs a plan previously serialized with ToJSON
func FromJSON(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	return &p, nil
}

// HasChanges reports whether the plan contains any work
func (p *Plan) HasChanges() bool {
	return p.Summary.Total > 0
}

// ToJSON returns the plan as indented JSON
func (p *Plan) ToJSON() (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan to JSON: %w", err)
	}
	return string(data), nil
}

// ToSQL returns only the SQL statements of the plan
func (p *Plan) ToSQL() string {
	if len(p.Steps) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, step := range p.Steps {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(step.SQL)
		sb.WriteString("\n")
	}
	return sb.String()
}

// HumanColored returns a human-readable summary with color support
func (p *Plan) HumanColored(enableColor bool) string {
	c := color.New(enableColor)
	var summary strings.Builder

	if p.Summary.Total == 0 {
		summary.WriteString("No changes detected.\n")
		return summary.String()
	}

	summary.WriteString(c.FormatPlanHeader(p.Summary.Add, p.Summary.Change, p.Summary.Destroy) + "\n\n")

	summary.WriteString(c.Bold("Summary by type:") + "\n")
	for _, objType := range objectTypeOrder() {
		if typeSummary, exists := p.Summary.ByType[objType]; exists {
			summary.WriteString(c.FormatSummaryLine(objType, typeSummary.Add, typeSummary.Change, typeSummary.Destroy) + "\n")
		}
	}
	summary.WriteString("\n")

	for _, objType := range objectTypeOrder() {
		if _, exists := p.Summary.ByType[objType]; !exists {
			continue
		}
		displayName := strings.ToUpper(objType[:1]) + objType[1:]
		summary.WriteString(c.Bold(displayName) + ":\n")
		for _, change := range p.ObjectChanges {
			if pluralType(change.Type) != objType {
				continue
			}
			for _, action := range change.Actions {
				summary.WriteString(c.FormatPlanLine(change.Type, change.Name, action) + "\n")
			}
		}
		summary.WriteString("\n")
	}

	summary.WriteString(fmt.Sprintf("Transaction: %t\n\n", p.Transaction))

	summary.WriteString(c.Bold("DDL to be executed:") + "\n")
	summary.WriteString(strings.Repeat("-", 50) + "\n\n")
	migrationSQL := p.ToSQL()
	if migrationSQL == "" {
		summary.WriteString("-- No DDL statements generated\n")
	} else {
		summary.WriteString(migrationSQL)
		if !strings.HasSuffix(migrationSQL, "\n") {
			summary.WriteString("\n")
		}
	}

	return summary.String()
}

func collectObjectChanges(d *diff.DDLDiff) []ObjectChange {
	var changes []ObjectChange

	addView := func(view *ir.View, objType, action string) {
		changes = append(changes, ObjectChange{
			Address: objType + "." + view.Name,
			Type:    objType,
			Schema:  view.Schema,
			Name:    view.Name,
			Actions: []string{action},
		})
	}

	for _, view := range d.AddedViews {
		addView(view, "view", "add")
	}
	for _, view := range d.AddedMaterializedViews {
		addView(view, "materialized view", "add")
	}
	for _, viewDiff := range d.ModifiedViews {
		addView(viewDiff.New, "view", "change")
	}
	for _, viewDiff := range d.ModifiedMaterializedViews {
		addView(viewDiff.New, "materialized view", "change")
	}
	for _, view := range d.DroppedViews {
		addView(view, "view", "destroy")
	}
	for _, view := range d.DroppedMaterializedViews {
		addView(view, "materialized view", "destroy")
	}
	for _, change := range d.AddedIndexes {
		changes = append(changes, ObjectChange{
			Address: "index." + change.Index.Name,
			Type:    "index",
			Schema:  change.View.Schema,
			Name:    change.Index.Name,
			Actions: []string{"add"},
		})
	}
	for _, change := range d.DroppedIndexes {
		changes = append(changes, ObjectChange{
			Address: "index." + change.Index.Name,
			Type:    "index",
			Schema:  change.View.Schema,
			Name:    change.Index.Name,
			Actions: []string{"destroy"},
		})
	}
	for _, change := range d.CommentChanges {
		changes = append(changes, ObjectChange{
			Address: "comment." + change.View.Name,
			Type:    "comment",
			Schema:  change.View.Schema,
			Name:    change.View.Name,
			Actions: []string{"change"},
		})
	}

	return changes
}

func summarize(changes []ObjectChange) Summary {
	summary := Summary{ByType: make(map[string]TypeSummary)}

	for _, change := range changes {
		typeName := pluralType(change.Type)
		typeSummary := summary.ByType[typeName]
		for _, action := range change.Actions {
			switch action {
			case "add":
				summary.Add++
				typeSummary.Add++
			case "change":
				summary.Change++
				typeSummary.Change++
			case "destroy":
				summary.Destroy++
				typeSummary.Destroy++
			}
		}
		summary.ByType[typeName] = typeSummary
	}

	summary.Total = summary.Add + summary.Change + summary.Destroy
	return summary
}

func pluralType(objType string) string {
	switch objType {
	case "view":
		return "views"
	case "materialized view":
		return "materialized views"
	case "index":
		return "indexes"
	case "comment":
		return "comments"
	default:
		return objType + "s"
	}
}
