// Package diff computes the DDL difference between the current view catalog
// of a database schema and a desired catalog, and generates the migration SQL
// that moves the former onto the latter.
package diff

import (
	"github.com/pgview/pgview/ir"
)

// DDLDiff represents the difference between two view catalogs
type DDLDiff struct {
	AddedViews                []*ir.View     `json:"added_views,omitempty"`
	DroppedViews              []*ir.View     `json:"dropped_views,omitempty"`
	ModifiedViews             []*ViewDiff    `json:"modified_views,omitempty"`
	AddedMaterializedViews    []*ir.View     `json:"added_materialized_views,omitempty"`
	DroppedMaterializedViews  []*ir.View     `json:"dropped_materialized_views,omitempty"`
	ModifiedMaterializedViews []*ViewDiff    `json:"modified_materialized_views,omitempty"`
	AddedIndexes              []*IndexChange `json:"added_indexes,omitempty"`
	DroppedIndexes            []*IndexChange `json:"dropped_indexes,omitempty"`
	CommentChanges            []*CommentChange `json:"comment_changes,omitempty"`
}

// ViewDiff represents a changed view definition
type ViewDiff struct {
	Old *ir.View `json:"old"`
	New *ir.View `json:"new"`
}

// IndexChange represents an index added to or dropped from a materialized
// view whose definition is otherwise unchanged
type IndexChange struct {
	View  *ir.View  `json:"view"`
	Index *ir.Index `json:"index"`
}

// CommentChange represents a comment change on an otherwise unchanged view
type CommentChange struct {
	View    *ir.View `json:"view"`
	Comment string   `json:"comment"` // empty means the comment is removed
}

// Options controls diff behavior
type Options struct {
	// Prune drops database views that are absent from the desired catalog.
	// Off by default: a registry may deliberately cover only part of a
	// schema.
	Prune bool
}

// Diff compares the current catalog against the desired catalog
func Diff(current, desired *ir.Catalog, opts Options) *DDLDiff {
	d := &DDLDiff{}

	for _, name := range desired.SortedNames() {
		desiredView, _ := desired.GetView(name)
		currentView, exists := current.GetView(name)

		switch {
		case !exists:
			d.addCreated(desiredView)
		case currentView.Materialized != desiredView.Materialized:
			// Kind change: the old object must go away entirely
			d.addDropped(currentView)
			d.addCreated(desiredView)
		case currentView.Definition != desiredView.Definition:
			d.addModified(currentView, desiredView)
		default:
			// Definition unchanged: granular index and comment changes.
			// WithData is a creation-time property and is deliberately not
			// diffed; whether a live matview is populated is refresh state.
			d.diffIndexes(currentView, desiredView)
			if currentView.Comment != desiredView.Comment {
				d.CommentChanges = append(d.CommentChanges, &CommentChange{
					View:    desiredView,
					Comment: desiredView.Comment,
				})
			}
		}
	}

	if opts.Prune {
		for _, name := range current.SortedNames() {
			currentView, _ := current.GetView(name)
			// Prune covers the target schema only. Views of other schemas are
			// inspected solely because declarations name them, so an undeclared
			// view there is not ours to drop.
			if currentView.Schema != current.Schema {
				continue
			}
			if _, exists := desired.GetView(name); !exists {
				d.addDropped(currentView)
			}
		}
	}

	return d
}

func (d *DDLDiff) addCreated(view *ir.View) {
	if view.Materialized {
		d.AddedMaterializedViews = append(d.AddedMaterializedViews, view)
	} else {
		d.AddedViews = append(d.AddedViews, view)
	}
}

func (d *DDLDiff) addDropped(view *ir.View) {
	if view.Materialized {
		d.DroppedMaterializedViews = append(d.DroppedMaterializedViews, view)
	} else {
		d.DroppedViews = append(d.DroppedViews, view)
	}
}

func (d *DDLDiff) addModified(old, new *ir.View) {
	diff := &ViewDiff{Old: old, New: new}
	if new.Materialized {
		d.ModifiedMaterializedViews = append(d.ModifiedMaterializedViews, diff)
	} else {
		d.ModifiedViews = append(d.ModifiedViews, diff)
	}
}

// diffIndexes compares the index sets of two versions of the same
// materialized view. An index whose content changed under the same name is
// dropped and recreated.
func (d *DDLDiff) diffIndexes(current, desired *ir.View) {
	if !desired.Materialized {
		return
	}

	for _, index := range desired.SortedIndexes() {
		currentIndex, exists := current.Indexes[index.Name]
		if exists && indexesEqual(currentIndex, index) {
			continue
		}
		if exists {
			d.DroppedIndexes = append(d.DroppedIndexes, &IndexChange{View: current, Index: currentIndex})
		}
		d.AddedIndexes = append(d.AddedIndexes, &IndexChange{View: desired, Index: index})
	}

	for _, index := range current.SortedIndexes() {
		if _, exists := desired.Indexes[index.Name]; !exists {
			d.DroppedIndexes = append(d.DroppedIndexes, &IndexChange{View: current, Index: index})
		}
	}
}

func indexesEqual(a, b *ir.Index) bool {
	if a.Unique != b.Unique || a.Method != b.Method || len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}

// HasChanges reports whether the diff contains any change at all
func (d *DDLDiff) HasChanges() bool {
	return len(d.AddedViews) > 0 ||
		len(d.DroppedViews) > 0 ||
		len(d.ModifiedViews) > 0 ||
		len(d.AddedMaterializedViews) > 0 ||
		len(d.DroppedMaterializedViews) > 0 ||
		len(d.ModifiedMaterializedViews) > 0 ||
		len(d.AddedIndexes) > 0 ||
		len(d.DroppedIndexes) > 0 ||
		len(d.CommentChanges) > 0
}
