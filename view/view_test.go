package view

import (
	"strings"
	"testing"
)

func TestViewValidate(t *testing.T) {
	tests := []struct {
		name    string
		view    View
		wantErr string
	}{
		{
			name: "valid",
			view: View{Name: "active_users", Query: "SELECT id FROM users WHERE active"},
		},
		{
			name:    "missing name",
			view:    View{Query: "SELECT 1"},
			wantErr: "missing a name",
		},
		{
			name:    "missing query",
			view:    View{Name: "empty"},
			wantErr: "missing a query",
		},
		{
			name:    "unparseable query",
			view:    View{Name: "broken", Query: "SELECT FROM WHERE"},
			wantErr: "does not parse",
		},
		{
			name:    "multiple statements",
			view:    View{Name: "sneaky", Query: "SELECT 1; SELECT 2"},
			wantErr: "single statement",
		},
		{
			name:    "not a select",
			view:    View{Name: "dangerous", Query: "DELETE FROM users"},
			wantErr: "must be a SELECT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.view.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMaterializedViewValidate(t *testing.T) {
	base := func() MaterializedView {
		return MaterializedView{
			Name:  "daily_stats",
			Query: "SELECT day, count(*) FROM events GROUP BY day",
		}
	}

	valid := base()
	valid.Indexes = []Index{{Name: "daily_stats_day_idx", Columns: []string{"day"}, Unique: true}}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	unnamed := base()
	unnamed.Indexes = []Index{{Columns: []string{"day"}}}
	if err := unnamed.Validate(); err == nil || !strings.Contains(err.Error(), "must be named") {
		t.Errorf("Validate() = %v, want unnamed index error", err)
	}

	noColumns := base()
	noColumns.Indexes = []Index{{Name: "idx"}}
	if err := noColumns.Validate(); err == nil || !strings.Contains(err.Error(), "no columns") {
		t.Errorf("Validate() = %v, want no columns error", err)
	}

	duplicate := base()
	duplicate.Indexes = []Index{
		{Name: "idx", Columns: []string{"day"}},
		{Name: "idx", Columns: []string{"n"}},
	}
	if err := duplicate.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate index") {
		t.Errorf("Validate() = %v, want duplicate index error", err)
	}
}

func TestViewIR(t *testing.T) {
	v := View{Name: "active_users", Query: "SELECT id FROM users", Comment: "only active"}
	got := v.IR("public")
	if got.Schema != "public" {
		t.Errorf("default schema not applied: %q", got.Schema)
	}
	if got.Materialized {
		t.Error("plain view converted as materialized")
	}
	if got.Comment != "only active" {
		t.Errorf("comment = %q", got.Comment)
	}

	pinned := View{Schema: "analytics", Name: "x", Query: "SELECT 1"}
	if got := pinned.IR("public"); got.Schema != "analytics" {
		t.Errorf("explicit schema overridden: %q", got.Schema)
	}
}

func TestMaterializedViewIR(t *testing.T) {
	mv := MaterializedView{
		Name:     "daily_stats",
		Query:    "SELECT day FROM events",
		WithData: true,
		Indexes:  []Index{{Name: "idx", Columns: []string{"day"}, Unique: true, Method: "btree"}},
	}
	got := mv.IR("public")
	if !got.Materialized || !got.WithData {
		t.Error("materialized fields not carried over")
	}
	index, ok := got.Indexes["idx"]
	if !ok {
		t.Fatal("index not converted")
	}
	if !index.Unique || len(index.Columns) != 1 || index.Columns[0] != "day" {
		t.Errorf("index converted incorrectly: %+v", index)
	}
}
