package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleManifest = `
views:
  - name: active_users
    query: SELECT id, name FROM users WHERE active
    comment: only active accounts
materialized_views:
  - name: daily_stats
    query: SELECT day, count(*) AS n FROM events GROUP BY day
    with_data: true
    indexes:
      - name: daily_stats_day_idx
        columns: [day]
        unique: true
`

func TestParse(t *testing.T) {
	catalog, err := Parse([]byte(sampleManifest), "public")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if catalog.Schema != "public" {
		t.Errorf("schema = %q", catalog.Schema)
	}
	if len(catalog.Views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(catalog.Views))
	}

	plain, ok := catalog.GetView("active_users")
	if !ok {
		t.Fatal("active_users missing")
	}
	if plain.Comment != "only active accounts" {
		t.Errorf("comment = %q", plain.Comment)
	}
	if len(plain.Dependencies) != 1 || plain.Dependencies[0] != "public.users" {
		t.Errorf("dependencies = %v", plain.Dependencies)
	}

	matview, _ := catalog.GetView("daily_stats")
	if !matview.Materialized || !matview.WithData {
		t.Error("materialized view fields not set")
	}
	index, ok := matview.Indexes["daily_stats_day_idx"]
	if !ok {
		t.Fatal("index missing")
	}
	if !index.Unique || index.Method != "btree" {
		t.Errorf("index = %+v", index)
	}
}

func TestParseSchemaOverride(t *testing.T) {
	manifest := `
schema: analytics
views:
  - name: v
    query: SELECT 1 AS one
`
	catalog, err := Parse([]byte(manifest), "public")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if catalog.Schema != "analytics" {
		t.Errorf("schema = %q, want analytics", catalog.Schema)
	}
	view, _ := catalog.GetView("v")
	if view.Schema != "analytics" {
		t.Errorf("view schema = %q, want analytics", view.Schema)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{
			name:     "invalid yaml",
			manifest: "views: [",
			wantErr:  "failed to parse manifest",
		},
		{
			name: "non-select query",
			manifest: `
views:
  - name: v
    query: DROP TABLE users
`,
			wantErr: "must be a SELECT",
		},
		{
			name: "duplicate name",
			manifest: `
views:
  - name: v
    query: SELECT 1
materialized_views:
  - name: v
    query: SELECT 2
`,
			wantErr: "already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.manifest), "public")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.yaml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0644); err != nil {
		t.Fatal(err)
	}

	catalog, err := Load(path, "public")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(catalog.Views) != 2 {
		t.Errorf("expected 2 views, got %d", len(catalog.Views))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "public"); err == nil {
		t.Error("Load should fail for a missing file")
	}
}
