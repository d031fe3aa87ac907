package codegen

import (
	"strings"
	"testing"

	"github.com/pgview/pgview/ir"
)

func catalogFromSQL(t *testing.T, sql string) *ir.Catalog {
	t.Helper()
	catalog, err := ir.ParseSQL(sql, "public")
	if err != nil {
		t.Fatalf("Failed to parse SQL: %v", err)
	}
	return catalog
}

func TestGenerate(t *testing.T) {
	catalog := catalogFromSQL(t, `
CREATE VIEW active_users AS SELECT id FROM users WHERE active;
CREATE MATERIALIZED VIEW daily_stats AS SELECT day, count(*) AS n FROM events GROUP BY day;
CREATE UNIQUE INDEX daily_stats_day_idx ON daily_stats (day);
COMMENT ON MATERIALIZED VIEW daily_stats IS 'per-day counts';
`)

	source, err := Generate(catalog, "views")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	code := string(source)

	for _, want := range []string{
		"// Code generated by pgview gen. DO NOT EDIT.",
		"package views",
		"var ActiveUsers = &view.View{",
		"var DailyStats = &view.MaterializedView{",
		`"active_users"`,
		"view.MustRegister(",
		"ActiveUsers",
		"DailyStats",
		"[]view.Index{",
		`"daily_stats_day_idx"`,
		`"per-day counts"`,
		"func init()",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q:\n%s", want, code)
		}
	}
}

func TestGenerateDefaultPackage(t *testing.T) {
	catalog := catalogFromSQL(t, "CREATE VIEW v AS SELECT 1 AS one;")
	source, err := Generate(catalog, "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(string(source), "package views") {
		t.Error("empty package name should default to views")
	}
}

func TestGenerateEmptyCatalog(t *testing.T) {
	source, err := Generate(ir.NewCatalog("public"), "views")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if strings.Contains(string(source), "init()") {
		t.Error("empty catalog should not emit an init function")
	}
}

func TestGenerateNameCollision(t *testing.T) {
	catalog := catalogFromSQL(t, `
CREATE VIEW user_stats AS SELECT 1 AS one;
CREATE VIEW "user__stats" AS SELECT 2 AS two;
`)
	if _, err := Generate(catalog, "views"); err == nil {
		t.Error("colliding Go identifiers should be an error")
	}
}

func TestExportedName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"active_users", "ActiveUsers"},
		{"daily_stats", "DailyStats"},
		{"v2_rollup", "V2Rollup"},
		{"2fast", "View2fast"},
		{"already", "Already"},
	}

	for _, tt := range tests {
		if got := exportedName(tt.in); got != tt.want {
			t.Errorf("exportedName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
