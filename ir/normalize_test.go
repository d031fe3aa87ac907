package ir

import (
	"strings"
	"testing"
)

func TestNormalizeDefinition(t *testing.T) {
	// Equivalent spellings of the same query must normalize identically;
	// pg_get_viewdef output and hand-written SQL differ in layout and casing.
	variants := []string{
		"SELECT id, name FROM users WHERE active",
		"select id, name from users where active;",
		"SELECT id,\n       name\n  FROM users\n WHERE active",
	}

	first := NormalizeDefinition(variants[0])
	if first == "" {
		t.Fatal("NormalizeDefinition returned empty string for a valid query")
	}
	for _, variant := range variants[1:] {
		if got := NormalizeDefinition(variant); got != first {
			t.Errorf("NormalizeDefinition(%q) = %q, want %q", variant, got, first)
		}
	}
}

func TestNormalizeDefinitionStoredForms(t *testing.T) {
	// pg_get_viewdef() returns the rewritten query, not the declared text.
	// Each stored form must normalize onto the same text as its declaration.
	tests := []struct {
		name     string
		declared string
		stored   string
	}{
		{
			name:     "IN list rewritten to ANY array",
			declared: "SELECT id FROM orders WHERE status IN ('pending', 'paid')",
			stored:   "SELECT id FROM orders WHERE status = ANY (ARRAY['pending'::text, 'paid'::text])",
		},
		{
			name:     "NOT IN rewritten to ALL array",
			declared: "SELECT id FROM orders WHERE status NOT IN ('void', 'failed')",
			stored:   "SELECT id FROM orders WHERE status <> ALL (ARRAY['void'::text, 'failed'::text])",
		},
		{
			name:     "IN list on a varchar column with array cast",
			declared: "SELECT id FROM orders WHERE status IN ('pending', 'paid')",
			stored:   "SELECT id FROM orders WHERE status::text = ANY (ARRAY['pending'::character varying, 'paid'::character varying]::text[])",
		},
		{
			name:     "text casts around a comparison",
			declared: "SELECT id FROM users WHERE status = 'active'",
			stored:   "SELECT id FROM users WHERE status::text = 'active'::text",
		},
		{
			name:     "varchar inequality with casts",
			declared: "SELECT id FROM users WHERE name <> 'eve'",
			stored:   "SELECT id FROM users WHERE name::text <> 'eve'::text",
		},
		{
			name:     "single-table qualifiers",
			declared: "SELECT id, name FROM users WHERE active",
			stored:   "SELECT users.id, users.name FROM users WHERE users.active",
		},
		{
			name:     "alias qualifiers",
			declared: "SELECT id FROM users u WHERE active",
			stored:   "SELECT u.id FROM users u WHERE u.active",
		},
		{
			name:     "qualifiers inside aggregates and GROUP BY",
			declared: "SELECT day, count(*) AS n FROM events GROUP BY day",
			stored:   "SELECT events.day, count(*) AS n FROM events GROUP BY events.day",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			declared := NormalizeDefinition(tt.declared)
			stored := NormalizeDefinition(tt.stored)
			if declared != stored {
				t.Errorf("stored form does not normalize onto the declaration:\n declared: %q\n stored:   %q", declared, stored)
			}
		})
	}
}

func TestNormalizeDefinitionKeepsNecessaryForms(t *testing.T) {
	// Qualifiers over more than one relation may be load-bearing
	joined := NormalizeDefinition("SELECT u.id, o.total FROM users u JOIN orders o ON o.user_id = u.id")
	if !strings.Contains(joined, "u.id") || !strings.Contains(joined, "o.total") {
		t.Errorf("join qualifiers were stripped: %q", joined)
	}

	// ANY over a non-constant expression is not an IN list
	dynamic := NormalizeDefinition("SELECT id FROM orders WHERE id = ANY (allowed_ids)")
	if !strings.Contains(dynamic, "ANY") {
		t.Errorf("non-constant ANY was folded: %q", dynamic)
	}
}

func TestNormalizeDefinitionDistinguishesQueries(t *testing.T) {
	a := NormalizeDefinition("SELECT id FROM users")
	b := NormalizeDefinition("SELECT id FROM users WHERE active")
	if a == b {
		t.Errorf("different queries normalized to the same text: %q", a)
	}
}

func TestNormalizeDefinitionUnparseable(t *testing.T) {
	// Unparseable text falls back to the trimmed original
	got := NormalizeDefinition("  not actually sql ;  ")
	if got != "not actually sql" {
		t.Errorf("NormalizeDefinition fallback = %q, want %q", got, "not actually sql")
	}
}

func TestNormalizeCatalog(t *testing.T) {
	catalog := NewCatalog("public")
	catalog.SetView(&View{
		Name:       "active_users",
		Definition: "SELECT id FROM users WHERE active;",
		// Plain views must not carry materialized-only fields
		WithData: true,
		Indexes:  map[string]*Index{"bogus": {Name: "bogus", Columns: []string{"id"}}},
	})
	catalog.SetView(&View{
		Name:         "daily_stats",
		Definition:   "SELECT day, count(*) AS n FROM events GROUP BY day",
		Materialized: true,
		Indexes: map[string]*Index{
			"daily_stats_day_idx": {Name: "daily_stats_day_idx", Columns: []string{"day"}},
		},
	})

	NormalizeCatalog(catalog)

	plain, _ := catalog.GetView("active_users")
	if plain.Schema != "public" {
		t.Errorf("schema not defaulted: got %q", plain.Schema)
	}
	if plain.WithData || plain.Indexes != nil {
		t.Error("materialized-only fields not cleared on plain view")
	}
	if len(plain.Dependencies) != 1 || plain.Dependencies[0] != "public.users" {
		t.Errorf("dependencies = %v, want [public.users]", plain.Dependencies)
	}

	matview, _ := catalog.GetView("daily_stats")
	if got := matview.Indexes["daily_stats_day_idx"].Method; got != "btree" {
		t.Errorf("index method not defaulted: got %q", got)
	}
}
