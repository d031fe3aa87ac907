package view

import (
	"context"
	"strings"
	"testing"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	err := r.Register(
		&View{Name: "active_users", Query: "SELECT id FROM users WHERE active"},
		&MaterializedView{Name: "daily_stats", Query: "SELECT day FROM events"},
	)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	if err := r.Register(&View{Name: "active_users", Query: "SELECT 1"}); err == nil {
		t.Error("expected duplicate registration error")
	}

	if err := r.Register(nil); err == nil {
		t.Error("expected nil declaration error")
	}

	if err := r.Register(&View{Name: "broken", Query: "DROP TABLE users"}); err == nil {
		t.Error("expected validation error for non-SELECT query")
	}
}

func TestRegistryMustRegisterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegister should panic on invalid declaration")
		}
	}()
	NewRegistry().MustRegister(&View{Name: ""})
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		&View{Name: "zebra", Query: "SELECT 1"},
		&MaterializedView{Name: "alpha", Query: "SELECT 2"},
		&View{Name: "middle", Query: "SELECT 3"},
	)

	defs := r.Definitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = declarationName(def)
	}
	want := []string{"zebra", "alpha", "middle"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Definitions order = %v, want %v", names, want)
		}
	}

	matviews := r.MaterializedViews()
	if len(matviews) != 1 || matviews[0].Name != "alpha" {
		t.Errorf("MaterializedViews() = %v", matviews)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&View{Name: "v", Query: "SELECT 1"})

	if _, ok := r.Lookup("v"); !ok {
		t.Error("Lookup failed for registered view")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup succeeded for unregistered view")
	}
}

func TestRegistryCatalog(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		&View{Name: "active_users", Query: "SELECT id FROM users WHERE active;"},
		&MaterializedView{
			Name:    "user_counts",
			Query:   "SELECT count(*) AS n FROM active_users",
			Indexes: []Index{{Name: "user_counts_n_idx", Columns: []string{"n"}}},
		},
	)

	catalog, err := r.Catalog("public")
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if catalog.Schema != "public" {
		t.Errorf("catalog schema = %q", catalog.Schema)
	}

	plain, ok := catalog.GetView("active_users")
	if !ok {
		t.Fatal("active_users missing from catalog")
	}
	if strings.HasSuffix(plain.Definition, ";") {
		t.Errorf("definition not normalized: %q", plain.Definition)
	}

	matview, _ := catalog.GetView("user_counts")
	if len(matview.Dependencies) != 1 || matview.Dependencies[0] != "public.active_users" {
		t.Errorf("dependencies = %v, want [public.active_users]", matview.Dependencies)
	}
	if matview.Indexes["user_counts_n_idx"].Method != "btree" {
		t.Error("index method not defaulted to btree")
	}
}

func TestRefreshConcurrentlyRequiresUniqueIndex(t *testing.T) {
	mv := &MaterializedView{
		Name:    "daily_stats",
		Query:   "SELECT day FROM events",
		Indexes: []Index{{Name: "idx", Columns: []string{"day"}}},
	}

	// The unique index check runs before any database work, so a nil handle
	// never gets touched.
	err := RefreshConcurrently(context.Background(), nil, mv)
	if err == nil || !strings.Contains(err.Error(), "unique index") {
		t.Errorf("RefreshConcurrently = %v, want unique index error", err)
	}
}

func TestRefreshNilView(t *testing.T) {
	if err := Refresh(context.Background(), nil, nil); err == nil {
		t.Error("Refresh(nil) should fail")
	}
}
