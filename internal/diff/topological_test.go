package diff

import (
	"testing"

	"github.com/pgview/pgview/ir"
)

func makeView(name string, deps ...string) *ir.View {
	return &ir.View{Schema: "public", Name: name, Dependencies: deps}
}

func names(views []*ir.View) []string {
	result := make([]string, len(views))
	for i, view := range views {
		result[i] = view.Name
	}
	return result
}

func indexOf(list []string, name string) int {
	for i, item := range list {
		if item == name {
			return i
		}
	}
	return -1
}

func TestSortByDependenciesChain(t *testing.T) {
	views := []*ir.View{
		makeView("c", "public.b"),
		makeView("a"),
		makeView("b", "public.a"),
	}

	got := names(SortByDependencies(views))
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortByDependenciesDeterministicTieBreak(t *testing.T) {
	// No edges between them: names decide the order
	views := []*ir.View{makeView("zebra"), makeView("alpha"), makeView("middle")}

	got := names(SortByDependencies(views))
	want := []string{"alpha", "middle", "zebra"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortByDependenciesIgnoresExternalRelations(t *testing.T) {
	// Dependencies on tables or unmanaged views impose no ordering
	views := []*ir.View{
		makeView("b", "public.some_table"),
		makeView("a", "public.another_table", "public.b"),
	}

	got := names(SortByDependencies(views))
	if indexOf(got, "b") > indexOf(got, "a") {
		t.Errorf("b must come before a: %v", got)
	}
}

func TestSortByDependenciesDiamond(t *testing.T) {
	views := []*ir.View{
		makeView("top", "public.left", "public.right"),
		makeView("left", "public.base"),
		makeView("right", "public.base"),
		makeView("base"),
	}

	got := names(SortByDependencies(views))
	if got[0] != "base" || got[len(got)-1] != "top" {
		t.Errorf("diamond order wrong: %v", got)
	}
}

func TestSortByDependenciesCycleTerminates(t *testing.T) {
	// A cycle cannot arise from plain SELECT views, but the sort must not
	// loop forever if one slips in.
	views := []*ir.View{
		makeView("a", "public.b"),
		makeView("b", "public.a"),
	}

	got := SortByDependencies(views)
	if len(got) != 2 {
		t.Fatalf("expected both views emitted, got %v", names(got))
	}
}

func TestReverseViews(t *testing.T) {
	views := []*ir.View{makeView("a"), makeView("b"), makeView("c")}
	got := names(reverseViews(views))
	want := []string{"c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reverse = %v, want %v", got, want)
		}
	}
}
