package diff

import (
	"sort"

	"github.com/pgview/pgview/ir"
)

// SortByDependencies orders views so that dependencies come before their
// dependents. Refresh scheduling uses the same ordering as creates.
func SortByDependencies(views []*ir.View) []*ir.View {
	return sortViewsByDependencies(views)
}

// sortViewsByDependencies orders views so that every view comes after the
// views it selects from. Only dependencies within the given set matter;
// references to tables or unmanaged views impose no ordering.
func sortViewsByDependencies(views []*ir.View) []*ir.View {
	if len(views) <= 1 {
		return views
	}

	viewMap := make(map[string]*ir.View, len(views))
	for _, view := range views {
		viewMap[view.QualifiedName()] = view
	}

	// Build dependency graph: edge dependency -> dependent
	inDegree := make(map[string]int, len(viewMap))
	adjList := make(map[string][]string, len(viewMap))
	for key := range viewMap {
		inDegree[key] = 0
	}

	for key, view := range viewMap {
		for _, dep := range view.Dependencies {
			if _, exists := viewMap[dep]; exists && dep != key {
				adjList[dep] = append(adjList[dep], key)
				inDegree[key]++
			}
		}
	}

	// Kahn's algorithm with deterministic tie-breaking by name
	var queue []string
	for key, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, key)
		}
	}
	sort.Strings(queue)

	processed := make(map[string]bool, len(viewMap))
	result := make([]*ir.View, 0, len(viewMap))

	for len(result) < len(viewMap) {
		if len(queue) == 0 {
			// A dependency cycle between views cannot be created through
			// plain SELECTs, but guard against it: emit the remaining views
			// in name order rather than looping forever.
			var remaining []string
			for key := range viewMap {
				if !processed[key] {
					remaining = append(remaining, key)
				}
			}
			sort.Strings(remaining)
			queue = remaining[:1]
		}

		key := queue[0]
		queue = queue[1:]
		if processed[key] {
			continue
		}
		processed[key] = true
		result = append(result, viewMap[key])

		next := append([]string(nil), adjList[key]...)
		sort.Strings(next)
		for _, dependent := range next {
			inDegree[dependent]--
			if inDegree[dependent] == 0 && !processed[dependent] {
				queue = append(queue, dependent)
			}
		}
	}

	return result
}

// reverseViews returns the views in reverse order; drops run opposite to
// creates
func reverseViews(views []*ir.View) []*ir.View {
	reversed := make([]*ir.View, len(views))
	for i, view := range views {
		reversed[len(views)-1-i] = view
	}
	return reversed
}
