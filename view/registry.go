package view

import (
	"fmt"
	"sync"

	"github.com/pgview/pgview/ir"
)

// Registry holds view declarations in registration order. The zero value is
// not usable; create registries with NewRegistry or use the package-level
// default.
type Registry struct {
	mu    sync.RWMutex
	order []string
	defs  map[string]Definition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]Definition),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the package-level registry that package-level Register
// calls add to
func Default() *Registry {
	return defaultRegistry
}

// Register validates declarations and adds them to the default registry
func Register(defs ...Definition) error {
	return defaultRegistry.Register(defs...)
}

// MustRegister is like Register but panics on error. Intended for
// package-level var or init declarations, mirroring database/sql.Register.
func MustRegister(defs ...Definition) {
	defaultRegistry.MustRegister(defs...)
}

// Register validates declarations and adds them to the registry
func (r *Registry) Register(defs ...Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, def := range defs {
		if def == nil {
			return fmt.Errorf("cannot register a nil declaration")
		}
		if err := def.Validate(); err != nil {
			return err
		}

		name := declarationName(def)
		if _, exists := r.defs[name]; exists {
			return fmt.Errorf("view %q is already registered", name)
		}
		r.defs[name] = def
		r.order = append(r.order, name)
	}
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(defs ...Definition) {
	if err := r.Register(defs...); err != nil {
		panic(err)
	}
}

// Definitions returns the registered declarations in registration order
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// MaterializedViews returns the registered materialized view declarations in
// registration order
func (r *Registry) MaterializedViews() []*MaterializedView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matviews []*MaterializedView
	for _, name := range r.order {
		if mv, ok := r.defs[name].(*MaterializedView); ok {
			matviews = append(matviews, mv)
		}
	}
	return matviews
}

// Lookup returns the declaration registered under name
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Len returns the number of registered declarations
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Catalog converts the registry into the desired-state catalog for the given
// target schema
func (r *Registry) Catalog(targetSchema string) (*ir.Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog := ir.NewCatalog(targetSchema)
	for _, name := range r.order {
		catalog.SetView(r.defs[name].IR(targetSchema))
	}
	ir.NormalizeCatalog(catalog)
	return catalog, nil
}

// declarationName keys the registry. Declarations naming a schema explicitly
// are keyed by qualified name so the same view name may exist per schema.
func declarationName(def Definition) string {
	switch d := def.(type) {
	case *View:
		return qualifyDeclaration(d.Schema, d.Name)
	case *MaterializedView:
		return qualifyDeclaration(d.Schema, d.Name)
	default:
		v := def.IR("")
		return qualifyDeclaration(v.Schema, v.Name)
	}
}

func qualifyDeclaration(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
