package schema

import (
	"errors"
	"fmt"
)

// ErrDuplicateTable reports two declarations sharing a name.
var ErrDuplicateTable = errors.New("duplicate table declaration")

// Registry is the immutable set of table declarations, built once at startup.
type Registry struct {
	byName map[string]Table
	order  []string
}

// NewRegistry creates a registry from table declarations. Lookup order is
// irrelevant; enumeration preserves declaration order.
func NewRegistry(tables ...Table) (Registry, error) {
	r := Registry{
		byName: make(map[string]Table, len(tables)),
		order:  make([]string, 0, len(tables)),
	}
	for _, t := range tables {
		if _, exists := r.byName[t.Name()]; exists {
			return Registry{}, fmt.Errorf("%w: %q", ErrDuplicateTable, t.Name())
		}
		r.byName[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r, nil
}

// Lookup returns the declaration for name.
func (r Registry) Lookup(name string) (Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tables returns all declarations in declaration order.
func (r Registry) Tables() []Table {
	result := make([]Table, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.byName[name])
	}
	return result
}

// Names returns the declared table names in declaration order.
func (r Registry) Names() []string {
	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Len returns the number of declared tables.
func (r Registry) Len() int {
	return len(r.order)
}
