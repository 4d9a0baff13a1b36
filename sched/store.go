package sched

import (
	"fmt"
	"reflect"
	"sort"
)

// A MissingResourceError reports a request for a resource type that was never
// registered, or a type-erased value that failed to recover as its recorded
// type. Both are programmer defects, so the error is raised through panic
// rather than returned.
type MissingResourceError struct {
	Type reflect.Type
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("sched: resource %s is not registered", e.Type)
}

// A Cell holds one type-erased resource value. All views of the resource,
// shared or exclusive, alias the value in the cell; the AccessSet is the sole
// arbiter of who may hold which view in a given round.
type Cell struct {
	value any
}

// Value returns the boxed resource, a pointer to the registered value.
func (c *Cell) Value() any {
	return c.value
}

// A Store maps each resource type to the single cell holding its value.
// The store performs no aliasing checks of its own.
type Store struct {
	cells map[reflect.Type]*Cell
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{cells: make(map[reflect.Type]*Cell)}
}

// Insert installs value as the sole instance of type t, replacing any
// existing instance. The value must be a pointer to the resource.
func (s *Store) Insert(t reflect.Type, value any) {
	s.cells[t] = &Cell{value: value}
}

// Cell returns the cell for type t. It panics with *MissingResourceError if
// no resource of that type was ever inserted.
func (s *Store) Cell(t reflect.Type) *Cell {
	c, ok := s.cells[t]
	if !ok {
		panic(&MissingResourceError{Type: t})
	}

	return c
}

// Has reports whether a resource of type t is registered.
func (s *Store) Has(t reflect.Type) bool {
	_, ok := s.cells[t]
	return ok
}

// Types returns the registered resource types, sorted by name for stable
// inspection output.
func (s *Store) Types() []reflect.Type {
	types := make([]reflect.Type, 0, len(s.cells))
	for t := range s.cells {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})

	return types
}
