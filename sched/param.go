package sched

import (
	"fmt"
	"reflect"
)

// An AccessDecl is the static declaration of one parameter: which resource
// type it targets and in which mode.
type AccessDecl struct {
	Type reflect.Type
	Mode Access
}

func (d AccessDecl) String() string {
	return fmt.Sprintf("%s %s", d.Mode, d.Type)
}

// Param is the capability protocol that a system parameter type implements.
//
// The two operations split "prove the access is safe" from "hand out the
// value". DeclareAccess is purely informational and may fail; Materialize
// performs the aliasing-unsafe retrieval and requires a Grant, which only a
// successful DeclareAccess can produce. The scheduler declares every
// parameter of a system before materializing any of them, so a conflict
// anywhere aborts before a single view has been handed out.
type Param interface {
	// DeclareAccess records this parameter's (type, mode) pair in the
	// round's access set.
	DeclareAccess(set *AccessSet) (Grant, error)

	// Materialize binds this parameter to the live resource cell.
	//
	// The grant must come from a DeclareAccess call for this parameter in
	// the current round. Under that precondition the returned view cannot
	// alias a conflicting view, because the access set has rejected every
	// incompatible declaration. Materialize panics with
	// *MissingResourceError when the resource was never registered.
	Materialize(g Grant, store *Store)

	// Decl returns the static access declaration of this parameter.
	Decl() AccessDecl
}

// Res is a shared, read-only view of the resource of type T. Many systems in
// one round may hold a Res of the same type.
//
// The view is scoped to one system invocation and must not be retained.
type Res[T any] struct {
	value *T
}

// Value returns a copy of the resource value.
func (r Res[T]) Value() T {
	return *r.value
}

// DeclareAccess records a Read access for T.
func (r *Res[T]) DeclareAccess(set *AccessSet) (Grant, error) {
	return set.Record(reflect.TypeFor[T](), AccessRead)
}

// Materialize binds the view to the cell holding T.
func (r *Res[T]) Materialize(g Grant, store *Store) {
	r.value = resolve[T](g, store, AccessRead)
}

// Decl returns the static access declaration.
func (r *Res[T]) Decl() AccessDecl {
	return AccessDecl{Type: reflect.TypeFor[T](), Mode: AccessRead}
}

// Mut is an exclusive, read-write view of the resource of type T. A Mut of a
// type excludes every other view of that type within the round.
//
// The view is scoped to one system invocation and must not be retained.
type Mut[T any] struct {
	value *T
}

// Value returns the resource for in-place mutation.
func (m Mut[T]) Value() *T {
	return m.value
}

// DeclareAccess records a Write access for T.
func (m *Mut[T]) DeclareAccess(set *AccessSet) (Grant, error) {
	return set.Record(reflect.TypeFor[T](), AccessWrite)
}

// Materialize binds the view to the cell holding T.
func (m *Mut[T]) Materialize(g Grant, store *Store) {
	m.value = resolve[T](g, store, AccessWrite)
}

// Decl returns the static access declaration.
func (m *Mut[T]) Decl() AccessDecl {
	return AccessDecl{Type: reflect.TypeFor[T](), Mode: AccessWrite}
}

// resolve recovers the typed pointer behind the cell for T. The grant check
// catches materialize calls paired with the wrong or a stale declaration —
// the grant must name the same type, the same mode, and the live round — and
// a failed recovery means the store's identity bookkeeping is broken; both
// are defects, not runtime conditions.
func resolve[T any](g Grant, store *Store, mode Access) *T {
	t := reflect.TypeFor[T]()
	if !g.covers(t, mode) {
		panic(fmt.Sprintf(
			"sched: materialize of %s %s without a covering grant", mode, t))
	}

	value, ok := store.Cell(t).Value().(*T)
	if !ok {
		panic(&MissingResourceError{Type: t})
	}

	return value
}

var (
	_ Param = (*Res[int])(nil)
	_ Param = (*Mut[int])(nil)
)
