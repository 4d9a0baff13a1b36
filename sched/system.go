package sched

import (
	"reflect"
	"runtime"
	"strings"
)

// A System is one schedulable unit of work together with its declared
// resource accesses. Systems are created by the AddSystem family and owned by
// the scheduler's ordered list; they are immutable after registration except
// for state captured inside the wrapped function.
type System interface {
	// Name identifies the system in hooks, traces, and diagnostics.
	Name() string

	// Accesses returns the static access declarations of the system's
	// parameters, in declaration order.
	Accesses() []AccessDecl

	// run declares every parameter against the round's access set, then, only
	// if no declaration conflicted, materializes the parameters in the same
	// order and invokes the wrapped function.
	run(store *Store, set *AccessSet) error
}

// paramPtr constrains X to be the pointer to a parameter wrapper P that
// implements the Param protocol. The indirection lets the AddSystem family
// accept functions taking parameters by value while binding them through
// their pointer methods.
type paramPtr[P any] interface {
	*P
	Param
}

// funcName derives a readable system name from the registered function.
func funcName(fn any) string {
	full := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()

	if idx := strings.LastIndex(full, "/"); idx >= 0 {
		full = full[idx+1:]
	}

	return strings.TrimSuffix(full, "-fm")
}

type funcSystem0 struct {
	name string
	fn   func()
}

func (s *funcSystem0) Name() string { return s.name }

func (s *funcSystem0) Accesses() []AccessDecl { return nil }

func (s *funcSystem0) run(_ *Store, _ *AccessSet) error {
	s.fn()
	return nil
}

type funcSystem1[P1 any, X1 paramPtr[P1]] struct {
	name string
	fn   func(P1)
}

func (s *funcSystem1[P1, X1]) Name() string { return s.name }

func (s *funcSystem1[P1, X1]) Accesses() []AccessDecl {
	var p1 P1
	return []AccessDecl{X1(&p1).Decl()}
}

func (s *funcSystem1[P1, X1]) run(store *Store, set *AccessSet) error {
	var p1 P1

	g1, err := X1(&p1).DeclareAccess(set)
	if err != nil {
		return err
	}

	X1(&p1).Materialize(g1, store)

	s.fn(p1)

	return nil
}

type funcSystem2[
	P1 any, P2 any,
	X1 paramPtr[P1], X2 paramPtr[P2],
] struct {
	name string
	fn   func(P1, P2)
}

func (s *funcSystem2[P1, P2, X1, X2]) Name() string { return s.name }

func (s *funcSystem2[P1, P2, X1, X2]) Accesses() []AccessDecl {
	var (
		p1 P1
		p2 P2
	)

	return []AccessDecl{X1(&p1).Decl(), X2(&p2).Decl()}
}

func (s *funcSystem2[P1, P2, X1, X2]) run(store *Store, set *AccessSet) error {
	var (
		p1 P1
		p2 P2
	)

	g1, err := X1(&p1).DeclareAccess(set)
	if err != nil {
		return err
	}

	g2, err := X2(&p2).DeclareAccess(set)
	if err != nil {
		return err
	}

	X1(&p1).Materialize(g1, store)
	X2(&p2).Materialize(g2, store)

	s.fn(p1, p2)

	return nil
}

type funcSystem3[
	P1 any, P2 any, P3 any,
	X1 paramPtr[P1], X2 paramPtr[P2], X3 paramPtr[P3],
] struct {
	name string
	fn   func(P1, P2, P3)
}

func (s *funcSystem3[P1, P2, P3, X1, X2, X3]) Name() string { return s.name }

func (s *funcSystem3[P1, P2, P3, X1, X2, X3]) Accesses() []AccessDecl {
	var (
		p1 P1
		p2 P2
		p3 P3
	)

	return []AccessDecl{X1(&p1).Decl(), X2(&p2).Decl(), X3(&p3).Decl()}
}

func (s *funcSystem3[P1, P2, P3, X1, X2, X3]) run(
	store *Store,
	set *AccessSet,
) error {
	var (
		p1 P1
		p2 P2
		p3 P3
	)

	g1, err := X1(&p1).DeclareAccess(set)
	if err != nil {
		return err
	}

	g2, err := X2(&p2).DeclareAccess(set)
	if err != nil {
		return err
	}

	g3, err := X3(&p3).DeclareAccess(set)
	if err != nil {
		return err
	}

	X1(&p1).Materialize(g1, store)
	X2(&p2).Materialize(g2, store)
	X3(&p3).Materialize(g3, store)

	s.fn(p1, p2, p3)

	return nil
}

type funcSystem4[
	P1 any, P2 any, P3 any, P4 any,
	X1 paramPtr[P1], X2 paramPtr[P2], X3 paramPtr[P3], X4 paramPtr[P4],
] struct {
	name string
	fn   func(P1, P2, P3, P4)
}

func (s *funcSystem4[P1, P2, P3, P4, X1, X2, X3, X4]) Name() string {
	return s.name
}

func (s *funcSystem4[P1, P2, P3, P4, X1, X2, X3, X4]) Accesses() []AccessDecl {
	var (
		p1 P1
		p2 P2
		p3 P3
		p4 P4
	)

	return []AccessDecl{
		X1(&p1).Decl(), X2(&p2).Decl(), X3(&p3).Decl(), X4(&p4).Decl(),
	}
}

func (s *funcSystem4[P1, P2, P3, P4, X1, X2, X3, X4]) run(
	store *Store,
	set *AccessSet,
) error {
	var (
		p1 P1
		p2 P2
		p3 P3
		p4 P4
	)

	g1, err := X1(&p1).DeclareAccess(set)
	if err != nil {
		return err
	}

	g2, err := X2(&p2).DeclareAccess(set)
	if err != nil {
		return err
	}

	g3, err := X3(&p3).DeclareAccess(set)
	if err != nil {
		return err
	}

	g4, err := X4(&p4).DeclareAccess(set)
	if err != nil {
		return err
	}

	X1(&p1).Materialize(g1, store)
	X2(&p2).Materialize(g2, store)
	X3(&p3).Materialize(g3, store)
	X4(&p4).Materialize(g4, store)

	s.fn(p1, p2, p3, p4)

	return nil
}
