package sched

import (
	"fmt"
	"reflect"
)

// Access is the mode in which a system parameter uses a resource.
type Access int

// Enumeration of access modes.
const (
	// AccessRead is shared, read-only access. Any number of readers may
	// coexist within one round.
	AccessRead Access = iota

	// AccessWrite is exclusive, read-write access. A writer excludes every
	// other access to the same resource type within the round.
	AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "Read"
	case AccessWrite:
		return "Write"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// A ConflictError reports two declared accesses to the same resource type
// within one round where at least one is exclusive. It aborts the round that
// raised it.
type ConflictError struct {
	Type      reflect.Type
	Held      Access
	Requested Access
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"sched: conflicting access to %s: requested %s while already held as %s",
		e.Type, e.Requested, e.Held)
}

// An AccessSet accumulates the accesses declared by the systems of one round
// and rejects any pair that could not safely run concurrently.
//
// The set is the single safety gate of the scheduler: a parameter may only be
// materialized under a Grant returned by Record, so every unchecked retrieval
// is preceded by a successful conflict check for the same (type, mode) pair.
type AccessSet struct {
	modes map[reflect.Type]Access
	round uint64
}

// NewAccessSet creates an empty AccessSet.
func NewAccessSet() *AccessSet {
	return &AccessSet{modes: make(map[reflect.Type]Access)}
}

// Record declares one access. If the type is not yet present, the mode is
// stored. A repeated Read is a no-op. Any pairing that involves a Write
// returns a *ConflictError and leaves the set unchanged.
//
// On success, Record returns a Grant that proves the declaration was checked
// against this set. Grants are only producible here; Param.Materialize
// requires one, which makes retrieval-without-declaration inexpressible.
func (s *AccessSet) Record(t reflect.Type, mode Access) (Grant, error) {
	held, ok := s.modes[t]
	if !ok {
		s.modes[t] = mode
		return Grant{set: s, target: t, mode: mode, round: s.round}, nil
	}

	if held == AccessRead && mode == AccessRead {
		return Grant{set: s, target: t, mode: mode, round: s.round}, nil
	}

	return Grant{}, &ConflictError{Type: t, Held: held, Requested: mode}
}

// Mode returns the mode currently held for t, if any.
func (s *AccessSet) Mode(t reflect.Type) (Access, bool) {
	mode, ok := s.modes[t]
	return mode, ok
}

// Len returns the number of resource types with a recorded access.
func (s *AccessSet) Len() int {
	return len(s.modes)
}

// Clear empties the set. The scheduler calls Clear exactly once per fully
// successful round, after all systems have executed. Clearing invalidates
// every Grant issued before it, so a retained Grant cannot cover a later
// round.
func (s *AccessSet) Clear() {
	clear(s.modes)
	s.round++
}

// A Grant proves that one (type, mode) access has been recorded in an
// AccessSet without a conflict, during the round the set is currently
// accumulating. The zero Grant proves nothing.
type Grant struct {
	set    *AccessSet
	target reflect.Type
	mode   Access
	round  uint64
}

// covers reports whether the grant was issued for type t in mode, by a set
// that has not been cleared since.
func (g Grant) covers(t reflect.Type, mode Access) bool {
	return g.set != nil && g.target == t && g.mode == mode &&
		g.round == g.set.round
}
