package sched

import (
	"fmt"
	"reflect"

	"github.com/rs/xid"

	"github.com/schedlab/resched/hooking"
)

// Hook positions raised by a Scheduler.
var (
	// HookPosRoundStart fires before the first system of a round. Item is a
	// RoundInfo.
	HookPosRoundStart = &hooking.HookPos{Name: "RoundStart"}

	// HookPosRoundEnd fires after a round completed with its access set
	// cleared. Item is a RoundInfo.
	HookPosRoundEnd = &hooking.HookPos{Name: "RoundEnd"}

	// HookPosSystemStart fires before a system declares its accesses. Item is
	// a SystemInfo.
	HookPosSystemStart = &hooking.HookPos{Name: "SystemStart"}

	// HookPosSystemEnd fires after a system's function returned. Item is a
	// SystemInfo.
	HookPosSystemEnd = &hooking.HookPos{Name: "SystemEnd"}

	// HookPosConflict fires when a declaration aborts the round. Item is a
	// SystemInfo; Detail is the error.
	HookPosConflict = &hooking.HookPos{Name: "Conflict"}
)

// RoundInfo describes one scheduling round to hooks.
type RoundInfo struct {
	SchedulerID string
	Round       int
}

// SystemInfo describes one system execution within a round to hooks.
type SystemInfo struct {
	SchedulerID string
	Round       int
	Index       int
	Name        string
	Accesses    []AccessDecl
}

// A Scheduler owns the resource store, the round access set, and an ordered
// list of systems, and drives full execution rounds over them.
//
// A round validates that the union of all systems' declared accesses is
// internally conflict-free. The validation scope is deliberately the whole
// round rather than each system on its own: the rounds this scheduler accepts
// are exactly the rounds a concurrent scheduler could run in parallel, even
// though execution here is strictly sequential in registration order.
type Scheduler struct {
	*hooking.HookableBase

	id       string
	store    *Store
	accesses *AccessSet
	systems  []System
	rounds   int
}

// New creates a Scheduler with no resources and no systems.
func New() *Scheduler {
	return &Scheduler{
		HookableBase: hooking.NewHookableBase(),
		id:           xid.New().String(),
		store:        NewStore(),
		accesses:     NewAccessSet(),
	}
}

// ID returns the scheduler's unique identifier.
func (s *Scheduler) ID() string {
	return s.id
}

// Rounds returns the number of fully completed rounds.
func (s *Scheduler) Rounds() int {
	return s.rounds
}

// Systems returns the registered systems in registration order.
func (s *Scheduler) Systems() []System {
	return s.systems
}

// ResourceTypes returns the registered resource types.
func (s *Scheduler) ResourceTypes() []reflect.Type {
	return s.store.Types()
}

// Resource returns the boxed pointer to the resource of type t, for
// inspection tooling. Systems must go through parameter views instead.
func (s *Scheduler) Resource(t reflect.Type) (any, bool) {
	if !s.store.Has(t) {
		return nil, false
	}

	return s.store.Cell(t).Value(), true
}

// AddResource installs value as the sole instance of type T in the
// scheduler's store, replacing any previously registered T.
func AddResource[T any](s *Scheduler, value T) {
	s.store.Insert(reflect.TypeFor[T](), &value)
}

// AddSystem0 registers a system with no resource parameters.
func AddSystem0(s *Scheduler, fn func()) System {
	return s.register(&funcSystem0{name: funcName(fn), fn: fn})
}

// AddSystem1 registers a system with one resource parameter.
func AddSystem1[P1 any, X1 paramPtr[P1]](s *Scheduler, fn func(P1)) System {
	return s.register(&funcSystem1[P1, X1]{name: funcName(fn), fn: fn})
}

// AddSystem2 registers a system with two resource parameters.
func AddSystem2[
	P1 any, P2 any,
	X1 paramPtr[P1], X2 paramPtr[P2],
](s *Scheduler, fn func(P1, P2)) System {
	return s.register(&funcSystem2[P1, P2, X1, X2]{name: funcName(fn), fn: fn})
}

// AddSystem3 registers a system with three resource parameters.
func AddSystem3[
	P1 any, P2 any, P3 any,
	X1 paramPtr[P1], X2 paramPtr[P2], X3 paramPtr[P3],
](s *Scheduler, fn func(P1, P2, P3)) System {
	return s.register(
		&funcSystem3[P1, P2, P3, X1, X2, X3]{name: funcName(fn), fn: fn})
}

// AddSystem4 registers a system with four resource parameters.
func AddSystem4[
	P1 any, P2 any, P3 any, P4 any,
	X1 paramPtr[P1], X2 paramPtr[P2], X3 paramPtr[P3], X4 paramPtr[P4],
](s *Scheduler, fn func(P1, P2, P3, P4)) System {
	return s.register(
		&funcSystem4[P1, P2, P3, P4, X1, X2, X3, X4]{
			name: funcName(fn), fn: fn})
}

func (s *Scheduler) register(sys System) System {
	s.systems = append(s.systems, sys)
	return sys
}

// Run executes one full round: every system, in registration order, under one
// shared access set.
//
// Each system first declares all of its accesses. The first conflicting
// declaration aborts the round with a *ConflictError; no later system
// executes, and mutations already performed by earlier systems are not rolled
// back. Only a fully successful round clears the access set, so a conflicted
// scheduler keeps failing until Reset is called.
func (s *Scheduler) Run() error {
	if s.accesses.Len() != 0 {
		return fmt.Errorf(
			"sched: access set is not empty at round entry; " +
				"a previous round aborted and the scheduler was not reset")
	}

	round := RoundInfo{SchedulerID: s.id, Round: s.rounds}
	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosRoundStart,
		Item:   round,
	})

	for i, sys := range s.systems {
		info := SystemInfo{
			SchedulerID: s.id,
			Round:       s.rounds,
			Index:       i,
			Name:        sys.Name(),
			Accesses:    sys.Accesses(),
		}

		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosSystemStart,
			Item:   info,
		})

		if err := sys.run(s.store, s.accesses); err != nil {
			s.InvokeHook(hooking.HookCtx{
				Domain: s,
				Pos:    HookPosConflict,
				Item:   info,
				Detail: err,
			})

			return fmt.Errorf("sched: round %d aborted at system %s: %w",
				s.rounds, sys.Name(), err)
		}

		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosSystemEnd,
			Item:   info,
		})
	}

	s.accesses.Clear()
	s.rounds++

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosRoundEnd,
		Item:   round,
	})

	return nil
}

// Reset discards the access set of an aborted round so the scheduler can run
// again. Resource values are left as the aborted round last saw them.
func (s *Scheduler) Reset() {
	s.accesses.Clear()
}
