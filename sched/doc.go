// Package sched implements a resource-oriented round scheduler.
//
// Independently authored units of work (systems) declare, through their
// parameter types, which shared resources they need and in what mode:
// Res[T] for shared read access, Mut[T] for exclusive write access. The
// scheduler holds exactly one instance of each resource type in a type-keyed
// store and drives full rounds over the registered systems in registration
// order.
//
// Before any system touches a resource, its accesses are recorded in a
// round-wide AccessSet. Two reads of the same type are compatible; any pair
// involving a write conflicts and aborts the round. The set accumulates
// across all systems of a round and clears only when the round completes, so
// a successful round proves that its systems could have run concurrently —
// even though this scheduler executes them one at a time.
//
//	s := sched.New()
//	sched.AddResource(s, 0)
//	sched.AddSystem1(s, func(n sched.Mut[int]) { *n.Value() += 1 })
//	err := s.Run() // the write round
//	sched.AddSystem1... // a later round may read what the write round left
//
// Note that a write and a read of the same type conflict even across two
// systems of the same round; split them across rounds instead.
package sched
