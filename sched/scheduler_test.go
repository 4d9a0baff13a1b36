package sched_test

import (
	"errors"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/schedlab/resched/sched"
)

type position struct {
	X, Y int
}

type velocity struct {
	DX, DY int
}

var _ = Describe("Scheduler", func() {
	var s *sched.Scheduler

	BeforeEach(func() {
		s = sched.New()
	})

	It("should deliver a registered resource to a shared view", func() {
		sched.AddResource(s, 7)

		observed := 0
		sched.AddSystem1(s, func(n sched.Res[int]) {
			observed = n.Value()
		})

		Expect(s.Run()).To(Succeed())
		Expect(observed).To(Equal(7))
	})

	It("should let a later registration overwrite a resource", func() {
		sched.AddResource(s, 5)
		sched.AddResource(s, 9)

		observed := 0
		sched.AddSystem1(s, func(n sched.Res[int]) {
			observed = n.Value()
		})

		Expect(s.Run()).To(Succeed())
		Expect(observed).To(Equal(9))
	})

	It("should let two systems read the same resource in one round", func() {
		sched.AddResource(s, 21)

		first, second := 0, 0
		sched.AddSystem1(s, func(n sched.Res[int]) {
			first = n.Value()
		})
		sched.AddSystem1(s, func(n sched.Res[int]) {
			second = n.Value()
		})

		Expect(s.Run()).To(Succeed())
		Expect(first).To(Equal(21))
		Expect(second).To(Equal(first))
	})

	It("should reject a write and a read of one type in the same round", func() {
		sched.AddResource(s, 0)

		writerRan := false
		readerRan := false
		sched.AddSystem1(s, func(n sched.Mut[int]) {
			writerRan = true
			*n.Value() = 1
		})
		sched.AddSystem1(s, func(n sched.Res[int]) {
			readerRan = true
		})

		err := s.Run()

		Expect(err).To(HaveOccurred())

		var conflict *sched.ConflictError
		Expect(errors.As(err, &conflict)).To(BeTrue())
		Expect(conflict.Type).To(Equal(reflect.TypeFor[int]()))
		Expect(conflict.Held).To(Equal(sched.AccessWrite))
		Expect(conflict.Requested).To(Equal(sched.AccessRead))
		Expect(err.Error()).To(ContainSubstring("int"))

		Expect(writerRan).To(BeTrue())
		Expect(readerRan).To(BeFalse())
	})

	It("should reject two writes of one type in the same round", func() {
		sched.AddResource(s, 0)

		sched.AddSystem1(s, func(n sched.Mut[int]) {})
		secondRan := false
		sched.AddSystem1(s, func(n sched.Mut[int]) {
			secondRan = true
		})

		err := s.Run()

		var conflict *sched.ConflictError
		Expect(errors.As(err, &conflict)).To(BeTrue())
		Expect(conflict.Held).To(Equal(sched.AccessWrite))
		Expect(conflict.Requested).To(Equal(sched.AccessWrite))
		Expect(secondRan).To(BeFalse())
	})

	It("should not run systems after the first conflicting one", func() {
		sched.AddResource(s, 0)

		sched.AddSystem1(s, func(n sched.Mut[int]) {})
		sched.AddSystem1(s, func(n sched.Res[int]) {
			Fail("conflicting system must not run")
		})
		thirdRan := false
		sched.AddSystem0(s, func() {
			thirdRan = true
		})

		Expect(s.Run()).To(HaveOccurred())
		Expect(thirdRan).To(BeFalse())
	})

	It("should execute systems in registration order", func() {
		var order []string

		sched.AddSystem0(s, func() {
			order = append(order, "first")
		})
		sched.AddSystem0(s, func() {
			order = append(order, "second")
		})
		sched.AddSystem0(s, func() {
			order = append(order, "third")
		})

		Expect(s.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"first", "second", "third"}))
	})

	It("should make one round's writes visible to the next round", func() {
		sched.AddResource(s, 0)

		sched.AddSystem1(s, func(n sched.Mut[int]) {
			*n.Value() += 1
		})

		Expect(s.Run()).To(Succeed())
		Expect(s.Run()).To(Succeed())

		boxed, ok := s.Resource(reflect.TypeFor[int]())
		Expect(ok).To(BeTrue())
		Expect(*boxed.(*int)).To(Equal(2))
	})

	It("should clear the access set between rounds", func() {
		sched.AddResource(s, position{X: 1})
		sched.AddResource(s, velocity{DX: 2})

		rounds := 0
		sched.AddSystem2(s, func(p sched.Mut[position], v sched.Res[velocity]) {
			p.Value().X += v.Value().DX
			rounds++
		})

		Expect(s.Run()).To(Succeed())
		Expect(s.Run()).To(Succeed())

		Expect(rounds).To(Equal(2))
		Expect(s.Rounds()).To(Equal(2))

		boxed, _ := s.Resource(reflect.TypeFor[position]())
		Expect(boxed.(*position).X).To(Equal(5))
	})

	It("should stay dirty after an aborted round until Reset", func() {
		sched.AddResource(s, 0)

		sched.AddSystem1(s, func(n sched.Mut[int]) {})
		sched.AddSystem1(s, func(n sched.Mut[int]) {})

		var conflict *sched.ConflictError

		err := s.Run()
		Expect(errors.As(err, &conflict)).To(BeTrue())

		err = s.Run()
		Expect(err).To(HaveOccurred())
		Expect(errors.As(err, &conflict)).To(BeFalse())
		Expect(err.Error()).To(ContainSubstring("not empty"))

		s.Reset()

		err = s.Run()
		Expect(errors.As(err, &conflict)).To(BeTrue())
	})

	It("should panic when a system requests an unregistered resource", func() {
		sched.AddSystem1(s, func(n sched.Res[float64]) {})

		Expect(func() {
			_ = s.Run()
		}).To(PanicWith(BeAssignableToTypeOf(&sched.MissingResourceError{})))
	})

	It("should dispatch systems of every supported arity", func() {
		sched.AddResource(s, 1)
		sched.AddResource(s, "two")
		sched.AddResource(s, 3.0)
		sched.AddResource(s, position{X: 4})

		ran := 0
		sched.AddSystem0(s, func() { ran++ })
		sched.AddSystem1(s, func(a sched.Res[int]) {
			Expect(a.Value()).To(Equal(1))
			ran++
		})
		sched.AddSystem2(s, func(a sched.Res[int], b sched.Res[string]) {
			Expect(b.Value()).To(Equal("two"))
			ran++
		})
		sched.AddSystem3(s, func(
			a sched.Res[int], b sched.Res[string], c sched.Res[float64],
		) {
			Expect(c.Value()).To(Equal(3.0))
			ran++
		})
		sched.AddSystem4(s, func(
			a sched.Res[int], b sched.Res[string], c sched.Res[float64],
			d sched.Res[position],
		) {
			Expect(d.Value().X).To(Equal(4))
			ran++
		})

		Expect(s.Run()).To(Succeed())
		Expect(ran).To(Equal(5))
	})

	It("should report static access declarations", func() {
		sys := sched.AddSystem2(s,
			func(p sched.Mut[position], v sched.Res[velocity]) {})

		decls := sys.Accesses()
		Expect(decls).To(HaveLen(2))
		Expect(decls[0].Type).To(Equal(reflect.TypeFor[position]()))
		Expect(decls[0].Mode).To(Equal(sched.AccessWrite))
		Expect(decls[1].Type).To(Equal(reflect.TypeFor[velocity]()))
		Expect(decls[1].Mode).To(Equal(sched.AccessRead))
	})

	It("should list registered resource types", func() {
		sched.AddResource(s, 0)
		sched.AddResource(s, position{})

		types := s.ResourceTypes()
		Expect(types).To(HaveLen(2))
	})
})
