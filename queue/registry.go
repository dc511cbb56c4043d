// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"slices"

	"code.hybscloud.com/lincheck"
)

// Registry is the operation registry of an int queue.
type Registry = lincheck.Registry[*Subject[int], *Ring[int]]

// RetryAttempts is the number of attempts of the "DequeueRetry" variant.
const RetryAttempts = 3

// NewRegistry declares push and pop for int queues.
//
// push draws its argument from values. pop has two variants: a single
// Dequeue and a Dequeue retried with backoff. producers and consumers
// restrict the parallel threads that may push and pop; nil means any.
//
// Example:
//
//	// Thread 0 produces, thread 1 consumes.
//	reg, err := queue.NewRegistry(lincheck.IntGen{Min: 1, Max: 9}, []int{0}, []int{1})
func NewRegistry(values lincheck.Gen, producers, consumers []int) (*Registry, error) {
	return lincheck.NewRegistry(
		lincheck.Operation[*Subject[int], *Ring[int]]{
			Name: "push",
			Args: []lincheck.Gen{values},
			Variants: []lincheck.Variant[*Subject[int]]{{
				Name:    "Enqueue",
				Call:    func(s *Subject[int], args []any) any { return s.Push(args[0].(int)) },
				Threads: producers,
			}},
			Seq: func(r *Ring[int], args []any) any { return r.Push(args[0].(int)) },
		},
		lincheck.Operation[*Subject[int], *Ring[int]]{
			Name: "pop",
			Variants: []lincheck.Variant[*Subject[int]]{
				{
					Name:    "Dequeue",
					Call:    func(s *Subject[int], _ []any) any { return s.Pop() },
					Threads: consumers,
				},
				{
					Name:    "DequeueRetry",
					Call:    func(s *Subject[int], _ []any) any { return s.PopRetry(RetryAttempts) },
					Threads: consumers,
				},
			},
			Seq: func(r *Ring[int], _ []any) any { return r.Pop() },
		},
	)
}

// Kind describes one of the bundled queues.
type Kind struct {
	Name string

	// Broken is set for queues known not to be linearizable.
	Broken bool

	// Producers and Consumers bind push and pop to parallel threads.
	// Nil means any thread.
	Producers []int
	Consumers []int

	// New creates a queue. Unbounded queues ignore capacity.
	New func(capacity int) Queue[int]
}

var kinds = []Kind{
	{
		Name:      "spsc",
		Producers: []int{0},
		Consumers: []int{1},
		New:       func(capacity int) Queue[int] { return NewSPSC[int](capacity) },
	},
	{
		Name: "mpmc",
		New:  func(capacity int) Queue[int] { return NewMPMC[int](capacity) },
	},
	{
		Name:      "mpsc",
		Consumers: []int{0},
		New:       func(capacity int) Queue[int] { return NewMPSC[int](capacity) },
	},
	{
		Name:      "spmc",
		Producers: []int{0},
		New:       func(capacity int) Queue[int] { return NewSPMC[int](capacity) },
	},
	{
		Name: "ms",
		New:  func(int) Queue[int] { return NewMS[int]() },
	},
	{
		Name:   "racy",
		Broken: true,
		New:    func(capacity int) Queue[int] { return NewRacy[int](capacity) },
	},
}

// Kinds returns the bundled queues.
func Kinds() []Kind {
	return slices.Clone(kinds)
}

// LookupKind returns the bundled queue with the given name.
func LookupKind(name string) (Kind, bool) {
	i := slices.IndexFunc(kinds, func(k Kind) bool { return k.Name == name })
	if i < 0 {
		return Kind{}, false
	}
	return kinds[i], true
}

// Registry builds the registry of k with its thread bindings.
func (k Kind) Registry(values lincheck.Gen) (*Registry, error) {
	return NewRegistry(values, k.Producers, k.Consumers)
}

// Factories returns the object and model factories of k. The model has the
// queue's actual capacity, after rounding.
func (k Kind) Factories(capacity int) (newObject func() *Subject[int], newModel func() *Ring[int]) {
	modelCap := k.New(capacity).Cap()
	newObject = func() *Subject[int] { return NewSubject(k.New(capacity)) }
	newModel = func() *Ring[int] { return NewRing[int](modelCap) }
	return newObject, newModel
}
