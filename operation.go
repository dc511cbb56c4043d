// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"slices"

	"github.com/pkg/errors"
)

// Variant is one concurrent entry point of a logical operation.
//
// Several variants may implement the same operation, for example a
// non-blocking and a spinning dequeue. All of them are checked against the
// same sequential counterpart.
type Variant[C any] struct {
	// Name labels the entry point in reports, e.g. "Enqueue".
	Name string

	// Call invokes the entry point on the object under test.
	// Business-level failures (queue full, queue empty) must be returned as
	// values; a panic is recorded as [Panicked].
	Call func(obj C, args []any) any

	// Threads lists the parallel threads allowed to call this variant.
	// Empty means any thread. Used to honor single-producer or
	// single-consumer constraints of the object under test.
	Threads []int
}

// allows reports whether the variant may run on the given parallel thread.
func (v *Variant[C]) allows(thread int) bool {
	return len(v.Threads) == 0 || slices.Contains(v.Threads, thread)
}

// Operation declares one logical operation of the object under test.
type Operation[C, S any] struct {
	// Name is unique within a registry.
	Name string

	// Args holds one generator per argument. Nil or empty for
	// zero-argument operations.
	Args []Gen

	// Weight is the relative selection weight. Zero means 1.
	Weight int

	// Variants are the concurrent entry points. At least one is required.
	Variants []Variant[C]

	// Seq applies the operation to the sequential model and returns the
	// result the object under test is expected to return.
	Seq func(model S, args []any) any
}

func (op *Operation[C, S]) weight() int {
	if op.Weight <= 0 {
		return 1
	}
	return op.Weight
}

// callableOn reports whether at least one variant may run on thread.
func (op *Operation[C, S]) callableOn(thread int) bool {
	for i := range op.Variants {
		if op.Variants[i].allows(thread) {
			return true
		}
	}
	return false
}

// Registry is the closed, validated set of operations of one object type.
// A Registry is immutable and safe for concurrent use.
type Registry[C any, S Sequential[S]] struct {
	ops    []Operation[C, S]
	byName map[string]int
}

// NewRegistry validates ops and builds a registry.
//
// Returns an error wrapping [ErrConfig] if ops is empty, if a name is empty
// or duplicated, if an operation has no variants, or if any handler or
// generator is nil.
//
// Example:
//
//	reg, err := lincheck.NewRegistry(
//	    lincheck.Operation[*Counter, *SeqCounter]{
//	        Name:     "inc",
//	        Variants: []lincheck.Variant[*Counter]{{Name: "Inc", Call: func(c *Counter, _ []any) any { return c.Inc() }}},
//	        Seq:      func(s *SeqCounter, _ []any) any { return s.Inc() },
//	    },
//	)
func NewRegistry[C any, S Sequential[S]](ops ...Operation[C, S]) (*Registry[C, S], error) {
	if len(ops) == 0 {
		return nil, configErrorf("registry has no operations")
	}
	r := &Registry[C, S]{
		ops:    make([]Operation[C, S], len(ops)),
		byName: make(map[string]int, len(ops)),
	}
	for i, op := range ops {
		if op.Name == "" {
			return nil, configErrorf("operation #%d has no name", i)
		}
		if _, dup := r.byName[op.Name]; dup {
			return nil, configErrorf("operation %q registered twice", op.Name)
		}
		if op.Seq == nil {
			return nil, configErrorf("operation %q has no sequential counterpart", op.Name)
		}
		if len(op.Variants) == 0 {
			return nil, configErrorf("operation %q has no variants", op.Name)
		}
		for j, g := range op.Args {
			if g == nil {
				return nil, configErrorf("operation %q argument #%d has no generator", op.Name, j)
			}
			if v, ok := g.(interface{ validate() error }); ok {
				if err := v.validate(); err != nil {
					return nil, errors.WithMessagef(err, "operation %q argument #%d", op.Name, j)
				}
			}
		}
		seen := make(map[string]struct{}, len(op.Variants))
		for _, v := range op.Variants {
			if v.Call == nil {
				return nil, configErrorf("operation %q variant %q has no entry point", op.Name, v.Name)
			}
			if _, dup := seen[v.Name]; dup {
				return nil, configErrorf("operation %q has duplicate variant %q", op.Name, v.Name)
			}
			seen[v.Name] = struct{}{}
			for _, t := range v.Threads {
				if t < 0 {
					return nil, configErrorf("operation %q variant %q binds negative thread %d", op.Name, v.Name, t)
				}
			}
		}
		op.Args = slices.Clone(op.Args)
		op.Variants = slices.Clone(op.Variants)
		r.ops[i] = op
		r.byName[op.Name] = i
	}
	return r, nil
}

// Len returns the number of registered operations.
func (r *Registry[C, S]) Len() int {
	return len(r.ops)
}

// Lookup returns the index of the named operation.
func (r *Registry[C, S]) Lookup(name string) (int, bool) {
	i, ok := r.byName[name]
	return i, ok
}

// Name returns the name of operation i.
func (r *Registry[C, S]) Name(i int) string {
	return r.ops[i].Name
}

func (r *Registry[C, S]) op(i int) *Operation[C, S] {
	return &r.ops[i]
}

// validateThreads checks that each of n parallel threads can call at least
// one operation and that no variant binds a thread outside [0, n).
func (r *Registry[C, S]) validateThreads(n int) error {
	for t := range n {
		callable := false
		for i := range r.ops {
			if r.ops[i].callableOn(t) {
				callable = true
				break
			}
		}
		if !callable {
			return configErrorf("thread %d cannot call any operation", t)
		}
	}
	for i := range r.ops {
		for _, v := range r.ops[i].Variants {
			for _, t := range v.Threads {
				if t >= n {
					return configErrorf("operation %q variant %q binds thread %d, but only %d threads run",
						r.ops[i].Name, v.Name, t, n)
				}
			}
		}
	}
	return nil
}

// describe renders an actor as "name(args)" for reports.
func (r *Registry[C, S]) describe(a *Actor) string {
	op := r.op(a.Op)
	name := op.Name
	if len(op.Variants) > 1 {
		name += "." + op.Variants[a.Variant].Name
	}
	return name + "(" + formatArgs(a.Args) + ")"
}

// ActorRef is the portable form of an [Actor]. Arguments are re-derived
// from Seed when the reference is resolved; Args keeps their rendering so
// that a reference resolved against a different argument domain is
// detected instead of silently running other arguments.
type ActorRef struct {
	Op      string   `json:"op" yaml:"op"`
	Variant string   `json:"variant" yaml:"variant"`
	Seed    uint64   `json:"seed" yaml:"seed"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// ScenarioRef is the portable form of a [Scenario].
type ScenarioRef struct {
	Init     []ActorRef   `json:"init,omitempty" yaml:"init,omitempty"`
	Parallel [][]ActorRef `json:"parallel" yaml:"parallel"`
	Post     []ActorRef   `json:"post,omitempty" yaml:"post,omitempty"`
}

// Ref converts a scenario to its portable form.
func (r *Registry[C, S]) Ref(s *Scenario) ScenarioRef {
	conv := func(actors []Actor) []ActorRef {
		if len(actors) == 0 {
			return nil
		}
		out := make([]ActorRef, len(actors))
		for i := range actors {
			a := &actors[i]
			op := r.op(a.Op)
			out[i] = ActorRef{Op: op.Name, Variant: op.Variants[a.Variant].Name, Seed: a.Seed}
			for _, v := range a.Args {
				out[i].Args = append(out[i].Args, formatValue(v))
			}
		}
		return out
	}
	ref := ScenarioRef{
		Init:     conv(s.Init),
		Parallel: make([][]ActorRef, len(s.Parallel)),
		Post:     conv(s.Post),
	}
	for t, thread := range s.Parallel {
		ref.Parallel[t] = conv(thread)
	}
	return ref
}

// Resolve rebuilds a scenario from its portable form.
//
// Returns an error wrapping [ErrConfig] if an operation or variant is not
// registered, if a parallel actor uses a variant not allowed on its
// thread, or if the arguments regenerated from an actor's seed differ from
// the recorded ones.
func (r *Registry[C, S]) Resolve(ref ScenarioRef) (*Scenario, error) {
	conv := func(refs []ActorRef, thread int) ([]Actor, error) {
		out := make([]Actor, len(refs))
		for i, ar := range refs {
			opIdx, ok := r.byName[ar.Op]
			if !ok {
				return nil, configErrorf("unknown operation %q", ar.Op)
			}
			op := r.op(opIdx)
			vIdx := slices.IndexFunc(op.Variants, func(v Variant[C]) bool { return v.Name == ar.Variant })
			if vIdx < 0 {
				return nil, configErrorf("operation %q has no variant %q", ar.Op, ar.Variant)
			}
			if thread >= 0 && !op.Variants[vIdx].allows(thread) {
				return nil, configErrorf("variant %s.%s is not allowed on thread %d", ar.Op, ar.Variant, thread)
			}
			out[i] = newActor(op, opIdx, vIdx, ar.Seed)
			if ar.Args == nil {
				continue
			}
			if len(ar.Args) != len(out[i].Args) {
				return nil, configErrorf("%s: recorded %d arguments, operation takes %d", ar.Op, len(ar.Args), len(out[i].Args))
			}
			for j, v := range out[i].Args {
				if got := formatValue(v); got != ar.Args[j] {
					return nil, configErrorf("%s: argument %d regenerates as %s, recorded %s", ar.Op, j, got, ar.Args[j])
				}
			}
		}
		return out, nil
	}
	s := &Scenario{Parallel: make([][]Actor, len(ref.Parallel))}
	var err error
	if s.Init, err = conv(ref.Init, SequentialThread); err != nil {
		return nil, err
	}
	for t, thread := range ref.Parallel {
		if s.Parallel[t], err = conv(thread, t); err != nil {
			return nil, err
		}
	}
	if s.Post, err = conv(ref.Post, SequentialThread); err != nil {
		return nil, err
	}
	return s, nil
}
