// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"math/rand/v2"
	"slices"
)

// SequentialThread is the thread id of the init and post parts, which run
// sequentially before and after the parallel part.
const SequentialThread = -1

// Part identifies a section of a scenario.
type Part uint8

const (
	// PartInit runs sequentially before the parallel part.
	PartInit Part = iota
	// PartParallel runs concurrently, one goroutine per thread.
	PartParallel
	// PartPost runs sequentially after the parallel part.
	PartPost
)

func (p Part) String() string {
	switch p {
	case PartInit:
		return "init"
	case PartParallel:
		return "parallel"
	case PartPost:
		return "post"
	default:
		return "unknown"
	}
}

// Actor is one scheduled call: an operation, the variant used to call it and
// its arguments. Args are derived from Seed, so Actor{Op, Variant, Seed}
// fully determines the call.
type Actor struct {
	Op      int
	Variant int
	Args    []any
	Seed    uint64
}

// newActor derives the arguments of an actor from its seed.
func newActor[C, S any](op *Operation[C, S], opIdx, variant int, seed uint64) Actor {
	a := Actor{Op: opIdx, Variant: variant, Seed: seed}
	if len(op.Args) > 0 {
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		a.Args = make([]any, len(op.Args))
		for i, g := range op.Args {
			a.Args[i] = g.Generate(r)
		}
	}
	return a
}

// Scenario is a declarative execution plan: an init part, one ordered actor
// list per parallel thread, and a post part. A Scenario is immutable once
// generated; derived scenarios are built by copying.
type Scenario struct {
	Init     []Actor
	Parallel [][]Actor
	Post     []Actor
}

// Threads returns the number of parallel threads.
func (s *Scenario) Threads() int {
	return len(s.Parallel)
}

// Size returns the total number of actors.
func (s *Scenario) Size() int {
	n := len(s.Init) + len(s.Post)
	for _, t := range s.Parallel {
		n += len(t)
	}
	return n
}

// clone returns a deep copy of the actor lists. Args are shared: they are
// never mutated.
func (s *Scenario) clone() *Scenario {
	c := &Scenario{
		Init:     slices.Clone(s.Init),
		Parallel: make([][]Actor, len(s.Parallel)),
		Post:     slices.Clone(s.Post),
	}
	for t, thread := range s.Parallel {
		c.Parallel[t] = slices.Clone(thread)
	}
	return c
}

// generator produces scenarios deterministically from a seed.
type generator[C any, S Sequential[S]] struct {
	reg             *Registry[C, S]
	threads         int
	actorsPerThread int
	actorsBefore    int
	actorsAfter     int
}

// generate builds the scenario for seed. Parallel threads draw only
// operations that have a variant allowed on them; the sequential parts may
// use any variant.
func (g *generator[C, S]) generate(seed uint64) *Scenario {
	r := rand.New(rand.NewPCG(seed, ^seed))
	s := &Scenario{Parallel: make([][]Actor, g.threads)}
	s.Init = g.sequence(r, SequentialThread, g.actorsBefore)
	for t := range g.threads {
		s.Parallel[t] = g.sequence(r, t, g.actorsPerThread)
	}
	s.Post = g.sequence(r, SequentialThread, g.actorsAfter)
	return s
}

func (g *generator[C, S]) sequence(r *rand.Rand, thread, n int) []Actor {
	if n == 0 {
		return nil
	}
	candidates := make([]int, 0, g.reg.Len())
	total := 0
	for i := range g.reg.ops {
		if thread == SequentialThread || g.reg.ops[i].callableOn(thread) {
			candidates = append(candidates, i)
			total += g.reg.ops[i].weight()
		}
	}
	actors := make([]Actor, n)
	for k := range actors {
		pick := r.IntN(total)
		opIdx := candidates[len(candidates)-1]
		for _, i := range candidates {
			w := g.reg.ops[i].weight()
			if pick < w {
				opIdx = i
				break
			}
			pick -= w
		}
		op := g.reg.op(opIdx)
		variants := make([]int, 0, len(op.Variants))
		for v := range op.Variants {
			if thread == SequentialThread || op.Variants[v].allows(thread) {
				variants = append(variants, v)
			}
		}
		variant := variants[r.IntN(len(variants))]
		actors[k] = newActor(op, opIdx, variant, r.Uint64())
	}
	return actors
}

// iterationSeed derives the scenario seed of an iteration from the base
// seed, so that any single iteration can be regenerated in isolation.
func iterationSeed(base uint64, iteration int) uint64 {
	r := rand.New(rand.NewPCG(base, uint64(iteration)))
	return r.Uint64()
}
