// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"context"
	"math/rand/v2"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// FailureKind distinguishes safety and liveness failures.
type FailureKind uint8

const (
	// KindViolation is a history with no valid linearization.
	KindViolation FailureKind = iota
	// KindLiveness is an execution that did not finish within the timeout.
	KindLiveness
)

func (k FailureKind) String() string {
	if k == KindLiveness {
		return "liveness"
	}
	return "violation"
}

// Failure is a reproducible counter-example.
type Failure struct {
	Kind FailureKind

	// Iteration and Seed locate the scenario: Seed is the base seed of the
	// run, and the scenario is regenerated from Seed and Iteration.
	Iteration int
	Seed      uint64

	// Scenario is the failing scenario, minimized if Minimized is set.
	Scenario  *Scenario
	Minimized bool

	// History and Result describe the violating execution. Nil and zero for
	// liveness failures.
	History *History
	Result  CheckResult

	// Pending lists the actors that had not responded when a liveness
	// failure was declared.
	Pending []Pending

	describe func(*Actor) string
}

// Err returns the failure as an error wrapping [ErrViolation] or
// [ErrLiveness].
func (f *Failure) Err() error {
	if f.Kind == KindLiveness {
		return errors.Wrapf(ErrLiveness, "iteration %d, seed %d: %d pending actors", f.Iteration, f.Seed, len(f.Pending))
	}
	return errors.Wrapf(ErrViolation, "iteration %d, seed %d: longest linearizable prefix %d of %d calls",
		f.Iteration, f.Seed, len(f.Result.Longest), len(f.History.Calls))
}

// Tester runs randomized linearizability checks of one object type.
//
// A Tester is not safe for concurrent use.
type Tester[C any, S Sequential[S]] struct {
	opts     Options
	reg      *Registry[C, S]
	newModel func() S
	gen      generator[C, S]
	exec     *executor[C, S]
	checker  checker[C, S]
	log      zerolog.Logger
}

// Build validates the configuration and creates a tester.
//
// newObject creates a fresh object under test for every execution and
// newModel a fresh sequential model in its initial state; the two must
// describe the same initial state.
//
// Returns an error wrapping [ErrConfig] if an option is out of range, a
// factory is nil, or some parallel thread cannot call any operation.
func Build[C any, S Sequential[S]](b *Builder, reg *Registry[C, S], newObject func() C, newModel func() S) (*Tester[C, S], error) {
	if b == nil {
		b = New()
	}
	opts := b.opts
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, configErrorf("nil registry")
	}
	if newObject == nil || newModel == nil {
		return nil, configErrorf("nil object or model factory")
	}
	if err := reg.validateThreads(opts.threads); err != nil {
		return nil, err
	}
	if !opts.seeded {
		opts.seed = rand.Uint64()
	}
	return &Tester[C, S]{
		opts:     opts,
		reg:      reg,
		newModel: newModel,
		gen: generator[C, S]{
			reg:             reg,
			threads:         opts.threads,
			actorsPerThread: opts.actorsPerThread,
			actorsBefore:    opts.actorsBefore,
			actorsAfter:     opts.actorsAfter,
		},
		exec: &executor[C, S]{
			reg:       reg,
			newObject: newObject,
			scope:     opts.threadScope(),
			timeout:   opts.timeout,
			lockOS:    opts.lockOS,
		},
		checker: checker[C, S]{
			reg:      reg,
			newModel: newModel,
			timeout:  opts.checkTimeout,
			maxSteps: opts.checkSteps,
		},
		log: opts.logger,
	}, nil
}

// Seed returns the base seed of the tester.
func (t *Tester[C, S]) Seed() uint64 {
	return t.opts.seed
}

// Registry returns the operation registry.
func (t *Tester[C, S]) Registry() *Registry[C, S] {
	return t.reg
}

// Scenario regenerates the scenario of an iteration.
func (t *Tester[C, S]) Scenario(iteration int) *Scenario {
	return t.gen.generate(iterationSeed(t.opts.seed, iteration))
}

// Run generates and executes scenarios until one fails or the iterations
// are exhausted.
//
// Returns (nil, nil) if every history was linearizable or undecided within
// the check budget. A failure is minimized first if minimization is
// enabled. Returns an error wrapping [ErrHarness] on harness
// inconsistencies, or the context error if ctx is done.
func (t *Tester[C, S]) Run(ctx context.Context) (*Failure, error) {
	for i := range t.opts.iterations {
		s := t.Scenario(i)
		t.log.Debug().Int("iteration", i).Uint64("seed", t.opts.seed).Int("actors", s.Size()).Msg("scenario")
		f, err := t.runScenario(ctx, s)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		f.Iteration = i
		f.Seed = t.opts.seed
		t.log.Warn().Int("iteration", i).Uint64("seed", t.opts.seed).Stringer("kind", f.Kind).Msg("scenario failed")
		if t.opts.minimize {
			f = t.minimize(ctx, f)
		}
		return f, nil
	}
	return nil, nil
}

// RunScenario executes a given scenario, e.g. one resolved from a stored
// counter-example, and checks every history.
//
// Returns an error wrapping [ErrConfig] if the scenario refers to unknown
// operations or variants, or binds a variant to a thread that may not call
// it.
func (t *Tester[C, S]) RunScenario(ctx context.Context, s *Scenario) (*Failure, error) {
	if err := t.validateScenario(s); err != nil {
		return nil, err
	}
	f, err := t.runScenario(ctx, s)
	if f != nil {
		f.Iteration = -1
		f.Seed = t.opts.seed
	}
	return f, err
}

// RunTest runs the check and returns "" if it passes, the counter-example
// report if it fails, or the error text otherwise.
//
// Example:
//
//	if out := tester.RunTest(); out != "" {
//	    t.Fatal(out)
//	}
func (t *Tester[C, S]) RunTest() string {
	f, err := t.Run(context.Background())
	if err != nil {
		return err.Error()
	}
	return Report(f)
}

// runScenario executes s up to the configured number of invocations and
// returns the first failure. Histories with a fingerprint already checked
// for s are not checked again.
func (t *Tester[C, S]) runScenario(ctx context.Context, s *Scenario) (*Failure, error) {
	checked := make(map[string]struct{})
	for range t.opts.invocations {
		ex, err := t.exec.run(ctx, s)
		if err != nil {
			return nil, err
		}
		if ex.pending != nil {
			return &Failure{Kind: KindLiveness, Scenario: s, Pending: ex.pending, describe: t.reg.describe}, nil
		}
		fp := ex.history.Fingerprint()
		if _, ok := checked[fp]; ok {
			continue
		}
		checked[fp] = struct{}{}

		res := t.checker.check(ex.history)
		switch res.Verdict {
		case Unknown:
			t.log.Warn().Int("calls", len(ex.history.Calls)).Int("steps", res.Steps).Msg("check budget exceeded")
		case Violation:
			return &Failure{
				Kind:     KindViolation,
				Scenario: s,
				History:  ex.history,
				Result:   res,
				describe: t.reg.describe,
			}, nil
		}
	}
	return nil, nil
}

func (t *Tester[C, S]) validateScenario(s *Scenario) error {
	if s == nil {
		return configErrorf("nil scenario")
	}
	valid := func(a *Actor, thread int) error {
		if a.Op < 0 || a.Op >= t.reg.Len() {
			return configErrorf("unknown operation #%d", a.Op)
		}
		op := t.reg.op(a.Op)
		if a.Variant < 0 || a.Variant >= len(op.Variants) {
			return configErrorf("operation %q has no variant #%d", op.Name, a.Variant)
		}
		if len(a.Args) != len(op.Args) {
			return configErrorf("operation %q takes %d arguments, got %d", op.Name, len(op.Args), len(a.Args))
		}
		if thread != SequentialThread && !op.Variants[a.Variant].allows(thread) {
			return configErrorf("variant %s.%s is not allowed on thread %d", op.Name, op.Variants[a.Variant].Name, thread)
		}
		return nil
	}
	for i := range s.Init {
		if err := valid(&s.Init[i], SequentialThread); err != nil {
			return err
		}
	}
	for th := range s.Parallel {
		for i := range s.Parallel[th] {
			if err := valid(&s.Parallel[th][i], th); err != nil {
				return err
			}
		}
	}
	for i := range s.Post {
		if err := valid(&s.Post[i], SequentialThread); err != nil {
			return err
		}
	}
	return nil
}
