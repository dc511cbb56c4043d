// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"time"

	"github.com/rs/zerolog"
)

// Options holds the configuration of a [Tester].
type Options struct {
	// Scenario shape
	threads         int
	actorsPerThread int
	actorsBefore    int
	actorsAfter     int

	// Search effort
	iterations  int
	invocations int
	seed        uint64
	seeded      bool

	// Minimization
	minimize       bool
	minimizeEffort int

	// Budgets
	timeout      time.Duration
	checkTimeout time.Duration
	checkSteps   int

	// Threads
	lockOS bool
	scope  ThreadScope
	init   func(thread int)
	finish func(thread int)

	logger zerolog.Logger
}

// Default configuration values.
const (
	DefaultIterations      = 100
	DefaultInvocations     = 100
	DefaultThreads         = 2
	DefaultActorsPerThread = 5
	DefaultActorsBefore    = 5
	DefaultActorsAfter     = 5
	DefaultMinimizeEffort  = 1000
	DefaultTimeout         = 10 * time.Second
	DefaultCheckTimeout    = 10 * time.Second
)

// Builder configures a [Tester] with a fluent API.
//
// Values are validated by [Build], so a Builder never fails part-way
// through a chain.
//
// Example:
//
//	b := lincheck.New().
//	    Iterations(10).
//	    Invocations(500).
//	    Threads(2).
//	    Minimize(false)
//	t, err := lincheck.Build(b, reg, newQueue, newModel)
type Builder struct {
	opts Options
}

// New creates a builder with default values.
func New() *Builder {
	return &Builder{opts: Options{
		threads:         DefaultThreads,
		actorsPerThread: DefaultActorsPerThread,
		actorsBefore:    DefaultActorsBefore,
		actorsAfter:     DefaultActorsAfter,
		iterations:      DefaultIterations,
		invocations:     DefaultInvocations,
		minimize:        true,
		minimizeEffort:  DefaultMinimizeEffort,
		timeout:         DefaultTimeout,
		checkTimeout:    DefaultCheckTimeout,
		lockOS:          true,
		logger:          zerolog.Nop(),
	}}
}

// Iterations sets the number of distinct scenarios generated by Run.
func (b *Builder) Iterations(n int) *Builder {
	b.opts.iterations = n
	return b
}

// Invocations sets how many times each scenario is executed. Interleavings
// differ between invocations, so more invocations explore more of them.
func (b *Builder) Invocations(n int) *Builder {
	b.opts.invocations = n
	return b
}

// Threads sets the number of parallel threads.
func (b *Builder) Threads(n int) *Builder {
	b.opts.threads = n
	return b
}

// ActorsPerThread sets the number of operations per parallel thread.
func (b *Builder) ActorsPerThread(n int) *Builder {
	b.opts.actorsPerThread = n
	return b
}

// ActorsBefore sets the number of operations of the sequential init part.
func (b *Builder) ActorsBefore(n int) *Builder {
	b.opts.actorsBefore = n
	return b
}

// ActorsAfter sets the number of operations of the sequential post part.
func (b *Builder) ActorsAfter(n int) *Builder {
	b.opts.actorsAfter = n
	return b
}

// Minimize enables or disables counter-example minimization.
func (b *Builder) Minimize(on bool) *Builder {
	b.opts.minimize = on
	return b
}

// MinimizeEffort bounds the number of candidate scenarios the minimizer
// executes.
func (b *Builder) MinimizeEffort(n int) *Builder {
	b.opts.minimizeEffort = n
	return b
}

// Seed fixes the base seed. Without it, Run draws a random one and reports
// it with any failure.
func (b *Builder) Seed(seed uint64) *Builder {
	b.opts.seed = seed
	b.opts.seeded = true
	return b
}

// Timeout bounds one execution of a scenario. An execution that takes
// longer is a liveness failure.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.opts.timeout = d
	return b
}

// CheckTimeout bounds the linearizability search of one history. A search
// that takes longer yields an Unknown verdict. Zero means no bound.
func (b *Builder) CheckTimeout(d time.Duration) *Builder {
	b.opts.checkTimeout = d
	return b
}

// CheckSteps bounds the number of search steps per history. Zero means no
// bound.
func (b *Builder) CheckSteps(n int) *Builder {
	b.opts.checkSteps = n
	return b
}

// LockOSThread controls whether each executor goroutine is locked to its
// own OS thread. Enabled by default.
func (b *Builder) LockOSThread(on bool) *Builder {
	b.opts.lockOS = on
	return b
}

// ThreadInit registers a callback run on every executor thread before its
// first operation, e.g. to attach the thread to a reclamation scheme.
func (b *Builder) ThreadInit(fn func(thread int)) *Builder {
	b.opts.init = fn
	return b
}

// ThreadFinish registers a callback run on every executor thread after its
// last operation. It runs even if the thread's operations panicked.
func (b *Builder) ThreadFinish(fn func(thread int)) *Builder {
	b.opts.finish = fn
	return b
}

// ThreadScope registers a paired acquire/release for every executor thread.
// It runs inside ThreadInit and ThreadFinish when both are set.
func (b *Builder) ThreadScope(scope ThreadScope) *Builder {
	b.opts.scope = scope
	return b
}

// Logger sets the logger. The default discards everything.
func (b *Builder) Logger(l zerolog.Logger) *Builder {
	b.opts.logger = l
	return b
}

// validate reports the first invalid option.
func (o *Options) validate() error {
	switch {
	case o.threads < 1:
		return configErrorf("threads must be >= 1, got %d", o.threads)
	case o.actorsPerThread < 1:
		return configErrorf("actors per thread must be >= 1, got %d", o.actorsPerThread)
	case o.actorsBefore < 0:
		return configErrorf("actors before must be >= 0, got %d", o.actorsBefore)
	case o.actorsAfter < 0:
		return configErrorf("actors after must be >= 0, got %d", o.actorsAfter)
	case o.iterations < 1:
		return configErrorf("iterations must be >= 1, got %d", o.iterations)
	case o.invocations < 1:
		return configErrorf("invocations must be >= 1, got %d", o.invocations)
	case o.minimizeEffort < 0:
		return configErrorf("minimize effort must be >= 0, got %d", o.minimizeEffort)
	case o.timeout <= 0:
		return configErrorf("timeout must be positive, got %s", o.timeout)
	case o.checkTimeout < 0:
		return configErrorf("check timeout must be >= 0, got %s", o.checkTimeout)
	case o.checkSteps < 0:
		return configErrorf("check steps must be >= 0, got %d", o.checkSteps)
	}
	return nil
}

// threadScope composes the hooks and the scope: init, then acquire; release,
// then finish.
func (o *Options) threadScope() ThreadScope {
	hooks := hookScope(o.init, o.finish)
	switch {
	case o.scope == nil:
		return hooks
	case hooks == nil:
		return o.scope
	}
	return func(thread int) func() {
		outer := hooks.enter(thread)
		inner := o.scope.enter(thread)
		return func() {
			defer outer()
			inner()
		}
	}
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
