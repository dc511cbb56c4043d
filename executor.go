// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"context"
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Pending describes an actor that had not responded when an execution was
// abandoned.
type Pending struct {
	Thread int
	Index  int
	Actor  Actor
}

// progress is the per-thread completion state readable while the thread is
// still running. The recorder itself is never read before the barrier.
type progress struct {
	_       pad
	started atomix.Int64 // actors invoked
	done    atomix.Int64 // actors completed
	_       pad
}

// executor runs scenarios against fresh instances of the object under test.
type executor[C any, S Sequential[S]] struct {
	reg       *Registry[C, S]
	newObject func() C
	scope     ThreadScope
	timeout   time.Duration
	lockOS    bool
}

// execution is the outcome of one run of a scenario.
type execution struct {
	history *History
	pending []Pending // non-nil iff the run hung
}

// run executes s once: init part, parallel part, post part, then takes the
// final snapshot.
//
// Returns an execution with pending actors if the run did not finish within
// the timeout. Hung goroutines cannot be cancelled and are abandoned along
// with the object they operate on. Returns an error wrapping [ErrHarness]
// if the recorded events are inconsistent.
func (e *executor[C, S]) run(ctx context.Context, s *Scenario) (*execution, error) {
	obj := e.newObject()
	rec := newRecorder(s.Threads())
	prog := make([]progress, s.Threads())
	seqProg := &progress{}

	// live counts the goroutines of this run that may still touch obj.
	var live atomix.Int32
	live.Add(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer live.Add(-1)
		e.sequential(obj, rec, PartInit, s.Init, seqProg)
		e.parallel(obj, rec, s, prog, &live)
		e.sequential(obj, rec, PartPost, s.Post, seqProg)
	}()

	var deadline <-chan time.Time
	if e.timeout > 0 {
		timer := time.NewTimer(e.timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	select {
	case <-done:
	case <-deadline:
		return &execution{pending: pendingActors(s, prog, seqProg)}, nil
	case <-ctx.Done():
		return &execution{pending: pendingActors(s, prog, seqProg)}, ctx.Err()
	}

	rec.close()
	var final Snapshot
	if _, ok := any(obj).(Snapshotter); ok {
		var err error
		if final, err = snapshot(obj, &live); err != nil {
			return nil, err
		}
	}
	h, err := rec.Seal(s, final)
	if err != nil {
		return nil, err
	}
	return &execution{history: h}, nil
}

// snapshot takes the logical snapshot of obj. Snapshots may drain and
// restore the object, so they are refused while any goroutine counted by
// live is still running.
func snapshot[C any](obj C, live *atomix.Int32) (snap Snapshot, err error) {
	if n := live.Load(); n != 0 {
		return nil, harnessErrorf("snapshot requested while %d goroutines are running", n)
	}
	defer func() {
		if r := recover(); r != nil {
			snap, err = nil, harnessErrorf("snapshot panicked: %v", r)
		}
	}()
	return any(obj).(Snapshotter).Snapshot(), nil
}

// sequential runs the init or post part on the calling goroutine inside a
// thread scope.
func (e *executor[C, S]) sequential(obj C, rec *Recorder, part Part, actors []Actor, prog *progress) {
	if len(actors) == 0 {
		return
	}
	if e.lockOS {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	release := e.scope.enter(SequentialThread)
	defer release()
	prog.started.Store(0)
	prog.done.Store(0)
	for i := range actors {
		prog.started.Add(1)
		e.call(obj, rec, part, SequentialThread, i, &actors[i])
		prog.done.Add(1)
	}
}

// parallel runs the parallel part: one goroutine per thread, released
// together by a spin barrier so that operations genuinely overlap.
func (e *executor[C, S]) parallel(obj C, rec *Recorder, s *Scenario, prog []progress, live *atomix.Int32) {
	n := s.Threads()
	if n == 0 {
		return
	}
	var (
		wg    sync.WaitGroup
		ready atomix.Int32
		start atomix.Bool
	)
	wg.Add(n)
	live.Add(int32(n))
	for t := range n {
		go func(thread int) {
			defer wg.Done()
			defer live.Add(-1)
			if e.lockOS {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
			}
			release := e.scope.enter(thread)
			defer release()

			ready.Add(1)
			awaitStart(&start)
			actors := s.Parallel[thread]
			p := &prog[thread]
			for i := range actors {
				p.started.Add(1)
				e.call(obj, rec, PartParallel, thread, i, &actors[i])
				p.done.Add(1)
			}
		}(t)
	}
	for ready.Load() < int32(n) {
		runtime.Gosched()
	}
	start.StoreRelease(true)
	wg.Wait()
}

// barrierSpins bounds busy-waiting at the start barrier before yielding, so
// that threads still make progress when GOMAXPROCS is smaller than the
// thread count.
const barrierSpins = 1 << 10

func awaitStart(start *atomix.Bool) {
	sw := spin.Wait{}
	for i := 0; !start.LoadAcquire(); i++ {
		if i < barrierSpins {
			sw.Once()
			continue
		}
		runtime.Gosched()
	}
}

// call records an invocation, calls the variant and records the response.
// A panic in the object under test becomes a [Panicked] result.
func (e *executor[C, S]) call(obj C, rec *Recorder, part Part, thread, index int, a *Actor) {
	v := &e.reg.op(a.Op).Variants[a.Variant]
	rec.invoke(part, thread, index)
	result := invokeVariant(v, obj, a.Args)
	rec.respond(part, thread, index, result)
}

func invokeVariant[C any](v *Variant[C], obj C, args []any) (result any) {
	defer func() {
		if r := recover(); r != nil {
			result = Panicked{Value: r}
		}
	}()
	return v.Call(obj, args)
}

// pendingActors lists, per unfinished thread, the first actor that has not
// responded. A hang in the init part is reported alone, since the parallel
// part never started.
func pendingActors(s *Scenario, prog []progress, seqProg *progress) []Pending {
	out := []Pending{}
	seqStarted, seqDone := int(seqProg.started.Load()), int(seqProg.done.Load())
	if !anyStarted(prog) && seqStarted > seqDone && seqDone < len(s.Init) {
		return append(out, Pending{Thread: SequentialThread, Index: seqDone, Actor: s.Init[seqDone]})
	}
	for t := range prog {
		done := int(prog[t].done.Load())
		actors := s.Parallel[t]
		if done >= len(actors) {
			continue
		}
		out = append(out, Pending{Thread: t, Index: done, Actor: actors[done]})
	}
	if len(out) == 0 && seqStarted > seqDone && seqDone < len(s.Post) {
		out = append(out, Pending{Thread: SequentialThread, Index: seqDone, Actor: s.Post[seqDone]})
	}
	return out
}

func anyStarted(prog []progress) bool {
	for t := range prog {
		if prog[t].started.Load() > 0 {
			return true
		}
	}
	return false
}

// ThreadScope acquires a per-thread resource, such as a registration with a
// memory-reclamation scheme, and returns the function that releases it.
//
// The executor calls the scope once when a thread starts and defers the
// release, so acquisition and release are paired on every exit path.
type ThreadScope func(thread int) (release func())

func (s ThreadScope) enter(thread int) func() {
	if s == nil {
		return func() {}
	}
	release := s(thread)
	if release == nil {
		return func() {}
	}
	return release
}

// hookScope composes separate init and finish callbacks into a scope.
func hookScope(init, finish func(thread int)) ThreadScope {
	if init == nil && finish == nil {
		return nil
	}
	return func(thread int) func() {
		if init != nil {
			init(thread)
		}
		return func() {
			if finish != nil {
				finish(thread)
			}
		}
	}
}
