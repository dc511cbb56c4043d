// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lincheck checks concurrent objects for linearizability.
//
// A check runs randomized scenarios against the object under test on real
// OS threads, records when every operation was invoked and when it
// responded, and searches for a sequential order of the recorded calls that
// respects real-time precedence and reproduces every result on a sequential
// model. A history for which no such order exists is a counter-example,
// which is shrunk and reported.
//
// # Quick Start
//
// Declare the operations once, with their concurrent entry points and their
// sequential counterparts:
//
//	reg, err := lincheck.NewRegistry(
//	    lincheck.Operation[*queue.Subject[int], *queue.Ring[int]]{
//	        Name: "push",
//	        Args: []lincheck.Gen{lincheck.IntGen{Min: 1, Max: 5}},
//	        Variants: []lincheck.Variant[*queue.Subject[int]]{{
//	            Name: "Enqueue",
//	            Call: func(q *queue.Subject[int], args []any) any { return q.Push(args[0].(int)) },
//	        }},
//	        Seq: func(r *queue.Ring[int], args []any) any { return r.Push(args[0].(int)) },
//	    },
//	    lincheck.Operation[*queue.Subject[int], *queue.Ring[int]]{
//	        Name: "pop",
//	        Variants: []lincheck.Variant[*queue.Subject[int]]{{
//	            Name: "Dequeue",
//	            Call: func(q *queue.Subject[int], _ []any) any { return q.Pop() },
//	        }},
//	        Seq: func(r *queue.Ring[int], _ []any) any { return r.Pop() },
//	    },
//	)
//
// Then build a tester and run it:
//
//	tester, err := lincheck.Build(
//	    lincheck.New().Iterations(10).Invocations(500),
//	    reg,
//	    func() *queue.Subject[int] { return queue.NewSubject[int](queue.NewMS[int]()) },
//	    func() *queue.Ring[int] { return queue.NewRing[int](0) },
//	)
//	if out := tester.RunTest(); out != "" {
//	    t.Fatal(out)
//	}
//
// # Scenarios
//
// A [Scenario] has three parts. The init part runs sequentially and brings
// the object into an interesting state; the parallel part runs one list of
// actors per thread, released together by a spin barrier; the post part
// runs sequentially after every thread has finished. Each scenario is
// executed several times (invocations), since one execution observes only
// one interleaving.
//
// Scenarios are derived from a base seed and an iteration number, and every
// actor's arguments from its own seed, so a counter-example is reproduced
// from (seed, iteration) or from its [ScenarioRef].
//
// # Checking
//
// The checker is a Wing–Gong search with memoization on the set of
// linearized calls and the model's [Snapshot]. When the object under test
// implements [Snapshotter], its state after the execution must also equal
// the model's state after the linearization. The search may be bounded
// with [Builder.CheckTimeout] and [Builder.CheckSteps]; an exhausted budget
// yields an [Unknown] verdict, which is logged and not treated as a failure.
//
// # Threads
//
// Executor goroutines are locked to OS threads. Objects that require
// per-thread registration, such as hazard-pointer based reclamation, get it
// through [Builder.ThreadInit], [Builder.ThreadFinish] or
// [Builder.ThreadScope]; the executor pairs acquisition and release on every
// exit path. Operations restricted to some threads, such as the producer
// side of a single-producer queue, declare it in [Variant.Threads].
//
// # Liveness
//
// An execution that exceeds [Builder.Timeout] is reported as a liveness
// failure, listing the actors that never responded. Goroutines cannot be
// cancelled: the hung goroutines are abandoned together with their object.
//
// # Errors
//
// Configuration problems are reported by [NewRegistry] and [Build] as
// errors wrapping [ErrConfig]. Failures of the object under test are
// returned as a [*Failure]; [Failure.Err] converts them into errors
// wrapping [ErrViolation] or [ErrLiveness]. Errors wrapping [ErrHarness]
// indicate a defect of the harness itself.
//
// # Race Detection
//
// Lock-free objects under test commonly synchronize through memory
// orderings the race detector does not model. Tests of such objects may
// skip themselves when the race detector is enabled.
package lincheck
