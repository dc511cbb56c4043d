// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"fmt"
	"slices"
	"strings"

	"code.hybscloud.com/atomix"
)

// EventKind distinguishes invocation and response events.
type EventKind uint8

const (
	// Invoke is recorded immediately before an operation is called.
	Invoke EventKind = iota
	// Respond is recorded immediately after an operation returns.
	Respond
)

func (k EventKind) String() string {
	if k == Invoke {
		return "invoke"
	}
	return "respond"
}

// Event is one entry of a history.
//
// Time is a ticket from the recorder's logical clock. Tickets are unique
// and ordered consistently with real time: if a response ticket is smaller
// than an invocation ticket, the response happened before the invocation.
// Seq numbers the events of one thread in program order.
type Event struct {
	Kind   EventKind
	Part   Part
	Thread int
	Index  int
	Seq    uint64
	Time   uint64
	Result any
}

// Call joins an invocation with its response.
type Call struct {
	ID     int
	Part   Part
	Thread int
	Index  int
	Actor  Actor
	Invoke uint64
	Return uint64
	Result any
}

// precedes reports whether c responded before d was invoked.
func (c *Call) precedes(d *Call) bool {
	return c.Return < d.Invoke
}

// History is the sealed record of one execution of a scenario.
type History struct {
	Scenario *Scenario

	// Events are ordered by logical time.
	Events []Event

	// Calls are numbered init part first, then parallel threads in order,
	// then the post part. Calls[i].ID == i.
	Calls []Call

	// Final is the quiescent snapshot of the object under test, or nil if
	// the object does not implement Snapshotter.
	Final Snapshot
}

// callID maps a scenario position to the id of its call.
func callID(s *Scenario, part Part, thread, index int) int {
	switch part {
	case PartInit:
		return index
	case PartParallel:
		id := len(s.Init)
		for t := range thread {
			id += len(s.Parallel[t])
		}
		return id + index
	default:
		id := len(s.Init)
		for _, actors := range s.Parallel {
			id += len(actors)
		}
		return id + index
	}
}

// Fingerprint identifies the observable outcome of an execution: the
// logical order of events, every result with its type, and the final
// snapshot. Two histories with equal fingerprints have equal verdicts.
func (h *History) Fingerprint() string {
	var b strings.Builder
	for i := range h.Events {
		e := &h.Events[i]
		if e.Kind == Invoke {
			fmt.Fprintf(&b, "i%d.%d.%d;", e.Part, e.Thread, e.Index)
			continue
		}
		fmt.Fprintf(&b, "r%d.%d.%d=%T:%s;", e.Part, e.Thread, e.Index, e.Result, formatValue(e.Result))
	}
	if h.Final != nil {
		b.WriteString("final=")
		b.WriteString(h.Final.String())
	}
	return b.String()
}

// threadLog is the single-writer event buffer of one thread.
type threadLog struct {
	_      pad
	events []Event
	seq    uint64
	_      pad
}

// Recorder is the append-only event log of one execution.
//
// Each thread appends only to its own buffer, stamped from a shared logical
// clock; no lock is taken in the measured region. The executor closes the
// recorder after every thread has finished, and only then may it be sealed.
type Recorder struct {
	_       pad
	clock   atomix.Uint64
	_       pad
	closed  atomix.Bool
	seq     threadLog
	threads []threadLog
}

func newRecorder(threads int) *Recorder {
	return &Recorder{threads: make([]threadLog, threads)}
}

func (r *Recorder) log(thread int) *threadLog {
	if thread == SequentialThread {
		return &r.seq
	}
	return &r.threads[thread]
}

// invoke records an invocation by thread.
func (r *Recorder) invoke(part Part, thread, index int) {
	l := r.log(thread)
	l.seq++
	l.events = append(l.events, Event{
		Kind:   Invoke,
		Part:   part,
		Thread: thread,
		Index:  index,
		Seq:    l.seq,
		Time:   r.clock.AddAcqRel(1),
	})
}

// respond records the response matching the thread's last invocation.
func (r *Recorder) respond(part Part, thread, index int, result any) {
	t := r.clock.AddAcqRel(1)
	l := r.log(thread)
	l.seq++
	l.events = append(l.events, Event{
		Kind:   Respond,
		Part:   part,
		Thread: thread,
		Index:  index,
		Seq:    l.seq,
		Time:   t,
		Result: result,
	})
}

// close marks the end of the measured region.
func (r *Recorder) close() {
	r.closed.StoreRelease(true)
}

// Seal validates the recorded events against s and builds the history.
//
// Returns an error wrapping [ErrHarness] if the recorder has not been
// closed, or if invocations and responses do not pair up one to one with
// the actors of s.
func (r *Recorder) Seal(s *Scenario, final Snapshot) (*History, error) {
	if !r.closed.LoadAcquire() {
		return nil, harnessErrorf("history read before the execution completed")
	}
	h := &History{
		Scenario: s,
		Calls:    make([]Call, s.Size()),
		Final:    final,
	}
	filled := make([]bool, len(h.Calls))

	pair := func(l *threadLog) error {
		if len(l.events)%2 != 0 {
			return harnessErrorf("thread has an unmatched invocation")
		}
		for i := 0; i < len(l.events); i += 2 {
			inv, resp := &l.events[i], &l.events[i+1]
			if inv.Kind != Invoke || resp.Kind != Respond ||
				inv.Part != resp.Part || inv.Index != resp.Index || inv.Thread != resp.Thread {
				return harnessErrorf("event %d of thread %d does not pair with its response", inv.Seq, inv.Thread)
			}
			if resp.Seq <= inv.Seq || resp.Time <= inv.Time {
				return harnessErrorf("response of thread %d precedes its invocation", inv.Thread)
			}
			actors := actorsOf(s, inv.Part, inv.Thread)
			if inv.Index < 0 || inv.Index >= len(actors) {
				return harnessErrorf("event refers to actor %d of a %d-actor %s part", inv.Index, len(actors), inv.Part)
			}
			id := callID(s, inv.Part, inv.Thread, inv.Index)
			if filled[id] {
				return harnessErrorf("actor %d of thread %d recorded twice", inv.Index, inv.Thread)
			}
			filled[id] = true
			h.Calls[id] = Call{
				ID:     id,
				Part:   inv.Part,
				Thread: inv.Thread,
				Index:  inv.Index,
				Actor:  actors[inv.Index],
				Invoke: inv.Time,
				Return: resp.Time,
				Result: resp.Result,
			}
		}
		return nil
	}

	if err := pair(&r.seq); err != nil {
		return nil, err
	}
	n := len(r.seq.events)
	for t := range r.threads {
		if err := pair(&r.threads[t]); err != nil {
			return nil, err
		}
		n += len(r.threads[t].events)
	}
	if i := slices.Index(filled, false); i >= 0 {
		return nil, harnessErrorf("call %d was never recorded", i)
	}

	h.Events = make([]Event, 0, n)
	h.Events = append(h.Events, r.seq.events...)
	for t := range r.threads {
		h.Events = append(h.Events, r.threads[t].events...)
	}
	slices.SortFunc(h.Events, func(a, b Event) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})
	return h, nil
}

func actorsOf(s *Scenario, part Part, thread int) []Actor {
	switch part {
	case PartInit:
		return s.Init
	case PartParallel:
		if thread < 0 || thread >= len(s.Parallel) {
			return nil
		}
		return s.Parallel[thread]
	default:
		return s.Post
	}
}
