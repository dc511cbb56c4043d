// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"slices"
	"time"
)

// Verdict is the outcome of a linearizability check.
type Verdict uint8

const (
	// Linearizable means a sequential order consistent with real-time
	// precedence reproduces every recorded result.
	Linearizable Verdict = iota
	// Violation means the search space was exhausted without such an order.
	Violation
	// Unknown means the check budget ran out before a verdict was reached.
	Unknown
)

func (v Verdict) String() string {
	switch v {
	case Linearizable:
		return "linearizable"
	case Violation:
		return "violation"
	default:
		return "unknown"
	}
}

// Divergence describes a call that could have been linearized next after
// the longest linearizable prefix, with the result the sequential model
// produces for it in that state.
type Divergence struct {
	Call     int
	Recorded any
	Expected any
}

// Matches reports whether the model agrees with the recorded result.
func (d *Divergence) Matches() bool {
	return equalResults(d.Recorded, d.Expected)
}

// CheckResult is the detailed outcome of a check.
type CheckResult struct {
	Verdict Verdict

	// Witness is a linearization as call ids, set when Verdict is
	// Linearizable.
	Witness []int

	// Longest is the longest linearizable prefix found, set when Verdict is
	// Violation.
	Longest []int

	// Divergence lists the calls that could have followed Longest. Empty
	// when every call was linearized but the final state disagreed.
	Divergence []Divergence

	// ModelFinal is the model state after Longest when the object's final
	// snapshot could not be matched.
	ModelFinal Snapshot

	// Steps counts search steps.
	Steps int
}

// checker decides linearizability of histories with the Wing–Gong search,
// memoized on (linearized set, model snapshot).
type checker[C any, S Sequential[S]] struct {
	reg      *Registry[C, S]
	newModel func() S
	timeout  time.Duration
	maxSteps int
}

// Check decides whether h is linearizable with respect to the sequential
// model built by newModel. It never mutates h and is deterministic: checking
// the same history twice yields the same result.
//
// Real-time precedence is taken from the call timestamps: a call whose
// response precedes another call's invocation is ordered first. If h carries
// a final snapshot, a complete linearization is accepted only when it leads
// the model to an equal state.
func Check[C any, S Sequential[S]](reg *Registry[C, S], newModel func() S, h *History) CheckResult {
	c := &checker[C, S]{reg: reg, newModel: newModel}
	return c.check(h)
}

// entry is a call or return event in the search list. Call entries point to
// their return entry through match; return entries have a nil match.
type entry struct {
	call  *Call
	match *entry
	next  *entry
	prev  *entry
}

func (e *entry) lift() {
	e.prev.next = e.next
	e.next.prev = e.prev
	m := e.match
	m.prev.next = m.next
	if m.next != nil {
		m.next.prev = m.prev
	}
}

func (e *entry) unlift() {
	m := e.match
	m.prev.next = m
	if m.next != nil {
		m.next.prev = m
	}
	e.prev.next = e
	e.next.prev = e
}

// linkEntries builds the time-ordered list of call and return entries
// behind a sentinel head.
func linkEntries(calls []Call) *entry {
	type stamped struct {
		time uint64
		e    *entry
	}
	all := make([]stamped, 0, 2*len(calls))
	for i := range calls {
		c := &calls[i]
		ret := &entry{call: c}
		inv := &entry{call: c, match: ret}
		all = append(all, stamped{c.Invoke, inv}, stamped{c.Return, ret})
	}
	slices.SortStableFunc(all, func(a, b stamped) int {
		switch {
		case a.time < b.time:
			return -1
		case a.time > b.time:
			return 1
		case a.e.match != nil && b.e.match == nil:
			return -1
		case a.e.match == nil && b.e.match != nil:
			return 1
		default:
			return 0
		}
	})
	head := &entry{}
	prev := head
	for _, s := range all {
		prev.next = s.e
		s.e.prev = prev
		prev = s.e
	}
	return head
}

type cacheEntry struct {
	linearized bitset
	state      Snapshot
}

type frame[S any] struct {
	entry *entry
	state S
}

// checkDeadlineEvery is the number of steps between deadline checks.
const checkDeadlineEvery = 1 << 10

func (c *checker[C, S]) check(h *History) CheckResult {
	n := len(h.Calls)
	head := linkEntries(h.Calls)
	linearized := newBitset(n)
	cache := make(map[uint64][]cacheEntry)
	var (
		stack   []frame[S]
		longest []int
		res     CheckResult
	)
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}

	contains := func(key uint64, ce cacheEntry) bool {
		for _, e := range cache[key] {
			if e.linearized.equal(ce.linearized) && e.state.Equal(ce.state) {
				return true
			}
		}
		return false
	}

	state := c.newModel()
	cur := head.next
	for {
		res.Steps++
		if c.maxSteps > 0 && res.Steps > c.maxSteps {
			res.Verdict = Unknown
			return res
		}
		if !deadline.IsZero() && res.Steps%checkDeadlineEvery == 0 && time.Now().After(deadline) {
			res.Verdict = Unknown
			return res
		}

		if head.next == nil {
			if h.Final == nil || h.Final.Equal(state.Snapshot()) {
				res.Verdict = Linearizable
				res.Witness = make([]int, len(stack))
				for i := range stack {
					res.Witness[i] = stack[i].entry.call.ID
				}
				return res
			}
		} else if cur != nil && cur.match != nil {
			call := cur.call
			next := state.Clone()
			out := c.reg.op(call.Actor.Op).Seq(next, call.Actor.Args)
			if equalResults(call.Result, out) {
				ce := cacheEntry{linearized: linearized.clone().set(call.ID), state: next.Snapshot()}
				key := ce.linearized.hash() ^ ce.state.Hash()*0x9e3779b97f4a7c15
				if !contains(key, ce) {
					cache[key] = append(cache[key], ce)
					stack = append(stack, frame[S]{entry: cur, state: state})
					state = next
					linearized.set(call.ID)
					cur.lift()
					cur = head.next
					continue
				}
			}
			cur = cur.next
			continue
		}

		// No call can be linearized next at this depth: backtrack.
		if longest == nil || len(stack) > len(longest) {
			longest = make([]int, len(stack))
			for i := range stack {
				longest[i] = stack[i].entry.call.ID
			}
		}
		if len(stack) == 0 {
			res.Verdict = Violation
			res.Longest = longest
			c.diagnose(h, &res)
			return res
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		state = top.state
		linearized.clear(top.entry.call.ID)
		top.entry.unlift()
		cur = top.entry.next
	}
}

// diagnose replays the longest prefix on a fresh model and records, for
// every call that real-time precedence allows next, the model's result.
func (c *checker[C, S]) diagnose(h *History, res *CheckResult) {
	state := c.newModel()
	placed := newBitset(len(h.Calls))
	for _, id := range res.Longest {
		call := &h.Calls[id]
		c.reg.op(call.Actor.Op).Seq(state, call.Actor.Args)
		placed.set(id)
	}
	if len(res.Longest) == len(h.Calls) {
		res.ModelFinal = state.Snapshot()
		return
	}

	// A call may come next iff no unplaced call responded before it was
	// invoked.
	minReturn := ^uint64(0)
	for i := range h.Calls {
		if !placed.get(i) && h.Calls[i].Return < minReturn {
			minReturn = h.Calls[i].Return
		}
	}
	for i := range h.Calls {
		call := &h.Calls[i]
		if placed.get(i) || call.Invoke > minReturn {
			continue
		}
		out := c.reg.op(call.Actor.Op).Seq(state.Clone(), call.Actor.Args)
		res.Divergence = append(res.Divergence, Divergence{Call: i, Recorded: call.Result, Expected: out})
	}
}
