// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"fmt"
	"strings"
)

// Report renders a failure as a human-readable counter-example.
// It returns "" for a nil failure.
//
// A violation lists the init part, the parallel part with one column per
// thread, and the post part, each call with its recorded result; then the
// longest linearizable prefix and, for every call that could have come
// next, the recorded and the expected result. A liveness failure lists the
// scenario and the actors that never responded.
func Report(f *Failure) string {
	if f == nil {
		return ""
	}
	describe := f.describe
	if describe == nil {
		describe = func(a *Actor) string { return fmt.Sprintf("op%d(%s)", a.Op, formatArgs(a.Args)) }
	}
	r := reporter{f: f, describe: describe}
	if f.Kind == KindLiveness {
		r.b.WriteString("= The execution has hung =\n")
	} else {
		r.b.WriteString("= Invalid execution results =\n")
	}
	r.header()
	r.scenario()
	if f.Kind == KindLiveness {
		r.pending()
	} else {
		r.violation()
	}
	return r.b.String()
}

type reporter struct {
	b        strings.Builder
	f        *Failure
	describe func(*Actor) string
}

func (r *reporter) header() {
	f := r.f
	if f.Iteration >= 0 {
		fmt.Fprintf(&r.b, "iteration %d, seed %d", f.Iteration, f.Seed)
	} else {
		fmt.Fprintf(&r.b, "seed %d", f.Seed)
	}
	if f.Minimized {
		r.b.WriteString(", minimized")
	}
	r.b.WriteByte('\n')
}

// cell renders one call, with its result when the history has one.
func (r *reporter) cell(part Part, thread, index int, a *Actor) string {
	s := r.describe(a)
	if h := r.f.History; h != nil {
		s += ": " + formatValue(h.Calls[callID(h.Scenario, part, thread, index)].Result)
	}
	return s
}

func (r *reporter) scenario() {
	s := r.f.Scenario
	if len(s.Init) > 0 {
		r.b.WriteString("Init part:\n")
		r.list(PartInit, s.Init)
	}
	if len(s.Parallel) > 0 {
		r.b.WriteString("Parallel part:\n")
		r.columns()
	}
	if len(s.Post) > 0 {
		r.b.WriteString("Post part:\n")
		r.list(PartPost, s.Post)
	}
}

func (r *reporter) list(part Part, actors []Actor) {
	cells := make([]string, len(actors))
	for i := range actors {
		cells[i] = r.cell(part, SequentialThread, i, &actors[i])
	}
	r.b.WriteString("[" + strings.Join(cells, ", ") + "]\n")
}

// columns renders the parallel part as a table with one column per thread.
func (r *reporter) columns() {
	s := r.f.Scenario
	n := s.Threads()
	cells := make([][]string, n)
	widths := make([]int, n)
	rows := 0
	for t := range n {
		cells[t] = make([]string, len(s.Parallel[t]))
		for i := range s.Parallel[t] {
			c := r.cell(PartParallel, t, i, &s.Parallel[t][i])
			cells[t][i] = c
			widths[t] = max(widths[t], len(c))
		}
		rows = max(rows, len(cells[t]))
	}
	for i := range rows {
		r.b.WriteByte('|')
		for t := range n {
			c := ""
			if i < len(cells[t]) {
				c = cells[t][i]
			}
			fmt.Fprintf(&r.b, " %-*s |", widths[t], c)
		}
		r.b.WriteByte('\n')
	}
}

func threadName(thread int) string {
	if thread == SequentialThread {
		return "seq"
	}
	return fmt.Sprintf("T%d", thread)
}

func (r *reporter) pending() {
	r.b.WriteString("Pending:\n")
	for _, p := range r.f.Pending {
		fmt.Fprintf(&r.b, "  %s #%d: %s\n", threadName(p.Thread), p.Index, r.describe(&p.Actor))
	}
}

func (r *reporter) violation() {
	h, res := r.f.History, &r.f.Result
	r.b.WriteString("---\n")
	fmt.Fprintf(&r.b, "Longest linearizable prefix (%d of %d calls):\n", len(res.Longest), len(h.Calls))
	for _, id := range res.Longest {
		c := &h.Calls[id]
		fmt.Fprintf(&r.b, "  %s %s: %s\n", threadName(c.Thread), r.describe(&c.Actor), formatValue(c.Result))
	}
	if len(res.Divergence) > 0 {
		r.b.WriteString("Calls that could follow the prefix:\n")
		for i := range res.Divergence {
			d := &res.Divergence[i]
			c := &h.Calls[d.Call]
			fmt.Fprintf(&r.b, "  %s %s: recorded %s, expected %s\n",
				threadName(c.Thread), r.describe(&c.Actor), formatValue(d.Recorded), formatValue(d.Expected))
		}
	}
	if res.ModelFinal != nil && h.Final != nil {
		fmt.Fprintf(&r.b, "Final state differs: object %s, expected %s\n", h.Final, res.ModelFinal)
	}
}
