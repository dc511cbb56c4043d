// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"slices"
	"testing"
)

// =============================================================================
// Test Model
// =============================================================================

type popResult struct {
	ok bool
	v  int
}

type fifo struct {
	items []int
}

func (f *fifo) Clone() *fifo { return &fifo{items: slices.Clone(f.items)} }

func (f *fifo) Snapshot() Snapshot { return Sequence[int](slices.Clone(f.items)) }

type fifoObject struct{}

func fifoRegistry(t *testing.T) *Registry[*fifoObject, *fifo] {
	t.Helper()
	reg, err := NewRegistry(
		Operation[*fifoObject, *fifo]{
			Name:     "push",
			Args:     []Gen{IntGen{Min: 1, Max: 3}},
			Variants: []Variant[*fifoObject]{{Name: "Push", Call: func(*fifoObject, []any) any { return true }}},
			Seq: func(f *fifo, args []any) any {
				f.items = append(f.items, args[0].(int))
				return true
			},
		},
		Operation[*fifoObject, *fifo]{
			Name:     "pop",
			Variants: []Variant[*fifoObject]{{Name: "Pop", Call: func(*fifoObject, []any) any { return popResult{} }}},
			Seq: func(f *fifo, _ []any) any {
				if len(f.items) == 0 {
					return popResult{}
				}
				v := f.items[0]
				f.items = f.items[1:]
				return popResult{ok: true, v: v}
			},
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func push(v int, invoke, ret uint64) Call {
	return Call{Actor: Actor{Op: 0, Args: []any{v}}, Invoke: invoke, Return: ret, Result: true}
}

func pop(ok bool, v int, invoke, ret uint64) Call {
	return Call{Actor: Actor{Op: 1}, Invoke: invoke, Return: ret, Result: popResult{ok: ok, v: v}}
}

func history(calls ...Call) *History {
	for i := range calls {
		calls[i].ID = i
	}
	return &History{Calls: calls}
}

func newFifo() *fifo { return &fifo{} }

// replay applies a witness to a fresh model and compares every result.
func replay(t *testing.T, reg *Registry[*fifoObject, *fifo], h *History, witness []int) {
	t.Helper()
	if len(witness) != len(h.Calls) {
		t.Fatalf("witness has %d calls, history %d", len(witness), len(h.Calls))
	}
	m := newFifo()
	placed := make([]bool, len(h.Calls))
	for _, id := range witness {
		c := &h.Calls[id]
		for j := range h.Calls {
			if !placed[j] && j != id && h.Calls[j].precedes(c) {
				t.Fatalf("witness places call %d before call %d, which precedes it", id, j)
			}
		}
		placed[id] = true
		if got := reg.op(c.Actor.Op).Seq(m, c.Actor.Args); !equalResults(c.Result, got) {
			t.Fatalf("witness call %d: model returns %v, recorded %v", id, got, c.Result)
		}
	}
}

// =============================================================================
// Verdicts
// =============================================================================

// TestCheckSequentialFIFO accepts push 1, 2, 3 then three pops on one thread.
func TestCheckSequentialFIFO(t *testing.T) {
	reg := fifoRegistry(t)
	h := history(
		push(1, 1, 2), push(2, 3, 4), push(3, 5, 6),
		pop(true, 1, 7, 8), pop(true, 2, 9, 10), pop(true, 3, 11, 12),
	)
	res := Check(reg, newFifo, h)
	if res.Verdict != Linearizable {
		t.Fatalf("Verdict: got %v, want linearizable", res.Verdict)
	}
	if !slices.Equal(res.Witness, []int{0, 1, 2, 3, 4, 5}) {
		t.Fatalf("Witness: got %v, want program order", res.Witness)
	}
	replay(t, reg, h, res.Witness)
}

// TestCheckOverlappingInterleavings accepts FIFO-consistent outcomes of two
// pushes racing two pops on another thread.
func TestCheckOverlappingInterleavings(t *testing.T) {
	reg := fifoRegistry(t)
	outcomes := [][2]popResult{
		{{true, 1}, {true, 2}},
		{{false, 0}, {true, 1}},
		{{true, 1}, {false, 0}},
	}
	for _, o := range outcomes {
		// Thread 0: push(1), push(2). Thread 1: pop, pop.
		h := history(
			push(1, 1, 10), push(2, 11, 20),
			pop(o[0].ok, o[0].v, 2, 15), pop(o[1].ok, o[1].v, 16, 21),
		)
		res := Check(reg, newFifo, h)
		if res.Verdict != Linearizable {
			t.Fatalf("outcome %v: got %v, want linearizable", o, res.Verdict)
		}
		replay(t, reg, h, res.Witness)
	}
}

// TestCheckRejectsUnknownValue rejects a pop of a value never pushed.
func TestCheckRejectsUnknownValue(t *testing.T) {
	reg := fifoRegistry(t)
	h := history(
		push(1, 1, 10), push(2, 11, 20),
		pop(true, 7, 2, 15), pop(true, 1, 16, 21),
	)
	res := Check(reg, newFifo, h)
	if res.Verdict != Violation {
		t.Fatalf("Verdict: got %v, want violation", res.Verdict)
	}
	if len(res.Divergence) == 0 {
		t.Fatalf("Divergence: empty")
	}
	found := false
	for _, d := range res.Divergence {
		if d.Call == 2 {
			found = true
			if d.Matches() {
				t.Fatalf("pop of 7 reported as matching the model")
			}
		}
	}
	if !found {
		t.Fatalf("Divergence %v does not include the bad pop", res.Divergence)
	}
}

// TestCheckRealTimeOrder rejects a reordering of non-overlapping pushes.
func TestCheckRealTimeOrder(t *testing.T) {
	reg := fifoRegistry(t)
	h := history(
		push(1, 1, 2), push(2, 3, 4),
		pop(true, 2, 5, 6),
	)
	res := Check(reg, newFifo, h)
	if res.Verdict != Violation {
		t.Fatalf("Verdict: got %v, want violation", res.Verdict)
	}
	if !slices.Equal(res.Longest, []int{0, 1}) {
		t.Fatalf("Longest: got %v, want [0 1]", res.Longest)
	}
	if len(res.Divergence) != 1 {
		t.Fatalf("Divergence: got %d entries, want 1", len(res.Divergence))
	}
	d := res.Divergence[0]
	if d.Recorded != (popResult{true, 2}) || d.Expected != (popResult{true, 1}) {
		t.Fatalf("Divergence: got recorded %v expected %v", d.Recorded, d.Expected)
	}
}

// TestCheckFinalSnapshot rejects histories whose results fit but whose
// final state does not.
func TestCheckFinalSnapshot(t *testing.T) {
	reg := fifoRegistry(t)

	h := history(push(1, 1, 4), push(2, 2, 3))
	h.Final = Sequence[int]{2, 1}
	if res := Check(reg, newFifo, h); res.Verdict != Linearizable {
		t.Fatalf("final [2 1]: got %v, want linearizable", res.Verdict)
	}

	h.Final = Sequence[int]{1}
	res := Check(reg, newFifo, h)
	if res.Verdict != Violation {
		t.Fatalf("final [1]: got %v, want violation", res.Verdict)
	}
	if len(res.Longest) != 2 || res.ModelFinal == nil {
		t.Fatalf("expected a complete prefix with model final state, got %+v", res)
	}
}

// TestCheckIdempotent checks the same history twice.
func TestCheckIdempotent(t *testing.T) {
	reg := fifoRegistry(t)
	h := history(
		push(1, 1, 10), push(2, 2, 11), push(3, 3, 12),
		pop(true, 3, 4, 13), pop(true, 1, 5, 14),
	)
	first := Check(reg, newFifo, h)
	second := Check(reg, newFifo, h)
	if first.Verdict != second.Verdict || !slices.Equal(first.Witness, second.Witness) {
		t.Fatalf("verdicts differ: %+v vs %+v", first, second)
	}
	if first.Verdict != Linearizable {
		t.Fatalf("Verdict: got %v, want linearizable", first.Verdict)
	}
	replay(t, reg, h, first.Witness)
}

// TestCheckStepBudget yields Unknown when the step bound is exhausted.
func TestCheckStepBudget(t *testing.T) {
	reg := fifoRegistry(t)
	var calls []Call
	for i := range 8 {
		calls = append(calls, push(i, 1, 100))
	}
	calls = append(calls, pop(true, 99, 1, 100))
	c := &checker[*fifoObject, *fifo]{reg: reg, newModel: newFifo, maxSteps: 10}
	res := c.check(history(calls...))
	if res.Verdict != Unknown {
		t.Fatalf("Verdict: got %v, want unknown", res.Verdict)
	}
}

// TestCheckEmptyHistory accepts the empty history.
func TestCheckEmptyHistory(t *testing.T) {
	res := Check(fifoRegistry(t), newFifo, history())
	if res.Verdict != Linearizable || len(res.Witness) != 0 {
		t.Fatalf("got %+v, want linearizable with empty witness", res)
	}
}

// =============================================================================
// Bitset
// =============================================================================

func TestBitset(t *testing.T) {
	b := newBitset(130)
	b.set(0).set(64).set(129)
	if !b.get(0) || !b.get(64) || !b.get(129) || b.get(1) {
		t.Fatalf("get: unexpected bits %v", b)
	}
	if b.count() != 3 {
		t.Fatalf("count: got %d, want 3", b.count())
	}
	c := b.clone()
	if !c.equal(b) || c.hash() != b.hash() {
		t.Fatalf("clone differs")
	}
	c.clear(64)
	if c.equal(b) || b.count() != 3 {
		t.Fatalf("clear modified the original")
	}
}
