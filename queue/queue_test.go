// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/lincheck"
	"code.hybscloud.com/lincheck/queue"
)

// =============================================================================
// Bounded Queues - Basic Operations
// =============================================================================

// TestBoundedBasic fills, overflows and drains each bounded queue.
func TestBoundedBasic(t *testing.T) {
	tests := []struct {
		name string
		q    queue.Queue[int]
	}{
		{"SPSC", queue.NewSPSC[int](3)},
		{"MPMC", queue.NewMPMC[int](3)},
		{"MPSC", queue.NewMPSC[int](3)},
		{"SPMC", queue.NewSPMC[int](3)},
		{"Racy", queue.NewRacy[int](3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.q
			if q.Cap() != 4 {
				t.Fatalf("Cap: got %d, want 4", q.Cap())
			}

			// Enqueue to capacity
			for i := range 4 {
				v := i + 100
				if err := q.Enqueue(&v); err != nil {
					t.Fatalf("Enqueue(%d): %v", i, err)
				}
			}

			// Full queue returns ErrWouldBlock
			v := 999
			if err := q.Enqueue(&v); !errors.Is(err, queue.ErrWouldBlock) {
				t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
			}

			// Dequeue in FIFO order
			for i := range 4 {
				val, err := q.Dequeue()
				if err != nil {
					t.Fatalf("Dequeue(%d): %v", i, err)
				}
				if val != i+100 {
					t.Fatalf("Dequeue(%d): got %d, want %d", i, val, i+100)
				}
			}

			// Empty queue returns ErrWouldBlock
			if _, err := q.Dequeue(); !queue.IsWouldBlock(err) {
				t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
			}
		})
	}
}

// TestBoundedWrapAround cycles through the ring several times.
func TestBoundedWrapAround(t *testing.T) {
	for _, q := range []queue.Queue[int]{
		queue.NewSPSC[int](2), queue.NewMPMC[int](2), queue.NewMPSC[int](2),
		queue.NewSPMC[int](2), queue.NewRacy[int](2),
	} {
		for round := range 10 {
			for i := range 2 {
				v := round*10 + i
				if err := q.Enqueue(&v); err != nil {
					t.Fatalf("round %d: Enqueue(%d): %v", round, v, err)
				}
			}
			for i := range 2 {
				val, err := q.Dequeue()
				if err != nil || val != round*10+i {
					t.Fatalf("round %d: Dequeue: got (%d, %v), want %d", round, val, err, round*10+i)
				}
			}
		}
	}
}

func TestCapacityPanics(t *testing.T) {
	for name, fn := range map[string]func(){
		"SPSC": func() { queue.NewSPSC[int](1) },
		"MPMC": func() { queue.NewMPMC[int](1) },
		"MPSC": func() { queue.NewMPSC[int](0) },
		"SPMC": func() { queue.NewSPMC[int](-1) },
		"Racy": func() { queue.NewRacy[int](0) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			fn()
		})
	}
}

// =============================================================================
// Michael–Scott Queue
// =============================================================================

func TestMSBasic(t *testing.T) {
	q := queue.NewMS[int]()
	if q.Cap() != 0 {
		t.Fatalf("Cap: got %d, want 0", q.Cap())
	}
	if _, err := q.Dequeue(); !queue.IsWouldBlock(err) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
	for i := range 100 {
		v := i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	for i := range 100 {
		val, err := q.Dequeue()
		if err != nil || val != i {
			t.Fatalf("Dequeue(%d): got (%d, %v)", i, val, err)
		}
	}
	if _, err := q.Dequeue(); !queue.IsWouldBlock(err) {
		t.Fatalf("Dequeue on drained: got %v, want ErrWouldBlock", err)
	}
}

// TestMSConcurrent checks that every enqueued value is dequeued exactly once.
func TestMSConcurrent(t *testing.T) {
	const producers, perProducer = 4, 1000
	q := queue.NewMS[int]()
	done := make(chan struct{})
	for p := range producers {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := range perProducer {
				v := p*perProducer + i
				if err := q.Enqueue(&v); err != nil {
					t.Errorf("Enqueue(%d): %v", v, err)
					return
				}
			}
		}()
	}
	for range producers {
		<-done
	}
	seen := make([]bool, producers*perProducer)
	for range producers * perProducer {
		v, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if seen[v] {
			t.Fatalf("value %d dequeued twice", v)
		}
		seen[v] = true
	}
}

// TestBoundedConcurrent checks that every value enqueued by concurrent
// producers is dequeued exactly once by concurrent consumers.
func TestBoundedConcurrent(t *testing.T) {
	if queue.RaceEnabled {
		t.Skip("skip: lock-free slot handoff is reported by the race detector")
	}
	const perProducer = 2000
	tests := []struct {
		name                 string
		q                    queue.Queue[int]
		producers, consumers int
	}{
		{"MPMC", queue.NewMPMC[int](64), 4, 4},
		{"MPSC", queue.NewMPSC[int](64), 4, 1},
		{"SPMC", queue.NewSPMC[int](64), 1, 4},
		{"SPSC", queue.NewSPSC[int](64), 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := tt.producers * perProducer
			var wg sync.WaitGroup
			for p := range tt.producers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					backoff := iox.Backoff{}
					for i := 0; i < perProducer; {
						v := p*perProducer + i
						if err := tt.q.Enqueue(&v); err != nil {
							backoff.Wait()
							continue
						}
						backoff.Reset()
						i++
					}
				}()
			}
			got := make(chan int, total)
			var remaining atomic.Int64
			remaining.Store(int64(total))
			for range tt.consumers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					backoff := iox.Backoff{}
					for remaining.Load() > 0 {
						v, err := tt.q.Dequeue()
						if err != nil {
							backoff.Wait()
							continue
						}
						backoff.Reset()
						remaining.Add(-1)
						got <- v
					}
				}()
			}
			wg.Wait()
			close(got)
			seen := make([]bool, total)
			for v := range got {
				if seen[v] {
					t.Fatalf("value %d dequeued twice", v)
				}
				seen[v] = true
			}
			for v, ok := range seen {
				if !ok {
					t.Fatalf("value %d lost", v)
				}
			}
		})
	}
}

// =============================================================================
// Model and Subject
// =============================================================================

func TestRing(t *testing.T) {
	r := queue.NewRing[int](2)
	if !r.Push(1) || !r.Push(2) || r.Push(3) {
		t.Fatalf("Push: bounded model accepted the wrong elements")
	}
	c := r.Clone()
	if got := r.Pop(); got != (queue.Popped[int]{Ok: true, Value: 1}) {
		t.Fatalf("Pop: got %v", got)
	}
	if c.Len() != 2 || r.Len() != 1 {
		t.Fatalf("Clone shares state: clone %d, original %d", c.Len(), r.Len())
	}
	r.Pop()
	if got := r.Pop(); got.Ok {
		t.Fatalf("Pop on empty: got %v", got)
	}
	if s := c.Snapshot().String(); s != "[1, 2]" {
		t.Fatalf("Snapshot: got %s", s)
	}

	u := queue.NewRing[int](0)
	for i := range 100 {
		if !u.Push(i) {
			t.Fatalf("unbounded model rejected %d", i)
		}
	}
}

// TestSubjectMatchesModel applies one sequence of operations to each kind
// and to its model and compares results and snapshots.
func TestSubjectMatchesModel(t *testing.T) {
	for _, kind := range queue.Kinds() {
		t.Run(kind.Name, func(t *testing.T) {
			newObject, newModel := kind.Factories(4)
			s, m := newObject(), newModel()
			for i := range 6 {
				if got, want := s.Push(i), m.Push(i); got != want {
					t.Fatalf("Push(%d): got %t, want %t", i, got, want)
				}
			}
			if !s.Snapshot().Equal(m.Snapshot()) {
				t.Fatalf("Snapshot: got %s, want %s", s.Snapshot(), m.Snapshot())
			}
			for i := range 3 {
				if got, want := s.Pop(), m.Pop(); got != want {
					t.Fatalf("Pop #%d: got %v, want %v", i, got, want)
				}
			}
			// Snapshot leaves the contents in place.
			first := s.Snapshot()
			if !first.Equal(s.Snapshot()) || !first.Equal(m.Snapshot()) {
				t.Fatalf("Snapshot: got %s, want %s", first, m.Snapshot())
			}
			if first.Hash() != m.Snapshot().Hash() {
				t.Fatalf("Hash differs for equal snapshots")
			}
		})
	}
}

// opaque hides the Contents method of the queue it wraps.
type opaque struct {
	queue.Queue[int]
}

// TestSnapshotInPlace checks that traversable queues are read without
// being dequeued: after a wrap-around their indices do not move.
func TestSnapshotInPlace(t *testing.T) {
	for _, kind := range queue.Kinds() {
		t.Run(kind.Name, func(t *testing.T) {
			q := kind.New(4)
			tr, ok := q.(queue.Traverser[int])
			if !ok {
				t.Fatalf("%T does not implement Traverser", q)
			}
			for i := range 6 {
				v := i
				if err := q.Enqueue(&v); err != nil {
					t.Fatalf("Enqueue(%d): %v", i, err)
				}
				if _, err := q.Dequeue(); err != nil {
					t.Fatalf("Dequeue(%d): %v", i, err)
				}
			}
			for _, v := range []int{7, 8, 9} {
				if err := q.Enqueue(&v); err != nil {
					t.Fatalf("Enqueue(%d): %v", v, err)
				}
			}
			for range 2 {
				if got := tr.Contents(); len(got) != 3 || got[0] != 7 || got[1] != 8 || got[2] != 9 {
					t.Fatalf("Contents: got %v, want [7 8 9]", got)
				}
			}
			if v, err := q.Dequeue(); err != nil || v != 7 {
				t.Fatalf("Dequeue after Contents: got (%d, %v), want 7", v, err)
			}
		})
	}
}

// TestSnapshotDrainRefill covers queues without Contents.
func TestSnapshotDrainRefill(t *testing.T) {
	s := queue.NewSubject[int](opaque{queue.NewMPMC[int](4)})
	for _, v := range []int{1, 2, 3} {
		s.Push(v)
	}
	if got := s.Snapshot().String(); got != "[1, 2, 3]" {
		t.Fatalf("Snapshot: got %s", got)
	}
	if got := s.Pop(); got != (queue.Popped[int]{Ok: true, Value: 1}) {
		t.Fatalf("Pop after Snapshot: got %v", got)
	}
}

// TestSnapshotEquivalence compares snapshots of the same logical contents
// reached through different ring positions and representations.
func TestSnapshotEquivalence(t *testing.T) {
	fill := func(q queue.Queue[int], cycles int, values ...int) lincheck.Snapshot {
		s := queue.NewSubject(q)
		for i := range cycles {
			s.Push(100 + i)
			s.Pop()
		}
		for _, v := range values {
			if !s.Push(v) {
				t.Fatalf("Push(%d) rejected", v)
			}
		}
		return s.Snapshot()
	}
	model := queue.NewRing[int](4)
	model.Push(1)
	model.Push(2)
	equal := []lincheck.Snapshot{
		fill(queue.NewSPSC[int](4), 0, 1, 2),
		fill(queue.NewSPSC[int](4), 3, 1, 2),
		fill(queue.NewMPMC[int](4), 7, 1, 2),
		fill(opaque{queue.NewSPSC[int](4)}, 5, 1, 2),
		fill(queue.NewMS[int](), 2, 1, 2),
		model.Snapshot(),
	}
	differ := []lincheck.Snapshot{
		fill(queue.NewSPSC[int](4), 3, 2, 1),
		fill(queue.NewSPSC[int](4), 1, 1, 2, 3),
		fill(queue.NewSPSC[int](4), 2),
	}
	for i, a := range equal {
		for j, b := range equal {
			if !a.Equal(b) {
				t.Fatalf("snapshot %d (%s) != snapshot %d (%s)", i, a, j, b)
			}
			if a.Hash() != b.Hash() {
				t.Fatalf("equal snapshots %d and %d hash differently", i, j)
			}
		}
		for j, d := range differ {
			if a.Equal(d) || d.Equal(a) {
				t.Fatalf("snapshot %d (%s) equals %s (#%d)", i, a, d, j)
			}
		}
	}
}

func TestSubjectPopRetry(t *testing.T) {
	s := queue.NewSubject[int](queue.NewMS[int]())
	if got := s.PopRetry(queue.RetryAttempts); got.Ok {
		t.Fatalf("PopRetry on empty: got %v", got)
	}
	s.Push(5)
	if got := s.PopRetry(queue.RetryAttempts); got != (queue.Popped[int]{Ok: true, Value: 5}) {
		t.Fatalf("PopRetry: got %v", got)
	}
	if got := (queue.Popped[int]{Ok: true, Value: 5}).String(); got != "(true, 5)" {
		t.Fatalf("String: got %q", got)
	}
}

// =============================================================================
// Kinds
// =============================================================================

func TestKinds(t *testing.T) {
	names := map[string]bool{}
	for _, k := range queue.Kinds() {
		names[k.Name] = k.Broken
	}
	if len(names) != 6 || !names["racy"] {
		t.Fatalf("Kinds: %v", names)
	}
	for _, name := range []string{"spsc", "mpmc", "mpsc", "spmc", "ms"} {
		if broken, ok := names[name]; !ok || broken {
			t.Fatalf("Kinds: %s missing or broken in %v", name, names)
		}
	}
	if k, _ := queue.LookupKind("mpsc"); k.Producers != nil || len(k.Consumers) != 1 {
		t.Fatalf("mpsc bindings: producers %v, consumers %v", k.Producers, k.Consumers)
	}
	if k, _ := queue.LookupKind("spmc"); len(k.Producers) != 1 || k.Consumers != nil {
		t.Fatalf("spmc bindings: producers %v, consumers %v", k.Producers, k.Consumers)
	}
	if _, ok := queue.LookupKind("lcrq"); ok {
		t.Fatalf("LookupKind(lcrq): found")
	}
	k, _ := queue.LookupKind("spsc")
	reg, err := k.Registry(lincheck.IntGen{Min: 1, Max: 2})
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("Registry.Len: got %d", reg.Len())
	}
	// SPSC rounds 3 to 4, and the model follows.
	_, newModel := k.Factories(3)
	m := newModel()
	for i := range 4 {
		if !m.Push(i) {
			t.Fatalf("model rejected push %d below capacity 4", i)
		}
	}
	if m.Push(4) {
		t.Fatalf("model accepted push beyond capacity 4")
	}
}
