// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"runtime"

	"code.hybscloud.com/atomix"
)

// Racy is a bounded ring with per-slot sequence numbers whose Enqueue is
// deliberately broken.
//
// Dequeue is correct: it claims its slot with a CAS on head as [MPMC] does.
// Enqueue reads tail, writes the slot and publishes it with plain stores,
// without ever claiming the slot. Two producers that read the same tail both report
// success, but only one element survives. Racy exists to demonstrate that
// the checker finds such lost updates; it is not linearizable.
type Racy[T any] struct {
	_    pad
	tail atomix.Uint64
	_    pad
	head atomix.Uint64
	_    pad
	ring seqRing[T]
}

// NewRacy creates a broken queue.
// Capacity rounds up to the next power of 2.
func NewRacy[T any](capacity int) *Racy[T] {
	return &Racy[T]{ring: newSeqRing[T](capacity)}
}

// Enqueue adds an element, or loses it to a concurrent Enqueue.
// Returns ErrWouldBlock if the queue is full.
func (q *Racy[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadAcquire()
	s := q.ring.slot(tail)
	if q.ring.ahead(s, tail) < 0 {
		return ErrWouldBlock
	}
	// Yield between reading tail and publishing it, so a concurrent
	// producer can observe the same tail.
	runtime.Gosched()
	q.ring.publish(s, tail, *elem)
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element from the queue.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Racy[T]) Dequeue() (T, error) {
	return dequeueShared(&q.head, &q.ring)
}

// Cap returns the queue capacity.
func (q *Racy[T]) Cap() int {
	return int(q.ring.capacity)
}

// Contents lists what Dequeue would return from head on.
func (q *Racy[T]) Contents() []T {
	return q.ring.contents(q.head.LoadAcquire())
}
