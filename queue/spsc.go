// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import "code.hybscloud.com/atomix"

// SPSC is a single-producer single-consumer bounded queue.
//
// Lamport's ring buffer. Each side owns one index and keeps a stale copy of
// the other side's index, refreshing it only when the copy says the ring is
// full or empty. Enqueue may only be called from one goroutine and Dequeue
// from one other goroutine; checks bind them to threads through
// [Kind.Producers] and [Kind.Consumers].
type SPSC[T any] struct {
	_      pad
	cons   spscEnd // head
	_      pad
	prod   spscEnd // tail
	_      pad
	buffer []T
	mask   uint64
}

// spscEnd is one side of an SPSC ring: the index it advances and its last
// view of the opposite index.
type spscEnd struct {
	pos  atomix.Uint64
	seen uint64
}

// observe refreshes the view of the opposite index.
func (e *spscEnd) observe(other *spscEnd) uint64 {
	e.seen = other.pos.LoadAcquire()
	return e.seen
}

// NewSPSC creates a new SPSC queue.
// Capacity rounds up to the next power of 2.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		panic("queue: capacity must be >= 2")
	}

	n := roundToPow2(capacity)
	return &SPSC[T]{
		buffer: make([]T, n),
		mask:   uint64(n - 1),
	}
}

// Enqueue adds an element to the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *SPSC[T]) Enqueue(elem *T) error {
	tail := q.prod.pos.LoadRelaxed()
	if tail-q.prod.seen > q.mask && tail-q.prod.observe(&q.cons) > q.mask {
		return ErrWouldBlock
	}

	q.buffer[tail&q.mask] = *elem
	q.prod.pos.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPSC[T]) Dequeue() (T, error) {
	var zero T
	head := q.cons.pos.LoadRelaxed()
	if head >= q.cons.seen && head >= q.cons.observe(&q.prod) {
		return zero, ErrWouldBlock
	}

	i := head & q.mask
	elem := q.buffer[i]
	q.buffer[i] = zero
	q.cons.pos.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int {
	return len(q.buffer)
}

// Contents lists the elements from head to tail. Neither side's view of
// the other is touched.
func (q *SPSC[T]) Contents() []T {
	head, tail := q.cons.pos.LoadAcquire(), q.prod.pos.LoadAcquire()
	items := make([]T, 0, tail-head)
	for pos := head; pos != tail; pos++ {
		items = append(items, q.buffer[pos&q.mask])
	}
	return items
}
