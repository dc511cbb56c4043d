// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import "code.hybscloud.com/atomix"

// SPMC is a single-producer multi-consumer bounded queue.
//
// The single producer owns tail and publishes without a CAS; consumers
// claim positions as in [MPMC]. Enqueue may only be called from one
// goroutine at a time; checks bind it to a thread through [Kind.Producers].
//
// A consumer descheduled between claim and take keeps its slot occupied,
// so Enqueue may report full while fewer than Cap elements remain.
type SPMC[T any] struct {
	_    pad
	tail atomix.Uint64 // written by the producer only
	_    pad
	head atomix.Uint64
	_    pad
	ring seqRing[T]
}

// NewSPMC creates a new SPMC queue.
// Capacity rounds up to the next power of 2.
func NewSPMC[T any](capacity int) *SPMC[T] {
	return &SPMC[T]{ring: newSeqRing[T](capacity)}
}

// Enqueue adds an element to the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *SPMC[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	s := q.ring.slot(tail)
	if q.ring.ahead(s, tail) != 0 {
		return ErrWouldBlock
	}
	q.ring.publish(s, tail, *elem)
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns the oldest element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPMC[T]) Dequeue() (T, error) {
	return dequeueShared(&q.head, &q.ring)
}

// Cap returns the queue capacity.
func (q *SPMC[T]) Cap() int {
	return int(q.ring.capacity)
}

// Contents lists the elements from head to tail.
func (q *SPMC[T]) Contents() []T {
	return q.ring.contents(q.head.LoadAcquire())
}
