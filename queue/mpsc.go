// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import "code.hybscloud.com/atomix"

// MPSC is a multi-producer single-consumer bounded queue.
//
// Producers claim positions as in [MPMC]. The single consumer owns head
// and advances it with a plain store. Dequeue may only be called from one
// goroutine at a time; checks bind it to a thread through [Kind.Consumers].
//
// A producer descheduled between claim and publish makes Dequeue report
// empty even if later positions are published, so the queue is
// linearizable only outside that window.
type MPSC[T any] struct {
	_    pad
	tail atomix.Uint64
	_    pad
	head atomix.Uint64 // written by the consumer only
	_    pad
	ring seqRing[T]
}

// NewMPSC creates a new MPSC queue.
// Capacity rounds up to the next power of 2.
func NewMPSC[T any](capacity int) *MPSC[T] {
	return &MPSC[T]{ring: newSeqRing[T](capacity)}
}

// Enqueue adds an element to the queue.
// Returns ErrWouldBlock if the queue is full.
func (q *MPSC[T]) Enqueue(elem *T) error {
	return enqueueShared(&q.tail, &q.ring, elem)
}

// Dequeue removes and returns the oldest element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	s := q.ring.slot(head)
	if q.ring.ahead(s, head+1) != 0 {
		var zero T
		return zero, ErrWouldBlock
	}
	elem := q.ring.take(s, head)
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the queue capacity.
func (q *MPSC[T]) Cap() int {
	return int(q.ring.capacity)
}

// Contents lists the elements from head to tail.
func (q *MPSC[T]) Contents() []T {
	return q.ring.contents(q.head.LoadAcquire())
}
