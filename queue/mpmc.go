// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPMC is a multi-producer multi-consumer bounded queue.
//
// Producers claim a position with a CAS on tail, consumers with a CAS on
// head; the slot's sequence number then tells the other side when the
// element is published or taken.
//
// A goroutine descheduled between its CAS and the sequence store holds up
// its slot. Meanwhile a Dequeue may report empty although a later position
// is already published, and an Enqueue may report full although a later
// slot is already free. Histories caught in that window are not
// linearizable; outside it the queue is.
type MPMC[T any] struct {
	_    pad
	tail atomix.Uint64
	_    pad
	head atomix.Uint64
	_    pad
	ring seqRing[T]
}

// NewMPMC creates a new MPMC queue.
// Capacity rounds up to the next power of 2.
func NewMPMC[T any](capacity int) *MPMC[T] {
	return &MPMC[T]{ring: newSeqRing[T](capacity)}
}

// Enqueue adds an element to the queue.
// Returns ErrWouldBlock if the queue is full.
func (q *MPMC[T]) Enqueue(elem *T) error {
	return enqueueShared(&q.tail, &q.ring, elem)
}

// Dequeue removes and returns the oldest element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPMC[T]) Dequeue() (T, error) {
	return dequeueShared(&q.head, &q.ring)
}

// Cap returns the queue capacity.
func (q *MPMC[T]) Cap() int {
	return int(q.ring.capacity)
}

// Contents lists the elements from head to tail.
func (q *MPMC[T]) Contents() []T {
	return q.ring.contents(q.head.LoadAcquire())
}

// enqueueShared is the producer side of the queues with several producers.
func enqueueShared[T any](tail *atomix.Uint64, ring *seqRing[T], elem *T) error {
	sw := spin.Wait{}
	for {
		t := tail.LoadAcquire()
		s := ring.slot(t)
		d := ring.ahead(s, t)
		if d == 0 {
			if tail.CompareAndSwapAcqRel(t, t+1) {
				ring.publish(s, t, *elem)
				return nil
			}
		} else if d < 0 {
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// dequeueShared is the consumer side of the queues with several consumers.
func dequeueShared[T any](head *atomix.Uint64, ring *seqRing[T]) (T, error) {
	sw := spin.Wait{}
	for {
		h := head.LoadAcquire()
		s := ring.slot(h)
		d := ring.ahead(s, h+1)
		if d == 0 {
			if head.CompareAndSwapAcqRel(h, h+1) {
				return ring.take(s, h), nil
			}
		} else if d < 0 {
			var zero T
			return zero, ErrWouldBlock
		}
		sw.Once()
	}
}
