// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"fmt"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lincheck"
)

// Popped is the result of a pop: (false, zero) on an empty queue.
type Popped[T comparable] struct {
	Ok    bool
	Value T
}

func (p Popped[T]) String() string {
	return fmt.Sprintf("(%t, %v)", p.Ok, p.Value)
}

// Subject adapts a [Queue] to the checker. Full and empty are results, not
// errors: Push reports false and Pop reports (false, zero).
type Subject[T comparable] struct {
	q Queue[T]
}

// NewSubject wraps q.
func NewSubject[T comparable](q Queue[T]) *Subject[T] {
	return &Subject[T]{q: q}
}

// Queue returns the wrapped queue.
func (s *Subject[T]) Queue() Queue[T] {
	return s.q
}

// Push enqueues v.
// Panics if the queue fails with anything but ErrWouldBlock.
func (s *Subject[T]) Push(v T) bool {
	err := s.q.Enqueue(&v)
	if !IsNonFailure(err) {
		panic(err)
	}
	return err == nil
}

// Pop dequeues once.
// Panics if the queue fails with anything but ErrWouldBlock.
func (s *Subject[T]) Pop() Popped[T] {
	v, err := s.q.Dequeue()
	if !IsNonFailure(err) {
		panic(err)
	}
	if err != nil {
		return Popped[T]{}
	}
	return Popped[T]{Ok: true, Value: v}
}

// PopRetry dequeues, retrying up to attempts times with backoff while the
// queue is empty. The last attempt decides the result.
func (s *Subject[T]) PopRetry(attempts int) Popped[T] {
	backoff := iox.Backoff{}
	for i := 0; ; i++ {
		if p := s.Pop(); p.Ok || i+1 >= attempts {
			return p
		}
		backoff.Wait()
	}
}

// Snapshot returns the contents from front to back.
//
// Snapshot must only be called when no other goroutine uses the queue.
// Queues implementing [Traverser] are read in place. Others are drained and
// refilled in the same order, which takes over both the producer and the
// consumer role; a queue that refuses to take back its own elements keeps
// only those it accepted, and the snapshot still describes what was drained.
func (s *Subject[T]) Snapshot() lincheck.Snapshot {
	if t, ok := s.q.(Traverser[T]); ok {
		return lincheck.Sequence[T](t.Contents())
	}
	return lincheck.Sequence[T](s.drain())
}

func (s *Subject[T]) drain() []T {
	var items []T
	for {
		v, err := s.q.Dequeue()
		if err != nil {
			break
		}
		items = append(items, v)
	}
	for i := range items {
		if s.q.Enqueue(&items[i]) != nil {
			break
		}
	}
	return items
}
