// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// MS is the Michael–Scott lock-free unbounded queue.
//
// head always points to a sentinel node whose successor holds the oldest
// element; tail points to the last node or lags behind it by one, in which
// case any operation helps advance it. Removed nodes are reclaimed by the
// garbage collector, so ABA on node pointers cannot occur.
//
// Any number of goroutines may call Enqueue and Dequeue.
type MS[T any] struct {
	_    pad
	head atomic.Pointer[msNode[T]]
	_    pad
	tail atomic.Pointer[msNode[T]]
	_    pad
}

type msNode[T any] struct {
	value T
	next  atomic.Pointer[msNode[T]]
}

// NewMS creates an empty Michael–Scott queue.
func NewMS[T any]() *MS[T] {
	q := &MS[T]{}
	sentinel := &msNode[T]{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue appends a copy of *elem. It never fails.
func (q *MS[T]) Enqueue(elem *T) error {
	n := &msNode[T]{value: *elem}
	sw := spin.Wait{}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			return nil
		}
		sw.Once()
	}
}

// Dequeue removes and returns the oldest element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MS[T]) Dequeue() (T, error) {
	sw := spin.Wait{}
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			var zero T
			return zero, ErrWouldBlock
		}
		if head == tail {
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		elem := next.value
		if q.head.CompareAndSwap(head, next) {
			return elem, nil
		}
		sw.Once()
	}
}

// Cap returns 0: the queue is unbounded.
func (q *MS[T]) Cap() int {
	return 0
}

// Contents lists the elements from head to tail.
func (q *MS[T]) Contents() []T {
	var items []T
	for n := q.head.Load().next.Load(); n != nil; n = n.next.Load() {
		items = append(items, n.value)
	}
	return items
}
