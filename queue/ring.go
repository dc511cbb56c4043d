// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import (
	"slices"

	"code.hybscloud.com/lincheck"
)

// Ring is the sequential model of a FIFO queue.
//
// A capacity of 0 means unbounded. Ring satisfies
// lincheck.Sequential[*Ring[T]].
type Ring[T comparable] struct {
	items    []T
	capacity int
}

// NewRing creates an empty model with the given capacity.
func NewRing[T comparable](capacity int) *Ring[T] {
	return &Ring[T]{capacity: capacity}
}

// Push appends v and reports true, or reports false if the model is full.
func (r *Ring[T]) Push(v T) bool {
	if r.capacity > 0 && len(r.items) >= r.capacity {
		return false
	}
	r.items = append(r.items, v)
	return true
}

// Pop removes the oldest element.
func (r *Ring[T]) Pop() Popped[T] {
	if len(r.items) == 0 {
		return Popped[T]{}
	}
	v := r.items[0]
	r.items = slices.Delete(r.items, 0, 1)
	return Popped[T]{Ok: true, Value: v}
}

// Len returns the number of elements.
func (r *Ring[T]) Len() int {
	return len(r.items)
}

// Clone returns an independent copy.
func (r *Ring[T]) Clone() *Ring[T] {
	return &Ring[T]{items: slices.Clone(r.items), capacity: r.capacity}
}

// Snapshot returns the contents from front to back.
func (r *Ring[T]) Snapshot() lincheck.Snapshot {
	return lincheck.Sequence[T](slices.Clone(r.items))
}
