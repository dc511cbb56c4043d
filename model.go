// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import (
	"fmt"
	"hash/maphash"
	"strings"
)

// Snapshot is a logical, representation-independent view of an object's
// visible state.
//
// Two snapshots are equal iff the abstract data type's visible state is
// equal. Internal layout (slot cycles, retired nodes, padding) must not
// influence Hash or Equal. Equal must be an equivalence relation and equal
// snapshots must have equal hashes; the checker never dedupes on hash alone.
//
// Example (a FIFO queue holding 1, 2, 3 from front to back):
//
//	snap := lincheck.Sequence[int]{1, 2, 3}
type Snapshot interface {
	// Hash returns a hash of the logical contents.
	Hash() uint64

	// Equal reports whether other describes the same logical contents.
	Equal(other Snapshot) bool

	// String renders the contents for counter-example reports.
	String() string
}

// Snapshotter is implemented by objects that can describe their logical
// contents.
//
// The sequential model must implement it. The object under test may
// implement it; the executor then compares its final state against the
// state reached by the linearization. Implementations may drain and
// restore the object: the executor only calls Snapshot at quiescent points,
// after every thread of the measured region has finished.
type Snapshotter interface {
	Snapshot() Snapshot
}

// Sequential is the contract of a sequential model.
//
// A sequential model is a trivially correct, non-concurrent implementation
// of the same abstract data type. The checker applies each operation to a
// Clone, so a model state that has been stored for backtracking is never
// mutated afterwards.
//
// Example:
//
//	type Ring struct{ items []int }
//
//	func (r *Ring) Clone() *Ring { return &Ring{items: slices.Clone(r.items)} }
//	func (r *Ring) Snapshot() lincheck.Snapshot { return lincheck.Sequence[int](r.items) }
type Sequential[S any] interface {
	Snapshotter
	Clone() S
}

// Sequence is a [Snapshot] over an ordered sequence of comparable values,
// such as the front-to-back contents of a queue.
type Sequence[T comparable] []T

var sequenceSeed = maphash.MakeSeed()

// Hash returns a hash of the elements in order.
func (s Sequence[T]) Hash() uint64 {
	h := uint64(len(s))
	for _, v := range s {
		h = h*0x100000001b3 ^ maphash.Comparable(sequenceSeed, v)
	}
	return h
}

// Equal reports whether other is a Sequence of the same elements in the
// same order.
func (s Sequence[T]) Equal(other Snapshot) bool {
	o, ok := other.(Sequence[T])
	if !ok || len(o) != len(s) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Sequence[T]) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
