// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package queue

import "code.hybscloud.com/atomix"

// seqRing is the slot array shared by the sequence-numbered queues.
//
// Slot i of lap k holds seq == i+k*capacity while free for the producer of
// position i+k*capacity, and seq == pos+1 once the element of pos is
// published. Taking the element sets seq to pos+capacity, freeing the slot
// for the next lap.
type seqRing[T any] struct {
	buffer   []seqSlot[T]
	mask     uint64
	capacity uint64
}

type seqSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort
}

// newSeqRing rounds capacity up to the next power of 2.
func newSeqRing[T any](capacity int) seqRing[T] {
	if capacity < 2 {
		panic("queue: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	r := seqRing[T]{
		buffer:   make([]seqSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}
	for i := range n {
		r.buffer[i].seq.StoreRelaxed(i)
	}
	return r
}

func (r *seqRing[T]) slot(pos uint64) *seqSlot[T] {
	return &r.buffer[pos&r.mask]
}

// ahead returns how far the slot of pos is ahead of want: zero when it is
// ready, negative when it still belongs to the previous lap.
func (r *seqRing[T]) ahead(s *seqSlot[T], want uint64) int64 {
	return int64(s.seq.LoadAcquire() - want)
}

// publish hands v in the slot of pos to its consumer.
func (r *seqRing[T]) publish(s *seqSlot[T], pos uint64, v T) {
	s.data = v
	s.seq.StoreRelease(pos + 1)
}

// take removes the element of pos and frees the slot for the next lap.
func (r *seqRing[T]) take(s *seqSlot[T], pos uint64) T {
	v := s.data
	var zero T
	s.data = zero
	s.seq.StoreRelease(pos + r.capacity)
	return v
}

// contents lists the published elements from head on, stopping at the first
// slot that is not ready for its consumer.
func (r *seqRing[T]) contents(head uint64) []T {
	items := make([]T, 0, r.capacity)
	for pos := head; pos-head < r.capacity; pos++ {
		s := r.slot(pos)
		if r.ahead(s, pos+1) != 0 {
			break
		}
		items = append(items, s.data)
	}
	return items
}
