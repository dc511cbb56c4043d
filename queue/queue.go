// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package queue provides FIFO queues to be checked for linearizability,
// their sequential model and ready-made operation registries.
//
// The queues are test subjects, not products:
//
//   - SPSC: Lamport ring buffer, one producer and one consumer
//   - MPMC, MPSC, SPMC: bounded rings with per-slot sequence numbers,
//     claiming slots with CAS on the sides that have several goroutines
//   - MS: Michael–Scott linked queue, any number of producers and consumers
//   - Racy: bounded ring whose enqueue publishes without claiming its slot,
//     losing elements under contention
//
// [Ring] is the sequential model of all of them. [Subject] adapts a [Queue]
// to the checker: full and empty become return values, and the logical
// contents are exposed as a snapshot.
package queue

import "code.hybscloud.com/iox"

// Queue is the combined producer-consumer interface of the queues under
// test.
//
// Enqueue and Dequeue are non-blocking and return ErrWouldBlock when they
// cannot proceed.
type Queue[T any] interface {
	// Enqueue adds a copy of *elem.
	// Returns nil on success, ErrWouldBlock if the queue is full.
	Enqueue(elem *T) error

	// Dequeue removes and returns the oldest element.
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	Dequeue() (T, error)

	// Cap returns the capacity, or 0 if the queue is unbounded.
	Cap() int
}

// Traverser is implemented by queues that can list their elements, oldest
// first, without removing them. Contents is only meaningful while no other
// goroutine uses the queue.
type Traverser[T any] interface {
	Contents() []T
}

// ErrWouldBlock indicates the operation cannot proceed immediately.
// Alias for iox.ErrWouldBlock for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates a full or empty queue.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsNonFailure reports whether err is nil or ErrWouldBlock.
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
