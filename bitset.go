// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lincheck

import "math/bits"

// bitset records which calls have been linearized.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) clone() bitset {
	c := make(bitset, len(b))
	copy(c, b)
	return c
}

func (b bitset) set(i int) bitset {
	b[i/64] |= 1 << (uint(i) % 64)
	return b
}

func (b bitset) clear(i int) bitset {
	b[i/64] &^= 1 << (uint(i) % 64)
	return b
}

func (b bitset) get(i int) bool {
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b bitset) hash() uint64 {
	h := uint64(b.count())
	for _, w := range b {
		h = h*0x9e3779b97f4a7c15 ^ w
	}
	return h
}

func (b bitset) equal(o bitset) bool {
	if len(b) != len(o) {
		return false
	}
	for i := range b {
		if b[i] != o[i] {
			return false
		}
	}
	return true
}
