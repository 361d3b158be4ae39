// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

import (
	"math/bits"

	"code.hybscloud.com/atomix"
)

// countedIndex is a monotonically increasing position counter over a
// power-of-two ring. The low log2(capacity) bits of the count name a cell,
// the remaining bits form the wrap count, so a single 64-bit word carries
// both. Producers own the queue head; each stream owns one cursor.
type countedIndex struct {
	count atomix.Uint64
	mask  uint64
	shift uint
}

// Cell tag encoding. A cell written at count c carries the tag
// ((c>>shift)+1)<<1: always even and at least 2, so every generation,
// including the first, is distinct from initialTag. Bit 0 marks a cell
// that is not readable; initialTag is the never-written state and
// rmTag(initialTag) collides with no valid generation.
const initialTag uint64 = 1

func rmTag(tag uint64) uint64 { return tag &^ 1 }

func (ci *countedIndex) init(capacity uint64) {
	ci.mask = capacity - 1
	ci.shift = uint(bits.TrailingZeros64(capacity))
}

// wrapTag returns the tag a reader expects, and a writer stamps, for the
// cell addressed by count c.
func (ci *countedIndex) wrapTag(c uint64) uint64 {
	return ((c >> ci.shift) + 1) << 1
}

// transaction is one observed state of a counted index: the starting
// count plus the precomputed wrap-valid tag for that position.
type transaction struct {
	ci    *countedIndex
	start uint64
	tag   uint64
}

func (ci *countedIndex) loadTransaction() transaction {
	c := ci.count.LoadRelaxed()
	return transaction{ci: ci, start: c, tag: ci.wrapTag(c)}
}

// pos returns the ring cell the transaction addresses.
func (t transaction) pos() uint64 { return t.start & t.ci.mask }

// full reports whether the observed tail count leaves no free cell ahead
// of the transaction's start. Used to detect "tail did not advance"
// without re-reading the head.
func (t transaction) full(tail uint64) bool {
	return t.start-tail > t.ci.mask
}

// commit CAS-advances the index by delta. On failure it returns a fresh
// transaction and false; the caller restarts.
func (t transaction) commit(delta uint64) (transaction, bool) {
	if t.ci.count.CompareAndSwapAcqRel(t.start, t.start+delta) {
		return transaction{}, true
	}
	return t.ci.loadTransaction(), false
}

// commitDirect advances the index unconditionally. Valid only while the
// caller holds exclusive ownership of the index (single producer, or the
// sole consumer of a stream). The release store orders the preceding cell
// access before cell reuse.
func (t transaction) commitDirect(delta uint64) {
	t.ci.count.StoreRelease(t.start + delta)
}
