// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// cell holds one item and the generation tag that makes it readable.
type cell[T any] struct {
	tag  atomix.Uint64
	data T
	_    padShort
}

// refCell counts in-flight in-place readers of the matching cell in
// broadcast mode. Kept in a parallel array so refcount traffic does not
// false-share with value and tag traffic.
type refCell struct {
	cnt atomix.Int64
	_   padShort
}

// ring is the ring buffer core shared by every handle. The mode flag
// selects the broadcast capabilities (refcounting, copy-out reads,
// keep-until-overwrite cells) against the MPMC ones (move-out reads, no
// refcounts) at construction time.
type ring[T any] struct {
	_ pad

	// Producer data.
	head      countedIndex
	tailCache atomix.Uint64
	writers   atomix.Int64
	_         pad

	// Shared data. The tail tracker is rarely modified, making it a
	// suitable neighbor for the cell arrays.
	tail        *readCursor
	cells       []cell[T]
	refs        []refCell
	capacity    uint64
	broadcast   bool
	waiter      Wait
	needsNotify bool
	_           pad

	manager *memoryManager
	_       pad
}

// newRing builds the core and its bootstrap stream. Capacity rounds
// up to a power of two, minimum 1.
func newRing[T any](capacity int, broadcast bool, w Wait) (*ring[T], *reader) {
	n := uint64(roundToPow2(capacity))
	q := &ring[T]{
		cells:       make([]cell[T], n),
		capacity:    n,
		broadcast:   broadcast,
		waiter:      w,
		needsNotify: w.NeedsNotify(),
		manager:     newMemoryManager(),
	}
	q.head.init(n)
	for i := range q.cells {
		q.cells[i].tag.StoreRelaxed(initialTag)
	}
	if broadcast {
		q.refs = make([]refCell, n)
	}
	q.writers.StoreRelaxed(1)
	tail, r := newReadCursor(n)
	q.tail = tail
	return q, r
}

// Cap returns the effective capacity of the ring.
func (q *ring[T]) Cap() int {
	return int(q.capacity)
}

// trySendMulti claims a head slot with CAS, racing other producers.
func (q *ring[T]) trySendMulti(v *T) error {
	sw := spin.Wait{}
	t := q.head.loadTransaction()
	for {
		tailCache := q.tailCache.LoadRelaxed()
		if t.full(tailCache) {
			newTail := q.reloadTailMulti(tailCache, t.start)
			if t.full(newTail) {
				if q.tail.empty() {
					return ErrDisconnected
				}
				return ErrFull
			}
		}
		pos := t.pos()
		// The acquire load orders the refcount check before the value
		// write: a consumer still cloning from this cell blocks reuse.
		if q.broadcast && q.refs[pos].cnt.LoadAcquire() != 0 {
			return ErrFull
		}
		nt, ok := t.commit(1)
		if !ok {
			t = nt
			sw.Once()
			continue
		}
		c := &q.cells[pos]
		c.data = *v
		c.tag.StoreRelease(t.tag)
		return nil
	}
}

// trySendSingle is the exclusive-writer fast path: no CAS on the head.
func (q *ring[T]) trySendSingle(v *T) error {
	t := q.head.loadTransaction()
	tailCache := q.tailCache.LoadRelaxed()
	if t.full(tailCache) {
		if q.tail.empty() {
			return ErrDisconnected
		}
		newTail := q.reloadTailSingle(t.start)
		if t.full(newTail) {
			return ErrFull
		}
	}
	pos := t.pos()
	if q.broadcast && q.refs[pos].cnt.LoadAcquire() != 0 {
		return ErrFull
	}
	t.commitDirect(1)
	c := &q.cells[pos]
	c.data = *v
	c.tag.StoreRelease(t.tag)
	return nil
}

// tryRecv pops (MPMC) or clones (broadcast) the next item of the stream.
// On ErrEmpty the returned tag pointer names the cell a wait strategy
// should watch.
func (q *ring[T]) tryRecv(r *reader) (T, *atomix.Uint64, error) {
	var zero T
	sw := spin.Wait{}
	t := r.pos.loadTransaction()
	for {
		pos := t.pos()
		c := &q.cells[pos]
		seen := c.tag.LoadAcquire()
		if rmTag(seen) != t.tag {
			// The last writer's unsubscribe races the publish of its
			// final item: writers may read zero while the item's tag
			// store is still in flight. Re-check the tag with acquire
			// before declaring the queue dead.
			if q.writers.Load() == 0 {
				if rmTag(c.tag.LoadAcquire()) != t.tag {
					return zero, nil, ErrDisconnected
				}
			}
			return zero, &c.tag, ErrEmpty
		}
		single := r.single()
		if q.broadcast && !single {
			// Full-barrier RMW: totally ordered against the producer's
			// refcount gate, so a non-zero count is never missed by a
			// producer about to overwrite this generation.
			q.refs[pos].cnt.Add(1)
			if r.pos.count.LoadRelaxed() != t.start {
				// A peer consumed this slot already; the producer may
				// be overwriting it. Drop the claim and reload.
				q.refs[pos].cnt.Add(-1)
				t = r.pos.loadTransaction()
				continue
			}
		}
		v := c.data
		if q.broadcast && !single {
			q.refs[pos].cnt.Add(-1)
		}
		if single {
			if !q.broadcast {
				c.data = zero
			}
			t.commitDirect(1)
			return v, nil, nil
		}
		nt, ok := t.commit(1)
		if ok {
			return v, nil, nil
		}
		// Lost the cursor race; the copied value is discarded.
		t = nt
		sw.Once()
	}
}

// tryRecvView runs op on the value in place instead of copying it out.
// Callers guarantee the stream has exactly one consumer. On failure op is
// not called, so the caller keeps it.
func (q *ring[T]) tryRecvView(r *reader, op func(*T)) (*atomix.Uint64, error) {
	t := r.pos.loadTransaction()
	pos := t.pos()
	c := &q.cells[pos]
	seen := c.tag.LoadAcquire()
	if rmTag(seen) != t.tag {
		if q.writers.Load() == 0 {
			if rmTag(c.tag.LoadAcquire()) != t.tag {
				return nil, ErrDisconnected
			}
		}
		return &c.tag, ErrEmpty
	}
	op(&c.data)
	if !q.broadcast {
		var zero T
		c.data = zero
	}
	t.commitDirect(1)
	return nil, nil
}

// reloadTailMulti recomputes the slowest stream position and CAS-refreshes
// the advisory tail cache. Stale results are safe; they only trigger
// another recomputation.
func (q *ring[T]) reloadTailMulti(old, head uint64) uint64 {
	diff, ok := q.tail.maxDiff(head)
	if !ok {
		return q.tailCache.LoadAcquire()
	}
	cur := head - diff
	if cur == old {
		return cur
	}
	if q.tailCache.CompareAndSwapAcqRel(old, cur) {
		return cur
	}
	return q.tailCache.LoadAcquire()
}

// reloadTailSingle is the exclusive-writer variant: unconditional store.
// An empty cursor set here is unrecoverable: an exclusive producer past
// the emptiness gate has uncommitted writes no stream can ever release.
func (q *ring[T]) reloadTailSingle(head uint64) uint64 {
	diff, ok := q.tail.maxDiff(head)
	if !ok {
		panic("mcq: single-producer send with no live streams")
	}
	cur := head - diff
	q.tailCache.StoreRelaxed(cur)
	return cur
}
