// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// reader is one stream cursor: the next cell the stream will read plus the
// number of consumer handles sharing it. In MPMC mode there is exactly one
// stream; broadcast mode may have many.
type reader struct {
	_         pad
	pos       countedIndex
	_         padShort
	consumers atomix.Int64
	_         padShort
}

func newReader(capacity, start uint64) *reader {
	r := &reader{}
	r.pos.init(capacity)
	r.pos.count.StoreRelaxed(start)
	r.consumers.StoreRelaxed(1)
	return r
}

// single reports whether exactly one consumer shares this stream, which
// enables commitDirect cursor advances and in-place views.
func (r *reader) single() bool {
	return r.consumers.LoadRelaxed() == 1
}

func (r *reader) dupConsumer() {
	r.consumers.Add(1)
}

// removeConsumer drops one consumer and reports whether it was the last.
func (r *reader) removeConsumer() bool {
	return r.consumers.Add(-1) == 0
}

// readerSet is an immutable snapshot of the live stream cursors. Structural
// changes build a new snapshot; the old one is retired through the epoch
// manager so producers mid-traversal stay safe.
type readerSet struct {
	readers []*reader
}

// readCursor tracks every stream's cursor. Producers traverse the current
// snapshot lock-free in maxDiff; add and remove are serialized among
// mutators and published atomically.
type readCursor struct {
	set      atomic.Pointer[readerSet]
	capacity uint64
	mu       sync.Mutex
}

// newReadCursor creates the tracker with the bootstrap stream at count 0.
func newReadCursor(capacity uint64) (*readCursor, *reader) {
	r := newReader(capacity, 0)
	rc := &readCursor{capacity: capacity}
	rc.set.Store(&readerSet{readers: []*reader{r}})
	return rc, r
}

// addStream links a new stream cursor starting at the given head count, so
// a fresh stream never observes items committed before its creation.
func (rc *readCursor) addStream(start uint64, m *memoryManager) *reader {
	nr := newReader(rc.capacity, start)
	rc.mu.Lock()
	old := rc.set.Load()
	readers := make([]*reader, 0, len(old.readers)+1)
	readers = append(readers, old.readers...)
	readers = append(readers, nr)
	rc.set.Store(&readerSet{readers: readers})
	m.retire(old, false, false)
	rc.mu.Unlock()
	return nr
}

// removeReader unlinks a stream whose last consumer unsubscribed. The
// readerGone signal tells producers to recompute the tail cache.
func (rc *readCursor) removeReader(r *reader, m *memoryManager) {
	rc.mu.Lock()
	old := rc.set.Load()
	readers := make([]*reader, 0, len(old.readers))
	for _, cur := range old.readers {
		if cur != r {
			readers = append(readers, cur)
		}
	}
	rc.set.Store(&readerSet{readers: readers})
	m.retire(old, true, len(readers) == 0)
	rc.mu.Unlock()
}

// maxDiff returns the distance from head to the slowest live stream, or
// false when no stream exists. A stream observed ahead of the (possibly
// stale) head count is not a constraint and counts as distance zero.
func (rc *readCursor) maxDiff(head uint64) (uint64, bool) {
	s := rc.set.Load()
	if len(s.readers) == 0 {
		return 0, false
	}
	var max uint64
	for _, r := range s.readers {
		d := head - r.pos.count.LoadRelaxed()
		if int64(d) < 0 {
			continue
		}
		if d > max {
			max = d
		}
	}
	return max, true
}

func (rc *readCursor) empty() bool {
	return len(rc.set.Load().readers) == 0
}
