// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Signal word bits. epoch: the cursor-set topology changed and every actor
// must refresh its view before the superseded topology is released.
// readerGone: a whole stream vanished; producers must recompute the tail
// cache and check for a dead queue.
const (
	signalEpoch      uint64 = 1 << 0
	signalReaderGone uint64 = 1 << 1
)

// loadedSignal is a decoded snapshot of the signal word.
type loadedSignal uint64

func (s loadedSignal) hasAction() bool  { return s != 0 }
func (s loadedSignal) epoch() bool      { return uint64(s)&signalEpoch != 0 }
func (s loadedSignal) readerGone() bool { return uint64(s)&signalReaderGone != 0 }

// memToken marks one live handle for the epoch protocol. crossed holds the
// latest epoch its owner has acknowledged.
type memToken struct {
	crossed atomix.Uint64
	_       padShort
}

// retiredSet is a superseded cursor-set topology awaiting quiescence: it
// is held until every token present at the change has crossed the epoch.
type retiredSet struct {
	epoch  uint64
	tokens []*memToken
	old    *readerSet
}

// memoryManager coordinates structural changes of the cursor set against
// concurrently running producers and consumers. The fast path is a single
// relaxed load of the signal word; everything else is rare and runs under
// a mutex.
type memoryManager struct {
	signal atomix.Uint64
	_      padShort
	epoch  atomix.Uint64
	_      padShort

	mu      sync.Mutex
	tokens  map[*memToken]struct{}
	retired []retiredSet
	dead    bool
}

func newMemoryManager() *memoryManager {
	return &memoryManager{tokens: make(map[*memToken]struct{})}
}

func (m *memoryManager) loadSignal() loadedSignal {
	return loadedSignal(m.signal.LoadRelaxed())
}

// getToken registers a new live handle.
func (m *memoryManager) getToken() *memToken {
	t := &memToken{}
	m.mu.Lock()
	t.crossed.StoreRelaxed(m.epoch.Load())
	m.tokens[t] = struct{}{}
	m.mu.Unlock()
	return t
}

// removeToken drops a handle's token. A dead handle must not block
// reclamation, so pending retirements are re-examined.
func (m *memoryManager) removeToken(t *memToken) {
	m.mu.Lock()
	delete(m.tokens, t)
	m.reclaimLocked()
	m.mu.Unlock()
}

// retire publishes a structural change: the superseded topology plus a
// snapshot of the currently live tokens. The topology stays referenced
// until every snapshotted token crosses the new epoch. dead marks the
// removal of the final stream; the readerGone bit then stays set forever
// so producers keep observing the dead queue.
func (m *memoryManager) retire(old *readerSet, readerGone, dead bool) {
	m.mu.Lock()
	e := m.epoch.Add(1)
	snap := make([]*memToken, 0, len(m.tokens))
	for t := range m.tokens {
		snap = append(snap, t)
	}
	m.retired = append(m.retired, retiredSet{epoch: e, tokens: snap, old: old})
	if dead {
		m.dead = true
	}
	bits := signalEpoch
	if readerGone {
		bits |= signalReaderGone
	}
	m.setSignal(bits)
	m.mu.Unlock()
}

// updateToken acknowledges the current epoch for the calling handle and
// releases any retirement whose tokens have all crossed. Called from the
// operation slow path whenever the epoch bit is observed.
func (m *memoryManager) updateToken(t *memToken) {
	e := m.epoch.Load()
	if t.crossed.Load() == e {
		// Already crossed; reclamation falls to whichever actor still
		// has an epoch to acknowledge.
		return
	}
	t.crossed.Store(e)
	m.mu.Lock()
	m.reclaimLocked()
	m.mu.Unlock()
}

func (m *memoryManager) reclaimLocked() {
	kept := m.retired[:0]
	for _, r := range m.retired {
		if !m.crossedAllLocked(r) {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(m.retired); i++ {
		m.retired[i] = retiredSet{}
	}
	m.retired = kept
	if len(m.retired) == 0 {
		m.clearSignalLocked()
	}
}

func (m *memoryManager) crossedAllLocked(r retiredSet) bool {
	for _, t := range r.tokens {
		if _, live := m.tokens[t]; !live {
			continue
		}
		if t.crossed.Load() < r.epoch {
			return false
		}
	}
	return true
}

// setSignal ORs bits into the signal word. Callers hold m.mu; the CAS
// loop is still needed because actors read the word lock-free.
func (m *memoryManager) setSignal(bits uint64) {
	sw := spin.Wait{}
	for {
		s := m.signal.Load()
		if s&bits == bits || m.signal.CompareAndSwapAcqRel(s, s|bits) {
			return
		}
		sw.Once()
	}
}

func (m *memoryManager) clearSignalLocked() {
	var keep uint64
	if m.dead {
		keep = signalReaderGone
	}
	sw := spin.Wait{}
	for {
		s := m.signal.Load()
		next := s & keep
		if s == next || m.signal.CompareAndSwapAcqRel(s, next) {
			return
		}
		sw.Once()
	}
}
