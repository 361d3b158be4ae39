// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

// Sender is a producer handle. A Sender must not be shared between
// goroutines; Clone one per producer. The handle tracks whether it is the
// only live producer and switches between the CAS send path and the
// exclusive-writer fast path accordingly.
type Sender[T any] struct {
	q      *ring[T]
	token  *memToken
	single bool
	closed bool
}

// TrySend enqueues v without blocking. It returns nil on success, ErrFull
// when no cell is free (retry later), or ErrDisconnected when every stream
// has unsubscribed. The value always stays with the caller on failure.
func (s *Sender[T]) TrySend(v T) error {
	if sig := s.q.manager.loadSignal(); sig.hasAction() {
		if s.handleSignals(sig) {
			return ErrDisconnected
		}
	}
	var err error
	if s.single {
		err = s.q.trySendSingle(&v)
	} else if s.q.writers.LoadAcquire() == 1 {
		s.single = true
		err = s.q.trySendSingle(&v)
	} else {
		err = s.q.trySendMulti(&v)
	}
	if err == nil && s.q.needsNotify {
		s.q.waiter.Notify()
	}
	return err
}

// Cap returns the effective (power-of-two) capacity of the ring.
func (s *Sender[T]) Cap() int {
	return s.q.Cap()
}

// handleSignals runs the operation slow path: acknowledge an epoch change
// and, when a stream vanished, report whether the queue is dead or else
// recompute the tail cache from the remaining streams.
func (s *Sender[T]) handleSignals(sig loadedSignal) bool {
	if sig.epoch() {
		s.q.manager.updateToken(s.token)
	}
	if sig.readerGone() {
		if s.q.tail.empty() {
			return true
		}
		s.q.reloadTailMulti(s.q.tailCache.LoadRelaxed(), s.q.head.count.LoadAcquire())
	}
	return false
}

// Clone registers an additional producer. Both handles leave the
// exclusive-writer fast path until the writer count drops back to one.
func (s *Sender[T]) Clone() *Sender[T] {
	s.single = false
	ns := &Sender[T]{q: s.q, token: s.q.manager.getToken()}
	s.q.writers.Add(1)
	return ns
}

// Unsubscribe removes this handle as a producer. When the last producer
// unsubscribes the queue shuts down: consumers drain the remaining items
// and then observe ErrDisconnected. Unsubscribe is idempotent.
func (s *Sender[T]) Unsubscribe() {
	if s.closed {
		return
	}
	s.closed = true
	s.q.writers.Add(-1)
	s.q.manager.removeToken(s.token)
	// Wake parked consumers so they can observe the shutdown.
	s.q.waiter.Notify()
}
