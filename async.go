// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// AsyncWait is the task-waker wait strategy backing the context-aware
// handles. After spinning and yielding it registers a wake channel in a
// mutex-guarded registry; Notify drains the registry and closes every
// channel. A second instance serves producer-side parking when the ring
// is full.
type AsyncWait struct {
	spinsFirst int
	spinsYield int
	mu         sync.Mutex
	parked     []chan struct{}
}

// NewAsyncWait creates an AsyncWait with the default spin tuning.
func NewAsyncWait() *AsyncWait {
	return NewAsyncWaitWith(defaultSpinsFirst, defaultSpinsYield)
}

// NewAsyncWaitWith creates an AsyncWait with explicit spin budgets.
func NewAsyncWaitWith(spinsFirst, spinsYield int) *AsyncWait {
	return &AsyncWait{spinsFirst: spinsFirst, spinsYield: spinsYield}
}

// subscribe registers a waker. The caller must re-check its condition
// after subscribing and before suspending; Notify between the two closes
// the channel, so the wakeup is not lost.
func (w *AsyncWait) subscribe() chan struct{} {
	ch := make(chan struct{})
	w.mu.Lock()
	w.parked = append(w.parked, ch)
	w.mu.Unlock()
	return ch
}

func (w *AsyncWait) spinPhase(expect uint64, tag *atomix.Uint64, writers *atomix.Int64) bool {
	sw := spin.Wait{}
	for range w.spinsFirst {
		if ready(expect, tag, writers) {
			return true
		}
		sw.Once()
	}
	for range w.spinsYield {
		runtime.Gosched()
		if ready(expect, tag, writers) {
			return true
		}
	}
	return false
}

func (w *AsyncWait) Wait(expect uint64, tag *atomix.Uint64, writers *atomix.Int64) {
	if w.spinPhase(expect, tag, writers) {
		return
	}
	for {
		ch := w.subscribe()
		if ready(expect, tag, writers) {
			return
		}
		<-ch
		if ready(expect, tag, writers) {
			return
		}
	}
}

func (w *AsyncWait) Notify() {
	w.mu.Lock()
	parked := w.parked
	w.parked = nil
	w.mu.Unlock()
	for _, ch := range parked {
		close(ch)
	}
}

func (w *AsyncWait) NeedsNotify() bool { return true }

// AsyncSender is a producer handle whose Send parks the calling goroutine
// on a waker registry while the ring is full, resuming when a consumer
// frees a cell or the context ends. Not safe for concurrent use; Clone
// one per producer.
type AsyncSender[T any] struct {
	inner    *Sender[T]
	wait     *AsyncWait
	prodWait *AsyncWait
}

// TrySend enqueues v without blocking; see Sender.TrySend.
func (s *AsyncSender[T]) TrySend(v T) error {
	return s.inner.TrySend(v)
}

// Send enqueues v, suspending while the ring is full. It returns
// ErrDisconnected when every stream has unsubscribed, or the context
// error when ctx ends first.
func (s *AsyncSender[T]) Send(ctx context.Context, v T) error {
	sw := spin.Wait{}
	for range s.prodWait.spinsFirst {
		err := s.inner.TrySend(v)
		if err == nil || errors.Is(err, ErrDisconnected) {
			return err
		}
		sw.Once()
	}
	for range s.prodWait.spinsYield {
		runtime.Gosched()
		err := s.inner.TrySend(v)
		if err == nil || errors.Is(err, ErrDisconnected) {
			return err
		}
	}
	for {
		ch := s.prodWait.subscribe()
		err := s.inner.TrySend(v)
		if err == nil || errors.Is(err, ErrDisconnected) {
			return err
		}
		select {
		case <-ch:
		case <-ctx.Done():
			// The registered waker is abandoned; it is discarded when
			// it fires.
			return ctx.Err()
		}
	}
}

// Cap returns the effective (power-of-two) capacity of the ring.
func (s *AsyncSender[T]) Cap() int {
	return s.inner.Cap()
}

// Clone registers an additional producer sharing the waker registries.
func (s *AsyncSender[T]) Clone() *AsyncSender[T] {
	return &AsyncSender[T]{inner: s.inner.Clone(), wait: s.wait, prodWait: s.prodWait}
}

// Unsubscribe removes this producer; the last one shuts the queue down.
func (s *AsyncSender[T]) Unsubscribe() {
	s.inner.Unsubscribe()
}

// asyncRecv drives an innerRecv through the waker registries: wake on
// published items via the queue waiter, notify parked producers after
// every successful receive.
func asyncRecv[T any](ctx context.Context, r *innerRecv[T], w, prodWait *AsyncWait) (T, error) {
	sw := spin.Wait{}
	for range w.spinsFirst {
		v, err := r.tryRecv()
		if err == nil {
			prodWait.Notify()
			return v, nil
		}
		if errors.Is(err, ErrDisconnected) {
			return v, err
		}
		sw.Once()
	}
	for range w.spinsYield {
		runtime.Gosched()
		v, err := r.tryRecv()
		if err == nil {
			prodWait.Notify()
			return v, nil
		}
		if errors.Is(err, ErrDisconnected) {
			return v, err
		}
	}
	for {
		ch := w.subscribe()
		v, err := r.tryRecv()
		if err == nil {
			prodWait.Notify()
			return v, nil
		}
		if errors.Is(err, ErrDisconnected) {
			return v, err
		}
		select {
		case <-ch:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// AsyncReceiver is a consumer handle for an async MPMC queue. Not safe
// for concurrent use; Clone one per consumer.
type AsyncReceiver[T any] struct {
	inner    innerRecv[T]
	wait     *AsyncWait
	prodWait *AsyncWait
}

// TryRecv dequeues without blocking; see Receiver.TryRecv.
func (r *AsyncReceiver[T]) TryRecv() (T, error) {
	v, err := r.inner.tryRecv()
	if err == nil {
		r.prodWait.Notify()
	}
	return v, err
}

// Recv dequeues the next item, suspending while the queue is empty. It
// returns ErrDisconnected once all producers unsubscribed and the queue
// is drained, or the context error when ctx ends first.
func (r *AsyncReceiver[T]) Recv(ctx context.Context) (T, error) {
	return asyncRecv(ctx, &r.inner, r.wait, r.prodWait)
}

// Cap returns the effective (power-of-two) capacity of the ring.
func (r *AsyncReceiver[T]) Cap() int {
	return r.inner.q.Cap()
}

// Clone adds a consumer to the stream.
func (r *AsyncReceiver[T]) Clone() *AsyncReceiver[T] {
	r.inner.reader.dupConsumer()
	return &AsyncReceiver[T]{
		inner: innerRecv[T]{
			q:      r.inner.q,
			reader: r.inner.reader,
			token:  r.inner.q.manager.getToken(),
		},
		wait:     r.wait,
		prodWait: r.prodWait,
	}
}

// Unsubscribe removes this consumer and wakes parked producers, which may
// now observe a dead queue.
func (r *AsyncReceiver[T]) Unsubscribe() bool {
	last := r.inner.unsubscribe()
	r.prodWait.Notify()
	return last
}

// AsyncBroadcastReceiver is a consumer handle on one stream of an async
// broadcast queue. Not safe for concurrent use; Clone one per consumer.
type AsyncBroadcastReceiver[T any] struct {
	inner    innerRecv[T]
	wait     *AsyncWait
	prodWait *AsyncWait
}

// TryRecv clones the next stream item without blocking.
func (r *AsyncBroadcastReceiver[T]) TryRecv() (T, error) {
	v, err := r.inner.tryRecv()
	if err == nil {
		r.prodWait.Notify()
	}
	return v, err
}

// Recv clones the next stream item, suspending while the stream is empty.
func (r *AsyncBroadcastReceiver[T]) Recv(ctx context.Context) (T, error) {
	return asyncRecv(ctx, &r.inner, r.wait, r.prodWait)
}

// Cap returns the effective (power-of-two) capacity of the ring.
func (r *AsyncBroadcastReceiver[T]) Cap() int {
	return r.inner.q.Cap()
}

// Clone adds a consumer to this stream.
func (r *AsyncBroadcastReceiver[T]) Clone() *AsyncBroadcastReceiver[T] {
	r.inner.reader.dupConsumer()
	return &AsyncBroadcastReceiver[T]{
		inner: innerRecv[T]{
			q:      r.inner.q,
			reader: r.inner.reader,
			token:  r.inner.q.manager.getToken(),
		},
		wait:     r.wait,
		prodWait: r.prodWait,
	}
}

// AddStream registers an independent stream starting at the current write
// position.
func (r *AsyncBroadcastReceiver[T]) AddStream() *AsyncBroadcastReceiver[T] {
	q := r.inner.q
	start := q.head.count.LoadAcquire()
	nr := q.tail.addStream(start, q.manager)
	return &AsyncBroadcastReceiver[T]{
		inner: innerRecv[T]{
			q:      q,
			reader: nr,
			token:  q.manager.getToken(),
		},
		wait:     r.wait,
		prodWait: r.prodWait,
	}
}

// Unsubscribe removes this consumer and wakes parked producers.
func (r *AsyncBroadcastReceiver[T]) Unsubscribe() bool {
	last := r.inner.unsubscribe()
	r.prodWait.Notify()
	return last
}

// MPMCAsync creates a context-aware MPMC queue with the default spin
// tuning.
//
// Capacity rounds up to the next power of 2, minimum 1.
func MPMCAsync[T any](capacity int) (*AsyncSender[T], *AsyncReceiver[T]) {
	return MPMCAsyncWith[T](capacity, defaultSpinsFirst, defaultSpinsYield)
}

// MPMCAsyncWith is MPMCAsync with explicit spin budgets.
// MPMCAsyncWith(n, 0, 0) parks immediately, trading latency for CPU.
func MPMCAsyncWith[T any](capacity, spinsFirst, spinsYield int) (*AsyncSender[T], *AsyncReceiver[T]) {
	cw := NewAsyncWaitWith(spinsFirst, spinsYield)
	pw := NewAsyncWaitWith(spinsFirst, spinsYield)
	q, rd := newRing[T](capacity, false, cw)
	tx := &AsyncSender[T]{
		inner:    &Sender[T]{q: q, token: q.manager.getToken()},
		wait:     cw,
		prodWait: pw,
	}
	rx := &AsyncReceiver[T]{
		inner:    innerRecv[T]{q: q, reader: rd, token: q.manager.getToken()},
		wait:     cw,
		prodWait: pw,
	}
	return tx, rx
}

// BroadcastAsync creates a context-aware broadcast queue with the default
// spin tuning.
func BroadcastAsync[T any](capacity int) (*AsyncSender[T], *AsyncBroadcastReceiver[T]) {
	return BroadcastAsyncWith[T](capacity, defaultSpinsFirst, defaultSpinsYield)
}

// BroadcastAsyncWith is BroadcastAsync with explicit spin budgets.
func BroadcastAsyncWith[T any](capacity, spinsFirst, spinsYield int) (*AsyncSender[T], *AsyncBroadcastReceiver[T]) {
	cw := NewAsyncWaitWith(spinsFirst, spinsYield)
	pw := NewAsyncWaitWith(spinsFirst, spinsYield)
	q, rd := newRing[T](capacity, true, cw)
	tx := &AsyncSender[T]{
		inner:    &Sender[T]{q: q, token: q.manager.getToken()},
		wait:     cw,
		prodWait: pw,
	}
	rx := &AsyncBroadcastReceiver[T]{
		inner:    innerRecv[T]{q: q, reader: rd, token: q.manager.getToken()},
		wait:     cw,
		prodWait: pw,
	}
	return tx, rx
}
