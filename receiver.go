// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

// innerRecv is the consumer plumbing shared by the MPMC and broadcast
// receiver handles: one stream cursor, one reclamation token, and the
// signal slow path.
type innerRecv[T any] struct {
	q      *ring[T]
	reader *reader
	token  *memToken
	closed bool
}

func (r *innerRecv[T]) examineSignals() {
	if sig := r.q.manager.loadSignal(); sig.epoch() {
		r.q.manager.updateToken(r.token)
	}
}

func (r *innerRecv[T]) tryRecv() (T, error) {
	r.examineSignals()
	v, _, err := r.q.tryRecv(r.reader)
	return v, err
}

func (r *innerRecv[T]) recv() (T, error) {
	r.examineSignals()
	for {
		v, tagp, err := r.q.tryRecv(r.reader)
		switch err {
		case nil:
			return v, nil
		case ErrEmpty:
			t := r.reader.pos.loadTransaction()
			r.q.waiter.Wait(t.tag, tagp, &r.q.writers)
		default:
			return v, err
		}
	}
}

func (r *innerRecv[T]) tryRecvView(op func(*T)) error {
	r.examineSignals()
	_, err := r.q.tryRecvView(r.reader, op)
	return err
}

func (r *innerRecv[T]) recvView(op func(*T)) error {
	r.examineSignals()
	for {
		tagp, err := r.q.tryRecvView(r.reader, op)
		switch err {
		case nil:
			return nil
		case ErrEmpty:
			t := r.reader.pos.loadTransaction()
			r.q.waiter.Wait(t.tag, tagp, &r.q.writers)
		default:
			return err
		}
	}
}

// unsubscribe drops one consumer from the stream; the last one also
// removes the stream from the cursor set. Reports whether this handle was
// the last consumer of its stream.
func (r *innerRecv[T]) unsubscribe() bool {
	if r.closed {
		return false
	}
	r.closed = true
	last := r.reader.removeConsumer()
	if last {
		r.q.tail.removeReader(r.reader, r.q.manager)
	}
	r.q.manager.removeToken(r.token)
	return last
}

// detach marks the handle consumed by a conversion without touching the
// stream's consumer count.
func (r *innerRecv[T]) detach() {
	r.closed = true
}

// Receiver is a consumer handle for an MPMC queue. Clones share the single
// stream: each item is delivered to exactly one of them. A Receiver must
// not be shared between goroutines; Clone one per consumer.
type Receiver[T any] struct {
	inner innerRecv[T]
}

// TryRecv dequeues the next item without blocking. It returns ErrEmpty
// when nothing is ready and ErrDisconnected once all producers have
// unsubscribed and the queue is drained.
func (r *Receiver[T]) TryRecv() (T, error) {
	return r.inner.tryRecv()
}

// Recv dequeues the next item, blocking through the queue's wait strategy
// while the queue is empty.
func (r *Receiver[T]) Recv() (T, error) {
	return r.inner.recv()
}

// Cap returns the effective (power-of-two) capacity of the ring.
func (r *Receiver[T]) Cap() int {
	return r.inner.q.Cap()
}

// Clone adds a consumer to the stream. The claim-advances-cursor model
// makes delivery between clones first-come-first-served.
func (r *Receiver[T]) Clone() *Receiver[T] {
	r.inner.reader.dupConsumer()
	return &Receiver[T]{inner: innerRecv[T]{
		q:      r.inner.q,
		reader: r.inner.reader,
		token:  r.inner.q.manager.getToken(),
	}}
}

// Unsubscribe removes this consumer. It reports whether it was the last
// consumer of the stream; for MPMC that also means producers will observe
// ErrDisconnected from then on.
func (r *Receiver[T]) Unsubscribe() bool {
	return r.inner.unsubscribe()
}

// IntoSingle converts the handle into a UniReceiver, which enables the
// zero-copy view methods. It fails with ErrMultipleConsumers unless this
// is the stream's only consumer. On success the Receiver is spent.
func (r *Receiver[T]) IntoSingle() (*UniReceiver[T], error) {
	if r.inner.closed || !r.inner.reader.single() {
		return nil, ErrMultipleConsumers
	}
	u := &UniReceiver[T]{inner: r.inner}
	r.inner.detach()
	return u, nil
}

// UniReceiver is a consumer handle for a stream known to have exactly one
// consumer. On top of the Receiver surface it can run callbacks on items
// in place, skipping the copy out of the ring.
type UniReceiver[T any] struct {
	inner innerRecv[T]
}

// TryRecv dequeues the next item without blocking.
func (u *UniReceiver[T]) TryRecv() (T, error) {
	return u.inner.tryRecv()
}

// Recv dequeues the next item, blocking while the queue is empty.
func (u *UniReceiver[T]) Recv() (T, error) {
	return u.inner.recv()
}

// Cap returns the effective (power-of-two) capacity of the ring.
func (u *UniReceiver[T]) Cap() int {
	return u.inner.q.Cap()
}

// TryRecvView runs op on the next item in place and consumes the item.
// On error op has not been called, so closed-over results stay untouched.
func (u *UniReceiver[T]) TryRecvView(op func(*T)) error {
	return u.inner.tryRecvView(op)
}

// RecvView is TryRecvView blocking through the queue's wait strategy.
func (u *UniReceiver[T]) RecvView(op func(*T)) error {
	return u.inner.recvView(op)
}

// IntoMulti converts back into a cloneable Receiver. The UniReceiver is
// spent afterwards.
func (u *UniReceiver[T]) IntoMulti() *Receiver[T] {
	r := &Receiver[T]{inner: u.inner}
	u.inner.detach()
	return r
}

// Unsubscribe removes the consumer and its stream.
func (u *UniReceiver[T]) Unsubscribe() bool {
	return u.inner.unsubscribe()
}
