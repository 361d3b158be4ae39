// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

// BroadcastReceiver is a consumer handle on one stream of a broadcast
// queue. Every stream observes the full item sequence in send order;
// within a stream each item goes to exactly one consumer. A handle must
// not be shared between goroutines; Clone one per consumer.
type BroadcastReceiver[T any] struct {
	inner innerRecv[T]
}

// TryRecv clones the next item of this stream without blocking. It
// returns ErrEmpty when nothing is ready and ErrDisconnected once all
// producers have unsubscribed and the stream is drained.
func (r *BroadcastReceiver[T]) TryRecv() (T, error) {
	return r.inner.tryRecv()
}

// Recv clones the next item of this stream, blocking through the queue's
// wait strategy while the stream is empty.
func (r *BroadcastReceiver[T]) Recv() (T, error) {
	return r.inner.recv()
}

// Cap returns the effective (power-of-two) capacity of the ring.
func (r *BroadcastReceiver[T]) Cap() int {
	return r.inner.q.Cap()
}

// Clone adds a consumer to this stream. Items of the stream are delivered
// to exactly one of the sharing consumers each.
func (r *BroadcastReceiver[T]) Clone() *BroadcastReceiver[T] {
	r.inner.reader.dupConsumer()
	return &BroadcastReceiver[T]{inner: innerRecv[T]{
		q:      r.inner.q,
		reader: r.inner.reader,
		token:  r.inner.q.manager.getToken(),
	}}
}

// AddStream registers an independent stream starting at the current write
// position: the new stream receives every item sent after this call and
// none sent before it.
func (r *BroadcastReceiver[T]) AddStream() *BroadcastReceiver[T] {
	q := r.inner.q
	start := q.head.count.LoadAcquire()
	nr := q.tail.addStream(start, q.manager)
	return &BroadcastReceiver[T]{inner: innerRecv[T]{
		q:      q,
		reader: nr,
		token:  q.manager.getToken(),
	}}
}

// Unsubscribe removes this consumer; the last consumer of a stream also
// removes the stream, so a lagging abandoned stream never blocks
// producers. Reports whether this was the stream's last consumer.
func (r *BroadcastReceiver[T]) Unsubscribe() bool {
	return r.inner.unsubscribe()
}

// IntoSingle converts the handle into a BroadcastUniReceiver, enabling
// in-place views. It fails with ErrMultipleConsumers unless this is the
// stream's only consumer. On success the BroadcastReceiver is spent.
func (r *BroadcastReceiver[T]) IntoSingle() (*BroadcastUniReceiver[T], error) {
	if r.inner.closed || !r.inner.reader.single() {
		return nil, ErrMultipleConsumers
	}
	u := &BroadcastUniReceiver[T]{inner: r.inner}
	r.inner.detach()
	return u, nil
}

// BroadcastUniReceiver is a broadcast stream handle with exactly one
// consumer. Items stay in the ring until overwritten, so the view methods
// read them in place without cloning.
type BroadcastUniReceiver[T any] struct {
	inner innerRecv[T]
}

// TryRecv clones the next item without blocking.
func (u *BroadcastUniReceiver[T]) TryRecv() (T, error) {
	return u.inner.tryRecv()
}

// Recv clones the next item, blocking while the stream is empty.
func (u *BroadcastUniReceiver[T]) Recv() (T, error) {
	return u.inner.recv()
}

// Cap returns the effective (power-of-two) capacity of the ring.
func (u *BroadcastUniReceiver[T]) Cap() int {
	return u.inner.q.Cap()
}

// TryRecvView runs op on the next item in place and advances the stream.
// The cell keeps its value until a producer overwrites it. On error op
// has not been called.
func (u *BroadcastUniReceiver[T]) TryRecvView(op func(*T)) error {
	return u.inner.tryRecvView(op)
}

// RecvView is TryRecvView blocking through the queue's wait strategy.
func (u *BroadcastUniReceiver[T]) RecvView(op func(*T)) error {
	return u.inner.recvView(op)
}

// AddStream registers an independent stream starting at the current write
// position.
func (u *BroadcastUniReceiver[T]) AddStream() *BroadcastReceiver[T] {
	q := u.inner.q
	start := q.head.count.LoadAcquire()
	nr := q.tail.addStream(start, q.manager)
	return &BroadcastReceiver[T]{inner: innerRecv[T]{
		q:      q,
		reader: nr,
		token:  q.manager.getToken(),
	}}
}

// IntoMulti converts back into a cloneable BroadcastReceiver. The
// BroadcastUniReceiver is spent afterwards.
func (u *BroadcastUniReceiver[T]) IntoMulti() *BroadcastReceiver[T] {
	r := &BroadcastReceiver[T]{inner: u.inner}
	u.inner.detach()
	return r
}

// Unsubscribe removes the consumer and its stream.
func (u *BroadcastUniReceiver[T]) Unsubscribe() bool {
	return u.inner.unsubscribe()
}
