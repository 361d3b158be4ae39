// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

// MPMC creates a queue delivering each item to exactly one consumer,
// using the default BlockingWait strategy.
//
// Capacity rounds up to the next power of 2, minimum 1.
func MPMC[T any](capacity int) (*Sender[T], *Receiver[T]) {
	return MPMCWith[T](capacity, NewBlockingWait())
}

// MPMCWith is MPMC with an explicit wait strategy.
func MPMCWith[T any](capacity int, w Wait) (*Sender[T], *Receiver[T]) {
	q, rd := newRing[T](capacity, false, w)
	tx := &Sender[T]{q: q, token: q.manager.getToken()}
	rx := &Receiver[T]{inner: innerRecv[T]{q: q, reader: rd, token: q.manager.getToken()}}
	return tx, rx
}

// Broadcast creates a queue delivering each item to every stream, and
// within a stream to exactly one consumer, using the default BlockingWait
// strategy.
//
// Capacity rounds up to the next power of 2, minimum 1. Items are
// duplicated into streams by Go assignment; element types holding
// references share the referenced data across streams.
func Broadcast[T any](capacity int) (*Sender[T], *BroadcastReceiver[T]) {
	return BroadcastWith[T](capacity, NewBlockingWait())
}

// BroadcastWith is Broadcast with an explicit wait strategy.
func BroadcastWith[T any](capacity int, w Wait) (*Sender[T], *BroadcastReceiver[T]) {
	q, rd := newRing[T](capacity, true, w)
	tx := &Sender[T]{q: q, token: q.manager.getToken()}
	rx := &BroadcastReceiver[T]{inner: innerRecv[T]{q: q, reader: rd, token: q.manager.getToken()}}
	return tx, rx
}

// Options configures queue creation.
type Options struct {
	broadcast  bool
	wait       Wait
	spinsFirst int
	spinsYield int
	capacity   int
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	tx, rx := mcq.Build[Event](mcq.New(1024).WaitWith(mcq.YieldWait{}))
//	btx, brx := mcq.BuildBroadcast[Tick](mcq.New(64).Broadcast())
//	atx, arx := mcq.BuildAsync[Job](mcq.New(256).Spins(0, 0))
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity rounds up to the next power of 2; values below 1 round to 1.
func New(capacity int) *Builder {
	return &Builder{opts: Options{
		capacity:   capacity,
		spinsFirst: defaultSpinsFirst,
		spinsYield: defaultSpinsYield,
	}}
}

// Broadcast selects broadcast delivery: every stream sees every item.
func (b *Builder) Broadcast() *Builder {
	b.opts.broadcast = true
	return b
}

// WaitWith selects the consumer wait strategy for the blocking
// constructors. Ignored by the async builders, which always park on
// wakers.
func (b *Builder) WaitWith(w Wait) *Builder {
	b.opts.wait = w
	return b
}

// Spins tunes the spin and yield budgets used before parking.
// Spins(0, 0) turns the hybrid wait into a pure parking lock.
func (b *Builder) Spins(first, yield int) *Builder {
	b.opts.spinsFirst = first
	b.opts.spinsYield = yield
	return b
}

func (b *Builder) blockingWait() Wait {
	if b.opts.wait != nil {
		return b.opts.wait
	}
	return NewBlockingWaitWith(b.opts.spinsFirst, b.opts.spinsYield)
}

// Build creates an MPMC queue from the builder.
// Panics if the builder selected Broadcast.
func Build[T any](b *Builder) (*Sender[T], *Receiver[T]) {
	if b.opts.broadcast {
		panic("mcq: Build requires a non-broadcast builder")
	}
	return MPMCWith[T](b.opts.capacity, b.blockingWait())
}

// BuildBroadcast creates a broadcast queue from the builder.
// Panics unless the builder selected Broadcast.
func BuildBroadcast[T any](b *Builder) (*Sender[T], *BroadcastReceiver[T]) {
	if !b.opts.broadcast {
		panic("mcq: BuildBroadcast requires Broadcast()")
	}
	return BroadcastWith[T](b.opts.capacity, b.blockingWait())
}

// BuildAsync creates a context-aware MPMC queue from the builder.
// Panics if the builder selected Broadcast.
func BuildAsync[T any](b *Builder) (*AsyncSender[T], *AsyncReceiver[T]) {
	if b.opts.broadcast {
		panic("mcq: BuildAsync requires a non-broadcast builder")
	}
	return MPMCAsyncWith[T](b.opts.capacity, b.opts.spinsFirst, b.opts.spinsYield)
}

// BuildBroadcastAsync creates a context-aware broadcast queue from the
// builder. Panics unless the builder selected Broadcast.
func BuildBroadcastAsync[T any](b *Builder) (*AsyncSender[T], *AsyncBroadcastReceiver[T]) {
	if !b.opts.broadcast {
		panic("mcq: BuildBroadcastAsync requires Broadcast()")
	}
	return BroadcastAsyncWith[T](b.opts.capacity, b.opts.spinsFirst, b.opts.spinsYield)
}

// roundToPow2 rounds n up to the next power of 2, minimum 1.
func roundToPow2(n int) int {
	if n < 2 {
		return 1
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
