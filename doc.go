// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mcq provides bounded lock-free queues with two delivery modes
// selected at construction:
//
//   - MPMC: multi-producer multi-consumer; each item is delivered to
//     exactly one consumer.
//   - Broadcast: multi-producer multi-stream; each item is delivered to
//     every stream, and within a stream to exactly one of its consumers.
//
// # Quick Start
//
//	// MPMC: work distribution
//	tx, rx := mcq.MPMC[Job](1024)
//
//	// Broadcast: fan-out to independent streams
//	btx, brx := mcq.Broadcast[Tick](256)
//	audit := brx.AddStream() // second stream, sees every tick too
//
// # Basic Usage
//
// Producers and consumers hold cloneable handles. Handles are cheap but
// not goroutine-safe: Clone one per goroutine.
//
//	tx2 := tx.Clone() // second producer
//	rx2 := rx.Clone() // second consumer on the same stream
//
//	// Send (non-blocking)
//	if err := tx.TrySend(v); err != nil {
//	    if mcq.IsWouldBlock(err) {
//	        // Queue full - apply backpressure
//	    }
//	}
//
//	// Receive (blocking via the queue's wait strategy)
//	v, err := rx.Recv()
//	if errors.Is(err, mcq.ErrDisconnected) {
//	    // All producers unsubscribed and the queue is drained
//	}
//
// Producer-side blocking is the caller's retry loop:
//
//	backoff := iox.Backoff{}
//	for tx.TrySend(v) != nil {
//	    backoff.Wait()
//	}
//	backoff.Reset()
//
// # Streams
//
// A broadcast stream is an independent receiver rail with its own cursor.
// AddStream registers a stream at the current write position, so it
// observes every item sent after the call and none sent before it:
//
//	brx2 := brx.AddStream()
//	go func() {
//	    for {
//	        v, err := brx2.Recv()
//	        if err != nil {
//	            return
//	        }
//	        audit(v)
//	    }
//	}()
//
// A slow stream exerts backpressure: producers cannot overwrite a cell
// until every stream has passed it. Unsubscribe the last consumer of a
// stream to remove the stream entirely.
//
// # Zero-Copy Views
//
// A stream with exactly one consumer can read items in place, skipping
// the copy out of the ring:
//
//	uni, err := rx.IntoSingle() // fails with ErrMultipleConsumers
//	if err == nil {
//	    var n int
//	    err = uni.RecvView(func(v *Payload) { n = len(v.Data) })
//	}
//
// # Wait Strategies
//
// Consumers block through a pluggable strategy: BusyWait burns a core for
// minimum latency, YieldWait spins then yields, BlockingWait (default)
// spins, yields, then parks until a producer notifies.
//
//	tx, rx := mcq.MPMCWith[Event](1024, mcq.YieldWait{})
//	tx, rx := mcq.MPMCWith[Event](1024, mcq.NewBlockingWaitWith(200, 50))
//
// # Context-Aware Handles
//
// The async constructors return handles whose Send and Recv suspend the
// calling goroutine on waker registries instead of parking the thread,
// and honor context cancellation:
//
//	tx, rx := mcq.MPMCAsync[Request](512)
//
//	go func() {
//	    for {
//	        req, err := rx.Recv(ctx)
//	        if err != nil {
//	            return
//	        }
//	        handle(req)
//	    }
//	}()
//
//	if err := tx.Send(ctx, req); err != nil {
//	    // ErrDisconnected, or ctx.Err() if the context ended first
//	}
//
// # Error Handling
//
// The taxonomy is closed: ErrFull and ErrEmpty are transient control flow
// signals (both match [iox.ErrWouldBlock]); ErrDisconnected is terminal.
// Values never leave the caller on a failed send.
//
//	mcq.IsWouldBlock(err)  // true if queue full/empty
//	mcq.IsSemantic(err)    // true if control flow signal
//	mcq.IsNonFailure(err)  // true if nil or would-block
//
// # Capacity
//
// Capacity rounds up to the next power of 2, minimum 1:
//
//	mcq.MPMC[int](0)    // actual capacity: 1
//	mcq.MPMC[int](10)   // actual capacity: 16
//	mcq.MPMC[int](1024) // actual capacity: 1024
//
// Length is intentionally not provided because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
//
// # Ordering Guarantees
//
// Within a stream, receives observe items in the exact order producers
// committed them; between producers the order is the claim order on the
// queue head. In broadcast mode every stream observes the same total
// order. Items become visible to consumers through release/acquire on the
// per-cell generation tag.
package mcq
