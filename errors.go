// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock is the transient control flow class shared by ErrFull and
// ErrEmpty. It is an alias for [iox.ErrWouldBlock] for ecosystem
// consistency; errors.Is(ErrFull, ErrWouldBlock) and
// errors.Is(ErrEmpty, ErrWouldBlock) both hold.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrFull indicates the ring has no free cell for a send.
//
// ErrFull is a control flow signal, not a failure. The value stays with
// the caller, who should retry later (with backoff or yield):
//
//	backoff := iox.Backoff{}
//	for {
//	    err := tx.TrySend(v)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if mcq.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err
//	}
var ErrFull = fmt.Errorf("mcq: queue full: %w", iox.ErrWouldBlock)

// ErrEmpty indicates no item is ready for a receive. Transient; retry or
// use the blocking Recv variants.
var ErrEmpty = fmt.Errorf("mcq: queue empty: %w", iox.ErrWouldBlock)

// ErrDisconnected is terminal: the peer side of the queue has fully
// unsubscribed. Receives surface it only after all remaining items have
// been drained.
var ErrDisconnected = errors.New("mcq: all peers unsubscribed")

// ErrMultipleConsumers is returned by IntoSingle when the stream still
// has more than one consumer handle.
var ErrMultipleConsumers = errors.New("mcq: stream has multiple consumers")

// IsWouldBlock reports whether err indicates the operation would block
// (queue full or empty). Delegates to [iox.IsWouldBlock] for wrapped
// error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
