// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq

import (
	"runtime"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Default spin tuning for the blocking strategies. Lower spinsFirst when
// CPU usage matters more than wakeup latency.
const (
	defaultSpinsFirst = 50
	defaultSpinsYield = 20
)

// Wait is a pluggable consumer blocking strategy.
//
// A waiting consumer watches one cell's generation tag: it may resume once
// the tag reaches the expected generation, or once the writer count drops
// to zero (queue shutdown). Every strategy re-checks that predicate after
// registering itself and before suspending, so a notification between the
// failed receive and the suspension is never lost.
type Wait interface {
	// Wait blocks until the cell guarded by tag reaches the expected
	// generation or writers drops to zero.
	Wait(expect uint64, tag *atomix.Uint64, writers *atomix.Int64)
	// Notify wakes blocked consumers after a publish.
	Notify()
	// NeedsNotify reports whether producers must call Notify after a
	// successful send for Wait to ever return.
	NeedsNotify() bool
}

// ready is the shared wake predicate.
func ready(expect uint64, tag *atomix.Uint64, writers *atomix.Int64) bool {
	return rmTag(tag.LoadAcquire()) == expect || writers.Load() == 0
}

// BusyWait burns the CPU until an item arrives. Lowest latency, highest
// cost; use only when a core can be dedicated to the consumer.
type BusyWait struct{}

func (BusyWait) Wait(expect uint64, tag *atomix.Uint64, writers *atomix.Int64) {
	sw := spin.Wait{}
	for !ready(expect, tag, writers) {
		sw.Once()
	}
}

func (BusyWait) Notify() {}

func (BusyWait) NeedsNotify() bool { return false }

// YieldWait spins briefly, then loops on runtime.Gosched. A compromise
// between BusyWait and BlockingWait that never parks the thread.
type YieldWait struct {
	// Spins is the busy-spin budget before yielding. Zero selects the
	// package default.
	Spins int
}

func (w YieldWait) Wait(expect uint64, tag *atomix.Uint64, writers *atomix.Int64) {
	spins := w.Spins
	if spins <= 0 {
		spins = defaultSpinsFirst
	}
	sw := spin.Wait{}
	for range spins {
		if ready(expect, tag, writers) {
			return
		}
		sw.Once()
	}
	for !ready(expect, tag, writers) {
		runtime.Gosched()
	}
}

func (YieldWait) Notify() {}

func (YieldWait) NeedsNotify() bool { return false }

// BlockingWait spins, yields, then parks on a condition variable until a
// producer notifies. The default strategy for the blocking constructors.
type BlockingWait struct {
	spinsFirst int
	spinsYield int
	mu         sync.Mutex
	cond       *sync.Cond
}

// NewBlockingWait creates a BlockingWait with the default spin tuning.
func NewBlockingWait() *BlockingWait {
	return NewBlockingWaitWith(defaultSpinsFirst, defaultSpinsYield)
}

// NewBlockingWaitWith creates a BlockingWait with explicit spin budgets.
// NewBlockingWaitWith(0, 0) degrades to a pure parking lock.
func NewBlockingWaitWith(spinsFirst, spinsYield int) *BlockingWait {
	w := &BlockingWait{spinsFirst: spinsFirst, spinsYield: spinsYield}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *BlockingWait) Wait(expect uint64, tag *atomix.Uint64, writers *atomix.Int64) {
	sw := spin.Wait{}
	for range w.spinsFirst {
		if ready(expect, tag, writers) {
			return
		}
		sw.Once()
	}
	for range w.spinsYield {
		runtime.Gosched()
		if ready(expect, tag, writers) {
			return
		}
	}
	w.mu.Lock()
	for !ready(expect, tag, writers) {
		w.cond.Wait()
	}
	w.mu.Unlock()
}

func (w *BlockingWait) Notify() {
	// Taking the lock orders this wakeup after a parked consumer's final
	// predicate check; Broadcast without it can race that check and lose
	// the wakeup.
	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *BlockingWait) NeedsNotify() bool { return true }
