// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/mcq"
)

// =============================================================================
// Wait Strategies
// =============================================================================

// runPingPong drives a short producer/consumer exchange through the given
// wait strategy.
func runPingPong(t *testing.T, w mcq.Wait) {
	t.Helper()

	if mcq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}

	const items = 100

	tx, rx := mcq.MPMCWith[int](4, w)

	done := make(chan []int, 1)
	go func() {
		var got []int
		for {
			v, err := rx.Recv()
			if err != nil {
				break
			}
			got = append(got, v)
		}
		rx.Unsubscribe()
		done <- got
	}()

	backoff := iox.Backoff{}
	for i := range items {
		for tx.TrySend(i) != nil {
			backoff.Wait()
		}
		backoff.Reset()
	}
	tx.Unsubscribe()

	select {
	case got := <-done:
		if len(got) != items {
			t.Fatalf("received %d items, want %d", len(got), items)
		}
		for i, v := range got {
			if v != i {
				t.Fatalf("out of order at %d: got %d, want %d", i, v, i)
			}
		}
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestBusyWait(t *testing.T)  { runPingPong(t, mcq.BusyWait{}) }
func TestYieldWait(t *testing.T) { runPingPong(t, mcq.YieldWait{}) }
func TestBlockingWait(t *testing.T) {
	runPingPong(t, mcq.NewBlockingWait())
}
func TestBlockingWaitNoSpins(t *testing.T) {
	// Spins(0, 0) degrades to a pure parking lock.
	runPingPong(t, mcq.NewBlockingWaitWith(0, 0))
}
func TestAsyncWaitAsStrategy(t *testing.T) {
	runPingPong(t, mcq.NewAsyncWait())
}

// TestNeedsNotify pins down which strategies require producer
// notifications.
func TestNeedsNotify(t *testing.T) {
	for _, tc := range []struct {
		name string
		w    mcq.Wait
		want bool
	}{
		{"BusyWait", mcq.BusyWait{}, false},
		{"YieldWait", mcq.YieldWait{}, false},
		{"BlockingWait", mcq.NewBlockingWait(), true},
		{"AsyncWait", mcq.NewAsyncWait(), true},
	} {
		if got := tc.w.NeedsNotify(); got != tc.want {
			t.Fatalf("%s.NeedsNotify: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

// TestBlockingWaitManyConsumers parks several consumers and verifies the
// producer's notifications reach all of them.
func TestBlockingWaitManyConsumers(t *testing.T) {
	if mcq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}

	const (
		consumers = 4
		items     = 400
	)

	tx, rx := mcq.MPMC[int](8)

	var wg sync.WaitGroup
	var mu sync.Mutex
	received := 0
	for range consumers {
		wg.Add(1)
		go func(r *mcq.Receiver[int]) {
			defer wg.Done()
			defer r.Unsubscribe()
			for {
				if _, err := r.Recv(); err != nil {
					return
				}
				mu.Lock()
				received++
				mu.Unlock()
			}
		}(rx.Clone())
	}
	rx.Unsubscribe()

	backoff := iox.Backoff{}
	for i := range items {
		for tx.TrySend(i) != nil {
			backoff.Wait()
		}
		backoff.Reset()
	}
	tx.Unsubscribe()

	wg.Wait()
	if received != items {
		t.Fatalf("received %d items, want %d", received, items)
	}
}
