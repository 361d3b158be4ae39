// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/mcq"
)

// =============================================================================
// Shutdown and Disconnect
// =============================================================================

// TestDrainThenDisconnected verifies consumers drain the remaining items
// after the last producer unsubscribes, then observe ErrDisconnected.
func TestDrainThenDisconnected(t *testing.T) {
	tx, rx := mcq.MPMC[int](8)

	for i := range 3 {
		if err := tx.TrySend(i); err != nil {
			t.Fatalf("TrySend(%d): %v", i, err)
		}
	}
	tx.Unsubscribe()

	for i := range 3 {
		v, err := rx.Recv()
		if err != nil {
			t.Fatalf("Recv(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("Recv(%d): got %d, want %d", i, v, i)
		}
	}

	if _, err := rx.Recv(); !errors.Is(err, mcq.ErrDisconnected) {
		t.Fatalf("Recv after drain: got %v, want ErrDisconnected", err)
	}
	if _, err := rx.TryRecv(); !errors.Is(err, mcq.ErrDisconnected) {
		t.Fatalf("TryRecv after drain: got %v, want ErrDisconnected", err)
	}
}

// TestCloneKeepsQueueAlive verifies the queue only shuts down when the
// last producer handle unsubscribes.
func TestCloneKeepsQueueAlive(t *testing.T) {
	tx, rx := mcq.MPMC[int](4)
	tx2 := tx.Clone()

	tx.Unsubscribe()
	if _, err := rx.TryRecv(); !errors.Is(err, mcq.ErrEmpty) {
		t.Fatalf("TryRecv with one producer left: got %v, want ErrEmpty", err)
	}

	if err := tx2.TrySend(42); err != nil {
		t.Fatalf("TrySend on surviving clone: %v", err)
	}
	tx2.Unsubscribe()

	// Remaining item drains before the disconnect surfaces.
	if v, err := rx.TryRecv(); err != nil || v != 42 {
		t.Fatalf("TryRecv: got (%d, %v), want (42, nil)", v, err)
	}
	if _, err := rx.TryRecv(); !errors.Is(err, mcq.ErrDisconnected) {
		t.Fatalf("TryRecv after drain: got %v, want ErrDisconnected", err)
	}
}

// TestSenderDisconnectedAfterLastConsumer verifies producers observe a
// dead queue once the only stream is gone, and keep observing it.
func TestSenderDisconnectedAfterLastConsumer(t *testing.T) {
	tx, rx := mcq.MPMC[int](4)

	if !rx.Unsubscribe() {
		t.Fatal("rx.Unsubscribe: got false, want true")
	}
	if err := tx.TrySend(1); !errors.Is(err, mcq.ErrDisconnected) {
		t.Fatalf("TrySend with no consumers: got %v, want ErrDisconnected", err)
	}
	// The dead state is sticky.
	if err := tx.TrySend(2); !errors.Is(err, mcq.ErrDisconnected) {
		t.Fatalf("second TrySend: got %v, want ErrDisconnected", err)
	}
}

// TestBlockedRecvWakesOnShutdown verifies a consumer parked in Recv wakes
// when the last producer unsubscribes.
func TestBlockedRecvWakesOnShutdown(t *testing.T) {
	if mcq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}

	tx, rx := mcq.MPMC[int](4)

	errc := make(chan error, 1)
	go func() {
		_, err := rx.Recv()
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	tx.Unsubscribe()

	select {
	case err := <-errc:
		if !errors.Is(err, mcq.ErrDisconnected) {
			t.Fatalf("Recv: got %v, want ErrDisconnected", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Recv did not wake after producer shutdown")
	}
}

// TestFinalItemBeatsShutdown verifies the send-then-unsubscribe sequence
// never loses the final item.
func TestFinalItemBeatsShutdown(t *testing.T) {
	if mcq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}

	for range 100 {
		tx, rx := mcq.MPMC[int](1)

		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := tx.TrySend(1); err != nil {
				t.Errorf("TrySend: %v", err)
			}
			tx.Unsubscribe()
		}()

		v, err := rx.Recv()
		if err != nil {
			t.Fatalf("Recv: got %v, want the final item", err)
		}
		if v != 1 {
			t.Fatalf("Recv: got %d, want 1", v)
		}
		<-done
	}
}
