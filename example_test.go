// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// This file contains examples that move items between goroutines through
// atomix concurrency primitives. These trigger false positives with Go's
// race detector because atomix atomic operations appear as regular memory
// accesses to the detector. The examples are correct; they're excluded
// from race testing.

package mcq_test

import (
	"context"
	"fmt"
	"sync"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/mcq"
)

// ExampleMPMC demonstrates work distribution: every item goes to exactly
// one consumer.
func ExampleMPMC() {
	tx, rx := mcq.MPMC[int](4)

	done := make(chan int, 1)
	go func() {
		sum := 0
		for {
			v, err := rx.Recv()
			if err != nil {
				break
			}
			sum += v
		}
		rx.Unsubscribe()
		done <- sum
	}()

	backoff := iox.Backoff{}
	for i := 1; i <= 5; i++ {
		for tx.TrySend(i) != nil {
			backoff.Wait()
		}
		backoff.Reset()
	}
	tx.Unsubscribe()

	fmt.Println(<-done)
	// Output:
	// 15
}

// ExampleBroadcast demonstrates fan-out: every stream observes every
// item in send order.
func ExampleBroadcast() {
	tx, rx := mcq.Broadcast[int](4)

	var wg sync.WaitGroup
	sums := make([]int, 2)
	for i, r := range []*mcq.BroadcastReceiver[int]{rx, rx.AddStream()} {
		wg.Add(1)
		go func(i int, r *mcq.BroadcastReceiver[int]) {
			defer wg.Done()
			defer r.Unsubscribe()
			for {
				v, err := r.Recv()
				if err != nil {
					return
				}
				sums[i] += v
			}
		}(i, r)
	}

	backoff := iox.Backoff{}
	for i := 1; i <= 4; i++ {
		for tx.TrySend(i) != nil {
			backoff.Wait()
		}
		backoff.Reset()
	}
	tx.Unsubscribe()
	wg.Wait()

	fmt.Println(sums[0], sums[1])
	// Output:
	// 10 10
}

// ExampleBroadcastReceiver_AddStream shows that a stream registered after
// a send only observes later items.
func ExampleBroadcastReceiver_AddStream() {
	tx, rx := mcq.Broadcast[string](4)

	tx.TrySend("before")
	audit := rx.AddStream()
	tx.TrySend("after")

	v, _ := rx.TryRecv()
	fmt.Println("main:", v)
	v, _ = rx.TryRecv()
	fmt.Println("main:", v)
	v, _ = audit.TryRecv()
	fmt.Println("audit:", v)
	// Output:
	// main: before
	// main: after
	// audit: after
}

// ExampleReceiver_IntoSingle demonstrates the zero-copy view path on a
// stream with exactly one consumer.
func ExampleReceiver_IntoSingle() {
	tx, rx := mcq.MPMC[[]byte](8)

	uni, err := rx.IntoSingle()
	if err != nil {
		return
	}

	tx.TrySend([]byte("payload"))

	var n int
	uni.TryRecvView(func(v *[]byte) { n = len(*v) })
	fmt.Println(n)
	// Output:
	// 7
}

// ExampleMPMCAsync demonstrates the context-aware handles.
func ExampleMPMCAsync() {
	tx, rx := mcq.MPMCAsync[int](1)
	ctx := context.Background()

	go func() {
		defer tx.Unsubscribe()
		for i := 1; i <= 3; i++ {
			if err := tx.Send(ctx, i*10); err != nil {
				return
			}
		}
	}()

	for {
		v, err := rx.Recv(ctx)
		if err != nil {
			break
		}
		fmt.Println(v)
	}
	// Output:
	// 10
	// 20
	// 30
}
