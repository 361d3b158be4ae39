// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mcq_test

import (
	"fmt"
	"sync"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/mcq"
)

// =============================================================================
// Single-Goroutine Baselines
// =============================================================================

func BenchmarkMPMC_SingleOp(b *testing.B) {
	tx, rx := mcq.MPMC[int](1024)

	b.ResetTimer()
	for i := range b.N {
		tx.TrySend(i)
		rx.TryRecv()
	}
}

func BenchmarkBroadcast_SingleOp(b *testing.B) {
	tx, rx := mcq.Broadcast[int](1024)

	b.ResetTimer()
	for i := range b.N {
		tx.TrySend(i)
		rx.TryRecv()
	}
}

func BenchmarkUniReceiver_View(b *testing.B) {
	tx, rx := mcq.MPMC[int](1024)
	uni, err := rx.IntoSingle()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := range b.N {
		tx.TrySend(i)
		uni.TryRecvView(func(*int) {})
	}
}

// =============================================================================
// Contended Throughput
// =============================================================================

func benchmarkMPMCContended(b *testing.B, producers, consumers int) {
	tx, rx := mcq.MPMC[int](1024)

	var wg sync.WaitGroup
	perProducer := b.N / producers

	b.ResetTimer()
	for range producers {
		wg.Add(1)
		go func(tx *mcq.Sender[int]) {
			defer wg.Done()
			defer tx.Unsubscribe()
			backoff := iox.Backoff{}
			for i := range perProducer {
				for tx.TrySend(i) != nil {
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(tx.Clone())
	}
	tx.Unsubscribe()

	for range consumers {
		wg.Add(1)
		go func(rx *mcq.Receiver[int]) {
			defer wg.Done()
			defer rx.Unsubscribe()
			for {
				if _, err := rx.Recv(); err != nil {
					return
				}
			}
		}(rx.Clone())
	}
	rx.Unsubscribe()

	wg.Wait()
}

func BenchmarkMPMC_Contended(b *testing.B) {
	for _, shape := range []struct{ p, c int }{
		{1, 1},
		{2, 2},
		{4, 4},
	} {
		b.Run(fmt.Sprintf("%dp%dc", shape.p, shape.c), func(b *testing.B) {
			if b.N < shape.p {
				b.Skip("iteration count below producer count")
			}
			benchmarkMPMCContended(b, shape.p, shape.c)
		})
	}
}

func BenchmarkBroadcast_TwoStreams(b *testing.B) {
	tx, rx := mcq.Broadcast[int](1024)

	var wg sync.WaitGroup
	for _, r := range []*mcq.BroadcastReceiver[int]{rx, rx.AddStream()} {
		wg.Add(1)
		go func(r *mcq.BroadcastReceiver[int]) {
			defer wg.Done()
			defer r.Unsubscribe()
			for {
				if _, err := r.Recv(); err != nil {
					return
				}
			}
		}(r)
	}

	b.ResetTimer()
	backoff := iox.Backoff{}
	for i := range b.N {
		for tx.TrySend(i) != nil {
			backoff.Wait()
		}
		backoff.Reset()
	}
	tx.Unsubscribe()
	wg.Wait()
}
