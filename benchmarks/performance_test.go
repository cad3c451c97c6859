package benchmarks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-foundations/computepool"
)

func BenchmarkGlobalQueue(b *testing.B) {
	benchmarkVariant(b, computepool.GlobalQueue, 4, 100, 0)
}

func BenchmarkPerWorkerQueue(b *testing.B) {
	benchmarkVariant(b, computepool.PerWorkerQueue, 4, 100, 0)
}

func BenchmarkWorkStealing(b *testing.B) {
	benchmarkVariant(b, computepool.WorkStealing, 4, 100, 0)
}

func benchmarkVariant(b *testing.B, variant computepool.Variant, workers, jobCount int, procTime time.Duration) {
	cfg := computepool.DefaultConfig()
	cfg.MinThreads = workers
	cfg.MaxThreads = workers
	cfg.Variant = variant

	pool, err := computepool.New(context.Background(), cfg)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Dispose()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runBatch(b, pool, jobCount, procTime)
	}
}

func runBatch(b *testing.B, pool *computepool.Pool, jobCount int, procTime time.Duration) {
	var wg sync.WaitGroup
	wg.Add(jobCount)
	for i := 0; i < jobCount; i++ {
		data := fmt.Sprintf("data_%d", i)
		ok, err := pool.Submit(context.Background(), func(ctx context.Context, userData any) {
			defer wg.Done()
			if procTime > 0 {
				time.Sleep(procTime)
			}
			_ = strings.ToUpper(data)
		}, nil)
		if err != nil {
			b.Fatal(err)
		}
		if !ok {
			wg.Done()
		}
	}
	wg.Wait()
}

// BenchmarkWorkerCounts sweeps the fixed worker-pool size across a constant
// workload under the work-stealing variant.
func BenchmarkWorkerCounts(b *testing.B) {
	for _, workers := range []int{1, 2, 4, 8, 16} {
		b.Run(fmt.Sprintf("Workers_%d", workers), func(b *testing.B) {
			benchmarkVariant(b, computepool.WorkStealing, workers, 100, 0)
		})
	}
}

// BenchmarkJobCounts sweeps the per-batch job count against a fixed
// four-worker work-stealing pool.
func BenchmarkJobCounts(b *testing.B) {
	for _, jobCount := range []int{10, 100, 1000, 10000} {
		b.Run(fmt.Sprintf("Jobs_%d", jobCount), func(b *testing.B) {
			benchmarkVariant(b, computepool.WorkStealing, 4, jobCount, 0)
		})
	}
}

// BenchmarkProcessingTimes sweeps the simulated per-item CPU cost against a
// fixed four-worker work-stealing pool.
func BenchmarkProcessingTimes(b *testing.B) {
	procTimes := []time.Duration{
		0,
		1 * time.Microsecond,
		10 * time.Microsecond,
		100 * time.Microsecond,
		1 * time.Millisecond,
	}
	for _, procTime := range procTimes {
		b.Run(fmt.Sprintf("ProcTime_%v", procTime), func(b *testing.B) {
			benchmarkVariant(b, computepool.WorkStealing, 4, 100, procTime)
		})
	}
}
