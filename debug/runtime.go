package debug

// Runtime stats logger. Started only with -debug.
// Emits goroutine count and Go memory stats at a fixed interval so long live
// sessions can be checked for leaked workers or growing frame buffers.

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// RuntimeStats is one sample of the values logged by StartRuntimeLogger.
type RuntimeStats struct {
	Goroutines uint64
	HeapAlloc  uint64
	HeapInuse  uint64
	StackInuse uint64
	NumGC      uint32
}

// ReadRuntimeStats samples the current process.
func ReadRuntimeStats() RuntimeStats {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st := RuntimeStats{
		HeapAlloc:  ms.HeapAlloc,
		HeapInuse:  ms.HeapInuse,
		StackInuse: ms.StackInuse,
		NumGC:      ms.NumGC,
	}
	if samples[0].Value.Kind() == metrics.KindUint64 {
		st.Goroutines = samples[0].Value.Uint64()
	}
	return st
}

// StartRuntimeLogger logs ReadRuntimeStats every interval until ctx is done.
// The returned channel is closed when the logger goroutine exits.
func StartRuntimeLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st := ReadRuntimeStats()
				logger.Info("runtime",
					slog.Uint64("goroutines", st.Goroutines),
					slog.Uint64("heap_alloc", st.HeapAlloc),
					slog.Uint64("heap_inuse", st.HeapInuse),
					slog.Uint64("stack_inuse", st.StackInuse),
					slog.Uint64("num_gc", uint64(st.NumGC)),
				)
			}
		}
	}()
	return done
}
