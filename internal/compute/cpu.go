package compute

import (
	"runtime"
	"sync"
)

// serialThreshold is the work size below which goroutines cost more than they save.
const serialThreshold = 16

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

// NewCPUBackendWorkers pins the worker count, mostly for tests and benchmarks.
func NewCPUBackendWorkers(workers int) *CPUBackend {
	if workers < 1 {
		workers = 1
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Device() Device  { return Host }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Workers() int    { return c.workers }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) ParallelFor(n int, fn func(worker, lo, hi int)) {
	if n <= 0 {
		return
	}
	if n < serialThreshold || c.workers == 1 {
		fn(0, 0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := (n + c.workers - 1) / c.workers

	for w := 0; w < c.workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(worker, lo, hi int) {
			defer wg.Done()
			fn(worker, lo, hi)
		}(w, start, end)
	}

	wg.Wait()
}
