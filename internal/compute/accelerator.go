package compute

// AcceleratorBackend stands in for a GPU backend; no accelerator runtime is linked.
// It reports itself unavailable so device resolution fails loudly instead
// of silently running on the host.
type AcceleratorBackend struct{}

func NewAcceleratorBackend() *AcceleratorBackend {
	return &AcceleratorBackend{}
}

func (a *AcceleratorBackend) Name() string    { return "cuda (not available)" }
func (a *AcceleratorBackend) Device() Device  { return Accelerator }
func (a *AcceleratorBackend) Available() bool { return false }
func (a *AcceleratorBackend) Workers() int    { return 1 }
func (a *AcceleratorBackend) Cleanup()        {}

func (a *AcceleratorBackend) ParallelFor(n int, fn func(worker, lo, hi int)) {
	NewCPUBackendWorkers(1).ParallelFor(n, fn)
}
