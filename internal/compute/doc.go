// Package compute selects where numeric kernels run.
//
// A [Device] names the placement requested by the user:
//
//   - [Host]: general-purpose processor, always available
//   - [Accelerator]: GPU-class device, available only in builds that link one
//
// [ForDevice] resolves a device to a [Backend]. The CPU backend splits
// per-atom work over a fixed set of workers; results are reduced in worker
// order so repeated runs on the same machine give identical sums.
//
//	backend, err := compute.ForDevice(compute.Host)
//	backend.ParallelFor(n, func(worker, lo, hi int) { ... })
package compute
