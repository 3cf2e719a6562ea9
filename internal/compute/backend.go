package compute

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDevice indicates a device identifier that names no device.
	ErrUnknownDevice = errors.New("compute: unknown device")

	// ErrDeviceUnavailable indicates a known device that this build or host cannot use.
	ErrDeviceUnavailable = errors.New("compute: device not available")
)

type Device int

const (
	Host Device = iota
	Accelerator
)

func (d Device) String() string {
	switch d {
	case Host:
		return "cpu"
	case Accelerator:
		return "cuda"
	default:
		return fmt.Sprintf("device(%d)", int(d))
	}
}

// ParseDevice accepts the identifiers used by model frameworks ("cpu",
// "cuda", "cuda:0", "gpu") as well as "host" and "accelerator".
func ParseDevice(s string) (Device, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	switch name {
	case "cpu", "host":
		return Host, nil
	case "cuda", "gpu", "accelerator":
		return Accelerator, nil
	}
	return Host, &DeviceError{Device: s, Err: ErrUnknownDevice}
}

type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %q: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

type Backend interface {
	Name() string
	Device() Device
	Available() bool
	Workers() int
	// ParallelFor splits [0, n) into contiguous chunks, one per worker, and
	// blocks until all chunks are done.
	ParallelFor(n int, fn func(worker, lo, hi int))
	Cleanup()
}

// ForDevice returns a ready backend for d, or a *DeviceError.
func ForDevice(d Device) (Backend, error) {
	var b Backend
	switch d {
	case Host:
		b = NewCPUBackend()
	case Accelerator:
		b = NewAcceleratorBackend()
	default:
		return nil, &DeviceError{Device: d.String(), Err: ErrUnknownDevice}
	}
	if !b.Available() {
		return nil, &DeviceError{Device: d.String(), Err: ErrDeviceUnavailable}
	}
	return b, nil
}

func AutoSelectBackend() Backend {
	acc := NewAcceleratorBackend()
	if acc.Available() {
		return acc
	}
	return NewCPUBackend()
}
