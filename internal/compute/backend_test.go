package compute

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestParseDevice(t *testing.T) {
	tests := []struct {
		in      string
		want    Device
		wantErr bool
	}{
		{"cpu", Host, false},
		{"CPU", Host, false},
		{"host", Host, false},
		{"cuda", Accelerator, false},
		{"cuda:1", Accelerator, false},
		{"gpu", Accelerator, false},
		{"tpu", Host, true},
		{"", Host, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDevice(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownDevice) {
					t.Fatalf("expected ErrUnknownDevice, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestForDeviceHost(t *testing.T) {
	b, err := ForDevice(Host)
	if err != nil {
		t.Fatalf("host backend: %v", err)
	}
	if b.Device() != Host || !b.Available() {
		t.Errorf("unexpected backend %s", b.Name())
	}
}

func TestForDeviceAcceleratorUnavailable(t *testing.T) {
	_, err := ForDevice(Accelerator)
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeviceError, got %v", err)
	}
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestParallelForCoversRange(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		c := NewCPUBackendWorkers(workers)
		n := 101
		hits := make([]int32, n)

		c.ParallelFor(n, func(worker, lo, hi int) {
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})

		for i, h := range hits {
			if h != 1 {
				t.Fatalf("workers=%d: index %d visited %d times", workers, i, h)
			}
		}
	}
}

func TestParallelForEmpty(t *testing.T) {
	called := false
	NewCPUBackend().ParallelFor(0, func(worker, lo, hi int) { called = true })
	if called {
		t.Error("expected no call for empty range")
	}
}
