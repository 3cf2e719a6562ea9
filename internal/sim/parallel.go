package sim

import (
	"context"
	"sync"

	"github.com/san-kum/mlmd/internal/atoms"
)

// ReplicaFactory builds an independent simulator and starting configuration
// for one seed. Calculators are not shared between replicas.
type ReplicaFactory func(seed int64) (*Simulator, *atoms.Atoms, error)

// Replicas runs the same setup from several seeds concurrently.
type Replicas struct {
	factory   ReplicaFactory
	numRuns   int
	seedStart int64
}

func NewReplicas(factory ReplicaFactory, numRuns int, seedStart int64) *Replicas {
	return &Replicas{factory: factory, numRuns: numRuns, seedStart: seedStart}
}

func (e *Replicas) Run(ctx context.Context, steps int) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			s, a, err := e.factory(e.seedStart + int64(idx))
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = s.Run(ctx, a, steps)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
