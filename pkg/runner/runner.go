// Package runner provides the fan-out primitive: concurrent execution of
// named units of work, joined on completion, with optional fail-fast.
package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ci-utils/stageflow/pkg/types"
)

// Task is one named unit of work with its bound environment
type Task struct {
	// Name is the unit's display name, unique within one fan-out
	Name string

	// Env is the environment handed to Run
	Env types.Bindings

	// Run is the unit body
	Run types.UnitOfWork
}

// Options configures one fan-out
type Options struct {
	// Concurrency bounds the number of units running at once; 0 means
	// unbounded
	Concurrency int

	// FailFast stops scheduling not-yet-started units after the first
	// failure. Units already running are not interrupted; skipped units
	// are reported as aborted.
	FailFast bool
}

// RunAll executes every task concurrently and joins on completion.
// Scheduling follows slice order; completion order is unspecified. The
// returned error aggregates one StageError per failed or aborted task,
// nil when everything succeeded.
func RunAll(ctx context.Context, tasks []Task, opts Options) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errs   []error
		failed atomic.Bool
	)

	var sem chan struct{}
	if opts.Concurrency > 0 {
		sem = make(chan struct{}, opts.Concurrency)
	}

	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, t := range tasks {
		if t.Run == nil {
			record(types.NewStageError(t.Name, types.ErrNilTask))
			continue
		}
		if opts.FailFast && failed.Load() {
			record(types.NewStageError(t.Name, types.ErrStageAborted))
			continue
		}
		if ctx.Err() != nil {
			record(types.NewStageError(t.Name, ctx.Err()))
			continue
		}

		// The slot is acquired here, in scheduling order, so that a unit
		// only counts as started once it holds one.
		if sem != nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				record(types.NewStageError(t.Name, ctx.Err()))
				continue
			}
			// A failure may have landed while waiting for the slot.
			if opts.FailFast && failed.Load() {
				<-sem
				record(types.NewStageError(t.Name, types.ErrStageAborted))
				continue
			}
		}

		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			if sem != nil {
				defer func() { <-sem }()
			}
			if err := t.Run(ctx, t.Env); err != nil {
				failed.Store(true)
				record(types.NewStageError(t.Name, err))
			}
		}(t)
	}

	wg.Wait()
	return errors.Join(errs...)
}
