package matrix

import (
	"context"

	"github.com/ci-utils/stageflow/pkg/runner"
	"github.com/ci-utils/stageflow/pkg/types"
)

// Options configures one matrix expansion
type Options struct {
	// Separator joins bare axis values into the stage name
	Separator string

	// ExtraVars are injected into every combination's environment
	ExtraVars types.Bindings

	// FailFast stops scheduling remaining stages after the first failure
	FailFast bool

	// Concurrency bounds how many stages run at once; 0 means unbounded
	Concurrency int

	// ReturnOnly produces the stage set without executing it, so the
	// caller can compose further
	ReturnOnly bool
}

// Stages expands the axes and wraps the action into one named stage per
// combination. The stage identifier is the combination identifier
// ("K=v, K2=v2"); the environment carries the axis values,
// MATRIX_STAGE_VARS, MATRIX_STAGE_NAME and the extra vars.
func Stages(axes Axes, action types.UnitOfWork, opts Options) (*StageSet, error) {
	if action == nil {
		return nil, types.NewConfigError("Action", types.ErrNilTask.Error())
	}
	combos, err := Expand(axes)
	if err != nil {
		return nil, err
	}

	set := NewStageSet()
	for _, c := range combos {
		set.Add(Stage{
			Name: c.Identifier(),
			Env:  c.Bindings(opts.Separator, opts.ExtraVars),
			Run:  action,
		})
	}
	return set, nil
}

// Run expands the axes and fans the stages out, unless ReturnOnly is
// set, in which case the set is returned unexecuted.
func Run(ctx context.Context, axes Axes, action types.UnitOfWork, opts Options) (*StageSet, error) {
	set, err := Stages(axes, action, opts)
	if err != nil {
		return nil, err
	}
	if opts.ReturnOnly {
		return set, nil
	}
	return set, runner.RunAll(ctx, set.Stages(), runner.Options{
		Concurrency: opts.Concurrency,
		FailFast:    opts.FailFast,
	})
}

// StagesAll expands several independent axis sets with one shared action
// and merges the results into one flat set. Identifier collisions across
// sets are resolved last-write-wins.
func StagesAll(sets []Axes, action types.UnitOfWork, opts Options) (*StageSet, error) {
	merged := NewStageSet()
	for _, axes := range sets {
		set, err := Stages(axes, action, opts)
		if err != nil {
			return nil, err
		}
		merged.Merge(set)
	}
	return merged, nil
}

// RunAll expands several axis sets, merges them and fans the merged set
// out once.
func RunAll(ctx context.Context, sets []Axes, action types.UnitOfWork, opts Options) (*StageSet, error) {
	merged, err := StagesAll(sets, action, opts)
	if err != nil {
		return nil, err
	}
	if opts.ReturnOnly {
		return merged, nil
	}
	return merged, runner.RunAll(ctx, merged.Stages(), runner.Options{
		Concurrency: opts.Concurrency,
		FailFast:    opts.FailFast,
	})
}
