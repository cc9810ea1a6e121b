package matrix

import (
	"context"

	"github.com/ci-utils/stageflow/pkg/runner"
	"github.com/ci-utils/stageflow/pkg/types"
)

// Group is one independent matrix configuration: its own axes, action
// and expansion options.
type Group struct {
	Axes    Axes
	Action  types.UnitOfWork
	Options Options
}

// GroupStages expands every group and merges the results into one flat
// stage set. Identifier collisions across groups are resolved
// last-write-wins.
func GroupStages(groups []Group) (*StageSet, error) {
	merged := NewStageSet()
	for _, g := range groups {
		set, err := Stages(g.Axes, g.Action, g.Options)
		if err != nil {
			return nil, err
		}
		merged.Merge(set)
	}
	return merged, nil
}

// RunGroups expands every group, merges the stages and fans them out in
// a single call. The merged fan-out runs under one uniform policy:
// fail-fast is enabled when any group enables it, and the concurrency
// bound is the largest one requested.
func RunGroups(ctx context.Context, groups []Group) (*StageSet, error) {
	merged, err := GroupStages(groups)
	if err != nil {
		return nil, err
	}

	var opts runner.Options
	for _, g := range groups {
		if g.Options.FailFast {
			opts.FailFast = true
		}
		if g.Options.Concurrency > opts.Concurrency {
			opts.Concurrency = g.Options.Concurrency
		}
	}
	return merged, runner.RunAll(ctx, merged.Stages(), opts)
}
