package matrix

import (
	"github.com/ci-utils/stageflow/pkg/runner"
)

// Stage is one named, environment-bound unit of work
type Stage = runner.Task

// StageSet is an ordered mapping from stage identifier to unit of work.
// Adding an existing identifier replaces the value in place, keeping the
// original position (last write wins).
type StageSet struct {
	stages []Stage
	index  map[string]int
}

// NewStageSet creates an empty stage set
func NewStageSet() *StageSet {
	return &StageSet{index: make(map[string]int)}
}

// Add inserts or replaces a stage by name
func (s *StageSet) Add(st Stage) {
	if i, ok := s.index[st.Name]; ok {
		s.stages[i] = st
		return
	}
	s.index[st.Name] = len(s.stages)
	s.stages = append(s.stages, st)
}

// Merge applies every stage of other on top of s
func (s *StageSet) Merge(other *StageSet) {
	if other == nil {
		return
	}
	for _, st := range other.stages {
		s.Add(st)
	}
}

// Get returns the stage with the given identifier
func (s *StageSet) Get(name string) (Stage, bool) {
	if i, ok := s.index[name]; ok {
		return s.stages[i], true
	}
	return Stage{}, false
}

// Stages returns the stages in insertion order
func (s *StageSet) Stages() []Stage {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

// Names returns the stage identifiers in insertion order
func (s *StageSet) Names() []string {
	names := make([]string, len(s.stages))
	for i, st := range s.stages {
		names[i] = st.Name
	}
	return names
}

// Len returns the number of stages
func (s *StageSet) Len() int {
	return len(s.stages)
}
