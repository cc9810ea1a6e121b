// Package matrix provides cartesian expansion of named axes into stages
package matrix

import (
	"strings"

	"github.com/ci-utils/stageflow/pkg/types"
)

// Exported binding names available inside every combination's environment
const (
	// StageNameVar holds the separator-joined bare axis values
	StageNameVar = "MATRIX_STAGE_NAME"

	// StageVarsVar holds the comma-joined "name=value" pairs
	StageVarsVar = "MATRIX_STAGE_VARS"
)

// DefaultSeparator joins bare values into the stage name
const DefaultSeparator = "_"

// Axis is one named dimension of variation with an ordered value list
type Axis struct {
	Name   string
	Values []string
}

// Axes is an ordered axis set; declaration order drives combination
// order and identifier layout.
type Axes []Axis

// Validate checks the axis set invariants: at least one axis, every axis
// non-empty, no duplicate names.
func (a Axes) Validate() error {
	if len(a) == 0 {
		return &types.ConfigError{Field: "Axes", Reason: "empty axis set", Cause: types.ErrNoAxes}
	}
	seen := make(map[string]struct{}, len(a))
	for _, ax := range a {
		if ax.Name == "" {
			return types.NewConfigError("Axes", "axis name must not be empty")
		}
		if len(ax.Values) == 0 {
			return &types.ConfigError{Field: "Axes", Reason: "axis " + ax.Name, Cause: types.ErrEmptyAxis}
		}
		if _, dup := seen[ax.Name]; dup {
			return &types.ConfigError{Field: "Axes", Reason: "axis " + ax.Name, Cause: types.ErrDuplicateAxis}
		}
		seen[ax.Name] = struct{}{}
	}
	return nil
}

// Size returns the number of combinations the set expands to
func (a Axes) Size() int {
	if len(a) == 0 {
		return 0
	}
	n := 1
	for _, ax := range a {
		n *= len(ax.Values)
	}
	return n
}

// Selection is one chosen value for one axis
type Selection struct {
	Name  string
	Value string
}

// Combination selects exactly one value per axis, in axis declaration
// order. Combinations are transient: generated fresh per expansion,
// never persisted.
type Combination []Selection

// Identifier joins "name=value" pairs with ", " for diagnostics and as
// the stage map key.
func (c Combination) Identifier() string {
	parts := make([]string, len(c))
	for i, s := range c {
		parts[i] = s.Name + "=" + s.Value
	}
	return strings.Join(parts, ", ")
}

// StageName joins the bare values with the given separator
func (c Combination) StageName(separator string) string {
	if separator == "" {
		separator = DefaultSeparator
	}
	parts := make([]string, len(c))
	for i, s := range c {
		parts[i] = s.Value
	}
	return strings.Join(parts, separator)
}

// Bindings builds the combination's environment: axis values under their
// own names, the derived stage variables, and extra entries on top.
func (c Combination) Bindings(separator string, extra types.Bindings) types.Bindings {
	env := make(types.Bindings, len(c)+len(extra)+2)
	for _, s := range c {
		env[s.Name] = s.Value
	}
	env[StageVarsVar] = c.Identifier()
	env[StageNameVar] = c.StageName(separator)
	for k, v := range extra {
		env[k] = v
	}
	return env
}

// Expand computes the cartesian product of the axis set. Axis order and
// value order are preserved, so the result is deterministic: the first
// axis varies slowest, the last fastest.
func Expand(axes Axes) ([]Combination, error) {
	if err := axes.Validate(); err != nil {
		return nil, err
	}

	combos := make([]Combination, 1, axes.Size())
	for _, ax := range axes {
		next := make([]Combination, 0, len(combos)*len(ax.Values))
		for _, c := range combos {
			for _, v := range ax.Values {
				grown := make(Combination, len(c), len(c)+1)
				copy(grown, c)
				next = append(next, append(grown, Selection{Name: ax.Name, Value: v}))
			}
		}
		combos = next
	}
	return combos, nil
}
