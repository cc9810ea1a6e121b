package matrix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ci-utils/stageflow/pkg/types"
)

func browserAxes() Axes {
	return Axes{
		{Name: "PLATFORM", Values: []string{"linux", "mac", "windows"}},
		{Name: "BROWSER", Values: []string{"chrome", "firefox", "safari"}},
	}
}

func TestExpand_ProductSize(t *testing.T) {
	tests := []struct {
		name string
		axes Axes
		want int
	}{
		{"single axis", Axes{{Name: "A", Values: []string{"1", "2"}}}, 2},
		{"two axes 3x3", browserAxes(), 9},
		{
			"three axes 2x3x4",
			Axes{
				{Name: "A", Values: []string{"a1", "a2"}},
				{Name: "B", Values: []string{"b1", "b2", "b3"}},
				{Name: "C", Values: []string{"c1", "c2", "c3", "c4"}},
			},
			24,
		},
		{"single value axes", Axes{{Name: "A", Values: []string{"only"}}, {Name: "B", Values: []string{"one"}}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combos, err := Expand(tt.axes)
			require.NoError(t, err)
			assert.Len(t, combos, tt.want)
			assert.Equal(t, tt.want, tt.axes.Size())

			// Identifiers are unique for distinct values per axis.
			seen := make(map[string]struct{})
			for _, c := range combos {
				id := c.Identifier()
				_, dup := seen[id]
				assert.False(t, dup, "duplicate identifier %q", id)
				seen[id] = struct{}{}
			}
		})
	}
}

func TestExpand_OrderAndIdentifiers(t *testing.T) {
	combos, err := Expand(browserAxes())
	require.NoError(t, err)
	require.Len(t, combos, 9)

	// First axis varies slowest, declaration order preserved.
	assert.Equal(t, "PLATFORM=linux, BROWSER=chrome", combos[0].Identifier())
	assert.Equal(t, "PLATFORM=linux, BROWSER=firefox", combos[1].Identifier())
	assert.Equal(t, "PLATFORM=linux, BROWSER=safari", combos[2].Identifier())
	assert.Equal(t, "PLATFORM=mac, BROWSER=chrome", combos[3].Identifier())
	assert.Equal(t, "PLATFORM=windows, BROWSER=safari", combos[8].Identifier())

	assert.Equal(t, "linux_chrome", combos[0].StageName("_"))
	assert.Equal(t, "windows_safari", combos[8].StageName("_"))
}

func TestExpand_Deterministic(t *testing.T) {
	first, err := Expand(browserAxes())
	require.NoError(t, err)
	second, err := Expand(browserAxes())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCombination_SeparatorOnlyChangesJoin(t *testing.T) {
	combos, err := Expand(browserAxes())
	require.NoError(t, err)

	underscore := make(map[string]struct{})
	dash := make(map[string]struct{})
	for _, c := range combos {
		underscore[c.StageName("_")] = struct{}{}
		dash[c.StageName("-")] = struct{}{}
	}

	assert.Len(t, dash, len(underscore))
	_, ok := dash["linux-chrome"]
	assert.True(t, ok)

	// Empty separator falls back to the default.
	assert.Equal(t, "linux_chrome", combos[0].StageName(""))
}

func TestCombination_Bindings(t *testing.T) {
	combos, err := Expand(browserAxes())
	require.NoError(t, err)

	env := combos[0].Bindings("_", types.Bindings{"BUILD_KIND": "smoke"})

	assert.Equal(t, "linux", env["PLATFORM"])
	assert.Equal(t, "chrome", env["BROWSER"])
	assert.Equal(t, "linux_chrome", env[StageNameVar])
	assert.Equal(t, "PLATFORM=linux, BROWSER=chrome", env[StageVarsVar])
	assert.Equal(t, "smoke", env["BUILD_KIND"])
}

func TestAxes_Validate(t *testing.T) {
	tests := []struct {
		name    string
		axes    Axes
		wantErr error
	}{
		{"empty set", Axes{}, nil},
		{"nil set", nil, nil},
		{
			"empty axis values",
			Axes{{Name: "A", Values: nil}},
			types.ErrEmptyAxis,
		},
		{
			"duplicate names",
			Axes{
				{Name: "A", Values: []string{"1"}},
				{Name: "A", Values: []string{"2"}},
			},
			types.ErrDuplicateAxis,
		},
		{"unnamed axis", Axes{{Name: "", Values: []string{"1"}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.axes.Validate()
			require.Error(t, err)

			var cfgErr *types.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}

			_, err = Expand(tt.axes)
			assert.Error(t, err)
		})
	}
}
