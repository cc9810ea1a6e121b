// Package config loads matrix and retry definitions from YAML files
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ci-utils/stageflow/pkg/matrix"
	"github.com/ci-utils/stageflow/pkg/retrier"
	"github.com/ci-utils/stageflow/pkg/types"
)

// File is the top-level document: one optional retry section and any
// number of matrix groups.
type File struct {
	Retry  *Retry  `yaml:"retry"`
	Groups []Group `yaml:"groups"`
}

// Retry mirrors retrier.Config for file-based definition
type Retry struct {
	Name            string            `yaml:"name"`
	Target          string            `yaml:"target"`
	Suppress        *bool             `yaml:"suppress"`
	Budget          *int              `yaml:"budget"`
	Delay           string            `yaml:"delay"`
	ScopeFilters    []string          `yaml:"scope_filters"`
	UseBuiltins     *bool             `yaml:"use_builtins"`
	Signatures      yaml.Node         `yaml:"signatures"`
	parsedSignature []signatureEntry  `yaml:"-"`
	ExtraEnv        map[string]string `yaml:"env"`
}

type signatureEntry struct {
	name, pattern string
}

// Group is one matrix group definition
type Group struct {
	Name        string            `yaml:"name"`
	FailFast    bool              `yaml:"fail_fast"`
	Concurrency int               `yaml:"concurrency"`
	Separator   string            `yaml:"separator"`
	ExtraVars   map[string]string `yaml:"extra_vars"`
	Axes        []AxisDef         `yaml:"axes"`
}

// AxisDef is one axis definition; a list form keeps declaration order,
// which a YAML mapping would not guarantee across decoders.
type AxisDef struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// Load reads and parses a definition file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a definition document. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Retry != nil {
		if err := f.Retry.parseSignatures(); err != nil {
			return err
		}
		if f.Retry.Delay != "" {
			if _, err := time.ParseDuration(f.Retry.Delay); err != nil {
				return &types.ConfigError{Field: "retry.delay", Reason: "invalid duration", Cause: err}
			}
		}
	}
	for _, g := range f.Groups {
		if err := g.MatrixAxes().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// parseSignatures walks the signatures mapping node so that file order
// is preserved, and validates that every pattern compiles.
func (r *Retry) parseSignatures() error {
	node := r.Signatures
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return types.NewConfigError("retry.signatures", "must be a mapping of name to pattern")
	}
	set := retrier.NewSignatureSet()
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		pattern := node.Content[i+1].Value
		if err := set.AddString(name, pattern); err != nil {
			return &types.ConfigError{Field: "retry.signatures", Reason: name, Cause: err}
		}
		r.parsedSignature = append(r.parsedSignature, signatureEntry{name: name, pattern: pattern})
	}
	return nil
}

// RetrierConfig converts the retry section into a retrier.Config,
// starting from the library defaults.
func (r *Retry) RetrierConfig() (retrier.Config, error) {
	cfg := retrier.DefaultConfig()
	cfg.Name = r.Name
	cfg.Target = r.Target
	if r.Suppress != nil {
		cfg.SuppressFailure = *r.Suppress
	}
	if r.Budget != nil {
		cfg.RetryBudget = *r.Budget
	}
	if r.Delay != "" {
		d, err := time.ParseDuration(r.Delay)
		if err != nil {
			return cfg, &types.ConfigError{Field: "retry.delay", Reason: "invalid duration", Cause: err}
		}
		cfg.RetryDelay = d
	}
	if len(r.ScopeFilters) > 0 {
		cfg.LogScopeFilters = r.ScopeFilters
	}
	if r.UseBuiltins != nil {
		cfg.UseBuiltinSignatures = *r.UseBuiltins
	}
	if len(r.parsedSignature) > 0 {
		set := retrier.NewSignatureSet()
		for _, e := range r.parsedSignature {
			if err := set.AddString(e.name, e.pattern); err != nil {
				return cfg, err
			}
		}
		cfg.CustomSignatures = set
	}
	if len(r.ExtraEnv) > 0 {
		cfg.Env = types.Bindings(r.ExtraEnv).Clone()
	}
	return cfg, nil
}

// MatrixAxes converts the axis definitions, keeping file order
func (g Group) MatrixAxes() matrix.Axes {
	axes := make(matrix.Axes, len(g.Axes))
	for i, a := range g.Axes {
		axes[i] = matrix.Axis{Name: a.Name, Values: a.Values}
	}
	return axes
}

// MatrixOptions converts the group settings into expansion options
func (g Group) MatrixOptions() matrix.Options {
	return matrix.Options{
		Separator:   g.Separator,
		ExtraVars:   types.Bindings(g.ExtraVars),
		FailFast:    g.FailFast,
		Concurrency: g.Concurrency,
	}
}

// MatrixGroup converts the group into a matrix.Group bound to an action
func (g Group) MatrixGroup(action types.UnitOfWork) matrix.Group {
	return matrix.Group{
		Axes:    g.MatrixAxes(),
		Action:  action,
		Options: g.MatrixOptions(),
	}
}
