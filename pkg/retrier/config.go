package retrier

import (
	"time"

	"github.com/ci-utils/stageflow/pkg/types"
)

// Config describes one retry-wrapped unit of work. Start from
// DefaultConfig and set Target, Task and whatever else differs; a
// zero-value field means exactly what it says (RetryBudget 0 is one
// attempt, SuppressFailure false propagates).
type Config struct {
	// Name is the unit's display name. It is the default log scope
	// filter and appears in diagnostics.
	Name string

	// Target is the execution context label the task runs on. Mandatory.
	Target string

	// SuppressFailure records a final unrecoverable failure in the
	// outcome instead of returning it as an error.
	SuppressFailure bool

	// RetryBudget is the maximum number of additional attempts after
	// the first one.
	RetryBudget int

	// RetryDelay is the pause before each retry.
	RetryDelay time.Duration

	// LogScopeFilters selects which log stream segment belongs to this
	// unit. Needed when sibling units share a display name, as inside a
	// homogeneous matrix. Defaults to the unit's own name.
	LogScopeFilters []string

	// UseBuiltinSignatures includes the default failure signature set.
	UseBuiltinSignatures bool

	// CustomSignatures are merged on top of the built-ins when those
	// are enabled, or used alone when they are not.
	CustomSignatures *SignatureSet

	// Env is the environment handed to the task and hooks.
	Env types.Bindings

	// Task is the unit of work to execute. Mandatory.
	Task types.UnitOfWork

	// OnSuccess runs after the task succeeds.
	OnSuccess types.UnitOfWork

	// OnFailure runs after the task fails, before the failure is
	// evaluated for retry.
	OnFailure types.UnitOfWork

	// OnAlways runs on every exit path, success or failure. Failures
	// inside any hook never replace the primary outcome; they only mark
	// the run unstable.
	OnAlways types.UnitOfWork
}

// DefaultConfig returns a Config with the documented defaults applied
func DefaultConfig() Config {
	return Config{
		SuppressFailure:      true,
		RetryBudget:          3,
		RetryDelay:           60 * time.Second,
		UseBuiltinSignatures: true,
	}
}

// validate checks mandatory fields
func (c *Config) validate() error {
	if c.Target == "" {
		return types.NewConfigError("Target", "execution target is required")
	}
	if c.Task == nil {
		return types.NewConfigError("Task", "task is required")
	}
	if c.RetryBudget < 0 {
		return types.NewConfigError("RetryBudget", "must not be negative")
	}
	if c.RetryDelay < 0 {
		return types.NewConfigError("RetryDelay", "must not be negative")
	}
	return nil
}

// signatures merges the built-in and custom sets per the config flags
func (c *Config) signatures() *SignatureSet {
	set := NewSignatureSet()
	if c.UseBuiltinSignatures {
		set.Merge(DefaultSignatures())
	}
	set.Merge(c.CustomSignatures)
	return set
}

// scopeFilters returns the effective log scope filters
func (c *Config) scopeFilters() []string {
	if len(c.LogScopeFilters) > 0 {
		return c.LogScopeFilters
	}
	return []string{c.Name}
}
