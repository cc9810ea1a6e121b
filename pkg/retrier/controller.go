package retrier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ci-utils/stageflow/pkg/types"
)

// State is the retry unit's lifecycle state
type State int32

const (
	// StateStarting before the first attempt
	StateStarting State = iota
	// StateExecuting while an attempt runs
	StateExecuting
	// StateAwaitingDecision while the attempt's log window is evaluated
	StateAwaitingDecision
	// StateRetrying while waiting out the retry delay
	StateRetrying
	// StateSucceeded terminal: the task succeeded
	StateSucceeded
	// StateFailedSuppressed terminal: unrecoverable failure, recorded but swallowed
	StateFailedSuppressed
	// StateFailedPropagated terminal: unrecoverable failure, returned to the caller
	StateFailedPropagated
)

// String returns string representation of state
func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateExecuting:
		return "Executing"
	case StateAwaitingDecision:
		return "AwaitingDecision"
	case StateRetrying:
		return "Retrying"
	case StateSucceeded:
		return "Succeeded"
	case StateFailedSuppressed:
		return "FailedSuppressed"
	case StateFailedPropagated:
		return "FailedPropagated"
	default:
		return "Unknown"
	}
}

// Outcome reports how a retry-wrapped unit ended
type Outcome struct {
	// State is the terminal state
	State State

	// Attempts is the total number of attempts made
	Attempts int

	// Unstable is set when a lifecycle hook failed; the primary outcome
	// is unaffected
	Unstable bool

	// MatchedSignature names the signature that triggered the last
	// retry, empty if none ever matched
	MatchedSignature string

	// Err is the final task or infrastructure error, also set when the
	// failure was suppressed
	Err error
}

// Allocator acquires an execution context for a target label, runs the
// body inside it and releases it on return. Allocation blocks until a
// matching resource is available; allocation and disconnect errors
// surface as the returned error and take the same retry-evaluation path
// as task failures.
type Allocator interface {
	WithNode(ctx context.Context, label string, body func(ctx context.Context) error) error
}

// LogStream is the unit's build log: append-only, retrievable by name
// filter with the newest content at the end.
type LogStream interface {
	// Printf appends a line to the log
	Printf(format string, args ...interface{})

	// Text returns the accumulated log text for the units matching the
	// given name filters
	Text(ctx context.Context, nameFilters []string) (string, error)
}

// Marker returns the literal log marker written before the attempt with
// the given number of tries left. Log slicing splits on this exact text,
// never on a pattern.
func Marker(triesLeft int) string {
	return fmt.Sprintf("[retry] Tries left %d", triesLeft)
}

// Stats contains controller statistics
type Stats struct {
	TotalAttempts   int64         // total attempt count
	TotalRetries    int64         // total retry count
	TotalSuccesses  int64         // total successful units
	TotalFailures   int64         // total failed units, suppressed included
	TotalSuppressed int64         // failed units that were suppressed
	LastRetryTime   time.Time     // last retry time
	TotalRetryDelay time.Duration // total retry delay time
	mu              sync.RWMutex
}

// Controller runs units of work under the conditional retry policy
type Controller struct {
	alloc Allocator
	log   LogStream
	clock types.Clock
	stats Stats
}

// Option is a configuration option for the controller
type Option func(*Controller)

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// New creates a retry controller bound to its collaborators
func New(alloc Allocator, log LogStream, opts ...Option) *Controller {
	c := &Controller{
		alloc: alloc,
		log:   log,
		clock: types.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes cfg.Task with retry. Each attempt is preceded by a
// literal log marker so that the retry decision only ever sees the log
// window of the most recent attempt. A failure retries when a line of
// that window matches a failure signature and budget remains; otherwise
// it propagates, or is recorded and swallowed under SuppressFailure.
func (c *Controller) Run(ctx context.Context, cfg Config) (Outcome, error) {
	out := Outcome{State: StateStarting}

	if err := cfg.validate(); err != nil {
		out.State = StateFailedPropagated
		out.Err = err
		return out, err
	}

	sigs := cfg.signatures()
	filters := cfg.scopeFilters()
	budget := cfg.RetryBudget

	for {
		marker := Marker(budget)
		c.log.Printf("%s", marker)

		out.Attempts++
		out.State = StateExecuting
		c.updateStats(func(s *Stats) { s.TotalAttempts++ })

		err := c.runAttempt(ctx, cfg, &out)
		if err == nil {
			out.State = StateSucceeded
			c.updateStats(func(s *Stats) { s.TotalSuccesses++ })
			return out, nil
		}
		out.Err = err

		// Cancellation wins over any retry decision.
		if ctx.Err() != nil {
			out.State = StateFailedPropagated
			c.updateStats(func(s *Stats) { s.TotalFailures++ })
			return out, ctx.Err()
		}

		out.State = StateAwaitingDecision
		name, matched := c.decide(ctx, filters, marker, sigs)

		if matched && budget > 0 {
			budget--
			out.MatchedSignature = name
			out.State = StateRetrying
			c.log.Printf("[retry] %q matched, retrying in %s (%d tries left)", name, cfg.RetryDelay, budget)
			c.updateStats(func(s *Stats) {
				s.TotalRetries++
				s.LastRetryTime = c.clock.Now()
				s.TotalRetryDelay += cfg.RetryDelay
			})

			if cfg.RetryDelay > 0 {
				select {
				case <-c.clock.After(cfg.RetryDelay):
				case <-ctx.Done():
					out.State = StateFailedPropagated
					c.updateStats(func(s *Stats) { s.TotalFailures++ })
					return out, ctx.Err()
				}
			}
			continue
		}

		c.updateStats(func(s *Stats) { s.TotalFailures++ })
		wrapped := types.NewStageError(cfg.Name, err).
			WithContext("attempts", out.Attempts).
			WithContext("target", cfg.Target)

		if cfg.SuppressFailure {
			out.State = StateFailedSuppressed
			out.Err = wrapped
			c.log.Printf("[retry] failure suppressed after %d attempts: %v", out.Attempts, err)
			c.updateStats(func(s *Stats) { s.TotalSuppressed++ })
			return out, nil
		}

		out.State = StateFailedPropagated
		out.Err = wrapped
		return out, wrapped
	}
}

// runAttempt allocates the execution context and runs the task and its
// hooks inside it. The returned error is the primary task or
// infrastructure error; hook failures only mark the outcome unstable.
func (c *Controller) runAttempt(ctx context.Context, cfg Config, out *Outcome) error {
	return c.alloc.WithNode(ctx, cfg.Target, func(ctx context.Context) error {
		defer c.runHook(ctx, "always", cfg.OnAlways, cfg.Env, out)

		if err := cfg.Task(ctx, cfg.Env); err != nil {
			c.runHook(ctx, "failure", cfg.OnFailure, cfg.Env, out)
			return err
		}
		c.runHook(ctx, "success", cfg.OnSuccess, cfg.Env, out)
		return nil
	})
}

// runHook invokes a lifecycle hook, catching its failure so it can
// never override the primary outcome.
func (c *Controller) runHook(ctx context.Context, name string, hook types.UnitOfWork, env types.Bindings, out *Outcome) {
	if hook == nil {
		return
	}
	if err := hook(ctx, env); err != nil {
		out.Unstable = true
		c.log.Printf("[retry] %s hook failed, run marked unstable: %v", name, err)
	}
}

// decide retrieves the current attempt's log window and scans it for a
// failure signature. The window is the text after the last occurrence
// of the attempt's marker, treated as a literal string.
func (c *Controller) decide(ctx context.Context, filters []string, marker string, sigs *SignatureSet) (string, bool) {
	text, err := c.log.Text(ctx, filters)
	if err != nil {
		c.log.Printf("[retry] could not retrieve log segment: %v", err)
		return "", false
	}
	if idx := strings.LastIndex(text, marker); idx >= 0 {
		text = text[idx+len(marker):]
	}
	return sigs.MatchAny(text)
}

// GetStats gets controller statistics
func (c *Controller) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return Stats{
		TotalAttempts:   c.stats.TotalAttempts,
		TotalRetries:    c.stats.TotalRetries,
		TotalSuccesses:  c.stats.TotalSuccesses,
		TotalFailures:   c.stats.TotalFailures,
		TotalSuppressed: c.stats.TotalSuppressed,
		LastRetryTime:   c.stats.LastRetryTime,
		TotalRetryDelay: c.stats.TotalRetryDelay,
		// don't copy mutex
	}
}

// ResetStats resets statistics
func (c *Controller) ResetStats() {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()

	c.stats.TotalAttempts = 0
	c.stats.TotalRetries = 0
	c.stats.TotalSuccesses = 0
	c.stats.TotalFailures = 0
	c.stats.TotalSuppressed = 0
	c.stats.LastRetryTime = time.Time{}
	c.stats.TotalRetryDelay = 0
}

// updateStats updates statistics (thread-safe)
func (c *Controller) updateStats(fn func(*Stats)) {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	fn(&c.stats)
}
