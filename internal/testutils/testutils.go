// Package testutils provides in-memory collaborator fakes for tests
package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeLog is an in-memory append-only log stream. Text ignores the name
// filters and returns the whole accumulated text, which is what a single
// retry unit sees in practice.
type FakeLog struct {
	mu    sync.Mutex
	lines []string
}

// NewFakeLog creates an empty fake log
func NewFakeLog() *FakeLog {
	return &FakeLog{}
}

// Printf appends a line to the log
func (l *FakeLog) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// Text returns the accumulated log text
func (l *FakeLog) Text(ctx context.Context, nameFilters []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n"), nil
}

// Lines returns a copy of the logged lines
func (l *FakeLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// InlineAllocator runs the body in place, recording every label it was
// asked to allocate.
type InlineAllocator struct {
	mu     sync.Mutex
	labels []string

	// AllocErr, when set, is returned instead of running the body,
	// simulating an infrastructure failure.
	AllocErr error
}

// WithNode runs body inline
func (a *InlineAllocator) WithNode(ctx context.Context, label string, body func(ctx context.Context) error) error {
	a.mu.Lock()
	a.labels = append(a.labels, label)
	err := a.AllocErr
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return body(ctx)
}

// Labels returns the labels allocated so far
func (a *InlineAllocator) Labels() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.labels))
	copy(out, a.labels)
	return out
}
