// Package types provides core clock abstractions for time mocking
package types

import (
	"time"
)

// Clock provides an abstraction over time operations for testing
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// After returns a channel that delivers the current time after the duration
	After(d time.Duration) <-chan time.Time
	// Sleep blocks for the given duration
	Sleep(d time.Duration)
	// Since returns the time elapsed since t
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using real time operations
type RealClock struct{}

// NewRealClock creates a new real clock
func NewRealClock() Clock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (c *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
