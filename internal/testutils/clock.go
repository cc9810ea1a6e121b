package testutils

import (
	"testing"
	"time"

	"github.com/coder/quartz"
)

// NewMockClock creates a mock clock for testing
func NewMockClock(t testing.TB) *quartz.Mock {
	return quartz.NewMock(t)
}

// ClockWrapper wraps quartz.Mock to implement our Clock interface
type ClockWrapper struct {
	*quartz.Mock
}

// NewClockWrapper creates a new ClockWrapper
func NewClockWrapper(mock *quartz.Mock) *ClockWrapper {
	return &ClockWrapper{Mock: mock}
}

// After returns a channel that delivers the current time after the duration
func (c *ClockWrapper) After(d time.Duration) <-chan time.Time {
	timer := c.Mock.NewTimer(d)
	return timer.C
}

// Sleep blocks for the given duration
func (c *ClockWrapper) Sleep(d time.Duration) {
	timer := c.Mock.NewTimer(d)
	<-timer.C
}

// Now returns the current time
func (c *ClockWrapper) Now() time.Time {
	return c.Mock.Now()
}

// Since returns the time elapsed since t
func (c *ClockWrapper) Since(t time.Time) time.Duration {
	return c.Mock.Since(t)
}
