package clock

import (
	"sync"
	"time"
)

// SteppingClock is a Clock that returns a given series of time values, one
// at a time. It's useful in a test case that makes a series of calls to get
// the current time and needs each one to be different.
type SteppingClock struct {
	mutex    sync.Mutex
	nextTime int
	times    []time.Time
}

var _ Clock = (*SteppingClock)(nil)

// NewSteppingClock creates a SteppingClock that returns each of times in
// turn; once exhausted, it keeps returning the final value.
func NewSteppingClock(times []time.Time) *SteppingClock {
	return &SteppingClock{times: times}
}

// SetTimes replaces the list of times to return.
func (c *SteppingClock) SetTimes(times []time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.times = times
	c.nextTime = 0
}

// Now returns the next time value from the list. If the list is empty, it
// returns the Unix epoch. Once the list is exhausted, it keeps returning the
// last value.
func (c *SteppingClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.times) == 0 {
		return time.Unix(0, 0).UTC()
	}
	if c.nextTime >= len(c.times) {
		return c.times[len(c.times)-1]
	}
	t := c.times[c.nextTime]
	c.nextTime++
	return t
}

// UnixSeconds returns Now() as Unix seconds.
func (c *SteppingClock) UnixSeconds() int64 {
	return c.Now().Unix()
}

// Millis returns Now() as milliseconds since the Unix epoch.
func (c *SteppingClock) Millis() uint64 {
	return uint64(c.Now().UnixMilli())
}
