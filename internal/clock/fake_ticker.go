package clock

import (
	"sync"
	"time"
)

// FakeTicker is a Clock whose millisecond tick counter and RTC second
// counter are set directly by a test, mirroring the firmware's
// fake_timer/fake_rtc test doubles. Unlike SteppingClock it does not
// advance automatically; a test calls Set or Advance between assertions.
type FakeTicker struct {
	mutex  sync.Mutex
	millis uint64
	secs   int64
}

var _ Clock = (*FakeTicker)(nil)

// NewFakeTicker creates a FakeTicker starting at the given RTC second value.
func NewFakeTicker(rtcSeconds int64) *FakeTicker {
	return &FakeTicker{secs: rtcSeconds, millis: uint64(rtcSeconds) * 1000}
}

// Set pins both the second counter and the millisecond counter.
func (f *FakeTicker) Set(rtcSeconds int64) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.secs = rtcSeconds
	f.millis = uint64(rtcSeconds) * 1000
}

// Advance moves both counters forward by d.
func (f *FakeTicker) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.millis += uint64(d.Milliseconds())
	f.secs += int64(d.Seconds())
}

// Now returns the RTC second counter as a UTC time.
func (f *FakeTicker) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return time.Unix(f.secs, 0).UTC()
}

// UnixSeconds returns the RTC second counter.
func (f *FakeTicker) UnixSeconds() int64 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.secs
}

// Millis returns the millisecond tick counter.
func (f *FakeTicker) Millis() uint64 {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.millis
}
