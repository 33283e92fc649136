// Package clock provides a clock service as an alternative to calling the
// standard time package directly. Production code and test code stay
// plug-compatible: in production Now() and Millis() track the real system
// clock; in test they can be driven by hand, which is essential for
// exercising scheduling logic whose behaviour depends on exact tick and
// RTC-second values.
//
// Known implementations:
//   - SystemClock, whose Now()/Millis() track the real system clock.
//   - SteppingClock, which returns a given series of time values one at a
//     time (useful for a test that makes several calls to get the current
//     time and expects a different answer each time).
//   - FakeTicker, which holds an explicit millisecond/second counter that a
//     test advances directly, mirroring the firmware's fake RTC/tick fakes.
package clock

import "time"

// Clock is the minimal time source the core depends on.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// UnixSeconds returns the current time as a hardware-RTC-style
	// seconds-since-epoch value.
	UnixSeconds() int64

	// Millis returns a monotonically-increasing millisecond counter, as
	// supplied in the firmware by a hardware timer driver. It need not
	// relate to UnixSeconds() by any fixed offset.
	Millis() uint64
}
