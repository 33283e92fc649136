// Package model holds the data types shared across the core's packages -
// GPS fixes, AOP records, zones and the small enums that describe them -
// so that internal/depthpile, internal/argos/packet,
// internal/argos/passpredict, internal/argos/txsched,
// internal/argos/rxsched and internal/config can all refer to the same
// shapes without importing one another.
package model

import "time"

// FixType is the GNSS receiver's fix quality at the time a GPSLogEntry
// was captured.
type FixType int

const (
	FixNone FixType = iota
	Fix2D
	Fix3D
)

// Fix is a timestamped GPS log entry, as produced by the GNSS driver and
// consumed by the TX service and the configuration store's profile
// selection.
type Fix struct {
	Time              time.Time
	LongitudeDegrees  float64
	LatitudeDegrees   float64
	HeightAboveMSLMM  int32
	GroundSpeedMMS    int32
	FixType           FixType
	HorizontalAccMM   uint32
	HDOP              uint16
	BatteryMV         uint16
	ScheduledForTime  time.Time
	HeadingDegrees    float64
}

// Valid reports whether the fix carries a usable 2D or 3D position.
func (f Fix) Valid() bool {
	return f.FixType != FixNone
}
