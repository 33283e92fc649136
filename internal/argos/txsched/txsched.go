// Package txsched computes the next Argos TX epoch for the legacy
// fixed-period, duty-cycle hour-mask and pass-prediction scheduling
// algorithms, a direct Go translation of ArgosTxScheduler in
// argos_tx_service.hpp.
package txsched

import (
	"math/rand"

	"github.com/pelagos-tag/tracker-core/internal/model"
)

// InvalidSchedule is returned when no valid schedule exists (e.g.
// pass-prediction with no location set, or an empty AOP database),
// matching ArgosTxScheduler::INVALID_SCHEDULE ((unsigned int)-1).
const InvalidSchedule uint64 = 1<<64 - 1

const (
	secondsPerHour = 3600
	hoursPerDay    = 24
	dutyCycleFull  = 0xFFFFFF
)

// Scheduler holds the running state ArgosTxScheduler keeps across calls:
// the last confirmed (notified) schedule, and an optional earliest-
// schedule / last-location clamp.
type Scheduler struct {
	lastScheduleMS    *uint64
	currScheduleMS    *uint64
	earliestScheduleMS *uint64
	location           *model.Fix
	rng                *rand.Rand
}

// New creates a Scheduler. seed fixes the jitter generator for
// reproducible tests; production callers should seed from the clock.
func New(seed int64) *Scheduler {
	return &Scheduler{rng: rand.New(rand.NewSource(seed))}
}

// SetEarliestSchedule clamps every future schedule to be no earlier
// than tMS (absolute milliseconds).
func (s *Scheduler) SetEarliestSchedule(tMS uint64) {
	s.earliestScheduleMS = &tMS
}

// SetLastLocation records the most recent fix, used by prepass
// scheduling to compute satellite visibility.
func (s *Scheduler) SetLastLocation(lonDegrees, latDegrees float64) {
	s.location = &model.Fix{LongitudeDegrees: lonDegrees, LatitudeDegrees: latDegrees}
}

// NotifyTXComplete commits the most recently computed schedule as the
// new baseline for future period arithmetic.
func (s *Scheduler) NotifyTXComplete() {
	s.lastScheduleMS = s.currScheduleMS
}

// Reset clears all scheduling state and reseeds the jitter generator.
func (s *Scheduler) Reset(seed int64) {
	s.lastScheduleMS = nil
	s.currScheduleMS = nil
	s.earliestScheduleMS = nil
	s.rng = rand.New(rand.NewSource(seed))
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// nextPeriodic computes the next due time on or after nowMS for a
// fixed-period schedule: on the first ever call it is due immediately;
// thereafter it is the next multiple of periodMS after the last
// confirmed schedule that is not before nowMS, recovering from any
// number of missed periods in one jump rather than one period at a time.
// Either way the result is raised to the earliest-schedule floor if set.
func (s *Scheduler) nextPeriodic(periodMS, nowMS uint64) uint64 {
	if s.lastScheduleMS == nil {
		next := nowMS
		if s.earliestScheduleMS != nil && next < *s.earliestScheduleMS {
			next = *s.earliestScheduleMS
		}
		s.currScheduleMS = &next
		return next
	}
	last := *s.lastScheduleMS
	var next uint64
	if nowMS <= last {
		next = last + periodMS
	} else {
		periods := ceilDiv(nowMS-last, periodMS)
		next = last + periods*periodMS
	}
	if s.earliestScheduleMS != nil && next < *s.earliestScheduleMS {
		next = *s.earliestScheduleMS
	}
	s.currScheduleMS = &next
	return next
}

// ComputeJitter returns a pseudo-random offset in [min, max] ms when
// enabled is true, else 0, matching compute_random_jitter's default
// +/-5000ms bounds.
func (s *Scheduler) ComputeJitter(enabled bool, min, max int) int {
	if !enabled {
		return 0
	}
	return min + s.rng.Intn(max-min+1)
}

// ScheduleLegacy implements the fixed-period TX algorithm: transmit
// every periodMS, recovering any missed periods by jumping forward
// rather than catching up one period at a time. jitterEnabled adds a
// +/-5000ms offset to the returned delay (never negative).
func (s *Scheduler) ScheduleLegacy(periodMS uint64, jitterEnabled bool, nowMS uint64) uint64 {
	next := s.nextPeriodic(periodMS, nowMS)
	return applyJitter(s, next, nowMS, jitterEnabled)
}

func applyJitter(s *Scheduler, next, nowMS uint64, enabled bool) uint64 {
	var delay uint64
	if next <= nowMS {
		delay = 0
	} else {
		delay = next - nowMS
	}
	if !enabled || delay == 0 {
		return delay
	}
	jitter := s.ComputeJitter(true, -5000, 5000)
	signed := int64(delay) + int64(jitter)
	if signed < 0 {
		return 0
	}
	return uint64(signed)
}

// IsInDutyCycle reports whether timeMS's hour-of-day has its bit set in
// mask: bit 23 is hour 0 UTC, bit 0 is hour 23 UTC.
func IsInDutyCycle(timeMS uint64, mask uint32) bool {
	hour := (timeMS / 1000 / secondsPerHour) % hoursPerDay
	bitPos := hoursPerDay - 1 - hour
	return mask&(1<<bitPos) != 0
}

// ScheduleDutyCycle implements the duty-cycle hour-mask algorithm: as
// ScheduleLegacy, but the resulting due time is pushed forward by whole
// periods until it falls in an hour permitted by mask.
func (s *Scheduler) ScheduleDutyCycle(periodMS uint64, mask uint32, jitterEnabled bool, nowMS uint64) uint64 {
	next := s.nextPeriodic(periodMS, nowMS)
	for !IsInDutyCycle(next, mask) {
		next += periodMS
	}
	s.currScheduleMS = &next
	return applyJitter(s, next, nowMS, jitterEnabled)
}
