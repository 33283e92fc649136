package txsched

import (
	"time"

	"github.com/pelagos-tag/tracker-core/internal/argos/prepass"
	"github.com/pelagos-tag/tracker-core/internal/model"
)

// PrepassParams bundles the pass-prediction geometry parameters the
// configuration store exposes (PP_MIN_ELEVATION, PP_MAX_ELEVATION,
// PP_MIN_DURATION, PP_MAX_PASSES, PP_COMP_STEP); PP_LINEAR_MARGIN is
// not consulted here since ComputeAllPasses already scans every
// candidate window rather than extrapolating from a single sample.
type PrepassParams struct {
	MinElevationDeg float64
	MaxElevationDeg float64
	MinDuration     time.Duration
	MaxPasses       int
	ComputationStep time.Duration
}

// SchedulePrepass implements the pass-prediction TX algorithm from
// spec.md §4.5: search the window starting at max(last TX, now,
// earliest-schedule) for the next visibility window over db using the
// scheduler's last known location, within the next 24 hours. It returns
// the delay in milliseconds from now and A3 (Argos digital mode), or
// InvalidSchedule/A2/false if no location has been set or db holds no
// usable orbits, or no qualifying window exists.
func (s *Scheduler) SchedulePrepass(db model.PassPredict, params PrepassParams, now time.Time) (delayMS uint64, mode model.ArticMode, ok bool) {
	if s.location == nil || len(db.Records) == 0 {
		return InvalidSchedule, model.ArticA2, false
	}

	start := now
	if s.lastScheduleMS != nil {
		if lastTX := time.UnixMilli(int64(*s.lastScheduleMS)); lastTX.After(start) {
			start = lastTX
		}
	}
	if s.earliestScheduleMS != nil {
		if earliest := time.UnixMilli(int64(*s.earliestScheduleMS)); earliest.After(start) {
			start = earliest
		}
	}
	end := start.Add(24 * time.Hour)

	step := params.ComputationStep
	if step <= 0 {
		step = 30 * time.Second
	}

	maxPasses := params.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 10
	}

	passes := prepass.ComputeAllPasses(db, s.location.LongitudeDegrees, s.location.LatitudeDegrees, start, end, params.MinElevationDeg, int(step.Seconds()))
	for i, p := range passes {
		if i >= maxPasses {
			break
		}
		if p.Duration < params.MinDuration {
			continue
		}
		if params.MaxElevationDeg > 0 && p.MaxElevDeg > params.MaxElevationDeg {
			continue
		}
		deadline := uint64(p.AOS.UnixMilli())
		s.currScheduleMS = &deadline
		var delay uint64
		if p.AOS.After(now) {
			delay = uint64(p.AOS.Sub(now).Milliseconds())
		}
		return delay, model.ArticA3, true
	}
	return InvalidSchedule, model.ArticA2, false
}
