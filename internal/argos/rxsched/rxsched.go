// Package rxsched computes the next Argos RX window from the
// pass-predict database, following ArgosRxScheduler's policy in
// argos_rx_service.{hpp,cpp}.
package rxsched

import (
	"time"

	"github.com/pelagos-tag/tracker-core/internal/argos/prepass"
	"github.com/pelagos-tag/tracker-core/internal/model"
)

const secondsPerDay = 86400

// Window is a scheduled RX window: wait Delay, then listen for
// Duration in mode A3.
type Window struct {
	Delay    time.Duration
	Duration time.Duration
}

// Input bundles everything the RX scheduling policy reads.
type Input struct {
	Database        model.PassPredict
	Now             time.Time
	LastAOPUpdate   time.Time
	LastLongitude   float64
	LastLatitude    float64
	AOPUpdatePeriodDays int
	MinElevationDeg float64
	MinDuration     time.Duration
	MaxWindow       time.Duration
	ComputationStep time.Duration
	Submerged       bool
	DryTimeBeforeTX time.Duration
}

// Schedule implements §4.6's policy: earliest = last AOP update plus
// the configured update period, clamped to now (and delayed further by
// DryTimeBeforeTX while submerged); search the following day for the
// first pass meeting the elevation/duration thresholds on a
// downlink-on satellite; return the delay until it starts and a
// timeout capped at MaxWindow. ok is false when no qualifying window
// exists in the search horizon.
func Schedule(in Input) (w Window, ok bool) {
	earliest := in.LastAOPUpdate.Add(time.Duration(in.AOPUpdatePeriodDays) * secondsPerDay * time.Second)
	if earliest.Before(in.Now) {
		earliest = in.Now
	}
	if in.Submerged {
		earliest = earliest.Add(in.DryTimeBeforeTX)
	}
	end := earliest.Add(24 * time.Hour)

	step := in.ComputationStep
	if step <= 0 {
		step = 30 * time.Second
	}

	var best *prepass.Pass
	for _, rec := range in.Database.Records {
		if rec.Bulletin.IsZero() || rec.DownlinkStatus == model.DownlinkOff {
			continue
		}
		passes := prepass.ComputePasses(rec, in.LastLongitude, in.LastLatitude, earliest, end, in.MinElevationDeg, int(step.Seconds()))
		for i := range passes {
			p := passes[i]
			if p.Duration < in.MinDuration {
				continue
			}
			if best == nil || p.AOS.Before(best.AOS) {
				best = &p
			}
		}
	}
	if best == nil {
		return Window{}, false
	}

	duration := best.Duration
	if in.MaxWindow > 0 && duration > in.MaxWindow {
		duration = in.MaxWindow
	}
	delay := best.AOS.Sub(in.Now)
	if delay < 0 {
		delay = 0
	}
	return Window{Delay: delay, Duration: duration}, true
}
