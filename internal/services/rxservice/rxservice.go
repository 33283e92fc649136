// Package rxservice is the Argos RX service glue: it owns the AOP
// download window, accumulates and decodes allcast bursts, and merges
// them into the pass-predict database, translated from ArgosRxService
// in argos_rx_service.cpp.
package rxservice

import (
	"log/slog"
	"time"

	"github.com/pelagos-tag/tracker-core/internal/argos/passpredict"
	"github.com/pelagos-tag/tracker-core/internal/argos/rxsched"
	"github.com/pelagos-tag/tracker-core/internal/bus"
	"github.com/pelagos-tag/tracker-core/internal/clock"
	"github.com/pelagos-tag/tracker-core/internal/config"
	"github.com/pelagos-tag/tracker-core/internal/model"
	"github.com/pelagos-tag/tracker-core/internal/radio"
	"github.com/pelagos-tag/tracker-core/internal/sched"
)

// State is the RX window state machine from spec.md §4.8:
//
//	Idle -> Scheduled -> Receiving -> Idle
//	            ^               v
//	            +---- Deferred <+  (on underwater event)
type State int

const (
	StateIdle State = iota
	StateScheduled
	StateReceiving
	StateDeferred
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScheduled:
		return "SCHEDULED"
	case StateReceiving:
		return "RECEIVING"
	case StateDeferred:
		return "DEFERRED"
	default:
		return "UNKNOWN"
	}
}

const rxPriority = 10

// Service is the RX service. Create with New, then call Init once the
// radio, store and event bus are ready.
type Service struct {
	clock   clock.Clock
	sched   *sched.Scheduler
	radio   radio.Device
	store   *config.Store
	bus     *bus.Bus
	log     *slog.Logger
	decoder *passpredict.Decoder

	state          State
	scheduleHandle sched.Handle
	timeoutHandle  sched.Handle

	submerged    bool
	haveLocation bool
	lastLon      float64
	lastLat      float64

	pendingDuration time.Duration
	windowStart     time.Time
	recvBuf         []byte
}

// New creates an RX service wired to the given collaborators.
func New(c clock.Clock, s *sched.Scheduler, rad radio.Device, store *config.Store, eventBus *bus.Bus, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		clock:   c,
		sched:   s,
		radio:   rad,
		store:   store,
		bus:     eventBus,
		log:     log,
		decoder: passpredict.NewDecoder(),
		state:   StateIdle,
	}
}

// Init subscribes to radio and bus events. Call once at startup; the
// first RX window can only be scheduled once a GPS fix supplies a
// location, per scheduleNext's guard.
func (svc *Service) Init() {
	svc.radio.Subscribe(svc)
	svc.bus.Subscribe(svc.handleServiceEvent)
}

// HandleRadioEvent implements radio.Listener.
func (svc *Service) HandleRadioEvent(e radio.Event) {
	switch ev := e.(type) {
	case radio.RxPacket:
		svc.onRxPacket(ev)
	case radio.DeviceError:
		svc.onDeviceError()
	}
}

func (svc *Service) handleServiceEvent(e bus.ServiceEvent) {
	if e.Type != bus.EventLogUpdated {
		return
	}
	switch e.Source {
	case bus.ServiceGNSS:
		if fix, ok := e.Data.(model.Fix); ok {
			svc.onFixUpdated(fix)
		}
	case bus.ServiceUWDetect:
		if submerged, ok := e.Data.(bool); ok {
			svc.onUnderwaterChanged(submerged)
		}
	}
}

// onFixUpdated records the latest location and recomputes the RX
// window against it, unless a window is already open.
func (svc *Service) onFixUpdated(fix model.Fix) {
	svc.lastLon, svc.lastLat = fix.LongitudeDegrees, fix.LatitudeDegrees
	svc.haveLocation = true
	if svc.state != StateReceiving {
		svc.scheduleNext()
	}
}

func (svc *Service) onUnderwaterChanged(submerged bool) {
	wasSubmerged := svc.submerged
	svc.submerged = submerged
	if submerged && !wasSubmerged {
		if svc.state == StateReceiving {
			_ = svc.radio.StopReceive()
			svc.sched.Cancel(svc.timeoutHandle)
			svc.commitWindow()
		}
		svc.sched.Cancel(svc.scheduleHandle)
		svc.state = StateDeferred
		return
	}
	if !submerged && wasSubmerged {
		svc.state = StateIdle
		svc.scheduleNext()
	}
}

// scheduleNext recomputes the next RX window from the pass-predict
// database and the last known location, and queues it on the
// scheduler, cancelling any previously pending one. No window is
// scheduled until a location is known, or while submerged.
func (svc *Service) scheduleNext() {
	svc.sched.Cancel(svc.scheduleHandle)
	if svc.submerged || !svc.haveLocation {
		svc.state = StateIdle
		return
	}

	cfg := svc.store.GetRXWindowConfig()
	win, ok := rxsched.Schedule(rxsched.Input{
		Database:            svc.store.ReadPassPredict(),
		Now:                 svc.clock.Now(),
		LastAOPUpdate:        svc.store.AOPDate(),
		LastLongitude:        svc.lastLon,
		LastLatitude:         svc.lastLat,
		AOPUpdatePeriodDays:  cfg.AOPUpdatePeriodDays,
		MinElevationDeg:      cfg.MinElevationDeg,
		MinDuration:          cfg.MinDuration,
		MaxWindow:            cfg.MaxWindow,
		ComputationStep:      cfg.ComputationStep,
		Submerged:            svc.submerged,
		DryTimeBeforeTX:      cfg.DryTimeBeforeTX,
	})
	if !ok {
		svc.state = StateIdle
		return
	}

	svc.pendingDuration = win.Duration
	svc.state = StateScheduled
	svc.scheduleHandle = svc.sched.ScheduleAfter(uint64(win.Delay.Milliseconds()), rxPriority, svc.fireWindow)
}

// fireWindow runs when a queued RX window comes due: it starts the
// receiver and arms a cancellation timeout for the window's duration.
func (svc *Service) fireWindow() {
	if svc.submerged {
		return
	}
	if err := svc.radio.StartReceive(model.ArticA3); err != nil {
		svc.log.Warn("rxservice: start receive rejected, radio busy", "err", err)
		svc.scheduleNext()
		return
	}
	svc.state = StateReceiving
	svc.windowStart = svc.clock.Now()
	svc.recvBuf = svc.recvBuf[:0]
	svc.timeoutHandle = svc.sched.ScheduleAfter(uint64(svc.pendingDuration.Milliseconds()), rxPriority, svc.onWindowTimeout)
}

func (svc *Service) onWindowTimeout() {
	_ = svc.radio.StopReceive()
	svc.commitWindow()
	svc.state = StateIdle
	svc.scheduleNext()
}

// onRxPacket accumulates one received frame's payload. Packets outside
// an open window are stray and ignored.
func (svc *Service) onRxPacket(p radio.RxPacket) {
	if svc.state != StateReceiving {
		return
	}
	svc.recvBuf = append(svc.recvBuf, p.Packet...)
	svc.store.AdvanceRXCounter()
}

// commitWindow accounts the elapsed receive time and, if any packets
// were accumulated, decodes and merges them into the pass-predict
// database, persisting ARGOS_AOP_DATE and the counters on a committed
// merge.
func (svc *Service) commitWindow() {
	if elapsed := svc.clock.Now().Sub(svc.windowStart); elapsed > 0 {
		svc.store.AddReceiveTimeMS(uint32(elapsed.Milliseconds()))
	}

	buf := svc.recvBuf
	svc.recvBuf = nil
	if len(buf) == 0 {
		if err := svc.store.SaveParams(); err != nil {
			svc.log.Error("rxservice: save_params failed after RX window", "err", err)
		}
		return
	}

	decoded, err := svc.decoder.Decode(buf)
	if err != nil {
		svc.log.Warn("rxservice: failed to decode allcast burst", "err", err)
		if serr := svc.store.SaveParams(); serr != nil {
			svc.log.Error("rxservice: save_params failed after RX window", "err", serr)
		}
		return
	}

	result := passpredict.Merge(svc.store.ReadPassPredict(), decoded)
	if result.Committed {
		if err := svc.store.WritePassPredict(result.Database); err != nil {
			svc.log.Error("rxservice: failed to persist pass-predict database", "err", err)
		} else {
			svc.store.SetAOPDate(svc.clock.Now())
		}
	}
	if err := svc.store.SaveParams(); err != nil {
		svc.log.Error("rxservice: save_params failed after RX merge", "err", err)
	}
}

func (svc *Service) onDeviceError() {
	svc.log.Warn("rxservice: recoverable radio device error, treating as window complete")
	if svc.state == StateReceiving {
		svc.sched.Cancel(svc.timeoutHandle)
		svc.commitWindow()
	}
	svc.state = StateIdle
	svc.scheduleNext()
}

// State returns the service's current state, for diagnostics and tests.
func (svc *Service) State() State {
	return svc.state
}
