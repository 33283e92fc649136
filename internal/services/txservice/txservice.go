// Package txservice is the Argos TX service glue: it owns the depth
// pile, drives the TX scheduler, builds packets and talks to the radio,
// translated from ArgosTxService in argos_tx_service.hpp.
package txservice

import (
	"log/slog"

	"github.com/pelagos-tag/tracker-core/internal/argos/packet"
	"github.com/pelagos-tag/tracker-core/internal/argos/txsched"
	"github.com/pelagos-tag/tracker-core/internal/bus"
	"github.com/pelagos-tag/tracker-core/internal/clock"
	"github.com/pelagos-tag/tracker-core/internal/config"
	"github.com/pelagos-tag/tracker-core/internal/depthpile"
	"github.com/pelagos-tag/tracker-core/internal/model"
	"github.com/pelagos-tag/tracker-core/internal/radio"
	"github.com/pelagos-tag/tracker-core/internal/sched"
)

// State is the TX attempt state machine from spec.md §4.7:
//
//	Idle -> Scheduled -> Transmitting -> TxComplete -> Idle
//	            ^                   v
//	            +------ Deferred <--+  (on underwater event)
type State int

const (
	StateIdle State = iota
	StateScheduled
	StateTransmitting
	StateDeferred
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScheduled:
		return "SCHEDULED"
	case StateTransmitting:
		return "TRANSMITTING"
	case StateDeferred:
		return "DEFERRED"
	default:
		return "UNKNOWN"
	}
}

const txPriority = 10

// Service is the TX service. Create with New, then call Init once the
// radio, store and depth pile are ready.
type Service struct {
	clock clock.Clock
	sched *sched.Scheduler
	radio radio.Device
	store *config.Store
	pile  *depthpile.Pile
	bus   *bus.Bus
	log   *slog.Logger

	txsched *txsched.Scheduler

	state          State
	scheduleHandle sched.Handle
	scheduleMode   model.ArticMode

	submerged    bool
	haveFirstFix bool

	certEnabled bool
	certPayload []byte
	certHandle  sched.Handle
}

// New creates a TX service wired to the given collaborators. jitterSeed
// seeds the legacy/duty-cycle scheduler's PRNG.
func New(c clock.Clock, s *sched.Scheduler, rad radio.Device, store *config.Store, pile *depthpile.Pile, eventBus *bus.Bus, log *slog.Logger, jitterSeed int64) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		clock:   c,
		sched:   s,
		radio:   rad,
		store:   store,
		pile:    pile,
		bus:     eventBus,
		log:     log,
		txsched: txsched.New(jitterSeed),
		state:   StateIdle,
	}
}

// Init configures the radio for the current effective profile and
// subscribes to radio and bus events. Call once at startup.
func (svc *Service) Init() {
	cfg := svc.store.GetArgosConfiguration()
	svc.applyRadioConfig(cfg)
	svc.radio.Subscribe(svc)
	svc.bus.Subscribe(svc.handleServiceEvent)
	svc.scheduleNext()
}

func (svc *Service) applyRadioConfig(cfg config.ArgosConfig) {
	svc.radio.SetTXPower(cfg.Power)
	svc.radio.SetDeviceIdentifier(uint(cfg.HexID))
}

// HandleRadioEvent implements radio.Listener.
func (svc *Service) HandleRadioEvent(e radio.Event) {
	switch e.(type) {
	case radio.TxComplete:
		svc.onTxComplete()
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

// onFixUpdated stores the fix in the depth pile with the configured
// burst count, and - if time-sync bursting is enabled and this is the
// first fix this service has ever seen - transmits it immediately as a
// short packet regardless of depth-pile depth, per §4.7.
func (svc *Service) onFixUpdated(fix model.Fix) {
	svc.store.SetLastFix(fix)
	svc.pile.Store(fix, svc.store.NtryPerMessage())

	first := !svc.haveFirstFix
	svc.haveFirstFix = true

	if first && svc.store.TimeSyncBurstEnabled() && svc.state != StateTransmitting {
		svc.transmitNow(fix)
	}
}

func (svc *Service) onUnderwaterChanged(submerged bool) {
	wasSubmerged := svc.submerged
	svc.submerged = submerged
	if submerged && !wasSubmerged {
		if svc.state == StateTransmitting {
			_ = svc.radio.StopSend()
		}
		svc.sched.Cancel(svc.scheduleHandle)
		svc.state = StateDeferred
		return
	}
	if !submerged && wasSubmerged {
		svc.txsched.SetEarliestSchedule(uint64(svc.clock.Millis()) + uint64(svc.store.GetRXWindowConfig().DryTimeBeforeTX.Milliseconds()))
		svc.state = StateIdle
		svc.scheduleNext()
	}
}

// scheduleNext computes the next TX due time from the effective
// configuration's mode and queues it on the scheduler, cancelling any
// previously pending schedule.
func (svc *Service) scheduleNext() {
	svc.sched.Cancel(svc.scheduleHandle)
	if svc.submerged || svc.certEnabled {
		return
	}

	cfg := svc.store.GetArgosConfiguration()
	nowMS := svc.clock.Millis()

	var delayMS uint64
	switch cfg.Mode {
	case model.ArgosModeOff:
		return
	case model.ArgosModeDutyCycle:
		delayMS = svc.txsched.ScheduleDutyCycle(uint64(cfg.TXPeriodSeconds)*1000, cfg.DutyCycleMask, cfg.JitterEnabled, nowMS)
		svc.scheduleMode = model.ArticA2
	case model.ArgosModePassPrediction:
		db := svc.store.ReadPassPredict()
		pp := svc.store.GetRXWindowConfig()
		ms, mode, ok := svc.txsched.SchedulePrepass(db, txsched.PrepassParams{
			MinElevationDeg: pp.MinElevationDeg,
			MinDuration:     pp.MinDuration,
			ComputationStep: pp.ComputationStep,
		}, svc.clock.Now())
		if !ok {
			delayMS = svc.txsched.ScheduleLegacy(uint64(cfg.TXPeriodSeconds)*1000, cfg.JitterEnabled, nowMS)
			svc.scheduleMode = model.ArticA2
		} else {
			delayMS = ms
			svc.scheduleMode = mode
		}
	default: // ArgosModeLegacy
		delayMS = svc.txsched.ScheduleLegacy(uint64(cfg.TXPeriodSeconds)*1000, cfg.JitterEnabled, nowMS)
		svc.scheduleMode = model.ArticA2
	}

	svc.state = StateScheduled
	svc.scheduleHandle = svc.sched.ScheduleAfter(delayMS, txPriority, svc.fireSchedule)
}

// fireSchedule runs when a queued TX comes due: it rebuilds the packet
// from the current effective profile and depth pile, and requests the
// radio send it. A satellite outside the configured zone (in-zone
// exclusion) still transmits, but with the OUT_OF_ZONE flag set.
func (svc *Service) fireSchedule() {
	if svc.submerged || svc.certEnabled {
		return
	}

	fixes := svc.pile.Retrieve(uint(svc.store.GetArgosConfiguration().DepthPileDepth), depthpile.DefaultMaxMessages)
	if len(fixes) == 0 {
		// Nothing to send this epoch: still commit the computed
		// schedule as the new baseline, or nextPeriodic would keep
		// returning "now" forever and this task would refire every
		// RunDue call instead of waiting out the period.
		svc.txsched.NotifyTXComplete()
		svc.state = StateIdle
		svc.scheduleNext()
		return
	}

	outOfZone := svc.store.IsInZoneExclusion()
	var payload []byte
	var err error
	if len(fixes) == 1 {
		payload = packet.BuildShort(fixes[0], outOfZone, false, svc.store.TXCounter())
	} else {
		payload, err = packet.BuildLong(fixes, outOfZone, false, svc.store.TXCounter(), packet.DeltaTimeNoHistory)
		if err != nil {
			svc.log.Error("txservice: failed to build long packet", "err", err)
			svc.txsched.NotifyTXComplete()
			svc.state = StateIdle
			svc.scheduleNext()
			return
		}
	}

	bits := packet.ShortPacketBits
	if len(fixes) > 1 {
		bits = packet.LongPacketBits
	}

	svc.state = StateTransmitting
	if err := svc.radio.Send(svc.scheduleMode, payload, bits); err != nil {
		svc.log.Warn("txservice: send rejected, radio busy", "err", err)
		svc.txsched.NotifyTXComplete()
		svc.state = StateIdle
		svc.scheduleNext()
	}
}

// transmitNow sends fix as a standalone short packet, bypassing the
// scheduler, used for the time-sync burst on the first fix after
// startup.
func (svc *Service) transmitNow(fix model.Fix) {
	outOfZone := svc.store.IsInZoneExclusion()
	payload := packet.BuildShort(fix, outOfZone, false, svc.store.TXCounter())
	svc.state = StateTransmitting
	if err := svc.radio.Send(model.ArticA2, payload, packet.ShortPacketBits); err != nil {
		svc.log.Warn("txservice: time-sync burst send rejected", "err", err)
		svc.state = StateIdle
	}
}

func (svc *Service) onTxComplete() {
	svc.store.AdvanceTXCounter()
	if err := svc.store.SaveParams(); err != nil {
		svc.log.Error("txservice: save_params failed after TX", "err", err)
	}
	svc.txsched.NotifyTXComplete()
	svc.state = StateIdle
	if !svc.certEnabled {
		svc.scheduleNext()
	}
}

func (svc *Service) onDeviceError() {
	svc.log.Warn("txservice: recoverable radio device error, treating as TX complete")
	svc.state = StateIdle
	svc.scheduleNext()
}

// EnableCertificationMode bypasses the scheduler: payload is
// retransmitted every CERT_TX_REPETITION seconds (floor 2s) until
// DisableCertificationMode is called. It requires the radio to be free
// of any pending TX/RX.
func (svc *Service) EnableCertificationMode(payload []byte) {
	svc.sched.Cancel(svc.scheduleHandle)
	svc.certEnabled = true
	svc.certPayload = payload
	svc.certFire()
}

func (svc *Service) certFire() {
	if !svc.certEnabled {
		return
	}
	frame, err := packet.BuildCertification(svc.certPayload, packet.ShortPacketBits)
	if err == nil {
		_ = svc.radio.Send(model.ArticA2, frame, packet.ShortPacketBits)
	}
	repetition := svc.store.CertTxRepetition()
	svc.certHandle = svc.sched.ScheduleAfter(uint64(repetition.Milliseconds()), txPriority, svc.certFire)
}

// DisableCertificationMode stops certification transmissions and
// resumes normal scheduling.
func (svc *Service) DisableCertificationMode() {
	svc.certEnabled = false
	svc.sched.Cancel(svc.certHandle)
	svc.state = StateIdle
	svc.scheduleNext()
}

// State returns the service's current state, for diagnostics and tests.
func (svc *Service) State() State {
	return svc.state
}
