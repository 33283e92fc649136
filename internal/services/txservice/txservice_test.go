package txservice

import (
	"testing"
	"time"

	"github.com/pelagos-tag/tracker-core/internal/bus"
	"github.com/pelagos-tag/tracker-core/internal/clock"
	"github.com/pelagos-tag/tracker-core/internal/config"
	"github.com/pelagos-tag/tracker-core/internal/depthpile"
	"github.com/pelagos-tag/tracker-core/internal/model"
	"github.com/pelagos-tag/tracker-core/internal/radio/fakeradio"
	"github.com/pelagos-tag/tracker-core/internal/sched"
)

type fakeBattery struct{}

func (fakeBattery) LevelPercent() int { return 90 }
func (fakeBattery) Critical() bool    { return false }

func newHarness(t *testing.T, timeSyncBurst bool) (*Service, *sched.Scheduler, *clock.FakeTicker, *fakeradio.Device, *config.Store) {
	t.Helper()
	c := clock.NewFakeTicker(0)
	sc := sched.New(c)
	rad := fakeradio.New()
	store := config.New(config.NewMemFilesystem(), fakeBattery{})
	if err := store.Init(); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	if err := store.Write(config.ArgosMode, model.ArgosModeLegacy); err != nil {
		t.Fatalf("Write ArgosMode: %v", err)
	}
	if err := store.Write(config.ArgosTxPeriodSeconds, uint32(60)); err != nil {
		t.Fatalf("Write ArgosTxPeriodSeconds: %v", err)
	}
	if err := store.Write(config.TimeSyncBurstEnable, timeSyncBurst); err != nil {
		t.Fatalf("Write TimeSyncBurstEnable: %v", err)
	}
	if err := store.Write(config.ArgosJitterEnable, false); err != nil {
		t.Fatalf("Write ArgosJitterEnable: %v", err)
	}
	pile := depthpile.New(depthpile.DefaultMaxSize)
	b := bus.New()
	svc := New(c, sc, rad, store, pile, b, nil, 1)
	return svc, sc, c, rad, store
}

// The very first schedule a Scheduler ever computes is due immediately
// (nextPeriodic with no prior baseline returns "now"), so Init leaves
// one task pending at deadline 0 until RunDue is called.
func TestInitLeavesAnImmediatelyDueTXPending(t *testing.T) {
	svc, sc, _, rad, _ := newHarness(t, false)
	svc.Init()

	if svc.State() != StateScheduled {
		t.Fatalf("got state %v, want SCHEDULED", svc.State())
	}
	if _, ok := sc.NextDeadlineMS(); !ok {
		t.Fatal("expected a pending TX task after Init")
	}

	// No fix stored yet: the depth pile is empty, so firing the
	// schedule finds nothing to send and simply reschedules.
	sc.RunDue()
	if len(rad.Sent) != 0 {
		t.Errorf("got %d sent frames with an empty depth pile, want 0", len(rad.Sent))
	}
}

func TestFixUpdateWithoutTimeSyncBurstOnlyFillsTheDepthPile(t *testing.T) {
	svc, _, _, rad, _ := newHarness(t, false)
	svc.Init()

	svc.handleServiceEvent(bus.ServiceEvent{
		Source: bus.ServiceGNSS, Type: bus.EventLogUpdated,
		Data: model.Fix{FixType: model.Fix3D, LatitudeDegrees: 10, LongitudeDegrees: 20},
	})
	if len(rad.Sent) != 0 {
		t.Fatalf("got %d sent frames, want 0 (time-sync burst disabled)", len(rad.Sent))
	}
}

func TestTimeSyncBurstTransmitsFirstFixImmediately(t *testing.T) {
	svc, _, _, rad, _ := newHarness(t, true)
	svc.Init()

	svc.handleServiceEvent(bus.ServiceEvent{
		Source: bus.ServiceGNSS, Type: bus.EventLogUpdated,
		Data: model.Fix{FixType: model.Fix3D, LatitudeDegrees: 10, LongitudeDegrees: 20},
	})
	if len(rad.Sent) != 1 {
		t.Fatalf("got %d sent frames, want 1 (time-sync burst)", len(rad.Sent))
	}
	if svc.State() != StateTransmitting {
		t.Fatalf("got state %v, want TRANSMITTING", svc.State())
	}

	svc.handleServiceEvent(bus.ServiceEvent{
		Source: bus.ServiceGNSS, Type: bus.EventLogUpdated,
		Data: model.Fix{FixType: model.Fix3D, LatitudeDegrees: 11, LongitudeDegrees: 21},
	})
	if len(rad.Sent) != 1 {
		t.Errorf("got %d sent frames after a second fix, want 1 (burst only fires once)", len(rad.Sent))
	}
}

func TestTxCompleteAdvancesCounterAndReschedules(t *testing.T) {
	svc, sc, c, rad, store := newHarness(t, false)
	svc.Init()

	svc.handleServiceEvent(bus.ServiceEvent{Source: bus.ServiceGNSS, Type: bus.EventLogUpdated, Data: model.Fix{FixType: model.Fix3D}})
	sc.RunDue() // dispatches the immediately-due first schedule

	if len(rad.Sent) != 1 {
		t.Fatalf("got %d sent frames, want 1", len(rad.Sent))
	}
	before := store.TXCounter()
	rad.SimulateTxComplete()
	if got := store.TXCounter(); got != before+1 {
		t.Errorf("got TX counter %d, want %d", got, before+1)
	}
	if svc.State() != StateScheduled {
		t.Errorf("got state %v after TxComplete, want SCHEDULED", svc.State())
	}

	// The next schedule is now a full period out from the committed
	// baseline, not immediately due.
	if ran := sc.RunDue(); ran != 0 {
		t.Errorf("got %d tasks run before the period elapses, want 0", ran)
	}
	c.Advance(61 * time.Second)
	if ran := sc.RunDue(); ran == 0 {
		t.Error("expected the next period's TX task to fire once due")
	}
}

func TestUnderwaterEventDefersAndSurfacingReschedules(t *testing.T) {
	svc, sc, c, _, _ := newHarness(t, false)
	svc.Init()

	svc.handleServiceEvent(bus.ServiceEvent{Source: bus.ServiceUWDetect, Type: bus.EventLogUpdated, Data: true})
	if svc.State() != StateDeferred {
		t.Fatalf("got state %v while submerged, want DEFERRED", svc.State())
	}
	if _, ok := sc.NextDeadlineMS(); ok {
		t.Error("expected no pending schedule while submerged")
	}

	c.Advance(5 * time.Second)
	svc.handleServiceEvent(bus.ServiceEvent{Source: bus.ServiceUWDetect, Type: bus.EventLogUpdated, Data: false})
	if svc.State() != StateScheduled {
		t.Fatalf("got state %v after surfacing, want SCHEDULED", svc.State())
	}
}

func TestCertificationModeBypassesSchedulerAndRepeats(t *testing.T) {
	svc, sc, c, rad, _ := newHarness(t, false)
	svc.Init()

	svc.EnableCertificationMode([]byte{0xAA, 0xBB})
	if len(rad.Sent) != 1 {
		t.Fatalf("got %d sent frames on enable, want 1", len(rad.Sent))
	}

	c.Advance(11 * time.Second) // past the default 10s CERT_TX_REPETITION
	if ran := sc.RunDue(); ran == 0 {
		t.Fatal("expected the certification repeat task to fire")
	}
	if len(rad.Sent) != 2 {
		t.Errorf("got %d sent frames after one repetition, want 2", len(rad.Sent))
	}

	svc.DisableCertificationMode()
	if svc.State() != StateScheduled {
		t.Errorf("got state %v after disabling certification mode, want SCHEDULED", svc.State())
	}
}
