package rxservice

import (
	"testing"
	"time"

	"github.com/pelagos-tag/tracker-core/internal/argos/prepass"
	"github.com/pelagos-tag/tracker-core/internal/bus"
	"github.com/pelagos-tag/tracker-core/internal/clock"
	"github.com/pelagos-tag/tracker-core/internal/config"
	"github.com/pelagos-tag/tracker-core/internal/model"
	"github.com/pelagos-tag/tracker-core/internal/radio/fakeradio"
	"github.com/pelagos-tag/tracker-core/internal/sched"
)

type fakeBattery struct{}

func (fakeBattery) LevelPercent() int { return 90 }
func (fakeBattery) Critical() bool    { return false }

func downlinkOnRecord() model.AOPRecord {
	return model.AOPRecord{
		SatHexID:        1,
		DownlinkStatus:  model.DownlinkOnWithA3,
		Bulletin:        model.BulletinTime{Year: 2026, Month: 1, Day: 1},
		SemiMajorAxisKM: 7200,
		InclinationDeg:  98.7,
		OrbitPeriodMin:  101,
	}
}

// newHarness wires a Service against a fake clock seated epoch-relative
// to rec's bulletin time, and a store whose RX window parameters allow
// a window to be found within a couple of hours either side of epoch.
func newHarness(t *testing.T, rec model.AOPRecord, startOffset time.Duration) (*Service, *sched.Scheduler, *clock.FakeTicker, *fakeradio.Device, *config.Store) {
	t.Helper()
	epoch := rec.Bulletin.Time()
	now := epoch.Add(startOffset)

	c := clock.NewFakeTicker(now.Unix())
	sc := sched.New(c)
	rad := fakeradio.New()
	store := config.New(config.NewMemFilesystem(), fakeBattery{})
	if err := store.Init(); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	if err := store.Write(config.ArgosRxAopUpdatePeriodDays, uint32(1)); err != nil {
		t.Fatalf("Write ArgosRxAopUpdatePeriodDays: %v", err)
	}
	if err := store.Write(config.PrepassMinElevationDeg, float64(5)); err != nil {
		t.Fatalf("Write PrepassMinElevationDeg: %v", err)
	}
	if err := store.Write(config.PrepassMinDurationSeconds, uint32(0)); err != nil {
		t.Fatalf("Write PrepassMinDurationSeconds: %v", err)
	}
	if err := store.WritePassPredict(model.PassPredict{Records: []model.AOPRecord{rec}}); err != nil {
		t.Fatalf("WritePassPredict: %v", err)
	}
	store.SetAOPDate(epoch.Add(-48 * time.Hour))

	b := bus.New()
	svc := New(c, sc, rad, store, b, nil)
	return svc, sc, c, rad, store
}

func TestInitWithoutLocationSchedulesNothing(t *testing.T) {
	svc, sc, _, _, _ := newHarness(t, downlinkOnRecord(), -2*time.Hour)
	svc.Init()

	if svc.State() != StateIdle {
		t.Fatalf("got state %v, want IDLE before any fix is known", svc.State())
	}
	if _, ok := sc.NextDeadlineMS(); ok {
		t.Error("expected no pending RX window without a location")
	}
}

func TestFixUpdateSchedulesAWindowOverAVisibleSatellite(t *testing.T) {
	rec := downlinkOnRecord()
	svc, sc, _, _, _ := newHarness(t, rec, -2*time.Hour)
	svc.Init()

	lon, lat, _ := prepass.SubSatellitePoint(rec, rec.Bulletin.Time())
	svc.handleServiceEvent(bus.ServiceEvent{
		Source: bus.ServiceGNSS, Type: bus.EventLogUpdated,
		Data: model.Fix{FixType: model.Fix3D, LongitudeDegrees: lon, LatitudeDegrees: lat},
	})

	if svc.State() != StateScheduled {
		t.Fatalf("got state %v, want SCHEDULED", svc.State())
	}
	if _, ok := sc.NextDeadlineMS(); !ok {
		t.Fatal("expected a pending RX window after a fix update")
	}
}

func TestWindowFiresStartsReceiveAndAccumulatesPackets(t *testing.T) {
	rec := downlinkOnRecord()
	svc, sc, c, rad, store := newHarness(t, rec, -2*time.Hour)
	svc.Init()

	lon, lat, _ := prepass.SubSatellitePoint(rec, rec.Bulletin.Time())
	svc.handleServiceEvent(bus.ServiceEvent{
		Source: bus.ServiceGNSS, Type: bus.EventLogUpdated,
		Data: model.Fix{FixType: model.Fix3D, LongitudeDegrees: lon, LatitudeDegrees: lat},
	})

	advanceToDeadline(t, c, sc)
	if ran := sc.RunDue(); ran == 0 {
		t.Fatal("expected the RX window to fire")
	}
	if svc.State() != StateReceiving {
		t.Fatalf("got state %v, want RECEIVING", svc.State())
	}
	if !rad.Receiving {
		t.Fatal("expected the radio to be receiving")
	}

	before := store.RXCounter()
	rad.SimulateRxPacket([]byte{0xAA, 0xBB, 0xCC}, 24, 500)
	if got := store.RXCounter(); got != before+1 {
		t.Errorf("got RX counter %d, want %d", got, before+1)
	}

	// Drive the window to its natural close and confirm it doesn't hang
	// on a garbage, non-decodable payload.
	advanceToDeadline(t, c, sc)
	sc.RunDue()
	if svc.State() == StateReceiving {
		t.Error("expected the window to have closed")
	}
	if rad.Receiving {
		t.Error("expected StopReceive to have been called")
	}
}

func TestUnderwaterEventDefersAndSurfacingReschedules(t *testing.T) {
	rec := downlinkOnRecord()
	svc, sc, _, _, _ := newHarness(t, rec, -2*time.Hour)
	svc.Init()

	lon, lat, _ := prepass.SubSatellitePoint(rec, rec.Bulletin.Time())
	svc.handleServiceEvent(bus.ServiceEvent{
		Source: bus.ServiceGNSS, Type: bus.EventLogUpdated,
		Data: model.Fix{FixType: model.Fix3D, LongitudeDegrees: lon, LatitudeDegrees: lat},
	})
	if svc.State() != StateScheduled {
		t.Fatalf("got state %v, want SCHEDULED", svc.State())
	}

	svc.handleServiceEvent(bus.ServiceEvent{Source: bus.ServiceUWDetect, Type: bus.EventLogUpdated, Data: true})
	if svc.State() != StateDeferred {
		t.Fatalf("got state %v while submerged, want DEFERRED", svc.State())
	}
	if _, ok := sc.NextDeadlineMS(); ok {
		t.Error("expected no pending RX window while submerged")
	}

	svc.handleServiceEvent(bus.ServiceEvent{Source: bus.ServiceUWDetect, Type: bus.EventLogUpdated, Data: false})
	if svc.State() != StateScheduled {
		t.Fatalf("got state %v after surfacing, want SCHEDULED", svc.State())
	}
}

// advanceToDeadline moves c forward just far enough for the scheduler's
// next pending task to become due. NextDeadlineMS is an absolute
// millisecond tick count, not a delay, so it must be diffed against the
// clock's current reading rather than applied directly.
func advanceToDeadline(t *testing.T, c *clock.FakeTicker, sc *sched.Scheduler) {
	t.Helper()
	deadline, ok := sc.NextDeadlineMS()
	if !ok {
		t.Fatal("expected a pending task")
	}
	now := c.Millis()
	if deadline > now {
		c.Advance(time.Duration(deadline-now) * time.Millisecond)
	}
}
