package txsched

import (
	"testing"
	"time"

	"github.com/pelagos-tag/tracker-core/internal/argos/prepass"
	"github.com/pelagos-tag/tracker-core/internal/model"
)

func testAOPRecord() model.AOPRecord {
	return model.AOPRecord{
		SatHexID:        1,
		DownlinkStatus:  model.DownlinkOnWithA3,
		Bulletin:        model.BulletinTime{Year: 2026, Month: 1, Day: 1},
		SemiMajorAxisKM: 7200,
		InclinationDeg:  98.7,
		OrbitPeriodMin:  101,
	}
}

func TestSchedulePrepassRequiresALocation(t *testing.T) {
	s := New(1)
	db := model.PassPredict{Records: []model.AOPRecord{testAOPRecord()}}
	_, _, ok := s.SchedulePrepass(db, PrepassParams{MinElevationDeg: 5, ComputationStep: 10 * time.Second}, time.Now())
	if ok {
		t.Fatal("expected no schedule without a known location")
	}
}

func TestSchedulePrepassRequiresOrbitalData(t *testing.T) {
	s := New(1)
	s.SetLastLocation(0, 0)
	_, _, ok := s.SchedulePrepass(model.PassPredict{}, PrepassParams{MinElevationDeg: 5}, time.Now())
	if ok {
		t.Fatal("expected no schedule with an empty AOP database")
	}
}

func TestSchedulePrepassFindsAWindowAndReturnsA3(t *testing.T) {
	s := New(1)
	rec := testAOPRecord()
	epoch := rec.Bulletin.Time()

	// Aim the observer directly at the sub-satellite point at the
	// bulletin epoch, guaranteeing a near-overhead, high-elevation pass
	// exists somewhere in the search window.
	lon, lat, _ := prepass.SubSatellitePoint(rec, epoch)
	s.SetLastLocation(lon, lat)
	db := model.PassPredict{Records: []model.AOPRecord{rec}}

	delayMS, mode, ok := s.SchedulePrepass(db, PrepassParams{
		MinElevationDeg: 1,
		ComputationStep: 5 * time.Second,
	}, epoch.Add(-1*time.Hour))

	if !ok {
		t.Fatal("expected a qualifying window")
	}
	if mode != model.ArticA3 {
		t.Errorf("got mode %v, want A3", mode)
	}
	if delayMS == InvalidSchedule {
		t.Error("delay must not be InvalidSchedule when ok is true")
	}
}
