package txsched

import "testing"

// TestScheduleLegacyFixedPeriod and its siblings below trace the
// exact sequence in the scheduling walkthrough: a bare period with jitter
// disabled, a scheduler that recovers from any number of missed periods
// in one jump rather than one period at a time.
func TestScheduleLegacyFixedPeriod(t *testing.T) {
	const periodMS = 60000 // TR_NOM=60s
	s := New(1)

	if got := s.ScheduleLegacy(periodMS, false, 0); got != 0 {
		t.Fatalf("first call: got %d, want 0 (immediate)", got)
	}
	s.NotifyTXComplete()

	if got := s.ScheduleLegacy(periodMS, false, 60000); got != 0 {
		t.Fatalf("at t=60000: got %d, want 0 (exactly due)", got)
	}
	// Independent query against the same committed baseline (no notify
	// since the previous call): not yet due.
	if got := s.ScheduleLegacy(periodMS, false, 35000); got != 25000 {
		t.Fatalf("at t=35000: got %d, want 25000", got)
	}
}

func TestScheduleLegacyRecoversMissedPeriodsInOneJump(t *testing.T) {
	const periodMS = 10000 // TR_NOM=10s
	s := New(1)

	steps := []struct {
		nowMS uint64
		want  uint64
	}{
		{0, 0},
		{10000, 0},
		{20000, 0},
		{30000, 0},
		{35000, 5000},
		{59000, 1000},
	}
	for _, step := range steps {
		got := s.ScheduleLegacy(periodMS, false, step.nowMS)
		if got != step.want {
			t.Errorf("at t=%d: got %d, want %d", step.nowMS, got, step.want)
		}
		if got == 0 {
			s.NotifyTXComplete()
		}
	}
}

func TestScheduleLegacyEarliestScheduleClamp(t *testing.T) {
	const periodMS = 10000
	s := New(1)
	for _, nowMS := range []uint64{0, 10000, 20000, 30000} {
		s.ScheduleLegacy(periodMS, false, nowMS)
		s.NotifyTXComplete()
	}
	s.SetEarliestSchedule(41000)
	if got := s.ScheduleLegacy(periodMS, false, 35000); got != 6000 {
		t.Fatalf("got %d, want 6000 (clamped to earliest=41000)", got)
	}
}

func TestScheduleDutyCycleSkipsDisallowedHour(t *testing.T) {
	const periodMS = 3600000 // TR_NOM=3600s
	const mask = 0xAAAAAA    // hour0=1, hour1=0, hour2=1, hour3=0, ...
	s := New(1)

	if got := s.ScheduleDutyCycle(periodMS, mask, false, 0); got != 0 {
		t.Fatalf("at t=0 (hour0 allowed): got %d, want 0", got)
	}
	s.NotifyTXComplete()

	if got := s.ScheduleDutyCycle(periodMS, mask, false, 3600000); got != 3600000 {
		t.Fatalf("at t=3600000 (hour1 disallowed, must skip to hour2): got %d, want 3600000", got)
	}
}

func TestIsInDutyCycleHourBitOrder(t *testing.T) {
	const mask = 0xAAAAAA
	if !IsInDutyCycle(0, mask) {
		t.Error("hour 0 should be allowed (bit 23 set)")
	}
	if IsInDutyCycle(3600000, mask) {
		t.Error("hour 1 should be disallowed (bit 22 clear)")
	}
	if !IsInDutyCycle(2*3600000, mask) {
		t.Error("hour 2 should be allowed (bit 21 set)")
	}
}

func TestIsInDutyCycleFullMaskAlwaysAllowed(t *testing.T) {
	for h := uint64(0); h < 24; h++ {
		if !IsInDutyCycle(h*3600000, dutyCycleFull) {
			t.Errorf("hour %d should be allowed under the full mask", h)
		}
	}
}
