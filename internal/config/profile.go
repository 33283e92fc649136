package config

import "github.com/pelagos-tag/tracker-core/internal/model"

// SetLastFix records the most recent GPS fix, consumed by the in-zone
// test in the profile-selection algorithm.
func (s *Store) SetLastFix(fix model.Fix) {
	s.lastFix = fix
}

// isLowBattery applies the hysteretic low-battery test: once latched,
// it only releases when the level rises 5 points above the threshold,
// matching the firmware's "exit only when level >= LB_THRESHOLD + 5"
// rule (a single comparison would chatter at the boundary).
func (s *Store) isLowBattery() bool {
	if s.battery == nil {
		return false
	}
	if s.battery.Critical() {
		s.lowBatteryLatched = true
		return true
	}
	threshold := s.params[LowBatteryThresholdPercent].(uint32)
	level := s.battery.LevelPercent()
	if s.lowBatteryLatched {
		if level >= int(threshold)+5 {
			s.lowBatteryLatched = false
		}
	} else if level < int(threshold) {
		s.lowBatteryLatched = true
	}
	return s.lowBatteryLatched
}

// IsInZoneExclusion reports whether the out-of-zone profile override
// applies: detection is enabled, the zone is currently active, and the
// last fix falls outside it.
func (s *Store) IsInZoneExclusion() bool {
	if !s.params[ZoneEnableOutOfZoneDetection].(bool) {
		return false
	}
	if !s.zoneValid || !s.zone.Active(s.lastFix.Time) {
		return false
	}
	return !s.zone.Contains(s.lastFix.LongitudeDegrees, s.lastFix.LatitudeDegrees)
}

// GetArgosConfiguration composes the effective Argos configuration:
// nominal values, with power, TX period and depth-pile depth replaced by
// the low-battery profile while the low-battery latch is set,
// re-evaluated on every call. No in-zone profile overrides any field.
func (s *Store) GetArgosConfiguration() ArgosConfig {
	cfg := ArgosConfig{
		DecID:           s.params[ArgosDecID].(uint32),
		HexID:           s.params[ArgosHexID].(uint32),
		Mode:            s.params[ArgosMode].(model.ArgosMode),
		Power:           s.params[ArgosPower].(model.PowerClass),
		TXPeriodSeconds: s.params[ArgosTxPeriodSeconds].(uint32),
		DutyCycleMask:   s.params[ArgosDutyCycleMask].(uint32),
		DepthPileDepth:  s.params[ArgosDepthPileDepth].(uint32),
		JitterEnabled:   s.params[ArgosJitterEnable].(bool),
	}

	// In-zone exclusion is exposed via IsInZoneExclusion for the TX
	// service to gate transmission; it does not itself override any
	// ArgosConfig field.
	if s.isLowBattery() {
		cfg.Power = s.params[LBArgosPower].(model.PowerClass)
		cfg.TXPeriodSeconds = s.params[LBArgosTxPeriodSeconds].(uint32)
		cfg.DepthPileDepth = s.params[LBArgosDepthPileDepth].(uint32)
	}

	return cfg
}

// GetGNSSConfiguration composes the effective GNSS acquisition
// configuration. No profile currently overrides GNSS timeouts, but the
// call is re-evaluated on every query for symmetry with
// GetArgosConfiguration and to leave room for a future per-zone
// override.
func (s *Store) GetGNSSConfiguration() GNSSConfig {
	return GNSSConfig{
		FixTimeoutSeconds:         s.params[GPSFixTimeoutSeconds].(uint32),
		AcquisitionTimeoutSeconds: s.params[GPSAcquisitionTimeoutSeconds].(uint32),
	}
}
