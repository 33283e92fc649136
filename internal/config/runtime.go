package config

import "time"

// TXCounter returns the current ARGOS_TX_COUNTER value.
func (s *Store) TXCounter() uint32 {
	return s.params[ArgosTxCounter].(uint32)
}

// AdvanceTXCounter increments ARGOS_TX_COUNTER, saturating rather than
// wrapping past the 32-bit maximum, per §4.7's "advance TX_COUNTER
// (saturating modulo 32-bit)".
func (s *Store) AdvanceTXCounter() {
	v := s.params[ArgosTxCounter].(uint32)
	if v != 0xFFFFFFFF {
		v++
	}
	s.params[ArgosTxCounter] = v
	s.requiresSerialization = true
}

// RXCounter returns the current ARGOS_RX_COUNTER value.
func (s *Store) RXCounter() uint32 {
	return s.params[ArgosRxCounter].(uint32)
}

// AdvanceRXCounter increments ARGOS_RX_COUNTER on every decoded packet.
func (s *Store) AdvanceRXCounter() {
	v := s.params[ArgosRxCounter].(uint32)
	if v != 0xFFFFFFFF {
		v++
	}
	s.params[ArgosRxCounter] = v
	s.requiresSerialization = true
}

// AddReceiveTimeMS accumulates cumulative receive time onto
// ARGOS_RX_TIME, saturating at the 32-bit maximum.
func (s *Store) AddReceiveTimeMS(ms uint32) {
	v := s.params[ArgosRxTimeMS].(uint32)
	if 0xFFFFFFFF-v < ms {
		v = 0xFFFFFFFF
	} else {
		v += ms
	}
	s.params[ArgosRxTimeMS] = v
	s.requiresSerialization = true
}

// AOPDate returns the last AOP commit time recorded in ARGOS_AOP_DATE.
func (s *Store) AOPDate() time.Time {
	return unixTime(uint64(s.params[ArgosAopDate].(uint32)))
}

// SetAOPDate records t as the new ARGOS_AOP_DATE.
func (s *Store) SetAOPDate(t time.Time) {
	s.params[ArgosAopDate] = uint32(t.Unix())
	s.requiresSerialization = true
}

// RXWindowConfig is the effective RX scheduling configuration, read
// from the store on every schedule recomputation.
type RXWindowConfig struct {
	AOPUpdatePeriodDays int
	MaxWindow           time.Duration
	DryTimeBeforeTX     time.Duration
	MinElevationDeg     float64
	MinDuration         time.Duration
	ComputationStep     time.Duration
}

// GetRXWindowConfig composes the parameters internal/argos/rxsched needs
// from the store's current values.
func (s *Store) GetRXWindowConfig() RXWindowConfig {
	return RXWindowConfig{
		AOPUpdatePeriodDays: int(s.params[ArgosRxAopUpdatePeriodDays].(uint32)),
		MaxWindow:           time.Duration(s.params[ArgosRxMaxWindowSeconds].(uint32)) * time.Second,
		DryTimeBeforeTX:     time.Duration(s.params[DryTimeBeforeTXSeconds].(uint32)) * time.Second,
		MinElevationDeg:     s.params[PrepassMinElevationDeg].(float64),
		MinDuration:         time.Duration(s.params[PrepassMinDurationSeconds].(uint32)) * time.Second,
		ComputationStep:     time.Duration(s.params[PrepassComputationStepSeconds].(uint32)) * time.Second,
	}
}

// CertTxRepetition returns the certification-mode transmit interval,
// clamped to the firmware's 2-second floor.
func (s *Store) CertTxRepetition() time.Duration {
	v := s.params[CertTxRepetitionSeconds].(uint32)
	if v < 2 {
		v = 2
	}
	return time.Duration(v) * time.Second
}

// NtryPerMessage returns the depth-pile burst count a freshly stored fix
// is given.
func (s *Store) NtryPerMessage() uint32 {
	return s.params[NtryPerMessage].(uint32)
}

// TimeSyncBurstEnabled reports whether the first fix after startup is
// always transmitted as a short packet.
func (s *Store) TimeSyncBurstEnabled() bool {
	return s.params[TimeSyncBurstEnable].(bool)
}
