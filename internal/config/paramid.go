// Package config implements the durable parameter store: a typed
// ParamID registry with per-parameter range/permitted-value validation,
// profile selection (nominal / low-battery / out-of-zone), the zone
// and pass-predict blobs, and factory-reset/corruption-recovery
// semantics, translated from LFSConfigurationStore in
// config_store_fs.hpp.
package config

import "github.com/pelagos-tag/tracker-core/internal/model"

// ParamID identifies a single stored parameter. Values are stable and
// must never be renumbered once shipped, matching the firmware's
// ParamID enum.
type ParamID int

const (
	ArgosDecID ParamID = iota
	ArgosHexID
	ArgosMode
	ArgosPower
	ArgosTxPeriodSeconds
	ArgosDutyCycleMask
	ArgosDepthPileDepth
	LBArgosPower
	LBArgosTxPeriodSeconds
	LBArgosDepthPileDepth
	GPSFixTimeoutSeconds
	GPSAcquisitionTimeoutSeconds
	PrepassMinElevationDeg
	PrepassMaxElevationDeg
	PrepassMinDurationSeconds
	PrepassMaxPasses
	PrepassLinearMarginSeconds
	PrepassComputationStepSeconds
	LowBatteryThresholdPercent
	ZoneEnableOutOfZoneDetection
	ArgosTxCounter
	ArgosRxCounter
	ArgosRxTimeMS
	ArgosAopDate
	ArgosRxAopUpdatePeriodDays
	ArgosRxMaxWindowSeconds
	DryTimeBeforeTXSeconds
	CertTxRepetitionSeconds
	NtryPerMessage
	TimeSyncBurstEnable
	ArgosJitterEnable
	numParamIDs // sentinel: count of recognised parameters
)

// Encoding names the wire/validation kind of a parameter's value.
type Encoding int

const (
	EncodingUnsigned Encoding = iota
	EncodingSigned
	EncodingBoolean
	EncodingFloat
	EncodingDateString
	EncodingText
	EncodingBase64
	EncodingEnum
)

// ParamDef is one parameter's static definition: its encoding, the
// inclusive range it accepts (Min/Max are unused for EncodingEnum,
// where Permitted is authoritative), whether it may be read back, and
// whether write() ever takes effect.
type ParamDef struct {
	ID        ParamID
	Name      string
	Key       string // 5-byte ASCII key used in the serialised blob
	Encoding  Encoding
	Min, Max  float64
	Permitted []int64 // for EncodingEnum; empty means unrestricted
	Readable  bool
	Writable  bool
	Protected bool // must survive any single corruption event
}

// paramDefs is the compiled parameter registry, index-aligned with
// ParamID, mirroring param_map/default_params in the firmware.
var paramDefs = [numParamIDs]ParamDef{
	ArgosDecID: {ID: ArgosDecID, Name: "ARGOS_DECID", Key: "IDT01", Encoding: EncodingUnsigned, Min: 0, Max: 0xFFFFFFFF, Readable: true, Writable: true, Protected: true},
	ArgosHexID: {ID: ArgosHexID, Name: "ARGOS_HEXID", Key: "IDT02", Encoding: EncodingUnsigned, Min: 0, Max: 0xFFFFFFFF, Readable: true, Writable: true, Protected: true},
	ArgosMode:  {ID: ArgosMode, Name: "ARGOS_MODE", Key: "ARG01", Encoding: EncodingEnum, Permitted: []int64{int64(model.ArgosModeOff), int64(model.ArgosModeLegacy), int64(model.ArgosModeDutyCycle), int64(model.ArgosModePassPrediction)}, Readable: true, Writable: true},
	ArgosPower: {ID: ArgosPower, Name: "ARGOS_POWER", Key: "ARG02", Encoding: EncodingEnum, Permitted: []int64{int64(model.Power250MW), int64(model.Power500MW), int64(model.Power750MW), int64(model.Power1000MW)}, Readable: true, Writable: true},
	ArgosTxPeriodSeconds:   {ID: ArgosTxPeriodSeconds, Name: "ARGOS_TX_PERIOD", Key: "ARG03", Encoding: EncodingUnsigned, Min: 1, Max: 86400, Readable: true, Writable: true},
	ArgosDutyCycleMask:     {ID: ArgosDutyCycleMask, Name: "ARGOS_DUTY_CYCLE", Key: "ARG04", Encoding: EncodingUnsigned, Min: 0, Max: 0xFFFFFF, Readable: true, Writable: true},
	ArgosDepthPileDepth:    {ID: ArgosDepthPileDepth, Name: "DEPTH_PILE", Key: "ARG05", Encoding: EncodingUnsigned, Min: 0, Max: 24, Readable: true, Writable: true},
	LBArgosPower:           {ID: LBArgosPower, Name: "LB_ARGOS_POWER", Key: "LB001", Encoding: EncodingEnum, Permitted: []int64{int64(model.Power250MW), int64(model.Power500MW), int64(model.Power750MW), int64(model.Power1000MW)}, Readable: true, Writable: true},
	LBArgosTxPeriodSeconds: {ID: LBArgosTxPeriodSeconds, Name: "LB_ARGOS_TX_PERIOD", Key: "LB002", Encoding: EncodingUnsigned, Min: 1, Max: 86400, Readable: true, Writable: true},
	LBArgosDepthPileDepth:  {ID: LBArgosDepthPileDepth, Name: "LB_DEPTH_PILE", Key: "LB003", Encoding: EncodingUnsigned, Min: 0, Max: 24, Readable: true, Writable: true},
	GPSFixTimeoutSeconds:          {ID: GPSFixTimeoutSeconds, Name: "GPS_FIX_TIMEOUT", Key: "GPS01", Encoding: EncodingUnsigned, Min: 1, Max: 3600, Readable: true, Writable: true},
	GPSAcquisitionTimeoutSeconds:  {ID: GPSAcquisitionTimeoutSeconds, Name: "GPS_ACQ_TIMEOUT", Key: "GPS02", Encoding: EncodingUnsigned, Min: 1, Max: 3600, Readable: true, Writable: true},
	PrepassMinElevationDeg:        {ID: PrepassMinElevationDeg, Name: "PP_MIN_ELEVATION", Key: "PRE01", Encoding: EncodingFloat, Min: 0, Max: 90, Readable: true, Writable: true},
	PrepassMaxElevationDeg:        {ID: PrepassMaxElevationDeg, Name: "PP_MAX_ELEVATION", Key: "PRE02", Encoding: EncodingFloat, Min: 0, Max: 90, Readable: true, Writable: true},
	PrepassMinDurationSeconds:     {ID: PrepassMinDurationSeconds, Name: "PP_MIN_DURATION", Key: "PRE03", Encoding: EncodingUnsigned, Min: 0, Max: 3600, Readable: true, Writable: true},
	PrepassMaxPasses:              {ID: PrepassMaxPasses, Name: "PP_MAX_PASSES", Key: "PRE04", Encoding: EncodingUnsigned, Min: 1, Max: 100, Readable: true, Writable: true},
	PrepassLinearMarginSeconds:    {ID: PrepassLinearMarginSeconds, Name: "PP_LINEAR_MARGIN", Key: "PRE05", Encoding: EncodingUnsigned, Min: 0, Max: 3600, Readable: true, Writable: true},
	PrepassComputationStepSeconds: {ID: PrepassComputationStepSeconds, Name: "PP_COMP_STEP", Key: "PRE06", Encoding: EncodingUnsigned, Min: 1, Max: 600, Readable: true, Writable: true},
	LowBatteryThresholdPercent:    {ID: LowBatteryThresholdPercent, Name: "LB_THRESHOLD", Key: "BAT01", Encoding: EncodingUnsigned, Min: 0, Max: 100, Readable: true, Writable: true},
	ZoneEnableOutOfZoneDetection:  {ID: ZoneEnableOutOfZoneDetection, Name: "ZONE_ENABLE_OOZ", Key: "ZON01", Encoding: EncodingBoolean, Readable: true, Writable: true},

	// Runtime counters and bookkeeping, written by the TX/RX services
	// rather than by a DTE operator, but stored through the same
	// save_params path so they survive a reset.
	ArgosTxCounter:             {ID: ArgosTxCounter, Name: "ARGOS_TX_COUNTER", Key: "ARG06", Encoding: EncodingUnsigned, Min: 0, Max: 0xFFFFFFFF, Readable: true, Writable: true},
	ArgosRxCounter:             {ID: ArgosRxCounter, Name: "ARGOS_RX_COUNTER", Key: "ARG07", Encoding: EncodingUnsigned, Min: 0, Max: 0xFFFFFFFF, Readable: true, Writable: true},
	ArgosRxTimeMS:              {ID: ArgosRxTimeMS, Name: "ARGOS_RX_TIME", Key: "ARG08", Encoding: EncodingUnsigned, Min: 0, Max: 0xFFFFFFFF, Readable: true, Writable: true},
	ArgosAopDate:               {ID: ArgosAopDate, Name: "ARGOS_AOP_DATE", Key: "ARG09", Encoding: EncodingUnsigned, Min: 0, Max: 0xFFFFFFFF, Readable: true, Writable: true},
	ArgosRxAopUpdatePeriodDays: {ID: ArgosRxAopUpdatePeriodDays, Name: "ARGOS_RX_AOP_PERIOD", Key: "ARG10", Encoding: EncodingUnsigned, Min: 1, Max: 365, Readable: true, Writable: true},
	ArgosRxMaxWindowSeconds:    {ID: ArgosRxMaxWindowSeconds, Name: "ARGOS_RX_MAX_WINDOW", Key: "ARG11", Encoding: EncodingUnsigned, Min: 1, Max: 3600, Readable: true, Writable: true},
	DryTimeBeforeTXSeconds:     {ID: DryTimeBeforeTXSeconds, Name: "DRY_TIME_BEFORE_TX", Key: "ARG12", Encoding: EncodingUnsigned, Min: 0, Max: 86400, Readable: true, Writable: true},
	CertTxRepetitionSeconds:    {ID: CertTxRepetitionSeconds, Name: "CERT_TX_REPETITION", Key: "ARG13", Encoding: EncodingUnsigned, Min: 2, Max: 3600, Readable: true, Writable: true},
	NtryPerMessage:             {ID: NtryPerMessage, Name: "NTRY_PER_MESSAGE", Key: "ARG14", Encoding: EncodingUnsigned, Min: 0, Max: 100, Readable: true, Writable: true},
	TimeSyncBurstEnable:        {ID: TimeSyncBurstEnable, Name: "TIME_SYNC_BURST", Key: "ARG15", Encoding: EncodingBoolean, Readable: true, Writable: true},
	ArgosJitterEnable:          {ID: ArgosJitterEnable, Name: "ARGOS_JITTER_ENABLE", Key: "ARG16", Encoding: EncodingBoolean, Readable: true, Writable: true},
}

// defaultValues holds the compiled factory defaults, index-aligned
// with ParamID.
var defaultValues = [numParamIDs]any{
	ArgosDecID:                    uint32(0),
	ArgosHexID:                    uint32(0),
	ArgosMode:                     model.ArgosModeOff,
	ArgosPower:                    model.Power500MW,
	ArgosTxPeriodSeconds:          uint32(60),
	ArgosDutyCycleMask:            uint32(0xFFFFFF),
	ArgosDepthPileDepth:           uint32(24),
	LBArgosPower:                  model.Power250MW,
	LBArgosTxPeriodSeconds:        uint32(3600),
	LBArgosDepthPileDepth:         uint32(4),
	GPSFixTimeoutSeconds:          uint32(60),
	GPSAcquisitionTimeoutSeconds:  uint32(120),
	PrepassMinElevationDeg:        float64(15),
	PrepassMaxElevationDeg:        float64(90),
	PrepassMinDurationSeconds:     uint32(60),
	PrepassMaxPasses:              uint32(10),
	PrepassLinearMarginSeconds:    uint32(60),
	PrepassComputationStepSeconds: uint32(30),
	LowBatteryThresholdPercent:    uint32(10),
	ZoneEnableOutOfZoneDetection:  false,

	ArgosTxCounter:             uint32(0),
	ArgosRxCounter:             uint32(0),
	ArgosRxTimeMS:              uint32(0),
	ArgosAopDate:               uint32(0),
	ArgosRxAopUpdatePeriodDays: uint32(7),
	ArgosRxMaxWindowSeconds:    uint32(600),
	DryTimeBeforeTXSeconds:     uint32(120),
	CertTxRepetitionSeconds:    uint32(10),
	NtryPerMessage:             uint32(4),
	TimeSyncBurstEnable:        true,
	ArgosJitterEnable:          true,
}
