package config

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/goblimey/go-crc24q/crc24q"

	"github.com/pelagos-tag/tracker-core/internal/model"
)

const (
	configVersionCode = 0x00010000
	keyLength         = 5
	valueLength       = 128
	entryLength       = keyLength + valueLength
	crcTrailerLength  = 3
)

// ErrCorruptedStore is raised when save_params fails I/O, or when init
// can neither read config.dat nor write the defaults back in its place.
var ErrCorruptedStore = errors.New("config: store corrupted")

// ErrOutOfRange is raised by Write when v falls outside the parameter's
// declared range or permitted-value set.
var ErrOutOfRange = errors.New("config: value out of range")

// Filesystem is the minimal backing store the configuration, zone and
// pass-predict blobs are persisted to. A real deployment backs it with
// a flash filesystem; tests use an in-memory fake.
type Filesystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// BatteryMonitor reports the external battery state the profile-
// selection algorithm reads on every configuration query.
type BatteryMonitor interface {
	LevelPercent() int
	Critical() bool
}

// ArgosConfig is the effective, profile-resolved Argos transmit
// configuration handed to the TX scheduler.
type ArgosConfig struct {
	DecID           uint32
	HexID           uint32
	Mode            model.ArgosMode
	Power           model.PowerClass
	TXPeriodSeconds uint32
	DutyCycleMask   uint32
	DepthPileDepth  uint32
	JitterEnabled   bool
}

// GNSSConfig is the effective GPS acquisition configuration.
type GNSSConfig struct {
	FixTimeoutSeconds        uint32
	AcquisitionTimeoutSeconds uint32
}

// Store is the durable parameter map plus the zone and pass-predict
// blobs, translated from LFSConfigurationStore.
type Store struct {
	fs      Filesystem
	battery BatteryMonitor

	params [numParamIDs]any

	zone      model.Zone
	zoneValid bool

	passPredict      model.PassPredict
	passPredictValid bool

	configValid          bool
	requiresSerialization bool

	lowBatteryLatched bool
	lastFix           model.Fix
}

// New creates a Store backed by fs and battery, with every parameter at
// its compiled default. Call Init to load persisted state.
func New(fs Filesystem, battery BatteryMonitor) *Store {
	s := &Store{fs: fs, battery: battery}
	s.resetAllToDefault()
	return s
}

func (s *Store) resetAllToDefault() {
	for i := range s.params {
		s.params[i] = defaultValues[i]
	}
}

// Init loads the configuration, zone and pass-predict blobs from the
// backing filesystem, applying the invariants: unrecognised or
// type-mismatched entries reset to default; on a corrupted config.dat -
// wrong version, wrong length, or a CRC24Q trailer mismatch - only the
// protected parameters are recovered. When config.dat cannot be read at
// all (first boot, or the file is gone), the defaults are written back;
// Init returns ErrCorruptedStore only when that write fails.
func (s *Store) Init() error {
	if err := s.deserializeConfig(); err != nil {
		return err
	}
	s.deserializeZone()
	s.deserializePassPredict()
	return nil
}

func (s *Store) deserializeConfig() error {
	data, err := s.fs.ReadFile("config.dat")
	if err != nil || len(data) < 4+len(paramDefs)*entryLength+crcTrailerLength {
		return s.recoverProtectedOnly()
	}
	version := binary.LittleEndian.Uint32(data[0:4])
	if version != configVersionCode {
		return s.recoverProtectedOnly()
	}

	bodyEnd := len(data) - crcTrailerLength
	if !crcTrailerMatches(data[:bodyEnd], data[bodyEnd:]) {
		// The blob is the right length and version but its bytes have
		// been corrupted (a torn write, bad flash sector): the
		// per-field key check below would only catch this by luck.
		return s.recoverProtectedOnly()
	}

	body := data[4:bodyEnd]
	for i := range paramDefs {
		off := i * entryLength
		if off+entryLength > len(body) {
			s.params[i] = defaultValues[i]
			s.requiresSerialization = true
			continue
		}
		entry := body[off : off+entryLength]
		if string(entry[:keyLength]) != paramDefs[i].Key {
			s.params[i] = defaultValues[i]
			s.requiresSerialization = true
			continue
		}
		v, ok := decodeValue(paramDefs[i], entry[keyLength:])
		if !ok {
			s.params[i] = defaultValues[i]
			s.requiresSerialization = true
			continue
		}
		s.params[i] = v
	}
	s.configValid = true
	return nil
}

// recoverProtectedOnly implements the deserialisation-recovery rule:
// try to pull ARGOS_DECID/ARGOS_HEXID from whatever bytes exist, reset
// everything else to default, and mark the store dirty.
func (s *Store) recoverProtectedOnly() error {
	s.resetAllToDefault()
	s.requiresSerialization = true

	data, err := s.fs.ReadFile("config.dat")
	recovered := 0
	if err == nil && len(data) >= 4 {
		body := data[4:]
		for _, id := range []ParamID{ArgosDecID, ArgosHexID} {
			def := paramDefs[id]
			off := int(id) * entryLength
			if off+entryLength > len(body) {
				continue
			}
			entry := body[off : off+entryLength]
			if string(entry[:keyLength]) != def.Key {
				continue
			}
			if v, ok := decodeValue(def, entry[keyLength:]); ok {
				s.params[id] = v
				recovered++
			}
		}
	}

	if recovered < 2 {
		// At least one protected parameter is unrecoverable - firmware
		// still proceeds with factory defaults for it, matching
		// deserialize_config's DEBUG_WARN-and-continue behaviour. Only
		// total absence of usable storage is fatal.
		if err != nil {
			// Nothing could be read: store the defaults, so only a
			// backing store that also rejects the write is fatal.
			return s.SaveParams()
		}
	}
	return nil
}

func (s *Store) deserializeZone() {
	data, err := s.fs.ReadFile("zone.dat")
	if err != nil {
		return
	}
	z, ok := decodeZone(data)
	if !ok {
		return
	}
	s.zone = z
	s.zoneValid = true
}

func (s *Store) deserializePassPredict() {
	data, err := s.fs.ReadFile("pass_predict.dat")
	if err != nil {
		return
	}
	pp, ok := decodePassPredict(data)
	if !ok {
		return
	}
	s.passPredict = pp
	s.passPredictValid = true
}

// Read returns the current value of id. Callers know the concrete type
// from id and should type-assert.
func (s *Store) Read(id ParamID) any {
	return s.params[id]
}

// Write sets id's value, subject to range/permitted-value validation.
// Writes to a non-writable parameter succeed silently with no effect,
// matching the firmware's "accepted but ignored" semantics for
// read-only parameters.
func (s *Store) Write(id ParamID, v any) error {
	def := paramDefs[id]
	if !def.Writable {
		return nil
	}
	if !validate(def, v) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, def.Name)
	}
	s.params[id] = coerceEnum(def, v)
	s.requiresSerialization = true
	return nil
}

// coerceEnum normalises a plain numeric enum write (as a DTE command
// would supply, e.g. PARMW ARGOS_MODE=2) to the concrete Go type the
// rest of the store expects callers to type-assert, e.g.
// model.ArgosMode rather than int64.
func coerceEnum(def ParamDef, v any) any {
	if def.Encoding != EncodingEnum {
		return v
	}
	iv, ok := toInt64(v)
	if !ok {
		return v
	}
	switch defaultValues[def.ID].(type) {
	case model.ArgosMode:
		return model.ArgosMode(iv)
	case model.PowerClass:
		return model.PowerClass(iv)
	default:
		return v
	}
}

func validate(def ParamDef, v any) bool {
	switch def.Encoding {
	case EncodingEnum:
		iv, ok := toInt64(v)
		if !ok {
			return false
		}
		if len(def.Permitted) == 0 {
			return true
		}
		for _, p := range def.Permitted {
			if p == iv {
				return true
			}
		}
		return false
	case EncodingBoolean, EncodingText, EncodingBase64, EncodingDateString:
		return true
	default:
		fv, ok := toFloat64(v)
		if !ok {
			return false
		}
		return fv >= def.Min && fv <= def.Max
	}
}

// SaveParams serialises the whole store to config.dat, trailed by a
// CRC24Q checksum over the version+body bytes. Any write failure marks
// the store corrupt and returns ErrCorruptedStore.
func (s *Store) SaveParams() error {
	buf := make([]byte, 4+len(paramDefs)*entryLength+crcTrailerLength)
	binary.LittleEndian.PutUint32(buf[0:4], configVersionCode)
	for i, def := range paramDefs {
		v := s.params[i]
		if !typeMatchesEncoding(def, v) {
			v = defaultValues[i]
			s.params[i] = v
		}
		off := 4 + i*entryLength
		copy(buf[off:off+keyLength], def.Key)
		encodeValue(def, v, buf[off+keyLength:off+entryLength])
	}
	bodyEnd := len(buf) - crcTrailerLength
	writeCRCTrailer(buf[:bodyEnd], buf[bodyEnd:])
	if err := s.fs.WriteFile("config.dat", buf); err != nil {
		s.configValid = false
		return fmt.Errorf("%w: %v", ErrCorruptedStore, err)
	}
	s.configValid = true
	s.requiresSerialization = false
	return nil
}

// ReadPassPredict returns the current pass-predict database.
func (s *Store) ReadPassPredict() model.PassPredict {
	return s.passPredict
}

// WritePassPredict persists pp as the new pass-predict database.
func (s *Store) WritePassPredict(pp model.PassPredict) error {
	data := encodePassPredict(pp)
	if err := s.fs.WriteFile("pass_predict.dat", data); err != nil {
		s.passPredictValid = false
		return fmt.Errorf("%w: %v", ErrCorruptedStore, err)
	}
	s.passPredict = pp
	s.passPredictValid = true
	return nil
}

// ReadZone returns the current zone.
func (s *Store) ReadZone() model.Zone {
	return s.zone
}

// WriteZone persists z as the new zone.
func (s *Store) WriteZone(z model.Zone) error {
	if err := s.fs.WriteFile("zone.dat", encodeZone(z)); err != nil {
		s.zoneValid = false
		return fmt.Errorf("%w: %v", ErrCorruptedStore, err)
	}
	s.zone = z
	s.zoneValid = true
	return nil
}

// FactoryReset reformats the backing store: protected parameters keep
// their current values, everything else reverts to its compiled
// default, and the zone/pass-predict blobs are discarded.
func (s *Store) FactoryReset() error {
	protected := map[ParamID]any{}
	for i, def := range paramDefs {
		if def.Protected {
			protected[ParamID(i)] = s.params[i]
		}
	}
	s.resetAllToDefault()
	for id, v := range protected {
		s.params[id] = v
	}
	if err := s.ClearDatabases(); err != nil {
		return err
	}
	return s.SaveParams()
}

// ClearDatabases discards the zone and pass-predict blobs without
// touching any parameter value, used by the DTE ERASE sys/both command
// (FactoryReset is the separate, parameter-resetting FACTW command).
func (s *Store) ClearDatabases() error {
	s.zone = model.Zone{}
	s.zoneValid = false
	s.passPredict = model.PassPredict{}
	s.passPredictValid = false
	if err := s.fs.WriteFile("zone.dat", encodeZone(s.zone)); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptedStore, err)
	}
	if err := s.fs.WriteFile("pass_predict.dat", encodePassPredict(s.passPredict)); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptedStore, err)
	}
	return nil
}

// LookupByName returns the definition of the parameter whose NV key
// name matches name (e.g. "ARGOS_MODE"), for DTE PARMR/PARMW dispatch.
func LookupByName(name string) (ParamDef, bool) {
	for _, def := range paramDefs {
		if def.Name == name {
			return def, true
		}
	}
	return ParamDef{}, false
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case model.ArgosMode:
		return int64(x), true
	case model.PowerClass:
		return int64(x), true
	case int64:
		return x, true
	case uint32:
		return int64(x), true
	case int:
		return int64(x), true
	default:
		return 0, false
	}
}

// writeCRCTrailer writes body's CRC24Q hash into trailer, which must be
// crcTrailerLength bytes long.
func writeCRCTrailer(body, trailer []byte) {
	hash := crc24q.Hash(body)
	trailer[0] = crc24q.HiByte(hash)
	trailer[1] = crc24q.MiByte(hash)
	trailer[2] = crc24q.LoByte(hash)
}

// crcTrailerMatches reports whether trailer is body's CRC24Q hash.
func crcTrailerMatches(body, trailer []byte) bool {
	hash := crc24q.Hash(body)
	return trailer[0] == crc24q.HiByte(hash) &&
		trailer[1] == crc24q.MiByte(hash) &&
		trailer[2] == crc24q.LoByte(hash)
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case uint32:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
