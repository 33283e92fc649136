// Package passpredict decodes Argos allcast downlink packets into AOP
// records and merges them into the pass-predict database, mirroring
// ArgosRxService::update_pass_predict in argos_rx_service.cpp. Frame
// scanning follows the teacher's rtcm/handler loop shape: walk a byte
// buffer, parse one message, advance past it.
package passpredict

import (
	"fmt"

	"github.com/pelagos-tag/tracker-core/internal/bitio"
	"github.com/pelagos-tag/tracker-core/internal/model"
)

// Addressee identifies the kind of allcast sub-message.
type Addressee uint32

const (
	ConstellationStatusA Addressee = 0xC7
	ConstellationStatusB Addressee = 0x5F
	OrbitParamsA         Addressee = 0xBE
	OrbitParamsB         Addressee = 0xD4
)

const allcastService = 0x00

// ErrProtocolOutOfRange is raised for an unrecognised addressee or
// service code, matching the firmware's ProtocolOutOfRange exception.
var ErrProtocolOutOfRange = fmt.Errorf("passpredict: protocol value out of range")

const (
	addresseeBits = 28
	dcsBits       = 4
	serviceBits   = 8
	fcsBits       = 16
	countBits     = 4
	hexIDBits     = 4

	// per-satellite DCS field inside a constellation-status body: present
	// on the wire and consumed, but not retained (the outer dcs value is
	// what's recorded against every entry in the body).
	statusDCSBits = 4

	// orbit-parameter body layout: a single satellite per 0xBE/0xD4
	// packet - hexID, a discarded 2-bit bulletin type, the 44-bit BCD
	// bulletin date (yearBCDBits..secondBCDBits, see timestamp.go), then
	// an 86-bit bulletin of orbital scalars.
	bulletinTypeBits  = 2
	ascNodeLonBits    = 19
	nodeDriftBits     = 10
	orbitPeriodBits   = 14
	semiMajorAxisBits = 19
	smaDriftBits      = 8
	inclinationBits   = 16
)

// orbit-parameter scalar bases per addressee type: type A (0xBE) and
// type B (0xD4) share the same field layout but offset the decoded
// scalars by different constants.
type orbitBases struct {
	semiMajorAxisKM float64
	inclinationDeg  float64
	nodeDriftDeg    float64
	orbitPeriodMin  float64
}

var (
	basesA = orbitBases{semiMajorAxisKM: 7000, inclinationDeg: 97, nodeDriftDeg: -26, orbitPeriodMin: 95}
	basesB = orbitBases{semiMajorAxisKM: 6500, inclinationDeg: 95, nodeDriftDeg: -24, orbitPeriodMin: 85}
)

// Decoder parses a concatenation of allcast packets into constellation-
// status and orbit-parameter maps, keyed by satellite hex ID, ready for
// the merge rule in Merge.
type Decoder struct {
	// ToleratePaddedStatus consumes a 4-bit reserved field after an
	// even-count constellation-status body (orbit-parameter bodies are
	// never padded), matching current CLS
	// emissions. This is the runtime form of
	// WORKAROUND_ALLCAST_CONSTELLATION_STATUS_ENCODING_BUG (spec.md §9):
	// documented and defaulted true rather than guessed away.
	ToleratePaddedStatus bool
}

// NewDecoder creates a Decoder with the documented-default workaround
// enabled.
func NewDecoder() *Decoder {
	return &Decoder{ToleratePaddedStatus: true}
}

// statusEntry is one satellite's constellation-status sub-record.
type statusEntry struct {
	hexID    uint8
	dcsID    uint8
	downlink model.DownlinkStatus
	uplink   model.UplinkStatus
}

// orbitEntry is one satellite's orbit-parameter sub-record, including
// its BCD-encoded bulletin timestamp per spec.md §4.4.
type orbitEntry struct {
	hexID            uint8
	bulletin         model.BulletinTime
	semiMajorAxisKM  float64
	inclinationDeg   float64
	ascNodeLonDeg    float64
	ascNodeDriftDeg  float64
	orbitPeriodMin   float64
	smaDriftKMPerDay float64
}

// DecodeResult groups the two intermediate maps the merge rule needs.
type DecodeResult struct {
	Status map[uint8]statusEntry
	Orbit  map[uint8]orbitEntry
}

// Decode parses every allcast packet concatenated in data and groups
// records by hex ID into the two intermediate maps the merge rule
// (Merge) consumes. An unrecognised addressee or non-allcast service
// code returns ErrProtocolOutOfRange.
func (d *Decoder) Decode(data []byte) (*DecodeResult, error) {
	result := &DecodeResult{Status: map[uint8]statusEntry{}, Orbit: map[uint8]orbitEntry{}}
	pos := uint(0)
	totalBits := uint(len(data)) * 8

	for pos+addresseeBits+dcsBits+serviceBits+fcsBits <= totalBits {
		addressee := Addressee(bitio.GetBitsAsUint64(data, pos, addresseeBits))
		pos += addresseeBits
		dcs := uint8(bitio.GetBitsAsUint64(data, pos, dcsBits))
		pos += dcsBits
		service := bitio.GetBitsAsUint64(data, pos, serviceBits)
		pos += serviceBits

		if service != allcastService {
			return nil, fmt.Errorf("%w: service code 0x%02X", ErrProtocolOutOfRange, service)
		}

		remaining := totalBits - pos - fcsBits

		switch addressee {
		case ConstellationStatusA:
			pos = d.decodeStatusBody(data, pos, remaining, true, dcs, result)
		case ConstellationStatusB:
			pos = d.decodeStatusBody(data, pos, remaining, false, dcs, result)
		case OrbitParamsA:
			pos = d.decodeOrbitBody(data, pos, remaining, basesA, result)
		case OrbitParamsB:
			pos = d.decodeOrbitBody(data, pos, remaining, basesB, result)
		default:
			return nil, fmt.Errorf("%w: addressee 0x%X", ErrProtocolOutOfRange, addressee)
		}

		pos += fcsBits // skip FCS; verifying it is the caller's concern if desired
	}
	return result, nil
}

// decodeStatusBody reads a constellation-status body: a 4-bit satellite
// count, then per satellite hexID(4), a discarded per-satellite DCS
// field(4), and dl/ul status fields sized 2+2 bits for type A or 1+3
// bits for type B.
func (d *Decoder) decodeStatusBody(data []byte, pos, maxBits uint, typeA bool, dcs uint8, result *DecodeResult) uint {
	dlBits, ulBits := uint(2), uint(2)
	if !typeA {
		dlBits, ulBits = 1, 3
	}

	start := pos
	count := uint(bitio.GetBitsAsUint64(data, pos, countBits))
	pos += countBits
	for i := uint(0); i < count; i++ {
		hexID := uint8(bitio.GetBitsAsUint64(data, pos, hexIDBits))
		pos += hexIDBits
		pos += statusDCSBits // per-satellite DCS field: on the wire, unused
		dl := bitio.GetBitsAsUint64(data, pos, dlBits)
		pos += dlBits
		ul := bitio.GetBitsAsUint64(data, pos, ulBits)
		pos += ulBits

		result.Status[hexID] = statusEntry{
			hexID:    hexID,
			dcsID:    dcs,
			downlink: decodeDownlink(dl, typeA),
			uplink:   decodeUplink(ul, hexID),
		}
	}
	if d.ToleratePaddedStatus && count%2 == 0 {
		pos += 4
	}
	if pos-start > maxBits {
		pos = start + maxBits
	}
	return pos
}

// decodeDownlink converts a raw downlink status field into a
// DownlinkStatus. Type A reports ON only for status 3; type B reports ON
// only for status 1 - any other value, including a nonzero type-A value
// of 1 or 2, is OFF.
func decodeDownlink(v uint64, typeA bool) model.DownlinkStatus {
	if typeA {
		if v == 3 {
			return model.DownlinkOnWithA3
		}
		return model.DownlinkOff
	}
	if v == 1 {
		return model.DownlinkOnWithA3
	}
	return model.DownlinkOff
}

// decodeUplink converts a raw uplink status field into an UplinkStatus.
// Hex IDs 0x5 and 0x8 use a distinct status table (statuses 0-2 all mean
// ON_WITH_A2); every other hex ID uses the normal table (0: ON_WITH_A3,
// 1: ON_WITH_NEO, 2: ON_WITH_A4), with 3 meaning OFF in both tables.
func decodeUplink(v uint64, hexID uint8) model.UplinkStatus {
	if hexID == 0x5 || hexID == 0x8 {
		switch v {
		case 0, 1, 2:
			return model.UplinkOnWithA2
		default:
			return model.UplinkOff
		}
	}
	switch v {
	case 0:
		return model.UplinkOnWithA3
	case 1:
		return model.UplinkOnWithNEO
	case 2:
		return model.UplinkOnWithA4
	default:
		return model.UplinkOff
	}
}

// decodeOrbitBody reads an orbit-parameter body: exactly one satellite
// per 0xBE/0xD4 packet (unlike decodeStatusBody, there is no leading
// count field and no record loop). Field order is hexID, a discarded
// bulletin-type, the 44-bit BCD bulletin date, then the 86-bit bulletin
// of orbital scalars, each a plain (unsigned) bit field scaled and
// offset by the caller-supplied per-addressee bases.
func (d *Decoder) decodeOrbitBody(data []byte, pos, maxBits uint, bases orbitBases, result *DecodeResult) uint {
	start := pos
	hexID := uint8(bitio.GetBitsAsUint64(data, pos, hexIDBits))
	pos += hexIDBits
	pos += bulletinTypeBits // bulletin type: on the wire, unused

	yearByte := bitio.GetBitsAsUint64(data, pos, yearBCDBits)
	pos += yearBCDBits
	doy := bitio.GetBitsAsUint64(data, pos, dayOfYearBits)
	pos += dayOfYearBits
	hourByte := bitio.GetBitsAsUint64(data, pos, hourBCDBits)
	pos += hourBCDBits
	minByte := bitio.GetBitsAsUint64(data, pos, minuteBCDBits)
	pos += minuteBCDBits
	secByte := bitio.GetBitsAsUint64(data, pos, secondBCDBits)
	pos += secondBCDBits

	ascNodeLon := bitio.GetBitsAsUint64(data, pos, ascNodeLonBits)
	pos += ascNodeLonBits
	nodeDrift := bitio.GetBitsAsUint64(data, pos, nodeDriftBits)
	pos += nodeDriftBits
	period := bitio.GetBitsAsUint64(data, pos, orbitPeriodBits)
	pos += orbitPeriodBits
	sma := bitio.GetBitsAsUint64(data, pos, semiMajorAxisBits)
	pos += semiMajorAxisBits
	smaDrift := bitio.GetBitsAsUint64(data, pos, smaDriftBits)
	pos += smaDriftBits
	incl := bitio.GetBitsAsUint64(data, pos, inclinationBits)
	pos += inclinationBits

	result.Orbit[hexID] = orbitEntry{
		hexID:            hexID,
		bulletin:         decodeBulletinTime(yearByte, doy, hourByte, minByte, secByte),
		semiMajorAxisKM:  float64(sma)/1000 + bases.semiMajorAxisKM,
		inclinationDeg:   float64(incl)/10000 + bases.inclinationDeg,
		ascNodeLonDeg:    float64(ascNodeLon) / 1000,
		ascNodeDriftDeg:  float64(nodeDrift)/1000 + bases.nodeDriftDeg,
		orbitPeriodMin:   float64(period)/1000 + bases.orbitPeriodMin,
		smaDriftKMPerDay: float64(smaDrift) * -0.1,
	}
	if pos-start > maxBits {
		pos = start + maxBits
	}
	return pos
}
