// Package packet builds bit-exact Argos uplink frames (short, long,
// doppler and certification) from GPS fixes, mirroring
// ArgosPacketBuilder from the firmware's argos_tx_service.hpp. Bit I/O
// is done with internal/bitio, the writer counterpart of the teacher's
// GetBitsAsUint64/GetBitsAsInt64 readers.
package packet

import (
	"fmt"
	"time"

	"github.com/pelagos-tag/tracker-core/internal/bitio"
	"github.com/pelagos-tag/tracker-core/internal/model"
)

// Frame bit widths, named exactly as ArgosPacketBuilder's static
// constants in argos_tx_service.hpp.
const (
	ShortPacketBits  = 120
	LongPacketBits   = 248
	DopplerPacketBits = 24

	mvPerUnit        = 20
	refBattMV        = 2700
	metresPerUnit    = 40
	degreesPerUnit   = 1.0 / 1.42
	lonLatResolution = 10000
	minAltitude      = 0
	maxAltitude      = 254
	invalidAltitude  = 255
	maxGPSEntriesInPacket = 4
)

// field widths for the short/long header, chosen so that the header plus
// CRC sums to exactly 120 bits (8-bit CRC over the remaining 112 bits),
// resolving a 9-bit overcount in the literal per-field widths against
// the frame total - see DESIGN.md "packet bit width resolution".
const (
	crcBits       = 8
	timestampBits = 27
	batteryBits   = 7
	latitudeBits  = 21
	longitudeBits = 22
	altitudeBits  = 8
	flagBits      = 3
	headingBits   = 8
	speedBits     = 8
	counterBits   = 8

	// Long packet deltas: scaled down from the primary fix's lat/lon/alt/
	// heading/speed widths so that crc(8) + header(88) + tag(2) + 3*delta(50)
	// == LongPacketBits (248). See DESIGN.md.
	deltaTagBits     = 2
	latDeltaBits     = 16
	lonDeltaBits     = 17
	altDeltaBits     = 8
	headingDeltaBits = 5
	speedDeltaBits   = 4
)

// packetEpoch is the device's compact mission epoch for the 27-bit
// timestamp field (10-bit days-since-epoch + 17-bit seconds-of-day).
var packetEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeltaTimeLoc is the 2-bit age tag on the long packet's delta-fix block.
type DeltaTimeLoc int

const (
	DeltaTime10Min DeltaTimeLoc = iota
	DeltaTime30Min
	DeltaTime1Hour
	DeltaTime3Hour
	DeltaTime6Hour
	DeltaTime12Hour
	DeltaTime1Day
	DeltaTimeNoHistory
)

// CRC8 computes the 8-bit CRC over a packet's payload bytes with poly
// 0x31 and init 0x00, shifting MSB-first with no input or output
// reflection. No third-party CRC-8 implementation is present in
// the example pack - go-crc24q computes a 24-bit CRC for a different
// polynomial and width - so this is a from-scratch bit-by-bit
// implementation, documented as the one deliberate stdlib-only exception
// in DESIGN.md.
func CRC8(data []byte) uint8 {
	const poly = 0x31
	var crc uint8
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func convertBattery(mv uint16) uint64 {
	if mv < refBattMV {
		return 0
	}
	v := (uint64(mv) - refBattMV) / mvPerUnit
	if v > (1<<batteryBits)-1 {
		v = (1 << batteryBits) - 1
	}
	return v
}

func convertLatitude(lat float64) uint64 {
	v := uint64((lat + 90) * lonLatResolution)
	return v & ((1 << latitudeBits) - 1)
}

func convertLongitude(lon float64) uint64 {
	var scaled float64
	if lon < 0 {
		scaled = (lon + 360) * lonLatResolution
	} else {
		scaled = lon * lonLatResolution
	}
	return uint64(scaled) & ((1 << longitudeBits) - 1)
}

func convertAltitude(heightMM int32) uint64 {
	if heightMM < 0 {
		return 0
	}
	v := uint64(heightMM) / 1000 / metresPerUnit
	if v > maxAltitude {
		return invalidAltitude
	}
	return v
}

func convertHeading(headingDegrees float64) uint64 {
	return uint64(headingDegrees/degreesPerUnit) & 0xFF
}

func convertSpeed(speedMMS int32) uint64 {
	speedMS := float64(speedMMS) / 1000
	return uint64(speedMS*metresPerUnit) & 0xFF
}

func timestampFields(t time.Time) (daysSinceEpoch uint64, secondsOfDay uint64) {
	days := uint64(t.UTC().Sub(packetEpoch).Hours() / 24)
	sod := uint64(t.UTC().Hour()*3600 + t.UTC().Minute()*60 + t.UTC().Second())
	return days & ((1 << 10) - 1), sod & ((1 << 17) - 1)
}

// Flags bundles the short/long header's three flag bits.
type Flags struct {
	LowBattery   bool
	OutOfZone    bool
	LastKnownPos bool
}

func (f Flags) bits() uint64 {
	var v uint64
	if f.LowBattery {
		v |= 1 << 2
	}
	if f.OutOfZone {
		v |= 1 << 1
	}
	if f.LastKnownPos {
		v |= 1
	}
	return v
}

func writeHeader(w *bitio.Writer, fix model.Fix, flags Flags) {
	days, sod := timestampFields(fix.Time)
	w.PutBitsFromUint64(days, 10)
	w.PutBitsFromUint64(sod, 17)
	w.PutBitsFromUint64(convertBattery(fix.BatteryMV), batteryBits)
	w.PutBitsFromUint64(convertLatitude(fix.LatitudeDegrees), latitudeBits)
	w.PutBitsFromUint64(convertLongitude(fix.LongitudeDegrees), longitudeBits)
	w.PutBitsFromUint64(convertAltitude(fix.HeightAboveMSLMM), altitudeBits)
	w.PutBitsFromUint64(flags.bits(), flagBits)
}

// BuildShort encodes a 120-bit short packet from a single fix.
func BuildShort(fix model.Fix, outOfZone, lowBattery bool, txCounter uint32) []byte {
	w := bitio.NewWriter(ShortPacketBits - crcBits)
	writeHeader(w, fix, Flags{LowBattery: lowBattery, OutOfZone: outOfZone})
	w.PutBitsFromUint64(convertHeading(fix.HeadingDegrees), headingBits)
	w.PutBitsFromUint64(convertSpeed(fix.GroundSpeedMMS), speedBits)
	w.PutBitsFromUint64(uint64(txCounter)&0xFF, counterBits)

	payload := w.Bytes()
	out := make([]byte, ShortPacketBits/8)
	out[0] = CRC8(payload)
	copy(out[1:], payload)
	return out
}

// BuildLong encodes a 248-bit long packet from up to maxGPSEntriesInPacket
// fixes: fixes[0] is the primary position, fixes[1:] are progressively
// older deltas. Missing deltas are filled with all-ones, per §4.2.
func BuildLong(fixes []model.Fix, outOfZone, lowBattery bool, txCounter uint32, ageTag DeltaTimeLoc) ([]byte, error) {
	if len(fixes) == 0 {
		return nil, fmt.Errorf("packet: BuildLong requires at least one fix")
	}
	if len(fixes) > maxGPSEntriesInPacket {
		return nil, fmt.Errorf("packet: BuildLong got %d fixes, max is %d", len(fixes), maxGPSEntriesInPacket)
	}

	w := bitio.NewWriter(LongPacketBits - crcBits)
	writeHeader(w, fixes[0], Flags{LowBattery: lowBattery, OutOfZone: outOfZone})
	w.PutBitsFromUint64(uint64(ageTag), deltaTagBits)

	const numDeltas = maxGPSEntriesInPacket - 1
	for i := 0; i < numDeltas; i++ {
		if i+1 < len(fixes) {
			writeDelta(w, fixes[0], fixes[i+1])
		} else {
			writeAllOnesDelta(w)
		}
	}

	payload := w.Bytes()
	out := make([]byte, LongPacketBits/8)
	out[0] = CRC8(payload)
	copy(out[1:], payload)
	return out, nil
}

func writeDelta(w *bitio.Writer, primary, older model.Fix) {
	latDelta := int64((primary.LatitudeDegrees - older.LatitudeDegrees) * lonLatResolution)
	lonDelta := int64((primary.LongitudeDegrees - older.LongitudeDegrees) * lonLatResolution)
	w.PutBitsFromInt64(clampSigned(latDelta, latDeltaBits), latDeltaBits)
	w.PutBitsFromInt64(clampSigned(lonDelta, lonDeltaBits), lonDeltaBits)
	w.PutBitsFromUint64(convertAltitude(older.HeightAboveMSLMM)&((1<<altDeltaBits)-1), altDeltaBits)
	w.PutBitsFromUint64(convertHeading(older.HeadingDegrees)&((1<<headingDeltaBits)-1), headingDeltaBits)
	w.PutBitsFromUint64(convertSpeed(older.GroundSpeedMMS)&((1<<speedDeltaBits)-1), speedDeltaBits)
}

func writeAllOnesDelta(w *bitio.Writer) {
	w.PutBitsFromUint64((1<<latDeltaBits)-1, latDeltaBits)
	w.PutBitsFromUint64((1<<lonDeltaBits)-1, lonDeltaBits)
	w.PutBitsFromUint64((1<<altDeltaBits)-1, altDeltaBits)
	w.PutBitsFromUint64((1<<headingDeltaBits)-1, headingDeltaBits)
	w.PutBitsFromUint64((1<<speedDeltaBits)-1, speedDeltaBits)
}

func clampSigned(v int64, bits uint) int64 {
	max := int64(1)<<(bits-1) - 1
	min := -(int64(1) << (bits - 1))
	if v > max {
		return max
	}
	if v < min {
		return min
	}
	return v
}

// BuildDoppler encodes a 24-bit doppler-only packet used when GNSS is
// disabled: battery level and the low-battery flag, no position.
func BuildDoppler(batteryMV uint16, lowBattery bool) []byte {
	w := bitio.NewWriter(DopplerPacketBits)
	w.PutBitsFromUint64(convertBattery(batteryMV), batteryBits)
	if lowBattery {
		w.PutBitsFromUint64(1, 1)
	} else {
		w.PutBitsFromUint64(0, 1)
	}
	return w.Bytes()
}

// BuildCertification zero-pads payload (already raw bytes) to bits total
// bits (120 or 248) and rejects a payload longer than that.
func BuildCertification(payload []byte, bits int) ([]byte, error) {
	if len(payload)*8 > bits {
		return nil, fmt.Errorf("packet: certification payload of %d bits exceeds frame size %d", len(payload)*8, bits)
	}
	out := make([]byte, bits/8)
	copy(out, payload)
	return out, nil
}
