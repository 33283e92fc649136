package config

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/pelagos-tag/tracker-core/internal/model"
)

func unixTime(sec uint64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}

func typeMatchesEncoding(def ParamDef, v any) bool {
	switch def.Encoding {
	case EncodingUnsigned:
		_, ok := v.(uint32)
		return ok
	case EncodingFloat:
		_, ok := v.(float64)
		return ok
	case EncodingBoolean:
		_, ok := v.(bool)
		return ok
	case EncodingText:
		_, ok := v.(string)
		return ok
	case EncodingEnum:
		switch v.(type) {
		case model.ArgosMode, model.PowerClass:
			return true
		default:
			return false
		}
	default:
		return true
	}
}

// encodeValue writes v's binary representation into the first bytes of
// dst (128 bytes, zero-padded), matching serialize_config_entry's
// std::memcpy-into-fixed-buffer approach.
func encodeValue(def ParamDef, v any, dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
	switch def.Encoding {
	case EncodingUnsigned:
		binary.LittleEndian.PutUint32(dst, v.(uint32))
	case EncodingFloat:
		binary.LittleEndian.PutUint64(dst, floatBits(v.(float64)))
	case EncodingBoolean:
		if v.(bool) {
			dst[0] = 1
		}
	case EncodingText:
		copy(dst, v.(string))
	case EncodingEnum:
		iv, _ := toInt64(v)
		binary.LittleEndian.PutUint32(dst, uint32(iv))
	}
}

func decodeValue(def ParamDef, src []byte) (any, bool) {
	if len(src) < valueLength {
		return nil, false
	}
	switch def.Encoding {
	case EncodingUnsigned:
		return binary.LittleEndian.Uint32(src[:4]), true
	case EncodingFloat:
		return floatFromBits(binary.LittleEndian.Uint64(src[:8])), true
	case EncodingBoolean:
		return src[0] != 0, true
	case EncodingText:
		n := 0
		for n < len(src) && src[n] != 0 {
			n++
		}
		return string(src[:n]), true
	case EncodingEnum:
		raw := binary.LittleEndian.Uint32(src[:4])
		return decodeEnum(def.ID, raw), true
	default:
		return nil, false
	}
}

func decodeEnum(id ParamID, raw uint32) any {
	switch id {
	case ArgosMode:
		return model.ArgosMode(raw)
	case ArgosPower, LBArgosPower:
		return model.PowerClass(raw)
	default:
		return raw
	}
}

// floatBits and floatFromBits convert between a float64 and its IEEE-754
// 64-bit representation, the on-disk form of every float field.
func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}

func floatFromBits(b uint64) float64 {
	return math.Float64frombits(b)
}

const zoneBlobVersion = 0x00010000

// encodeZone serialises a single CIRCLE zone: version(4) + type(4) +
// 4 float64s (centre lon/lat, radius, unused) + activation flag(1) +
// activation unix seconds(8).
func encodeZone(z model.Zone) []byte {
	buf := make([]byte, 4+4+8*4+1+8)
	binary.LittleEndian.PutUint32(buf[0:4], zoneBlobVersion)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(z.Type))
	binary.LittleEndian.PutUint64(buf[8:16], floatBits(z.CentreLongitudeDegrees))
	binary.LittleEndian.PutUint64(buf[16:24], floatBits(z.CentreLatitudeDegrees))
	binary.LittleEndian.PutUint64(buf[24:32], floatBits(z.RadiusMetres))
	if z.ActivationEnabled {
		buf[40] = 1
	}
	binary.LittleEndian.PutUint64(buf[41:49], uint64(z.ActivationDate.Unix()))
	return buf
}

func decodeZone(data []byte) (model.Zone, bool) {
	if len(data) < 49 || binary.LittleEndian.Uint32(data[0:4]) != zoneBlobVersion {
		return model.Zone{}, false
	}
	z := model.Zone{
		Type:                   model.ZoneType(binary.LittleEndian.Uint32(data[4:8])),
		CentreLongitudeDegrees: floatFromBits(binary.LittleEndian.Uint64(data[8:16])),
		CentreLatitudeDegrees:  floatFromBits(binary.LittleEndian.Uint64(data[16:24])),
		RadiusMetres:           floatFromBits(binary.LittleEndian.Uint64(data[24:32])),
		ActivationEnabled:      data[40] != 0,
	}
	z.ActivationDate = unixTime(binary.LittleEndian.Uint64(data[41:49]))
	return z, true
}

const (
	passPredictBlobVersion = 0x00010000
	aopRecordSize          = 4 + 6*2 + 6*8 // hexID,dcsID,downlink,uplink (1 byte each) + Y/M/D/H/M/S (uint16 each) + 6 float64 scalars
)

// encodePassPredict serialises the pass-predict database: version(4) +
// count(4) + count*aopRecordSize fixed-width records, matching
// BasePassPredict's "single record file" persistence shape.
func encodePassPredict(pp model.PassPredict) []byte {
	buf := make([]byte, 8+len(pp.Records)*aopRecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], passPredictBlobVersion)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(pp.Records)))
	for i, r := range pp.Records {
		off := 8 + i*aopRecordSize
		rec := buf[off : off+aopRecordSize]
		rec[0] = r.SatHexID
		rec[1] = r.DCSID
		rec[2] = byte(r.DownlinkStatus)
		rec[3] = byte(r.UplinkStatus)
		binary.LittleEndian.PutUint16(rec[4:6], uint16(r.Bulletin.Year))
		binary.LittleEndian.PutUint16(rec[6:8], uint16(r.Bulletin.Month))
		binary.LittleEndian.PutUint16(rec[8:10], uint16(r.Bulletin.Day))
		binary.LittleEndian.PutUint16(rec[10:12], uint16(r.Bulletin.Hour))
		binary.LittleEndian.PutUint16(rec[12:14], uint16(r.Bulletin.Minute))
		binary.LittleEndian.PutUint16(rec[14:16], uint16(r.Bulletin.Second))
		scalars := []float64{r.SemiMajorAxisKM, r.InclinationDeg, r.AscNodeLonDeg, r.AscNodeDriftDeg, r.OrbitPeriodMin, r.SemiMajorAxisDriftKMPerDay}
		for j, v := range scalars {
			binary.LittleEndian.PutUint64(rec[16+j*8:24+j*8], floatBits(v))
		}
	}
	return buf
}

func decodePassPredict(data []byte) (model.PassPredict, bool) {
	if len(data) < 8 || binary.LittleEndian.Uint32(data[0:4]) != passPredictBlobVersion {
		return model.PassPredict{}, false
	}
	count := int(binary.LittleEndian.Uint32(data[4:8]))
	if count < 0 || count > model.MaxAOPSatelliteEntries || 8+count*aopRecordSize > len(data) {
		return model.PassPredict{}, false
	}
	pp := model.PassPredict{Records: make([]model.AOPRecord, count)}
	for i := 0; i < count; i++ {
		off := 8 + i*aopRecordSize
		rec := data[off : off+aopRecordSize]
		scalars := make([]float64, 6)
		for j := range scalars {
			scalars[j] = floatFromBits(binary.LittleEndian.Uint64(rec[16+j*8 : 24+j*8]))
		}
		pp.Records[i] = model.AOPRecord{
			SatHexID:       rec[0],
			DCSID:          rec[1],
			DownlinkStatus: model.DownlinkStatus(rec[2]),
			UplinkStatus:   model.UplinkStatus(rec[3]),
			Bulletin: model.BulletinTime{
				Year: int(binary.LittleEndian.Uint16(rec[4:6])), Month: int(binary.LittleEndian.Uint16(rec[6:8])), Day: int(binary.LittleEndian.Uint16(rec[8:10])),
				Hour: int(binary.LittleEndian.Uint16(rec[10:12])), Minute: int(binary.LittleEndian.Uint16(rec[12:14])), Second: int(binary.LittleEndian.Uint16(rec[14:16])),
			},
			SemiMajorAxisKM: scalars[0], InclinationDeg: scalars[1], AscNodeLonDeg: scalars[2],
			AscNodeDriftDeg: scalars[3], OrbitPeriodMin: scalars[4], SemiMajorAxisDriftKMPerDay: scalars[5],
		}
	}
	return pp, true
}
