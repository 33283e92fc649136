package passpredict

import "github.com/pelagos-tag/tracker-core/internal/model"

// combine produces the emitted AOP records for every hex ID present in
// both intermediate maps, per spec.md §4.4 rule 2 ("an AOP record is
// emitted only when both maps contain the same hex ID").
func combine(r *DecodeResult) map[uint8]model.AOPRecord {
	out := map[uint8]model.AOPRecord{}
	for hexID, orbit := range r.Orbit {
		status, ok := r.Status[hexID]
		if !ok {
			continue
		}
		out[hexID] = model.AOPRecord{
			SatHexID:                   hexID,
			DCSID:                      status.dcsID,
			DownlinkStatus:             status.downlink,
			UplinkStatus:               status.uplink,
			Bulletin:                   orbit.bulletin,
			SemiMajorAxisKM:            orbit.semiMajorAxisKM,
			InclinationDeg:             orbit.inclinationDeg,
			AscNodeLonDeg:              orbit.ascNodeLonDeg,
			AscNodeDriftDeg:            orbit.ascNodeDriftDeg,
			OrbitPeriodMin:             orbit.orbitPeriodMin,
			SemiMajorAxisDriftKMPerDay: orbit.smaDriftKMPerDay,
		}
	}
	return out
}

// statusIsOff reports whether both the downlink and uplink statuses are
// OFF, matching argos_rx_service.cpp's "!(downlinkStatus||uplinkStatus)"
// check (translated from the firmware's boolean-valued status enums).
func statusIsOff(r model.AOPRecord) bool {
	return r.DownlinkStatus == model.DownlinkOff && r.UplinkStatus == model.UplinkOff
}

// MergeResult reports whether the merge committed and, if so, the
// resulting database.
type MergeResult struct {
	Committed    bool
	UpdatedCount int
	Database     model.PassPredict
}

// Merge applies the new records decoded from an allcast burst against
// the existing pass-predict database, following
// ArgosRxService::update_pass_predict's exact commit rule: for each new
// record, match by hex ID; if the bulletin is non-empty and status is
// non-OFF, overwrite the full record; if status is OFF, update only the
// status fields; otherwise append while there is room. The merge
// commits only when every new record was applied AND the resulting
// count did not shrink the database.
func Merge(existing model.PassPredict, decoded *DecodeResult) MergeResult {
	newRecords := combine(decoded)

	updated := make([]model.AOPRecord, len(existing.Records))
	copy(updated, existing.Records)

	updatedCount := 0
	for hexID, nr := range newRecords {
		idx := -1
		for i, er := range updated {
			if er.SatHexID == hexID {
				idx = i
				break
			}
		}

		switch {
		case idx >= 0 && !nr.Bulletin.IsZero() && !statusIsOff(nr):
			updated[idx] = nr
			updatedCount++
		case idx >= 0 && statusIsOff(nr):
			updated[idx].DownlinkStatus = nr.DownlinkStatus
			updated[idx].UplinkStatus = nr.UplinkStatus
			updatedCount++
		case idx < 0 && len(updated) < model.MaxAOPSatelliteEntries:
			updated = append(updated, nr)
			updatedCount++
		case idx < 0:
			// No room and no existing record to update - dropped.
		default:
			updatedCount++
		}
	}

	committed := updatedCount == len(newRecords) && updatedCount >= len(existing.Records)
	if !committed {
		return MergeResult{Committed: false, UpdatedCount: updatedCount, Database: existing}
	}
	return MergeResult{Committed: true, UpdatedCount: updatedCount, Database: model.PassPredict{Records: updated}}
}
