// Package prepass predicts Argos satellite visibility windows from a
// pass-predict (AOP) database and a ground location, in the
// pure-function, sorted-passes-out shape of an ephemeris predictor: a
// small interface in, a []Pass out, with the orbital mechanics
// contained entirely inside the package.
package prepass

import (
	"math"
	"sort"
	"time"

	"github.com/pelagos-tag/tracker-core/internal/model"
)

const (
	earthRadiusKM    = 6371.0
	siderealDegPerSec = 360.98564724 / 86400.0
)

// Pass describes one predicted visibility window for a single satellite.
type Pass struct {
	SatHexID    uint8
	AOS         time.Time
	LOS         time.Time
	MaxElevDeg  float64
	MaxElevTime time.Time
	Duration    time.Duration
}

// groundTrack returns the satellite's sub-point (lon, lat, in degrees)
// and altitude (km) at time t, from a circular-orbit approximation of
// the AOP record's six scalar elements: mean motion from the orbital
// period, latitude excursion bounded by inclination, longitude from the
// regressing ascending node corrected for Earth's rotation since epoch.
func groundTrack(rec model.AOPRecord, t time.Time) (lonDeg, latDeg, altKM float64) {
	epoch := rec.Bulletin.Time()
	elapsedSec := t.Sub(epoch).Seconds()

	periodSec := rec.OrbitPeriodMin * 60.0
	if periodSec <= 0 {
		periodSec = 95 * 60.0
	}
	meanMotion := 2 * math.Pi / periodSec // rad/s
	argLat := meanMotion * elapsedSec     // argument of latitude since epoch, circular-orbit approximation

	incl := rec.InclinationDeg * math.Pi / 180
	latRad := math.Asin(math.Sin(incl) * math.Sin(argLat))
	nodeOffsetDeg := math.Atan2(math.Cos(incl)*math.Sin(argLat), math.Cos(argLat)) * 180 / math.Pi

	elapsedDays := elapsedSec / 86400.0
	ascNodeLonNow := rec.AscNodeLonDeg + rec.AscNodeDriftDeg*elapsedDays
	earthRotationDeg := siderealDegPerSec * elapsedSec

	lonDeg = normalizeLongitude(ascNodeLonNow + nodeOffsetDeg - earthRotationDeg)
	latDeg = latRad * 180 / math.Pi

	smaKM := rec.SemiMajorAxisKM + rec.SemiMajorAxisDriftKMPerDay*elapsedDays
	altKM = smaKM - earthRadiusKM
	return lonDeg, latDeg, altKM
}

func normalizeLongitude(deg float64) float64 {
	for deg > 180 {
		deg -= 360
	}
	for deg < -180 {
		deg += 360
	}
	return deg
}

// elevationDeg computes the satellite's elevation angle above the
// observer's horizon, from the central angle between observer and
// sub-satellite point and the satellite's altitude.
func elevationDeg(obsLonDeg, obsLatDeg, satLonDeg, satLatDeg, satAltKM float64) float64 {
	obsLat := obsLatDeg * math.Pi / 180
	satLat := satLatDeg * math.Pi / 180
	dLon := (satLonDeg - obsLonDeg) * math.Pi / 180

	cosGamma := math.Sin(obsLat)*math.Sin(satLat) + math.Cos(obsLat)*math.Cos(satLat)*math.Cos(dLon)
	cosGamma = math.Max(-1, math.Min(1, cosGamma))
	gamma := math.Acos(cosGamma)

	ratio := earthRadiusKM / (earthRadiusKM + satAltKM)
	elevRad := math.Atan2(cosGamma-ratio, math.Sin(gamma))
	return elevRad * 180 / math.Pi
}

// SubSatellitePoint returns the satellite's ground-track position
// (longitude, latitude, altitude in km) at time t, exposing groundTrack
// for callers that need the instantaneous position rather than a
// visibility search (e.g. aiming a test observer, or a status display).
func SubSatellitePoint(rec model.AOPRecord, t time.Time) (lonDeg, latDeg, altKM float64) {
	return groundTrack(rec, t)
}

// ComputePasses scans [start, end) at stepSeconds resolution and returns
// every contiguous window during which rec's satellite is above
// minElevationDeg, sorted by AOS ascending. A window open at end is
// closed at end (its LOS is reported as end).
func ComputePasses(rec model.AOPRecord, obsLonDeg, obsLatDeg float64, start, end time.Time, minElevationDeg float64, stepSeconds int) []Pass {
	if stepSeconds <= 0 {
		stepSeconds = 10
	}
	step := time.Duration(stepSeconds) * time.Second

	var passes []Pass
	var current *Pass

	for t := start; t.Before(end); t = t.Add(step) {
		lon, lat, alt := groundTrack(rec, t)
		elev := elevationDeg(obsLonDeg, obsLatDeg, lon, lat, alt)

		if elev >= minElevationDeg {
			if current == nil {
				current = &Pass{SatHexID: rec.SatHexID, AOS: t, MaxElevDeg: elev, MaxElevTime: t}
			} else if elev > current.MaxElevDeg {
				current.MaxElevDeg = elev
				current.MaxElevTime = t
			}
		} else if current != nil {
			current.LOS = t
			current.Duration = current.LOS.Sub(current.AOS)
			passes = append(passes, *current)
			current = nil
		}
	}
	if current != nil {
		current.LOS = end
		current.Duration = current.LOS.Sub(current.AOS)
		passes = append(passes, *current)
	}

	sort.Slice(passes, func(i, j int) bool { return passes[i].AOS.Before(passes[j].AOS) })
	return passes
}

// ComputeAllPasses runs ComputePasses across every satellite in db and
// merges the results into one AOS-ordered list.
func ComputeAllPasses(db model.PassPredict, obsLonDeg, obsLatDeg float64, start, end time.Time, minElevationDeg float64, stepSeconds int) []Pass {
	var all []Pass
	for _, rec := range db.Records {
		if rec.Bulletin.IsZero() {
			continue
		}
		all = append(all, ComputePasses(rec, obsLonDeg, obsLatDeg, start, end, minElevationDeg, stepSeconds)...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AOS.Before(all[j].AOS) })
	return all
}
