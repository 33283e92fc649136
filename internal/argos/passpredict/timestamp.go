package passpredict

import "github.com/pelagos-tag/tracker-core/internal/model"

const (
	yearBCDBits   = 8 // two BCD digits: tens, units
	dayOfYearBits = 12 // three BCD digits
	hourBCDBits   = 8
	minuteBCDBits = 8
	secondBCDBits = 8

	timestampBits = yearBCDBits + dayOfYearBits + hourBCDBits + minuteBCDBits + secondBCDBits
)

func bcdDigit(v uint64) int {
	return int(v & 0xF)
}

// decodeBCDPair decodes a two-BCD-digit byte (tens in the high nibble,
// units in the low nibble) into its decimal value.
func decodeBCDPair(v uint64) int {
	tens := bcdDigit(v >> 4)
	units := bcdDigit(v)
	return tens*10 + units
}

// decodeBCDTriple decodes a three-BCD-digit, 12-bit value (one nibble per
// digit, most significant first) into its decimal value.
func decodeBCDTriple(v uint64) int {
	d1 := bcdDigit(v >> 8)
	d2 := bcdDigit(v >> 4)
	d3 := bcdDigit(v)
	return d1*100 + d2*10 + d3
}

func encodeBCDPair(v int) uint64 {
	return uint64((v/10)<<4 | (v % 10))
}

func encodeBCDTriple(v int) uint64 {
	h := v / 100
	t := (v / 10) % 10
	u := v % 10
	return uint64(h<<8 | t<<4 | u)
}

// dayOfYearToMonthDay converts a 1-based day-of-year to month/day for a
// given Gregorian year, leap years included, per spec.md §4.4's "standard
// conversion".
func dayOfYearToMonthDay(year, doy int) (month, day int) {
	daysInMonth := []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if isLeapYear(year) {
		daysInMonth[1] = 29
	}
	remaining := doy
	for i, d := range daysInMonth {
		if remaining <= d {
			return i + 1, remaining
		}
		remaining -= d
	}
	return 12, 31
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func decodeBulletinTime(yearByte, doy12, hourByte, minByte, secByte uint64) model.BulletinTime {
	year := 2000 + decodeBCDPair(yearByte)
	doy := decodeBCDTriple(doy12)
	if doy == 0 {
		return model.BulletinTime{}
	}
	month, day := dayOfYearToMonthDay(year, doy)
	return model.BulletinTime{
		Year: year, Month: month, Day: day,
		Hour: decodeBCDPair(hourByte), Minute: decodeBCDPair(minByte), Second: decodeBCDPair(secByte),
	}
}
