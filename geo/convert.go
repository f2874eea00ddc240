package geo

import (
	"fmt"
	"math"
)

// Rational is a numerator/denominator pair as stored in EXIF GPS tags.
type Rational struct {
	Num int64
	Den int64
}

// Float converts the rational to a float64, failing on a zero denominator.
func (r Rational) Float() (float64, error) {
	if r.Den == 0 {
		return 0, fmt.Errorf("rational %d/%d has zero denominator", r.Num, r.Den)
	}
	return float64(r.Num) / float64(r.Den), nil
}

// DMSToDecimal converts a degrees/minutes/seconds triple plus a hemisphere
// reference ('N', 'S', 'E', 'W') into signed decimal degrees. Malformed input
// (wrong component count, zero denominators, non-finite values, unknown
// reference) is an explicit error rather than a silent 0, since 0,0 is a real
// ocean coordinate.
func DMSToDecimal(dms []Rational, ref byte) (float64, error) {
	if len(dms) != 3 {
		return 0, fmt.Errorf("expected 3 DMS components, got %d", len(dms))
	}

	deg, err := dms[0].Float()
	if err != nil {
		return 0, fmt.Errorf("invalid degrees: %w", err)
	}
	min, err := dms[1].Float()
	if err != nil {
		return 0, fmt.Errorf("invalid minutes: %w", err)
	}
	sec, err := dms[2].Float()
	if err != nil {
		return 0, fmt.Errorf("invalid seconds: %w", err)
	}

	dd := deg + min/60.0 + sec/3600.0
	if math.IsNaN(dd) || math.IsInf(dd, 0) {
		return 0, fmt.Errorf("DMS conversion produced non-finite value")
	}

	switch ref {
	case 'N', 'E':
		return dd, nil
	case 'S', 'W':
		return -dd, nil
	default:
		return 0, fmt.Errorf("unknown hemisphere reference %q", string(ref))
	}
}

// ValidLatitude reports whether lat is a valid geographic latitude.
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90.0 && lat <= 90.0
}

// ValidLongitude reports whether lng is a valid geographic longitude.
func ValidLongitude(lng float64) bool {
	return !math.IsNaN(lng) && lng >= -180.0 && lng <= 180.0
}
