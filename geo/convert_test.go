package geo

import (
	"math"
	"testing"
)

func rat(num, den int64) Rational { return Rational{Num: num, Den: den} }

func TestDMSToDecimal_SignRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dms  []Rational
		ref  byte
		want float64
	}{
		{"north", []Rational{rat(40, 1), rat(0, 1), rat(0, 1)}, 'N', 40.0},
		{"south", []Rational{rat(40, 1), rat(0, 1), rat(0, 1)}, 'S', -40.0},
		{"east", []Rational{rat(2, 1), rat(30, 1), rat(0, 1)}, 'E', 2.5},
		{"west", []Rational{rat(74, 1), rat(0, 1), rat(216, 10)}, 'W', -74.006},
		{"fractional degrees", []Rational{rat(121, 2), rat(0, 1), rat(0, 1)}, 'N', 60.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DMSToDecimal(tt.dms, tt.ref)
			if err != nil {
				t.Fatalf("DMSToDecimal error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestDMSToDecimal_SpecScenario(t *testing.T) {
	t.Parallel()

	lat, err := DMSToDecimal([]Rational{rat(40, 1), rat(0, 1), rat(0, 1)}, 'N')
	if err != nil {
		t.Fatalf("latitude conversion error: %v", err)
	}
	lng, err := DMSToDecimal([]Rational{rat(74, 1), rat(0, 1), rat(216, 10)}, 'W')
	if err != nil {
		t.Fatalf("longitude conversion error: %v", err)
	}
	if math.Abs(lat-40.0) > 1e-6 {
		t.Errorf("latitude: got %v want 40.0", lat)
	}
	if math.Abs(lng-(-74.006)) > 1e-5 {
		t.Errorf("longitude: got %v want -74.006", lng)
	}
}

func TestDMSToDecimal_RoundTripMagnitude(t *testing.T) {
	t.Parallel()

	// converting back from decimal degrees reconstructs the DMS magnitude
	dms := []Rational{rat(51, 1), rat(28, 1), rat(382, 10)}
	dd, err := DMSToDecimal(dms, 'N')
	if err != nil {
		t.Fatalf("DMSToDecimal error: %v", err)
	}

	deg := math.Trunc(dd)
	rem := (dd - deg) * 60
	min := math.Trunc(rem)
	sec := (rem - min) * 60

	if deg != 51 || min != 28 || math.Abs(sec-38.2) > 1e-6 {
		t.Fatalf("round trip mismatch: got %v° %v' %v\"", deg, min, sec)
	}
}

func TestDMSToDecimal_MalformedInput(t *testing.T) {
	t.Parallel()

	valid := []Rational{rat(10, 1), rat(0, 1), rat(0, 1)}

	if _, err := DMSToDecimal(valid[:2], 'N'); err == nil {
		t.Error("expected error for fewer than 3 components")
	}
	if _, err := DMSToDecimal([]Rational{rat(10, 0), rat(0, 1), rat(0, 1)}, 'N'); err == nil {
		t.Error("expected error for zero denominator")
	}
	if _, err := DMSToDecimal(valid, 'X'); err == nil {
		t.Error("expected error for unknown hemisphere reference")
	}
	if _, err := DMSToDecimal(nil, 'N'); err == nil {
		t.Error("expected error for nil components")
	}
}

func TestValidCoordinateRanges(t *testing.T) {
	t.Parallel()

	if !ValidLatitude(90) || !ValidLatitude(-90) || !ValidLatitude(0) {
		t.Error("boundary latitudes should be valid")
	}
	if ValidLatitude(90.0001) || ValidLatitude(math.NaN()) {
		t.Error("out-of-range latitudes should be invalid")
	}
	if !ValidLongitude(180) || !ValidLongitude(-180) {
		t.Error("boundary longitudes should be valid")
	}
	if ValidLongitude(-180.5) {
		t.Error("out-of-range longitude should be invalid")
	}
}
