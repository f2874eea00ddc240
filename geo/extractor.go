package geo

import "time"

// Outcome tags an extraction Result.
type Outcome int

const (
	// OutcomeFound means the extractor resolved an unambiguous coordinate pair.
	OutcomeFound Outcome = iota
	// OutcomeNotFound means the image carried no usable GPS metadata.
	OutcomeNotFound
	// OutcomeFailed means the extractor hit a parse error. Callers treat this
	// the same as OutcomeNotFound; Err is kept for logging only.
	OutcomeFailed
)

// Location is a resolved coordinate pair. Latitude and Longitude are always
// both set; a Location is never partially populated.
type Location struct {
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Altitude   *float64   `json:"altitude,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// Result is the normalized output of a metadata extraction attempt.
type Result struct {
	Outcome     Outcome
	Location    *Location // non-nil iff Outcome == OutcomeFound
	CameraMake  string
	CameraModel string
	Err         error // non-nil iff Outcome == OutcomeFailed
}

// HasGPS reports whether the result carries a resolved coordinate pair.
func (r Result) HasGPS() bool {
	return r.Outcome == OutcomeFound && r.Location != nil
}

// Found builds a successful result for the given location.
func Found(loc Location) Result {
	return Result{Outcome: OutcomeFound, Location: &loc}
}

// NotFound builds a result for an image without usable GPS metadata.
func NotFound() Result {
	return Result{Outcome: OutcomeNotFound}
}

// Failed builds a result for a parse error inside an extractor.
func Failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

// Extractor attempts to locate and decode embedded positioning metadata in a
// raw image buffer. Implementations must not panic past their boundary and
// must not assume any other extractor exists.
type Extractor interface {
	Name() string
	Extract(data []byte) Result
}
