package geo

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	// register manufacturer-specific note parsers so vendor fields decode correctly
	exif.RegisterParsers(mknote.All...)
}

// ExifExtractor is the structured-parse strategy: a full-buffer EXIF decode
// via goexif. It returns the richest metadata (camera make/model, capture
// timestamp) alongside the GPS block when one is present.
type ExifExtractor struct{}

func NewExifExtractor() *ExifExtractor {
	return &ExifExtractor{}
}

func (e *ExifExtractor) Name() string { return "exif" }

func (e *ExifExtractor) Extract(data []byte) Result {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return Failed(fmt.Errorf("exif decode failed: %w", err))
	}

	res := NotFound()
	res.CameraMake = getExifString(x, exif.Make)
	res.CameraModel = getExifString(x, exif.Model)

	lat, lng, err := x.LatLong()
	if err != nil {
		// no GPS block, or an inconsistent coordinate/reference pair
		return res
	}
	if !ValidLatitude(lat) || !ValidLongitude(lng) {
		return res
	}

	loc := Location{Latitude: lat, Longitude: lng}

	if alt := getExifAltitude(x); alt != nil {
		loc.Altitude = alt
	}
	if dt, err := x.DateTime(); err == nil {
		loc.CapturedAt = &dt
	}

	found := Found(loc)
	found.CameraMake = res.CameraMake
	found.CameraModel = res.CameraModel
	return found
}

func getExifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil || tag == nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(val), "\x00")
}

// getExifAltitude reads GPSAltitude, applying the below-sea-level reference
func getExifAltitude(x *exif.Exif) *float64 {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil || tag == nil {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	alt := float64(num) / float64(den)

	if refTag, err := x.Get(exif.GPSAltitudeRef); err == nil && refTag != nil {
		if ref, err := refTag.Int(0); err == nil && ref == 1 {
			alt = -alt
		}
	}
	return &alt
}
