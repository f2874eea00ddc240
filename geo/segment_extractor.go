package geo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// JPEG markers relevant to the scan
const (
	jpegMarkerPrefix = 0xFF
	jpegSOI          = 0xD8
	jpegEOI          = 0xD9
	jpegSOS          = 0xDA
	jpegAPP1         = 0xE1
)

var exifSignature = []byte("Exif\x00\x00")

// TIFF field types used by the GPS IFD
const (
	tiffTypeByte     = 1
	tiffTypeASCII    = 2
	tiffTypeShort    = 3
	tiffTypeLong     = 4
	tiffTypeRational = 5
)

// GPS IFD tags
const (
	tagGPSLatitudeRef  = 0x0001
	tagGPSLatitude     = 0x0002
	tagGPSLongitudeRef = 0x0003
	tagGPSLongitude    = 0x0004
	tagGPSAltitudeRef  = 0x0005
	tagGPSAltitude     = 0x0006
	tagGPSTimeStamp    = 0x0007
	tagGPSDateStamp    = 0x001D

	tagGPSIFDPointer = 0x8825
)

// SegmentExtractor is the manual low-level strategy: it verifies the JPEG
// start-of-image marker, walks marker segments until the APP1 segment carrying
// the EXIF signature, decodes just that segment's TIFF structure and pulls the
// raw GPS tags, converting them through DMSToDecimal. It is deliberately
// narrower than the structured parse and fills no camera fields.
type SegmentExtractor struct{}

func NewSegmentExtractor() *SegmentExtractor {
	return &SegmentExtractor{}
}

func (e *SegmentExtractor) Name() string { return "segment" }

func (e *SegmentExtractor) Extract(data []byte) Result {
	payload, ok := findExifSegment(data)
	if !ok {
		return NotFound()
	}
	loc, err := parseGPSFromTIFF(payload)
	if err != nil {
		return Failed(fmt.Errorf("segment scan failed: %w", err))
	}
	if loc == nil {
		return NotFound()
	}
	return Found(*loc)
}

// findExifSegment walks JPEG marker segments and returns the TIFF portion of
// the first APP1 segment carrying the EXIF signature.
func findExifSegment(data []byte) ([]byte, bool) {
	if len(data) < 4 || data[0] != jpegMarkerPrefix || data[1] != jpegSOI {
		return nil, false
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != jpegMarkerPrefix {
			return nil, false
		}
		// skip fill bytes before the marker code
		for pos+1 < len(data) && data[pos+1] == jpegMarkerPrefix {
			pos++
		}
		if pos+4 > len(data) {
			return nil, false
		}
		marker := data[pos+1]

		// entropy-coded data follows SOS; no metadata past this point
		if marker == jpegSOS || marker == jpegEOI {
			return nil, false
		}
		// standalone markers carry no length field
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}

		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return nil, false
		}
		payload := data[pos+4 : pos+2+segLen]

		if marker == jpegAPP1 && bytes.HasPrefix(payload, exifSignature) {
			return payload[len(exifSignature):], true
		}
		pos += 2 + segLen
	}
	return nil, false
}

// tiffReader wraps a TIFF buffer with its detected byte order.
type tiffReader struct {
	data []byte
	bo   binary.ByteOrder
}

// ifdEntry is one 12-byte IFD directory entry.
type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	field []byte // the raw 4-byte value/offset field
}

func newTIFFReader(data []byte) (*tiffReader, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("TIFF header truncated (%d bytes)", len(data))
	}
	var bo binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		bo = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("unrecognized TIFF byte order marker %q", string(data[:2]))
	}
	if bo.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("bad TIFF magic")
	}
	return &tiffReader{data: data, bo: bo}, nil
}

// readIFD parses the directory at the given offset.
func (t *tiffReader) readIFD(offset uint32) ([]ifdEntry, error) {
	off := int(offset)
	if off < 0 || off+2 > len(t.data) {
		return nil, fmt.Errorf("IFD offset %d out of bounds", offset)
	}
	count := int(t.bo.Uint16(t.data[off : off+2]))
	end := off + 2 + count*12
	if end > len(t.data) {
		return nil, fmt.Errorf("IFD at %d overruns buffer", offset)
	}

	entries := make([]ifdEntry, 0, count)
	for i := 0; i < count; i++ {
		base := off + 2 + i*12
		entries = append(entries, ifdEntry{
			tag:   t.bo.Uint16(t.data[base : base+2]),
			typ:   t.bo.Uint16(t.data[base+2 : base+4]),
			count: t.bo.Uint32(t.data[base+4 : base+8]),
			field: t.data[base+8 : base+12],
		})
	}
	return entries, nil
}

func tiffTypeSize(typ uint16) int {
	switch typ {
	case tiffTypeByte, tiffTypeASCII:
		return 1
	case tiffTypeShort:
		return 2
	case tiffTypeLong:
		return 4
	case tiffTypeRational:
		return 8
	default:
		return 0
	}
}

// valueBytes resolves an entry's value, which lives inline in the 4-byte
// field when it fits and at an offset otherwise.
func (t *tiffReader) valueBytes(e ifdEntry) ([]byte, error) {
	size := tiffTypeSize(e.typ)
	if size == 0 {
		return nil, fmt.Errorf("unsupported TIFF type %d for tag 0x%04X", e.typ, e.tag)
	}
	total := size * int(e.count)
	if total <= 4 {
		return e.field[:total], nil
	}
	off := int(t.bo.Uint32(e.field))
	if off < 0 || off+total > len(t.data) {
		return nil, fmt.Errorf("value of tag 0x%04X out of bounds", e.tag)
	}
	return t.data[off : off+total], nil
}

func (t *tiffReader) readRationals(e ifdEntry) ([]Rational, error) {
	if e.typ != tiffTypeRational {
		return nil, fmt.Errorf("tag 0x%04X is not RATIONAL (type %d)", e.tag, e.typ)
	}
	raw, err := t.valueBytes(e)
	if err != nil {
		return nil, err
	}
	out := make([]Rational, e.count)
	for i := range out {
		out[i] = Rational{
			Num: int64(t.bo.Uint32(raw[i*8 : i*8+4])),
			Den: int64(t.bo.Uint32(raw[i*8+4 : i*8+8])),
		}
	}
	return out, nil
}

func (t *tiffReader) readASCII(e ifdEntry) (string, error) {
	if e.typ != tiffTypeASCII {
		return "", fmt.Errorf("tag 0x%04X is not ASCII (type %d)", e.tag, e.typ)
	}
	raw, err := t.valueBytes(e)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(raw, "\x00")), nil
}

// parseGPSFromTIFF walks IFD0 to the GPS sub-IFD and resolves a Location.
// A nil Location with nil error means the buffer simply carries no GPS block.
func parseGPSFromTIFF(data []byte) (*Location, error) {
	t, err := newTIFFReader(data)
	if err != nil {
		return nil, err
	}

	ifd0, err := t.readIFD(t.bo.Uint32(data[4:8]))
	if err != nil {
		return nil, err
	}

	var gpsOffset uint32
	var hasGPSIFD bool
	for _, e := range ifd0 {
		if e.tag == tagGPSIFDPointer && (e.typ == tiffTypeLong || e.typ == tiffTypeShort) {
			gpsOffset = t.bo.Uint32(e.field)
			hasGPSIFD = true
			break
		}
	}
	if !hasGPSIFD {
		return nil, nil
	}

	gpsIFD, err := t.readIFD(gpsOffset)
	if err != nil {
		return nil, err
	}

	var latRef, lngRef, dateStamp string
	var latDMS, lngDMS, timeStamp []Rational
	var altRat *Rational
	altBelowSea := false

	for _, e := range gpsIFD {
		switch e.tag {
		case tagGPSLatitudeRef:
			latRef, err = t.readASCII(e)
		case tagGPSLatitude:
			latDMS, err = t.readRationals(e)
		case tagGPSLongitudeRef:
			lngRef, err = t.readASCII(e)
		case tagGPSLongitude:
			lngDMS, err = t.readRationals(e)
		case tagGPSAltitudeRef:
			if e.typ == tiffTypeByte && e.count >= 1 {
				altBelowSea = e.field[0] == 1
			}
		case tagGPSAltitude:
			var rats []Rational
			if rats, err = t.readRationals(e); err == nil && len(rats) == 1 {
				altRat = &rats[0]
			}
		case tagGPSTimeStamp:
			timeStamp, err = t.readRationals(e)
		case tagGPSDateStamp:
			dateStamp, err = t.readASCII(e)
		}
		if err != nil {
			return nil, err
		}
	}

	// a consistent coordinate/reference pair is required for both axes;
	// anything less is reported as no GPS rather than guessed at
	if len(latRef) != 1 || len(lngRef) != 1 || len(latDMS) != 3 || len(lngDMS) != 3 {
		return nil, nil
	}

	lat, err := DMSToDecimal(latDMS, latRef[0])
	if err != nil {
		return nil, err
	}
	lng, err := DMSToDecimal(lngDMS, lngRef[0])
	if err != nil {
		return nil, err
	}
	if !ValidLatitude(lat) || !ValidLongitude(lng) {
		return nil, fmt.Errorf("GPS coordinates (%f, %f) out of range", lat, lng)
	}

	loc := &Location{Latitude: lat, Longitude: lng}

	if altRat != nil {
		if alt, err := altRat.Float(); err == nil {
			if altBelowSea {
				alt = -alt
			}
			loc.Altitude = &alt
		}
	}

	if ts := parseGPSDateTime(dateStamp, timeStamp); ts != nil {
		loc.CapturedAt = ts
	}

	return loc, nil
}

// parseGPSDateTime combines the GPSDateStamp ("YYYY:MM:DD") and GPSTimeStamp
// (three rationals, UTC) tags into a timestamp when both are usable.
func parseGPSDateTime(dateStamp string, timeStamp []Rational) *time.Time {
	if dateStamp == "" {
		return nil
	}
	base, err := time.ParseInLocation("2006:01:02", dateStamp, time.UTC)
	if err != nil {
		return nil
	}
	if len(timeStamp) == 3 {
		h, errH := timeStamp[0].Float()
		m, errM := timeStamp[1].Float()
		s, errS := timeStamp[2].Float()
		if errH == nil && errM == nil && errS == nil {
			base = base.Add(time.Duration(h)*time.Hour +
				time.Duration(m)*time.Minute +
				time.Duration(math.Round(s*float64(time.Second))))
		}
	}
	return &base
}
