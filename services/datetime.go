package services

import (
	"fmt"
	"strings"
	"time"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/yourusername/exifsnap/models"
)

const (
	TagDateTime            uint16 = 0x0132
	TagDateTimeOriginal    uint16 = 0x9003
	TagDateTimeDigitized   uint16 = 0x9004
	TagSubSecTime          uint16 = 0x9290
	TagSubSecTimeOriginal  uint16 = 0x9291
	TagSubSecTimeDigitized uint16 = 0x9292
	TagGPSTimeStamp        uint16 = 0x0007
	TagGPSDateStamp        uint16 = 0x001D
	TagFlash               uint16 = 0x9209
)

const (
	ExifTimestampLayout = "2006:01:02 15:04:05"
	GPSDateLayout       = "2006:01:02"
	subSecZero          = "00"
)

// ApplyDateTime returns a copy of table with every date/time field set from
// ts. The Image namespace always gets DateTime; Capture and Location fields
// are written only when that namespace is present, so no IFD is invented.
// Image and Capture use the wall clock of ts's location, GPS fields use UTC.
func ApplyDateTime(table *models.TagTable, ts time.Time) *models.TagTable {
	out := table.Clone()
	if out == nil {
		out = models.NewTagTable()
	}
	if out.Image == nil {
		out.Image = models.Tags{}
	}

	stamp := ts.Format(ExifTimestampLayout)
	out.Image[TagDateTime] = models.TextValue(stamp)

	if out.Capture != nil {
		out.Capture[TagDateTimeOriginal] = models.TextValue(stamp)
		out.Capture[TagDateTimeDigitized] = models.TextValue(stamp)
		out.Capture[TagSubSecTime] = models.TextValue(subSecZero)
		out.Capture[TagSubSecTimeOriginal] = models.TextValue(subSecZero)
		out.Capture[TagSubSecTimeDigitized] = models.TextValue(subSecZero)
	}

	if out.Location != nil {
		utc := ts.UTC()
		out.Location[TagGPSDateStamp] = models.TextValue(utc.Format(GPSDateLayout))
		out.Location[TagGPSTimeStamp] = models.RationalValue(
			exifcommon.Rational{Numerator: uint32(utc.Hour()), Denominator: 1},
			exifcommon.Rational{Numerator: uint32(utc.Minute()), Denominator: 1},
			exifcommon.Rational{Numerator: uint32(utc.Second()), Denominator: 1},
		)
	}
	return out
}

// CaptureTime reads the best available capture timestamp from table:
// DateTimeOriginal, then DateTimeDigitized, then DateTime. The result is in
// loc since EXIF stamps carry no zone.
func CaptureTime(table *models.TagTable, loc *time.Location) (time.Time, bool) {
	if table == nil {
		return time.Time{}, false
	}
	candidates := []models.Value{
		table.Capture[TagDateTimeOriginal],
		table.Capture[TagDateTimeDigitized],
		table.Image[TagDateTime],
	}
	for _, v := range candidates {
		if v.Type != exifcommon.TypeAscii {
			continue
		}
		t, err := time.ParseInLocation(ExifTimestampLayout, strings.Trim(v.Text, " \x00"), loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	ExifTimestampLayout,
}

// ParseTimestamp accepts RFC 3339 or a zone-less date and time, the latter
// read as wall clock in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
