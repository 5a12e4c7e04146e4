package services

import (
	"testing"
	"time"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/exifsnap/models"
)

func TestApplyDateTimeWritesEveryField(t *testing.T) {
	ts := time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC)
	out := ApplyDateTime(sampleTable(), ts)

	assert.Equal(t, models.TextValue("2023:06:15 10:30:00"), out.Image[TagDateTime])
	for _, tag := range []uint16{TagDateTimeOriginal, TagDateTimeDigitized} {
		assert.Equal(t, models.TextValue("2023:06:15 10:30:00"), out.Capture[tag])
	}
	for _, tag := range []uint16{TagSubSecTime, TagSubSecTimeOriginal, TagSubSecTimeDigitized} {
		assert.Equal(t, models.TextValue("00"), out.Capture[tag])
	}
	assert.Equal(t, models.TextValue("2023:06:15"), out.Location[TagGPSDateStamp])
	assert.Equal(t, models.RationalValue(
		exifcommon.Rational{Numerator: 10, Denominator: 1},
		exifcommon.Rational{Numerator: 30, Denominator: 1},
		exifcommon.Rational{Numerator: 0, Denominator: 1},
	), out.Location[TagGPSTimeStamp])

	// Unrelated tags survive.
	assert.Equal(t, "Canon", out.Image[0x010F].Text)
	assert.Equal(t, models.ShortValue(0x19), out.Capture[TagFlash])
}

func TestApplyDateTimeDoesNotModifyInput(t *testing.T) {
	in := sampleTable()
	before := in.Clone()
	_ = ApplyDateTime(in, time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC))
	assert.Equal(t, before, in)
}

func TestApplyDateTimeLocalVersusUTC(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2023, 6, 15, 23, 30, 15, 0, zone)
	out := ApplyDateTime(sampleTable(), ts)

	assert.Equal(t, "2023:06:15 23:30:15", out.Image[TagDateTime].Text)
	assert.Equal(t, "2023:06:15 23:30:15", out.Capture[TagDateTimeOriginal].Text)
	assert.Equal(t, "2023:06:16", out.Location[TagGPSDateStamp].Text)
	assert.Equal(t, []exifcommon.Rational{{Numerator: 4, Denominator: 1}, {Numerator: 30, Denominator: 1}, {Numerator: 15, Denominator: 1}},
		out.Location[TagGPSTimeStamp].Rationals)
}

func TestApplyDateTimeLeavesAbsentNamespacesAbsent(t *testing.T) {
	out := ApplyDateTime(models.NewTagTable(), time.Date(2021, 2, 3, 4, 5, 6, 0, time.UTC))
	assert.Equal(t, "2021:02:03 04:05:06", out.Image[TagDateTime].Text)
	assert.Nil(t, out.Capture)
	assert.Nil(t, out.Location)
	assert.Equal(t, 1, out.Len())
}

func TestApplyDateTimeFillsEmptyNamespaces(t *testing.T) {
	table := models.NewTagTable()
	table.Capture = models.Tags{}
	table.Location = models.Tags{}
	out := ApplyDateTime(table, time.Date(2021, 2, 3, 4, 5, 6, 0, time.UTC))
	assert.Len(t, out.Capture, 5)
	assert.Len(t, out.Location, 2)
}

func TestApplyDateTimeNilTable(t *testing.T) {
	out := ApplyDateTime(nil, time.Date(2021, 2, 3, 4, 5, 6, 0, time.UTC))
	require.NotNil(t, out)
	assert.Equal(t, "2021:02:03 04:05:06", out.Image[TagDateTime].Text)
}

func TestApplyDateTimeIsIdempotent(t *testing.T) {
	ts := time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC)
	once := ApplyDateTime(sampleTable(), ts)
	assert.Equal(t, once, ApplyDateTime(once, ts))
}

func TestCaptureTimePreference(t *testing.T) {
	table := models.NewTagTable()
	_, ok := CaptureTime(table, time.UTC)
	assert.False(t, ok)

	table.Image[TagDateTime] = models.TextValue("2020:01:01 00:00:00")
	got, ok := CaptureTime(table, time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), got)

	table.Capture = models.Tags{
		TagDateTimeDigitized: models.TextValue("2019:05:05 05:05:05"),
		TagDateTimeOriginal:  models.TextValue("2018:04:04 04:04:04"),
	}
	got, ok = CaptureTime(table, time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2018, 4, 4, 4, 4, 4, 0, time.UTC), got)

	table.Capture[TagDateTimeOriginal] = models.TextValue("0000:00:00 00:00:00")
	got, ok = CaptureTime(table, time.UTC)
	require.True(t, ok)
	assert.Equal(t, 2019, got.Year())
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2023-06-15T10:30:00Z", time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"2023-06-15T10:30", time.Date(2023, 6, 15, 10, 30, 0, 0, loc)},
		{"2023-06-15 10:30:45", time.Date(2023, 6, 15, 10, 30, 45, 0, loc)},
		{" 2023:06:15 10:30:00 ", time.Date(2023, 6, 15, 10, 30, 0, 0, loc)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in, loc)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	_, err := ParseTimestamp("yesterday", loc)
	assert.Error(t, err)
}
