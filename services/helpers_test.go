package services

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/exifsnap/models"
)

// gradient fills a w x h image with pixels unique enough to track moves.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 128, A: 255})
		}
	}
	return img
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// withExif returns a JPEG of w x h carrying table.
func withExif(t *testing.T, table *models.TagTable, w, h int) []byte {
	t.Helper()
	seg, err := DumpExif(table)
	require.NoError(t, err)
	out, err := InsertExif(seg, makeJPEG(t, w, h))
	require.NoError(t, err)
	return out
}

func sampleTable() *models.TagTable {
	table := models.NewTagTable()
	table.Image[0x010F] = models.TextValue("Canon")
	table.Image[0x0110] = models.TextValue("Canon EOS 5D")
	table.Image[0x0112] = models.ShortValue(1)
	table.Image[0x011A] = models.RationalValue(exifcommon.Rational{Numerator: 72, Denominator: 1})
	table.Image[TagDateTime] = models.TextValue("2020:01:01 00:00:00")

	table.Capture = models.Tags{
		TagDateTimeOriginal: models.TextValue("2020:01:01 00:00:00"),
		0x829A:              models.RationalValue(exifcommon.Rational{Numerator: 1, Denominator: 125}),
		0x9204:              models.SignedRationalValue(exifcommon.SignedRational{Numerator: -1, Denominator: 3}),
		TagFlash:            models.ShortValue(0x19),
		0x9000:              models.BytesValue(exifcommon.TypeUndefined, []byte("0231")),
		0xA002:              models.LongValue(4000),
	}
	table.Location = models.Tags{
		0x0000: models.IntValue(exifcommon.TypeByte, 2, 3, 0, 0),
		0x0001: models.TextValue("N"),
		0x0002: models.RationalValue(
			exifcommon.Rational{Numerator: 52, Denominator: 1},
			exifcommon.Rational{Numerator: 22, Denominator: 1},
			exifcommon.Rational{Numerator: 1234, Denominator: 100},
		),
	}
	table.Interop = models.Tags{
		0x0001: models.TextValue("R98"),
	}
	table.Thumbnail = models.Tags{
		0x0103: models.ShortValue(6),
	}
	table.ThumbnailData = []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	return table
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
