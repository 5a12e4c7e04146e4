package services

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/exifsnap/models"
)

func TestDumpLoadRoundTrip(t *testing.T) {
	table := sampleTable()
	seg, err := DumpExif(table)
	require.NoError(t, err)

	// The segment body after the marker and length is a bare Exif payload.
	loaded, err := LoadExif(seg[4:])
	require.NoError(t, err)
	assert.Equal(t, table, loaded)
}

func TestRoundTripLittleEndian(t *testing.T) {
	table := sampleTable()
	table.ByteOrder = binary.LittleEndian

	raw := withExif(t, table, 8, 8)
	loaded, err := LoadExif(raw)
	require.NoError(t, err)
	assert.Equal(t, binary.LittleEndian, loaded.ByteOrder)
	assert.Equal(t, table, loaded)
}

func TestInsertDumpLoadIsIdempotent(t *testing.T) {
	raw := withExif(t, sampleTable(), 16, 8)

	table, err := LoadExif(raw)
	require.NoError(t, err)
	seg, err := DumpExif(table)
	require.NoError(t, err)
	again, err := InsertExif(seg, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestInsertPlacesSegmentAfterSOI(t *testing.T) {
	base := makeJPEG(t, 4, 4)
	seg, err := DumpExif(models.NewTagTable())
	require.NoError(t, err)

	out, err := InsertExif(seg, base)
	require.NoError(t, err)
	assert.Equal(t, base[:2], out[:2])
	assert.Equal(t, seg, out[2:2+len(seg)])
	assert.Equal(t, base[2:], out[2+len(seg):])
}

func TestInsertReplacesExistingSegment(t *testing.T) {
	base := makeJPEG(t, 4, 4)
	first := withExif(t, sampleTable(), 4, 4)

	replacement := models.NewTagTable()
	replacement.Image[0x010F] = models.TextValue("Other")
	seg, err := DumpExif(replacement)
	require.NoError(t, err)

	out, err := InsertExif(seg, first)
	require.NoError(t, err)
	assert.Len(t, out, len(base)+len(seg))

	loaded, err := LoadExif(out)
	require.NoError(t, err)
	assert.Equal(t, replacement, loaded)
}

func TestInsertRejectsBadSegment(t *testing.T) {
	base := makeJPEG(t, 4, 4)

	_, err := InsertExif([]byte{0xFF, 0xE1, 0x00, 0x04, 'n', 'o'}, base)
	assert.Error(t, err)

	seg, err := DumpExif(models.NewTagTable())
	require.NoError(t, err)
	_, err = InsertExif(seg[:len(seg)-1], base)
	assert.Error(t, err)

	_, err = InsertExif(seg, []byte("not a jpeg"))
	assert.Error(t, err)
}

func TestRemoveExif(t *testing.T) {
	base := makeJPEG(t, 6, 3)
	seg, err := DumpExif(sampleTable())
	require.NoError(t, err)
	withMeta, err := InsertExif(seg, base)
	require.NoError(t, err)

	stripped, err := RemoveExif(withMeta)
	require.NoError(t, err)
	assert.Equal(t, base, stripped)

	_, err = LoadExif(stripped)
	assert.True(t, errors.Is(err, ErrNoExif))
}

func TestParseExifDegrades(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"no exif segment", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated tiff", []byte("Exif\x00\x00MM\x00*\x00\x00\x00\x08\x00\x05")},
		{"bad magic", []byte("Exif\x00\x00MM\x00\x2b\x00\x00\x00\x08")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				data = makeJPEG(t, 2, 2)
			}
			res := ParseExif(data)
			assert.True(t, res.Degraded)
			assert.True(t, errors.Is(res.Err, ErrMetadataParse))
			require.NotNil(t, res.Table)
			assert.Equal(t, 0, res.Table.Len())
			assert.NotNil(t, res.Table.Image)
		})
	}
}

func TestParseExifSuccess(t *testing.T) {
	res := ParseExif(withExif(t, sampleTable(), 4, 4))
	assert.False(t, res.Degraded)
	assert.NoError(t, res.Err)
	assert.Equal(t, "Canon", res.Table.Image[0x010F].Text)
}

func TestLoadExifRejectsIFDLoop(t *testing.T) {
	// IFD0 at offset 8 with no entries whose next-IFD link points back to itself.
	tiff := []byte{'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08}
	_, err := LoadExif(tiff)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMetadataParse))
	assert.Contains(t, err.Error(), "loop")
}

func TestLoadExifSkipsUnknownTypes(t *testing.T) {
	table := models.NewTagTable()
	table.Image[0x010F] = models.TextValue("Canon")
	seg, err := DumpExif(table)
	require.NoError(t, err)

	tiff := bytes.Clone(seg[4+len(exifHeader):])
	// One entry: patch its type to 99.
	binary.BigEndian.PutUint16(tiff[8+2+2:], 99)
	loaded, err := LoadExif(tiff)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestDumpExifOmitsAbsentNamespaces(t *testing.T) {
	seg, err := DumpExif(models.NewTagTable())
	require.NoError(t, err)
	loaded, err := LoadExif(seg[4:])
	require.NoError(t, err)
	assert.Nil(t, loaded.Capture)
	assert.Nil(t, loaded.Location)
	assert.Nil(t, loaded.Interop)
	assert.Nil(t, loaded.Thumbnail)
}

func TestDumpExifTooLarge(t *testing.T) {
	table := models.NewTagTable()
	table.Image[0x927C] = models.BytesValue(0x07, make([]byte, 70000))
	_, err := DumpExif(table)
	assert.Error(t, err)
}

func TestDumpedExifReadableByGoExif(t *testing.T) {
	table := models.NewTagTable()
	table.Image[0x010F] = models.TextValue("Canon")
	table.Capture = models.Tags{TagFlash: models.ShortValue(0x19)}

	tags, err := DisplayTags(withExif(t, table, 4, 4))
	require.NoError(t, err)

	byName := map[string]string{}
	for _, tag := range tags {
		byName[tag.Name] = tag.Value
	}
	assert.Equal(t, "Canon", byName["Make"])
	assert.Equal(t, "Flash fired, auto mode", byName["Flash"])
	assert.True(t, FlashFired(tags))
}

func TestRoundTripSignedAndTextEdges(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		table := models.NewTagTable()
		table.ByteOrder = order
		table.Image[0x9000] = models.IntValue(models.TypeSignedByte, -128, -1, 0, 127)
		table.Image[0x9001] = models.IntValue(models.TypeSignedShort, -32768, -2, 7)
		table.Image[0x9002] = models.IntValue(exifcommon.TypeSignedLong, -70000, 1)
		table.Image[0x9003] = models.TextValue("")
		table.Image[0x9004] = models.TextValue("a\x00")
		table.Image[0x9005] = models.TextValue("pad\x00\x00  ")

		seg, err := DumpExif(table)
		require.NoError(t, err)
		loaded, err := LoadExif(seg[4:])
		require.NoError(t, err)
		assert.Equal(t, table, loaded, "byte order %v", order)
	}
}

func TestLoadExifReadsUnterminatedASCII(t *testing.T) {
	table := models.NewTagTable()
	table.Image[0x010F] = models.TextValue("Canon")
	seg, err := DumpExif(table)
	require.NoError(t, err)

	tiff := bytes.Clone(seg[4+len(exifHeader):])
	// Drop the NUL from the only entry's count.
	binary.BigEndian.PutUint32(tiff[8+2+4:], 5)
	loaded, err := LoadExif(tiff)
	require.NoError(t, err)
	assert.Equal(t, "Canon", loaded.Image[0x010F].Text)

	// Written back with a terminator.
	again, err := DumpExif(loaded)
	require.NoError(t, err)
	assert.Equal(t, seg, again)
}

func TestInteropWithoutCaptureReadsBackEmptyCapture(t *testing.T) {
	table := models.NewTagTable()
	table.Interop = models.Tags{0x0001: models.TextValue("R98")}

	seg, err := DumpExif(table)
	require.NoError(t, err)
	loaded, err := LoadExif(seg[4:])
	require.NoError(t, err)
	assert.Equal(t, models.Tags{}, loaded.Capture)
	assert.Equal(t, table.Interop, loaded.Interop)
}
