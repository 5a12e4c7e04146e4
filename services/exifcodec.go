package services

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/yourusername/exifsnap/models"
)

// ParseResult is the outcome of a soft parse. Degraded is set, and Err holds
// the cause, when the table is the empty fallback.
type ParseResult struct {
	Table    *models.TagTable
	Degraded bool
	Err      error
}

// ParseExif never fails: missing or malformed metadata yields an empty table
// with Degraded set.
func ParseExif(data []byte) ParseResult {
	table, err := LoadExif(data)
	if err != nil {
		return ParseResult{Table: models.NewTagTable(), Degraded: true, Err: err}
	}
	return ParseResult{Table: table}
}

// LoadExif decodes the EXIF block of a JPEG stream, a bare "Exif\0\0"
// payload, or a bare TIFF header blob. Errors are *MetadataParseError.
func LoadExif(data []byte) (*models.TagTable, error) {
	var tiff []byte
	switch {
	case isJPEG(data):
		chunks, err := splitJPEG(data)
		if err != nil {
			return nil, &MetadataParseError{Err: err}
		}
		for _, c := range chunks {
			if isExifSegment(c) {
				tiff = c[4+len(exifHeader):]
				break
			}
		}
		if tiff == nil {
			return nil, &MetadataParseError{Err: ErrNoExif}
		}
	case bytes.HasPrefix(data, exifHeader):
		tiff = data[len(exifHeader):]
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		tiff = data
	default:
		return nil, &MetadataParseError{Err: errors.New("unrecognized container")}
	}

	table, err := decodeTIFF(tiff)
	if err != nil {
		return nil, &MetadataParseError{Err: err}
	}
	return table, nil
}

// DumpExif serializes table into a complete APP1 segment ready for InsertExif.
//
// Reading the segment back gives an equal table except for two shapes:
// an Interop namespace needs a Capture IFD to hang from, so a table with
// Interop but no Capture reads back with an empty Capture; and an ASCII
// value that was stored without a terminating NUL is written with one.
func DumpExif(table *models.TagTable) ([]byte, error) {
	if table == nil {
		table = models.NewTagTable()
	}
	tiff, err := encodeTIFF(table)
	if err != nil {
		return nil, fmt.Errorf("dump exif: %w", err)
	}
	content := make([]byte, 0, len(exifHeader)+len(tiff))
	content = append(content, exifHeader...)
	content = append(content, tiff...)
	return buildAPP1Segment(content)
}

// InsertExif splices an APP1 segment produced by DumpExif into a JPEG stream,
// replacing any EXIF already there. Pixel data is copied through untouched.
func InsertExif(segment, data []byte) ([]byte, error) {
	if len(segment) > 0 {
		if !isExifSegment(segment) {
			return nil, errors.New("insert exif: not an exif app1 segment")
		}
		if int(binary.BigEndian.Uint16(segment[2:4]))+2 != len(segment) {
			return nil, errors.New("insert exif: segment length mismatch")
		}
	}
	out, err := spliceExif(segment, data)
	if err != nil {
		return nil, fmt.Errorf("insert exif: %w", err)
	}
	return out, nil
}

// RemoveExif strips every EXIF APP1 segment from a JPEG stream.
func RemoveExif(data []byte) ([]byte, error) {
	return InsertExif(nil, data)
}
