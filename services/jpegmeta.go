package services

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
)

const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerEOI    = 0xD9
	markerSOS    = 0xDA
	markerAPP1   = 0xE1
)

var exifHeader = []byte("Exif\x00\x00")

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == markerPrefix && data[1] == markerSOI
}

// EncodeJPEG encodes img as a baseline JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// splitJPEG cuts a JPEG stream into SOI, one chunk per marker segment, and a
// final chunk holding everything from SOS (or EOI) onwards. Concatenating the
// chunks gives back the input.
func splitJPEG(data []byte) ([][]byte, error) {
	if !isJPEG(data) {
		return nil, errors.New("not a jpeg stream")
	}
	chunks := [][]byte{data[:2]}
	i := 2
	for i < len(data) {
		if data[i] != markerPrefix {
			return nil, fmt.Errorf("expected marker at offset %d", i)
		}
		if i+1 >= len(data) {
			return nil, errors.New("truncated marker")
		}
		marker := data[i+1]
		switch {
		case marker == markerPrefix:
			// fill byte
			chunks = append(chunks, data[i:i+1])
			i++
			continue
		case marker == markerSOS || marker == markerEOI:
			return append(chunks, data[i:]), nil
		case marker >= 0xD0 && marker <= 0xD7 || marker == 0x01:
			chunks = append(chunks, data[i:i+2])
			i += 2
			continue
		}
		if i+4 > len(data) {
			return nil, errors.New("truncated segment header")
		}
		n := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if n < 2 || i+2+n > len(data) {
			return nil, fmt.Errorf("segment 0x%02x length %d out of range", marker, n)
		}
		chunks = append(chunks, data[i:i+2+n])
		i += 2 + n
	}
	return chunks, nil
}

// isExifSegment reports whether chunk is a whole APP1 segment carrying EXIF.
func isExifSegment(chunk []byte) bool {
	return len(chunk) >= 4+len(exifHeader) &&
		chunk[0] == markerPrefix && chunk[1] == markerAPP1 &&
		bytes.Equal(chunk[4:4+len(exifHeader)], exifHeader)
}

// buildAPP1Segment constructs a JPEG APP1 segment from the provided content body.
// The length field includes its own two bytes per the JPEG specification.
func buildAPP1Segment(content []byte) ([]byte, error) {
	segLen := len(content) + 2
	if segLen > 0xFFFF {
		return nil, fmt.Errorf("app1 segment of %d bytes exceeds 65535", segLen)
	}
	seg := make([]byte, 0, segLen+2)
	seg = append(seg, markerPrefix, markerAPP1, byte(segLen>>8), byte(segLen&0xFF))
	return append(seg, content...), nil
}

// spliceExif replaces the first EXIF APP1 segment with seg and drops any
// later ones. Without an existing segment, seg goes right after SOI. An empty
// seg removes EXIF altogether.
func spliceExif(seg, data []byte) ([]byte, error) {
	chunks, err := splitJPEG(data)
	if err != nil {
		return nil, err
	}
	hasExif := false
	for _, c := range chunks {
		if isExifSegment(c) {
			hasExif = true
			break
		}
	}

	out := make([]byte, 0, len(data)+len(seg))
	placed := len(seg) == 0
	for i, c := range chunks {
		if isExifSegment(c) {
			if !placed {
				out = append(out, seg...)
				placed = true
			}
			continue
		}
		out = append(out, c...)
		if i == 0 && !hasExif && !placed {
			out = append(out, seg...)
			placed = true
		}
	}
	return out, nil
}
