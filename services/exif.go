package services

import (
	"fmt"
	"strings"

	"github.com/dsoprea/go-exif/v3"
	"github.com/yourusername/exifsnap/models"
)

// DisplayTags returns every EXIF tag of data as a flat (ifd, name, value)
// list for display. It is informational only and never feeds the codec.
func DisplayTags(data []byte) ([]models.DisplayTag, error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return nil, err
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.DisplayTag, 0, len(entries))
	for _, e := range entries {
		value := e.Formatted
		if e.TagId == TagFlash {
			if v, ok := e.Value.([]uint16); ok && len(v) > 0 {
				value = describeFlash(v[0])
			}
		}
		out = append(out, models.DisplayTag{
			IFD:   e.IfdPath,
			ID:    e.TagId,
			Name:  e.TagName,
			Value: value,
		})
	}
	return out, nil
}

// FlashFired is a display heuristic: true when the readable Flash value
// mentions "fired".
func FlashFired(tags []models.DisplayTag) bool {
	for _, t := range tags {
		if t.Name == "Flash" {
			return strings.Contains(strings.ToLower(t.Value), "fired")
		}
	}
	return false
}

// describeFlash renders the Flash bit field the way photo viewers do.
func describeFlash(v uint16) string {
	if v&0x20 != 0 {
		return "No flash function"
	}
	parts := []string{"Flash did not fire"}
	if v&0x01 != 0 {
		parts[0] = "Flash fired"
	}
	switch (v >> 3) & 0x03 {
	case 1:
		parts = append(parts, "compulsory flash mode")
	case 2:
		parts = append(parts, "compulsory flash suppression")
	case 3:
		parts = append(parts, "auto mode")
	}
	switch (v >> 1) & 0x03 {
	case 2:
		parts = append(parts, "return light not detected")
	case 3:
		parts = append(parts, "return light detected")
	}
	if v&0x40 != 0 {
		parts = append(parts, "red-eye reduction mode")
	}
	return strings.Join(parts, ", ")
}

// FormatValue renders a table value for logs and the CLI.
func FormatValue(v models.Value) string {
	switch {
	case v.Rationals != nil:
		parts := make([]string, len(v.Rationals))
		for i, r := range v.Rationals {
			parts[i] = fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case v.SignedRationals != nil:
		parts := make([]string, len(v.SignedRationals))
		for i, r := range v.SignedRationals {
			parts[i] = fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case v.Ints != nil:
		return fmt.Sprint(v.Ints)
	case v.Bytes != nil:
		return fmt.Sprintf("<%d bytes>", len(v.Bytes))
	}
	return v.Text
}
