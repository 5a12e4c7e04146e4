package services

import (
	"image/color"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/exifsnap/models"
)

// Compositor produces the exported bytes of one record: rotated pixels with
// the original metadata, dates rewritten.
type Compositor struct {
	quality    int
	background color.Color
	log        zerolog.Logger
}

func NewCompositor(quality int, logger zerolog.Logger) *Compositor {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Compositor{quality: quality, background: color.White, log: logger}
}

// Compose runs decode, rotate, parse, date update and insert. It fails only
// when the pixels cannot be decoded or re-encoded; metadata problems fall
// back to an empty table.
func (c *Compositor) Compose(record *models.ImageRecord, ts time.Time) ([]byte, error) {
	img, _, err := DecodeImage(record.Raw)
	if err != nil {
		return nil, err
	}

	rotated, err := Rotate(Flatten(img, c.background), record.Rotation, c.quality)
	if err != nil {
		return nil, err
	}

	// Parsed from the original bytes: the re-encode carries no metadata.
	parsed := ParseExif(record.Raw)
	if parsed.Degraded {
		c.log.Debug().Err(parsed.Err).Str("name", record.Name).Msg("metadata unavailable, writing a fresh table")
	}
	table := ApplyDateTime(parsed.Table, ts)

	segment, err := DumpExif(table)
	if err != nil {
		// The table cannot be written back (oversized or unsupported value):
		// keep the dates and drop everything else rather than failing.
		c.log.Warn().Err(err).Str("name", record.Name).Msg("metadata too large to rewrite, keeping dates only")
		segment, err = DumpExif(ApplyDateTime(models.NewTagTable(), ts))
		if err != nil {
			return nil, err
		}
	}
	return InsertExif(segment, rotated)
}
