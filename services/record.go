package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yourusername/exifsnap/models"
)

// NewImageRecord builds the session record for an upload. Metadata is parsed
// once here; undecodable pixels are tolerated and only fail at export.
func NewImageRecord(name string, raw []byte, logger zerolog.Logger) *models.ImageRecord {
	record := &models.ImageRecord{
		ID:        uuid.New(),
		Name:      name,
		Raw:       raw,
		CreatedAt: time.Now(),
	}

	if img, format, err := DecodeImage(raw); err != nil {
		logger.Warn().Err(err).Str("name", name).Msg("upload is not a decodable image")
	} else {
		meta := ProcessImage(img, format)
		record.Width = meta.Width
		record.Height = meta.Height
		record.Format = meta.Format
		record.Blurhash = meta.Blurhash
		record.DominantColor = meta.DominantColor
	}

	parsed := ParseExif(raw)
	record.MetadataDegraded = parsed.Degraded
	if t, ok := CaptureTime(parsed.Table, time.Local); ok {
		record.CaptureTime = &t
	}
	if !parsed.Degraded {
		tags, err := DisplayTags(raw)
		if err != nil {
			logger.Debug().Err(err).Str("name", name).Msg("display tags unavailable")
		}
		record.Metadata = tags
	}
	return record
}
