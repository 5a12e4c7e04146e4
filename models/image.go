package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DisplayTag is one read-only (ifd, name, value) line shown to the user.
type DisplayTag struct {
	IFD   string `json:"ifd"`
	ID    uint16 `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ImageRecord is one uploaded photo. Raw is never modified after upload;
// rotation and date changes are only materialized at export.
type ImageRecord struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	Raw              []byte       `json:"-"`
	Rotation         int          `json:"rotation"`
	Width            int          `json:"width"`
	Height           int          `json:"height"`
	Format           string       `json:"format"`
	Blurhash         string       `json:"blurhash"`
	DominantColor    string       `json:"dominant_color"`
	Metadata         []DisplayTag `json:"-"`
	MetadataDegraded bool         `json:"metadata_degraded"`
	CaptureTime      *time.Time   `json:"capture_time"`
	CreatedAt        time.Time    `json:"created_at"`
}

// NormalizeRotation folds any multiple of 90 (negative included) into 0..270.
func NormalizeRotation(deg int) int {
	return ((deg % 360) + 360) % 360
}

// Rotate applies a delta to the current rotation.
func (r *ImageRecord) Rotate(delta int) {
	r.Rotation = NormalizeRotation(r.Rotation + delta)
}

// DisplayName strips the last extension from the file name.
func (r *ImageRecord) DisplayName() string {
	i := strings.LastIndex(r.Name, ".")
	if i <= 0 {
		return r.Name
	}
	return r.Name[:i]
}

// Clone copies the record. Raw is shared since it is immutable.
func (r *ImageRecord) Clone() *ImageRecord {
	out := *r
	if r.Metadata != nil {
		out.Metadata = append([]DisplayTag(nil), r.Metadata...)
	}
	if r.CaptureTime != nil {
		t := *r.CaptureTime
		out.CaptureTime = &t
	}
	return &out
}

type ImageResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	DisplayName      string     `json:"display_name"`
	Rotation         int        `json:"rotation"`
	Width            *int       `json:"width"`
	Height           *int       `json:"height"`
	Format           string     `json:"format,omitempty"`
	Blurhash         *string    `json:"blurhash"`
	DominantColor    *string    `json:"dominant_color"`
	FileSize         int        `json:"file_size"`
	FlashFired       bool       `json:"flash_fired"`
	MetadataDegraded bool       `json:"metadata_degraded"`
	CaptureTime      *time.Time `json:"capture_time"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (r *ImageRecord) ToResponse(flashFired bool) ImageResponse {
	resp := ImageResponse{
		ID:               r.ID,
		Name:             r.Name,
		DisplayName:      r.DisplayName(),
		Rotation:         r.Rotation,
		Format:           r.Format,
		FileSize:         len(r.Raw),
		FlashFired:       flashFired,
		MetadataDegraded: r.MetadataDegraded,
		CaptureTime:      r.CaptureTime,
		CreatedAt:        r.CreatedAt,
	}
	if r.Width > 0 && r.Height > 0 {
		w, h := r.Width, r.Height
		resp.Width, resp.Height = &w, &h
	}
	if r.Blurhash != "" {
		b := r.Blurhash
		resp.Blurhash = &b
	}
	if r.DominantColor != "" {
		d := r.DominantColor
		resp.DominantColor = &d
	}
	return resp
}
