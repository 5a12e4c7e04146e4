package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionInterface interface {
	Add(record *ImageRecord) error
	GetByID(id uuid.UUID) (*ImageRecord, error)
	List() []*ImageRecord
	Rotate(id uuid.UUID, delta int) (*ImageRecord, error)
	Delete(id uuid.UUID) error
	Timestamp() time.Time
	SetTimestamp(t time.Time)
	Snapshot() ([]*ImageRecord, time.Time)
}
