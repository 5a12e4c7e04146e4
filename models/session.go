package models

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrImageNotFound = errors.New("image not found")

// Session is the in-memory working set of one user: the uploaded records in
// upload order and the single timestamp applied to every export.
type Session struct {
	mu        sync.RWMutex
	records   []*ImageRecord
	timestamp time.Time
}

func NewSession(initial time.Time) *Session {
	return &Session{timestamp: initial}
}

// RoundToQuarterHour rounds t to the nearest 15 minutes, seconds dropped.
func RoundToQuarterHour(t time.Time) time.Time {
	return t.Round(15 * time.Minute)
}

func (s *Session) Add(record *ImageRecord) error {
	if record == nil {
		return errors.New("nil record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	for _, r := range s.records {
		if r.ID == record.ID {
			return errors.New("duplicate image id")
		}
	}
	s.records = append(s.records, record)
	return nil
}

func (s *Session) GetByID(id uuid.UUID) (*ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, ErrImageNotFound
}

func (s *Session) List() []*ImageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ImageRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Rotate adjusts a record's rotation by delta degrees. Pixels are not touched.
func (s *Session) Rotate(id uuid.UUID, delta int) (*ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			r.Rotate(delta)
			return r.Clone(), nil
		}
	}
	return nil, ErrImageNotFound
}

func (s *Session) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return ErrImageNotFound
}

func (s *Session) Timestamp() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timestamp
}

func (s *Session) SetTimestamp(t time.Time) {
	s.mu.Lock()
	s.timestamp = t
	s.mu.Unlock()
}

// Snapshot returns copies of all records together with the timestamp, read
// under one lock so an export pass sees a consistent view.
func (s *Session) Snapshot() ([]*ImageRecord, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ImageRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out, s.timestamp
}
