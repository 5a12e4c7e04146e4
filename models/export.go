package models

import "github.com/google/uuid"

// ExportResult is the outcome of exporting one record: Data on success,
// Err on failure.
type ExportResult struct {
	ID       uuid.UUID
	Name     string
	Filename string
	Data     []byte
	Err      error
}

func (r ExportResult) OK() bool {
	return r.Err == nil
}

type ExportResultResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Filename string    `json:"filename,omitempty"`
	Size     int       `json:"size,omitempty"`
	Location string    `json:"location,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (r ExportResult) ToResponse(location string) ExportResultResponse {
	resp := ExportResultResponse{ID: r.ID, Name: r.Name}
	if r.Err != nil {
		resp.Error = r.Err.Error()
		return resp
	}
	resp.Filename = r.Filename
	resp.Size = len(r.Data)
	resp.Location = location
	return resp
}
