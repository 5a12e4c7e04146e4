package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/exifsnap/models"
)

const DefaultArchiveName = "exif-snap-images.zip"

// Exporter fans the compositor out over a batch of records.
type Exporter struct {
	compositor *Compositor
	workers    int
	log        zerolog.Logger
}

func NewExporter(compositor *Compositor, workers int, logger zerolog.Logger) *Exporter {
	if workers < 1 {
		workers = 1
	}
	return &Exporter{compositor: compositor, workers: workers, log: logger}
}

// ExportOne composes a single record. The output keeps the input file name.
func (e *Exporter) ExportOne(ctx context.Context, record *models.ImageRecord, ts time.Time) models.ExportResult {
	result := models.ExportResult{ID: record.ID, Name: record.Name}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	start := time.Now()
	data, err := e.compositor.Compose(record, ts)
	if err != nil {
		e.log.Warn().Err(err).Str("name", record.Name).Msg("export failed")
		result.Err = err
		return result
	}
	e.log.Debug().Str("name", record.Name).Int("bytes", len(data)).Dur("took", time.Since(start)).Msg("exported")
	result.Filename = record.Name
	result.Data = data
	return result
}

// ExportAll exports every record independently and returns results in input
// order. A failed record never stops the others. Cancellation is honoured
// between images only; records not started yet fail with ctx.Err().
func (e *Exporter) ExportAll(ctx context.Context, records []*models.ImageRecord, ts time.Time) []models.ExportResult {
	results := make([]models.ExportResult, len(records))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := e.workers
	if workers > len(records) {
		workers = len(records)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.ExportOne(ctx, records[i], ts)
			}
		}()
	}
	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	e.log.Info().Int("total", len(results)).Int("failed", failed).Msg("batch export finished")
	return results
}

// ExportArchive runs ExportAll and writes the successful outputs as a zip to w.
func (e *Exporter) ExportArchive(ctx context.Context, w io.Writer, records []*models.ImageRecord, ts time.Time) ([]models.ExportResult, error) {
	results := e.ExportAll(ctx, records, ts)
	if _, err := WriteArchive(w, results); err != nil {
		return results, err
	}
	return results, nil
}
