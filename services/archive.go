package services

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/yourusername/exifsnap/models"
)

// WriteArchive zips the successful results in order, one entry per result
// named after the record. Repeated names stay as separate entries. It returns
// the number of entries written.
func WriteArchive(w io.Writer, results []models.ExportResult) (int, error) {
	zw := zip.NewWriter(w)
	n := 0
	for _, r := range results {
		if !r.OK() {
			continue
		}
		// JPEG data does not deflate, store it as is.
		f, err := zw.CreateHeader(&zip.FileHeader{Name: r.Filename, Method: zip.Store})
		if err != nil {
			zw.Close()
			return n, fmt.Errorf("archive entry %q: %w", r.Filename, err)
		}
		if _, err := f.Write(r.Data); err != nil {
			zw.Close()
			return n, fmt.Errorf("archive entry %q: %w", r.Filename, err)
		}
		n++
	}
	if err := zw.Close(); err != nil {
		return n, err
	}
	return n, nil
}
