package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yourusername/exifsnap/models"
)

// Storage is where exported files and archives are written when the user
// saves instead of downloading.
type Storage interface {
	// Save stores the content under key (relative path, e.g. "2024/photo.jpg")
	// and returns where it ended up.
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Delete removes the object at key. Should not error if the object does not exist.
	Delete(ctx context.Context, key string) error
	// Location builds the user-facing location for a key.
	Location(key string) string
	// IsLocal indicates whether this storage writes to local filesystem.
	IsLocal() bool
}

// ErrUnsafeKey rejects keys that are absolute or climb out of the storage root.
var ErrUnsafeKey = errors.New("unsafe storage key")

// CleanKey normalizes a relative storage key. Absolute keys, backslashes and
// any ".." that leaves the root are refused.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") || path.IsAbs(key) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}
	return cleaned, nil
}

// ValidatePrefix accepts an empty prefix or one CleanKey allows.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	_, err := CleanKey(prefix)
	return err
}

// ----- Local storage implementation -----

type LocalStorage struct {
	baseDir string
}

func NewLocalStorage(baseDir string) *LocalStorage {
	if baseDir == "" {
		baseDir = "exports"
	}
	return &LocalStorage{baseDir: baseDir}
}

func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	dstPath, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return dstPath, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// Location is empty for keys Save would refuse.
func (s *LocalStorage) Location(key string) string {
	p, err := s.path(key)
	if err != nil {
		return ""
	}
	return p
}

func (s *LocalStorage) IsLocal() bool { return true }

// path maps key under baseDir and checks the result stays there.
func (s *LocalStorage) path(key string) (string, error) {
	cleaned, err := CleanKey(filepath.ToSlash(key))
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeKey, key)
	}
	return full, nil
}

// ----- S3 (R2-compatible) configuration -----

type S3Config struct {
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl"`
	Bucket         string `yaml:"bucket"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	PublicBaseURL  string `yaml:"public_base_url"`
}

// NewStorageFromConfig picks the export destination. Anything but "s3"/"r2"
// writes to the local output directory.
func NewStorageFromConfig(cfg StorageConfig, localDir string) (Storage, error) {
	if strings.EqualFold(cfg.Provider, "s3") || strings.EqualFold(cfg.Provider, "r2") {
		st, err := buildS3Storage(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		return st, nil
	}
	return NewLocalStorage(localDir), nil
}

// SaveResults stores each successful result under prefix and returns the
// location per result, in order; failures get an empty location. Repeated
// names are disambiguated so nothing is overwritten. If any save fails the
// files already written are deleted again and no locations are returned.
func SaveResults(ctx context.Context, st Storage, prefix string, results []models.ExportResult) ([]string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	locations := make([]string, len(results))
	used := map[string]int{}
	var saved []string
	for i, r := range results {
		if !r.OK() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, rollback(ctx, st, saved, err)
		}
		key := path.Join(prefix, uniqueName(r.Filename, used))
		loc, err := st.Save(ctx, key, bytes.NewReader(r.Data), "image/jpeg")
		if err != nil {
			return nil, rollback(ctx, st, saved, fmt.Errorf("save %q: %w", r.Filename, err))
		}
		saved = append(saved, key)
		locations[i] = loc
	}
	return locations, nil
}

// rollback deletes keys on a context that outlives ctx's cancellation and
// joins any delete failures onto cause.
func rollback(ctx context.Context, st Storage, keys []string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for _, key := range keys {
		if err := st.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("rollback %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// SaveArchive zips the successful results and stores the archive as name.
func SaveArchive(ctx context.Context, st Storage, name string, results []models.ExportResult) (string, int, error) {
	var buf bytes.Buffer
	n, err := WriteArchive(&buf, results)
	if err != nil {
		return "", n, err
	}
	loc, err := st.Save(ctx, name, bytes.NewReader(buf.Bytes()), "application/zip")
	if err != nil {
		return "", n, fmt.Errorf("save archive: %w", err)
	}
	return loc, n, nil
}

func uniqueName(name string, used map[string]int) string {
	used[name]++
	if used[name] == 1 {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for {
		candidate := fmt.Sprintf("%s (%d)%s", base, used[name], ext)
		if _, taken := used[candidate]; !taken {
			used[candidate] = 1
			return candidate
		}
		used[name]++
	}
}
