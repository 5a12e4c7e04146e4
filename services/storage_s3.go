package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	s3SaveTimeout   = 60 * time.Second
	s3DeleteTimeout = 15 * time.Second
)

// bucketStorage writes exports to an S3-compatible bucket (AWS, R2, MinIO).
type bucketStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	pathStyle bool
}

func buildS3Storage(cfg S3Config) (Storage, error) {
	var missing []string
	for name, v := range map[string]string{"endpoint": cfg.Endpoint, "access_key": cfg.AccessKey, "secret_key": cfg.SecretKey, "bucket": cfg.Bucket} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("incomplete S3 config, missing %s", strings.Join(missing, ", "))
	}

	host, secure := cfg.Endpoint, cfg.UseSSL
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("endpoint: %w", err)
		}
		host, secure = u.Host, u.Scheme == "https"
	}

	lookup := minio.BucketLookupAuto
	if cfg.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}
	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       "auto",
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, err
	}
	return &bucketStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		pathStyle: cfg.ForcePathStyle,
	}, nil
}

// Save uploads one export. Objects are served as attachments under their
// file name so a browser downloads them instead of rendering.
func (s *bucketStorage) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	ctx, cancel := withDefaultTimeout(ctx, s3SaveTimeout)
	defer cancel()

	size := int64(-1)
	if br, ok := r.(*bytes.Reader); ok {
		size = int64(br.Len())
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", path.Base(key)),
		UserMetadata:       map[string]string{"exported-by": "exifsnap"},
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return s.Location(key), nil
}

func (s *bucketStorage) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	ctx, cancel := withDefaultTimeout(ctx, s3DeleteTimeout)
	defer cancel()
	err = s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
		return nil
	}
	return err
}

// Location prefers the configured public base URL, then the bucket's own
// endpoint URL in path or virtual-host style.
func (s *bucketStorage) Location(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.publicURL != "" {
		base := s.publicURL
		if !strings.Contains(base, "://") {
			base = "https://" + base
		}
		return base + "/" + key
	}
	u := url.URL{Scheme: "https", Host: s.client.EndpointURL().Host, Path: "/" + s.bucket + "/" + key}
	if !s.pathStyle {
		u.Host = s.bucket + "." + u.Host
		u.Path = "/" + key
	}
	return u.String()
}

func (s *bucketStorage) IsLocal() bool { return false }

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
