// Package s3 implements storage.ObjectStore against any S3-compatible
// endpoint via the MinIO client.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/medsql/medsql/internal/storage"
)

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

// backend is the subset of the MinIO client the store needs. Tests swap in a
// fake.
type backend interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, bucket, key string) (storage.ObjectInfo, error)
}

type Store struct {
	backend backend
	bucket  string
	prefix  string
}

func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	b, err := newMinioBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{
		backend: b,
		bucket:  strings.TrimSpace(cfg.Bucket),
		prefix:  cleanPrefix(cfg.Prefix),
	}, nil
}

func NewWithClient(bucket, prefix string, b backend) (*Store, error) {
	if b == nil {
		return nil, errors.New("client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	return &Store{backend: b, bucket: strings.TrimSpace(bucket), prefix: cleanPrefix(prefix)}, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolveKey(key)
	if err != nil {
		return nil, err
	}
	reader, err := s.backend.Get(ctx, s.bucket, full)
	switch {
	case err == nil:
		return reader, nil
	case errors.Is(err, storage.ErrObjectNotFound):
		return nil, storage.ErrObjectNotFound
	default:
		return nil, fmt.Errorf("get object %q: %w", full, err)
	}
}

func (s *Store) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	full, err := s.resolveKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.backend.Stat(ctx, s.bucket, full)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, storage.ErrObjectNotFound):
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	default:
		return storage.ObjectInfo{}, fmt.Errorf("stat object %q: %w", full, err)
	}
}

// resolveKey validates the caller-supplied key and joins it under the store
// prefix. Keys that would escape the prefix are rejected.
func (s *Store) resolveKey(key string) (string, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(key, "/"))
	if trimmed == "" {
		return "", errors.New("object key is required")
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	if s.prefix == "" {
		return cleaned, nil
	}
	return path.Join(s.prefix, cleaned), nil
}

func cleanPrefix(prefix string) string {
	trimmed := strings.Trim(strings.TrimSpace(prefix), "/")
	if trimmed == "" {
		return ""
	}
	if cleaned := path.Clean(trimmed); cleaned != "." {
		return cleaned
	}
	return ""
}

func newMinioBackend(cfg Config) (*minioBackend, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioBackend{client: mc}, nil
}

// parseEndpoint accepts either a bare host:port or an http(s) URL. An https
// scheme always turns TLS on.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("endpoint is required")
	}
	scheme, _, found := strings.Cut(raw, "://")
	if !found || (scheme != "http" && scheme != "https") {
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint URL: %w", err)
	}
	if parsed.Host == "" {
		return "", false, errors.New("endpoint host is required")
	}
	return parsed.Host, parsed.Scheme == "https" || useSSL, nil
}

type minioBackend struct {
	client *minio.Client
}

func (m *minioBackend) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioError(err)
	}
	// GetObject is lazy; Stat forces the first request so missing objects
	// surface here instead of on the first Read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translateMinioError(err)
	}
	return obj, nil
}

func (m *minioBackend) Stat(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	obj, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return storage.ObjectInfo{}, translateMinioError(err)
	}
	return storage.ObjectInfo{Key: obj.Key, Size: obj.Size}, nil
}

func translateMinioError(err error) error {
	if err == nil {
		return nil
	}
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return storage.ErrObjectNotFound
		}
	}
	return err
}
