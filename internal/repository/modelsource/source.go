// Package modelsource opens IFC models from the local filesystem or from
// S3-compatible object storage.
package modelsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/version"
)

const (
	schemeS3   = "s3://"
	schemeFile = "file://"
)

// Config configures the object store and the local root.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	// Root restricts local sources to files under this directory.
	// Empty disables local sources.
	Root string
}

// Source resolves model locations.
type Source struct {
	client *minio.Client
	root   string
}

// New creates a Source. Without an endpoint, s3:// sources are rejected.
func New(cfg Config) (*Source, error) {
	s := &Source{}
	if cfg.Root != "" {
		root, err := filepath.Abs(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", cfg.Root, err)
		}
		s.root = root
	}
	if cfg.Endpoint == "" {
		return s, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	client.SetAppInfo("bimquery", version.Version)
	s.client = client
	return s, nil
}

// Open returns a reader for source and a display name for the model.
// The caller closes the reader.
func (s *Source) Open(ctx context.Context, source string) (io.ReadCloser, string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, "", fmt.Errorf("%w: source is required", domain.ErrInvalidRequest)
	}
	if strings.HasPrefix(source, schemeS3) {
		return s.openObject(ctx, strings.TrimPrefix(source, schemeS3))
	}
	return s.openFile(strings.TrimPrefix(source, schemeFile))
}

func (s *Source) openObject(ctx context.Context, location string) (io.ReadCloser, string, error) {
	if s.client == nil {
		return nil, "", fmt.Errorf("%w: object storage is not configured", domain.ErrInvalidRequest)
	}
	bucket, key, ok := strings.Cut(location, "/")
	if !ok || bucket == "" || key == "" {
		return nil, "", fmt.Errorf("%w: expected s3://bucket/key, got %q", domain.ErrInvalidRequest, schemeS3+location)
	}

	if _, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("object %s/%s: %w", bucket, key, domain.ErrNotFound)
		}
		return nil, "", fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	return obj, path.Base(key), nil
}

func (s *Source) openFile(name string) (io.ReadCloser, string, error) {
	if s.root == "" {
		return nil, "", fmt.Errorf("%w: local sources are disabled", domain.ErrInvalidRequest)
	}
	full := name
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.root, full)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, "", fmt.Errorf("%w: %q is outside the model root", domain.ErrInvalidRequest, name)
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("model file %s: %w", rel, domain.ErrNotFound)
		}
		return nil, "", fmt.Errorf("open model file: %w", err)
	}
	return f, filepath.Base(full), nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound" || code == "NoSuchBucket"
}
