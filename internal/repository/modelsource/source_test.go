package modelsource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/bimquery/internal/domain"
)

func TestOpen_LocalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "house.ifc"), []byte("ISO-10303-21;"), 0o600))

	src, err := New(Config{Root: dir})
	require.NoError(t, err)

	for _, in := range []string{"house.ifc", "file://house.ifc", filepath.Join(dir, "house.ifc")} {
		rc, name, err := src.Open(context.Background(), in)
		require.NoError(t, err, in)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "house.ifc", name)
		assert.Equal(t, "ISO-10303-21;", string(data))
	}
}

func TestOpen_LocalErrors(t *testing.T) {
	dir := t.TempDir()
	src, err := New(Config{Root: dir})
	require.NoError(t, err)

	_, _, err = src.Open(context.Background(), "missing.ifc")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = src.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, _, err = src.Open(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestOpen_LocalDisabled(t *testing.T) {
	src, err := New(Config{})
	require.NoError(t, err)

	_, _, err = src.Open(context.Background(), "house.ifc")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, _, err = src.Open(context.Background(), "s3://models/house.ifc")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func newS3Server(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			}
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Last-Modified", "Mon, 02 Jun 2025 10:00:00 GMT")
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.WriteString(w, body)
	}))
}

func s3Source(t *testing.T, server *httptest.Server) *Source {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	src, err := New(Config{Endpoint: u.Host, AccessKey: "k", SecretKey: "s", Region: "us-east-1"})
	require.NoError(t, err)
	return src
}

func TestOpen_S3Object(t *testing.T) {
	server := newS3Server(t, map[string]string{"/models/site/house.ifc": "DATA;"})
	defer server.Close()

	rc, name, err := s3Source(t, server).Open(context.Background(), "s3://models/site/house.ifc")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "house.ifc", name)
	assert.Equal(t, "DATA;", string(data))
}

func TestOpen_S3Missing(t *testing.T) {
	server := newS3Server(t, nil)
	defer server.Close()

	_, _, err := s3Source(t, server).Open(context.Background(), "s3://models/nope.ifc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpen_S3BadLocation(t *testing.T) {
	server := newS3Server(t, nil)
	defer server.Close()

	_, _, err := s3Source(t, server).Open(context.Background(), "s3://models")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
