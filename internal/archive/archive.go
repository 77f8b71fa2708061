// Package archive stores uploaded ledgers and generated report artifacts.
// URIs with a gs:// scheme go to Google Cloud Storage; anything else is
// treated as a local filesystem path, which keeps CLI runs cloud-free.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Store abstracts artifact storage so the pipeline can be tested without
// touching GCS or the disk.
type Store interface {
	// Fetch reads the full contents at uri.
	Fetch(ctx context.Context, uri string) ([]byte, error)

	// Put writes data at uri, creating parent objects/directories as needed.
	Put(ctx context.Context, uri string, data []byte, contentType string) error
}

// Client is the production Store. The zero value is usable.
type Client struct{}

// NewClient returns a Store that dispatches on URI scheme.
func NewClient() *Client {
	return &Client{}
}

// Fetch implements Store.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if IsGCSURI(uri) {
		return fetchGCS(ctx, uri)
	}

	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read local file %q: %w", uri, err)
	}
	return data, nil
}

// Put implements Store.
func (c *Client) Put(ctx context.Context, uri string, data []byte, contentType string) error {
	if IsGCSURI(uri) {
		return putGCS(ctx, uri, data, contentType)
	}

	if dir := filepath.Dir(uri); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("Put: create directory %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(uri, data, 0o644); err != nil {
		return fmt.Errorf("Put: write local file %q: %w", uri, err)
	}
	return nil
}

// IsGCSURI reports whether uri addresses Google Cloud Storage.
func IsGCSURI(uri string) bool {
	return strings.HasPrefix(uri, "gs://")
}

// SplitGCSURI splits "gs://bucket/path/to/object" into bucket and object.
func SplitGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Join appends path elements to a storage prefix of either kind.
// e.g. Join("gs://bucket/out", "ds-1", "report.txt") or Join("/tmp/out", "report.txt").
func Join(prefix string, elem ...string) string {
	if IsGCSURI(prefix) {
		return strings.TrimSuffix(prefix, "/") + "/" + path.Join(elem...)
	}
	return filepath.Join(append([]string{prefix}, elem...)...)
}

// Filename extracts the base filename from a URI of either kind.
// e.g. "gs://bucket/folder/ledger.xlsx" -> "ledger.xlsx".
func Filename(uri string) string {
	if IsGCSURI(uri) {
		trimmed := strings.TrimPrefix(uri, "gs://")
		parts := strings.SplitN(trimmed, "/", 2)
		if len(parts) < 2 {
			return trimmed
		}
		return path.Base(parts[1])
	}
	return filepath.Base(uri)
}

func fetchGCS(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := SplitGCSURI(uri)
	if err != nil {
		return nil, fmt.Errorf("fetchGCS: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchGCS: create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchGCS: open object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetchGCS: read object: %w", err)
	}
	return data, nil
}

func putGCS(ctx context.Context, uri string, data []byte, contentType string) error {
	bucket, object, err := SplitGCSURI(uri)
	if err != nil {
		return fmt.Errorf("putGCS: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("putGCS: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("putGCS: write object %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("putGCS: finalize upload: %w", err)
	}
	return nil
}

var _ Store = (*Client)(nil)
