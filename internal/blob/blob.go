// Package blob stores uploaded files and fetched images in Google Cloud
// Storage and hands back public URLs for embedding in notes.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/quillnotes/quill/internal/log"
)

// ErrDisabled is returned when no storage bucket is configured.
var ErrDisabled = errors.New("blob: storage bucket not configured")

// maxUploadSize bounds a single upload.
const maxUploadSize = 32 << 20 // 32 MiB

const fetchTimeout = 30 * time.Second

// Object describes a stored file.
type Object struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

// Store writes objects to a GCS bucket.
type Store struct {
	bucket *storage.BucketHandle
	name   string
	httpc  *http.Client
	logger log.Logger
}

// NewStore builds a Store for the named bucket. An empty bucket name
// returns a disabled store whose methods report ErrDisabled; callers can
// keep the rest of the app running without object storage.
func NewStore(ctx context.Context, bucket string, logger log.Logger) (*Store, error) {
	s := &Store{
		name:   bucket,
		httpc:  &http.Client{Timeout: fetchTimeout},
		logger: logger,
	}
	if bucket == "" {
		logger.Warn("storage bucket not configured, uploads disabled")
		return s, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s.bucket = client.Bucket(bucket)
	return s, nil
}

// Enabled reports whether a bucket is configured.
func (s *Store) Enabled() bool { return s.bucket != nil }

// Upload stores r under a fresh object name derived from filename and
// returns the public URL. r is capped at maxUploadSize.
func (s *Store) Upload(ctx context.Context, filename, contentType string, r io.Reader) (Object, error) {
	if s.bucket == nil {
		return Object{}, ErrDisabled
	}

	name := objectName(filename)
	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType

	size, err := io.Copy(w, io.LimitReader(r, maxUploadSize))
	if err != nil {
		w.Close()
		return Object{}, fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("finalize object %s: %w", name, err)
	}

	s.logger.Info("stored object",
		slog.String("object", name),
		slog.String("content_type", contentType),
		slog.Int64("size", size))

	return Object{
		Name:        name,
		ContentType: contentType,
		Size:        size,
		URL:         s.publicURL(name),
	}, nil
}

// SaveFromURL fetches srcURL and stores the body, returning the stored
// object. Used to persist model-generated images whose provider URLs
// expire.
func (s *Store) SaveFromURL(ctx context.Context, srcURL string) (Object, error) {
	if s.bucket == nil {
		return Object{}, ErrDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return Object{}, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return Object{}, fmt.Errorf("fetch %s: %w", srcURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Object{}, fmt.Errorf("fetch %s: unexpected status %d", srcURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return s.Upload(ctx, path.Base(req.URL.Path), contentType, resp.Body)
}

func (s *Store) publicURL(name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.name, name)
}

// objectName namespaces uploads and prefixes a UUID so distinct uploads
// of the same filename never collide.
func objectName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	if base == "" || base == "." {
		base = "file"
	}
	return fmt.Sprintf("uploads/%s-%s", uuid.NewString(), base)
}
