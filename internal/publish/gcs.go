// Package publish uploads conversion artifacts to Cloud Storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

const uploadConcurrency = 4

// objectWriter stores one object; implemented by a GCS bucket and by tests
type objectWriter interface {
	WriteObject(ctx context.Context, name, contentType string, r io.Reader) (skipped bool, err error)
}

// bucketWriter writes objects only if they do not already exist
type bucketWriter struct {
	bucket *storage.BucketHandle
}

func (b bucketWriter) WriteObject(ctx context.Context, name, contentType string, r io.Reader) (bool, error) {
	w := b.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return false, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// Publisher uploads the files of a conversion under <prefix>/<run id>/
type Publisher struct {
	bucket string
	prefix string
	store  objectWriter
	client *storage.Client
	log    *observability.Logger
}

// New creates a publisher using application default credentials
func New(ctx context.Context, bucket, prefix string, log *observability.Logger) (*Publisher, error) {
	if bucket == "" {
		return nil, domain.ConfigError("publish bucket is empty", nil)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, domain.ConfigError("failed to create Cloud Storage client", err)
	}
	p := newPublisher(bucket, prefix, bucketWriter{bucket: client.Bucket(bucket)}, log)
	p.client = client
	return p, nil
}

func newPublisher(bucket, prefix string, store objectWriter, log *observability.Logger) *Publisher {
	if log == nil {
		log = observability.Nop()
	}
	return &Publisher{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		store:  store,
		log:    log.WithOperation("publish"),
	}
}

// Close releases the storage client
func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Upload describes one published file
type Upload struct {
	File    string
	URL     string
	Skipped bool // the object already existed
}

// Publish uploads every artifact. Paths keep their layout relative to the
// HTML file so image references stay valid.
func (p *Publisher) Publish(ctx context.Context, runID string, art *domain.Artifacts) ([]Upload, error) {
	files := art.Files()
	if len(files) == 0 {
		return nil, nil
	}
	root := filepath.Dir(art.HTMLPath)
	log := p.log.WithRunID(runID)

	var (
		mu      sync.Mutex
		uploads = make([]Upload, len(files))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i, file := range files {
		g.Go(func() error {
			name := ObjectName(p.prefix, runID, root, file)
			skipped, err := p.uploadFile(gctx, name, file)
			if err != nil {
				return domain.OutputError(fmt.Sprintf("failed to upload %s", filepath.Base(file)), err)
			}
			if skipped {
				log.Info().Str("object", name).Msg("object already exists, skipping")
			}
			mu.Lock()
			uploads[i] = Upload{File: file, URL: fmt.Sprintf("gs://%s/%s", p.bucket, name), Skipped: skipped}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info().Int("files", len(uploads)).Str("bucket", p.bucket).Msg("artifacts published")
	return uploads, nil
}

func (p *Publisher) uploadFile(ctx context.Context, name, file string) (bool, error) {
	f, err := os.Open(file)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return p.store.WriteObject(ctx, name, contentType(file), f)
}

// ObjectName maps a local artifact to <prefix>/<run id>/<path relative to root>
func ObjectName(prefix, runID, root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(file)
	}
	parts := []string{}
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	if runID != "" {
		parts = append(parts, runID)
	}
	parts = append(parts, filepath.ToSlash(rel))
	return path.Join(parts...)
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	}
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}
