package publish

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/spherical/shopcard/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	fail    string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]string{}, types: map[string]string{}}
}

func (m *memStore) WriteObject(_ context.Context, name, contentType string, r io.Reader) (bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == m.fail {
		return false, errors.New("backend unavailable")
	}
	if _, ok := m.objects[name]; ok {
		return true, nil
	}
	m.objects[name] = string(data)
	m.types[name] = contentType
	return false, nil
}

func writeArtifacts(t *testing.T) *domain.Artifacts {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "images"), 0o755))
	art := &domain.Artifacts{
		HTMLPath:   filepath.Join(dir, "acme_shopping_card.html"),
		DataPath:   filepath.Join(dir, "acme_shopping_card_data.json"),
		ImagePaths: []string{filepath.Join(dir, "images", "page_001.jpg")},
	}
	for _, f := range art.Files() {
		require.NoError(t, os.WriteFile(f, []byte(filepath.Base(f)), 0o644))
	}
	return art
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		runID  string
		file   string
		want   string
	}{
		{"html", "cards", "run1", "/out/a.html", "cards/run1/a.html"},
		{"image keeps directory", "cards/", "run1", "/out/images/page_001.jpg", "cards/run1/images/page_001.jpg"},
		{"no prefix", "", "run1", "/out/a.html", "run1/a.html"},
		{"outside root", "p", "r", "/elsewhere/x.json", "p/r/x.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(tt.prefix, tt.runID, "/out", tt.file))
		})
	}
}

func TestPublish(t *testing.T) {
	store := newMemStore()
	p := newPublisher("shop-bucket", "/cards/", store, nil)
	art := writeArtifacts(t)

	uploads, err := p.Publish(context.Background(), "run-42", art)
	require.NoError(t, err)
	require.Len(t, uploads, 3)

	var urls []string
	for _, u := range uploads {
		urls = append(urls, u.URL)
		assert.False(t, u.Skipped)
	}
	sort.Strings(urls)
	assert.Equal(t, []string{
		"gs://shop-bucket/cards/run-42/acme_shopping_card.html",
		"gs://shop-bucket/cards/run-42/acme_shopping_card_data.json",
		"gs://shop-bucket/cards/run-42/images/page_001.jpg",
	}, urls)
	assert.Equal(t, "acme_shopping_card.html", store.objects["cards/run-42/acme_shopping_card.html"])
	assert.Equal(t, "text/html; charset=utf-8", store.types["cards/run-42/acme_shopping_card.html"])
	assert.Equal(t, "image/jpeg", store.types["cards/run-42/images/page_001.jpg"])

	again, err := p.Publish(context.Background(), "run-42", art)
	require.NoError(t, err)
	for _, u := range again {
		assert.True(t, u.Skipped)
	}
}

func TestPublish_Failure(t *testing.T) {
	store := newMemStore()
	store.fail = "run/acme_shopping_card_data.json"
	p := newPublisher("b", "", store, nil)

	_, err := p.Publish(context.Background(), "run", writeArtifacts(t))
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeOutput))
}

func TestPublish_NothingToUpload(t *testing.T) {
	p := newPublisher("b", "", newMemStore(), nil)
	uploads, err := p.Publish(context.Background(), "run", &domain.Artifacts{})
	require.NoError(t, err)
	assert.Empty(t, uploads)
	assert.NoError(t, p.Close())
}

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusPreconditionFailed}))
	assert.True(t, isPreconditionFailed(errors.Join(errors.New("close"), &googleapi.Error{Code: 412})))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(errors.New("boom")))
}
