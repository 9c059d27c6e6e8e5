package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler, cfg Config) *BlobStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	store, err := New(client, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutObjectUploadsWithPrefix(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		name string
		body string
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/archive/o")
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		mu.Lock()
		name = r.URL.Query().Get("name")
		body = string(data)
		mu.Unlock()
		fmt.Fprintln(w, `{"name": "exports/smartstore.xlsx", "bucket": "archive"}`)
	})
	store := newTestStore(t, handler, Config{Bucket: "archive", Prefix: "/exports/"})

	uri, err := store.PutObject(context.Background(), "smartstore.xlsx", "application/octet-stream", strings.NewReader("workbook-bytes"))
	require.NoError(t, err)
	require.Equal(t, "gs://archive/exports/smartstore.xlsx", uri)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "exports/smartstore.xlsx", name)
	require.Contains(t, body, "workbook-bytes")
}

func TestPutObjectSurfacesServerErrors(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "forbidden"}}`, http.StatusForbidden)
	})
	store := newTestStore(t, handler, Config{Bucket: "archive"})

	_, err := store.PutObject(context.Background(), "pages/a.html", "text/html", strings.NewReader("<html/>"))
	require.Error(t, err)
}

func TestPutObjectRequiresKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.NotFoundHandler(), Config{Bucket: "archive"})
	_, err := store.PutObject(context.Background(), "  ", "", strings.NewReader(""))
	require.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()
	_, err = New(client, Config{})
	require.Error(t, err)
}
