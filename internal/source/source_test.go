// internal/source/source_test.go - Unit tests for document fetchers
package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/internal/config"
)

const doc = `<mapml-><map-body><map-feature id="a"></map-feature></map-body></mapml->`

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func memFS(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/data/roads.mapml", []byte(doc), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/data/nested/rivers.mapml.gz", gzipped(t, doc), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/data/notes.txt", []byte("ignored"), 0o644))
	return fsys
}

func TestLocalFetcher_Fetch(t *testing.T) {
	f := NewLocalFetcher(memFS(t), "/data")
	ctx := context.Background()

	data, err := f.Fetch(ctx, "roads.mapml")
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))

	data, err = f.Fetch(ctx, "/data/nested/rivers.mapml.gz")
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}

func TestLocalFetcher_Errors(t *testing.T) {
	f := NewLocalFetcher(memFS(t), "/data")
	ctx := context.Background()

	_, err := f.Fetch(ctx, "missing.mapml")
	require.Error(t, err)
	assert.Equal(t, internal.ErrorCodeNotFound, internal.ErrorCodeOf(err))

	_, err = f.Fetch(ctx, "nested")
	require.Error(t, err)
	assert.Equal(t, internal.ErrorCodeValidation, internal.ErrorCodeOf(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.Fetch(cancelled, "roads.mapml")
	require.Error(t, err)
	assert.Equal(t, internal.ErrorCodeTimeout, internal.ErrorCodeOf(err))
}

func TestLocalFetcher_List(t *testing.T) {
	f := NewLocalFetcher(memFS(t), "/data")

	docs, err := f.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/nested/rivers.mapml.gz", "/data/roads.mapml"}, docs)
}

func TestIsDocument(t *testing.T) {
	assert.True(t, IsDocument("a.mapml"))
	assert.True(t, IsDocument("a.MAPML.gz"))
	assert.True(t, IsDocument("page.html"))
	assert.False(t, IsDocument("a.txt"))
	assert.False(t, IsDocument("a.gz"))
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Defaults()
	cfg.Source.BaseURL = baseURL
	cfg.Source.MaxRetries = 2
	cfg.Source.Timeout = 5 * time.Second
	cfg.Source.Headers = map[string]string{"X-Api-Key": "secret"}
	return cfg
}

func noBackoff(f *HTTPFetcher) *HTTPFetcher {
	f.backoff = func(int) time.Duration { return 0 }
	return f
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/roads.mapml", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "MapMLFeatures/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(gzipped(t, doc))
	}))
	defer srv.Close()

	f := noBackoff(NewHTTPFetcher(testConfig(srv.URL+"/maps"), nil))
	data, err := f.Fetch(context.Background(), "roads.mapml")
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(doc))
	}))
	defer srv.Close()

	f := noBackoff(NewHTTPFetcher(testConfig(""), nil))
	data, err := f.Fetch(context.Background(), srv.URL+"/roads.mapml")
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcher_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := noBackoff(NewHTTPFetcher(testConfig(""), nil))
	_, err := f.Fetch(context.Background(), srv.URL+"/missing.mapml")
	require.Error(t, err)
	assert.Equal(t, internal.ErrorCodeNetwork, internal.ErrorCodeOf(err))
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_RelativeWithoutBase(t *testing.T) {
	f := NewHTTPFetcher(testConfig(""), nil)
	_, err := f.Fetch(context.Background(), "roads.mapml")
	require.Error(t, err)
	assert.Equal(t, internal.ErrorCodeValidation, internal.ErrorCodeOf(err))
}

func TestFactory(t *testing.T) {
	cfg := testConfig("")
	cfg.Source.BasePath = "/data"
	factory := NewFactory(cfg, memFS(t), nil)

	f, err := factory.ForLocation("https://example.com/roads.mapml")
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = factory.ForLocation("roads.mapml")
	require.NoError(t, err)
	require.IsType(t, &LocalFetcher{}, f)

	data, err := f.Fetch(context.Background(), "roads.mapml")
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))

	_, err = factory.ForType(internal.SourceType("ftp"))
	assert.Error(t, err)
}
