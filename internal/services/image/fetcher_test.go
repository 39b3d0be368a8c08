package image

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cat.png", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/png; charset=binary")
		_, _ = w.Write([]byte("pngdata"))
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/big.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "2048")
		_, _ = w.Write(make([]byte, 2048))
	})
	mux.HandleFunc("/slow.png", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "image/png")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := newImageServer(t)
	f := NewHTTPFetcher(FetcherConfig{MaxSize: 1024, UserAgent: "test-agent"})

	payload, err := f.Fetch(context.Background(), srv.URL+"/cat.png")
	require.NoError(t, err)
	defer payload.Body.Close()

	assert.Equal(t, "image/png", payload.MimeType)
	data, err := io.ReadAll(payload.Body)
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))
}

func TestHTTPFetcher_Errors(t *testing.T) {
	srv := newImageServer(t)
	f := NewHTTPFetcher(FetcherConfig{MaxSize: 1024, UserAgent: "test-agent"})
	ctx := context.Background()

	tests := []struct {
		name  string
		url   string
		check func(error) bool
	}{
		{"empty", "", apperr.IsValidation},
		{"ftp", "ftp://example.com/a.png", apperr.IsValidation},
		{"no_host", "http:///a.png", apperr.IsValidation},
		{"not_image", srv.URL + "/page.html", apperr.IsValidation},
		{"too_large", srv.URL + "/big.png", apperr.IsValidation},
		{"not_found", srv.URL + "/missing.png", apperr.IsRemote},
		{"unreachable", "http://127.0.0.1:1/a.png", apperr.IsRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Fetch(ctx, tt.url)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := newImageServer(t)
	f := NewHTTPFetcher(FetcherConfig{Timeout: 50 * time.Millisecond})

	_, err := f.Fetch(context.Background(), srv.URL+"/slow.png")
	require.Error(t, err)
	assert.True(t, apperr.IsRemote(err))
}

func TestHTTPFetcher_Source(t *testing.T) {
	f := NewHTTPFetcher(FetcherConfig{})
	src := f.Source("https://example.com/photos/sunset%20beach.jpg?x=1")
	assert.Equal(t, "sunset beach.jpg", src.DisplayName())
	assert.True(t, strings.HasSuffix(src.DisplayName(), ".jpg"))
}
