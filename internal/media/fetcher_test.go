package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBytesAndMime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "image/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	img, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), img.Data)
	require.Equal(t, "image/png", img.MimeType)
}

func TestFetchSchemelessFallsBackToHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	// the test server only speaks plain http, so the https attempt fails
	// and the fallback succeeds
	host := strings.TrimPrefix(srv.URL, "http://")

	f := NewFetcher(2 * time.Second)
	img, err := f.Fetch(context.Background(), host)
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg"), img.Data)
}

func TestFetchRejectsBadStatusAndEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(2 * time.Second)

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/empty")
	require.Error(t, err)
}

func TestFetchDetectsMimeWhenHeaderMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil
		// PNG magic bytes
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nxxxx"))
	}))
	defer srv.Close()

	f := NewFetcher(2 * time.Second)
	img, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "image/png", img.MimeType)
}
