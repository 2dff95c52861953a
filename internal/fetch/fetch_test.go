package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nSUMMARY:x\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func TestFetchHTTPUsesETagCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "team", Location: srv.URL + "/private.ics?token=secret"}

	first, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, feedBody, string(first.Body))

	second, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, feedBody, string(second.Body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchHTTPFallsBackToCache(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "team", Location: srv.URL}

	_, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)

	fail.Store(true)
	p, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, p.FromCache)
	assert.Equal(t, feedBody, string(p.Body))
}

func TestFetchHTTPErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(t.TempDir()).Fetch(context.Background(), Source{ID: "x", Location: srv.URL})
	assert.Error(t, err)
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.ics")
	require.NoError(t, os.WriteFile(path, []byte(feedBody), 0o600))

	f := NewFetcher(t.TempDir())
	for _, loc := range []string{path, "file://" + path} {
		p, err := f.Fetch(context.Background(), Source{ID: "local", Location: loc})
		require.NoError(t, err)
		assert.Equal(t, feedBody, string(p.Body))
	}

	_, err := f.Fetch(context.Background(), Source{ID: "none", Location: filepath.Join(dir, "missing.ics")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = f.Fetch(context.Background(), Source{ID: "empty"})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://calendar.example.com/...(redacted)", RedactURL("https://calendar.example.com/u/123/private.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", RedactURL("/local/path.ics"))
}
