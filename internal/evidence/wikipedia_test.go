package evidence

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWikipedia_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "1", q.Get("srlimit"))

		switch q.Get("srsearch") {
		case "Eiffel Tower":
			_, _ = io.WriteString(w, `{"query":{"search":[{"title":"Eiffel Tower","pageid":9232,
				"snippet":"The <span class=\"searchmatch\">Eiffel</span> <span class=\"searchmatch\">Tower</span> is a wrought-iron lattice tower &amp; landmark"}]}}`)
		case "zzzz":
			_, _ = io.WriteString(w, `{"query":{"search":[]}}`)
		case "broken":
			_, _ = io.WriteString(w, `{"error":{"code":"internal","info":"boom"}}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	wp := NewWikipedia(srv.URL+"/w/api.php", time.Second, 0, 0, quietLogger())
	ctx := context.Background()

	hit, ok := wp.Search(ctx, "  Eiffel Tower ")
	require.True(t, ok)
	assert.Equal(t, "Eiffel Tower", hit.Title)
	assert.Equal(t, "The Eiffel Tower is a wrought-iron lattice tower & landmark", hit.Snippet)
	assert.Equal(t, srv.URL+"/wiki/Eiffel_Tower", hit.PageURL)

	for _, q := range []string{"zzzz", "broken", "other", ""} {
		_, ok := wp.Search(ctx, q)
		assert.False(t, ok, q)
	}
}

func TestWikipedia_TimeoutBoundsLatency(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	wp := NewWikipedia(srv.URL, 50*time.Millisecond, 0, 0, quietLogger())
	start := time.Now()
	_, ok := wp.Search(context.Background(), "slow")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWikipedia_QueryIsTruncated(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("srsearch")
		_, _ = io.WriteString(w, `{"query":{"search":[]}}`)
	}))
	defer srv.Close()

	wp := NewWikipedia(srv.URL, time.Second, 0, 0, quietLogger())
	wp.MaxQueryLen = 10
	_, _ = wp.Search(context.Background(), strings.Repeat("é", 30))
	assert.Equal(t, strings.Repeat("é", 10), got)
}

func TestWikipedia_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"query":{"search":[{"title":"T","snippet":"s"}]}}`)
	}))
	defer srv.Close()

	// one token, refilled every 10s: the second lookup cannot get one within its timeout
	wp := NewWikipedia(srv.URL, 100*time.Millisecond, 0.1, 1, quietLogger())
	_, ok := wp.Search(context.Background(), "first")
	assert.True(t, ok)
	_, ok = wp.Search(context.Background(), "second")
	assert.False(t, ok)
}
