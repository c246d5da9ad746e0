// Package evidence looks up background text for a claim.
package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"
)

// Hit is the best search result for one query.
type Hit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	PageURL string `json:"page_url"`
}

// Searcher finds evidence for a claim. ok is false when nothing was found
// or the lookup failed; implementations bound their own latency.
type Searcher interface {
	Search(ctx context.Context, query string) (hit Hit, ok bool)
}

// Wikipedia searches a MediaWiki api.php (list=search) and returns the top
// hit's snippet with markup removed.
type Wikipedia struct {
	Client      *http.Client
	Endpoint    string
	Timeout     time.Duration
	MaxQueryLen int
	Limiter     *rate.Limiter // nil = unlimited
	Logger      *slog.Logger
}

func NewWikipedia(endpoint string, timeout time.Duration, perSecond float64, burst int, logger *slog.Logger) *Wikipedia {
	if logger == nil {
		logger = slog.Default()
	}
	var lim *rate.Limiter
	if perSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return &Wikipedia{
		Client:      &http.Client{},
		Endpoint:    endpoint,
		Timeout:     timeout,
		MaxQueryLen: 200,
		Limiter:     lim,
		Logger:      logger,
	}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			PageID  int    `json:"pageid"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

var snippetPolicy = bluemonday.StrictPolicy()

func (w *Wikipedia) Search(ctx context.Context, query string) (Hit, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Hit{}, false
	}
	if w.MaxQueryLen > 0 {
		if r := []rune(query); len(r) > w.MaxQueryLen {
			query = string(r[:w.MaxQueryLen])
		}
	}

	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	hit, err := w.search(ctx, query)
	if err != nil {
		w.Logger.Debug("evidence search failed", "query", query, "error", err)
		return Hit{}, false
	}
	return hit, hit.Snippet != ""
}

func (w *Wikipedia) search(ctx context.Context, query string) (Hit, error) {
	if w.Limiter != nil {
		// waiting counts against the lookup timeout
		if err := w.Limiter.Wait(ctx); err != nil {
			return Hit{}, err
		}
	}

	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("srsearch", query)
	q.Set("srlimit", "1")
	q.Set("format", "json")
	q.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Hit{}, err
	}
	req.Header.Set("User-Agent", "viralwarn/1.0 (misinformation early warning)")

	resp, err := w.Client.Do(req)
	if err != nil {
		return Hit{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Hit{}, fmt.Errorf("wikipedia search: http %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Hit{}, fmt.Errorf("wikipedia search: %w", err)
	}
	if sr.Error != nil {
		return Hit{}, fmt.Errorf("wikipedia search: %s: %s", sr.Error.Code, sr.Error.Info)
	}
	if len(sr.Query.Search) == 0 {
		return Hit{}, nil
	}

	top := sr.Query.Search[0]
	return Hit{
		Title:   top.Title,
		Snippet: cleanSnippet(top.Snippet),
		PageURL: pageURL(w.Endpoint, top.Title),
	}, nil
}

// cleanSnippet removes the search-match <span> markup and entities.
func cleanSnippet(s string) string {
	s = html.UnescapeString(snippetPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// pageURL derives https://host/wiki/Title from the api.php endpoint.
func pageURL(endpoint, title string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || title == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}
