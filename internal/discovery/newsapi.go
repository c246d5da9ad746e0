package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NewsAPI reads top headlines of a fixed set of publishers from newsapi.org.
// Without an API key it contributes nothing.
type NewsAPI struct {
	Client   *http.Client
	Endpoint string
	APIKey   string
	Sources  []string
	PageSize int
}

func NewNewsAPI(endpoint, apiKey string, sources []string, pageSize int, timeout time.Duration) *NewsAPI {
	return &NewsAPI{
		Client:   &http.Client{Timeout: timeout},
		Endpoint: endpoint,
		APIKey:   apiKey,
		Sources:  sources,
		PageSize: pageSize,
	}
}

func (n *NewsAPI) Name() string { return "NewsAPI" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch queries every configured publisher. A failing publisher is skipped;
// an error is returned only when all of them failed.
func (n *NewsAPI) Fetch(ctx context.Context) ([]ContentItem, error) {
	if strings.TrimSpace(n.APIKey) == "" {
		return nil, nil
	}

	var (
		out     []ContentItem
		lastErr error
		failed  int
	)
	for _, src := range n.Sources {
		items, err := n.fetchSource(ctx, src)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		out = append(out, items...)
	}
	if failed > 0 && failed == len(n.Sources) {
		return nil, lastErr
	}
	return out, nil
}

func (n *NewsAPI) fetchSource(ctx context.Context, source string) ([]ContentItem, error) {
	q := url.Values{}
	q.Set("sources", source)
	q.Set("pageSize", strconv.Itoa(n.PageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", n.APIKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("newsapi %s: http %d: %s", source, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var r newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("newsapi %s: %w", source, err)
	}
	if r.Status != "" && r.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s: %s: %s", source, r.Code, r.Message)
	}

	out := make([]ContentItem, 0, len(r.Articles))
	for _, a := range r.Articles {
		name := a.Source.Name
		if name == "" {
			name = "NewsAPI"
		}
		item := newItem(strings.TrimSpace(a.Title), a.Description, strings.TrimSpace(a.URL), name, a.PublishedAt)
		item.ImageURL = a.URLToImage
		out = append(out, item)
	}
	return out, nil
}
