package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Feed is one entry of the feed catalogue.
type Feed struct {
	Name  string
	URL   string
	Group string
}

// RSSFeed pulls the latest entries of a single RSS or Atom feed.
type RSSFeed struct {
	Client *http.Client
	Feed   Feed
	Limit  int
}

func NewRSSFeed(f Feed, limit int, timeout time.Duration) *RSSFeed {
	return &RSSFeed{
		Client: &http.Client{Timeout: timeout},
		Feed:   f,
		Limit:  limit,
	}
}

func (r *RSSFeed) Name() string { return r.Feed.Name }

func (r *RSSFeed) Fetch(ctx context.Context) ([]ContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Feed.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.1")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: http %d", r.Feed.Name, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: parse feed: %w", r.Feed.Name, err)
	}

	out := make([]ContentItem, 0, r.Limit)
	for _, it := range feed.Items {
		if r.Limit > 0 && len(out) >= r.Limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		// entries without both are useless for scoring and dedupe
		if title == "" || link == "" {
			continue
		}

		summary := it.Description
		if summary == "" {
			summary = it.Content
		}
		published := it.Published
		if published == "" {
			published = it.Updated
		}

		item := newItem(title, summary, link, r.Feed.Name, strings.TrimSpace(published))
		if it.Image != nil {
			item.ImageURL = it.Image.URL
		}
		out = append(out, item)
	}
	return out, nil
}
