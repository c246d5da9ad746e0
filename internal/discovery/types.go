package discovery

import (
	"context"
	"time"
)

// ContentItem is one fetched article or post, before scoring.
type ContentItem struct {
	ID          string    `json:"id"` // canonical URL, or title when there is none
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt string    `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// Source is one origin of content items: a feed, an API, ...
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]ContentItem, error)
}

func newItem(title, text, link, source, published string) ContentItem {
	id := link
	if id == "" {
		id = title
	}
	return ContentItem{
		ID:          id,
		Title:       title,
		Text:        Truncate(CleanHTML(text), MaxTextLen),
		URL:         link,
		Source:      source,
		PublishedAt: published,
		FetchedAt:   time.Now().UTC(),
	}
}
