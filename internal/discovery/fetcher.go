package discovery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"viralwarn/internal/observability"
)

// Fetcher pulls every source concurrently and merges the results in source
// order, deduplicated by URL (or ID for items without one).
type Fetcher struct {
	Sources     []Source
	Concurrency int
	MaxItems    int
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

func NewFetcher(sources []Source, maxItems int, logger *slog.Logger, m *observability.Metrics) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		Sources:     sources,
		Concurrency: 6,
		MaxItems:    maxItems,
		Logger:      logger,
		Metrics:     m,
	}
}

// FetchAll never fails: a source that errors contributes zero items and is
// logged.
func (f *Fetcher) FetchAll(ctx context.Context) []ContentItem {
	results := make([][]ContentItem, len(f.Sources))

	g, gctx := errgroup.WithContext(ctx)
	if f.Concurrency > 0 {
		g.SetLimit(f.Concurrency)
	}
	for i, src := range f.Sources {
		g.Go(func() error {
			start := time.Now()
			items, err := src.Fetch(gctx)
			f.Metrics.ObserveFetch(src.Name(), len(items), err)
			if err != nil {
				f.Logger.Warn("fetch source failed", "source", src.Name(), "error", err)
				return nil
			}
			f.Logger.Debug("fetched source", "source", src.Name(), "items", len(items),
				"duration", time.Since(start).Truncate(time.Millisecond))
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []ContentItem
	for _, r := range results {
		all = append(all, r...)
	}
	out := dedupeItems(all)
	if f.MaxItems > 0 && len(out) > f.MaxItems {
		out = out[:f.MaxItems]
	}

	f.Logger.Info("fetched items", "sources", len(f.Sources), "items", len(out))
	return out
}

// dedupeItems keeps the first occurrence of each URL, or of each ID when the
// item has no URL.
func dedupeItems(in []ContentItem) []ContentItem {
	seen := make(map[string]bool, len(in))
	out := make([]ContentItem, 0, len(in))
	for _, it := range in {
		key := normalizeURL(it.URL)
		if key == "" {
			key = "id:" + strings.TrimSpace(it.ID)
		}
		if key == "id:" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// normalizeURL drops the fragment and a trailing slash. The query is kept:
// several publishers identify articles by it (?p=123).
func normalizeURL(urlStr string) string {
	urlStr = strings.TrimSpace(urlStr)
	if i := strings.Index(urlStr, "#"); i > 0 {
		urlStr = urlStr[:i]
	}
	return strings.ToLower(strings.TrimSuffix(urlStr, "/"))
}
