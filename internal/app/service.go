package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"viralwarn/internal/api"
	"viralwarn/internal/config"
	"viralwarn/internal/discovery"
	"viralwarn/internal/evidence"
	"viralwarn/internal/geo"
	"viralwarn/internal/inference"
	"viralwarn/internal/observability"
	"viralwarn/internal/poller"
	"viralwarn/internal/scoring"
	"viralwarn/internal/store"
)

// Service is the fully wired pipeline. It is built once per process.
type Service struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	Models     *inference.Registry
	Fetcher    *discovery.Fetcher
	Aggregator *scoring.Aggregator
	Locator    *geo.Locator // nil when geolocation is disabled
	Store      *store.Store
	Poller     *poller.Poller
}

func NewService(cfg config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := observability.NewMetrics(reg)

	countries, err := geo.NewDatasetResolver()
	if err != nil {
		return nil, err
	}
	editions, err := googleNewsEditions(context.Background(), cfg.GoogleNews, countries)
	if err != nil {
		return nil, err
	}
	sources := buildSources(cfg, editions)
	fetcher := discovery.NewFetcher(sources, cfg.MaxItemsPerCycle, logger.With("component", "fetcher"), m)

	models := inference.NewRegistry(newBackend(cfg.Inference), inference.Models{
		FakeNews:  cfg.Inference.Models.FakeNews,
		Sentiment: cfg.Inference.Models.Sentiment,
		NLI:       cfg.Inference.Models.NLI,
		Entities:  cfg.Inference.Models.Entities,
	}, cfg.UseHeavyModels, logger.With("component", "models"))

	var embedder inference.Embedder
	if cfg.UseHeavyModels && cfg.Embeddings.BaseURL != "" {
		embedder = inference.NewOpenAIEmbedder(cfg.Embeddings.BaseURL, cfg.Embeddings.Token, cfg.Embeddings.Model)
	}

	wiki := evidence.NewWikipedia(cfg.Evidence.Endpoint, cfg.Evidence.Timeout,
		cfg.Evidence.RatePerSecond, cfg.Evidence.Burst, logger.With("component", "evidence"))
	wiki.MaxQueryLen = cfg.Evidence.MaxQueryLen

	agg := scoring.NewAggregator(models, embedder, wiki, logger.With("component", "scoring"), m)

	var locator *geo.Locator
	if cfg.Geo.Enable {
		matcher, err := geo.NewCountryMatcher()
		if err != nil {
			return nil, err
		}
		locator = geo.NewLocator(matcher, geo.NewIPAPIResolver(cfg.Geo.Endpoint, cfg.Geo.Timeout), logger.With("component", "geo"))
	}

	st := store.New(cfg.MaxEventsStored)

	p := poller.New(fetcher, agg, locator, st, cfg.FetchInterval, logger.With("component", "poller"), m)
	p.Threshold = cfg.RiskThreshold
	p.ResetInterval = cfg.GeoTopics.ResetInterval

	logger.Info("service ready",
		"sources", len(sources),
		"models", models.Enabled(),
		"embeddings", embedderName(embedder),
		"geo", cfg.Geo.Enable,
		"max_events", cfg.MaxEventsStored,
	)

	return &Service{
		Config:     cfg,
		Logger:     logger,
		Registry:   reg,
		Metrics:    m,
		Models:     models,
		Fetcher:    fetcher,
		Aggregator: agg,
		Locator:    locator,
		Store:      st,
		Poller:     p,
	}, nil
}

// API returns the HTTP server over the service's store and poller.
func (s *Service) API() *api.Server {
	srv := api.NewServer(s.Store, s.Aggregator, s.Locator, s.Poller, s.Models, s.Registry, s.Config.RiskThreshold, s.Logger.With("component", "api"))
	srv.Interval = s.Config.FetchInterval
	return srv
}

func newBackend(c config.InferenceConfig) inference.Backend {
	if c.Backend == "worker" {
		return inference.NewWorkerBackend(c.Python, c.Script, c.Timeout)
	}
	return inference.NewHTTPBackend(c.Endpoint, c.Token, c.Timeout)
}

// buildSources lists feeds in catalogue order, then NewsAPI (only with a
// key), then one Google News source per edition.
func buildSources(cfg config.Config, editions []geo.Edition) []discovery.Source {
	feeds := discovery.DefaultFeeds()
	if len(cfg.Feeds) > 0 {
		feeds = make([]discovery.Feed, 0, len(cfg.Feeds))
		for _, f := range cfg.Feeds {
			name := f.Name
			if name == "" {
				name = f.URL
			}
			feeds = append(feeds, discovery.Feed{Name: name, URL: f.URL, Group: f.Group})
		}
	}

	var sources []discovery.Source
	for _, f := range discovery.FilterFeeds(feeds, cfg.IncludeQuestionable) {
		sources = append(sources, discovery.NewRSSFeed(f, cfg.ItemsPerFeed, cfg.FetchTimeout))
	}
	if cfg.NewsAPI.APIKey != "" {
		sources = append(sources, discovery.NewNewsAPI(cfg.NewsAPI.Endpoint, cfg.NewsAPI.APIKey,
			cfg.NewsAPI.Sources, cfg.NewsAPI.PageSize, cfg.NewsAPI.Timeout))
	}
	if cfg.GoogleNews.Enable {
		for _, e := range editions {
			sources = append(sources, discovery.NewGoogleNews(e, cfg.GoogleNews.Limit, cfg.FetchTimeout))
		}
	}
	return sources
}

// googleNewsEditions merges the explicit editions with those of the listed
// countries: one per official language, plus English.
func googleNewsEditions(ctx context.Context, c config.GoogleNewsConfig, countries geo.Resolver) ([]geo.Edition, error) {
	var out []geo.Edition
	seen := map[geo.Edition]bool{}
	add := func(e geo.Edition) {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}

	for _, s := range c.Editions {
		e, err := geo.ParseEdition(s)
		if err != nil {
			return nil, fmt.Errorf("google_news.editions: %w", err)
		}
		add(e)
	}
	for _, name := range c.Countries {
		info, err := countries.ResolveCountry(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("google_news.countries: %q: %w", name, err)
		}
		for _, e := range geo.EditionsFor(info, true) {
			add(e)
		}
	}
	return out, nil
}

func embedderName(e inference.Embedder) string {
	if e == nil {
		return "lexical"
	}
	return "openai-compatible"
}
