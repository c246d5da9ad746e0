// Package config loads the viralwarn YAML configuration and applies defaults
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

type EvidenceConfig struct {
	Endpoint      string        `yaml:"endpoint"`        // MediaWiki api.php
	Timeout       time.Duration `yaml:"timeout"`         // per lookup, keeps scoring latency bounded
	RatePerSecond float64       `yaml:"rate_per_second"` // 0 = unlimited
	Burst         int           `yaml:"burst"`
	MaxQueryLen   int           `yaml:"max_query_len"`
}

type ModelNames struct {
	FakeNews  string `yaml:"fake_news"`
	Sentiment string `yaml:"sentiment"`
	NLI       string `yaml:"nli"`
	Entities  string `yaml:"entities"`
}

type InferenceConfig struct {
	Backend  string        `yaml:"backend"`  // http | worker
	Endpoint string        `yaml:"endpoint"` // e.g. https://api-inference.huggingface.co/models
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	Python   string        `yaml:"python"`
	Script   string        `yaml:"script"`
	Models   ModelNames    `yaml:"models"`
}

type EmbeddingsConfig struct {
	BaseURL string `yaml:"base_url"` // OpenAI-compatible /v1 root; empty = lexical embedder
	Model   string `yaml:"model"`
	Token   string `yaml:"token"`
}

type FeedConfig struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Group string `yaml:"group"` // reputed | questionable | entertainment | india
}

type NewsAPIConfig struct {
	APIKey   string        `yaml:"api_key"`
	Endpoint string        `yaml:"endpoint"`
	Sources  []string      `yaml:"sources"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
}

type GoogleNewsConfig struct {
	Enable    bool     `yaml:"enable"`
	Editions  []string `yaml:"editions"`  // "ISO2:lang", e.g. "US:en"
	Countries []string `yaml:"countries"` // country names, one edition per official language plus English
	Limit     int      `yaml:"limit"`
}

type GeoConfig struct {
	Enable   bool          `yaml:"enable"`
	Endpoint string        `yaml:"endpoint"` // ipapi.co root
	Timeout  time.Duration `yaml:"timeout"`
}

type GeoTopicsConfig struct {
	ResetInterval time.Duration `yaml:"reset_interval"` // 0 = never rotate
}

type Config struct {
	Listen              string           `yaml:"listen"`
	FetchInterval       time.Duration    `yaml:"fetch_interval"`
	FetchTimeout        time.Duration    `yaml:"fetch_timeout"`
	RiskThreshold       float64          `yaml:"risk_threshold"`
	MaxEventsStored     int              `yaml:"max_events_stored"`
	UseHeavyModels      bool             `yaml:"use_heavy_models"`
	IncludeQuestionable bool             `yaml:"include_questionable"`
	ItemsPerFeed        int              `yaml:"items_per_feed"`
	MaxItemsPerCycle    int              `yaml:"max_items_per_cycle"`
	Evidence            EvidenceConfig   `yaml:"evidence"`
	Inference           InferenceConfig  `yaml:"inference"`
	Embeddings          EmbeddingsConfig `yaml:"embeddings"`
	Feeds               []FeedConfig     `yaml:"feeds"`
	NewsAPI             NewsAPIConfig    `yaml:"newsapi"`
	GoogleNews          GoogleNewsConfig `yaml:"google_news"`
	Geo                 GeoConfig        `yaml:"geo"`
	GeoTopics           GeoTopicsConfig  `yaml:"geo_topics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	c := Config{
		UseHeavyModels:      true,
		IncludeQuestionable: true,
		GoogleNews:          GoogleNewsConfig{Enable: true},
		Geo:                 GeoConfig{Enable: true},
	}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":8000"
	}
	if c.FetchInterval <= 0 {
		c.FetchInterval = 60 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.RiskThreshold == 0 {
		c.RiskThreshold = 0.45
	}
	if c.MaxEventsStored <= 0 {
		c.MaxEventsStored = 200
	}
	if c.ItemsPerFeed <= 0 {
		c.ItemsPerFeed = 15
	}
	if c.MaxItemsPerCycle <= 0 {
		c.MaxItemsPerCycle = 150
	}

	if c.Evidence.Endpoint == "" {
		c.Evidence.Endpoint = "https://en.wikipedia.org/w/api.php"
	}
	if c.Evidence.Timeout <= 0 {
		c.Evidence.Timeout = 3 * time.Second
	}
	if c.Evidence.RatePerSecond == 0 {
		c.Evidence.RatePerSecond = 5
	}
	if c.Evidence.Burst <= 0 {
		c.Evidence.Burst = 3
	}
	if c.Evidence.MaxQueryLen <= 0 {
		c.Evidence.MaxQueryLen = 200
	}

	if c.Inference.Backend == "" {
		c.Inference.Backend = "http"
	}
	if c.Inference.Endpoint == "" {
		c.Inference.Endpoint = "https://api-inference.huggingface.co/models"
	}
	if c.Inference.Timeout <= 0 {
		c.Inference.Timeout = 20 * time.Second
	}
	if c.Inference.Python == "" {
		c.Inference.Python = "python"
	}
	if c.Inference.Script == "" {
		c.Inference.Script = "python_worker/worker.py"
	}
	if c.Inference.Models.FakeNews == "" {
		c.Inference.Models.FakeNews = "jy46604790/Fake-News-Bert-Detect"
	}
	if c.Inference.Models.Sentiment == "" {
		c.Inference.Models.Sentiment = "cardiffnlp/twitter-roberta-base-sentiment"
	}
	if c.Inference.Models.NLI == "" {
		c.Inference.Models.NLI = "roberta-large-mnli"
	}
	if c.Inference.Models.Entities == "" {
		c.Inference.Models.Entities = "dslim/bert-base-NER"
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "all-MiniLM-L6-v2"
	}

	if c.NewsAPI.Endpoint == "" {
		c.NewsAPI.Endpoint = "https://newsapi.org/v2/top-headlines"
	}
	if len(c.NewsAPI.Sources) == 0 {
		c.NewsAPI.Sources = []string{"bbc-news", "cnn", "reuters", "the-guardian", "breitbart"}
	}
	if c.NewsAPI.PageSize <= 0 {
		c.NewsAPI.PageSize = 15
	}
	if c.NewsAPI.Timeout <= 0 {
		c.NewsAPI.Timeout = 10 * time.Second
	}

	if len(c.GoogleNews.Editions) == 0 && len(c.GoogleNews.Countries) == 0 {
		c.GoogleNews.Editions = []string{"US:en", "IN:en"}
	}
	if c.GoogleNews.Limit <= 0 {
		c.GoogleNews.Limit = 10
	}

	if c.Geo.Endpoint == "" {
		c.Geo.Endpoint = "https://ipapi.co"
	}
	if c.Geo.Timeout <= 0 {
		c.Geo.Timeout = 5 * time.Second
	}
}

// applyEnv lets secrets and the listen address come from the environment.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("NEWSAPI_KEY")); v != "" {
		c.NewsAPI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("VIRALWARN_INFERENCE_TOKEN")); v != "" {
		c.Inference.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("VIRALWARN_EMBEDDINGS_TOKEN")); v != "" {
		c.Embeddings.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("VIRALWARN_LISTEN")); v != "" {
		c.Listen = v
	}
}

// Validate reports the first out-of-range option.
func (c Config) Validate() error {
	if c.RiskThreshold < 0 || c.RiskThreshold > 1 {
		return fmt.Errorf("%w: risk_threshold %.2f outside [0,1]", ErrInvalid, c.RiskThreshold)
	}
	if c.MaxEventsStored <= 0 {
		return fmt.Errorf("%w: max_events_stored must be positive", ErrInvalid)
	}
	switch c.Inference.Backend {
	case "http", "worker":
	default:
		return fmt.Errorf("%w: inference.backend %q (want http or worker)", ErrInvalid, c.Inference.Backend)
	}
	for i, f := range c.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			return fmt.Errorf("%w: feeds[%d] has no url", ErrInvalid, i)
		}
	}
	if c.GeoTopics.ResetInterval < 0 {
		return fmt.Errorf("%w: geo_topics.reset_interval must not be negative", ErrInvalid)
	}
	return nil
}

// Load reads path (empty = built-in defaults), applies defaults and env
// overrides, then validates.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		c.defaults()
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
