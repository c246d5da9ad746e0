// Package scoring turns a content item into a risk assessment: five
// independently failing sub-scores combined with fixed weights.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"viralwarn/internal/discovery"
	"viralwarn/internal/evidence"
	"viralwarn/internal/inference"
	"viralwarn/internal/observability"
)

// Weights of the risk formula; they sum to 1.
const (
	WeightFakeNews      = 0.35
	WeightSensational   = 0.25
	WeightContradiction = 0.20
	WeightCredibility   = 0.15 // applied to 1 - credibility
	WeightVirality      = 0.05
)

const (
	scoringTextLen   = 2000
	fakeNewsInputLen = 512
	sentimentLen     = 256
	nliInputLen      = 512
	contradictionP   = 0.5
	pairsPerSide     = 3

	FallbackReasoning = "Error in analysis - using fallback score"
)

// NLILabels are the candidate labels of the contradiction check.
var NLILabels = []string{"contradiction", "entailment", "neutral"}

type Components struct {
	FakeNews          float64 `json:"fake_news"`
	Sensational       float64 `json:"sensational"`
	Contradiction     float64 `json:"contradiction"`
	SourceCredibility float64 `json:"source_credibility"`
	Virality          float64 `json:"virality"`
}

// Risk combines clamped components with the fixed weights and clamps the
// result.
func (c Components) Risk() float64 {
	return clamp01(WeightFakeNews*clamp01(c.FakeNews) +
		WeightSensational*clamp01(c.Sensational) +
		WeightContradiction*clamp01(c.Contradiction) +
		WeightCredibility*(1-clamp01(c.SourceCredibility)) +
		WeightVirality*clamp01(c.Virality))
}

type Assessment struct {
	RiskScore  float64    `json:"risk_score"`
	Components Components `json:"components"`
	Claims     []string   `json:"claims"`
	Evidence   []string   `json:"evidence"` // aligned with Claims, "" when nothing was found
	Reasoning  string     `json:"reasoning"`
	Fallback   bool       `json:"fallback,omitempty"`
}

// NeutralComponents are reported when the assessment itself failed.
var NeutralComponents = Components{
	FakeNews:          0.5,
	Sensational:       0.3,
	Contradiction:     0.2,
	SourceCredibility: 0.5,
	Virality:          0,
}

// Neutral is the assessment returned when scoring an item failed as a whole.
func Neutral(text string) Assessment {
	claims, _ := HeuristicClaims{}.Extract(context.Background(), text)
	return Assessment{
		RiskScore:  0.5,
		Components: NeutralComponents,
		Claims:     claims,
		Evidence:   []string{},
		Reasoning:  FallbackReasoning,
		Fallback:   true,
	}
}

// ScoringText is the text every sub-score reads: title and body, bounded.
func ScoringText(item discovery.ContentItem) string {
	return truncateRunes(strings.TrimSpace(item.Title+". "+item.Text), scoringTextLen)
}

// Aggregator scores content items. Model fields may be nil; a nil or
// failing model falls back per component. It is safe for concurrent use.
type Aggregator struct {
	UseModels bool

	FakeNews  inference.Classifier
	Sentiment inference.Classifier
	NLI       inference.ZeroShotClassifier
	Claims    ClaimExtractor
	Embedder  inference.Embedder // contradiction fallback
	Evidence  evidence.Searcher  // optional

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewAggregator wires the registry's models. With models disabled (or no
// registry) no model is called: claims come from HeuristicClaims and
// contradiction falls back to lexical similarity, whatever embedder is
// passed.
func NewAggregator(reg *inference.Registry, embedder inference.Embedder, ev evidence.Searcher, logger *slog.Logger, m *observability.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	enabled := reg != nil && reg.Enabled()
	if embedder == nil || !enabled {
		embedder = inference.NewLexicalEmbedder()
	}
	a := &Aggregator{
		Claims:   HeuristicClaims{},
		Embedder: embedder,
		Evidence: ev,
		Logger:   logger,
		Metrics:  m,
	}
	if enabled {
		a.UseModels = true
		a.FakeNews = reg.FakeNews()
		a.Sentiment = reg.Sentiment()
		a.NLI = reg.NLI()
		a.Claims = EntityClaims{Recognizer: reg.Entities()}
	}
	return a
}

// Assess never fails. A sub-score that errors or panics takes its fallback
// value; a panic anywhere else yields Neutral.
func (a *Aggregator) Assess(ctx context.Context, item discovery.ContentItem) (out Assessment) {
	start := time.Now()
	text := ScoringText(item)

	defer func() {
		if r := recover(); r != nil {
			a.logger().Error("risk assessment failed, using neutral score", "url", item.URL, "panic", r)
			a.metrics().ObserveFallback("assessment")
			out = Neutral(text)
		}
		a.metrics().ObserveAssessment(out.RiskScore, time.Since(start).Seconds())
	}()

	var c Components

	c.FakeNews = a.guard("fake_news", 0.5, func() (float64, error) {
		return a.fakeNews(ctx, text)
	})

	keyword := KeywordScore(text)
	c.Sensational = a.guard("sensational", keyword, func() (float64, error) {
		return a.sensational(ctx, text, keyword)
	})

	c.SourceCredibility = SourceCredibility(item.URL)

	claims := a.claims(ctx, text)
	ev := a.lookupEvidence(ctx, claims)
	c.Contradiction = a.guard("contradiction", 0, func() (float64, error) {
		return a.contradiction(ctx, claims, ev)
	})

	c.Virality = Virality(text)

	return Assessment{
		RiskScore:  c.Risk(),
		Components: c,
		Claims:     claims,
		Evidence:   ev,
		Reasoning:  reasoning(c),
	}
}

// guard runs one sub-score. Errors and panics give fallback; results are
// clamped.
func (a *Aggregator) guard(component string, fallback float64, fn func() (float64, error)) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			a.logger().Debug("sub-score panicked", "component", component, "panic", r)
			a.Metrics.ObserveFallback(component)
			v = fallback
		}
	}()

	v, err := fn()
	if err != nil {
		if !errors.Is(err, inference.ErrModelsDisabled) {
			a.logger().Debug("sub-score failed, using fallback", "component", component, "error", err)
			a.Metrics.ObserveFallback(component)
		}
		return fallback
	}
	return clamp01(v)
}

func (a *Aggregator) fakeNews(ctx context.Context, text string) (float64, error) {
	if !a.UseModels || a.FakeNews == nil {
		return 0, inference.ErrModelsDisabled
	}
	p, err := a.FakeNews.Classify(ctx, truncateRunes(text, fakeNewsInputLen))
	if err != nil {
		return 0, err
	}
	if strings.Contains(strings.ToUpper(p.Label), "FAKE") {
		return p.Score, nil
	}
	return 1 - p.Score, nil
}

// sensational is max(keyword, 0.8*model) where the sentiment model's
// negative label scores its confidence and anything else scores 0.1.
func (a *Aggregator) sensational(ctx context.Context, text string, keyword float64) (float64, error) {
	if !a.UseModels || a.Sentiment == nil {
		return keyword, nil
	}
	p, err := a.Sentiment.Classify(ctx, truncateRunes(text, sentimentLen))
	if err != nil {
		return 0, err
	}
	model := 0.1
	label := strings.ToUpper(p.Label)
	if strings.Contains(label, "LABEL_0") || strings.Contains(label, "NEGATIVE") {
		model = p.Score
	}
	return max(keyword, model*0.8), nil
}

// claims runs the configured extractor. A panicking extractor is replaced by
// HeuristicClaims for this item.
func (a *Aggregator) claims(ctx context.Context, text string) (claims []string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger().Debug("claim extractor panicked, using heuristic claims", "panic", r)
			a.Metrics.ObserveFallback("claims")
			claims, _ = HeuristicClaims{}.Extract(ctx, text)
		}
		if claims == nil {
			claims = []string{}
		}
	}()

	ex := a.Claims
	if ex == nil || !a.UseModels {
		ex = HeuristicClaims{}
	}
	claims, err := ex.Extract(ctx, text)
	if err != nil {
		a.logger().Debug("claim extraction degraded", "error", err)
		a.Metrics.ObserveFallback("claims")
	}
	return claims
}

// lookupEvidence searches every claim concurrently; each searcher call
// bounds its own latency.
func (a *Aggregator) lookupEvidence(ctx context.Context, claims []string) []string {
	out := make([]string, len(claims))
	if a.Evidence == nil || len(claims) == 0 {
		return out
	}
	var g errgroup.Group
	for i, claim := range claims {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					a.logger().Debug("evidence lookup panicked", "claim", claim, "panic", r)
				}
			}()
			if hit, ok := a.Evidence.Search(ctx, claim); ok {
				out[i] = hit.Snippet
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// contradiction is the share of (claim, evidence) pairs among the first 3
// claims and first 3 snippets, blanks skipped, that the NLI model labels
// contradictory. When the model is unavailable it falls back to 1 - mean
// cosine similarity of their embeddings.
func (a *Aggregator) contradiction(ctx context.Context, claims, ev []string) (float64, error) {
	claims = nonBlank(claims[:min(len(claims), pairsPerSide)])
	ev = nonBlank(ev[:min(len(ev), pairsPerSide)])
	if len(claims) == 0 || len(ev) == 0 {
		return 0, nil
	}

	if a.UseModels && a.NLI != nil {
		ratio, err := a.nliRatio(ctx, claims, ev)
		if err == nil {
			return ratio, nil
		}
		a.logger().Debug("nli failed, falling back to embeddings", "error", err)
		a.Metrics.ObserveFallback("nli")
	}

	if a.Embedder == nil {
		return 0, nil
	}
	sim, err := meanCosine(ctx, a.Embedder, claims, ev)
	if err != nil {
		return 0, fmt.Errorf("embedding similarity: %w", err)
	}
	return clamp01(1 - sim), nil
}

func (a *Aggregator) nliRatio(ctx context.Context, claims, ev []string) (float64, error) {
	contradictions, total := 0, 0
	for _, claim := range claims {
		for _, e := range ev {
			total++
			preds, err := a.NLI.ClassifyLabels(ctx, truncateRunes(e+" </s> "+claim, nliInputLen), NLILabels)
			if err != nil {
				return 0, err
			}
			for _, p := range preds {
				if strings.Contains(strings.ToLower(p.Label), "contradiction") {
					if p.Score > contradictionP {
						contradictions++
					}
					break
				}
			}
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(contradictions) / float64(total), nil
}

func (a *Aggregator) logger() *slog.Logger {
	if a == nil || a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a *Aggregator) metrics() *observability.Metrics {
	if a == nil {
		return nil
	}
	return a.Metrics
}

func reasoning(c Components) string {
	return fmt.Sprintf("Fake News: %.2f, Sensationalism: %.2f, Contradiction: %.2f, Source Credibility: %.2f, Virality: %.2f",
		c.FakeNews, c.Sensational, c.Contradiction, c.SourceCredibility, c.Virality)
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
