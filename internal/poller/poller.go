// Package poller runs the background fetch, score and store loop.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"viralwarn/internal/discovery"
	"viralwarn/internal/observability"
	"viralwarn/internal/scoring"
	"viralwarn/internal/store"
)

// TickGranularity is how often a sleeping poller checks for cancellation and
// force-fetch requests.
const TickGranularity = 2 * time.Second

type Fetcher interface {
	FetchAll(ctx context.Context) []discovery.ContentItem
}

type Assessor interface {
	Assess(ctx context.Context, item discovery.ContentItem) scoring.Assessment
}

type Locator interface {
	Locate(ctx context.Context, rawURL, text string) string
}

// Poller is the only writer of its Store.
type Poller struct {
	Fetcher  Fetcher
	Assessor Assessor
	Locator  Locator // optional; nil attributes everything to store.UnknownLocation
	Store    *store.Store

	Interval      time.Duration
	ResetInterval time.Duration // geo-topic rotation; 0 disables
	Threshold     float64

	Logger  *slog.Logger
	Metrics *observability.Metrics

	trigger   chan struct{}
	lastReset time.Time
	now       func() time.Time
	tick      time.Duration
}

func New(f Fetcher, a Assessor, l Locator, st *store.Store, interval time.Duration, logger *slog.Logger, m *observability.Metrics) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		Fetcher:  f,
		Assessor: a,
		Locator:  l,
		Store:    st,
		Interval: interval,
		Logger:   logger,
		Metrics:  m,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
		tick:     TickGranularity,
	}
}

// Trigger asks for a cycle now. It never blocks; requests made while one is
// already pending are merged.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled, starting with an immediate cycle.
func (p *Poller) Run(ctx context.Context) error {
	p.Logger.Info("poller started", "interval", p.Interval, "threshold", p.Threshold)
	p.lastReset = p.now()
	for {
		p.Cycle(ctx)
		if !p.wait(ctx) {
			p.Logger.Info("poller stopped")
			return ctx.Err()
		}
	}
}

// wait sleeps for Interval in ticks. It returns false once ctx is done and
// true when the interval elapsed or a cycle was triggered.
func (p *Poller) wait(ctx context.Context) bool {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	deadline := p.now().Add(p.Interval)
	for {
		select {
		case <-ctx.Done():
			return false
		case <-p.trigger:
			p.Logger.Info("force fetch requested")
			return true
		case <-ticker.C:
			if !p.now().Before(deadline) {
				return true
			}
		}
	}
}

// Cycle fetches, scores and stores one batch and returns how many events it
// stored. A panic inside the cycle is logged and ends only that cycle.
func (p *Poller) Cycle(ctx context.Context) (stored int) {
	start := time.Now()
	scanID := uuid.NewString()
	log := p.Logger.With("scan_id", scanID)
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			log.Error("poll cycle failed", "panic", r)
		}
		p.Metrics.ObserveCycle(outcome, time.Since(start).Seconds())
	}()

	p.maybeResetGeoTopics()

	items := p.Fetcher.FetchAll(ctx)
	log.Info("fetched items", "items", len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			outcome = "cancelled"
			log.Info("poll cycle cancelled", "stored", stored, "skipped", len(items)-stored)
			return stored
		}
		ev := p.Process(ctx, item, scanID)
		stored++
		if ev.RiskScore >= p.Threshold {
			log.Info("high risk item",
				"title", ev.Title,
				"risk", ev.RiskScore,
				"level", scoring.RiskLevel(ev.RiskScore),
				"location", ev.Location,
				"source", ev.Source,
			)
		}
	}

	log.Info("poll cycle done", "stored", stored, "duration", time.Since(start))
	return stored
}

// Process scores one item, attributes it to a location and stores it.
func (p *Poller) Process(ctx context.Context, item discovery.ContentItem, scanID string) store.Event {
	a := p.Assessor.Assess(ctx, item)

	loc := store.UnknownLocation
	if p.Locator != nil {
		if l := p.Locator.Locate(ctx, item.URL, item.Title+" "+item.Text); l != "" {
			loc = l
		}
	}

	ev := store.Event{
		ContentItem: item,
		Assessment:  a,
		ScanID:      scanID,
		Topic:       scoring.Topic(item.Title, a.Claims),
		Location:    loc,
		ScannedAt:   p.now().UTC(),
	}
	p.Store.Push(ev)
	p.Store.IncrementGeoTopic(ev.Location, ev.Topic)
	p.Metrics.ObserveStored(p.Store.Len(), ev.RiskScore >= p.Threshold)
	return ev
}

func (p *Poller) maybeResetGeoTopics() {
	if p.ResetInterval <= 0 {
		return
	}
	if now := p.now(); now.Sub(p.lastReset) >= p.ResetInterval {
		p.Store.ResetGeoTopics()
		p.lastReset = now
		p.Logger.Info("geo-topic counters reset", "interval", p.ResetInterval)
	}
}
