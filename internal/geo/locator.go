package geo

import (
	"context"
	"errors"
	"log/slog"
)

// Locator chains the attribution strategies: a country mentioned in the text,
// then the country of the publisher's domain (cached), then Unknown.
type Locator struct {
	Matcher *CountryMatcher // optional
	Domains *IPAPIResolver  // optional
	Cache   *Cache
	Logger  *slog.Logger
}

func NewLocator(matcher *CountryMatcher, domains *IPAPIResolver, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		Matcher: matcher,
		Domains: domains,
		Cache:   NewCache(0),
		Logger:  logger,
	}
}

// Locate never fails; it returns Unknown when nothing matched or l is nil.
func (l *Locator) Locate(ctx context.Context, rawURL, text string) string {
	if l == nil {
		return Unknown
	}
	if l.Matcher != nil {
		if found := l.Matcher.FindCountries(text); len(found) > 0 {
			return found[0]
		}
	}
	if l.Domains == nil {
		return Unknown
	}

	domain := RegisteredDomain(rawURL)
	if domain == "" {
		return Unknown
	}
	if l.Cache != nil {
		if v, ok := l.Cache.Get(domain); ok {
			return v
		}
	}

	country, err := l.Domains.LookupDomain(ctx, domain)
	if err != nil {
		l.Logger.Debug("domain geolocation failed", "domain", domain, "error", err)
		if !errors.Is(err, ErrNotFound) {
			// transient; try again next time
			return Unknown
		}
		country = Unknown
	}
	if l.Cache != nil {
		l.Cache.Put(domain, country)
	}
	return country
}
