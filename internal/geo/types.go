// Package geo attributes content items to a country: first from country
// mentions in the text, then from the publisher's registered domain.
package geo

import (
	"context"
	"errors"
)

// Unknown is the location of items that could not be attributed.
const Unknown = "Unknown"

// ErrNotFound is returned by resolvers that have no answer for a query.
var ErrNotFound = errors.New("geo: not found")

type CountryInfo struct {
	Name      string   `json:"name"`
	ISO2      string   `json:"iso2"`
	Languages []string `json:"languages"`
}

// Resolver maps a country name or alias to its CountryInfo.
type Resolver interface {
	ResolveCountry(ctx context.Context, name string) (CountryInfo, error)
}
