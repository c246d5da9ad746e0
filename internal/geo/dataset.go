package geo

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// countries.json format:
//
//	{"Canada": {"iso2":"CA","languages":["en","fr"],"aliases":["Canadian", ...]}, ...}
//
//go:embed countries.json
var countriesJSON []byte

type DatasetEntry struct {
	ISO2      string   `json:"iso2"`
	Languages []string `json:"languages"`
	Aliases   []string `json:"aliases"`
}

var builtinDataset = sync.OnceValues(func() (map[string]DatasetEntry, error) {
	raw := map[string]DatasetEntry{}
	if err := json.Unmarshal(countriesJSON, &raw); err != nil {
		return nil, fmt.Errorf("parse embedded country dataset: %w", err)
	}
	return raw, nil
})

// DatasetResolver answers from the embedded country dataset only.
type DatasetResolver struct {
	byKey map[string]CountryInfo // normalized country/alias -> info
}

func NewDatasetResolver() (*DatasetResolver, error) {
	raw, err := builtinDataset()
	if err != nil {
		return nil, err
	}
	return newDatasetResolver(raw), nil
}

func newDatasetResolver(raw map[string]DatasetEntry) *DatasetResolver {
	byKey := map[string]CountryInfo{}
	for name, e := range raw {
		info := CountryInfo{
			Name:      strings.TrimSpace(name),
			ISO2:      strings.ToUpper(strings.TrimSpace(e.ISO2)),
			Languages: normalizeLangs(e.Languages),
		}
		byKey[normalizeKey(name)] = info
		for _, a := range e.Aliases {
			if k := normalizeKey(a); k != "" {
				if _, taken := byKey[k]; !taken {
					byKey[k] = info
				}
			}
		}
	}
	return &DatasetResolver{byKey: byKey}
}

func (d *DatasetResolver) ResolveCountry(_ context.Context, name string) (CountryInfo, error) {
	key := normalizeKey(name)
	if key == "" {
		return CountryInfo{}, errors.New("empty country name")
	}
	if v, ok := d.byKey[key]; ok {
		return v, nil
	}
	return CountryInfo{}, fmt.Errorf("%q: %w", name, ErrNotFound)
}

func normalizeLangs(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		// ISO-639-1 or -3 codes only
		if len(s) < 2 || len(s) > 3 {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
