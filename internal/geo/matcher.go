package geo

import (
	"sort"
	"strings"
	"unicode"
)

// CountryMatcher finds country mentions (names, aliases, demonyms, major
// cities) in free text.
type CountryMatcher struct {
	phrases []string          // normalized phrases, sorted by length desc
	toCanon map[string]string // phrase -> canonical name
}

// NewCountryMatcher builds a matcher over the embedded country dataset.
func NewCountryMatcher() (*CountryMatcher, error) {
	raw, err := builtinDataset()
	if err != nil {
		return nil, err
	}
	return newCountryMatcher(raw), nil
}

func newCountryMatcher(raw map[string]DatasetEntry) *CountryMatcher {
	toCanon := map[string]string{}
	phrases := make([]string, 0, len(raw)*4)

	for canon, entry := range raw {
		canon = strings.TrimSpace(canon)
		if canon == "" || strings.TrimSpace(entry.ISO2) == "" {
			continue
		}
		add := func(s string) {
			k := normalizeKey(s)
			if k == "" {
				return
			}
			if _, exists := toCanon[k]; !exists {
				toCanon[k] = canon
				phrases = append(phrases, k)
			}
		}
		add(canon)
		for _, a := range entry.Aliases {
			add(a)
		}
	}

	// longer phrases first so "south korea" wins over "korea"
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) == len(phrases[j]) {
			return phrases[i] < phrases[j]
		}
		return len(phrases[i]) > len(phrases[j])
	})

	return &CountryMatcher{phrases: phrases, toCanon: toCanon}
}

// FindCountries returns every country mentioned in text, in order of first
// mention.
func (m *CountryMatcher) FindCountries(text string) []string {
	t := " " + normalizeKey(text) + " "
	if len(t) <= 2 {
		return nil
	}

	type hit struct {
		canon string
		pos   int
	}
	first := map[string]int{}
	claimed := make([]bool, len(t))

	for _, p := range m.phrases {
		needle := " " + p + " "
		from := 0
		for {
			i := strings.Index(t[from:], needle)
			if i < 0 {
				break
			}
			i += from
			from = i + 1
			// a shorter phrase inside an already matched longer one does not count
			if claimed[i+1] {
				continue
			}
			for k := i + 1; k < i+1+len(p); k++ {
				claimed[k] = true
			}
			canon := m.toCanon[p]
			if pos, ok := first[canon]; !ok || i < pos {
				first[canon] = i
			}
		}
	}

	hits := make([]hit, 0, len(first))
	for c, pos := range first {
		hits = append(hits, hit{canon: c, pos: pos})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.canon
	}
	return out
}

// normalizeKey lowercases s and collapses every run of non letters/digits to
// one space.
func normalizeKey(s string) string {
	f := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(f, " ")
}
