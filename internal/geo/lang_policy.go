package geo

import (
	"fmt"
	"sort"
	"strings"
)

// Edition selects one Google News front page, e.g. ISO2 "IN" and language "en".
type Edition struct {
	ISO2 string
	Lang string
}

// ParseEdition parses "ISO2:lang".
func ParseEdition(s string) (Edition, error) {
	iso2, lang, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || strings.TrimSpace(iso2) == "" || strings.TrimSpace(lang) == "" {
		return Edition{}, fmt.Errorf("bad google news edition %q (want ISO2:lang)", s)
	}
	return Edition{
		ISO2: strings.ToUpper(strings.TrimSpace(iso2)),
		Lang: toGoogleNewsLang(lang),
	}, nil
}

func (e Edition) String() string { return e.ISO2 + "/" + e.Lang }

// Google News expects ISO-639-1; the dataset mixes in ISO-639-3 codes.
var iso639to1 = map[string]string{
	"bul": "bg", "zho": "zh", "chi": "zh", "jpn": "ja", "kor": "ko",
	"ron": "ro", "rum": "ro", "ces": "cs", "cze": "cs", "deu": "de",
	"ger": "de", "fra": "fr", "fre": "fr", "spa": "es", "por": "pt",
	"nld": "nl", "dut": "nl", "pol": "pl", "hun": "hu", "ukr": "uk",
	"srp": "sr", "hrv": "hr", "slk": "sk", "slo": "sk", "slv": "sl",
	"lit": "lt", "lav": "lv", "est": "et", "ell": "el", "gre": "el",
	"tur": "tr",
}

func toGoogleNewsLang(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if v, ok := iso639to1[code]; ok {
		return v
	}
	return code
}

// EditionsFor lists one edition per language of country, sorted by
// language, optionally adding English.
func EditionsFor(country CountryInfo, includeEnglish bool) []Edition {
	iso2 := strings.ToUpper(strings.TrimSpace(country.ISO2))
	if iso2 == "" {
		return nil
	}

	seen := map[string]struct{}{}
	langs := make([]string, 0, len(country.Languages)+1)
	add := func(l string) {
		l = toGoogleNewsLang(l)
		if l == "" {
			return
		}
		if _, ok := seen[l]; ok {
			return
		}
		seen[l] = struct{}{}
		langs = append(langs, l)
	}
	for _, l := range country.Languages {
		add(l)
	}
	if includeEnglish {
		add("en")
	}
	sort.Strings(langs)

	out := make([]Edition, 0, len(langs))
	for _, l := range langs {
		out = append(out, Edition{ISO2: iso2, Lang: l})
	}
	return out
}

// BuildGoogleNewsParams generates hl/gl/ceid from ISO2 + language.
// Example: ISO2=HU, lang=hu -> hl=hu-HU, gl=HU, ceid=HU:hu
func BuildGoogleNewsParams(iso2, lang string) (hl, gl, ceid string) {
	iso2 = strings.ToUpper(strings.TrimSpace(iso2))
	lang = toGoogleNewsLang(lang)
	if iso2 == "" || lang == "" {
		return "", "", ""
	}
	return lang + "-" + iso2, iso2, iso2 + ":" + lang
}
