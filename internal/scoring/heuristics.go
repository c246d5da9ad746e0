package scoring

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// SensationalKeywords are the trigger words counted by KeywordScore.
var SensationalKeywords = []string{
	"shocking", "breaking", "miracle", "unbelievable", "viral", "explosive",
	"urgent", "alert", "danger", "scandal", "exclusive", "exposé",
}

var (
	trustedDomains  = []string{"wikipedia.org", "nytimes.com", "bbc.co", "theguardian.com", "reuters.com", "apnews.com", "npr.org", "pbs.org"}
	lowTrustDomains = []string{"blogspot", "wordpress.com", "medium.com", "tumblr.com"}

	reEngagement = regexp.MustCompile(`(\d{2,})\s*(upvote|points|score|view|like)`)
)

const (
	CredibilityTrusted  = 0.9
	CredibilityLowTrust = 0.3
	CredibilityDefault  = 0.5
)

// KeywordScore is min(1, hits/5), where hits counts trigger words occurring
// anywhere in the lowercased text.
func KeywordScore(text string) float64 {
	t := strings.ToLower(text)
	hits := 0
	for _, k := range SensationalKeywords {
		if strings.Contains(t, k) {
			hits++
		}
	}
	return math.Min(1, float64(hits)/5)
}

// SourceCredibility rates the publisher of rawURL: 0.9 for the trusted list,
// 0.3 for the low-trust list, 0.5 otherwise or when there is no URL.
func SourceCredibility(rawURL string) float64 {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	if s == "" {
		return CredibilityDefault
	}
	// match on the host when there is one, so a query string cannot fake it
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = u.Host
	}
	for _, d := range trustedDomains {
		if strings.Contains(s, d) {
			return CredibilityTrusted
		}
	}
	for _, d := range lowTrustDomains {
		if strings.Contains(s, d) {
			return CredibilityLowTrust
		}
	}
	return CredibilityDefault
}

// Virality reads the first engagement count in text ("15000 upvotes",
// "500 views") and maps it to min(1, n/10000). No count means 0.
func Virality(text string) float64 {
	m := reEngagement.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// only overflow gets here
		return 1
	}
	return math.Min(1, float64(n)/10000)
}

// Topic is the short label counted per location: the first claim (or the
// title) up to its first colon, at most 80 runes.
func Topic(title string, claims []string) string {
	s := title
	if len(claims) > 0 && strings.TrimSpace(claims[0]) != "" {
		s = claims[0]
	}
	s, _, _ = strings.Cut(s, ":")
	return truncateRunes(strings.TrimSpace(s), 80)
}

// RiskLevel buckets a risk score: CRITICAL above 0.8, HIGH above 0.6,
// MEDIUM above 0.3, LOW otherwise.
func RiskLevel(risk float64) string {
	switch {
	case risk > 0.8:
		return "CRITICAL"
	case risk > 0.6:
		return "HIGH"
	case risk > 0.3:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
