package scoring

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"viralwarn/internal/inference"
)

const (
	MaxClaims      = 3
	claimWindow    = 1000 // runes of text searched for claims
	minPhraseLen   = 9
	maxPhraseLen   = 149
	maxPhraseWords = 8
)

// connectors may sit inside a capitalised run: "Bank of England".
var connectors = map[string]bool{"of": true, "the": true, "and": true, "de": true, "for": true, "&": true}

// ClaimExtractor returns up to MaxClaims short spans worth checking.
type ClaimExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// HeuristicClaims needs no model: capitalised multi-word phrases first, then
// sentences longer than 40 characters.
type HeuristicClaims struct{}

func (HeuristicClaims) Extract(_ context.Context, text string) ([]string, error) {
	text = truncateRunes(text, claimWindow)
	claims := nounPhrases(text)
	if len(claims) < MaxClaims {
		for _, s := range splitSentences(text) {
			if len(s) > 40 {
				claims = append(claims, s)
			}
		}
	}
	return firstUnique(claims, MaxClaims), nil
}

// EntityClaims prefers the same phrases, then sentences that mention a named
// entity found by the recogniser. Without a working recogniser it behaves
// like HeuristicClaims.
type EntityClaims struct {
	Recognizer inference.EntityRecognizer
}

func (e EntityClaims) Extract(ctx context.Context, text string) ([]string, error) {
	text = truncateRunes(text, claimWindow)
	ents, err := e.Recognizer.Entities(ctx, text)
	if err != nil {
		fallback, _ := HeuristicClaims{}.Extract(ctx, text)
		return fallback, err
	}

	claims := nounPhrases(text)
	if len(claims) < MaxClaims {
		for _, s := range splitSentences(text) {
			if len(s) > 15 && mentionsAny(s, ents) {
				claims = append(claims, s)
			}
		}
	}
	return firstUnique(claims, MaxClaims), nil
}

// nounPhrases approximates noun chunks with runs of capitalised words
// ("Prime Minister Narendra Modi") of 2 to 8 words.
func nounPhrases(text string) []string {
	var (
		out []string
		run []string
	)
	flush := func() {
		// trailing connectors do not belong to the phrase
		for len(run) > 0 && connectors[strings.ToLower(run[len(run)-1])] {
			run = run[:len(run)-1]
		}
		if len(run) >= 2 && len(run) <= maxPhraseWords {
			p := strings.Join(run, " ")
			if n := utf8.RuneCountInString(p); n >= minPhraseLen && n <= maxPhraseLen {
				out = append(out, p)
			}
		}
		run = run[:0]
	}

	for _, tok := range strings.Fields(text) {
		word := strings.TrimFunc(tok, func(r rune) bool { return unicode.IsPunct(r) && r != '&' })
		if word == "" {
			flush()
			continue
		}
		first, _ := utf8.DecodeRuneInString(word)
		switch {
		case unicode.IsUpper(first) && !isAllCaps(word):
			run = append(run, word)
		case len(run) > 0 && connectors[strings.ToLower(word)]:
			run = append(run, word)
		default:
			flush()
			continue
		}
		// punctuation after a word ends the run
		if last, _ := utf8.DecodeLastRuneInString(tok); unicode.IsPunct(last) && last != '&' {
			flush()
		}
	}
	flush()
	return out
}

// isAllCaps treats shouting ("BREAKING") as noise rather than a name.
func isAllCaps(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters > 1
}

// splitSentences splits after '.', '!' or '?' followed by spaces.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && text[i+1] == ' ' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func mentionsAny(sentence string, ents []inference.Entity) bool {
	for _, e := range ents {
		w := strings.TrimSpace(e.Word)
		if w != "" && strings.Contains(sentence, w) {
			return true
		}
	}
	return false
}

func firstUnique(in []string, n int) []string {
	out := make([]string, 0, n)
	seen := map[string]bool{}
	for _, s := range in {
		if len(out) == n {
			break
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
