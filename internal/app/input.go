package app

import (
	"bufio"
	"regexp"
	"strings"
	"unicode"
)

// readMultiline reads lines until the first blank line after some text, or
// EOF.
func readMultiline(r *bufio.Reader) (string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
			break
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			if len(lines) > 0 {
				break
			}
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

var (
	reDigitsPunctOnly = regexp.MustCompile(`^[\d\pP\pS\s]+$`)
	reWordToken       = regexp.MustCompile(`\pL{3,}`)
)

// validateText rejects input that cannot be scored meaningfully.
func validateText(q string) (bool, string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return false, "empty"
	}
	if reDigitsPunctOnly.MatchString(q) {
		return false, "no words detected"
	}
	if !reWordToken.MatchString(q) {
		return false, "no real word token found"
	}

	total, letters := 0, 0
	for _, r := range q {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if float64(letters)/float64(total) < 0.30 {
		return false, "too many non-letter characters"
	}
	return true, ""
}
