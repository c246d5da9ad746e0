// Package report renders stored alerts as a Word document.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gingfrederik/docx"

	"viralwarn/internal/scoring"
	"viralwarn/internal/store"
)

const separator = "--------------------------------------------------"

// Alerts returns the events at or above threshold, highest risk first.
// Ties keep their input order.
func Alerts(events []store.Event, threshold float64) []store.Event {
	out := make([]store.Event, 0, len(events))
	for _, e := range events {
		if e.RiskScore >= threshold {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	return out
}

// WriteAlerts writes the alerts among events to a .docx file at path.
func WriteAlerts(path string, events []store.Event, threshold float64, generated time.Time) error {
	alerts := Alerts(events, threshold)
	f := docx.NewFile()

	// Header
	p := f.AddParagraph()
	run := p.AddText("Misinformation Alert Report")
	run.Size(20)

	p = f.AddParagraph()
	run = p.AddText(fmt.Sprintf("Generated: %s | Threshold: %.2f | Alerts: %d of %d events",
		generated.UTC().Format(time.RFC3339), threshold, len(alerts), len(events)))
	run.Size(10)
	run.Color("808080")

	p = f.AddParagraph()
	p.AddText("Risk combines five scores: fake-news likelihood (35%), sensationalism (25%), contradiction with reference sources (20%), low source credibility (15%) and virality (5%).")

	if locs := byLocation(alerts); len(locs) > 0 {
		f.AddParagraph() // Spacer
		f.AddParagraph().AddText("Alerts by location:")
		for _, l := range locs {
			f.AddParagraph().AddText(fmt.Sprintf("- %s: %d", l.name, l.count))
		}
	}

	f.AddParagraph() // Spacer
	f.AddParagraph().AddText(separator)
	f.AddParagraph() // Spacer

	if len(alerts) == 0 {
		f.AddParagraph().AddText("No item reached the alert threshold.")
	}

	for _, e := range alerts {
		p = f.AddParagraph()
		run = p.AddText(e.Title)
		run.Size(16)

		p = f.AddParagraph()
		run = p.AddText(fmt.Sprintf("Source: %s | Location: %s | Published: %s", e.Source, e.Location, e.PublishedAt))
		run.Size(10)
		run.Color("808080")

		if e.URL != "" {
			p = f.AddParagraph()
			run = p.AddText(e.URL)
			run.Size(10)
			run.Color("0000FF")
		}

		p = f.AddParagraph()
		run = p.AddText(fmt.Sprintf("Risk: %.2f (%s)", e.RiskScore, scoring.RiskLevel(e.RiskScore)))
		run.Color(levelColor(e.RiskScore))

		f.AddParagraph().AddText(e.Reasoning)

		for i, c := range e.Claims {
			line := "- Claim: " + c
			if i < len(e.Evidence) && strings.TrimSpace(e.Evidence[i]) != "" {
				line += " | Reference: " + e.Evidence[i]
			}
			f.AddParagraph().AddText(line)
		}
		f.AddParagraph().AddText(separator)
	}

	return f.Save(path)
}

type locationCount struct {
	name  string
	count int
}

func byLocation(events []store.Event) []locationCount {
	counts := map[string]int{}
	for _, e := range events {
		if e.Location != "" {
			counts[e.Location]++
		}
	}
	out := make([]locationCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, locationCount{name, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func levelColor(risk float64) string {
	switch scoring.RiskLevel(risk) {
	case "CRITICAL":
		return "C00000"
	case "HIGH":
		return "FF6600"
	case "MEDIUM":
		return "B8860B"
	default:
		return "008000"
	}
}
