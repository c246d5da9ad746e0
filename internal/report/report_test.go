package report

import (
	"archive/zip"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viralwarn/internal/discovery"
	"viralwarn/internal/scoring"
	"viralwarn/internal/store"
)

func ev(title, loc string, risk float64) store.Event {
	return store.Event{
		ContentItem: discovery.ContentItem{ID: title, Title: title, URL: "https://example.com/" + title, Source: "Test"},
		Assessment: scoring.Assessment{
			RiskScore: risk,
			Claims:    []string{"claim of " + title},
			Evidence:  []string{"reference for " + title},
			Reasoning: "Fake News: 0.50",
		},
		Location: loc,
	}
}

func TestAlerts_FilterAndOrder(t *testing.T) {
	events := []store.Event{ev("low", "India", 0.2), ev("high", "India", 0.7), ev("edge", "France", 0.45), ev("top", "France", 0.9)}

	got := Alerts(events, 0.45)
	require.Len(t, got, 3)
	assert.Equal(t, "top", got[0].Title)
	assert.Equal(t, "high", got[1].Title)
	assert.Equal(t, "edge", got[2].Title)

	assert.Empty(t, Alerts(nil, 0.5))
}

func TestByLocation(t *testing.T) {
	got := byLocation([]store.Event{ev("a", "India", 1), ev("b", "France", 1), ev("c", "India", 1), ev("d", "", 1)})
	assert.Equal(t, []locationCount{{"India", 2}, {"France", 1}}, got)
}

func TestWriteAlerts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.docx")
	events := []store.Event{ev("Miracle cure found", "India", 0.82), ev("Budget approved", "France", 0.1)}

	require.NoError(t, WriteAlerts(path, events, 0.45, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	body := documentXML(t, path)
	assert.Contains(t, body, "Misinformation Alert Report")
	assert.Contains(t, body, "Miracle cure found")
	assert.Contains(t, body, "Risk: 0.82 (CRITICAL)")
	assert.Contains(t, body, "reference for Miracle cure found")
	assert.NotContains(t, body, "Budget approved")
}

func TestWriteAlerts_NoAlerts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	require.NoError(t, WriteAlerts(path, nil, 0.45, time.Now()))
	assert.Contains(t, documentXML(t, path), "No item reached the alert threshold.")
}

func documentXML(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("no document.xml in %s", path)
	return ""
}

func TestLevelColor(t *testing.T) {
	assert.Equal(t, "C00000", levelColor(0.9))
	assert.Equal(t, "008000", levelColor(0.1))
	assert.True(t, strings.HasPrefix(levelColor(0.5), "B8"))
}
