package api

import (
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"viralwarn/internal/report"
	"viralwarn/internal/scoring"
	"viralwarn/internal/store"
)

const (
	dashboardFeedLen   = 50
	dashboardAlertsLen = 20
	dashboardRefresh   = 30 // seconds
)

var templateFuncs = template.FuncMap{
	"level": scoring.RiskLevel,
	"pct":   func(v float64) int { return int(v*100 + 0.5) },
	"ts":    func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") },
}

type geoTopicRow struct {
	Location string
	Topic    string
	Count    int
}

type dashboardData struct {
	Mode        string
	Threshold   float64
	Interval    time.Duration
	Refresh     int
	CanFetch    bool
	Generated   time.Time
	Events      []store.Event
	Alerts      []store.Event
	AlertCount  int
	GeoTopics   []geoTopicRow
	Heatmap     map[string]float64
	StoredCount int
}

func (s *Server) handleDashboard(c *gin.Context) {
	all := s.Store.Recent(s.Store.Capacity())
	alerts := report.Alerts(all, s.Threshold)

	data := dashboardData{
		Mode:        s.mode(),
		Threshold:   s.Threshold,
		Interval:    s.Interval,
		Refresh:     dashboardRefresh,
		CanFetch:    s.Fetch != nil,
		Generated:   s.now(),
		Events:      all[:min(len(all), dashboardFeedLen)],
		Alerts:      alerts[:min(len(alerts), dashboardAlertsLen)],
		AlertCount:  len(alerts),
		GeoTopics:   geoTopicRows(s.Store.GeoTopicCounts()),
		Heatmap:     s.Store.RiskByLocation(),
		StoredCount: len(all),
	}
	c.HTML(http.StatusOK, "dashboard.html", data)
}

// geoTopicRows flattens the counter table, largest counts first.
func geoTopicRows(counts map[string]map[string]int) []geoTopicRow {
	var rows []geoTopicRow
	for loc, topics := range counts {
		for topic, n := range topics {
			rows = append(rows, geoTopicRow{Location: loc, Topic: topic, Count: n})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		if rows[i].Location != rows[j].Location {
			return rows[i].Location < rows[j].Location
		}
		return rows[i].Topic < rows[j].Topic
	})
	return rows
}
