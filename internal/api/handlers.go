package api

import (
	"math"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"viralwarn/internal/discovery"
	"viralwarn/internal/inference"
	"viralwarn/internal/report"
	"viralwarn/internal/scoring"
	"viralwarn/internal/store"
)

const defaultEventsLimit = 50

var modelDescriptions = map[string]string{
	"fake_news":   "Text classifier trained to detect fake news",
	"sentiment":   "Sentiment classifier used for sensationalism",
	"nli":         "Natural language inference model for claim contradiction",
	"entities":    "Named entity recogniser used for claim extraction",
	"embeddings":  "Sentence embeddings for claim/evidence similarity",
	"heuristic":   "Keyword, source and engagement heuristics",
	"evidence":    "Wikipedia search for reference snippets",
	"geolocation": "Country mentions, then publisher domain lookup",
}

type AnalyzeRequest struct {
	Text     string `json:"text" binding:"required"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

type AnalyzeResponse struct {
	RiskScore   float64            `json:"risk_score"`
	RiskLevel   string             `json:"risk_level"`
	Components  scoring.Components `json:"components"`
	Claims      []string           `json:"claims"`
	Evidence    []string           `json:"evidence"`
	Geolocation string             `json:"geolocation"`
	Reasoning   string             `json:"reasoning"`
	Timestamp   time.Time          `json:"timestamp"`
	ModelsUsed  inference.Models   `json:"models_used"`
	Fallback    bool               `json:"fallback,omitempty"`
}

// FeedItem is the compact event shape listed by /feed.
type FeedItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   string    `json:"risk_level"`
	Geolocation string    `json:"geolocation"`
	Timestamp   time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "online",
		"mode":   s.mode(),
		"models": s.models(),
		"events": s.Store.Len(),
	})
}

func (s *Server) handleModels(c *gin.Context) {
	var status []inference.ModelStatus
	if s.Models != nil {
		status = s.Models.Status()
	}
	c.JSON(http.StatusOK, gin.H{
		"models":      s.models(),
		"mode":        s.mode(),
		"status":      status,
		"description": modelDescriptions,
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text must not be blank"})
		return
	}

	item := discovery.ContentItem{
		ID:        req.URL,
		Title:     req.Title,
		Text:      req.Text,
		URL:       req.URL,
		Source:    "api",
		FetchedAt: s.now().UTC(),
		ImageURL:  req.ImageURL,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	ctx := c.Request.Context()
	a := s.Analyzer.Assess(ctx, item)

	loc := store.UnknownLocation
	if s.Locator != nil {
		if l := s.Locator.Locate(ctx, req.URL, req.Title+" "+req.Text); l != "" {
			loc = l
		}
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		RiskScore:   a.RiskScore,
		RiskLevel:   scoring.RiskLevel(a.RiskScore),
		Components:  a.Components,
		Claims:      a.Claims,
		Evidence:    a.Evidence,
		Geolocation: loc,
		Reasoning:   a.Reasoning,
		Timestamp:   s.now().UTC(),
		ModelsUsed:  s.models(),
		Fallback:    a.Fallback,
	})
}

// handleFeed lists stored events, highest risk first.
func (s *Server) handleFeed(c *gin.Context) {
	events := s.Store.Recent(s.Store.Capacity())
	sort.SliceStable(events, func(i, j int) bool { return events[i].RiskScore > events[j].RiskScore })

	out := make([]FeedItem, 0, len(events))
	for _, e := range events {
		out = append(out, FeedItem{
			ID:          e.ID,
			Title:       e.Title,
			Summary:     e.Text,
			Source:      e.Source,
			URL:         e.URL,
			ImageURL:    e.ImageURL,
			RiskScore:   e.RiskScore,
			RiskLevel:   scoring.RiskLevel(e.RiskScore),
			Geolocation: e.Location,
			Timestamp:   e.ScannedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleEvents(c *gin.Context) {
	limit := defaultEventsLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, s.Store.Recent(limit))
}

func (s *Server) handleAlerts(c *gin.Context) {
	alerts := report.Alerts(s.Store.Recent(s.Store.Capacity()), s.Threshold)
	c.JSON(http.StatusOK, gin.H{
		"threshold": s.Threshold,
		"count":     len(alerts),
		"alerts":    alerts,
	})
}

// handleHeatmap reports the mean risk per location, rounded to two decimals.
func (s *Server) handleHeatmap(c *gin.Context) {
	heat := s.Store.RiskByLocation()
	for loc, v := range heat {
		heat[loc] = math.Round(v*100) / 100
	}
	c.JSON(http.StatusOK, heat)
}

func (s *Server) handleGeoTopics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Store.GeoTopicCounts())
}

func (s *Server) handleFetch(c *gin.Context) {
	if s.Fetch == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "background polling is not running"})
		return
	}
	s.Fetch.Trigger()
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func (s *Server) handleAlertReport(c *gin.Context) {
	f, err := os.CreateTemp("", "viralwarn-alerts-*.docx")
	if err != nil {
		s.Logger.Error("create report file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create report"})
		return
	}
	path := f.Name()
	_ = f.Close()
	defer os.Remove(path)

	now := s.now()
	if err := report.WriteAlerts(path, s.Store.Recent(s.Store.Capacity()), s.Threshold, now); err != nil {
		s.Logger.Error("write report", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create report"})
		return
	}
	c.FileAttachment(path, "viralwarn-alerts-"+now.UTC().Format("20060102-150405")+".docx")
}
