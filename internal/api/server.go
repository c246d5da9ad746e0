// Package api serves the JSON API, the HTML dashboard, the docx alert report
// and Prometheus metrics over HTTP.
package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"viralwarn/internal/discovery"
	"viralwarn/internal/inference"
	"viralwarn/internal/scoring"
	"viralwarn/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Analyzer interface {
	Assess(ctx context.Context, item discovery.ContentItem) scoring.Assessment
}

type Locator interface {
	Locate(ctx context.Context, rawURL, text string) string
}

// Trigger starts a fetch cycle without waiting for it.
type Trigger interface {
	Trigger()
}

// ModelCatalog describes the configured models; *inference.Registry is one.
type ModelCatalog interface {
	Enabled() bool
	Models() inference.Models
	Status() []inference.ModelStatus
}

// Server holds the collaborators of the HTTP handlers. Optional fields may be
// nil: without a Locator everything is Unknown, without a Trigger POST /fetch
// answers 503, without Models the mode is HEURISTIC.
type Server struct {
	Store     *store.Store
	Analyzer  Analyzer
	Locator   Locator
	Fetch     Trigger
	Models    ModelCatalog
	Gatherer  prometheus.Gatherer
	Threshold float64
	Interval  time.Duration // shown on the dashboard
	Logger    *slog.Logger

	now func() time.Time
}

func NewServer(st *store.Store, a Analyzer, l Locator, t Trigger, models ModelCatalog, g prometheus.Gatherer, threshold float64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Server{
		Store:     st,
		Analyzer:  a,
		Locator:   l,
		Fetch:     t,
		Models:    models,
		Gatherer:  g,
		Threshold: threshold,
		Logger:    logger,
		now:       time.Now,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestID(), recovery(s.Logger), requestLogger(s.Logger), cors())

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.handleHealth)
	router.GET("/models", s.handleModels)
	router.POST("/analyze", s.handleAnalyze)
	router.GET("/feed", s.handleFeed)
	router.GET("/events", s.handleEvents)
	router.GET("/alerts", s.handleAlerts)
	router.GET("/heatmap", s.handleHeatmap)
	router.GET("/geo-topics", s.handleGeoTopics)
	router.POST("/fetch", s.handleFetch)
	router.GET("/dashboard", s.handleDashboard)
	router.GET("/reports/alerts.docx", s.handleAlertReport)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))

	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) mode() string {
	if s.Models != nil && s.Models.Enabled() {
		return "MODEL"
	}
	return "HEURISTIC"
}

func (s *Server) models() inference.Models {
	if s.Models == nil {
		return inference.Models{}
	}
	return s.Models.Models()
}
