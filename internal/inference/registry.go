package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Models names the model used for each role.
type Models struct {
	FakeNews  string `json:"fake_news"`
	Sentiment string `json:"sentiment"`
	NLI       string `json:"nli"`
	Entities  string `json:"entities"`
}

// ModelStatus is what /models reports for one role.
type ModelStatus struct {
	Role   string `json:"role"`
	Task   Task   `json:"task"`
	Model  string `json:"model"`
	Loaded bool   `json:"loaded"`
	Calls  int64  `json:"calls"`
	Error  string `json:"error,omitempty"`
}

// handle is one model, prepared lazily on first use. A failed preparation is
// remembered and returned by every later call.
type handle struct {
	role    string
	task    Task
	model   string
	backend Backend
	enabled bool
	logger  *slog.Logger

	once    sync.Once
	loadErr error // read only after once.Do
	failure atomic.Pointer[string]
	loaded  atomic.Bool
	calls   atomic.Int64
}

func (h *handle) load(ctx context.Context) error {
	h.once.Do(func() {
		start := time.Now()
		if l, ok := h.backend.(Loader); ok {
			h.loadErr = l.Load(ctx, h.task, h.model)
		}
		if h.loadErr != nil {
			msg := h.loadErr.Error()
			h.failure.Store(&msg)
			h.logger.Warn("model unavailable", "component", h.role, "model", h.model, "error", h.loadErr)
			return
		}
		h.loaded.Store(true)
		h.logger.Info("model ready", "component", h.role, "model", h.model,
			"duration", time.Since(start).Truncate(time.Millisecond))
	})
	return h.loadErr
}

func (h *handle) run(ctx context.Context, task Task, input string, params map[string]any) (json.RawMessage, error) {
	if !h.enabled {
		return nil, ErrModelsDisabled
	}
	if err := h.load(ctx); err != nil {
		return nil, err
	}
	h.calls.Add(1)
	return h.backend.Run(ctx, task, h.model, input, params)
}

func (h *handle) status() ModelStatus {
	s := ModelStatus{
		Role:   h.role,
		Task:   h.task,
		Model:  h.model,
		Loaded: h.loaded.Load(),
		Calls:  h.calls.Load(),
	}
	if msg := h.failure.Load(); msg != nil {
		s.Error = *msg
	}
	return s
}

// Registry owns the model handles. It is built once at startup and shared;
// all methods are safe for concurrent use.
type Registry struct {
	enabled bool
	models  Models

	fake      *handle
	sentiment *handle
	nli       *handle
	entities  *handle
}

// NewRegistry wires every role to backend. With enabled false no model is
// ever called and every adapter returns ErrModelsDisabled.
func NewRegistry(backend Backend, models Models, enabled bool, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	mk := func(role string, task Task, model string) *handle {
		return &handle{
			role:    role,
			task:    task,
			model:   model,
			backend: backend,
			enabled: enabled && backend != nil && model != "",
			logger:  logger,
		}
	}
	return &Registry{
		enabled:   enabled && backend != nil,
		models:    models,
		fake:      mk("fake_news", TaskTextClassification, models.FakeNews),
		sentiment: mk("sentiment", TaskTextClassification, models.Sentiment),
		nli:       mk("nli", TaskZeroShot, models.NLI),
		entities:  mk("entities", TaskTokenClassification, models.Entities),
	}
}

// Enabled reports whether model calls are attempted at all.
func (r *Registry) Enabled() bool { return r.enabled }

func (r *Registry) Models() Models { return r.models }

func (r *Registry) FakeNews() Classifier { return textClassifier{h: r.fake} }

func (r *Registry) Sentiment() Classifier { return textClassifier{h: r.sentiment} }

func (r *Registry) NLI() ZeroShotClassifier { return zeroShot{h: r.nli} }

func (r *Registry) Entities() EntityRecognizer { return entityRecognizer{h: r.entities} }

// Status lists every role in a fixed order.
func (r *Registry) Status() []ModelStatus {
	return []ModelStatus{r.fake.status(), r.sentiment.status(), r.nli.status(), r.entities.status()}
}
