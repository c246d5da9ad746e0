package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testModels = Models{FakeNews: "fake", Sentiment: "sent", NLI: "nli", Entities: "ner"}

// hfServer answers like the hosted inference API, keyed on the model path.
func hfServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req httpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Options.WaitForModel)

		switch r.URL.Path {
		case "/fake":
			_, _ = io.WriteString(w, `[[{"label":"REAL","score":0.2},{"label":"FAKE","score":0.8}]]`)
		case "/sent":
			_, _ = io.WriteString(w, `[{"label":"LABEL_0","score":0.9},{"label":"LABEL_2","score":0.1}]`)
		case "/nli":
			labels, _ := req.Parameters["candidate_labels"].([]any)
			assert.Len(t, labels, 3)
			_, _ = io.WriteString(w, `{"sequence":"x","labels":["neutral","contradiction","entailment"],"scores":[0.1,0.7,0.2]}`)
		case "/ner":
			assert.Equal(t, "simple", req.Parameters["aggregation_strategy"])
			_, _ = io.WriteString(w, `[{"entity_group":"LOC","word":"Paris","score":0.99,"start":0,"end":5}]`)
		case "/loading":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":"Model is currently loading"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRegistry_HTTPBackend(t *testing.T) {
	var calls atomic.Int32
	srv := hfServer(t, &calls)
	defer srv.Close()

	r := NewRegistry(NewHTTPBackend(srv.URL+"/", "tok", 5*time.Second), testModels, true, quietLogger())
	require.True(t, r.Enabled())
	ctx := context.Background()

	p, err := r.FakeNews().Classify(ctx, "aliens built the pyramids")
	require.NoError(t, err)
	assert.Equal(t, Prediction{Label: "FAKE", Score: 0.8}, p)

	p, err = r.Sentiment().Classify(ctx, "terrible news")
	require.NoError(t, err)
	assert.Equal(t, "LABEL_0", p.Label)

	preds, err := r.NLI().ClassifyLabels(ctx, "claim </s> evidence", []string{"contradiction", "entailment", "neutral"})
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, "contradiction", preds[0].Label)
	assert.InDelta(t, 0.7, preds[0].Score, 1e-9)

	ents, err := r.Entities().Entities(ctx, "Paris is calm")
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, "LOC", ents[0].Group)
	assert.Equal(t, "Paris", ents[0].Word)

	assert.EqualValues(t, 4, calls.Load())

	st := r.Status()
	require.Len(t, st, 4)
	assert.Equal(t, "fake_news", st[0].Role)
	assert.True(t, st[0].Loaded)
	assert.EqualValues(t, 1, st[0].Calls)
}

func TestRegistry_Disabled(t *testing.T) {
	var calls atomic.Int32
	srv := hfServer(t, &calls)
	defer srv.Close()

	r := NewRegistry(NewHTTPBackend(srv.URL, "tok", time.Second), testModels, false, quietLogger())
	assert.False(t, r.Enabled())

	_, err := r.FakeNews().Classify(context.Background(), "text")
	assert.ErrorIs(t, err, ErrModelsDisabled)
	_, err = r.NLI().ClassifyLabels(context.Background(), "text", []string{"a"})
	assert.ErrorIs(t, err, ErrModelsDisabled)
	_, err = r.Entities().Entities(context.Background(), "text")
	assert.ErrorIs(t, err, ErrModelsDisabled)
	assert.EqualValues(t, 0, calls.Load())
}

func TestRegistry_EmptyInput(t *testing.T) {
	r := NewRegistry(NewHTTPBackend("http://127.0.0.1:1", "", time.Second), testModels, true, quietLogger())
	_, err := r.FakeNews().Classify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = r.NLI().ClassifyLabels(context.Background(), "text", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHTTPBackend_ErrorBody(t *testing.T) {
	var calls atomic.Int32
	srv := hfServer(t, &calls)
	defer srv.Close()

	b := NewHTTPBackend(srv.URL, "tok", time.Second)
	_, err := b.Run(context.Background(), TaskTextClassification, "loading", "text", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "currently loading")
}

type failingLoader struct {
	loads atomic.Int32
	runs  atomic.Int32
}

func (f *failingLoader) Load(context.Context, Task, string) error {
	f.loads.Add(1)
	return errors.New("no weights")
}

func (f *failingLoader) Run(context.Context, Task, string, string, map[string]any) (json.RawMessage, error) {
	f.runs.Add(1)
	return json.RawMessage(`[]`), nil
}

func TestRegistry_LoadsOnceAndRemembersFailure(t *testing.T) {
	b := &failingLoader{}
	r := NewRegistry(b, testModels, true, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.FakeNews().Classify(context.Background(), "text")
			assert.ErrorContains(t, err, "no weights")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, b.loads.Load())
	assert.EqualValues(t, 0, b.runs.Load())
	st := r.Status()[0]
	assert.False(t, st.Loaded)
	assert.Equal(t, "no weights", st.Error)
}

func TestDecodeClassification(t *testing.T) {
	preds, err := decodeClassification(json.RawMessage(`[[{"label":"A","score":0.3}]]`))
	require.NoError(t, err)
	assert.Equal(t, []Prediction{{"A", 0.3}}, preds)

	preds, err = decodeClassification(json.RawMessage(`[{"label":"B","score":0.6}]`))
	require.NoError(t, err)
	assert.Equal(t, []Prediction{{"B", 0.6}}, preds)

	_, err = decodeClassification(json.RawMessage(`[]`))
	assert.ErrorIs(t, err, ErrNoPrediction)

	_, err = decodeClassification(json.RawMessage(`{"error":"x"}`))
	assert.Error(t, err)

	_, err = top(nil)
	assert.ErrorIs(t, err, ErrNoPrediction)
}

func writeWorker(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("worker tests need a POSIX shell")
	}
	p := filepath.Join(t.TempDir(), "worker.sh")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o755))
	return p
}

func TestWorkerBackend_Run(t *testing.T) {
	script := writeWorker(t, `#!/bin/sh
# echo the task and model back inside the pipeline output
echo "{\"ok\":true,\"elapsed_ms\":3,\"data\":[{\"label\":\"$2:$4\",\"score\":1}]}"
`)
	w := NewWorkerBackend("sh", script, 5*time.Second)
	require.NoError(t, w.Load(context.Background(), TaskTextClassification, "m"))

	raw, err := w.Run(context.Background(), TaskTextClassification, "my-model", "hello", nil)
	require.NoError(t, err)
	preds, err := decodeClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, "text-classification:my-model", preds[0].Label)
}

func TestWorkerBackend_Errors(t *testing.T) {
	script := writeWorker(t, `#!/bin/sh
echo '{"ok":false,"error":"CUDA out of memory"}'
`)
	w := NewWorkerBackend("sh", script, 5*time.Second)
	_, err := w.Run(context.Background(), TaskZeroShot, "m", "hello", map[string]any{"candidate_labels": []string{"a"}})
	assert.ErrorContains(t, err, "CUDA out of memory")

	bad := writeWorker(t, "#!/bin/sh\necho not-json\n")
	_, err = NewWorkerBackend("sh", bad, 5*time.Second).Run(context.Background(), TaskZeroShot, "m", "x", nil)
	assert.ErrorContains(t, err, "bad worker json")

	missing := NewWorkerBackend("sh", filepath.Join(t.TempDir(), "nope.py"), time.Second)
	assert.Error(t, missing.Load(context.Background(), TaskZeroShot, "m"))
}

func TestLexicalEmbedder(t *testing.T) {
	e := NewLexicalEmbedder()
	vecs, err := e.Embed(context.Background(), []string{
		"The vaccine causes autism",
		"vaccine causes AUTISM!",
		"Stock markets rallied on Friday",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	for _, v := range vecs {
		assert.Len(t, v, 512)
	}

	dot := func(a, b []float32) float32 {
		var s float32
		for i := range a {
			s += a[i] * b[i]
		}
		return s
	}
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[1]), 1e-5)
	assert.Less(t, dot(vecs[0], vecs[2]), float32(0.5))
	assert.Equal(t, float32(0), dot(vecs[3], vecs[3]))

	_, err = e.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mini", req.Model)
		require.Len(t, req.Input, 2)

		w.Header().Set("Content-Type", "application/json")
		// out of order on purpose
		_, _ = io.WriteString(w, `{"object":"list","model":"mini","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}]}`)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL+"/v1", "key", "mini")
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}
