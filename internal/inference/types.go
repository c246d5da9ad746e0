// Package inference talks to the pretrained models used for scoring: a fake
// news classifier, a sentiment classifier, a zero-shot NLI model, a named
// entity recogniser and a sentence embedder.
//
// Models run behind a Backend: the Hugging Face Inference API over HTTP, or a
// local Python worker subprocess. Both return the raw pipeline output, which
// the adapters in this package decode.
package inference

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrModelsDisabled = errors.New("inference: models disabled")
	ErrEmptyInput     = errors.New("inference: empty input")
	ErrNoPrediction   = errors.New("inference: no prediction")
)

// Task names follow the transformers pipeline names.
type Task string

const (
	TaskTextClassification  Task = "text-classification"
	TaskZeroShot            Task = "zero-shot-classification"
	TaskTokenClassification Task = "token-classification"
)

type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Entity struct {
	Group string  `json:"entity_group"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Classifier returns the top label for text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// ZeroShotClassifier scores text against caller supplied labels. Results are
// sorted by descending score.
type ZeroShotClassifier interface {
	ClassifyLabels(ctx context.Context, text string, labels []string) ([]Prediction, error)
}

type EntityRecognizer interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// Embedder maps each text to a dense vector. All vectors of one call have the
// same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Backend runs one pipeline task on a named model and returns the raw
// pipeline output.
type Backend interface {
	Run(ctx context.Context, task Task, model, input string, params map[string]any) (json.RawMessage, error)
}

// Loader is implemented by backends that need to prepare a model before its
// first use.
type Loader interface {
	Load(ctx context.Context, task Task, model string) error
}
