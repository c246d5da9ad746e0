package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// textClassifier adapts a text-classification model.
type textClassifier struct {
	h *handle
}

func (c textClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return Prediction{}, ErrEmptyInput
	}
	raw, err := c.h.run(ctx, TaskTextClassification, text, nil)
	if err != nil {
		return Prediction{}, err
	}
	preds, err := decodeClassification(raw)
	if err != nil {
		return Prediction{}, fmt.Errorf("%s: %w", c.h.model, err)
	}
	return top(preds)
}

// zeroShot adapts a zero-shot-classification (NLI) model.
type zeroShot struct {
	h *handle
}

type zeroShotOutput struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

func (z zeroShot) ClassifyLabels(ctx context.Context, text string, labels []string) ([]Prediction, error) {
	if strings.TrimSpace(text) == "" || len(labels) == 0 {
		return nil, ErrEmptyInput
	}
	raw, err := z.h.run(ctx, TaskZeroShot, text, map[string]any{"candidate_labels": labels})
	if err != nil {
		return nil, err
	}

	var out zeroShotOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		// some deployments wrap single inputs in a list
		var list []zeroShotOutput
		if err2 := json.Unmarshal(raw, &list); err2 != nil || len(list) == 0 {
			return nil, fmt.Errorf("%s: decode zero-shot output: %w", z.h.model, err)
		}
		out = list[0]
	}
	if len(out.Labels) == 0 || len(out.Labels) != len(out.Scores) {
		return nil, fmt.Errorf("%s: %w", z.h.model, ErrNoPrediction)
	}

	preds := make([]Prediction, len(out.Labels))
	for i := range out.Labels {
		preds[i] = Prediction{Label: out.Labels[i], Score: out.Scores[i]}
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Score > preds[j].Score })
	return preds, nil
}

// entityRecognizer adapts a token-classification model run with grouped
// entities.
type entityRecognizer struct {
	h *handle
}

func (e entityRecognizer) Entities(ctx context.Context, text string) ([]Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	raw, err := e.h.run(ctx, TaskTokenClassification, text, map[string]any{"aggregation_strategy": "simple"})
	if err != nil {
		return nil, err
	}
	var ents []Entity
	if err := json.Unmarshal(raw, &ents); err != nil {
		return nil, fmt.Errorf("%s: decode entities: %w", e.h.model, err)
	}
	return ents, nil
}

// decodeClassification accepts both [[{label,score}...]] and
// [{label,score}...].
func decodeClassification(raw json.RawMessage) ([]Prediction, error) {
	var nested [][]Prediction
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, ErrNoPrediction
		}
		return nested[0], nil
	}
	var flat []Prediction
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode classification output: %w", err)
	}
	return flat, nil
}

func top(preds []Prediction) (Prediction, error) {
	if len(preds) == 0 {
		return Prediction{}, ErrNoPrediction
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, nil
}
