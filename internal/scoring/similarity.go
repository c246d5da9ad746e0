package scoring

import (
	"context"
	"errors"
	"math"

	"viralwarn/internal/inference"
)

// cosine returns 0 for zero or mismatched vectors.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// meanCosine averages cosine similarity over every (claim, evidence) pair,
// embedding both lists in one call.
func meanCosine(ctx context.Context, e inference.Embedder, claims, evidence []string) (float64, error) {
	if len(claims) == 0 || len(evidence) == 0 {
		return 0, inference.ErrEmptyInput
	}
	texts := make([]string, 0, len(claims)+len(evidence))
	texts = append(texts, claims...)
	texts = append(texts, evidence...)

	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vecs) != len(texts) {
		return 0, errors.New("embedder returned a short result")
	}

	cv, ev := vecs[:len(claims)], vecs[len(claims):]
	var sum float64
	for _, c := range cv {
		for _, v := range ev {
			sum += cosine(c, v)
		}
	}
	return sum / float64(len(cv)*len(ev)), nil
}
