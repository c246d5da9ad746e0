package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient is satisfied by *http.Client; tests swap in fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPBackend calls a Hugging Face style inference endpoint:
// POST {Endpoint}/{model} with {"inputs": ..., "parameters": ...}.
type HTTPBackend struct {
	Client   HTTPClient
	Endpoint string
	Token    string
}

func NewHTTPBackend(endpoint, token string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		Client:   &http.Client{Timeout: timeout},
		Endpoint: strings.TrimRight(endpoint, "/"),
		Token:    token,
	}
}

type httpRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Options    httpOptions    `json:"options"`
}

type httpOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type httpError struct {
	Error string `json:"error"`
}

func (b *HTTPBackend) Run(ctx context.Context, task Task, model, input string, params map[string]any) (json.RawMessage, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	body, err := json.Marshal(httpRequest{
		Inputs:     input,
		Parameters: params,
		Options:    httpOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint+"/"+model, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", task, model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", task, model, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var he httpError
		if json.Unmarshal(raw, &he) == nil && he.Error != "" {
			return nil, fmt.Errorf("%s %s: http %d: %s", task, model, resp.StatusCode, he.Error)
		}
		return nil, fmt.Errorf("%s %s: http %d", task, model, resp.StatusCode)
	}
	return raw, nil
}
