package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

type workerResponse struct {
	OK        bool            `json:"ok"`
	ElapsedMS int             `json:"elapsed_ms"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

// WorkerBackend runs models in a local Python worker, one process per call:
//
//	python worker.py --task <task> --model <model> --text <input> [--params <json>]
//
// The worker prints {"ok":..., "elapsed_ms":..., "data":..., "error":...}
// where data is the pipeline output.
type WorkerBackend struct {
	PythonExe string // "python"
	Script    string // "python_worker/worker.py"
	Timeout   time.Duration
}

func NewWorkerBackend(python, script string, timeout time.Duration) *WorkerBackend {
	if python == "" {
		python = "python"
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &WorkerBackend{
		PythonExe: python,
		Script:    script,
		Timeout:   timeout,
	}
}

// Load checks the worker script exists; the interpreter itself is only found
// at the first Run.
func (w *WorkerBackend) Load(_ context.Context, _ Task, _ string) error {
	if w.PythonExe == "" || w.Script == "" {
		return errors.New("worker not configured")
	}
	if _, err := os.Stat(w.Script); err != nil {
		return fmt.Errorf("worker script: %w", err)
	}
	return nil
}

func (w *WorkerBackend) Run(ctx context.Context, task Task, model, input string, params map[string]any) (json.RawMessage, error) {
	if w.PythonExe == "" || w.Script == "" {
		return nil, errors.New("worker not configured")
	}
	if input == "" {
		return nil, ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	args := []string{w.Script, "--task", string(task), "--model", model, "--text", input}
	if len(params) > 0 {
		p, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		args = append(args, "--params", string(p))
	}

	cmd := exec.CommandContext(ctx, w.PythonExe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("python worker timeout: %w", ctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("python worker failed: %v (stderr=%s)", err, stderr.String())
	}

	var resp workerResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("bad worker json: %v (out=%s)", err, stdout.String())
	}
	if !resp.OK {
		if resp.Error == "" {
			resp.Error = "unknown error"
		}
		return nil, fmt.Errorf("worker error: %s", resp.Error)
	}
	return resp.Data, nil
}
