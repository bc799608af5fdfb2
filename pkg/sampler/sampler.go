// Package sampler hands sampling requests to the MusicVAE inference backend
// and collects the generated note sequences.
package sampler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/samogod/musegen/pkg/noteseq"
)

var DebugLog func(string, ...interface{})

type Backend interface {
	Sample(ctx context.Context, req *Request) ([]noteseq.NoteSequence, error)
}

type Response struct {
	Sequences []noteseq.NoteSequence `json:"sequences"`
	Error     string                 `json:"error,omitempty"`
}

// Process runs an external inference script: the request is written to its
// stdin and a Response is read from its stdout.
type Process struct {
	interpreter string
	scriptPath  string
}

func NewProcess(interpreter, scriptPath string) (*Process, error) {
	if scriptPath == "" {
		return nil, fmt.Errorf("inference script is not configured (sampler.script)")
	}
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("inference script not found at %s", scriptPath)
	}
	return &Process{
		interpreter: interpreter,
		scriptPath:  scriptPath,
	}, nil
}

func (p *Process) Sample(ctx context.Context, req *Request) ([]noteseq.NoteSequence, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if DebugLog != nil {
		DebugLog("running %s %s for %s (n=%d, length=%d, temperature=%v)",
			p.interpreter, p.scriptPath, req.ConfigName, req.NumOutputs, req.Length, req.Temperature)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.interpreter, p.scriptPath)
	cmd.Stdin = bytes.NewReader(reqJSON)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}

	return decodeResponse(stdout.Bytes(), req.NumOutputs)
}

func decodeResponse(data []byte, want int) ([]noteseq.NoteSequence, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, output: %s", err, string(data))
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("inference error: %s", resp.Error)
	}

	if len(resp.Sequences) != want {
		return nil, fmt.Errorf("inference returned %d sequences, expected %d", len(resp.Sequences), want)
	}

	for i := range resp.Sequences {
		if err := resp.Sequences[i].Validate(); err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
	}

	return resp.Sequences, nil
}
