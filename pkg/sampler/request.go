package sampler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samogod/musegen/pkg/hparams"
	"github.com/samogod/musegen/pkg/modelconfig"
	"github.com/samogod/musegen/pkg/musicvae"
)

type Options struct {
	BatchSize   int
	NumOutputs  int
	Length      int
	Temperature float64
}

// Request is the JSON document handed to the inference backend.
type Request struct {
	ConfigName    string          `json:"config_name"`
	Model         json.RawMessage `json:"model"`
	DataConverter json.RawMessage `json:"data_converter"`
	HParams       hparams.HParams `json:"hparams"`
	Checkpoint    string          `json:"checkpoint"`
	BatchSize     int             `json:"batch_size"`
	NumOutputs    int             `json:"num_outputs"`
	Length        int             `json:"length"`
	Temperature   float64         `json:"temperature"`
}

// NewRequest builds a sampling request from a registered configuration. A
// zero Length samples the configuration's full max_seq_len.
func NewRequest(name string, cfg modelconfig.Config, checkpoint string, opts Options) (*Request, error) {
	if cfg.Model() == nil {
		return nil, fmt.Errorf("config %s has no model", name)
	}
	if checkpoint == "" {
		return nil, errors.New("checkpoint path is required")
	}
	if opts.NumOutputs <= 0 {
		return nil, fmt.Errorf("num outputs must be positive, got %d", opts.NumOutputs)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.Temperature <= 0 {
		return nil, fmt.Errorf("temperature must be positive, got %v", opts.Temperature)
	}

	hp := cfg.HParams()
	maxSeqLen, err := hp.Int("max_seq_len")
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}

	if err := checkHParams(hp); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}

	length := opts.Length
	if length == 0 {
		length = maxSeqLen
	}
	if length < 0 || length > maxSeqLen {
		return nil, fmt.Errorf("length %d outside 1..%d (max_seq_len)", length, maxSeqLen)
	}

	model, err := musicvae.Encode(cfg.Model())
	if err != nil {
		return nil, err
	}
	converter, err := musicvae.Encode(cfg.DataConverter())
	if err != nil {
		return nil, err
	}

	return &Request{
		ConfigName:    name,
		Model:         model,
		DataConverter: converter,
		HParams:       hp,
		Checkpoint:    checkpoint,
		BatchSize:     opts.BatchSize,
		NumOutputs:    opts.NumOutputs,
		Length:        length,
		Temperature:   opts.Temperature,
	}, nil
}

// backendHParams are the values the backend reads with a fixed type. Each is
// optional, but when set it must hold that type.
var backendHParams = []struct {
	name  string
	check func(hparams.HParams, string) error
}{
	{"z_size", func(h hparams.HParams, n string) error { _, err := h.Int(n); return err }},
	{"enc_rnn_size", func(h hparams.HParams, n string) error { _, err := h.Ints(n); return err }},
	{"dec_rnn_size", func(h hparams.HParams, n string) error { _, err := h.Ints(n); return err }},
	{"free_bits", func(h hparams.HParams, n string) error { _, err := h.Float(n); return err }},
	{"max_beta", func(h hparams.HParams, n string) error { _, err := h.Float(n); return err }},
	{"conditional", func(h hparams.HParams, n string) error { _, err := h.Bool(n); return err }},
	{"sampling_schedule", func(h hparams.HParams, n string) error { _, err := h.String(n); return err }},
}

func checkHParams(hp hparams.HParams) error {
	for _, p := range backendHParams {
		if !hp.Has(p.name) {
			continue
		}
		if err := p.check(hp, p.name); err != nil {
			return err
		}
	}
	return nil
}
