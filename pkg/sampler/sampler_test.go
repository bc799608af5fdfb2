package sampler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samogod/musegen/pkg/hparams"
	"github.com/samogod/musegen/pkg/modelconfig"
)

func trioConfig(t *testing.T) modelconfig.Config {
	t.Helper()
	cfg, ok := modelconfig.Builtins()[modelconfig.HierdecTrio16Bar]
	require.True(t, ok)
	return cfg
}

func TestNewRequest(t *testing.T) {
	cfg := trioConfig(t)

	req, err := NewRequest(modelconfig.HierdecTrio16Bar, cfg, "/ckpt", Options{
		BatchSize:   4,
		NumOutputs:  2,
		Temperature: 0.6,
	})
	require.NoError(t, err)

	assert.Equal(t, 256, req.Length, "length defaults to max_seq_len")
	assert.Equal(t, 4, req.BatchSize)

	var model map[string]any
	require.NoError(t, json.Unmarshal(req.Model, &model))
	assert.Equal(t, "MusicVAE", model["kind"])

	var converter map[string]any
	require.NoError(t, json.Unmarshal(req.DataConverter, &converter))
	assert.Equal(t, "TrioConverter", converter["kind"])

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"max_seq_len":256`)
}

func TestNewRequestErrors(t *testing.T) {
	cfg := trioConfig(t)
	good := Options{BatchSize: 4, NumOutputs: 2, Temperature: 0.6}

	_, err := NewRequest("x", modelconfig.New(nil, nil), "/ckpt", good)
	assert.Error(t, err, "no model")

	_, err = NewRequest("x", cfg, "", good)
	assert.Error(t, err, "no checkpoint")

	bad := good
	bad.Length = 4096
	_, err = NewRequest("x", cfg, "/ckpt", bad)
	assert.Error(t, err, "length above max_seq_len")

	bad = good
	bad.Temperature = 0
	_, err = NewRequest("x", cfg, "/ckpt", bad)
	assert.Error(t, err)

	bad = good
	bad.NumOutputs = 0
	_, err = NewRequest("x", cfg, "/ckpt", bad)
	assert.Error(t, err)

	noLen, err := cfg.Update(map[string]any{modelconfig.FieldHParams: map[string]any{"z_size": 512}})
	require.NoError(t, err)
	_, err = NewRequest("x", noLen, "/ckpt", good)
	assert.Error(t, err, "max_seq_len missing")
}

func TestNewRequestChecksHParamTypes(t *testing.T) {
	cfg := trioConfig(t)
	good := Options{BatchSize: 4, NumOutputs: 2, Temperature: 0.6}

	tests := []struct {
		name  string
		value any
	}{
		{"conditional", "yes"},
		{"z_size", "big"},
		{"enc_rnn_size", 2048},
		{"free_bits", "none"},
		{"sampling_schedule", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp := cfg.HParams()
			hp[tt.name] = tt.value
			broken, err := cfg.Update(map[string]any{modelconfig.FieldHParams: hp})
			require.NoError(t, err)

			_, err = NewRequest("x", broken, "/ckpt", good)
			var typeErr *hparams.TypeError
			require.ErrorAs(t, err, &typeErr)
			assert.Equal(t, tt.name, typeErr.Name)
		})
	}

	hp := cfg.HParams()
	delete(hp, "conditional")
	trimmed, err := cfg.Update(map[string]any{modelconfig.FieldHParams: hp})
	require.NoError(t, err)
	_, err = NewRequest("x", trimmed, "/ckpt", good)
	assert.NoError(t, err, "unset values are not checked")
}

func TestDecodeResponse(t *testing.T) {
	seqs, err := decodeResponse([]byte(`{"sequences":[{"notes":[{"pitch":60,"velocity":90,"start_time":0,"end_time":1}],"total_time":1}]}`), 1)
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	assert.Len(t, seqs[0].Notes, 1)

	_, err = decodeResponse([]byte(`{"error":"checkpoint missing"}`), 1)
	assert.ErrorContains(t, err, "checkpoint missing")

	_, err = decodeResponse([]byte(`{"sequences":[]}`), 2)
	assert.Error(t, err)

	_, err = decodeResponse([]byte(`not json`), 1)
	assert.Error(t, err)

	_, err = decodeResponse([]byte(`{"sequences":[{"notes":[{"pitch":300,"velocity":90,"end_time":1}]}]}`), 1)
	assert.Error(t, err)
}

func TestProcessSample(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script backend")
	}

	script := filepath.Join(t.TempDir(), "sample.sh")
	body := `cat > /dev/null
echo '{"sequences":[{"notes":[{"pitch":36,"velocity":100,"start_time":0,"end_time":0.5,"is_drum":true}],"total_time":0.5},{"notes":[],"total_time":0}]}'
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	p, err := NewProcess("/bin/sh", script)
	require.NoError(t, err)

	req, err := NewRequest(modelconfig.HierdecTrio16Bar, trioConfig(t), "/ckpt", Options{
		BatchSize: 4, NumOutputs: 2, Temperature: 0.6,
	})
	require.NoError(t, err)

	seqs, err := p.Sample(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.True(t, seqs[0].Notes[0].IsDrum)

	failing := filepath.Join(t.TempDir(), "fail.sh")
	require.NoError(t, os.WriteFile(failing, []byte("echo boom >&2\nexit 3\n"), 0o755))
	p, err = NewProcess("/bin/sh", failing)
	require.NoError(t, err)
	_, err = p.Sample(context.Background(), req)
	assert.ErrorContains(t, err, "boom")

	_, err = NewProcess("/bin/sh", filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}
