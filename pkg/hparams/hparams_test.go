package hparams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	t.Run("rightmost override wins", func(t *testing.T) {
		base := HParams{"batch_size": 256, "z_size": 512}
		override := HParams{"z_size": 128, "max_beta": 0.2}

		got := Merge(base, override)

		assert.Equal(t, HParams{"batch_size": 256, "z_size": 128, "max_beta": 0.2}, got)
	})

	t.Run("union of three mappings", func(t *testing.T) {
		a := HParams{"a": 1, "shared": 1}
		b := HParams{"b": 2, "shared": 2}
		c := HParams{"c": 3, "shared": 3}

		got := Merge(a, b, c)

		assert.ElementsMatch(t, []string{"a", "b", "c", "shared"}, got.Keys())
		assert.Equal(t, 3, got["shared"])
	})

	t.Run("no overrides returns a copy", func(t *testing.T) {
		base := HParams{"batch_size": 256}
		got := Merge(base)

		assert.Equal(t, base, got)
		got["batch_size"] = 1
		assert.Equal(t, 256, base["batch_size"])
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		base := HParams{"enc_rnn_size": []int{256}}
		override := HParams{"dec_rnn_size": []int{512, 512}}

		got := Merge(base, override)
		got["dec_rnn_size"].([]int)[0] = 1
		got["enc_rnn_size"].([]int)[0] = 1

		assert.Equal(t, HParams{"enc_rnn_size": []int{256}}, base)
		assert.Equal(t, HParams{"dec_rnn_size": []int{512, 512}}, override)
	})

	t.Run("nil base", func(t *testing.T) {
		got := Merge(nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestMergeKnown(t *testing.T) {
	base := HParams{"batch_size": 512, "z_size": 32}

	got, err := MergeKnown(base, HParams{"z_size": 512})
	require.NoError(t, err)
	assert.Equal(t, 512, got["z_size"])

	_, err = MergeKnown(base, HParams{"z_size": 512}, HParams{"free_bit": 1})
	var unknown *UnknownHParamError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "free_bit", unknown.Name)
}

func TestGetters(t *testing.T) {
	h := HParams{
		"batch_size":   256,
		"json_int":     float64(2048),
		"max_beta":     0.2,
		"conditional":  true,
		"clip_mode":    "global_norm",
		"enc_rnn_size": []int{2048, 2048},
	}

	n, err := h.Int("batch_size")
	require.NoError(t, err)
	assert.Equal(t, 256, n)

	n, err = h.Int("json_int")
	require.NoError(t, err)
	assert.Equal(t, 2048, n)

	_, err = h.Int("max_beta")
	var typeErr *TypeError
	assert.ErrorAs(t, err, &typeErr)

	f, err := h.Float("batch_size")
	require.NoError(t, err)
	assert.Equal(t, 256.0, f)

	b, err := h.Bool("conditional")
	require.NoError(t, err)
	assert.True(t, b)

	s, err := h.String("clip_mode")
	require.NoError(t, err)
	assert.Equal(t, "global_norm", s)

	ints, err := h.Ints("enc_rnn_size")
	require.NoError(t, err)
	ints[0] = 1
	assert.Equal(t, []int{2048, 2048}, h["enc_rnn_size"])

	_, err = h.Int("z_size")
	var missing *MissingError
	assert.ErrorAs(t, err, &missing)
}

func TestNormalize(t *testing.T) {
	raw := map[string]any{
		"batch_size":   256,
		"max_beta":     0.2,
		"enc_rnn_size": []any{2048, 2048},
		"json_sizes":   []any{float64(512), float64(512)},
		"ratios":       []any{1, 0.5},
		"names":        []any{"a", "b"},
		"conditional":  true,
	}

	got, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, HParams{
		"batch_size":   256,
		"max_beta":     0.2,
		"enc_rnn_size": []int{2048, 2048},
		"json_sizes":   []int{512, 512},
		"ratios":       []float64{1, 0.5},
		"names":        []string{"a", "b"},
		"conditional":  true,
	}, got)

	_, err = Normalize(map[string]any{"bad": []any{1, "x"}})
	assert.Error(t, err)

	_, err = Normalize(map[string]any{"bad": map[string]any{"x": 1}})
	assert.Error(t, err)
}
