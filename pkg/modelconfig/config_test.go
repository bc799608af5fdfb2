package modelconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samogod/musegen/pkg/hparams"
	"github.com/samogod/musegen/pkg/musicvae"
)

func testModel() musicvae.Descriptor {
	return musicvae.MusicVAE{
		Encoder: musicvae.BidirectionalLstmEncoder{},
		Decoder: musicvae.CategoricalLstmDecoder{},
	}
}

func TestNewDefaultsToAbsent(t *testing.T) {
	cfg := New(testModel(), hparams.HParams{"batch_size": 4})

	values := cfg.Values()
	require.Len(t, values, 7)
	assert.Equal(t, FieldNames(), namesOf(values))

	assert.Equal(t, testModel(), values[0].Value)
	assert.Equal(t, hparams.HParams{"batch_size": 4}, values[1].Value)
	for _, f := range values[2:] {
		assert.Nil(t, f.Value, f.Name)
	}

	_, ok := cfg.EvalExamplesPath()
	assert.False(t, ok)
}

func TestZeroConfigIsAllAbsent(t *testing.T) {
	for _, f := range (Config{}).Values() {
		assert.Nil(t, f.Value, f.Name)
	}
}

func TestValuesIsStable(t *testing.T) {
	cfg := New(testModel(), hparams.HParams{"z_size": 512}, WithDatasetID("groove"))
	assert.Empty(t, cmp.Diff(cfg.Values(), cfg.Values()))
}

func TestNewCopiesHParams(t *testing.T) {
	hp := hparams.HParams{"z_size": 512}
	cfg := New(testModel(), hp)

	hp["z_size"] = 1
	got := cfg.HParams()
	assert.Equal(t, 512, got["z_size"])

	got["z_size"] = 2
	assert.Equal(t, 512, cfg.HParams()["z_size"])
}

func TestUpdate(t *testing.T) {
	t.Run("sets one field and keeps the rest", func(t *testing.T) {
		orig := New(testModel(), hparams.HParams{"batch_size": 256})
		before := orig.Values()

		next, err := orig.Update(map[string]any{FieldEvalExamplesPath: "/data/eval.tfrecord"})
		require.NoError(t, err)

		assert.Empty(t, cmp.Diff(before, orig.Values()), "original must not change")

		path, ok := next.EvalExamplesPath()
		require.True(t, ok)
		assert.Equal(t, "/data/eval.tfrecord", path)

		nextValues := next.Values()
		for i, f := range nextValues {
			if f.Name == FieldEvalExamplesPath {
				continue
			}
			assert.Equal(t, before[i], f, f.Name)
		}
	})

	t.Run("empty changes round trip", func(t *testing.T) {
		orig := New(testModel(), hparams.HParams{"batch_size": 256},
			WithDataConverter(musicvae.TrioConverter{StepsPerQuarter: 4}),
			WithTrainExamplesPath("/data/train.tfrecord"))

		next, err := orig.Update(map[string]any{})
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(orig.Values(), next.Values()))
	})

	t.Run("unknown field", func(t *testing.T) {
		orig := New(testModel(), nil)
		_, err := orig.Update(map[string]any{"nonexistent_field": 1})

		var unknown *UnknownFieldError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "nonexistent_field", unknown.Field)
	})

	t.Run("wrong value type", func(t *testing.T) {
		orig := New(testModel(), nil)
		_, err := orig.Update(map[string]any{FieldTrainExamplesPath: 42})

		var typeErr *FieldTypeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, FieldTrainExamplesPath, typeErr.Field)

		_, err = orig.Update(map[string]any{FieldModel: "MusicVAE"})
		assert.ErrorAs(t, err, &typeErr)
	})

	t.Run("clears a field with nil", func(t *testing.T) {
		orig := New(testModel(), nil, WithDatasetID("lakh"))
		next, err := orig.Update(map[string]any{FieldDatasetID: nil, FieldModel: nil})
		require.NoError(t, err)

		_, ok := next.DatasetID()
		assert.False(t, ok)
		assert.Nil(t, next.Model())

		id, ok := orig.DatasetID()
		assert.True(t, ok)
		assert.Equal(t, "lakh", id)
	})

	t.Run("hparams from a decoded mapping", func(t *testing.T) {
		orig := New(testModel(), hparams.HParams{"batch_size": 256})
		next, err := orig.Update(map[string]any{
			FieldHParams: map[string]any{"dec_rnn_size": []any{1024, 1024}},
		})
		require.NoError(t, err)
		assert.Equal(t, hparams.HParams{"dec_rnn_size": []int{1024, 1024}}, next.HParams())
		assert.Equal(t, hparams.HParams{"batch_size": 256}, orig.HParams())
	})
}

func TestDerive(t *testing.T) {
	base := New(testModel(), hparams.HParams{"batch_size": 256, "max_seq_len": 256})

	got, err := Derive(base, hparams.HParams{"max_seq_len": 2048}, true,
		map[string]any{FieldEvalExamplesPath: "/data/eval.tfrecord"})
	require.NoError(t, err)

	assert.Equal(t, hparams.HParams{"batch_size": 256, "max_seq_len": 2048}, got.HParams())
	assert.Equal(t, 256, base.HParams()["max_seq_len"])

	_, err = Derive(base, hparams.HParams{"max_seqlen": 2048}, true, nil)
	var unknown *hparams.UnknownHParamError
	assert.ErrorAs(t, err, &unknown)

	got, err = Derive(base, hparams.HParams{"max_seqlen": 2048}, false, nil)
	require.NoError(t, err)
	assert.True(t, got.HParams().Has("max_seqlen"))

	_, err = Derive(base, nil, false, map[string]any{"tfds": "x"})
	var unknownField *UnknownFieldError
	assert.ErrorAs(t, err, &unknownField)
}

func namesOf(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
