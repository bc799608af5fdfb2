package modelconfig

import (
	"fmt"

	"github.com/samogod/musegen/pkg/hparams"
	"github.com/samogod/musegen/pkg/musicvae"
)

const (
	HierdecTrio16Bar      = "hierdec-trio_16bar"
	HierdecBassDrums16Bar = "hierdec-bassdrums_16bar"
	CatMel2BarSmall       = "cat-mel_2bar_small"
)

var trio16BarConverter = musicvae.TrioConverter{
	StepsPerQuarter: 4,
	SliceBars:       16,
	GapBars:         2,
}

// Builtins returns the named configurations shipped with musegen.
func Builtins() map[string]Config {
	return map[string]Config{
		HierdecTrio16Bar: New(
			musicvae.MusicVAE{
				Encoder: musicvae.BidirectionalLstmEncoder{},
				Decoder: musicvae.HierarchicalLstmDecoder{
					Core: musicvae.SplitMultiOutLstmDecoder{
						CoreDecoders: []musicvae.Descriptor{
							musicvae.CategoricalLstmDecoder{},
							musicvae.CategoricalLstmDecoder{},
							musicvae.CategoricalLstmDecoder{},
						},
						OutputDepths: []int{
							90,  // melody
							90,  // bass
							512, // drums
						},
					},
					LevelLengths:          []int{16, 16},
					DisableAutoregression: true,
				},
			},
			hparams.Merge(musicvae.DefaultHParams(), hparams.HParams{
				"batch_size":   256,
				"max_seq_len":  256,
				"z_size":       512,
				"enc_rnn_size": []int{2048, 2048},
				"dec_rnn_size": []int{1024, 1024},
				"free_bits":    256,
				"max_beta":     0.2,
			}),
			WithDataConverter(trio16BarConverter),
		),

		// Melody slot dropped: only bass and drums are decoded, over longer
		// sequences.
		HierdecBassDrums16Bar: New(
			musicvae.MusicVAE{
				Encoder: musicvae.BidirectionalLstmEncoder{},
				Decoder: musicvae.HierarchicalLstmDecoder{
					Core: musicvae.SplitMultiOutLstmDecoder{
						CoreDecoders: []musicvae.Descriptor{
							musicvae.CategoricalLstmDecoder{},
							musicvae.CategoricalLstmDecoder{},
						},
						OutputDepths: []int{
							90,  // bass
							512, // drums
						},
					},
					LevelLengths:          []int{16, 16},
					DisableAutoregression: true,
				},
			},
			hparams.Merge(musicvae.DefaultHParams(), hparams.HParams{
				"batch_size":   256,
				"max_seq_len":  2048,
				"z_size":       512,
				"enc_rnn_size": []int{2048, 2048},
				"dec_rnn_size": []int{1024, 1024},
				"free_bits":    256,
				"max_beta":     0.2,
			}),
			WithDataConverter(trio16BarConverter),
		),

		CatMel2BarSmall: New(
			musicvae.MusicVAE{
				Encoder: musicvae.BidirectionalLstmEncoder{},
				Decoder: musicvae.CategoricalLstmDecoder{},
			},
			hparams.Merge(musicvae.DefaultHParams(), hparams.HParams{
				"batch_size":        512,
				"max_seq_len":       32,
				"z_size":            256,
				"enc_rnn_size":      []int{512},
				"dec_rnn_size":      []int{256, 256},
				"free_bits":         0,
				"max_beta":          0.2,
				"beta_rate":         0.99999,
				"sampling_schedule": "inverse_sigmoid",
				"sampling_rate":     1000,
			}),
			WithNoteSequenceAugmenter(musicvae.NoteSequenceAugmenter{
				TransposeRange: [2]int{-5, 5},
			}),
			WithDataConverter(musicvae.OneHotMelodyConverter{
				ValidPrograms:   musicvae.MelodyPrograms(),
				SkipPolyphony:   false,
				MaxBars:         100,
				SliceBars:       2,
				StepsPerQuarter: 4,
			}),
		),
	}
}

// RegisterBuiltins adds every builtin configuration to r.
func RegisterBuiltins(r *Registry) error {
	for name, cfg := range Builtins() {
		if err := r.Register(name, cfg); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}
	return nil
}
