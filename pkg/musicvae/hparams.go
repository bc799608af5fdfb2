package musicvae

import "github.com/samogod/musegen/pkg/hparams"

// DefaultHParams returns the LSTM model defaults that named configurations
// merge their overrides onto.
func DefaultHParams() hparams.HParams {
	return hparams.HParams{
		"max_seq_len":                    32,
		"z_size":                         32,
		"free_bits":                      0.0,
		"max_beta":                       1.0,
		"beta_rate":                      0.0,
		"batch_size":                     512,
		"grad_clip":                      1.0,
		"clip_mode":                      "global_norm",
		"grad_norm_clip_to_zero":         10000,
		"learning_rate":                  0.001,
		"decay_rate":                     0.9999,
		"min_learning_rate":              0.00001,
		"conditional":                    true,
		"dec_rnn_size":                   []int{512},
		"enc_rnn_size":                   []int{256},
		"dropout_keep_prob":              1.0,
		"sampling_schedule":              "constant",
		"sampling_rate":                  0.0,
		"use_cudnn":                      false,
		"residual_encoder":               false,
		"residual_decoder":               false,
		"control_preprocessing_rnn_size": []int{256},
	}
}
