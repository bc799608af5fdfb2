package modelconfig

import (
	"errors"
	"fmt"

	"github.com/samogod/musegen/pkg/hparams"
)

// Derive builds a new record from base: overrides are merged onto base's
// hyperparameters, then changes are applied as field updates. With strict set,
// overrides may only name hyperparameters base already has.
func Derive(base Config, overrides hparams.HParams, strict bool, changes map[string]any) (Config, error) {
	if _, ok := changes[FieldHParams]; ok {
		return Config{}, errors.New("hparams must be passed as overrides, not as a field change")
	}

	merged := hparams.Merge(base.HParams(), overrides)
	if strict {
		var err error
		if merged, err = hparams.MergeKnown(base.HParams(), overrides); err != nil {
			return Config{}, fmt.Errorf("invalid hparams override: %w", err)
		}
	}

	update := map[string]any{FieldHParams: merged}
	for k, v := range changes {
		update[k] = v
	}
	return base.Update(update)
}
