// Package modelconfig holds named MusicVAE configurations: an immutable record
// bundling a model descriptor with its resolved hyperparameters and data
// handling descriptors, and the registry those records are published in.
package modelconfig

import (
	"sort"

	"github.com/samogod/musegen/pkg/hparams"
	"github.com/samogod/musegen/pkg/musicvae"
)

const (
	FieldModel                 = "model"
	FieldHParams               = "hparams"
	FieldNoteSequenceAugmenter = "note_sequence_augmenter"
	FieldDataConverter         = "data_converter"
	FieldTrainExamplesPath     = "train_examples_path"
	FieldEvalExamplesPath      = "eval_examples_path"
	FieldDatasetID             = "dataset_id"
)

var fieldNames = []string{
	FieldModel,
	FieldHParams,
	FieldNoteSequenceAugmenter,
	FieldDataConverter,
	FieldTrainExamplesPath,
	FieldEvalExamplesPath,
	FieldDatasetID,
}

// FieldNames returns the declared fields in declaration order.
func FieldNames() []string {
	return append([]string(nil), fieldNames...)
}

func isField(name string) bool {
	for _, f := range fieldNames {
		if f == name {
			return true
		}
	}
	return false
}

// Config is a value; every accessor returns copies of mutable state, so a
// Config can be shared freely once built. A nil field is absent.
type Config struct {
	model             musicvae.Descriptor
	hparams           hparams.HParams
	augmenter         musicvae.Descriptor
	dataConverter     musicvae.Descriptor
	trainExamplesPath *string
	evalExamplesPath  *string
	datasetID         *string
}

type Option func(*Config)

func WithNoteSequenceAugmenter(a musicvae.Descriptor) Option {
	return func(c *Config) { c.augmenter = a }
}

func WithDataConverter(d musicvae.Descriptor) Option {
	return func(c *Config) { c.dataConverter = d }
}

func WithTrainExamplesPath(path string) Option {
	return func(c *Config) { c.trainExamplesPath = &path }
}

func WithEvalExamplesPath(path string) Option {
	return func(c *Config) { c.evalExamplesPath = &path }
}

func WithDatasetID(id string) Option {
	return func(c *Config) { c.datasetID = &id }
}

// New builds a Config. It never fails; descriptors are not inspected here.
func New(model musicvae.Descriptor, hp hparams.HParams, opts ...Option) Config {
	c := Config{model: model}
	if hp != nil {
		c.hparams = hp.Clone()
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.model = musicvae.Clone(c.model)
	c.augmenter = musicvae.Clone(c.augmenter)
	c.dataConverter = musicvae.Clone(c.dataConverter)
	return c
}

func (c Config) Model() musicvae.Descriptor { return musicvae.Clone(c.model) }

// HParams returns a copy of the hyperparameters, nil when absent.
func (c Config) HParams() hparams.HParams {
	if c.hparams == nil {
		return nil
	}
	return c.hparams.Clone()
}

func (c Config) NoteSequenceAugmenter() musicvae.Descriptor { return musicvae.Clone(c.augmenter) }

func (c Config) DataConverter() musicvae.Descriptor { return musicvae.Clone(c.dataConverter) }

func (c Config) TrainExamplesPath() (string, bool) { return deref(c.trainExamplesPath) }

func (c Config) EvalExamplesPath() (string, bool) { return deref(c.evalExamplesPath) }

func (c Config) DatasetID() (string, bool) { return deref(c.datasetID) }

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

// Field is one named entry of Values.
type Field struct {
	Name  string
	Value any
}

// Values exports every declared field in declaration order. Absent fields
// carry a nil Value.
func (c Config) Values() []Field {
	fields := make([]Field, 0, len(fieldNames))
	for _, name := range fieldNames {
		fields = append(fields, Field{Name: name, Value: c.get(name)})
	}
	return fields
}

func (c Config) get(name string) any {
	switch name {
	case FieldModel:
		return descriptorValue(c.model)
	case FieldHParams:
		if h := c.HParams(); h != nil {
			return h
		}
	case FieldNoteSequenceAugmenter:
		return descriptorValue(c.augmenter)
	case FieldDataConverter:
		return descriptorValue(c.dataConverter)
	case FieldTrainExamplesPath:
		return stringValue(c.trainExamplesPath)
	case FieldEvalExamplesPath:
		return stringValue(c.evalExamplesPath)
	case FieldDatasetID:
		return stringValue(c.datasetID)
	}
	return nil
}

func descriptorValue(d musicvae.Descriptor) any {
	if d == nil {
		return nil
	}
	return d.Clone()
}

func stringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Update returns a new Config with changes applied over c's values. c itself
// is left as it was. Fields not named in changes keep their value, absent
// included.
func (c Config) Update(changes map[string]any) (Config, error) {
	names := make([]string, 0, len(changes))
	for name := range changes {
		if !isField(name) {
			return Config{}, &UnknownFieldError{Field: name}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	next := c
	for _, name := range names {
		if err := next.set(name, changes[name]); err != nil {
			return Config{}, err
		}
	}
	return next, nil
}

func (c *Config) set(name string, v any) error {
	switch name {
	case FieldModel:
		d, err := toDescriptor(name, v)
		if err != nil {
			return err
		}
		c.model = d
	case FieldHParams:
		h, err := toHParams(name, v)
		if err != nil {
			return err
		}
		c.hparams = h
	case FieldNoteSequenceAugmenter:
		d, err := toDescriptor(name, v)
		if err != nil {
			return err
		}
		c.augmenter = d
	case FieldDataConverter:
		d, err := toDescriptor(name, v)
		if err != nil {
			return err
		}
		c.dataConverter = d
	case FieldTrainExamplesPath:
		s, err := toString(name, v)
		if err != nil {
			return err
		}
		c.trainExamplesPath = s
	case FieldEvalExamplesPath:
		s, err := toString(name, v)
		if err != nil {
			return err
		}
		c.evalExamplesPath = s
	case FieldDatasetID:
		s, err := toString(name, v)
		if err != nil {
			return err
		}
		c.datasetID = s
	default:
		return &UnknownFieldError{Field: name}
	}
	return nil
}

func toDescriptor(field string, v any) (musicvae.Descriptor, error) {
	if v == nil {
		return nil, nil
	}
	d, ok := v.(musicvae.Descriptor)
	if !ok {
		return nil, &FieldTypeError{Field: field, Want: "descriptor", Got: v}
	}
	return d.Clone(), nil
}

func toHParams(field string, v any) (hparams.HParams, error) {
	switch h := v.(type) {
	case nil:
		return nil, nil
	case hparams.HParams:
		if h == nil {
			return nil, nil
		}
		return h.Clone(), nil
	case map[string]any:
		n, err := hparams.Normalize(h)
		if err != nil {
			return nil, &FieldTypeError{Field: field, Want: "hyperparameter mapping", Got: v}
		}
		return n, nil
	}
	return nil, &FieldTypeError{Field: field, Want: "hyperparameter mapping", Got: v}
}

func toString(field string, v any) (*string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &s, nil
	case *string:
		if s == nil {
			return nil, nil
		}
		cp := *s
		return &cp, nil
	}
	return nil, &FieldTypeError{Field: field, Want: "string", Got: v}
}
