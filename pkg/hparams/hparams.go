// Package hparams holds model hyperparameter mappings and the merge used to
// layer caller overrides on top of architecture defaults.
package hparams

import (
	"fmt"
	"sort"
)

// HParams maps a hyperparameter name to a scalar (int, float64, bool, string)
// or a short ordered sequence ([]int, []float64).
type HParams map[string]any

type UnknownHParamError struct {
	Name string
}

func (e *UnknownHParamError) Error() string {
	return fmt.Sprintf("unknown hyperparameter %q", e.Name)
}

type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("hyperparameter %q is not set", e.Name)
}

type TypeError struct {
	Name string
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("hyperparameter %q: expected %s, got %T", e.Name, e.Want, e.Got)
}

// Merge returns a new mapping holding every key of base and overrides. When a
// key appears more than once the rightmost mapping wins. No input is modified.
func Merge(base HParams, overrides ...HParams) HParams {
	merged := base.Clone()
	for _, o := range overrides {
		for k, v := range o {
			merged[k] = cloneValue(v)
		}
	}
	return merged
}

// MergeKnown behaves like Merge but rejects override keys that base does not
// declare.
func MergeKnown(base HParams, overrides ...HParams) (HParams, error) {
	for _, o := range overrides {
		for _, k := range o.Keys() {
			if _, ok := base[k]; !ok {
				return nil, &UnknownHParamError{Name: k}
			}
		}
	}
	return Merge(base, overrides...), nil
}

func (h HParams) Clone() HParams {
	out := make(HParams, len(h))
	for k, v := range h {
		out[k] = cloneValue(v)
	}
	return out
}

func (h HParams) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h HParams) Has(name string) bool {
	_, ok := h[name]
	return ok
}

func (h HParams) Int(name string) (int, error) {
	v, ok := h[name]
	if !ok {
		return 0, &MissingError{Name: name}
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, &TypeError{Name: name, Want: "int", Got: v}
}

func (h HParams) Float(name string) (float64, error) {
	v, ok := h[name]
	if !ok {
		return 0, &MissingError{Name: name}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, &TypeError{Name: name, Want: "float", Got: v}
}

func (h HParams) Bool(name string) (bool, error) {
	v, ok := h[name]
	if !ok {
		return false, &MissingError{Name: name}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Name: name, Want: "bool", Got: v}
	}
	return b, nil
}

func (h HParams) String(name string) (string, error) {
	v, ok := h[name]
	if !ok {
		return "", &MissingError{Name: name}
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Name: name, Want: "string", Got: v}
	}
	return s, nil
}

// Ints returns a copy of an integer sequence value.
func (h HParams) Ints(name string) ([]int, error) {
	v, ok := h[name]
	if !ok {
		return nil, &MissingError{Name: name}
	}
	ints, ok := v.([]int)
	if !ok {
		return nil, &TypeError{Name: name, Want: "[]int", Got: v}
	}
	return append([]int(nil), ints...), nil
}

func cloneValue(v any) any {
	switch s := v.(type) {
	case []int:
		return append([]int(nil), s...)
	case []float64:
		return append([]float64(nil), s...)
	case []string:
		return append([]string(nil), s...)
	}
	return v
}
