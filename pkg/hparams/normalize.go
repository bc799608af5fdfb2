package hparams

import "math"

// Normalize converts values produced by a YAML or JSON decoder into the value
// types HParams carries. Lists become []int when every element is integral,
// []float64 when every element is numeric, []string when every element is text.
func Normalize(raw map[string]any) (HParams, error) {
	out := make(HParams, len(raw))
	for k, v := range raw {
		nv, err := normalizeValue(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(name string, v any) (any, error) {
	switch t := v.(type) {
	case int, float64, bool, string, []int, []float64, []string:
		return cloneValue(t), nil
	case int64:
		return int(t), nil
	case int32:
		return int(t), nil
	case float32:
		return float64(t), nil
	case []any:
		return normalizeList(name, t)
	}
	return nil, &TypeError{Name: name, Want: "scalar or list", Got: v}
}

func normalizeList(name string, list []any) (any, error) {
	if len(list) == 0 {
		return []int{}, nil
	}

	allInt, allNum, allStr := true, true, true
	for _, e := range list {
		switch n := e.(type) {
		case int, int64:
			allStr = false
		case float64:
			allStr = false
			if n != math.Trunc(n) {
				allInt = false
			}
		case string:
			allInt, allNum = false, false
		default:
			return nil, &TypeError{Name: name, Want: "list of numbers or strings", Got: e}
		}
	}

	switch {
	case allInt && allNum:
		ints := make([]int, len(list))
		for i, e := range list {
			switch n := e.(type) {
			case int:
				ints[i] = n
			case int64:
				ints[i] = int(n)
			case float64:
				ints[i] = int(n)
			}
		}
		return ints, nil
	case allNum:
		floats := make([]float64, len(list))
		for i, e := range list {
			switch n := e.(type) {
			case int:
				floats[i] = float64(n)
			case int64:
				floats[i] = float64(n)
			case float64:
				floats[i] = n
			}
		}
		return floats, nil
	case allStr:
		strs := make([]string, len(list))
		for i, e := range list {
			strs[i] = e.(string)
		}
		return strs, nil
	}
	return nil, &TypeError{Name: name, Want: "homogeneous list", Got: list}
}
