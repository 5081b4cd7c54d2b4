package expr

import (
	"fmt"
	"math"
	"strconv"
)

// Truthy reports whether a value is true under ECMAScript boolean
// coercion: nil, false, 0, NaN, and "" are falsy, everything else is
// truthy (including empty slices and maps).
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

// Stringify renders a value the way text interpolation should: nil is
// empty, integral floats drop the fraction, everything else formats
// with fmt.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Items flattens an evaluated p-for collection into an indexable slice.
// Slices pass through, maps become their values (iteration order
// unspecified), and an integer n expands to [1..n], the range shorthand.
// Anything else yields nil.
func Items(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	case map[string]any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, item)
		}
		return out
	case int:
		return rangeItems(t)
	case int64:
		return rangeItems(int(t))
	case float64:
		return rangeItems(int(t))
	default:
		return nil
	}
}

func rangeItems(n int) []any {
	if n <= 0 {
		return nil
	}
	out := make([]any, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
