package condition

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strings"

	automationrules "crm-backend/lib/automation/rules"
)

// Evaluate reports whether cond holds for the current entity snapshot.
// It never panics: unknown or malformed conditions evaluate to false.
func Evaluate(cond automationrules.Condition, current, previous map[string]any) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			result = false
		}
	}()
	switch c := cond.(type) {
	case nil, automationrules.Always:
		return true
	case automationrules.FieldCompare:
		return evaluateCompare(c, current)
	default:
		return false
	}
}

func evaluateCompare(c automationrules.FieldCompare, current map[string]any) bool {
	actual, found := ResolvePath(current, c.Field)
	switch c.Op {
	case automationrules.OpEquals:
		return found && strictEqual(actual, c.Value)
	case automationrules.OpNotEquals:
		return !(found && strictEqual(actual, c.Value))
	case automationrules.OpIn:
		members, ok := asSequence(c.Value)
		if !ok || !found {
			return false
		}
		return contains(members, actual)
	case automationrules.OpNotIn:
		members, ok := asSequence(c.Value)
		if !ok {
			return false
		}
		return !found || !contains(members, actual)
	default:
		return false
	}
}

// ResolvePath walks a dot separated path through nested maps.
// A missing segment is reported as not found, never as an error.
func ResolvePath(obj map[string]any, path string) (any, bool) {
	if obj == nil || path == "" {
		return nil, false
	}
	var current any = obj
	for _, segment := range strings.Split(path, ".") {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(node any, key string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		value, ok := n[key]
		return value, ok
	case map[string]string:
		value, ok := n[key]
		return value, ok
	}
	rv := reflect.ValueOf(node)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		value := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	}
	return nil, false
}

// strictEqual compares type and value. Numbers are compared by value since the
// stored condition always carries JSON numbers. Integers compare exactly, also
// beyond the float64 mantissa.
func strictEqual(actual, expected any) bool {
	if a, ok := toNumber(actual); ok {
		e, ok := toNumber(expected)
		if !ok {
			return false
		}
		if ai, ok := toInteger(actual); ok {
			if ei, ok := toInteger(expected); ok {
				return ai.Cmp(ei) == 0
			}
		}
		return a == e
	}
	if _, ok := toNumber(expected); ok {
		return false
	}
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return reflect.DeepEqual(actual, expected)
}

func contains(members []any, value any) bool {
	for _, member := range members {
		if strictEqual(value, member) {
			return true
		}
	}
	return false
}

func asSequence(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if list, ok := value.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is a raw value, not a list of members
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	result := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		result[i] = rv.Index(i).Interface()
	}
	return result, true
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// toInteger returns the exact integer value. Floats qualify only when integral.
func toInteger(value any) (*big.Int, bool) {
	switch v := value.(type) {
	case json.Number:
		return new(big.Int).SetString(v.String(), 10)
	case float32:
		return floatInteger(float64(v))
	case float64:
		return floatInteger(v)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), true
	}
	return nil, false
}

func floatInteger(f float64) (*big.Int, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) || math.Trunc(f) != f {
		return nil, false
	}
	n, _ := big.NewFloat(f).Int(nil)
	return n, true
}
