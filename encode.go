package otxhook

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/attribute"
)

// maxEncodeDepth bounds how deep a value graph is walked before encoding.
const maxEncodeDepth = 128

var (
	errCyclic  = errors.New("cyclic value")
	errTooDeep = errors.New("value nested too deeply")
)

// jsonAPI is the canonical encoder: struct fields keep declaration order and
// map keys are sorted, matching encoding/json output byte for byte.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode converts a captured value into a span attribute value.
//
// Booleans, integers, floats and strings (including named types of those
// kinds) are stored as-is. Everything else is serialized to canonical JSON.
// When serialization fails, for instance on a cyclic pointer graph or a
// channel, Encode returns a placeholder string value together with an error
// wrapping ErrEncoding; callers attach the placeholder and carry on.
func Encode(v any) (attribute.Value, error) {
	if val, ok := encodeScalar(v); ok {
		return val, nil
	}

	if err := checkGraph(reflect.ValueOf(v), nil, 0); err != nil {
		return placeholder(err), fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	data, err := jsonAPI.Marshal(v)
	if err != nil {
		return placeholder(err), fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return attribute.StringValue(string(data)), nil
}

func encodeScalar(v any) (attribute.Value, bool) {
	switch x := v.(type) {
	case bool:
		return attribute.BoolValue(x), true
	case string:
		return attribute.StringValue(x), true
	case int:
		return attribute.IntValue(x), true
	case int64:
		return attribute.Int64Value(x), true
	case float64:
		return attribute.Float64Value(x), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return attribute.BoolValue(rv.Bool()), true
	case reflect.String:
		return attribute.StringValue(rv.String()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return attribute.Int64Value(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return attribute.StringValue(fmt.Sprintf("%d", u)), true
		}

		return attribute.Int64Value(int64(u)), true
	case reflect.Float32, reflect.Float64:
		return attribute.Float64Value(rv.Float()), true
	default:
		return attribute.Value{}, false
	}
}

// checkGraph walks v looking for reference cycles, which the JSON encoder
// would otherwise follow until the stack is exhausted. path holds the
// references on the current walk, not every reference seen, so shared
// (acyclic) substructures are accepted.
// ref identifies a reference on the walk. A struct and its first field, or an
// array and a slice of it, share an address, so the type is part of the key.
type ref struct {
	addr uintptr
	typ  reflect.Type
}

func checkGraph(v reflect.Value, path []ref, depth int) error {
	if depth > maxEncodeDepth {
		return errTooDeep
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}

		return checkGraph(v.Elem(), path, depth+1)
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil
		}
		r := ref{addr: v.Pointer(), typ: v.Type()}
		for _, p := range path {
			if p == r && (v.Kind() != reflect.Slice || v.Len() > 0) {
				return errCyclic
			}
		}
		path = append(path, r)

		switch v.Kind() {
		case reflect.Pointer:
			return checkGraph(v.Elem(), path, depth+1)
		case reflect.Map:
			iter := v.MapRange()
			for iter.Next() {
				if err := checkGraph(iter.Value(), path, depth+1); err != nil {
					return err
				}
			}
		default:
			return checkElems(v, path, depth)
		}
	case reflect.Array:
		return checkElems(v, path, depth)
	case reflect.Struct:
		t := v.Type()
		for i := range v.NumField() {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := checkGraph(v.Field(i), path, depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkElems(v reflect.Value, path []ref, depth int) error {
	switch v.Type().Elem().Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	}

	for i := range v.Len() {
		if err := checkGraph(v.Index(i), path, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func placeholder(err error) attribute.Value {
	return attribute.StringValue("[unencodable: " + err.Error() + "]")
}
