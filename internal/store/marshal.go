package store

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/rxflow/internal/ir"
)

// EncodeValue renders a runtime value as JSON text for storage.
//
// Integers, strings, booleans, slices and string-keyed maps go through
// ir.MarshalCanonical so equal values always encode identically. Values
// canonical JSON rejects (floats, structs) fall back to encoding/json, and
// anything json cannot encode is stored as its quoted %v rendering.
func EncodeValue(v any) string {
	if data, err := ir.MarshalCanonical(canonicalize(v)); err == nil {
		return string(data)
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return strconv.Quote(fmt.Sprint(v))
}

// DecodeValue parses stored JSON text. Numbers come back as json.Number so
// int64 values beyond 2^53 survive the round trip.
func DecodeValue(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// canonicalize widens sized integers to int64 and recurses into slices and
// maps. Other values are returned unchanged.
func canonicalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int64:
		return v
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x)
		}
		return v
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return v
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonicalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = canonicalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = canonicalize(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
