package ir

import (
	"fmt"
	"reflect"
)

// implicitNumeric lists the lossless-by-convention numeric widenings.
var implicitNumeric = map[string][]*Type{
	"int8":    {Int16, Int32, Int64, Float32, Float64},
	"uint8":   {Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64},
	"int16":   {Int32, Int64, Float32, Float64},
	"uint16":  {Int32, Uint32, Int64, Uint64, Float32, Float64},
	"int32":   {Int64, Float32, Float64},
	"uint32":  {Int64, Uint64, Float32, Float64},
	"int64":   {Float32, Float64},
	"uint64":  {Float32, Float64},
	"float32": {Float64},
}

// IsPrimitive reports whether t is one of the predefined value types.
func IsPrimitive(t *Type) bool {
	if t == nil || t.Kind != KindNamed {
		return false
	}
	p, ok := primitives[t.Name]
	return ok && p.Kind == KindNamed && t.Name != Object.Name
}

// IsNumeric reports whether t is a numeric primitive.
func IsNumeric(t *Type) bool {
	if !IsPrimitive(t) {
		return false
	}
	switch t.Name {
	case "int8", "uint8", "int16", "uint16", "int32", "uint32", "int64", "uint64", "float32", "float64":
		return true
	}
	return false
}

// HasNumericConversion reports whether from widens implicitly to to.
func HasNumericConversion(from, to *Type) bool {
	if from == nil || to == nil || from.Kind != KindNamed || to.Kind != KindNamed {
		return false
	}
	for _, t := range implicitNumeric[from.Name] {
		if t.Name == to.Name {
			return true
		}
	}
	return false
}

// IsAssignable reports whether a value of type from can be used where to is
// expected without conversion: identity, base-type chain, implemented
// interfaces, or a covariant generic whose arguments are assignable.
func IsAssignable(from, to *Type) bool {
	if Equal(from, to) {
		return true
	}
	if from == nil || to == nil || from.Kind == KindVoid || to.Kind == KindVoid {
		return false
	}
	if Equal(to, Object) {
		return true
	}
	for cur := BaseOf(from); cur != nil; cur = BaseOf(cur) {
		if Equal(cur, to) {
			return true
		}
	}
	if (to.Kind == KindNamed && to.Interface) || to.IsGenericInstance() {
		for _, iface := range AllInterfaces(from) {
			if Equal(iface, to) || covariantAssignable(iface, to) {
				return true
			}
		}
	}
	return covariantAssignable(from, to)
}

func covariantAssignable(from, to *Type) bool {
	if !from.IsGenericInstance() || !to.IsGenericInstance() || from.Def.Name != to.Def.Name || !to.Def.Covariant {
		return false
	}
	for i := range from.Args {
		if !IsAssignable(from.Args[i], to.Args[i]) {
			return false
		}
	}
	return true
}

// HasImplicitConversion reports whether from converts implicitly to to:
// assignability, numeric widening, or an Observable whose element type
// converts implicitly.
func HasImplicitConversion(from, to *Type) bool {
	if IsAssignable(from, to) || HasNumericConversion(from, to) {
		return true
	}
	if from.IsInstanceOf(ObservableDef) && to.IsInstanceOf(ObservableDef) {
		return HasImplicitConversion(from.Args[0], to.Args[0])
	}
	return false
}

// ConvertValue converts a runtime value to the representation of type to.
// Values already of the right representation, and conversions to
// non-primitive types, are returned unchanged.
func ConvertValue(v any, to *Type) (any, error) {
	if !IsNumeric(to) {
		if Equal(to, String) {
			if s, ok := v.(string); ok {
				return s, nil
			}
			return fmt.Sprint(v), nil
		}
		return v, nil
	}
	rv := reflect.ValueOf(v)
	var (
		i     int64
		u     uint64
		f     float64
		isInt bool
		isU   bool
	)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, isInt = rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, isU = rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		f = rv.Float()
	default:
		return nil, fmt.Errorf("cannot convert %T to %s", v, to)
	}
	asFloat := func() float64 {
		switch {
		case isInt:
			return float64(i)
		case isU:
			return float64(u)
		}
		return f
	}
	asInt := func() int64 {
		switch {
		case isInt:
			return i
		case isU:
			return int64(u)
		}
		return int64(f)
	}
	switch to.Name {
	case "int8":
		return int8(asInt()), nil
	case "uint8":
		return uint8(asInt()), nil
	case "int16":
		return int16(asInt()), nil
	case "uint16":
		return uint16(asInt()), nil
	case "int32":
		return int32(asInt()), nil
	case "uint32":
		return uint32(asInt()), nil
	case "int64":
		return asInt(), nil
	case "uint64":
		if isU {
			return u, nil
		}
		return uint64(asInt()), nil
	case "float32":
		return float32(asFloat()), nil
	default:
		return asFloat(), nil
	}
}

// TypeOf infers the element type of a runtime constant.
func TypeOf(v any) *Type {
	switch v.(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int, int64:
		return Int64
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	case string:
		return String
	case bool:
		return Bool
	case struct{}:
		return Unit
	}
	return Object
}
