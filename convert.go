package hydra

import (
	"reflect"
	"strconv"
)

// assignableValue converts value so that it can be stored in a destination
// of type t. The second result is false when no lossless conversion exists;
// callers treat that as a silent skip.
func assignableValue(value interface{}, t reflect.Type) (reflect.Value, bool) {
	if isNil(value) {
		if canHoldNil(t) {
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		return rv, true
	}

	// *T destination fed with a T value
	if t.Kind() == reflect.Ptr {
		if elem, ok := assignableValue(value, t.Elem()); ok {
			p := reflect.New(t.Elem())
			p.Elem().Set(elem)
			return p, true
		}
		return reflect.Value{}, false
	}

	// T destination fed with a *T value
	if rv.Kind() == reflect.Ptr {
		return assignableValue(rv.Elem().Interface(), t)
	}

	switch {
	case isIntKind(t.Kind()):
		switch {
		case isIntKind(rv.Kind()):
			if !t.OverflowInt(rv.Int()) {
				return rv.Convert(t), true
			}
		case isUintKind(rv.Kind()):
			if u := rv.Uint(); u <= 1<<63-1 && !t.OverflowInt(int64(u)) {
				return rv.Convert(t), true
			}
		case rv.Kind() == reflect.String:
			if i, err := strconv.ParseInt(rv.String(), 10, 64); err == nil && !t.OverflowInt(i) {
				return reflect.ValueOf(i).Convert(t), true
			}
		}
	case isUintKind(t.Kind()):
		switch {
		case isIntKind(rv.Kind()):
			if i := rv.Int(); i >= 0 && !t.OverflowUint(uint64(i)) {
				return rv.Convert(t), true
			}
		case isUintKind(rv.Kind()):
			if !t.OverflowUint(rv.Uint()) {
				return rv.Convert(t), true
			}
		case rv.Kind() == reflect.String:
			if u, err := strconv.ParseUint(rv.String(), 10, 64); err == nil && !t.OverflowUint(u) {
				return reflect.ValueOf(u).Convert(t), true
			}
		}
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		switch {
		case isIntKind(rv.Kind()), isUintKind(rv.Kind()), rv.Kind() == reflect.Float32, rv.Kind() == reflect.Float64:
			return rv.Convert(t), true
		case rv.Kind() == reflect.String:
			if f, err := strconv.ParseFloat(rv.String(), 64); err == nil {
				return reflect.ValueOf(f).Convert(t), true
			}
		}
	case rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t):
		// named types sharing a kind, e.g. type Status string
		return rv.Convert(t), true
	}
	return reflect.Value{}, false
}

func canHoldNil(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
