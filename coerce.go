package hydra

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
)

// =====================================
// Type Coercion
// =====================================

// Coerce converts a raw value into the native representation of fieldType.
//
//   - nil is returned unchanged for every type
//   - boolean gives bool, string/text/bigint/decimal give string
//   - integer/smallint give int64, float gives float64
//   - date/datetime/datetimetz/time give time.Time; "" gives nil, integers
//     and floats (json.Number too) are Unix timestamps, malformed strings
//     fail with a parse error
//   - guid gives uuid.UUID
//
// Unknown types pass the value through.
func Coerce(value interface{}, fieldType FieldType) (interface{}, error) {
	if isNil(value) {
		return nil, nil
	}

	switch fieldType {
	case TypeBoolean:
		return toBool(value), nil
	case TypeString, TypeText, TypeBigInt, TypeDecimal:
		return toString(value), nil
	case TypeInteger, TypeSmallInt:
		return toInt(value), nil
	case TypeFloat:
		return toFloat(value), nil
	case TypeDate, TypeDateTime, TypeDateTimeTZ, TypeTime:
		return toTime(value, fieldType)
	case TypeGUID:
		return toUUID(value)
	}
	return value, nil
}

func parseError(value interface{}, fieldType FieldType, cause error) Error {
	return NewErrorWithCause(ErrorTypeParse, fmt.Sprintf("cannot convert %v to %s", value, fieldType), cause)
}

func toBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if v == "" || v == "0" {
			return false
		}
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		return true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String:
		return toBool(rv.String())
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return toBool(rv.Elem().Interface())
	}
	return true
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.String:
		return rv.String()
	case reflect.Ptr:
		return toString(rv.Elem().Interface())
	}
	return fmt.Sprint(value)
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// parseNumericPrefix reads the leading number of s, ignoring leading
// whitespace. Strings without one give 0.
func parseNumericPrefix(s string) (int64, float64, bool) {
	match := numericPrefix.FindString(strings.TrimLeft(s, " \t\n\r\v\f"))
	if match == "" {
		return 0, 0, false
	}
	if i, err := strconv.ParseInt(match, 10, 64); err == nil {
		return i, float64(i), true
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil && !math.IsInf(f, 0) {
		return 0, 0, false
	}
	return truncate(f), f, true
}

func truncate(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func toInt(value interface{}) int64 {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		i, _, _ := parseNumericPrefix(v)
		return i
	case []byte:
		i, _, _ := parseNumericPrefix(string(v))
		return i
	case time.Time:
		return v.Unix()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(u)
	case reflect.Float32, reflect.Float64:
		return truncate(rv.Float())
	case reflect.String:
		return toInt(rv.String())
	case reflect.Ptr:
		return toInt(rv.Elem().Interface())
	}
	if toBool(value) {
		return 1
	}
	return 0
}

func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		_, f, _ := parseNumericPrefix(v)
		return f
	case []byte:
		_, f, _ := parseNumericPrefix(string(v))
		return f
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return toFloat(rv.String())
	case reflect.Ptr:
		return toFloat(rv.Elem().Interface())
	}
	return float64(toInt(value))
}

func toTime(value interface{}, fieldType FieldType) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		return *v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return time.Unix(i, 0), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, parseError(value, fieldType, err)
		}
		return unixFloat(f), nil
	case string:
		if v == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, nil
		}
		t, err := now.Parse(v)
		if err != nil {
			return nil, parseError(value, fieldType, err)
		}
		return t, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Unix(rv.Int(), 0), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return time.Unix(int64(rv.Uint()), 0), nil
	case reflect.Float32, reflect.Float64:
		return unixFloat(rv.Float()), nil
	case reflect.String:
		return toTime(rv.String(), fieldType)
	}
	return value, nil
}

// unixFloat reads f as Unix seconds; decoded JSON numbers arrive as float64.
func unixFloat(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9)))
}

func toUUID(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, parseError(value, TypeGUID, err)
		}
		return id, nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return nil, parseError(value, TypeGUID, err)
		}
		return id, nil
	}
	return value, nil
}

// isNil reports whether v is nil or a nil pointer, map, slice or interface.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
