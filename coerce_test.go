package hydra

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceNilIsUnchanged(t *testing.T) {
	types := []FieldType{
		TypeBoolean, TypeString, TypeText, TypeBigInt, TypeDecimal, TypeInteger,
		TypeSmallInt, TypeFloat, TypeDate, TypeDateTime, TypeDateTimeTZ, TypeTime, TypeGUID, "custom",
	}
	for _, ft := range types {
		out, err := Coerce(nil, ft)
		require.NoError(t, err, ft)
		assert.Nil(t, out, ft)
	}
}

func TestCoerceScalars(t *testing.T) {
	tests := []struct {
		name      string
		value     interface{}
		fieldType FieldType
		expected  interface{}
	}{
		{"bool from bool", true, TypeBoolean, true},
		{"bool from one", 1, TypeBoolean, true},
		{"bool from zero", 0, TypeBoolean, false},
		{"bool from empty string", "", TypeBoolean, false},
		{"bool from zero string", "0", TypeBoolean, false},
		{"bool from false string", "false", TypeBoolean, false},
		{"bool from word", "yes", TypeBoolean, true},
		{"bool from empty slice", []int{}, TypeBoolean, false},
		{"string from int", 42, TypeString, "42"},
		{"string from float", 1.5, TypeString, "1.5"},
		{"string from bool", true, TypeString, "true"},
		{"text from bytes", []byte("hi"), TypeText, "hi"},
		{"bigint from int64", int64(9007199254740993), TypeBigInt, "9007199254740993"},
		{"decimal from float", 10.25, TypeDecimal, "10.25"},
		{"integer from string", "12", TypeInteger, int64(12)},
		{"integer from numeric prefix", "12abc", TypeInteger, int64(12)},
		{"integer from garbage", "abc", TypeInteger, int64(0)},
		{"integer from float", 3.9, TypeInteger, int64(3)},
		{"integer from negative float", -3.9, TypeInteger, int64(-3)},
		{"integer from bool", true, TypeInteger, int64(1)},
		{"smallint from uint8", uint8(7), TypeSmallInt, int64(7)},
		{"float from string", "2.5", TypeFloat, 2.5},
		{"float from exponent", "1e3", TypeFloat, 1000.0},
		{"float from int", 2, TypeFloat, 2.0},
		{"unknown type passes through", struct{}{}, "custom", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Coerce(tt.value, tt.fieldType)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestCoerceTemporal(t *testing.T) {
	for _, ft := range []FieldType{TypeDate, TypeDateTime, TypeDateTimeTZ, TypeTime} {
		assert.True(t, ft.IsTemporal())

		out, err := Coerce("", ft)
		require.NoError(t, err)
		assert.Nil(t, out, "empty string gives nil for %s", ft)

		out, err = Coerce(1700000000, ft)
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000), out.(time.Time).Unix())

		out, err = Coerce(float64(1700000000), ft)
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000), out.(time.Time).Unix(), "decoded JSON numbers are Unix timestamps")

		out, err = Coerce(json.Number("1700000000"), ft)
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000), out.(time.Time).Unix())

		_, err = Coerce("not-a-date", ft)
		require.Error(t, err)
		assert.True(t, IsParse(err))
	}
	assert.False(t, TypeString.IsTemporal())

	when := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	out, err := Coerce(when, TypeDateTime)
	require.NoError(t, err)
	assert.Equal(t, when, out)

	out, err = Coerce(&when, TypeDateTime)
	require.NoError(t, err)
	assert.Equal(t, when, out)

	out, err = Coerce(1700000000.25, TypeDateTime)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, time.Duration(out.(time.Time).Nanosecond()))

	_, err = Coerce(json.Number("soon"), TypeDateTime)
	assert.True(t, IsParse(err))

	out, err = Coerce("2023-11-14 22:13:20", TypeDateTime)
	require.NoError(t, err)
	parsed := out.(time.Time)
	assert.Equal(t, 2023, parsed.Year())
	assert.Equal(t, 22, parsed.Hour())
}

func TestCoerceGUID(t *testing.T) {
	id := uuid.New()

	out, err := Coerce(id.String(), TypeGUID)
	require.NoError(t, err)
	assert.Equal(t, id, out)

	out, err = Coerce(id[:], TypeGUID)
	require.NoError(t, err)
	assert.Equal(t, id, out)

	out, err = Coerce(id, TypeGUID)
	require.NoError(t, err)
	assert.Equal(t, id, out)

	_, err = Coerce("not-a-uuid", TypeGUID)
	assert.True(t, IsParse(err))
}

func TestAssignableValue(t *testing.T) {
	type status string
	var (
		intType    = reflect.TypeOf(0)
		int8Type   = reflect.TypeOf(int8(0))
		uintType   = reflect.TypeOf(uint(0))
		floatType  = reflect.TypeOf(float32(0))
		strPtrType = reflect.TypeOf((*string)(nil))
		statusType = reflect.TypeOf(status(""))
		stringType = reflect.TypeOf("")
		anyType    = reflect.TypeOf((*interface{})(nil)).Elem()
		sliceType  = reflect.TypeOf([]int(nil))
	)

	tests := []struct {
		name     string
		value    interface{}
		target   reflect.Type
		expected interface{}
		ok       bool
	}{
		{"int64 to int", int64(5), intType, 5, true},
		{"overflowing int8", 300, int8Type, nil, false},
		{"negative to uint", -1, uintType, nil, false},
		{"string to int", "17", intType, 17, true},
		{"bad string to int", "x", intType, nil, false},
		{"int to float32", 2, floatType, float32(2), true},
		{"named string", "open", statusType, status("open"), true},
		{"int to string", 5, stringType, nil, false},
		{"nil to pointer", nil, strPtrType, (*string)(nil), true},
		{"nil to int", nil, intType, nil, false},
		{"nil to slice", nil, sliceType, []int(nil), true},
		{"anything to interface", 1.5, anyType, 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := assignableValue(tt.value, tt.target)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, out.Interface())
			}
		})
	}

	v, ok := assignableValue("x", strPtrType)
	require.True(t, ok)
	assert.Equal(t, "x", *(v.Interface().(*string)))

	s := "y"
	v, ok = assignableValue(&s, stringType)
	require.True(t, ok)
	assert.Equal(t, "y", v.Interface())
}
