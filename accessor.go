package hydra

import (
	"reflect"
	"sync"
	"unicode"
	"unsafe"
)

// =====================================
// Accessor Tables
// =====================================

// accessorCache holds one accessorTable per entity pointer type.
var accessorCache sync.Map // map[reflect.Type]*accessorTable

// accessorTable binds field names to methods and struct fields of one type.
// Bindings are resolved the first time a name is used and reused afterwards.
type accessorTable struct {
	typ    reflect.Type // pointer to struct
	fields sync.Map     // name + goName -> *fieldAccessor
}

// fieldAccessor is the resolved binding of one field name.
// A nil method or field index means the binding does not exist.
type fieldAccessor struct {
	name    string
	getter  *reflect.Method
	setter  *reflect.Method
	adder   *reflect.Method
	remover *reflect.Method
	index   []int
	field   reflect.Type
}

func accessorsFor(t reflect.Type) *accessorTable {
	if t.Kind() != reflect.Ptr {
		t = reflect.PtrTo(t)
	}
	if cached, ok := accessorCache.Load(t); ok {
		return cached.(*accessorTable)
	}
	table, _ := accessorCache.LoadOrStore(t, &accessorTable{typ: t})
	return table.(*accessorTable)
}

// field returns the binding for name. goName is the struct field name
// recorded in metadata, or "" to derive it from name.
func (a *accessorTable) field(name, goName string) *fieldAccessor {
	key := name + "\x00" + goName
	if cached, ok := a.fields.Load(key); ok {
		return cached.(*fieldAccessor)
	}
	resolved, _ := a.fields.LoadOrStore(key, a.resolve(name, goName))
	return resolved.(*fieldAccessor)
}

func (a *accessorTable) resolve(name, goName string) *fieldAccessor {
	fa := &fieldAccessor{name: name}
	candidates := nameCandidates(name, goName)

	for _, c := range candidates {
		// a field named isActive resolves its bare IsActive method here
		if fa.getter == nil {
			fa.getter = a.method(0, 1, "Get"+c, c, "Is"+c)
		}
		if fa.setter == nil {
			fa.setter = a.method(1, -1, "Set"+c)
		}
		if fa.adder == nil {
			fa.adder = a.method(1, -1, "Add"+c)
		}
		if fa.remover == nil {
			fa.remover = a.method(1, -1, "Remove"+c)
		}
	}

	st := a.typ.Elem()
	lookups := append([]string{goName, name}, candidates...)
	for _, n := range lookups {
		if n == "" {
			continue
		}
		if sf, ok := st.FieldByName(n); ok {
			fa.index = sf.Index
			fa.field = sf.Type
			break
		}
	}
	return fa
}

// method returns the first named method taking numIn arguments and
// returning numOut values (-1 for any).
func (a *accessorTable) method(numIn, numOut int, names ...string) *reflect.Method {
	for _, n := range names {
		m, ok := a.typ.MethodByName(n)
		if !ok {
			continue
		}
		// In(0) is the receiver
		if m.Type.NumIn() != numIn+1 {
			continue
		}
		if numOut >= 0 && m.Type.NumOut() != numOut {
			continue
		}
		return &m
	}
	return nil
}

// nameCandidates lists the exported names tried for a field: the
// classified name, its Go initialism form and the struct field name.
func nameCandidates(name, goName string) []string {
	candidates := []string{classify(name)}
	for _, c := range []string{goExported(name), goName} {
		if c == "" || !isExportedName(c) {
			continue
		}
		seen := false
		for _, existing := range candidates {
			seen = seen || existing == c
		}
		if !seen {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

func isExportedName(name string) bool {
	r := []rune(name)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

// =====================================
// By-value access
// =====================================

func (fa *fieldAccessor) hasGetter() bool { return fa.getter != nil }
func (fa *fieldAccessor) hasSetter() bool { return fa.setter != nil }
func (fa *fieldAccessor) hasField() bool  { return fa.index != nil }

// get calls the getter on obj.
func (fa *fieldAccessor) get(obj reflect.Value) (interface{}, bool) {
	if fa.getter == nil {
		return nil, false
	}
	out := fa.getter.Func.Call([]reflect.Value{obj})
	return out[0].Interface(), true
}

// setterAccepts converts value for the setter's parameter.
func (fa *fieldAccessor) setterAccepts(value interface{}) (reflect.Value, bool) {
	if fa.setter == nil {
		return reflect.Value{}, false
	}
	return assignableValue(value, fa.setter.Type.In(1))
}

// set calls the setter with value. It reports false when there is no
// setter or the value cannot be converted to its parameter type.
func (fa *fieldAccessor) set(obj reflect.Value, value interface{}) (bool, error) {
	arg, ok := fa.setterAccepts(value)
	if !ok {
		return false, nil
	}
	return true, callResult(fa.setter.Func.Call([]reflect.Value{obj, arg}))
}

// callResult returns the trailing error result of a method call, if any.
func callResult(out []reflect.Value) error {
	if len(out) == 0 {
		return nil
	}
	last := out[len(out)-1]
	if last.Type() == errorType && !last.IsNil() {
		return last.Interface().(error)
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// callCollection passes elements to an adder or remover. The method may take
// a variadic list, a slice, a collection pointer or a single element, in
// which case it is called once per element.
func callCollection(obj reflect.Value, m *reflect.Method, elements []interface{}) error {
	param := m.Type.In(1)

	if m.Type.IsVariadic() {
		slice, err := buildSlice(param, elements)
		if err != nil {
			return err
		}
		return callResult(m.Func.CallSlice([]reflect.Value{obj, slice}))
	}

	switch {
	case param.Kind() == reflect.Slice && !isElementOf(elements, param):
		slice, err := buildSlice(param, elements)
		if err != nil {
			return err
		}
		return callResult(m.Func.Call([]reflect.Value{obj, slice}))
	case param.Kind() == reflect.Ptr && param.Implements(elementCollectionType):
		c := reflect.New(param.Elem())
		ec := c.Interface().(ElementCollection)
		for _, e := range elements {
			if err := ec.AddElement(e); err != nil {
				return err
			}
		}
		return callResult(m.Func.Call([]reflect.Value{obj, c}))
	}

	for _, e := range elements {
		arg, ok := assignableValue(e, param)
		if !ok {
			return NewError(ErrorTypeInvalidArgument, "cannot pass "+typeName(e)+" to "+m.Name)
		}
		if err := callResult(m.Func.Call([]reflect.Value{obj, arg})); err != nil {
			return err
		}
	}
	return nil
}

var elementCollectionType = reflect.TypeOf((*ElementCollection)(nil)).Elem()

// isElementOf reports whether the elements are themselves slices of type t,
// in which case t is the element type and not a batch parameter.
func isElementOf(elements []interface{}, t reflect.Type) bool {
	return len(elements) > 0 && elements[0] != nil && reflect.TypeOf(elements[0]) == t
}

func buildSlice(t reflect.Type, elements []interface{}) (reflect.Value, error) {
	slice := reflect.MakeSlice(t, 0, len(elements))
	for _, e := range elements {
		v, ok := assignableValue(e, t.Elem())
		if !ok {
			return reflect.Value{}, NewError(ErrorTypeInvalidArgument,
				"cannot add "+typeName(e)+" to "+t.String())
		}
		slice = reflect.Append(slice, v)
	}
	return slice, nil
}

func typeName(v interface{}) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// =====================================
// By-reference access
// =====================================

// fieldValue returns the struct field backing the binding, made settable
// even when unexported.
func (fa *fieldAccessor) fieldValue(obj reflect.Value) (reflect.Value, bool) {
	if fa.index == nil {
		return reflect.Value{}, false
	}
	f, err := obj.Elem().FieldByIndexErr(fa.index)
	if err != nil {
		// nil embedded pointer on the path
		return reflect.Value{}, false
	}
	if !f.CanSet() {
		f = reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
	}
	return f, true
}

// read returns the raw field value.
func (fa *fieldAccessor) read(obj reflect.Value) (interface{}, bool) {
	f, ok := fa.fieldValue(obj)
	if !ok {
		return nil, false
	}
	return f.Interface(), true
}

// fieldAccepts converts value for the struct field.
func (fa *fieldAccessor) fieldAccepts(value interface{}) (reflect.Value, bool) {
	if fa.index == nil {
		return reflect.Value{}, false
	}
	return assignableValue(value, fa.field)
}

// write stores value in the struct field and reports whether it could.
func (fa *fieldAccessor) write(obj reflect.Value, value interface{}) bool {
	v, ok := fa.fieldAccepts(value)
	if !ok {
		return false
	}
	f, ok := fa.fieldValue(obj)
	if !ok {
		return false
	}
	f.Set(v)
	return true
}
