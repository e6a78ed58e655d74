package hydra

import (
	"context"
	"reflect"
)

// =====================================
// Association Resolution
// =====================================

// ResolveSingle resolves a to-one association value into an entity of the
// target struct type.
//
// An entity of the target type is returned as is. A Record whose keys are
// not exactly the target's identifier fields is treated as nested data:
// the stored entity matching its identifiers, or a new one, is hydrated
// with it. Anything else is an identifier passed to Find.
func (h *Hydrator) ResolveSingle(ctx context.Context, target reflect.Type, value interface{}) (interface{}, error) {
	return h.resolveSingle(ctx, indirectType(target), value)
}

// Find returns the stored entity of the target struct type with the given
// identifier. Null identifiers, including Records and slices holding only
// nil values, return nil without querying the store.
func (h *Hydrator) Find(ctx context.Context, id interface{}, target reflect.Type) (interface{}, error) {
	return h.find(ctx, id, indirectType(target))
}

func (h *Hydrator) resolveSingle(ctx context.Context, target reflect.Type, value interface{}) (interface{}, error) {
	if isInstance(value, target) {
		return value, nil
	}

	if data, ok := toRecord(value); ok {
		info, err := h.meta.MetadataFor(target)
		if err != nil {
			return nil, err
		}
		if !sameKeys(data, info.Identifier) {
			ids := make(Record, len(info.Identifier))
			for _, name := range info.Identifier {
				if v, ok := data[name]; ok {
					ids[name] = v
				}
			}
			entity, err := h.find(ctx, ids, target)
			if err != nil {
				return nil, err
			}
			if entity == nil {
				entity = reflect.New(target).Interface()
			}
			return h.hydrate(ctx, data, entity, false)
		}
	}

	return h.find(ctx, value, target)
}

func (h *Hydrator) find(ctx context.Context, id interface{}, target reflect.Type) (interface{}, error) {
	if isInstance(id, target) {
		return id, nil
	}
	if isNullIdentifier(id) {
		return nil, nil
	}
	if h.store == nil {
		h.logger.Debug("hydra: no entity store, lookup skipped", "entity", target.Name())
		return nil, nil
	}

	entity, err := h.store.Find(ctx, target, id)
	if err != nil {
		return nil, err
	}
	if isNil(entity) {
		return nil, nil
	}
	return entity, nil
}

// toMany turns an incoming collection value into entities of the target
// struct type, ready to be reconciled. held maps identifier keys to the
// members the collection already holds; a stored entity matching one of
// them is replaced by the held instance.
func (h *Hydrator) toMany(ctx context.Context, target reflect.Type, values interface{}, held map[string]interface{}) ([]interface{}, error) {
	info, err := h.meta.MetadataFor(target)
	if err != nil {
		return nil, err
	}

	var out []interface{}
	for _, element := range normalizeElements(values) {
		if isInstance(element, target) {
			out = append(out, element)
			continue
		}
		if isEmpty(element) {
			entity, err := h.find(ctx, element, target)
			if err != nil {
				return nil, err
			}
			if entity != nil {
				out = append(out, entity)
			}
			continue
		}

		data, isRecord := toRecord(element)
		if isRecord {
			data = copyRecord(data)
		}

		lookup := make(Record, len(info.Identifier))
		for _, name := range info.Identifier {
			switch {
			case isRecord:
				if v, ok := data[name]; ok && !isLooselyNull(v) {
					lookup[name] = v
					delete(data, name)
				}
			case isStructPointer(element):
				if v, ok := readIdentifier(element, info, name); ok {
					lookup[name] = v
				}
			default:
				lookup[name] = element
			}
		}

		var found interface{}
		if len(lookup) > 0 {
			if found, err = h.find(ctx, lookup, target); err != nil {
				return nil, err
			}
			if key, ok := memberKey(info, found); ok && held[key] != nil {
				found = held[key]
			}
		}

		var entity interface{}
		switch {
		case found != nil && isRecord:
			entity, err = h.hydrate(ctx, data, found, false)
		case found != nil:
			entity = found
		case isRecord:
			entity, err = h.hydrate(ctx, data, reflect.New(target).Interface(), false)
		default:
			entity = reflect.New(target).Interface()
		}
		if err != nil {
			return nil, err
		}
		if !isNil(entity) {
			out = append(out, entity)
		}
	}
	return out, nil
}

// normalizeElements turns a collection value into a slice. A Record or a
// scalar becomes a single element.
func normalizeElements(values interface{}) []interface{} {
	if isNil(values) {
		return nil
	}
	if _, ok := values.([]byte); ok {
		return []interface{}{values}
	}
	if _, ok := toRecord(values); ok {
		return []interface{}{values}
	}
	if elements, ok := elementsOf(values); ok {
		return elements
	}
	return []interface{}{values}
}

// readIdentifier reads an identifier field off an element through its
// getter or its exported field.
func readIdentifier(element interface{}, info *EntityInfo, name string) (interface{}, bool) {
	rv := reflect.ValueOf(element)
	fa := accessorsFor(rv.Type()).field(name, info.goName(name))
	if v, ok := fa.get(rv); ok {
		return v, true
	}
	if fa.index == nil {
		return nil, false
	}
	sf := rv.Type().Elem().FieldByIndex(fa.index)
	if !sf.IsExported() {
		return nil, false
	}
	return fa.read(rv)
}

func isInstance(v interface{}, target reflect.Type) bool {
	if v == nil || target == nil {
		return false
	}
	t := reflect.TypeOf(v)
	return t.Kind() == reflect.Ptr && t.Elem() == target && !reflect.ValueOf(v).IsNil()
}

func isStructPointer(v interface{}) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct
}

// isNullIdentifier reports whether id is nil, or a map or slice holding
// only nil values. Empty maps and slices are null too.
func isNullIdentifier(id interface{}) bool {
	if isNil(id) {
		return true
	}
	if data, ok := toRecord(id); ok {
		for _, v := range data {
			if !isNil(v) {
				return false
			}
		}
		return true
	}
	rv := reflect.ValueOf(id)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if _, ok := id.([]byte); ok {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if !isNil(rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return false
}

// isEmpty reports whether v carries no data: nil, false, zero numbers, ""
// and "0", or an empty map or slice.
func isEmpty(v interface{}) bool {
	if isNil(v) {
		return true
	}
	if s, ok := v.(string); ok {
		return s == "" || s == "0"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	}
	return false
}

// isLooselyNull reports whether v is nil, false, a zero number, "" or an
// empty map or slice. Identifiers holding such values are not looked up.
func isLooselyNull(v interface{}) bool {
	if s, ok := v.(string); ok {
		return s == ""
	}
	return isEmpty(v)
}

// sameKeys reports whether data has exactly the given keys.
func sameKeys(data Record, keys []string) bool {
	if len(data) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			return false
		}
	}
	return true
}

func copyRecord(data Record) Record {
	out := make(Record, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
