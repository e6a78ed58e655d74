// Package hydrapatch applies JSON merge patches (RFC 7386) and JSON
// patches (RFC 6902) to hydra entities. The entity is extracted, the patch
// is applied to the extracted document and the changed keys are hydrated
// back into the entity.
package hydrapatch

import (
	"context"
	"encoding/json"
	"reflect"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/lemmego/hydra"
)

// Hydrator is what patching needs from a hydrator. Both *hydra.Hydrator
// and *hydra.Split satisfy it.
type Hydrator interface {
	hydra.Extractor
	hydra.EntityHydrator
}

// MergePatch applies a JSON merge patch to entity. Every top-level key of
// the patch is hydrated; a key set to null is hydrated as nil.
func MergePatch(ctx context.Context, h Hydrator, entity interface{}, patch []byte) (interface{}, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(patch, &keys); err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeParse, "merge patch must be a JSON object", err)
	}

	doc, err := document(h, entity)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeParse, "failed to apply merge patch", err)
	}
	patched, err := decode(merged)
	if err != nil {
		return nil, err
	}

	data := make(hydra.Record, len(keys))
	for key := range keys {
		data[key] = patched[key]
	}
	return h.Hydrate(ctx, data, entity)
}

// ApplyPatch applies a JSON patch to entity. Top-level keys whose value
// changed are hydrated and removed keys are hydrated as nil.
func ApplyPatch(ctx context.Context, h Hydrator, entity interface{}, patch []byte) (interface{}, error) {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeParse, "invalid JSON patch", err)
	}

	doc, err := document(h, entity)
	if err != nil {
		return nil, err
	}
	out, err := ops.Apply(doc)
	if err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeParse, "failed to apply JSON patch", err)
	}

	before, err := decode(doc)
	if err != nil {
		return nil, err
	}
	after, err := decode(out)
	if err != nil {
		return nil, err
	}
	return h.Hydrate(ctx, Changes(before, after), entity)
}

// Changes returns the top-level keys of after that differ from before.
// Keys missing from after are reported as nil.
func Changes(before, after hydra.Record) hydra.Record {
	changed := make(hydra.Record)
	for key, value := range after {
		if old, ok := before[key]; !ok || !reflect.DeepEqual(old, value) {
			changed[key] = value
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			changed[key] = nil
		}
	}
	return changed
}

// document extracts entity as JSON.
func document(h Hydrator, entity interface{}) ([]byte, error) {
	data, err := h.Extract(entity)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(data)
	if err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeInvalidArgument, "extracted data is not JSON encodable", err)
	}
	return doc, nil
}

func decode(doc []byte) (hydra.Record, error) {
	var data hydra.Record
	if err := json.Unmarshal(doc, &data); err != nil {
		return nil, hydra.NewErrorWithCause(hydra.ErrorTypeParse, "patched document is not a JSON object", err)
	}
	if data == nil {
		return nil, hydra.NewError(hydra.ErrorTypeParse, "patched document is not a JSON object")
	}
	return data, nil
}
