package hydramongo

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/lemmego/hydra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// =====================================
// Entity Store
// =====================================

// Store implements hydra.EntityStore over the collections of a database.
//
// Each entity type lives in the collection named by its CollectionName
// method, or in the lower-cased plural of its type name.
type Store struct {
	db   *mongo.Database
	meta hydra.MetadataProvider
}

// NewStore creates a store reading from db. meta describes the stored
// entity types; a nil meta infers metadata from struct tags.
func NewStore(db *mongo.Database, meta hydra.MetadataProvider) *Store {
	if meta == nil {
		meta = hydra.NewMetadataRegistry()
	}
	return &Store{db: db, meta: meta}
}

// Metadata returns the metadata provider used by the store.
func (s *Store) Metadata() hydra.MetadataProvider {
	return s.meta
}

// Collection returns the collection holding entities of type t.
func (s *Store) Collection(t reflect.Type) *mongo.Collection {
	return s.db.Collection(collectionName(t))
}

// Find implements hydra.EntityStore
func (s *Store) Find(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error) {
	st := indirect(target)
	info, err := s.meta.MetadataFor(st)
	if err != nil {
		return nil, err
	}
	values, ok := hydra.NormalizeIdentifier(info, id)
	if !ok {
		return nil, nil
	}
	filter, err := identifierFilter(info, values)
	if err != nil {
		return nil, err
	}

	dest := reflect.New(st).Interface()
	if err := s.Collection(st).FindOne(ctx, filter).Decode(dest); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, convertMongoError(err)
	}
	return dest, nil
}

// identifierFilter matches the identifier values against their document
// keys. Hex strings are converted for ObjectID fields.
func identifierFilter(info *hydra.EntityInfo, values hydra.Record) (bson.D, error) {
	filter := make(bson.D, 0, len(info.Identifier))
	for _, name := range info.Identifier {
		goName := name
		if f, ok := info.Field(name); ok && f.GoName != "" {
			goName = f.GoName
		}
		sf, ok := info.Type.FieldByName(goName)
		if !ok {
			return nil, hydra.NewError(hydra.ErrorTypeConfiguration, fmt.Sprintf("no struct field for identifier %s.%s", info.Name, name))
		}

		value := values[name]
		if sf.Type == objectIDType {
			if hex, ok := value.(string); ok {
				oid, err := primitive.ObjectIDFromHex(hex)
				if err != nil {
					return nil, hydra.NewErrorWithCause(hydra.ErrorTypeParse, fmt.Sprintf("invalid object id %q", hex), err)
				}
				value = oid
			}
		}
		filter = append(filter, bson.E{Key: documentKey(sf), Value: value})
	}
	return filter, nil
}

var objectIDType = reflect.TypeOf(primitive.ObjectID{})

// documentKey returns the key the driver encodes a struct field under.
func documentKey(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("bson"); ok {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(sf.Name)
}

// collectionName returns the collection name for the entity type.
func collectionName(t reflect.Type) string {
	st := indirect(t)
	if namer, ok := reflect.New(st).Interface().(interface{ CollectionName() string }); ok {
		return namer.CollectionName()
	}

	name := strings.ToLower(st.Name())
	if !strings.HasSuffix(name, "s") {
		name += "s"
	}
	return name
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
