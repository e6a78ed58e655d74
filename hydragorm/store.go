package hydragorm

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/lemmego/hydra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// =====================================
// Entity Store
// =====================================

// Store implements hydra.EntityStore with GORM queries.
type Store struct {
	db       *gorm.DB
	meta     *Metadata
	preloads []string
	locking  *clause.Locking
}

// NewStore creates a store querying db. Metadata is read from the GORM
// schemas of db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, meta: NewMetadata(db)}
}

// Metadata returns the metadata provider used by the store.
func (s *Store) Metadata() *Metadata {
	return s.meta
}

// Preload returns a copy of the store that preloads the given associations
// on every lookup.
func (s *Store) Preload(relations ...string) *Store {
	c := *s
	c.preloads = append(append([]string(nil), s.preloads...), relations...)
	return &c
}

// ForUpdate returns a copy of the store that locks the rows it finds.
// Dialects without row locking ignore the clause.
func (s *Store) ForUpdate() *Store {
	c := *s
	c.locking = &clause.Locking{Strength: "UPDATE"}
	return &c
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

	db := s.db.WithContext(ctx)
	for _, name := range info.Identifier {
		column, ok := s.meta.Column(st, name)
		if !ok {
			return nil, hydra.NewError(hydra.ErrorTypeConfiguration, fmt.Sprintf("no column for identifier %s.%s", info.Name, name))
		}
		db = db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: column},
			Value:  values[name],
		})
	}
	for _, relation := range s.preloads {
		db = db.Preload(relation)
	}
	if s.locking != nil {
		db = db.Clauses(*s.locking)
	}

	dest := reflect.New(st).Interface()
	if err := db.Take(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, convertGormError(err)
	}
	return dest, nil
}
