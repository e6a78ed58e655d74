package hydrabun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/lemmego/hydra"
	"github.com/uptrace/bun"
)

// =====================================
// Entity Store
// =====================================

// Store implements hydra.EntityStore with Bun select queries.
type Store struct {
	db        bun.IDB
	meta      *Metadata
	relations []string
}

// NewStore creates a store querying db. Metadata is read from the Bun
// table schemas of db.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db, meta: NewMetadata(db)}
}

// Metadata returns the metadata provider used by the store.
func (s *Store) Metadata() *Metadata {
	return s.meta
}

// WithTx returns a copy of the store that runs its queries in tx.
func (s *Store) WithTx(tx bun.Tx) *Store {
	c := *s
	c.db = tx
	return &c
}

// Relation returns a copy of the store that loads the given relations on
// every lookup.
func (s *Store) Relation(names ...string) *Store {
	c := *s
	c.relations = append(append([]string(nil), s.relations...), names...)
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

	dest := reflect.New(st).Interface()
	query := s.db.NewSelect().Model(dest)
	for _, name := range info.Identifier {
		column, ok := s.meta.Column(st, name)
		if !ok {
			return nil, hydra.NewError(hydra.ErrorTypeConfiguration, fmt.Sprintf("no column for identifier %s.%s", info.Name, name))
		}
		query = query.Where("?TableAlias.? = ?", bun.Ident(column), values[name])
	}
	for _, relation := range s.relations {
		query = query.Relation(relation)
	}

	if err := query.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, convertBunError(err)
	}
	return dest, nil
}
