package hydra

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// =====================================
// Test entities
// =====================================

type SimpleEntity struct {
	id    int
	field string
}

func (e *SimpleEntity) GetID() int { return e.id }
func (e *SimpleEntity) SetID(id int) { e.id = id }
func (e *SimpleEntity) GetField() string { return e.field }
func (e *SimpleEntity) SetField(f string) { e.field = f }

// ByValueDifferentiatorEntity decorates its field in both accessors, so
// by-value and by-reference conversions give different results.
type ByValueDifferentiatorEntity struct {
	id    int
	field string
}

func (e *ByValueDifferentiatorEntity) GetID() int { return e.id }
func (e *ByValueDifferentiatorEntity) SetID(id int) { e.id = id }
func (e *ByValueDifferentiatorEntity) GetField() string {
	return "From getter: " + e.field
}
func (e *ByValueDifferentiatorEntity) SetField(f string) {
	e.field = "From setter: " + f
}

type DateEntity struct {
	id   int
	date *time.Time
}

func (e *DateEntity) GetID() int { return e.id }
func (e *DateEntity) SetID(id int) { e.id = id }
func (e *DateEntity) GetDate() *time.Time { return e.date }
func (e *DateEntity) SetDate(d *time.Time) { e.date = d }

type TaskEntity struct {
	id       int
	done     bool
	isActive bool
}

func (e *TaskEntity) GetID() int { return e.id }
func (e *TaskEntity) SetID(id int) { e.id = id }
func (e *TaskEntity) IsDone() bool { return e.done }
func (e *TaskEntity) SetDone(done bool) { e.done = done }
func (e *TaskEntity) IsActive() bool { return e.isActive }
func (e *TaskEntity) SetIsActive(a bool) { e.isActive = a }

// Exported fields without accessors
type Profile struct {
	ID        int
	FirstName string
	Score     float64
	Nickname  *string
}

type Author struct {
	id   int
	name string
}

func (a *Author) GetID() int { return a.id }
func (a *Author) SetID(id int) { a.id = id }
func (a *Author) GetName() string { return a.name }
func (a *Author) SetName(n string) { a.name = n }

type Tag struct {
	id   int
	name string
}

func (t *Tag) GetID() int { return t.id }
func (t *Tag) SetID(id int) { t.id = id }
func (t *Tag) GetName() string { return t.name }
func (t *Tag) SetName(n string) { t.name = n }

type Article struct {
	id     int
	title  string
	author *Author
	tags   *Collection[*Tag]
}

func (a *Article) GetID() int { return a.id }
func (a *Article) SetID(id int) { a.id = id }
func (a *Article) GetTitle() string { return a.title }
func (a *Article) SetTitle(t string) { a.title = t }
func (a *Article) GetAuthor() *Author { return a.author }
func (a *Article) SetAuthor(au *Author) { a.author = au }
func (a *Article) GetTags() *Collection[*Tag] {
	if a.tags == nil {
		a.tags = NewCollection[*Tag]()
	}
	return a.tags
}

func (a *Article) AddTags(tags ...*Tag) {
	a.GetTags().Add(tags...)
}

func (a *Article) RemoveTags(tags ...*Tag) {
	for _, t := range tags {
		a.GetTags().Remove(t)
	}
}

type Book struct {
	ID    int
	Title string
}

// Library keeps its books in a plain slice and receives them one at a time.
type Library struct {
	ID    int
	Books []*Book
}

func (l *Library) GetBooks() []*Book { return l.Books }
func (l *Library) AddBooks(b *Book) { l.Books = append(l.Books, b) }
func (l *Library) RemoveBooks(b *Book) {
	for i, existing := range l.Books {
		if existing == b {
			l.Books = append(l.Books[:i], l.Books[i+1:]...)
			return
		}
	}
}

// Shelf has a getter for its books but no adder or remover.
type Shelf struct {
	ID    int
	Books []*Book
}

func (s *Shelf) GetBooks() []*Book { return s.Books }

// Registration has a setter returning an error.
type Registration struct {
	ID    int
	Email string
}

var errInvalidEmail = errors.New("invalid email")

func (r *Registration) GetEmail() string { return r.Email }
func (r *Registration) SetEmail(email string) error {
	if email == "" {
		return errInvalidEmail
	}
	r.Email = email
	return nil
}

// HookedEntity records the hooks it receives.
type HookedEntity struct {
	ID    int
	Title string

	calls []string `hydra:"-"`
}

func (e *HookedEntity) BeforeHydrate(ctx context.Context, data Record) error {
	e.calls = append(e.calls, "before")
	return nil
}

func (e *HookedEntity) AfterHydrate(ctx context.Context) error {
	e.calls = append(e.calls, "after:"+e.Title)
	return nil
}

func (e *HookedEntity) AfterExtract(data Record) error {
	data["kind"] = "hooked"
	return nil
}

// SecretEntity hides its password from extraction.
type SecretEntity struct {
	ID       int
	Login    string
	Password string
}

func (e *SecretEntity) HydratorFilter() Filter {
	return NewPropertyName([]string{"password"}, true)
}

// =====================================
// Test helpers
// =====================================

func newTestHydrator(opts ...Option) (*Hydrator, *MemoryStore) {
	meta := NewMetadataRegistry()
	store := NewMemoryStore(meta)
	h, err := New(meta, store, opts...)
	if err != nil {
		panic(err)
	}
	return h, store
}

func mustNew(t *testing.T, meta MetadataProvider, store EntityStore, opts ...Option) *Hydrator {
	t.Helper()
	h, err := New(meta, store, opts...)
	require.NoError(t, err)
	return h
}

// detachedStore serves copies of the entities held by store, the way a
// database-backed store materialises a new instance per lookup.
func detachedStore(store *MemoryStore) StoreFunc {
	return func(ctx context.Context, target reflect.Type, id interface{}) (interface{}, error) {
		found, err := store.Find(ctx, target, id)
		if err != nil || isNil(found) {
			return found, err
		}
		v := reflect.ValueOf(found).Elem()
		copied := reflect.New(v.Type())
		copied.Elem().Set(v)
		return copied.Interface(), nil
	}
}

func tagNames(c *Collection[*Tag]) []string {
	names := make([]string, 0, c.Len())
	for _, t := range c.Items() {
		names = append(names, t.name)
	}
	return names
}
