package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by FindOne when no document matches the filter.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned by InsertOne when a document with the same _id exists.
	ErrDuplicate = errors.New("duplicate document")
	// ErrUnsupportedOperator is returned when a filter uses an operator the matcher does not know.
	ErrUnsupportedOperator = errors.New("unsupported filter operator")
)

// IDField is the primary-key field every stored document carries.
const IDField = "_id"

// Document is a single stored record. Values are restricted to strings, bools,
// integers, floats, time.Time, nested Documents/maps and slices of those.
type Document map[string]any

// Filter selects documents. A plain value means equality; an Op value applies
// comparison operators to the field. All entries must match.
type Filter map[string]any

// Op is an operator expression for a single filter field, e.g. Op{"$gt": t}.
type Op map[string]any

// Update describes a partial modification of a matched document.
type Update struct {
	Set   map[string]any
	Unset []string
}

// FindOptions controls ordering and size of Find results.
type FindOptions struct {
	SortBy     string
	Descending bool
	Limit      int
}

// Store is the persistence collaborator the authentication core talks to.
// Implementations must apply each single-document write atomically.
type Store interface {
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error)
	InsertOne(ctx context.Context, collection string, doc Document) error
	UpdateOne(ctx context.Context, collection string, filter Filter, update Update) (int64, error)
	DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error)
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
}

// Gt matches values strictly greater than v.
func Gt(v any) Op { return Op{"$gt": v} }

// Gte matches values greater than or equal to v.
func Gte(v any) Op { return Op{"$gte": v} }

// Lt matches values strictly less than v.
func Lt(v any) Op { return Op{"$lt": v} }

// Lte matches values less than or equal to v.
func Lte(v any) Op { return Op{"$lte": v} }

// Ne matches values not equal to v (including missing fields).
func Ne(v any) Op { return Op{"$ne": v} }

// Exists matches on field presence.
func Exists(present bool) Op { return Op{"$exists": present} }

// In matches when the field equals any of values.
func In(values ...any) Op { return Op{"$in": values} }

// String returns the string stored under key, or "" when absent or of another type.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// ID returns the document primary key.
func (d Document) ID() string {
	return d.String(IDField)
}
