package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// Op is a comparison operator usable in a Filter.
type Op string

const (
	Eq            Op = "=="
	Ne            Op = "!="
	Lt            Op = "<"
	Lte           Op = "<="
	Gt            Op = ">"
	Gte           Op = ">="
	In            Op = "in"
	ArrayContains Op = "array-contains"
	// Contains is a case-insensitive substring match on string fields.
	Contains Op = "contains"
)

// IDField is the document key field name.
const IDField = "_id"

type Filter struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents in a collection. Filters are ANDed together.
// A zero Limit means no limit.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Offset  int
	Limit   int
}

// Collection is the uniform verb set every route handler uses. Documents
// are Go structs (or maps) carrying bson tags; the document key lives in
// the "_id" field.
type Collection interface {
	// Get decodes the document with the given id into out.
	Get(ctx context.Context, id string, out any) error
	// GetMany decodes all documents whose id is in ids into out, which
	// must be a pointer to a slice. Missing ids are skipped.
	GetMany(ctx context.Context, ids []string, out any) error
	// Query decodes the matching page into out (pointer to slice) and
	// returns the total number of matches ignoring Offset and Limit.
	Query(ctx context.Context, q Query, out any) (int64, error)
	Add(ctx context.Context, doc any) error
	// AddMany inserts docs as one batched write.
	AddMany(ctx context.Context, docs []any) error
	// Update sets fields on a single document and stamps updatedAt.
	Update(ctx context.Context, id string, fields map[string]any) error
	// UpdateMany sets fields on every matching document as one batched
	// write and returns the number of documents matched.
	UpdateMany(ctx context.Context, filters []Filter, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id string) error
}

type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID returns a new opaque document key.
func NewID() string {
	return uuid.NewString()
}
