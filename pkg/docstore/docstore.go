// Package docstore is a small document-store facade over MongoDB, SQLite and
// process memory.
//
// The surface is deliberately the subset the application needs: find one,
// find many (filtered, sorted, limited), insert one and update one with
// optional upsert. Documents are anything the BSON codec can marshal; every
// backend stores them as BSON so field names (`bson` struct tags) are the
// persisted contract regardless of backend.
//
// Atomicity is per document. No backend offers cross-document transactions
// through this interface.
package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Sentinel errors.
var (
	// ErrNotFound is returned by FindOne when no document matches.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("docstore: store closed")

	// ErrDuplicateKey is returned when inserting a document whose _id exists.
	ErrDuplicateKey = errors.New("docstore: duplicate _id")

	// ErrEmptyUpdate is returned by UpdateOne when the update sets nothing.
	ErrEmptyUpdate = errors.New("docstore: empty update")
)

// IsNotFound reports whether err means no document matched.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is a minimal document store.
type Store interface {
	// FindOne decodes the first matching document (insertion order) into out.
	FindOne(ctx context.Context, coll string, filter Filter, out any) error

	// Find decodes matching documents into out, which must point to a slice.
	Find(ctx context.Context, coll string, filter Filter, opts FindOptions, out any) error

	// InsertOne stores doc, assigning an _id when the document has none.
	InsertOne(ctx context.Context, coll string, doc any) (ID, error)

	// UpdateOne applies update to the first matching document.
	UpdateOne(ctx context.Context, coll string, filter Filter, update Update, opts UpdateOptions) (UpdateResult, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// Filter selects documents. Plain values match by equality; Ne and In build
// the other supported conditions. Keys may use dots to reach nested fields.
type Filter map[string]any

// Cond is a non-equality filter condition.
type Cond struct {
	op     string
	values []any
}

// Ne matches documents whose field is absent or differs from v.
func Ne(v any) Cond { return Cond{op: "$ne", values: []any{v}} }

// In matches documents whose field equals one of vs.
func In(vs ...any) Cond { return Cond{op: "$in", values: vs} }

// FindOptions controls Find.
type FindOptions struct {
	// Limit caps the number of documents returned. Zero means no limit.
	Limit int64

	// SortBy names the field to order by. Empty keeps insertion order.
	SortBy     string
	Descending bool
}

// Update describes an update-one operation.
type Update struct {
	// Set overwrites fields on the matched (or upserted) document.
	Set map[string]any

	// SetOnInsert applies only when the update inserts a new document.
	SetOnInsert map[string]any
}

// UpdateOptions controls UpdateOne.
type UpdateOptions struct {
	Upsert bool
}

// UpdateResult reports what UpdateOne did.
type UpdateResult struct {
	Matched    int64
	Modified   int64
	UpsertedID ID
}

func (u Update) empty() bool { return len(u.Set) == 0 && len(u.SetOnInsert) == 0 }

// Upserted reports whether the update inserted a new document.
func (r UpdateResult) Upserted() bool { return r.UpsertedID != "" }

// ID is a document identifier. It decodes from both string ids and MongoDB
// ObjectIDs (as hex), so records written by other tools stay readable.
type ID string

// String returns the id as a string.
func (id ID) String() string { return string(id) }

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (id *ID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*id = idFromRaw(bson.RawValue{Type: t, Value: data})
	return nil
}

func idFromRaw(v bson.RawValue) ID {
	switch v.Type {
	case bsontype.String:
		return ID(v.StringValue())
	case bsontype.ObjectID:
		return ID(v.ObjectID().Hex())
	case bsontype.Null, bsontype.Undefined, 0:
		return ""
	default:
		return ID(v.String())
	}
}
