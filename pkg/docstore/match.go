package docstore

import (
	"bytes"
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// The helpers below give the memory and SQLite backends MongoDB-compatible
// semantics for the subset of queries Store supports. Documents are kept as
// raw BSON so decoding behaves the same on every backend.

// lookup returns the value at a dotted path, or a zero RawValue if absent.
func lookup(doc bson.Raw, key string) bson.RawValue {
	return doc.Lookup(strings.Split(key, ".")...)
}

func rawValueOf(v any) (bson.RawValue, error) {
	if rv, ok := v.(bson.RawValue); ok {
		return rv, nil
	}
	t, data, err := bson.MarshalValue(v)
	if err != nil {
		return bson.RawValue{}, fmt.Errorf("marshal filter value %v: %w", v, err)
	}
	return bson.RawValue{Type: t, Value: data}, nil
}

func numeric(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return float64(v.Int32()), true
	case bsontype.Int64:
		return float64(v.Int64()), true
	case bsontype.Double:
		return v.Double(), true
	}
	return 0, false
}

func equalValues(a, b bson.RawValue) bool {
	if an, ok := numeric(a); ok {
		if bn, ok := numeric(b); ok {
			return an == bn
		}
	}
	return a.Type == b.Type && bytes.Equal(a.Value, b.Value)
}

// compareValues orders a before b. Missing values sort first; values of
// different types order by BSON type byte.
func compareValues(a, b bson.RawValue) int {
	if an, ok := numeric(a); ok {
		if bn, ok := numeric(b); ok {
			return cmp.Compare(an, bn)
		}
	}
	if a.Type != b.Type {
		return cmp.Compare(a.Type, b.Type)
	}
	switch a.Type {
	case bsontype.String:
		return strings.Compare(a.StringValue(), b.StringValue())
	case bsontype.DateTime:
		return cmp.Compare(a.DateTime(), b.DateTime())
	case bsontype.Boolean:
		return cmp.Compare(boolRank(a.Boolean()), boolRank(b.Boolean()))
	default:
		return bytes.Compare(a.Value, b.Value)
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func matches(doc bson.Raw, filter Filter) (bool, error) {
	for key, want := range filter {
		got := lookup(doc, key)
		switch c := want.(type) {
		case Cond:
			ok, err := matchCond(got, c)
			if err != nil || !ok {
				return false, err
			}
		default:
			if want == nil {
				if got.Type != 0 && got.Type != bsontype.Null {
					return false, nil
				}
				continue
			}
			wv, err := rawValueOf(want)
			if err != nil {
				return false, err
			}
			if got.Type == 0 || !equalValues(got, wv) {
				return false, nil
			}
		}
	}
	return true, nil
}

func matchCond(got bson.RawValue, c Cond) (bool, error) {
	switch c.op {
	case "$ne":
		wv, err := rawValueOf(c.values[0])
		if err != nil {
			return false, err
		}
		return got.Type == 0 || !equalValues(got, wv), nil
	case "$in":
		if got.Type == 0 {
			return false, nil
		}
		for _, v := range c.values {
			wv, err := rawValueOf(v)
			if err != nil {
				return false, err
			}
			if equalValues(got, wv) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("docstore: unsupported condition %q", c.op)
	}
}

// selectDocs filters docs (in insertion order), sorts stably and applies the limit.
func selectDocs(docs []bson.Raw, filter Filter, opts FindOptions) ([]bson.Raw, error) {
	var out []bson.Raw
	for _, d := range docs {
		ok, err := matches(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	if opts.SortBy != "" {
		slices.SortStableFunc(out, func(a, b bson.Raw) int {
			c := compareValues(lookup(a, opts.SortBy), lookup(b, opts.SortBy))
			if opts.Descending {
				return -c
			}
			return c
		})
	}
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// decodeAll decodes docs into out, which must be a pointer to a slice.
func decodeAll(docs []bson.Raw, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("docstore: out must be a non-nil pointer to a slice, got %T", out)
	}
	sv := rv.Elem()
	res := reflect.MakeSlice(sv.Type(), 0, len(docs))
	for _, d := range docs {
		ev := reflect.New(sv.Type().Elem())
		if err := bson.Unmarshal(d, ev.Interface()); err != nil {
			return fmt.Errorf("docstore: decode: %w", err)
		}
		res = reflect.Append(res, ev.Elem())
	}
	sv.Set(res)
	return nil
}

// elements converts a raw document into an ordered, lossless bson.D.
func elements(doc bson.Raw) (bson.D, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("docstore: read document: %w", err)
	}
	d := make(bson.D, 0, len(elems))
	for _, e := range elems {
		d = append(d, bson.E{Key: e.Key(), Value: e.Value()})
	}
	return d, nil
}

func setField(d bson.D, key string, value any) bson.D {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: value})
}

// prepareInsert marshals doc and guarantees a top-level _id.
func prepareInsert(doc any) (bson.Raw, ID, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: encode document: %w", err)
	}
	if v := bson.Raw(raw).Lookup("_id"); v.Type != 0 {
		return raw, idFromRaw(v), nil
	}
	d, err := elements(raw)
	if err != nil {
		return nil, "", err
	}
	id := uuid.NewString()
	d = append(bson.D{{Key: "_id", Value: id}}, d...)
	raw, err = bson.Marshal(d)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: encode document: %w", err)
	}
	return raw, ID(id), nil
}

// applySet returns doc with u.Set applied and whether the bytes changed.
func applySet(doc bson.Raw, u Update) (bson.Raw, bool, error) {
	if len(u.Set) == 0 {
		return doc, false, nil
	}
	d, err := elements(doc)
	if err != nil {
		return nil, false, err
	}
	for _, k := range sortedKeys(u.Set) {
		if k == "_id" {
			continue
		}
		d = setField(d, k, u.Set[k])
	}
	raw, err := bson.Marshal(d)
	if err != nil {
		return nil, false, fmt.Errorf("docstore: encode update: %w", err)
	}
	return raw, !bytes.Equal(raw, doc), nil
}

// upsertDocument builds the document inserted by an upsert: equality fields
// from the filter, then SetOnInsert, then Set.
func upsertDocument(filter Filter, u Update) (bson.Raw, ID, error) {
	var d bson.D
	for _, k := range sortedKeys(filter) {
		v := filter[k]
		if _, isCond := v.(Cond); isCond || strings.Contains(k, ".") {
			continue
		}
		d = setField(d, k, v)
	}
	for _, k := range sortedKeys(u.SetOnInsert) {
		d = setField(d, k, u.SetOnInsert[k])
	}
	for _, k := range sortedKeys(u.Set) {
		d = setField(d, k, u.Set[k])
	}
	return prepareInsert(d)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
