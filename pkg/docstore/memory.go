package docstore

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore keeps documents in process memory. It is used by tests and the
// example programs; data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	colls  map[string][]bson.Raw // insertion order
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{colls: make(map[string][]bson.Raw)}
}

// FindOne implements Store.
func (m *MemoryStore) FindOne(ctx context.Context, coll string, filter Filter, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}

	docs, err := selectDocs(m.colls[coll], filter, FindOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNotFound
	}
	return bson.Unmarshal(docs[0], out)
}

// Find implements Store.
func (m *MemoryStore) Find(ctx context.Context, coll string, filter Filter, opts FindOptions, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}

	docs, err := selectDocs(m.colls[coll], filter, opts)
	if err != nil {
		return err
	}
	return decodeAll(docs, out)
}

// InsertOne implements Store.
func (m *MemoryStore) InsertOne(ctx context.Context, coll string, doc any) (ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, id, err := prepareInsert(doc)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	if m.hasID(coll, id) {
		return "", ErrDuplicateKey
	}
	m.colls[coll] = append(m.colls[coll], raw)
	return id, nil
}

// UpdateOne implements Store.
func (m *MemoryStore) UpdateOne(ctx context.Context, coll string, filter Filter, update Update, opts UpdateOptions) (UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return UpdateResult{}, err
	}
	if update.empty() {
		return UpdateResult{}, ErrEmptyUpdate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return UpdateResult{}, ErrClosed
	}

	docs := m.colls[coll]
	for i, d := range docs {
		ok, err := matches(d, filter)
		if err != nil {
			return UpdateResult{}, err
		}
		if !ok {
			continue
		}
		updated, changed, err := applySet(d, update)
		if err != nil {
			return UpdateResult{}, err
		}
		res := UpdateResult{Matched: 1}
		if changed {
			docs[i] = updated
			res.Modified = 1
		}
		return res, nil
	}

	if !opts.Upsert {
		return UpdateResult{}, nil
	}
	raw, id, err := upsertDocument(filter, update)
	if err != nil {
		return UpdateResult{}, err
	}
	if m.hasID(coll, id) {
		return UpdateResult{}, ErrDuplicateKey
	}
	m.colls[coll] = append(docs, raw)
	return UpdateResult{UpsertedID: id}, nil
}

// Close implements Store.
func (m *MemoryStore) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of documents in coll.
func (m *MemoryStore) Len(coll string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.colls[coll])
}

func (m *MemoryStore) hasID(coll string, id ID) bool {
	for _, d := range m.colls[coll] {
		if idFromRaw(d.Lookup("_id")) == id {
			return true
		}
	}
	return false
}
