package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a Store backed by a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	owned  bool
}

var _ Store = (*MongoStore)(nil)

// NewMongo connects to uri and uses database dbName. The connection is
// verified with a ping before returning.
func NewMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if dbName == "" {
		dbName = "projects"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{client: client, db: client.Database(dbName), owned: true}, nil
}

// NewMongoFromClient wraps an existing client. Close does not disconnect it.
func NewMongoFromClient(client *mongo.Client, dbName string) *MongoStore {
	if dbName == "" {
		dbName = "projects"
	}
	return &MongoStore{client: client, db: client.Database(dbName)}
}

// mongoFilter translates a Filter into a query document. Equality on _id
// also matches an ObjectID with the same hex so string ids from clients
// find documents created by other tools.
func mongoFilter(f Filter) bson.M {
	q := bson.M{}
	for k, v := range f {
		switch c := v.(type) {
		case Cond:
			if c.op == "$ne" {
				q[k] = bson.M{"$ne": c.values[0]}
			} else {
				q[k] = bson.M{c.op: bson.A(c.values)}
			}
		case ID:
			q[k] = idQuery(c)
		default:
			q[k] = v
		}
	}
	return q
}

func idQuery(id ID) any {
	if oid, err := primitive.ObjectIDFromHex(string(id)); err == nil {
		return bson.M{"$in": bson.A{oid, string(id)}}
	}
	return string(id)
}

// FindOne implements Store.
func (s *MongoStore) FindOne(ctx context.Context, coll string, filter Filter, out any) error {
	err := s.db.Collection(coll).FindOne(ctx, mongoFilter(filter)).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("find one in %s: %w", coll, err)
	}
	return nil
}

// Find implements Store.
func (s *MongoStore) Find(ctx context.Context, coll string, filter Filter, opts FindOptions, out any) error {
	fo := options.Find()
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if opts.SortBy != "" {
		dir := 1
		if opts.Descending {
			dir = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortBy, Value: dir}})
	}

	cur, err := s.db.Collection(coll).Find(ctx, mongoFilter(filter), fo)
	if err != nil {
		return fmt.Errorf("find in %s: %w", coll, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll, err)
	}
	return nil
}

// InsertOne implements Store. Documents without an _id get a server-side ObjectID.
func (s *MongoStore) InsertOne(ctx context.Context, coll string, doc any) (ID, error) {
	res, err := s.db.Collection(coll).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicateKey
		}
		return "", fmt.Errorf("insert into %s: %w", coll, err)
	}
	return idOf(res.InsertedID), nil
}

// UpdateOne implements Store.
func (s *MongoStore) UpdateOne(ctx context.Context, coll string, filter Filter, update Update, opts UpdateOptions) (UpdateResult, error) {
	if update.empty() {
		return UpdateResult{}, ErrEmptyUpdate
	}
	u := bson.M{}
	if len(update.Set) > 0 {
		u["$set"] = update.Set
	}
	if len(update.SetOnInsert) > 0 {
		u["$setOnInsert"] = update.SetOnInsert
	}

	res, err := s.db.Collection(coll).UpdateOne(ctx, mongoFilter(filter), u, options.Update().SetUpsert(opts.Upsert))
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update %s: %w", coll, err)
	}
	out := UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}
	if res.UpsertedID != nil {
		out.UpsertedID = idOf(res.UpsertedID)
	}
	return out, nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func idOf(v any) ID {
	switch id := v.(type) {
	case primitive.ObjectID:
		return ID(id.Hex())
	case string:
		return ID(id)
	case ID:
		return id
	default:
		return ID(fmt.Sprint(v))
	}
}
