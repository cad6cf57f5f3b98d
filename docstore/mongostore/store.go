// Package mongostore backs docstore.Store with a MongoDB database.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrMongoUnavailable wraps driver failures other than not-found and duplicate key.
var ErrMongoUnavailable = errors.New("docstore mongo unavailable")

// Store implements docstore.Store on a *mongo.Database.
type Store struct {
	db     *mongo.Database
	client *mongo.Client
}

var _ docstore.Store = (*Store)(nil)

// New wraps an existing database handle. Close is a no-op for stores built this way.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect dials uri, pings the primary and returns a Store bound to database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMongoUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %v", ErrMongoUnavailable, err)
	}
	return &Store{db: client.Database(database), client: client}, nil
}

// Close disconnects a client opened by Connect.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// EnsureIndex creates an ascending index over fields.
func (s *Store) EnsureIndex(ctx context.Context, collection string, unique bool, fields ...string) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(unique),
	})
	return wrap(err)
}

func (s *Store) FindOne(ctx context.Context, collection string, filter docstore.Filter) (docstore.Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, toBSON(filter)).Decode(&raw)
	if err != nil {
		return nil, wrap(err)
	}
	return fromBSON(raw), nil
}

func (s *Store) Find(ctx context.Context, collection string, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	fo := options.Find()
	if opts.SortBy != "" {
		dir := 1
		if opts.Descending {
			dir = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortBy, Value: dir}})
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}

	cur, err := s.db.Collection(collection).Find(ctx, toBSON(filter), fo)
	if err != nil {
		return nil, wrap(err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, wrap(err)
	}
	out := make([]docstore.Document, 0, len(raw))
	for _, r := range raw {
		out = append(out, fromBSON(r))
	}
	return out, nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc docstore.Document) error {
	doc = docstore.Clone(doc)
	if doc == nil {
		doc = docstore.Document{}
	}
	if doc.ID() == "" {
		doc[docstore.IDField] = uuid.NewString()
	}
	_, err := s.db.Collection(collection).InsertOne(ctx, bson.M(doc))
	return wrap(err)
}

func (s *Store) UpdateOne(ctx context.Context, collection string, filter docstore.Filter, update docstore.Update) (int64, error) {
	coll := s.db.Collection(collection)
	doc := updateBSON(update)
	if len(doc) == 0 {
		// The server rejects empty update documents.
		n, err := coll.CountDocuments(ctx, toBSON(filter), options.Count().SetLimit(1))
		return n, wrap(err)
	}
	res, err := coll.UpdateOne(ctx, toBSON(filter), doc)
	if err != nil {
		return 0, wrap(err)
	}
	return res.MatchedCount, nil
}

func (s *Store) DeleteOne(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	res, err := s.db.Collection(collection).DeleteOne(ctx, toBSON(filter))
	if err != nil {
		return 0, wrap(err)
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, toBSON(filter))
	if err != nil {
		return 0, wrap(err)
	}
	return res.DeletedCount, nil
}

func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return docstore.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return docstore.ErrDuplicate
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrMongoUnavailable, err)
	}
}

func toBSON(filter docstore.Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		if op, ok := v.(docstore.Op); ok {
			out[k] = bson.M(op)
			continue
		}
		out[k] = v
	}
	return out
}

func updateBSON(u docstore.Update) bson.M {
	out := bson.M{}
	if len(u.Set) > 0 {
		out["$set"] = bson.M(u.Set)
	}
	if len(u.Unset) > 0 {
		unset := bson.M{}
		for _, k := range u.Unset {
			if k == docstore.IDField {
				continue
			}
			unset[k] = ""
		}
		if len(unset) > 0 {
			out["$unset"] = unset
		}
	}
	return out
}

// fromBSON normalises driver types to the plain Go values docstore.Match understands.
func fromBSON(m bson.M) docstore.Document {
	out := make(docstore.Document, len(m))
	for k, v := range m {
		out[k] = normalise(v)
	}
	return out
}

func normalise(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case int32:
		return int64(t)
	case primitive.ObjectID:
		return t.Hex()
	case bson.M:
		return map[string]any(fromBSON(t))
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return map[string]any(fromBSON(m))
	case primitive.A:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalise(t[i])
		}
		return out
	default:
		return v
	}
}
