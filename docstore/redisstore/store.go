// Package redisstore persists docstore collections in Redis.
//
// Each collection is one hash at "<prefix>:<collection>" keyed by document _id,
// holding the JSON-encoded document. Filters are evaluated client-side with
// docstore.Match; writes run under WATCH so a concurrent change to the same
// collection retries the operation.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxRetries = 4

// ErrRedisUnavailable wraps transport failures from the Redis client.
var ErrRedisUnavailable = errors.New("docstore redis unavailable")

// Store implements docstore.Store on a redis.UniversalClient.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

var _ docstore.Store = (*Store)(nil)

// New returns a Store. An empty prefix defaults to "adoc".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "adoc"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(collection string) string {
	return s.prefix + ":" + collection
}

func (s *Store) load(ctx context.Context, c redis.Cmdable, collection string) ([]docstore.Document, error) {
	raw, err := c.HGetAll(ctx, s.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	docs := make([]docstore.Document, 0, len(raw))
	for _, v := range raw {
		doc, err := decode([]byte(v))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	// Hash iteration order is random; keep results deterministic.
	return docstore.Sort(docs, docstore.FindOptions{SortBy: docstore.IDField}), nil
}

// candidates narrows the documents a filter can match. A filter pinning _id
// costs one HGET instead of a full HGETALL.
func (s *Store) candidates(ctx context.Context, c redis.Cmdable, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	id, ok := filter[docstore.IDField].(string)
	if !ok {
		return s.load(ctx, c, collection)
	}
	data, err := c.HGet(ctx, s.key(collection), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	return []docstore.Document{doc}, nil
}

func matching(docs []docstore.Document, filter docstore.Filter) ([]docstore.Document, error) {
	var out []docstore.Document
	for _, doc := range docs {
		ok, err := docstore.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter docstore.Filter) (docstore.Document, error) {
	docs, err := s.candidates(ctx, s.redis, collection, filter)
	if err != nil {
		return nil, err
	}
	found, err := matching(docs, filter)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, docstore.ErrNotFound
	}
	return found[0], nil
}

func (s *Store) Find(ctx context.Context, collection string, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	docs, err := s.load(ctx, s.redis, collection)
	if err != nil {
		return nil, err
	}
	found, err := matching(docs, filter)
	if err != nil {
		return nil, err
	}
	return docstore.Sort(found, opts), nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc docstore.Document) error {
	doc = docstore.Clone(doc)
	if doc == nil {
		doc = docstore.Document{}
	}
	if doc.ID() == "" {
		doc[docstore.IDField] = uuid.NewString()
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	created, err := s.redis.HSetNX(ctx, s.key(collection), doc.ID(), data).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !created {
		return docstore.ErrDuplicate
	}
	return nil
}

func (s *Store) UpdateOne(ctx context.Context, collection string, filter docstore.Filter, update docstore.Update) (int64, error) {
	key := s.key(collection)
	var matched int64

	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		matched = 0
		docs, err := s.candidates(ctx, tx, collection, filter)
		if err != nil {
			return err
		}
		found, err := matching(docs, filter)
		if err != nil || len(found) == 0 {
			return err
		}

		next := docstore.Apply(found[0], update)
		data, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, next.ID(), data)
			return nil
		})
		if err != nil {
			return err
		}
		matched = 1
		return nil
	})
	return matched, err
}

func (s *Store) DeleteOne(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	return s.delete(ctx, collection, filter, 1)
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter docstore.Filter) (int64, error) {
	return s.delete(ctx, collection, filter, 0)
}

func (s *Store) delete(ctx context.Context, collection string, filter docstore.Filter, limit int) (int64, error) {
	key := s.key(collection)
	var deleted int64

	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		deleted = 0
		docs, err := s.candidates(ctx, tx, collection, filter)
		if err != nil {
			return err
		}
		found, err := matching(docs, filter)
		if err != nil || len(found) == 0 {
			return err
		}
		if limit > 0 && len(found) > limit {
			found = found[:limit]
		}

		ids := make([]string, 0, len(found))
		for _, doc := range found {
			ids = append(ids, doc.ID())
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, key, ids...)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = int64(len(ids))
		return nil
	})
	return deleted, err
}

func (s *Store) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrRedisUnavailable) && !errors.Is(err, docstore.ErrUnsupportedOperator) && !errors.Is(err, errCodec) {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return err
	}
	return fmt.Errorf("%w: too much contention on %s", ErrRedisUnavailable, key)
}
