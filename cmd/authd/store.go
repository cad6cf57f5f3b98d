package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/docstore/memstore"
	"github.com/MrEthical07/authcore/docstore/mongostore"
	"github.com/MrEthical07/authcore/docstore/redisstore"
	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// openStore returns the configured store and a func releasing its resources.
func openStore(ctx context.Context, cfg storeConfig, logger logrus.FieldLogger) (docstore.Store, func(), error) {
	switch cfg.Kind {
	case storeMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil

	case storeMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		logger.WithField("addr", mr.Addr()).Warn("using embedded miniredis; data is lost on exit")
		return redisstore.New(rdb, cfg.RedisPrefix), func() {
			_ = rdb.Close()
			mr.Close()
		}, nil

	case storeRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("%w: %v", redisstore.ErrRedisUnavailable, err)
		}
		return redisstore.New(rdb, cfg.RedisPrefix), func() { _ = rdb.Close() }, nil

	case storeMongo:
		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		if err := ensureMongoIndexes(ctx, s); err != nil {
			_ = s.Close(context.Background())
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Kind)
}

func ensureMongoIndexes(ctx context.Context, s *mongostore.Store) error {
	indexes := []struct {
		collection string
		unique     bool
		fields     []string
	}{
		{stores.UsersCollection, true, []string{stores.FieldEmail}},
		{stores.UsersCollection, false, []string{stores.FieldResetToken}},
		{stores.EmailsCollection, false, []string{stores.FieldClaimUser}},
		{limiters.AttemptsCollection, false, []string{"lastAttempt"}},
		{audit.Collection, false, []string{"userId", "createdAt"}},
		{audit.Collection, false, []string{"action", "createdAt"}},
	}
	for _, idx := range indexes {
		if err := s.EnsureIndex(ctx, idx.collection, idx.unique, idx.fields...); err != nil {
			return fmt.Errorf("ensure index %s%v: %w", idx.collection, idx.fields, err)
		}
	}
	return nil
}
