// Package backend opens the booking store named in the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"techslots/internal/config"
	"techslots/internal/store"
	"techslots/internal/store/firestore"
	"techslots/internal/store/memstore"
	"techslots/internal/store/mongostore"
	"techslots/internal/store/postgres"
	"techslots/internal/store/redisstore"
	"techslots/internal/store/sqlite"
)

// Open returns the store for cfg.Store.Driver. rdb is required only by the
// redis driver.
func Open(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger zerolog.Logger) (store.Store, error) {
	sc := cfg.Store
	logger.Info().Str("driver", sc.Driver).Msg("opening booking store")

	switch sc.Driver {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		st, err := sqlite.Open(sc.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis store: no redis client configured")
		}
		return redisstore.New(rdb, sc.Redis.Prefix, logger), nil
	case "firestore":
		client, err := firestore.NewClient(ctx, firestore.ClientConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		return firestore.New(client, sc.Firestore.Collection, logger), nil
	case "postgres":
		st, err := postgres.Open(ctx, sc.Postgres.URL, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "mongo":
		st, err := mongostore.Open(ctx, mongostore.Config{
			URI:        sc.Mongo.URI,
			Database:   sc.Mongo.Database,
			Collection: sc.Mongo.Collection,
		}, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
}
