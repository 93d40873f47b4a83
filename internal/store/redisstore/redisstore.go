// Package redisstore keeps bookings as JSON documents in Redis and uses
// WATCH/MULTI for the per-key transaction.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

const maxWatchRetries = 16

// Store is a store.Store over go-redis.
type Store struct {
	rdb    *redis.Client
	prefix string
	logger zerolog.Logger
}

// New wraps an existing client. prefix namespaces every key written.
func New(rdb *redis.Client, prefix string, logger zerolog.Logger) *Store {
	if prefix == "" {
		prefix = "techslots"
	}
	return &Store{rdb: rdb, prefix: prefix, logger: logger.With().Str("component", "redisstore").Logger()}
}

func (s *Store) docKey(k string) string { return s.prefix + ":booking:" + k }
func (s *Store) technicianIndex(id string) string { return s.prefix + ":technician:" + id }
func (s *Store) clientIndex(id string) string { return s.prefix + ":client:" + id }

type tx struct {
	s       *Store
	rtx     *redis.Tx
	key     string
	pending *model.Booking
}

func (t *tx) Get(ctx context.Context) (*model.Booking, error) {
	if t.pending != nil {
		b := *t.pending
		return &b, nil
	}
	return t.s.read(ctx, t.rtx, t.key)
}

func (t *tx) Put(ctx context.Context, b *model.Booking) error {
	b.Key = t.key
	t.pending = b
	return nil
}

func (s *Store) read(ctx context.Context, c redis.Cmdable, key string) (*model.Booking, error) {
	data, err := c.Get(ctx, s.docKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var b model.Booking
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode booking %s: %w", key, err)
	}
	b.Key = key
	return &b, nil
}

// serverTime asks Redis for its clock so createdAt does not depend on the
// caller's host. Inside a transaction c must be the watched connection; a
// second pool connection can starve under load.
func (s *Store) serverTime(ctx context.Context, c redis.Cmdable) time.Time {
	t, err := c.Time(ctx).Result()
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

// RunTransaction watches the document key, runs fn and commits its write in
// MULTI/EXEC. If another client touched the key meanwhile, fn is run again
// against the fresh value.
func (s *Store) RunTransaction(ctx context.Context, key slots.Key, fn store.TxFunc) error {
	k := key.String()
	docKey := s.docKey(k)

	txf := func(rtx *redis.Tx) error {
		t := &tx{s: s, rtx: rtx, key: k}
		if err := fn(ctx, t); err != nil {
			return err
		}
		if t.pending == nil {
			return nil
		}
		if t.pending.CreatedAt.IsZero() {
			t.pending.CreatedAt = s.serverTime(ctx, rtx)
		}
		data, err := json.Marshal(t.pending)
		if err != nil {
			return fmt.Errorf("encode booking: %w", err)
		}

		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, data, 0)
			pipe.SAdd(ctx, s.technicianIndex(t.pending.TechnicianID), k)
			pipe.SAdd(ctx, s.clientIndex(t.pending.ClientID), k)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, txf, docKey)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("key", k).Int("attempt", i+1).Msg("watched key changed, retrying")
			continue
		}
		return err
	}
	s.logger.Warn().Str("key", k).Msg("giving up after repeated watch failures")
	return fmt.Errorf("transaction on %s: %w", k, store.ErrConflict)
}

func (s *Store) Get(ctx context.Context, key slots.Key) (*model.Booking, error) {
	b, err := s.read(ctx, s.rdb, key.String())
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, store.ErrNotFound
	}
	return b, nil
}

// List reads the technician or client index when the filter names one and
// scans every booking otherwise. Index entries can outlive a reassignment of
// the record, so each hit is matched against the filter again.
func (s *Store) List(ctx context.Context, f store.Filter) ([]model.Booking, error) {
	var (
		keys []string
		err  error
	)
	switch {
	case f.TechnicianID != "":
		keys, err = s.rdb.SMembers(ctx, s.technicianIndex(f.TechnicianID)).Result()
	case f.ClientID != "":
		keys, err = s.rdb.SMembers(ctx, s.clientIndex(f.ClientID)).Result()
	default:
		keys, err = s.scanKeys(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list booking keys: %w", err)
	}

	out := make([]model.Booking, 0, len(keys))
	for _, k := range keys {
		b, err := s.read(ctx, s.rdb, k)
		if err != nil {
			return nil, err
		}
		if b != nil && f.Match(b) {
			out = append(out, *b)
		}
	}
	store.SortBookings(out)
	return out, nil
}

func (s *Store) scanKeys(ctx context.Context) ([]string, error) {
	match := s.docKey("*")
	trim := len(s.docKey(""))

	var (
		cursor uint64
		out    []string
	)
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			out = append(out, k[trim:])
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error { return nil }
