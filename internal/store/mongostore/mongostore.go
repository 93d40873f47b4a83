// Package mongostore keeps bookings in a MongoDB collection keyed by slot.
// Transactions need a replica set or sharded cluster.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

const maxTxAttempts = 5

// Config names the deployment and collection.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store is a store.Store over the official Mongo driver.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger zerolog.Logger
}

// Open connects, pings and ensures the slot uniqueness index.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = "techslots"
	}
	if cfg.Collection == "" {
		cfg.Collection = "bookings"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: logger.With().Str("component", "mongostore").Logger(),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "technicianId", Value: 1}, {Key: "date", Value: 1}, {Key: "start", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_technician_slot"),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("client_date"),
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// mapError turns duplicate keys and write conflicts into store.ErrConflict.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrConflict
	}
	return err
}

func isTransient(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError")
}

type tx struct {
	coll   *mongo.Collection
	key    string
	exists bool
}

func (t *tx) Get(ctx context.Context) (*model.Booking, error) {
	var b model.Booking
	err := t.coll.FindOne(ctx, bson.M{"_id": t.key}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		t.exists = false
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	t.exists = true
	return &b, nil
}

func (t *tx) Put(ctx context.Context, b *model.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	doc := *b
	doc.Key = t.key

	if t.exists {
		if _, err := t.coll.ReplaceOne(ctx, bson.M{"_id": t.key}, doc); err != nil {
			return fmt.Errorf("replace booking: %w", mapError(err))
		}
		return nil
	}
	if _, err := t.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert booking: %w", mapError(err))
	}
	t.exists = true
	return nil
}

// RunTransaction runs fn inside a session transaction and retries on
// transient transaction errors, which is how a racing writer on the same
// document surfaces.
func (s *Store) RunTransaction(ctx context.Context, key slots.Key, fn store.TxFunc) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		lastErr = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
			if err := sc.StartTransaction(); err != nil {
				return err
			}
			if err := fn(sc, &tx{coll: s.coll, key: key.String()}); err != nil {
				_ = sc.AbortTransaction(sc)
				return err
			}
			return sc.CommitTransaction(sc)
		})
		if lastErr == nil || !isTransient(lastErr) {
			break
		}
		s.logger.Debug().Err(lastErr).Str("key", key.String()).Int("attempt", attempt+1).Msg("transient transaction error, retrying")
	}
	return mapError(lastErr)
}

func (s *Store) Get(ctx context.Context, key slots.Key) (*model.Booking, error) {
	var b model.Booking
	err := s.coll.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &b, nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]model.Booking, error) {
	filter := bson.M{}
	if f.TechnicianID != "" {
		filter["technicianId"] = f.TechnicianID
	}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}
	if f.Date != "" {
		filter["date"] = f.Date
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]model.Booking, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
