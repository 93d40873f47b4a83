// Package firestore stores bookings as documents in a Cloud Firestore
// collection, one document per slot key.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

// DefaultCollection is the booking collection name.
const DefaultCollection = "bookings"

// ClientConfig selects the Firebase project and credentials.
type ClientConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewClient initializes a Firebase app and returns its Firestore client.
// With FIRESTORE_EMULATOR_HOST set the client talks to the emulator.
func NewClient(ctx context.Context, cfg ClientConfig) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: initialize app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: firestore client: %w", err)
	}
	return client, nil
}

// Store is a store.Store over a Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// New wraps a client. Close closes it.
func New(client *firestore.Client, collection string, logger zerolog.Logger) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		client:     client,
		collection: collection,
		logger:     logger.With().Str("component", "firestore").Logger(),
	}
}

func (s *Store) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(key)
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

type tx struct {
	ftx     *firestore.Transaction
	ref     *firestore.DocumentRef
	written *model.Booking
}

func (t *tx) Get(ctx context.Context) (*model.Booking, error) {
	snap, err := t.ftx.Get(t.ref)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("firestore tx get: %w", err)
	}
	return decode(snap)
}

// Put sets the whole document. A zero CreatedAt becomes a server timestamp
// through the field's serverTimestamp tag.
func (t *tx) Put(ctx context.Context, b *model.Booking) error {
	if err := t.ftx.Set(t.ref, b); err != nil {
		return fmt.Errorf("firestore tx set: %w", err)
	}
	t.written = b
	return nil
}

func decode(snap *firestore.DocumentSnapshot) (*model.Booking, error) {
	var b model.Booking
	if err := snap.DataTo(&b); err != nil {
		return nil, fmt.Errorf("decode booking %s: %w", snap.Ref.ID, err)
	}
	b.Key = snap.Ref.ID
	if st, err := model.ParseStatus(string(b.Status)); err == nil {
		b.Status = st
	}
	return &b, nil
}

// RunTransaction uses Firestore's optimistic transactions; the client reruns
// fn when the document changed underneath it. A fresh record's createdAt is
// only known after commit, so it is read back into the caller's value.
func (s *Store) RunTransaction(ctx context.Context, key slots.Key, fn store.TxFunc) error {
	ref := s.doc(key.String())

	var written *model.Booking
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		t := &tx{ftx: ftx, ref: ref}
		if err := fn(ctx, t); err != nil {
			return err
		}
		written = t.written
		return nil
	})
	if status.Code(err) == codes.AlreadyExists {
		return store.ErrConflict
	}
	if err != nil {
		return err
	}

	if written != nil && written.CreatedAt.IsZero() {
		snap, err := ref.Get(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key.String()).Msg("read back createdAt failed")
			return nil
		}
		if saved, err := decode(snap); err == nil {
			written.CreatedAt = saved.CreatedAt
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key slots.Key) (*model.Booking, error) {
	snap, err := s.doc(key.String()).Get(ctx)
	if notFound(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore get: %w", err)
	}
	return decode(snap)
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]model.Booking, error) {
	q := s.client.Collection(s.collection).Query
	if f.TechnicianID != "" {
		q = q.Where("technicianId", "==", f.TechnicianID)
	}
	if f.ClientID != "" {
		q = q.Where("clientId", "==", f.ClientID)
	}
	if f.Date != "" {
		q = q.Where("date", "==", f.Date)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := make([]model.Booking, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore list: %w", err)
		}
		b, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	// Ordering in memory avoids a composite index per filter combination.
	store.SortBookings(out)
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	iter := s.client.Collection(s.collection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
