// Package memstore is an in-process Store used for tests and local runs.
package memstore

import (
	"context"
	"sync"
	"time"

	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

// Store keeps bookings in a map and serializes transactions per key.
type Store struct {
	mu      sync.RWMutex
	records map[string]model.Booking

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]model.Booking),
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

func (s *Store) keyLock(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

type tx struct {
	s       *Store
	key     string
	pending *model.Booking
}

func (t *tx) Get(ctx context.Context) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.pending != nil {
		b := *t.pending
		return &b, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.records[t.key]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (t *tx) Put(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Key = t.key
	t.pending = b
	return nil
}

// RunTransaction holds the key's lock while fn runs and applies its write on
// success.
func (s *Store) RunTransaction(ctx context.Context, key slots.Key, fn store.TxFunc) error {
	k := key.String()
	l := s.keyLock(k)
	l.Lock()
	defer l.Unlock()

	t := &tx{s: s, key: k}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if t.pending == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.pending.CreatedAt.IsZero() {
		t.pending.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	s.records[k] = *t.pending
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, key slots.Key) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.records[key.String()]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]model.Booking, error) {
	s.mu.RLock()
	out := make([]model.Booking, 0)
	for _, b := range s.records {
		if f.Match(&b) {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()
	store.SortBookings(out)
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
