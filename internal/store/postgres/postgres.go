// Package postgres stores bookings in PostgreSQL through a pgx pool. The
// (technician_id, date, hour) primary key is the uniqueness guard.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

const uniqueViolation = "23505"

const selectColumns = `slot_key, technician_id, client_id, date, start, "end", description, status, created_at`

// Store is a store.Store over pgxpool.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Open connects, pings and migrates.
func Open(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool, logger: logger.With().Str("component", "postgres").Logger()}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			technician_id TEXT NOT NULL,
			date TEXT NOT NULL,
			hour SMALLINT NOT NULL CHECK (hour BETWEEN 0 AND 23),
			slot_key TEXT NOT NULL UNIQUE,
			client_id TEXT NOT NULL,
			start TEXT NOT NULL,
			"end" TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'requested',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (technician_id, date, hour)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_client ON bookings (client_id, date, start)`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// IsConflict reports whether err is a unique violation.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	if err := row.Scan(&b.Key, &b.TechnicianID, &b.ClientID, &b.Date, &b.Start, &b.End, &b.Description, &status, &b.CreatedAt); err != nil {
		return nil, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	b.Status = st
	return &b, nil
}

type tx struct {
	pgTx   pgx.Tx
	key    slots.Key
	exists bool
}

// Get locks the row for the rest of the transaction when it exists.
func (t *tx) Get(ctx context.Context) (*model.Booking, error) {
	row := t.pgTx.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM bookings WHERE technician_id = $1 AND date = $2 AND hour = $3 FOR UPDATE`,
		t.key.TechnicianID, t.key.Date, t.key.Hour)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		t.exists = false
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select booking: %w", err)
	}
	t.exists = true
	return b, nil
}

// Put inserts when the row was absent, so two racing creators meet the
// primary key and the loser gets store.ErrConflict.
func (t *tx) Put(ctx context.Context, b *model.Booking) error {
	var created *time.Time
	if !b.CreatedAt.IsZero() {
		created = &b.CreatedAt
	}

	if t.exists {
		err := t.pgTx.QueryRow(ctx,
			`UPDATE bookings SET client_id = $4, "end" = $5, description = $6, status = $7, created_at = COALESCE($8, now())
			 WHERE technician_id = $1 AND date = $2 AND hour = $3
			 RETURNING created_at`,
			t.key.TechnicianID, t.key.Date, t.key.Hour, b.ClientID, b.End, b.Description, string(b.Status), created,
		).Scan(&b.CreatedAt)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		return nil
	}

	err := t.pgTx.QueryRow(ctx,
		`INSERT INTO bookings (technician_id, date, hour, slot_key, client_id, start, "end", description, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
		 RETURNING created_at`,
		t.key.TechnicianID, t.key.Date, t.key.Hour, t.key.String(), b.ClientID, t.key.Start(), b.End,
		b.Description, string(b.Status), created,
	).Scan(&b.CreatedAt)
	if IsConflict(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	t.exists = true
	return nil
}

func (s *Store) RunTransaction(ctx context.Context, key slots.Key, fn store.TxFunc) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	if err := fn(ctx, &tx{pgTx: pgTx, key: key}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		if IsConflict(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key slots.Key) (*model.Booking, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM bookings WHERE technician_id = $1 AND date = $2 AND hour = $3`,
		key.TechnicianID, key.Date, key.Hour)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.TechnicianID != "" {
		add("technician_id = $%d", f.TechnicianID)
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.Date != "" {
		add("date = $%d", f.Date)
	}

	q := `SELECT ` + selectColumns + ` FROM bookings`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date, start, slot_key"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
