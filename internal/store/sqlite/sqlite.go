// Package sqlite stores bookings in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

const selectColumns = `slot_key, technician_id, client_id, date, start, "end", description, status, created_at`

// Store is a store.Store over database/sql and go-sqlite3.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Open creates the database directory and schema if needed. Transactions
// begin IMMEDIATE so that two writers for the same key are serialized by
// SQLite's write lock.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if path == "" {
		path = "data/techslots.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, path: path, logger: logger.With().Str("component", "sqlite").Logger()}
	s.logger.Info().Str("path", path).Msg("database initialized")
	return s, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            slot_key TEXT PRIMARY KEY,
            technician_id TEXT NOT NULL,
            client_id TEXT NOT NULL,
            date TEXT NOT NULL,
            hour INTEGER NOT NULL,
            start TEXT NOT NULL,
            "end" TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'requested',
            created_at TEXT NOT NULL,
            UNIQUE (technician_id, date, hour)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_technician ON bookings(technician_id, date, start)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_client ON bookings(client_id, date, start)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b       model.Booking
		status  string
		created string
	)
	if err := row.Scan(&b.Key, &b.TechnicianID, &b.ClientID, &b.Date, &b.Start, &b.End, &b.Description, &status, &created); err != nil {
		return nil, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	b.Status = st
	if b.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &b, nil
}

type tx struct {
	sqlTx  *sql.Tx
	key    slots.Key
	exists bool
}

func (t *tx) Get(ctx context.Context) (*model.Booking, error) {
	row := t.sqlTx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM bookings WHERE slot_key = ?`, t.key.String())
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		t.exists = false
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select booking: %w", err)
	}
	t.exists = true
	return b, nil
}

func (t *tx) Put(ctx context.Context, b *model.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	created := b.CreatedAt.UTC().Format(time.RFC3339Nano)

	if t.exists {
		_, err := t.sqlTx.ExecContext(ctx,
			`UPDATE bookings SET client_id = ?, "end" = ?, description = ?, status = ?, created_at = ? WHERE slot_key = ?`,
			b.ClientID, b.End, b.Description, string(b.Status), created, t.key.String())
		if err != nil {
			return fmt.Errorf("update booking: %w", mapError(err))
		}
		return nil
	}

	_, err := t.sqlTx.ExecContext(ctx,
		`INSERT INTO bookings (slot_key, technician_id, client_id, date, hour, start, "end", description, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.key.String(), t.key.TechnicianID, b.ClientID, t.key.Date, t.key.Hour, t.key.Start(), b.End,
		b.Description, string(b.Status), created)
	if err != nil {
		return fmt.Errorf("insert booking: %w", mapError(err))
	}
	t.exists = true
	return nil
}

func mapError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return store.ErrConflict
	}
	return err
}

func (s *Store) RunTransaction(ctx context.Context, key slots.Key, fn store.TxFunc) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(ctx, &tx{sqlTx: sqlTx, key: key}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", mapError(err))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key slots.Key) (*model.Booking, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM bookings WHERE slot_key = ?`, key.String())
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	if f.TechnicianID != "" {
		where = append(where, "technician_id = ?")
		args = append(args, f.TechnicianID)
	}
	if f.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.Date != "" {
		where = append(where, "date = ?")
		args = append(args, f.Date)
	}

	q := `SELECT ` + selectColumns + ` FROM bookings`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date, start, slot_key"

	rows, err := s.db.QueryContext(ctx, q, args...)
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
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
