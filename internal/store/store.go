// Package store defines the booking persistence contract shared by every
// backend: point reads, listings and a per-key read-then-write transaction.
package store

import (
	"context"
	"errors"
	"sort"

	"techslots/internal/model"
	"techslots/internal/slots"
)

var (
	// ErrNotFound is returned by Get when no record exists at the key.
	ErrNotFound = errors.New("booking not found")
	// ErrConflict is returned when a backend's own uniqueness guard rejects
	// a write because another transaction created the key first.
	ErrConflict = errors.New("slot key already written")
)

// Tx is the unit of work bound to a single slot key.
type Tx interface {
	// Get returns the record at the key, or nil when absent.
	Get(ctx context.Context) (*model.Booking, error)
	// Put creates or replaces the record at the key. A zero CreatedAt is
	// assigned by the store at commit.
	Put(ctx context.Context, b *model.Booking) error
}

// TxFunc runs inside a transaction. Returning an error rolls it back and the
// error is passed to the caller unchanged.
type TxFunc func(ctx context.Context, tx Tx) error

// Filter selects bookings for List. Empty fields match everything.
type Filter struct {
	TechnicianID string
	ClientID     string
	Date         string
}

// Store persists bookings keyed by slot.
type Store interface {
	RunTransaction(ctx context.Context, key slots.Key, fn TxFunc) error
	Get(ctx context.Context, key slots.Key) (*model.Booking, error)
	List(ctx context.Context, f Filter) ([]model.Booking, error)
	Ping(ctx context.Context) error
	Close() error
}

// Match reports whether b satisfies the filter.
func (f Filter) Match(b *model.Booking) bool {
	if f.TechnicianID != "" && b.TechnicianID != f.TechnicianID {
		return false
	}
	if f.ClientID != "" && b.ClientID != f.ClientID {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	return true
}

// SortBookings orders by date, then start hour, then key.
func SortBookings(list []model.Booking) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		if list[i].Start != list[j].Start {
			return list[i].Start < list[j].Start
		}
		return list[i].Key < list[j].Key
	})
}
