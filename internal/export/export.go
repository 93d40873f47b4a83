// Package export writes bookings to an Excel workbook, one sheet per
// technician.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"techslots/internal/model"
)

// Lister returns every stored booking.
type Lister interface {
	ListAll(ctx context.Context) ([]model.Booking, error)
}

var columns = []string{"Key", "Date", "Start", "End", "Client", "Status", "Description", "Created At"}

// Options filters the export. A zero Month exports everything.
type Options struct {
	Month time.Time
}

// Bookings writes the bookings returned by src into w and returns how many
// rows were written.
func Bookings(ctx context.Context, src Lister, w Writer, opts Options) (int, error) {
	list, err := src.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}

	prefix := ""
	if !opts.Month.IsZero() {
		prefix = opts.Month.Format("2006-01") + "-"
	}

	byTech := make(map[string][]model.Booking)
	for _, b := range list {
		if prefix != "" && !strings.HasPrefix(b.Date, prefix) {
			continue
		}
		byTech[b.TechnicianID] = append(byTech[b.TechnicianID], b)
	}

	techs := make([]string, 0, len(byTech))
	for id := range byTech {
		techs = append(techs, id)
	}
	sort.Strings(techs)

	if len(techs) == 0 {
		if err := w.AddSheet("Bookings"); err != nil {
			return 0, err
		}
		return 0, w.WriteHeader(columns)
	}

	rows := 0
	for _, id := range techs {
		if err := w.AddSheet(id); err != nil {
			return rows, err
		}
		if err := w.WriteHeader(columns); err != nil {
			return rows, err
		}
		for _, b := range byTech[id] {
			created := ""
			if !b.CreatedAt.IsZero() {
				created = b.CreatedAt.UTC().Format(time.RFC3339)
			}
			row := []any{b.Key, b.Date, b.Start, b.End, b.ClientID, string(b.Status), b.Description, created}
			if err := w.WriteRow(row); err != nil {
				return rows, err
			}
			rows++
		}
	}
	return rows, nil
}

// GenerateFilename creates a name like "bookings_2025-10.xlsx".
func GenerateFilename(month time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", month.Format("2006-01"))
}
