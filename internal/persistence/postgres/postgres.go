// Package postgres provides the target-store (v2) repositories the migration
// pipeline writes into. Each repository satisfies the matching store interface
// in internal/migration.
package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories bundles the per-entity repositories over one pool.
type Repositories struct {
	Activities *ActivityRepository
	Timeslices *TimesliceRepository
	Notes      *NoteRepository
	States     *StateRepository
}

// New constructs all repositories over the shared pool.
func New(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Activities: &ActivityRepository{pool: pool},
		Timeslices: &TimesliceRepository{pool: pool},
		Notes:      &NoteRepository{pool: pool},
		States:     &StateRepository{pool: pool},
	}
}

// localLayout is the offset-free wall-clock form produced by the timestamp
// converter.
const localLayout = "2006-01-02T15:04:05"

// parseTimestamp accepts either the converter's local wall-clock form or an
// RFC 3339 string (notes keep their original creation timestamps).
func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(localLayout, value); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", value, err)
	}
	return ts.UTC(), nil
}
