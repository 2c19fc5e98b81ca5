package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/migration/internal/migration"
)

// StateRepository persists v2 states.
type StateRepository struct {
	pool *pgxpool.Pool
}

var (
	stateColumns         = []string{"state_id", "timeslice_id", "user_id", "energy", "created_at"}
	stateColumnsNoEnergy = []string{"state_id", "timeslice_id", "user_id", "created_at"}
)

// InsertMany bulk-inserts states and returns their new IDs in input order.
// Rows without an energy reading are copied without the energy column so the
// table default applies instead of an explicit NULL.
func (r *StateRepository) InsertMany(ctx context.Context, items []migration.StateInsert) ([]string, error) {
	ids := make([]string, len(items))
	var withEnergy, withoutEnergy [][]any
	for i, item := range items {
		ids[i] = uuid.NewString()
		createdAt, err := parseTimestamp(item.CreatedAt)
		if err != nil {
			return nil, err
		}
		if item.Energy != nil {
			withEnergy = append(withEnergy, []any{ids[i], item.TimesliceID, item.UserID, *item.Energy, createdAt})
		} else {
			withoutEnergy = append(withoutEnergy, []any{ids[i], item.TimesliceID, item.UserID, createdAt})
		}
	}

	if len(withEnergy) > 0 {
		_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"states"}, stateColumns, pgx.CopyFromRows(withEnergy))
		if err != nil {
			return nil, err
		}
	}
	if len(withoutEnergy) > 0 {
		_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"states"}, stateColumnsNoEnergy, pgx.CopyFromRows(withoutEnergy))
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// InsertOne inserts a single state and returns its new ID. The energy column
// is omitted entirely when the source row carried no reading.
func (r *StateRepository) InsertOne(ctx context.Context, item migration.StateInsert) (string, error) {
	createdAt, err := parseTimestamp(item.CreatedAt)
	if err != nil {
		return "", err
	}

	var id string
	if item.Energy != nil {
		const stmt = `INSERT INTO states (state_id, timeslice_id, user_id, energy, created_at)
            VALUES ($1,$2,$3,$4,$5) RETURNING state_id`
		err = r.pool.QueryRow(ctx, stmt, uuid.NewString(), item.TimesliceID, item.UserID, *item.Energy, createdAt).Scan(&id)
	} else {
		const stmt = `INSERT INTO states (state_id, timeslice_id, user_id, created_at)
            VALUES ($1,$2,$3,$4) RETURNING state_id`
		err = r.pool.QueryRow(ctx, stmt, uuid.NewString(), item.TimesliceID, item.UserID, createdAt).Scan(&id)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
