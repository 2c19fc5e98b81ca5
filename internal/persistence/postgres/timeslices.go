package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/migration/internal/migration"
)

// TimesliceRepository persists v2 timeslices and performs the back-fill
// updates issued by the notes and states phases.
type TimesliceRepository struct {
	pool *pgxpool.Pool
}

var timesliceColumns = []string{"timeslice_id", "activity_id", "user_id", "start_time", "end_time", "note_ids", "state_id"}

// InsertMany bulk-inserts timeslices and returns their new IDs in input order.
// IDs are generated client-side so the caller's positional zip holds even
// though the copy protocol reports no per-row results.
func (r *TimesliceRepository) InsertMany(ctx context.Context, items []migration.TimesliceInsert) ([]string, error) {
	ids := make([]string, len(items))
	rows := make([][]any, len(items))
	for i, item := range items {
		ids[i] = uuid.NewString()
		start, err := parseTimestamp(item.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := parseTimestamp(item.EndTime)
		if err != nil {
			return nil, err
		}
		noteIDs := item.NoteIDs
		if noteIDs == nil {
			noteIDs = []string{}
		}
		rows[i] = []any{ids[i], item.ActivityID, item.UserID, start, end, noteIDs, item.StateID}
	}

	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"timeslices"}, timesliceColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertOne inserts a single timeslice and returns its new ID.
func (r *TimesliceRepository) InsertOne(ctx context.Context, item migration.TimesliceInsert) (string, error) {
	const stmt = `INSERT INTO timeslices (timeslice_id, activity_id, user_id, start_time, end_time, note_ids, state_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING timeslice_id`

	start, err := parseTimestamp(item.StartTime)
	if err != nil {
		return "", err
	}
	end, err := parseTimestamp(item.EndTime)
	if err != nil {
		return "", err
	}
	noteIDs := item.NoteIDs
	if noteIDs == nil {
		noteIDs = []string{}
	}

	var id string
	err = r.pool.QueryRow(ctx, stmt,
		uuid.NewString(), item.ActivityID, item.UserID, start, end, noteIDs, item.StateID,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// NoteIDs reads the current note_ids array of a timeslice.
func (r *TimesliceRepository) NoteIDs(ctx context.Context, id string) ([]string, error) {
	const query = `SELECT note_ids FROM timeslices WHERE timeslice_id = $1`

	var noteIDs []string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&noteIDs); err != nil {
		return nil, err
	}
	return noteIDs, nil
}

// SetNoteIDs replaces the note_ids array of a timeslice.
func (r *TimesliceRepository) SetNoteIDs(ctx context.Context, id string, noteIDs []string) error {
	const stmt = `UPDATE timeslices SET note_ids = $2 WHERE timeslice_id = $1`
	if noteIDs == nil {
		noteIDs = []string{}
	}
	_, err := r.pool.Exec(ctx, stmt, id, noteIDs)
	return err
}

// SetStateID points a timeslice at its migrated state.
func (r *TimesliceRepository) SetStateID(ctx context.Context, id, stateID string) error {
	const stmt = `UPDATE timeslices SET state_id = $2 WHERE timeslice_id = $1`
	_, err := r.pool.Exec(ctx, stmt, id, stateID)
	return err
}
