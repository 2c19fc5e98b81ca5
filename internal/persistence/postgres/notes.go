package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/migration/internal/migration"
)

// NoteRepository persists v2 notes.
type NoteRepository struct {
	pool *pgxpool.Pool
}

var noteColumns = []string{"note_id", "timeslice_id", "user_id", "message", "created_at"}

// InsertMany bulk-inserts notes and returns their new IDs in input order.
func (r *NoteRepository) InsertMany(ctx context.Context, items []migration.NoteInsert) ([]string, error) {
	ids := make([]string, len(items))
	rows := make([][]any, len(items))
	for i, item := range items {
		ids[i] = uuid.NewString()
		createdAt, err := parseTimestamp(item.CreatedAt)
		if err != nil {
			return nil, err
		}
		rows[i] = []any{ids[i], item.TimesliceID, item.UserID, item.Message, createdAt}
	}

	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"notes"}, noteColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertOne inserts a single note and returns its new ID.
func (r *NoteRepository) InsertOne(ctx context.Context, item migration.NoteInsert) (string, error) {
	const stmt = `INSERT INTO notes (note_id, timeslice_id, user_id, message, created_at)
        VALUES ($1,$2,$3,$4,$5) RETURNING note_id`

	createdAt, err := parseTimestamp(item.CreatedAt)
	if err != nil {
		return "", err
	}

	var id string
	err = r.pool.QueryRow(ctx, stmt, uuid.NewString(), item.TimesliceID, item.UserID, item.Message, createdAt).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
