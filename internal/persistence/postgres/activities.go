package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/migration/internal/migration"
)

// ActivityRepository persists v2 activities.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates the activity or, when one with the same name already exists
// for the user, refreshes it in place. Returns the target activity ID.
func (r *ActivityRepository) Upsert(ctx context.Context, activity migration.ActivityInsert) (string, error) {
	const stmt = `INSERT INTO activities (activity_id, user_id, name, color, weight, activity_categories)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id, name) DO UPDATE
        SET color = EXCLUDED.color, weight = EXCLUDED.weight, activity_categories = EXCLUDED.activity_categories
        RETURNING activity_id`

	categories := activity.Categories
	if categories == nil {
		categories = []string{}
	}

	var id string
	err := r.pool.QueryRow(ctx, stmt,
		uuid.NewString(),
		activity.UserID,
		activity.Name,
		activity.Color,
		activity.Weight,
		categories,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// List returns all target activities ordered by name, for the mapping UI.
func (r *ActivityRepository) List(ctx context.Context) ([]migration.TargetActivity, error) {
	const query = `SELECT activity_id, name, color, weight, activity_categories
        FROM activities ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []migration.TargetActivity
	for rows.Next() {
		var a migration.TargetActivity
		if err := rows.Scan(&a.ID, &a.Name, &a.Color, &a.Weight, &a.Categories); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
