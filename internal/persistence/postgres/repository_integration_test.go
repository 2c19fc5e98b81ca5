//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/migration/internal/migration"
)

func TestRepositoriesRoundTrip(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("cadence"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repos := New(pool)
	userID := uuid.NewString()

	activityID, err := repos.Activities.Upsert(ctx, migration.ActivityInsert{
		UserID: userID,
		Name:   "Deep Work",
		Color:  "#336699",
		Weight: 0.5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, activityID)

	// Upserting the same user/name pair must reuse the existing row.
	sameID, err := repos.Activities.Upsert(ctx, migration.ActivityInsert{
		UserID: userID,
		Name:   "Deep Work",
		Color:  "#ff0000",
		Weight: 0.5,
	})
	require.NoError(t, err)
	require.Equal(t, activityID, sameID)

	listed, err := repos.Activities.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "#ff0000", listed[0].Color)

	timesliceIDs, err := repos.Timeslices.InsertMany(ctx, []migration.TimesliceInsert{
		{ActivityID: activityID, UserID: userID, StartTime: "2024-06-15T08:00:00", EndTime: "2024-06-15T09:00:00", NoteIDs: []string{}},
		{ActivityID: activityID, UserID: userID, StartTime: "2024-06-15T09:00:00", EndTime: "2024-06-15T10:00:00", NoteIDs: []string{}},
	})
	require.NoError(t, err)
	require.Len(t, timesliceIDs, 2)

	noteIDs, err := repos.Notes.InsertMany(ctx, []migration.NoteInsert{
		{TimesliceID: timesliceIDs[0], UserID: userID, Message: "first", CreatedAt: "2024-06-15T12:00:00Z"},
		{TimesliceID: timesliceIDs[0], UserID: userID, Message: "second", CreatedAt: "2024-06-15T12:05:00Z"},
	})
	require.NoError(t, err)
	require.Len(t, noteIDs, 2)

	require.NoError(t, repos.Timeslices.SetNoteIDs(ctx, timesliceIDs[0], noteIDs))

	stored, err := repos.Timeslices.NoteIDs(ctx, timesliceIDs[0])
	require.NoError(t, err)
	require.Equal(t, noteIDs, stored)

	energy := 0.8
	stateIDs, err := repos.States.InsertMany(ctx, []migration.StateInsert{
		{TimesliceID: timesliceIDs[0], UserID: userID, Energy: &energy, CreatedAt: "2024-06-15T08:30:00"},
		{TimesliceID: timesliceIDs[1], UserID: userID, Energy: nil, CreatedAt: "2024-06-15T09:30:00"},
	})
	require.NoError(t, err)
	require.Len(t, stateIDs, 2)

	require.NoError(t, repos.Timeslices.SetStateID(ctx, timesliceIDs[0], stateIDs[0]))

	var storedEnergy float64
	err = pool.QueryRow(ctx, `SELECT energy FROM states WHERE state_id = $1`, stateIDs[0]).Scan(&storedEnergy)
	require.NoError(t, err)
	require.Equal(t, 0.8, storedEnergy)

	// A state inserted without a reading falls back to the column default.
	err = pool.QueryRow(ctx, `SELECT energy FROM states WHERE state_id = $1`, stateIDs[1]).Scan(&storedEnergy)
	require.NoError(t, err)
	require.Equal(t, 0.5, storedEnergy)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
