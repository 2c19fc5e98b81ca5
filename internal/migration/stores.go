package migration

import (
	"context"

	"example.com/migration/internal/source"
)

// LegacySource is the read-only view of the v1 store the phases consume.
// *source.Client satisfies it; tests substitute stubs.
type LegacySource interface {
	Connect(ctx context.Context, email, password string) error
	EnsureHealthy(ctx context.Context) error
	Count(ctx context.Context, table string) (int, error)
	ActivityByID(ctx context.Context, id string) (*source.Activity, error)
	ActivitiesWithOverrides(ctx context.Context) ([]source.Activity, error)
	TimeslicePage(ctx context.Context, offset, limit int) ([]source.Timeslice, error)
	NotePage(ctx context.Context, offset, limit int) ([]source.Note, error)
	StatePage(ctx context.Context, offset, limit int) ([]source.State, error)
	Status() source.Status
	Close(ctx context.Context) error
}

// ActivityMapping is the user-authored decision for one source activity:
// either map onto an existing target activity or create a new one. A mapping
// with neither is skipped, not migrated.
type ActivityMapping struct {
	SourceID    string       `json:"sourceId" yaml:"source_id"`
	TargetID    string       `json:"targetId,omitempty" yaml:"target_id,omitempty"`
	CreateNew   bool         `json:"createNew,omitempty" yaml:"create_new,omitempty"`
	NewActivity *NewActivity `json:"newActivityData,omitempty" yaml:"new_activity,omitempty"`
}

// NewActivity carries the fields for a to-be-created target activity.
type NewActivity struct {
	Name     string `json:"name" yaml:"name"`
	Color    string `json:"color" yaml:"color"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// TargetActivity is an already-existing v2 activity, listed so the user can
// map source activities onto it.
type TargetActivity struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Color      string   `json:"color"`
	Weight     float64  `json:"weight"`
	Categories []string `json:"activityCategories"`
}

// ActivityInsert is the payload for a created-or-upserted target activity.
type ActivityInsert struct {
	Name       string
	Color      string
	Weight     float64
	Categories []string
	UserID     string
}

// TimesliceInsert is the payload for a migrated timeslice. NoteIDs and StateID
// are intentionally incomplete at insert time; the notes and states phases
// back-fill them.
type TimesliceInsert struct {
	ActivityID string
	UserID     string
	StartTime  string
	EndTime    string
	NoteIDs    []string
	StateID    *string
}

// NoteInsert is the payload for a migrated note. Message is always cleartext
// or the decryption sentinel, never raw ciphertext.
type NoteInsert struct {
	TimesliceID string
	UserID      string
	Message     string
	CreatedAt   string
}

// StateInsert is the payload for a migrated state. A nil Energy is omitted
// from the insert entirely rather than written as null.
type StateInsert struct {
	TimesliceID string
	UserID      string
	Energy      *float64
	CreatedAt   string
}

// ActivityStore is the target-side write contract for activities.
type ActivityStore interface {
	Upsert(ctx context.Context, activity ActivityInsert) (string, error)
	List(ctx context.Context) ([]TargetActivity, error)
}

// TimesliceStore is the target-side contract for timeslices, including the
// back-fill operations the notes and states phases perform.
type TimesliceStore interface {
	InsertMany(ctx context.Context, items []TimesliceInsert) ([]string, error)
	InsertOne(ctx context.Context, item TimesliceInsert) (string, error)
	NoteIDs(ctx context.Context, id string) ([]string, error)
	SetNoteIDs(ctx context.Context, id string, noteIDs []string) error
	SetStateID(ctx context.Context, id, stateID string) error
}

// NoteStore is the target-side write contract for notes.
type NoteStore interface {
	InsertMany(ctx context.Context, items []NoteInsert) ([]string, error)
	InsertOne(ctx context.Context, item NoteInsert) (string, error)
}

// StateStore is the target-side write contract for states.
type StateStore interface {
	InsertMany(ctx context.Context, items []StateInsert) ([]string, error)
	InsertOne(ctx context.Context, item StateInsert) (string, error)
}
