// Package migration implements the legacy-data migration pipeline: paginated
// fetch from the v1 store, cross-entity ID remapping, batch-with-fallback
// writes to the v2 store, and the orchestration of the four entity phases.
package migration

import (
	"context"
	"errors"
	"log"

	"example.com/migration/internal/notecrypt"
	"example.com/migration/internal/observability"
)

var (
	// ErrActivitiesFirst gates the timeslices phase on a populated activity
	// mapping table.
	ErrActivitiesFirst = errors.New("activity mappings not found: migrate activities first")
	// ErrTimeslicesFirst gates the notes and states phases on a populated
	// timeslice mapping table.
	ErrTimeslicesFirst = errors.New("timeslice mappings not found: migrate timeslices first")
)

// defaultWeight is assigned to newly created activities; the legacy schema has
// no weight concept, so migrated activities start at the midpoint.
const defaultWeight = 0.5

// Sizes bundles the page and batch sizes per entity.
type Sizes struct {
	TimeslicePage  int
	NotePage       int
	StatePage      int
	TimesliceBatch int
	NoteBatch      int
	StateBatch     int
}

// DefaultSizes returns the page/batch sizes the legacy migration shipped with.
func DefaultSizes() Sizes {
	return Sizes{
		TimeslicePage:  1000,
		NotePage:       100,
		StatePage:      100,
		TimesliceBatch: 100,
		NoteBatch:      50,
		StateBatch:     50,
	}
}

// PhaseResult reports the outcome of one entity phase. Record-level failures
// are counted here, never returned as errors.
type PhaseResult struct {
	MigratedCount  int `json:"migratedCount"`
	SkippedCount   int `json:"skippedCount,omitempty"`
	EncryptedCount int `json:"encryptedCount,omitempty"`
	BackfillErrors int `json:"backfillErrors,omitempty"`
}

// MigratorParams wires a Migrator's collaborators.
type MigratorParams struct {
	Source     LegacySource
	Session    *Session
	Activities ActivityStore
	Timeslices TimesliceStore
	Notes      NoteStore
	States     StateStore
	Processor  *notecrypt.Processor
	Timezone   string
	Sizes      Sizes
	Logger     *log.Logger
}

// Migrator runs the four entity phases against one Session.
type Migrator struct {
	src        LegacySource
	session    *Session
	activities ActivityStore
	timeslices TimesliceStore
	notes      NoteStore
	states     StateStore
	processor  *notecrypt.Processor
	timezone   string
	sizes      Sizes
	logger     *log.Logger
}

// NewMigrator constructs a Migrator, filling defaults for optional params.
func NewMigrator(p MigratorParams) *Migrator {
	if p.Session == nil {
		p.Session = NewSession()
	}
	if p.Processor == nil {
		p.Processor = notecrypt.NewProcessor("")
	}
	if p.Sizes == (Sizes{}) {
		p.Sizes = DefaultSizes()
	}
	if p.Logger == nil {
		p.Logger = log.New(log.Writer(), "[migration] ", log.LstdFlags)
	}
	return &Migrator{
		src:        p.Source,
		session:    p.Session,
		activities: p.Activities,
		timeslices: p.Timeslices,
		notes:      p.Notes,
		states:     p.States,
		processor:  p.Processor,
		timezone:   p.Timezone,
		sizes:      p.Sizes,
		logger:     p.Logger,
	}
}

// Session exposes the run's mapping state.
func (m *Migrator) Session() *Session { return m.session }

// MigrateActivities resolves each user-authored mapping into an entry of the
// activity mapping table. CreateNew mappings upsert a new target activity with
// the midpoint weight; TargetID mappings perform no write. Mappings with
// neither decision, and per-record fetch or write failures, are skipped.
func (m *Migrator) MigrateActivities(ctx context.Context, mappings []ActivityMapping) (PhaseResult, error) {
	if err := m.src.EnsureHealthy(ctx); err != nil {
		return PhaseResult{}, err
	}

	var result PhaseResult
	for _, mapping := range mappings {
		if mapping.TargetID == "" && !mapping.CreateNew {
			result.SkippedCount++
			continue
		}

		sourceActivity, err := m.src.ActivityByID(ctx, mapping.SourceID)
		if err != nil {
			m.logger.Printf("failed to fetch source activity %s: %v", mapping.SourceID, err)
			observability.RecordSkipped("activity", "fetch_failed")
			result.SkippedCount++
			continue
		}

		targetID := mapping.TargetID
		if mapping.CreateNew && mapping.NewActivity != nil {
			var categories []string
			if mapping.NewActivity.Category != "" {
				categories = []string{mapping.NewActivity.Category}
			}
			targetID, err = m.activities.Upsert(ctx, ActivityInsert{
				Name:       mapping.NewActivity.Name,
				Color:      mapping.NewActivity.Color,
				Weight:     defaultWeight,
				Categories: categories,
				UserID:     sourceActivity.UserID,
			})
			if err != nil {
				m.logger.Printf("failed to create target activity for source %s: %v", mapping.SourceID, err)
				observability.RecordSkipped("activity", "write_failed")
				result.SkippedCount++
				continue
			}
			m.logger.Printf("created target activity: v1 %s -> v2 %s", mapping.SourceID, targetID)
		} else if targetID == "" {
			m.logger.Printf("no valid mapping for source activity %s", mapping.SourceID)
			observability.RecordSkipped("activity", "invalid_mapping")
			result.SkippedCount++
			continue
		}

		m.session.MapActivity(mapping.SourceID, targetID)
		observability.RecordMigrated("activity")
		result.MigratedCount++
	}

	return result, nil
}

// MigrateTimeslices pages through all source timeslices, remaps their activity
// foreign keys, converts timestamps to local wall-clock time, and writes them
// in batches. Progress covers fetching in the first half of the scale and
// writing in the second, so the caller sees continuous forward motion.
func (m *Migrator) MigrateTimeslices(ctx context.Context, progress ProgressFunc) (PhaseResult, error) {
	if m.session.ActivityCount() == 0 {
		return PhaseResult{}, ErrActivitiesFirst
	}
	if err := m.src.EnsureHealthy(ctx); err != nil {
		return PhaseResult{}, err
	}

	rows, err := fetchAll(ctx, m.sizes.TimeslicePage,
		func(ctx context.Context) (int, error) { return m.src.Count(ctx, "timeslices") },
		m.src.TimeslicePage,
		fetchHalf(progress))
	if err != nil {
		return PhaseResult{}, err
	}
	if len(rows) == 0 {
		return PhaseResult{}, nil
	}
	m.logger.Printf("starting migration of %d timeslices", len(rows))

	var result PhaseResult
	records := make([]record[TimesliceInsert], 0, len(rows))
	for _, ts := range rows {
		activityID, ok := m.session.ActivityID(ts.ActivityID)
		if !ok {
			m.logger.Printf("no activity mapping for timeslice %s", ts.ID)
			observability.RecordSkipped("timeslice", "unmapped_activity")
			result.SkippedCount++
			continue
		}

		start, err := ConvertMigrationTimestamp(ts.StartTime, m.timezone)
		if err != nil {
			m.logger.Printf("bad start time on timeslice %s: %v", ts.ID, err)
			observability.RecordSkipped("timeslice", "bad_timestamp")
			result.SkippedCount++
			continue
		}
		end, err := ConvertMigrationTimestamp(ts.EndTime, m.timezone)
		if err != nil {
			m.logger.Printf("bad end time on timeslice %s: %v", ts.ID, err)
			observability.RecordSkipped("timeslice", "bad_timestamp")
			result.SkippedCount++
			continue
		}

		records = append(records, record[TimesliceInsert]{
			sourceID: ts.ID,
			data: TimesliceInsert{
				ActivityID: activityID,
				UserID:     ts.UserID,
				StartTime:  start.LocalString,
				EndTime:    end.LocalString,
				NoteIDs:    []string{}, // back-filled by the notes phase
				StateID:    nil,        // back-filled by the states phase
			},
		})
	}

	writeProgress := writeHalf(progress, len(rows))
	result.MigratedCount = migrateBatches(ctx, records, m.timeslices, m.sizes.TimesliceBatch, m.logger,
		func(sourceID, targetID string) {
			m.session.MapTimeslice(sourceID, targetID)
			observability.RecordMigrated("timeslice")
			writeProgress()
		})

	m.logger.Printf("completed timeslice migration: %d migrated", result.MigratedCount)
	return result, nil
}

// MigrateNotes pages through all source notes, remaps their timeslice foreign
// keys, converts each message to cleartext-or-sentinel, writes in batches, and
// then appends the new note IDs onto each touched target timeslice in a single
// second pass. The append accumulates: several notes can land on one
// timeslice, and existing IDs must never be overwritten.
func (m *Migrator) MigrateNotes(ctx context.Context, progress ProgressFunc) (PhaseResult, error) {
	if m.session.TimesliceCount() == 0 {
		return PhaseResult{}, ErrTimeslicesFirst
	}
	if err := m.src.EnsureHealthy(ctx); err != nil {
		return PhaseResult{}, err
	}

	rows, err := fetchAll(ctx, m.sizes.NotePage,
		func(ctx context.Context) (int, error) { return m.src.Count(ctx, "notes") },
		m.src.NotePage,
		fetchHalf(progress))
	if err != nil {
		return PhaseResult{}, err
	}
	if len(rows) == 0 {
		return PhaseResult{}, nil
	}
	m.logger.Printf("starting migration of %d notes", len(rows))

	var result PhaseResult
	records := make([]record[NoteInsert], 0, len(rows))
	for _, note := range rows {
		timesliceID, ok := m.session.TimesliceID(note.TimesliceID)
		if !ok {
			m.logger.Printf("no timeslice mapping for note %s", note.ID)
			observability.RecordSkipped("note", "unmapped_timeslice")
			result.SkippedCount++
			continue
		}

		processed := m.processor.ProcessNote(note.Message)
		if processed.WasEncrypted {
			result.EncryptedCount++
			observability.RecordEncryptedNote(processed.DecryptionOK)
		}

		records = append(records, record[NoteInsert]{
			sourceID: note.ID,
			data: NoteInsert{
				TimesliceID: timesliceID,
				UserID:      note.UserID,
				Message:     processed.Message,
				CreatedAt:   note.CreatedAt,
			},
		})
	}

	// Note IDs grouped by target timeslice for the back-fill pass.
	noteIDsByTimeslice := make(map[string][]string)
	timesliceByRecord := make(map[string]string, len(records))
	for _, rec := range records {
		timesliceByRecord[rec.sourceID] = rec.data.TimesliceID
	}

	writeProgress := writeHalf(progress, len(rows))
	result.MigratedCount = migrateBatches(ctx, records, m.notes, m.sizes.NoteBatch, m.logger,
		func(sourceID, targetID string) {
			tsID := timesliceByRecord[sourceID]
			noteIDsByTimeslice[tsID] = append(noteIDsByTimeslice[tsID], targetID)
			observability.RecordMigrated("note")
			writeProgress()
		})

	for tsID, noteIDs := range noteIDsByTimeslice {
		existing, err := m.timeslices.NoteIDs(ctx, tsID)
		if err != nil {
			m.logger.Printf("failed to read note ids for timeslice %s: %v", tsID, err)
			observability.RecordBackfillError("note")
			result.BackfillErrors++
			continue
		}
		if err := m.timeslices.SetNoteIDs(ctx, tsID, append(existing, noteIDs...)); err != nil {
			m.logger.Printf("failed to append note ids to timeslice %s: %v", tsID, err)
			observability.RecordBackfillError("note")
			result.BackfillErrors++
		}
	}

	m.logger.Printf("completed notes migration: %d migrated, %d encrypted", result.MigratedCount, result.EncryptedCount)
	return result, nil
}

// MigrateStates pages through all source states, remaps their timeslice
// foreign keys, converts creation timestamps, writes in batches, and points
// each touched timeslice's state ID at the newly created state. Unlike note
// IDs this is a scalar overwrite: a timeslice has at most one state, and the
// most recently written one wins.
func (m *Migrator) MigrateStates(ctx context.Context, progress ProgressFunc) (PhaseResult, error) {
	if m.session.TimesliceCount() == 0 {
		return PhaseResult{}, ErrTimeslicesFirst
	}
	if err := m.src.EnsureHealthy(ctx); err != nil {
		return PhaseResult{}, err
	}

	rows, err := fetchAll(ctx, m.sizes.StatePage,
		func(ctx context.Context) (int, error) { return m.src.Count(ctx, "states") },
		m.src.StatePage,
		fetchHalf(progress))
	if err != nil {
		return PhaseResult{}, err
	}
	if len(rows) == 0 {
		return PhaseResult{}, nil
	}
	m.logger.Printf("starting migration of %d states", len(rows))

	var result PhaseResult
	records := make([]record[StateInsert], 0, len(rows))
	for _, state := range rows {
		timesliceID, ok := m.session.TimesliceID(state.TimesliceID)
		if !ok {
			m.logger.Printf("no timeslice mapping for state %s", state.ID)
			observability.RecordSkipped("state", "unmapped_timeslice")
			result.SkippedCount++
			continue
		}

		createdAt, err := ConvertMigrationTimestamp(state.CreatedAt, m.timezone)
		if err != nil {
			m.logger.Printf("bad created time on state %s: %v", state.ID, err)
			observability.RecordSkipped("state", "bad_timestamp")
			result.SkippedCount++
			continue
		}

		records = append(records, record[StateInsert]{
			sourceID: state.ID,
			data: StateInsert{
				TimesliceID: timesliceID,
				UserID:      state.UserID,
				Energy:      state.Energy,
				CreatedAt:   createdAt.LocalString,
			},
		})
	}

	timesliceByRecord := make(map[string]string, len(records))
	for _, rec := range records {
		timesliceByRecord[rec.sourceID] = rec.data.TimesliceID
	}

	writeProgress := writeHalf(progress, len(rows))
	result.MigratedCount = migrateBatches(ctx, records, m.states, m.sizes.StateBatch, m.logger,
		func(sourceID, targetID string) {
			tsID := timesliceByRecord[sourceID]
			if err := m.timeslices.SetStateID(ctx, tsID, targetID); err != nil {
				m.logger.Printf("failed to set state id on timeslice %s: %v", tsID, err)
				observability.RecordBackfillError("state")
				result.BackfillErrors++
			}
			observability.RecordMigrated("state")
			writeProgress()
		})

	m.logger.Printf("completed states migration: %d migrated", result.MigratedCount)
	return result, nil
}

// fetchHalf scales fetch progress onto the first half of the reporting range.
func fetchHalf(progress ProgressFunc) ProgressFunc {
	if progress == nil {
		return nil
	}
	return func(current, total int) {
		progress(current/2, total/2)
	}
}

// writeHalf returns a per-record callback reporting write progress on the
// second half of the reporting range.
func writeHalf(progress ProgressFunc, totalRows int) func() {
	if progress == nil || totalRows == 0 {
		return func() {}
	}
	base := totalRows / 2
	written := 0
	return func() {
		written++
		progress(base+written*base/totalRows, base*2)
	}
}
