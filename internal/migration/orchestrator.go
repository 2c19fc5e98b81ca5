package migration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"example.com/migration/internal/source"
)

// Phase identifies one of the four ordered entity-migration steps.
type Phase int

const (
	PhaseActivities Phase = iota
	PhaseTimeslices
	PhaseNotes
	PhaseStates
)

// phaseOrder is the dependency order a full run follows: activities feed
// timeslices, timeslices feed notes and states.
var phaseOrder = [...]Phase{PhaseActivities, PhaseTimeslices, PhaseNotes, PhaseStates}

func (p Phase) String() string {
	switch p {
	case PhaseActivities:
		return "activities"
	case PhaseTimeslices:
		return "timeslices"
	case PhaseNotes:
		return "notes"
	case PhaseStates:
		return "states"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ErrBusy indicates a phase was requested while another phase is running.
var ErrBusy = errors.New("migration step already in progress")

// LogEntry is one timestamped line of the migration narrative shown to the user.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Progress aggregates per-phase results across a run.
type Progress struct {
	Activities PhaseResult `json:"activities"`
	Timeslices PhaseResult `json:"timeslices"`
	Notes      PhaseResult `json:"notes"`
	States     PhaseResult `json:"states"`
}

// Counts holds per-table source row counts from a dry run.
type Counts struct {
	Activities int `json:"activities"`
	Timeslices int `json:"timeslices"`
	Notes      int `json:"notes"`
	States     int `json:"states"`
}

// InitResult is returned from Initialize: both activity lists the user needs
// to author mappings.
type InitResult struct {
	SourceActivities []source.Activity `json:"sourceActivities"`
	TargetActivities []TargetActivity  `json:"targetActivities"`
}

// Snapshot is the UI-facing view of orchestrator state.
type Snapshot struct {
	Connection source.Status `json:"connection"`
	Busy       bool          `json:"busy"`
	Progress   Progress      `json:"progress"`
	Logs       []LogEntry    `json:"logs"`
	Errors     []string      `json:"errors"`
}

// OrchestratorOption configures optional behaviour for the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger overrides the logger used for the operational log.
func WithLogger(logger *log.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock overrides the time source for log entries. Used by tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator sequences the four phases, owns the aggregate progress, error,
// and log state, and exposes phase-level and full-run entry points. Failures
// are two-tiered: record-level problems are swallowed and counted inside a
// phase; phase-level failures are recorded here and returned so a full run
// halts at the first one.
type Orchestrator struct {
	migrator *Migrator
	logger   *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	busy     bool
	logs     []LogEntry
	errs     []string
	progress Progress
}

// NewOrchestrator builds an Orchestrator over a Migrator.
func NewOrchestrator(migrator *Migrator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		migrator: migrator,
		logger:   log.New(log.Writer(), "[migration] ", log.LstdFlags),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize connects to the legacy store and loads both activity lists the
// user needs in order to author mappings.
func (o *Orchestrator) Initialize(ctx context.Context, email, password string) (InitResult, error) {
	o.appendLog("connecting to legacy store")
	if err := o.migrator.src.Connect(ctx, email, password); err != nil {
		o.recordError("initialize", err)
		return InitResult{}, err
	}

	sourceActivities, err := o.migrator.src.ActivitiesWithOverrides(ctx)
	if err != nil {
		o.recordError("initialize", err)
		return InitResult{}, err
	}

	targetActivities, err := o.migrator.activities.List(ctx)
	if err != nil {
		o.recordError("initialize", err)
		return InitResult{}, err
	}

	o.appendLog("connected: %d source activities, %d target activities",
		len(sourceActivities), len(targetActivities))
	return InitResult{SourceActivities: sourceActivities, TargetActivities: targetActivities}, nil
}

// DryRun reports per-table source row counts without writing anything.
func (o *Orchestrator) DryRun(ctx context.Context) (Counts, error) {
	if err := o.migrator.src.EnsureHealthy(ctx); err != nil {
		o.recordError("dry-run", err)
		return Counts{}, err
	}

	var counts Counts
	for _, probe := range []struct {
		table string
		dst   *int
	}{
		{"activities", &counts.Activities},
		{"timeslices", &counts.Timeslices},
		{"notes", &counts.Notes},
		{"states", &counts.States},
	} {
		n, err := o.migrator.src.Count(ctx, probe.table)
		if err != nil {
			o.recordError("dry-run", err)
			return Counts{}, err
		}
		*probe.dst = n
	}

	o.appendLog("dry run: %d activities, %d timeslices, %d notes, %d states",
		counts.Activities, counts.Timeslices, counts.Notes, counts.States)
	return counts, nil
}

// MigrateActivities runs the activities phase.
func (o *Orchestrator) MigrateActivities(ctx context.Context, mappings []ActivityMapping) (PhaseResult, error) {
	return o.runPhase(PhaseActivities, func() (PhaseResult, error) {
		return o.migrator.MigrateActivities(ctx, mappings)
	})
}

// MigrateTimeslices runs the timeslices phase.
func (o *Orchestrator) MigrateTimeslices(ctx context.Context, progress ProgressFunc) (PhaseResult, error) {
	return o.runPhase(PhaseTimeslices, func() (PhaseResult, error) {
		return o.migrator.MigrateTimeslices(ctx, progress)
	})
}

// MigrateNotes runs the notes phase.
func (o *Orchestrator) MigrateNotes(ctx context.Context, progress ProgressFunc) (PhaseResult, error) {
	return o.runPhase(PhaseNotes, func() (PhaseResult, error) {
		return o.migrator.MigrateNotes(ctx, progress)
	})
}

// MigrateStates runs the states phase.
func (o *Orchestrator) MigrateStates(ctx context.Context, progress ProgressFunc) (PhaseResult, error) {
	return o.runPhase(PhaseStates, func() (PhaseResult, error) {
		return o.migrator.MigrateStates(ctx, progress)
	})
}

// RunFull executes all four phases in dependency order, halting at the first
// phase-level failure.
func (o *Orchestrator) RunFull(ctx context.Context, mappings []ActivityMapping, progress ProgressFunc) (Progress, error) {
	for _, phase := range phaseOrder {
		var err error
		switch phase {
		case PhaseActivities:
			_, err = o.MigrateActivities(ctx, mappings)
		case PhaseTimeslices:
			_, err = o.MigrateTimeslices(ctx, progress)
		case PhaseNotes:
			_, err = o.MigrateNotes(ctx, progress)
		case PhaseStates:
			_, err = o.MigrateStates(ctx, progress)
		}
		if err != nil {
			return o.snapshotProgress(), fmt.Errorf("%s migration failed: %w", phase, err)
		}
	}
	o.appendLog("full migration complete")
	return o.snapshotProgress(), nil
}

func (o *Orchestrator) runPhase(phase Phase, fn func() (PhaseResult, error)) (PhaseResult, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return PhaseResult{}, ErrBusy
	}
	o.busy = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	o.appendLog("starting %s migration", phase)
	result, err := fn()
	if err != nil {
		o.recordError(phase.String(), err)
		return result, err
	}

	o.mu.Lock()
	switch phase {
	case PhaseActivities:
		o.progress.Activities = result
	case PhaseTimeslices:
		o.progress.Timeslices = result
	case PhaseNotes:
		o.progress.Notes = result
	case PhaseStates:
		o.progress.States = result
	}
	o.mu.Unlock()

	o.appendLog("finished %s migration: %d migrated, %d skipped", phase, result.MigratedCount, result.SkippedCount)
	return result, nil
}

// Reset clears the UI-facing log, error, and progress state. It does not touch
// the connection or the mapping tables; those are torn down by Cleanup.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.logs = nil
	o.errs = nil
	o.progress = Progress{}
	o.mu.Unlock()
}

// Cleanup disposes the run: mapping tables dropped, legacy session signed out.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	o.migrator.session.Reset()
	err := o.migrator.src.Close(ctx)
	o.appendLog("migration connection cleaned up")
	return err
}

// Status returns a point-in-time view of orchestrator and connection state.
func (o *Orchestrator) Status() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Connection: o.migrator.src.Status(),
		Busy:       o.busy,
		Progress:   o.progress,
		Logs:       append([]LogEntry(nil), o.logs...),
		Errors:     append([]string(nil), o.errs...),
	}
}

func (o *Orchestrator) snapshotProgress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

func (o *Orchestrator) appendLog(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	o.logger.Print(message)
	o.mu.Lock()
	o.logs = append(o.logs, LogEntry{Time: o.now(), Message: message})
	o.mu.Unlock()
}

func (o *Orchestrator) recordError(scope string, err error) {
	message := fmt.Sprintf("%s: %v", scope, err)
	o.logger.Print(message)
	o.mu.Lock()
	o.errs = append(o.errs, message)
	o.logs = append(o.logs, LogEntry{Time: o.now(), Message: message})
	o.mu.Unlock()
}
