package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

// DefaultRetention is how long a finished run stays queryable
const DefaultRetention = time.Hour

// Tracker keeps the status of dispatched runs in memory. Finished runs are
// dropped once they are older than the retention.
type Tracker struct {
	mu        sync.RWMutex
	runs      map[string]*model.RunStatus
	now       func() time.Time
	retention time.Duration
}

// TrackerOption configures a Tracker
type TrackerOption func(*Tracker)

// WithRetention sets how long finished runs are kept
func WithRetention(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.retention = d
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an empty Tracker
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		runs:      make(map[string]*model.RunStatus),
		now:       time.Now,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) expired(run *model.RunStatus) bool {
	return run.FinishedAt != nil && run.FinishedAt.Before(t.now().Add(-t.retention))
}

// evict removes finished runs past the retention. Caller holds t.mu.
func (t *Tracker) evict() {
	for id, run := range t.runs {
		if t.expired(run) {
			delete(t.runs, id)
		}
	}
}

// Start registers a new run of modID and returns its id
func (t *Tracker) Start(modID model.ModID) string {
	id := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.evict()
	t.runs[id] = &model.RunStatus{
		ID:        id,
		ModID:     modID,
		State:     model.StateResolving,
		CreatedAt: t.now(),
	}
	return id
}

// Finish records the final result of a run
func (t *Tracker) Finish(runID string, result *model.InstallResult, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[runID]
	if !ok {
		return
	}
	if result != nil {
		run.State = result.State
	}
	run.Done = true
	finishedAt := t.now()
	run.FinishedAt = &finishedAt
	if err != nil {
		run.Error = err.Error()
	}
}

// Get returns a copy of the run status
func (t *Tracker) Get(runID string) (*model.RunStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	run, ok := t.runs[runID]
	if !ok || t.expired(run) {
		return nil, goerr.New("run not found", goerr.V("run_id", runID), goerr.T(types.ErrTagNotFound))
	}

	status := *run
	status.Events = append([]model.Event(nil), run.Events...)
	return &status, nil
}

func (t *Tracker) record(runID string, event model.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[runID]
	if !ok {
		return goerr.New("run not found", goerr.V("run_id", runID), goerr.T(types.ErrTagNotFound))
	}
	run.Events = append(run.Events, event)
	run.State = event.State
	return nil
}

type runIDKey struct{}

// WithRun binds ctx to a tracked run
func WithRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunFrom returns the run id bound to ctx
func RunFrom(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok
}

// Emit records the event into the run bound to ctx. Events outside a
// tracked run are ignored.
func (t *Tracker) Emit(ctx context.Context, event model.Event) error {
	runID, ok := RunFrom(ctx)
	if !ok {
		return nil
	}
	return t.record(runID, event)
}

// Bind implements interfaces.RunTracker
func (t *Tracker) Bind(ctx context.Context, runID string) context.Context {
	return WithRun(ctx, runID)
}

var _ interfaces.RunTracker = (*Tracker)(nil)

// Len returns the number of runs held in memory
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.runs)
}
