package interfaces

import (
	"context"

	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

// EventEmitter receives lifecycle notifications. Errors are logged by the
// caller and never fail a run.
type EventEmitter interface {
	Emit(ctx context.Context, event model.Event) error
}

// RunTracker keeps the progress of runs dispatched in the background
type RunTracker interface {
	// Start registers a run of modID and returns its id
	Start(modID model.ModID) string
	// Bind attaches runID to ctx so that events emitted under it are recorded
	Bind(ctx context.Context, runID string) context.Context
	Finish(runID string, result *model.InstallResult, err error)
	Get(runID string) (*model.RunStatus, error)
}
