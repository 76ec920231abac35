package events_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
	"github.com/m-mizutani/voidmod/pkg/infra/events"
)

type failingEmitter struct{}

func (failingEmitter) Emit(ctx context.Context, event model.Event) error {
	return errors.New("ui gone")
}

func TestMulti_DeliversToAll(t *testing.T) {
	tracker := events.NewTracker()
	runID := tracker.Start(42)
	ctx := events.WithRun(context.Background(), runID)

	multi := events.Multi{failingEmitter{}, events.Logger{}, tracker}
	err := multi.Emit(ctx, model.Event{Type: model.EventStarted, ModID: 42, State: model.StateFetching})
	gt.Error(t, err)

	status, err := tracker.Get(runID)
	gt.NoError(t, err)
	gt.A(t, status.Events).Length(1)
	gt.Value(t, status.State).Equal(model.StateFetching)
}

func TestTracker(t *testing.T) {
	tracker := events.NewTracker()
	runID := tracker.Start(7)
	ctx := events.WithRun(context.Background(), runID)

	gt.NoError(t, tracker.Emit(ctx, model.Event{Type: model.EventStarted, ModID: 7, State: model.StateFetching}))
	gt.NoError(t, tracker.Emit(ctx, model.Event{Type: model.EventDone, ModID: 7, State: model.StateCompleted}))
	tracker.Finish(runID, &model.InstallResult{ModID: 7, State: model.StateCompleted}, nil)

	status, err := tracker.Get(runID)
	gt.NoError(t, err)
	gt.True(t, status.Done)
	gt.Value(t, status.ModID).Equal(model.ModID(7))
	gt.Value(t, status.State).Equal(model.StateCompleted)
	gt.A(t, status.Events).Length(2)
	gt.Value(t, status.Error).Equal("")

	// Untracked contexts are ignored
	gt.NoError(t, tracker.Emit(context.Background(), model.Event{Type: model.EventDone}))

	_, err = tracker.Get("missing")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagNotFound))
}

func TestTracker_FinishWithError(t *testing.T) {
	tracker := events.NewTracker()
	runID := tracker.Start(9)

	tracker.Finish(runID, &model.InstallResult{ModID: 9, State: model.StateFailed}, errors.New("boom"))

	status, err := tracker.Get(runID)
	gt.NoError(t, err)
	gt.True(t, status.Done)
	gt.Value(t, status.State).Equal(model.StateFailed)
	gt.Value(t, status.Error).Equal("boom")
}

func TestPrinter(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	p := events.NewPrinter(&buf)
	ctx := context.Background()

	gt.NoError(t, p.Emit(ctx, model.Event{Type: model.EventStarted, ModID: 42}))
	gt.NoError(t, p.Emit(ctx, model.Event{Type: model.EventError, ModID: 42, State: model.StateUnsupportedFormat, Code: model.CodeUnsupported}))
	gt.NoError(t, p.Emit(ctx, model.Event{Type: model.EventDone, ModID: 42, State: model.StateUnsupportedFormat}))

	out := buf.String()
	gt.String(t, out).Contains("[mod 42] downloading")
	gt.String(t, out).Contains("archive format is not supported (MOD.UNZIP)")
	gt.String(t, out).Contains("[mod 42] done: unsupported_format")
}

func TestTracker_EvictsFinishedRuns(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := events.NewTracker(
		events.WithRetention(time.Minute),
		events.WithClock(func() time.Time { return now }),
	)

	finished := tracker.Start(1)
	running := tracker.Start(2)
	tracker.Finish(finished, &model.InstallResult{ModID: 1, State: model.StateCompleted}, nil)

	now = now.Add(30 * time.Second)
	_, err := tracker.Get(finished)
	gt.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = tracker.Get(finished)
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagNotFound))

	// runs still in flight are never dropped
	tracker.Start(3)
	_, err = tracker.Get(running)
	gt.NoError(t, err)
	gt.Value(t, tracker.Len()).Equal(2)
}
