package events

import (
	"context"
	"errors"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

// Logger writes every event to the context logger
type Logger struct{}

// Emit implements interfaces.EventEmitter
func (Logger) Emit(ctx context.Context, event model.Event) error {
	ctxlog.From(ctx).Info("Mod event",
		"type", event.Type,
		"mod_id", event.ModID,
		"state", event.State,
		"code", event.Code,
	)
	return nil
}

// Multi delivers an event to every emitter, even when some of them fail
type Multi []interfaces.EventEmitter

// Emit implements interfaces.EventEmitter
func (m Multi) Emit(ctx context.Context, event model.Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
