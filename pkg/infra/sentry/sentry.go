package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

const flushTimeout = 2 * time.Second

// Init configures the global Sentry client. An empty DSN disables reporting
// and returns a no-op flush.
func Init(dsn, env string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     "voidmod@" + types.Version,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize sentry", goerr.V("env", env))
	}

	return func() { sentry.Flush(flushTimeout) }, nil
}

// Capture reports err with its goerr values attached. It does nothing when
// Init was not called with a DSN.
func Capture(ctx context.Context, err error) {
	if err == nil {
		return
	}

	hub := sentry.CurrentHub().Clone()
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if gerr := goerr.Unwrap(err); gerr != nil {
			for k, v := range gerr.Values() {
				scope.SetExtra(k, v)
			}
		}
		if id := hub.CaptureException(err); id != nil {
			ctxlog.From(ctx).Debug("Reported error to sentry", "event_id", string(*id))
		}
	})
}
