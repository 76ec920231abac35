package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/infra/sentry"
)

// Runner executes handlers in the background and lets a shutdown wait for
// the ones still in flight. The zero value is ready to use.
type Runner struct {
	wg sync.WaitGroup
}

// Dispatch executes handler asynchronously.
//
// The handler gets a new background context carrying the ctxlog logger of
// ctx; cancelling ctx does not stop it. Panics are recovered. Both panics and
// returned errors are logged and reported to Sentry.
func (x *Runner) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(newCtx).Error("panic in async handler",
					"recover", r,
					"stack", string(debug.Stack()))
				sentry.Capture(newCtx, goerr.New("panic in async handler", goerr.V("recover", r)))
			}
		}()

		if err := handler(newCtx); err != nil {
			ctxlog.From(newCtx).Error("error in async handler", "error", err)
			sentry.Capture(newCtx, err)
		}
	}()
}

// Wait blocks until every dispatched handler returned or ctx is done
func (x *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		x.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "handlers still running")
	}
}

func newBackgroundContext(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), ctxlog.From(ctx))
}
