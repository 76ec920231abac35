package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/infra/events"
	"github.com/m-mizutani/voidmod/pkg/infra/sentry"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func cmdInstall() *cli.Command {
	var (
		pipeline pipelineConfig
		parallel int
	)

	flags := append(pipeline.Flags(), &cli.IntFlag{
		Name:        "parallel",
		Aliases:     []string{"p"},
		Usage:       "Number of mods installed at the same time",
		Value:       4,
		Destination: &parallel,
		Sources:     cli.EnvVars("VOIDMOD_PARALLEL"),
	})

	return &cli.Command{
		Name:      "install",
		Aliases:   []string{"i"},
		Usage:     "Download and install mods by ModWorkShop id",
		ArgsUsage: "<mod-id> [mod-id...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ids, err := parseModIDs(c.Args().Slice())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			uc, err := pipeline.newInstall(ctx, events.NewPrinter(os.Stdout))
			if err != nil {
				return err
			}

			return installAll(ctx, ids, parallel, uc.Install)
		},
	}
}

func parseModIDs(args []string) ([]model.ModID, error) {
	if len(args) == 0 {
		return nil, goerr.New("at least one mod id is required")
	}

	ids := make([]model.ModID, 0, len(args))
	for _, arg := range args {
		id, err := model.ParseModID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type installFunc func(ctx context.Context, id model.ModID) (*model.InstallResult, error)

// installAll runs one pipeline per id. A failing run does not stop the
// others; the failed ids are reported together.
func installAll(ctx context.Context, ids []model.ModID, parallel int, install installFunc) error {
	var (
		eg     errgroup.Group
		mu     sync.Mutex
		failed []model.ModID
	)
	if parallel > 0 {
		eg.SetLimit(parallel)
	}

	for _, id := range ids {
		eg.Go(func() error {
			ctx := ctxlog.With(ctx, ctxlog.From(ctx).With("mod_id", id))

			result, err := install(ctx, id)
			if err != nil {
				ctxlog.From(ctx).Error("Install failed", "error", err)
				sentry.Capture(ctx, err)

				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
				return nil
			}

			ctxlog.From(ctx).Info("Install finished",
				"state", result.State,
				"installed_to", result.InstalledTo,
			)
			return nil
		})
	}
	_ = eg.Wait()

	if len(failed) > 0 {
		return goerr.New("some mods failed to install",
			goerr.V("failed", failed),
			goerr.V("total", len(ids)),
		)
	}
	return nil
}
