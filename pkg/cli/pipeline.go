package cli

import (
	"context"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/voidmod/pkg/cli/config"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// pipelineConfig gathers the flags every command touching the install
// pipeline needs.
type pipelineConfig struct {
	catalog  config.Catalog
	game     config.Game
	settings config.Settings
}

func (p *pipelineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, p.catalog.Flags()...)
	flags = append(flags, p.game.Flags()...)
	flags = append(flags, p.settings.Flags()...)
	return flags
}

// newInstall builds the install use case. Staging and scratch directories
// live under the download_path of the settings file.
func (p *pipelineConfig) newInstall(ctx context.Context, emitter interfaces.EventEmitter) (interfaces.InstallUseCase, error) {
	store, err := p.settings.Build()
	if err != nil {
		return nil, err
	}
	settings, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	workDir := settings.GetDownloadPath()
	if workDir == "" {
		workDir = usecase.DefaultWorkDir()
	}
	ctxlog.From(ctx).Debug("Using work directory", "path", workDir, "settings", store.Path())

	return usecase.NewInstall(
		p.catalog.Build(),
		p.game.Build(),
		usecase.WithStagingDir(filepath.Join(workDir, "staging")),
		usecase.WithScratchDir(filepath.Join(workDir, "extract")),
		usecase.WithEmitter(emitter),
	), nil
}
