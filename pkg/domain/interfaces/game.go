package interfaces

import (
	"context"

	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

// GameLocator finds local game installations
type GameLocator interface {
	// InstalledGames lists every game found in local libraries
	InstalledGames(ctx context.Context) ([]model.InstalledGame, error)

	// InstallRoots resolves the mods and overrides roots of the target game
	InstallRoots(ctx context.Context) (*model.InstallRoots, error)
}

// SettingsStore loads and persists user settings
type SettingsStore interface {
	Load(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, settings *model.Settings) error
	Path() string
}
