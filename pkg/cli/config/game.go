package config

import (
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/infra/game"
	"github.com/urfave/cli/v3"
)

// Game holds game discovery configuration
type Game struct {
	Dir        string
	SteamRoots []string
}

// Flags returns CLI flags for game discovery
func (c *Game) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "game-dir",
			Usage:       "PAYDAY 2 installation directory (skips Steam discovery)",
			Destination: &c.Dir,
			Sources:     cli.EnvVars("VOIDMOD_GAME_DIR"),
		},
		&cli.StringSliceFlag{
			Name:        "steam-root",
			Usage:       "Steam installation directory to search (repeatable)",
			Destination: &c.SteamRoots,
			Sources:     cli.EnvVars("VOIDMOD_STEAM_ROOT"),
		},
	}
}

// Build creates the game locator
func (c *Game) Build() interfaces.GameLocator {
	var opts []game.Option
	if len(c.SteamRoots) > 0 {
		opts = append(opts, game.WithSteamRoots(c.SteamRoots...))
	}
	if c.Dir != "" {
		opts = append(opts, game.WithGameDir(c.Dir))
	}
	return game.NewLocator(opts...)
}
