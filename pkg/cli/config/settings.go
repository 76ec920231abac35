package config

import (
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/infra/settings"
	"github.com/urfave/cli/v3"
)

// Settings holds the location of the persisted settings file
type Settings struct {
	Path string
}

// Flags returns CLI flags for the settings file
func (c *Settings) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "settings",
			Usage:       "Path of the settings file (default: <user config dir>/void_mod_manager/settings.toml)",
			Destination: &c.Path,
			Sources:     cli.EnvVars("VOIDMOD_SETTINGS"),
		},
	}
}

// Build creates the settings store
func (c *Settings) Build() (interfaces.SettingsStore, error) {
	path := c.Path
	if path == "" {
		var err error
		if path, err = settings.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return settings.NewStore(path), nil
}
