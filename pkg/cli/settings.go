package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/cli/config"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

func cmdSettings() *cli.Command {
	var settingsCfg config.Settings

	return &cli.Command{
		Name:  "settings",
		Usage: "Show the effective settings and where they are stored",
		Flags: settingsCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := settingsCfg.Build()
			if err != nil {
				return err
			}
			settings, err := store.Load(ctx)
			if err != nil {
				return err
			}
			return printSettings(os.Stdout, store.Path(), settings)
		},
	}
}

func printSettings(out io.Writer, path string, settings *model.Settings) error {
	data, err := toml.Marshal(settings)
	if err != nil {
		return goerr.Wrap(err, "failed to encode settings")
	}
	if _, err := fmt.Fprintf(out, "# %s\n%s", path, data); err != nil {
		return goerr.Wrap(err, "failed to write settings")
	}
	return nil
}
