package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/cli/config"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdGames() *cli.Command {
	var gameCfg config.Game

	return &cli.Command{
		Name:  "games",
		Usage: "List games installed in local Steam libraries",
		Flags: gameCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			games, err := gameCfg.Build().InstalledGames(ctx)
			if err != nil {
				return err
			}
			return printGames(os.Stdout, games)
		},
	}
}

func printGames(out io.Writer, games []model.InstalledGame) error {
	if len(games) == 0 {
		if _, err := fmt.Fprintln(out, "no Steam games found"); err != nil {
			return goerr.Wrap(err, "failed to write games")
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "APP ID\tNAME\tINSTALL DIR"); err != nil {
		return goerr.Wrap(err, "failed to write games header")
	}

	for _, g := range games {
		marker := ""
		if g.AppID == model.Payday2AppID {
			marker = "*"
		}
		if _, err := fmt.Fprintf(tw, "%d%s\t%s\t%s\n", g.AppID, marker, g.Name, g.InstallDir); err != nil {
			return goerr.Wrap(err, "failed to write game row", goerr.V("app_id", g.AppID))
		}
	}

	if err := tw.Flush(); err != nil {
		return goerr.Wrap(err, "failed to flush games table")
	}
	return nil
}
