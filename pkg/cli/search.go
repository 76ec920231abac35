package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/cli/config"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdSearch() *cli.Command {
	var (
		catalogCfg config.Catalog
		limit      int
		page       int
		asJSON     bool
	)

	flags := append(catalogCfg.Flags(),
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Number of mods per page",
			Value:       10,
			Destination: &limit,
		},
		&cli.IntFlag{
			Name:        "page",
			Usage:       "Result page",
			Value:       1,
			Destination: &page,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the raw result as JSON",
			Destination: &asJSON,
		},
	)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search PAYDAY 2 mods on ModWorkShop",
		ArgsUsage: "[query]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc := usecase.NewSearch(catalogCfg.Build())

			result, err := uc.Search(ctx, model.SearchQuery{
				Query: strings.Join(c.Args().Slice(), " "),
				Limit: limit,
				Page:  page,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return goerr.Wrap(err, "failed to encode search result")
				}
				return nil
			}
			return printModPage(os.Stdout, result)
		},
	}
}

func printModPage(out io.Writer, page *model.ModPage) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tNAME\tAUTHOR\tDOWNLOADS\tDOWNLOAD"); err != nil {
		return goerr.Wrap(err, "failed to write search header")
	}
	for _, mod := range page.Mods {
		download := "-"
		if mod.HasDownload {
			download = mod.DownloadType
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			mod.ID, mod.Name, mod.Author, mod.Downloads, download); err != nil {
			return goerr.Wrap(err, "failed to write search row", goerr.V("mod_id", mod.ID))
		}
	}
	if err := tw.Flush(); err != nil {
		return goerr.Wrap(err, "failed to flush search table")
	}

	_, err := color.New(color.Faint).Fprintf(out, "page %d/%d (%d mods)\n", page.Meta.CurrentPage, page.Meta.LastPage, page.Meta.Total)
	if err != nil {
		return goerr.Wrap(err, "failed to write search footer")
	}
	return nil
}
