package cmd

import (
	"io"
	"strconv"

	"github.com/afeish/blockfile/pkg/blockfile"
	"github.com/afeish/blockfile/pkg/util/mem"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func CmdStat() *cli.Command {
	return &cli.Command{
		Name:    "stat",
		Usage:   "show the block layout of a file",
		Aliases: []string{"s"},
		Flags: withGlobalFlags(
			fileFlag(),
			&cli.BoolFlag{
				Name:  "scan",
				Usage: "read the whole file through the cache and report cache counters",
			},
		),
		Action: func(c *cli.Context) error {
			bf, err := blockfile.Open(Fs, c.Path(flagNameFile), false, blockOptions(c)...)
			if err != nil {
				return err
			}
			defer bf.Close()

			rows := [][]string{
				{"name", bf.File().Name()},
				{"size", humanize.IBytes(uint64(bf.Size())) + " (" + humanize.Comma(bf.Size()) + ")"},
				{"block-size", humanize.Comma(bf.BlockSize())},
				{"block-depth", strconv.Itoa(bf.BlockDepth())},
				{"readahead-depth", strconv.Itoa(bf.ReadAheadDepth())},
				{"blocks", humanize.Comma(bf.Count())},
			}

			if c.Bool("scan") {
				if _, err := bf.Read(c.Context, 0, bf.Size()); err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				stats := bf.Stats()
				rows = append(rows,
					[]string{"mru-hits", humanize.Comma(stats.MRUHits)},
					[]string{"index-hits", humanize.Comma(stats.IndexHits)},
					[]string{"misses", humanize.Comma(stats.Misses)},
					[]string{"evictions", humanize.Comma(stats.Evictions)},
					[]string{"resident", strconv.Itoa(stats.Resident)},
					[]string{"pooled-memory (cumulative, incl. evicted)", humanize.IBytes(uint64(mem.AllocMemory()))},
				)
			}

			table := tablewriter.NewWriter(c.App.Writer)
			table.SetHeader([]string{"KEY", "VALUE"})
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetAutoWrapText(false)
			table.AppendBulk(rows)
			table.Render()
			return nil
		},
	}
}
