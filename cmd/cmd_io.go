package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	. "github.com/afeish/blockfile/global" //lint:ignore ST1001 ignore
	"github.com/afeish/blockfile/pkg/blockfile"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func CmdRead() *cli.Command {
	return &cli.Command{
		Name:    "read",
		Usage:   "read a byte range through the block cache and hex dump it",
		Aliases: []string{"r"},
		Flags: withGlobalFlags(
			fileFlag(),
			&cli.Int64Flag{
				Name:    flagNameOffset,
				Usage:   "offset to start reading at",
				Aliases: []string{"o"},
			},
			&cli.Int64Flag{
				Name:    flagNameLength,
				Usage:   "number of bytes to read",
				Value:   256,
				Aliases: []string{"l"},
			},
		),
		Action: func(c *cli.Context) error {
			log := GetLogger().Named("cli")

			bf, err := blockfile.Open(Fs, c.Path(flagNameFile), false, blockOptions(c)...)
			if err != nil {
				return err
			}
			defer bf.Close()

			off, length := c.Int64(flagNameOffset), c.Int64(flagNameLength)
			data, err := bf.Read(c.Context, off, length)
			if err != nil && !errors.Is(err, io.EOF) {
				log.Error("read", zap.Int64("offset", off), zap.Int64("length", length), zap.Error(err))
				return err
			}
			if int64(len(data)) < length {
				log.Warn("short read at end of file", zap.Int64("offset", off), zap.Int("read", len(data)), zap.Int64("size", bf.Size()))
			}

			_, err = fmt.Fprint(c.App.Writer, hex.Dump(data))
			return err
		},
	}
}

func CmdWrite() *cli.Command {
	return &cli.Command{
		Name:    "write",
		Usage:   "write literal data or the content of a local file at an offset",
		Aliases: []string{"w"},
		Flags: withGlobalFlags(
			fileFlag(),
			&cli.Int64Flag{
				Name:    flagNameOffset,
				Usage:   "offset to start writing at, must not be past the end of the file",
				Aliases: []string{"o"},
			},
			&cli.StringFlag{
				Name:    flagNameData,
				Usage:   "literal data to write",
				Aliases: []string{"d"},
			},
			&cli.PathFlag{
				Name:    flagNameInput,
				Usage:   "local file whose content is written",
				Aliases: []string{"i"},
			},
			&cli.BoolFlag{
				Name:    flagNameCreate,
				Usage:   "create the file when it does not exist",
				Aliases: []string{"c"},
			},
		),
		Action: func(c *cli.Context) error {
			log := GetLogger().Named("cli")

			data, input := c.String(flagNameData), c.Path(flagNameInput)
			if (data == "") == (input == "") {
				return cli.Exit(fmt.Sprintf("exactly one of --%s and --%s is required", flagNameData, flagNameInput), 1)
			}
			payload := []byte(data)
			if input != "" {
				var err error
				if payload, err = afero.ReadFile(Fs, input); err != nil {
					return err
				}
			}

			path := c.Path(flagNameFile)
			open := lo.Ternary(c.Bool(flagNameCreate), blockfile.OpenOrCreate, blockfile.Open)
			bf, err := open(Fs, path, true, blockOptions(c)...)
			if err != nil {
				return err
			}
			defer bf.Close()

			off := c.Int64(flagNameOffset)
			next, err := bf.Write(c.Context, off, payload)
			if err != nil {
				log.Error("write", zap.String("file", path), zap.Int64("offset", off), zap.Int64("next", next), zap.Error(err))
				return err
			}

			_, err = fmt.Fprintf(c.App.Writer, "wrote %s at %s, next offset %s, size %s\n",
				humanize.IBytes(uint64(len(payload))), humanize.Comma(off), humanize.Comma(next), humanize.IBytes(uint64(bf.Size())))
			return err
		},
	}
}
