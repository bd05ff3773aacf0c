package cmd

import (
	"bytes"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	. "github.com/afeish/blockfile/global" //lint:ignore ST1001 ignore
	"github.com/afeish/blockfile/pkg/blockfile"
	"github.com/afeish/blockfile/pkg/util/iotools"
	"github.com/afeish/blockfile/pkg/util/size"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func CmdVerify() *cli.Command {
	return &cli.Command{
		Name:    "verify",
		Usage:   "write random data through the block cache into a scratch file and check it reads back",
		Aliases: []string{"v"},
		Flags: withGlobalFlags(
			fileFlag(),
			&cli.GenericFlag{
				Name:    flagNameSize,
				Usage:   "size of the scratch file",
				Value:   NewSizeSuffixFlag(size.MebiByte),
				Aliases: []string{"s"},
			},
			&cli.IntFlag{
				Name:    flagNameRounds,
				Usage:   "number of random range reads to check",
				Value:   16,
				Aliases: []string{"n"},
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "random seed, 0 picks one from the clock",
			},
			&cli.BoolFlag{
				Name:    "perserve",
				Usage:   "whether to perserve the scratch file",
				Aliases: []string{"p"},
			},
		),
		Action: func(c *cli.Context) error {
			log := GetLogger().Named("cli")

			seed := c.Int64("seed")
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rnd := rand.New(rand.NewSource(seed))

			path := c.Path(flagNameFile)
			bf, err := blockfile.Create(Fs, path, blockOptions(c)...)
			if err != nil {
				return err
			}
			defer func() {
				bf.Close()
				if !c.Bool("perserve") {
					_ = Fs.Remove(path)
				}
			}()

			sz := c.Generic(flagNameSize).(*SizeSuffixFlag).Get().Int()
			src, srcMd5, err := iotools.RandFile(Fs, afero.GetTempDir(Fs, "blockfile"), "verify", rnd, int64(sz))
			if err != nil {
				return cli.Exit("create rand file failed", 1)
			}
			defer Fs.Remove(src)

			payload, err := afero.ReadFile(Fs, src)
			if err != nil {
				return err
			}

			// chunks straddle block boundaries
			var off int64
			for _, chunk := range lo.Chunk(payload, int(bf.BlockSize()*3/2)+1) {
				if off, err = bf.Write(c.Context, off, chunk); err != nil {
					return err
				}
			}
			log.Debug("scratch file written", zap.String("file", path), zap.Int64("size", bf.Size()), zap.Int64("seed", seed))

			type row struct {
				offset, length int64
				wantMd5        string
				gotMd5         string
				matched        bool
			}
			check := func(off, length int64, got []byte) row {
				want := payload[off : off+length]
				return row{
					offset:  off,
					length:  length,
					wantMd5: iotools.MD5(want),
					gotMd5:  iotools.MD5(got),
					matched: bytes.Equal(want, got),
				}
			}

			rows := make([]row, 0, c.Int(flagNameRounds)+2)
			for i := 0; i < c.Int(flagNameRounds) && sz > 0; i++ {
				off := rnd.Int63n(int64(sz))
				length := rnd.Int63n(int64(sz)-off) + 1
				got, err := bf.Read(c.Context, off, length)
				if err != nil {
					return err
				}
				rows = append(rows, check(off, length, got))
			}

			whole, err := bf.Read(c.Context, 0, int64(sz))
			if err != nil {
				return err
			}
			rows = append(rows, check(0, int64(sz), whole))

			onDisk, err := afero.ReadFile(Fs, path)
			if err != nil {
				return err
			}
			rows = append(rows, check(0, int64(sz), onDisk))
			if last := &rows[len(rows)-1]; last.wantMd5 != srcMd5 {
				last.matched = false
			}

			table := tablewriter.NewWriter(c.App.Writer)
			table.SetHeader([]string{"idx", "OFFSET", "LENGTH", "EXPECTED-MD5", "ACTUAL-MD5", "MATCHED"})
			table.SetRowLine(true)
			table.AppendBulk(lo.Map(rows, func(r row, i int) []string {
				return []string{
					lo.Ternary(i == len(rows)-1, "file", strconv.Itoa(i+1)),
					humanize.Comma(r.offset),
					humanize.IBytes(uint64(r.length)),
					r.wantMd5,
					r.gotMd5,
					strconv.FormatBool(r.matched),
				}
			}))
			table.Render()

			stats := bf.Stats()
			fmt.Fprintf(c.App.Writer, "seed %d, misses %d, evictions %d, hits %d\n",
				seed, stats.Misses, stats.Evictions, stats.MRUHits+stats.IndexHits)

			if failed := lo.CountBy(rows, func(r row) bool { return !r.matched }); failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d checks failed", failed, len(rows)), 1)
			}
			return nil
		},
	}
}
