package cmd

import (
	. "github.com/afeish/blockfile/global" //lint:ignore ST1001 ignore
	"github.com/afeish/blockfile/pkg/blockfile"
	"github.com/afeish/blockfile/pkg/util/size"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

const (
	FlagNameBlockSize      = "block-size"
	FlagNameBlockDepth     = "block-depth"
	FlagNameReadAheadDepth = "readahead-depth"
	FlagNameLogLevel       = "log-level"
	FlagNameLogFileEnabled = "log-file-enabled"
	FlagNameLogDir         = "log-dir"

	flagNameFile   = "file"
	flagNameOffset = "offset"
	flagNameLength = "length"
	flagNameData   = "data"
	flagNameInput  = "input"
	flagNameCreate = "create"
	flagNameRounds = "rounds"
	flagNameSize   = "size"
)

var (
	cfg = GetEnvCfg()

	// Fs is the filesystem every command opens files on.
	Fs = afero.NewOsFs()

	GlobalFlags = []cli.Flag{
		&cli.StringFlag{
			Name:        FlagNameLogLevel,
			Usage:       "log level. Valid options are debug,info,warning,error",
			EnvVars:     []string{"BLOCKFILE_LOG_LEVEL"},
			Value:       cfg.Log.Level,
			Destination: &cfg.Log.Level,
			Aliases:     []string{"level"},
			Category:    "global flags",
		},
		&cli.BoolFlag{
			Name:        FlagNameLogFileEnabled,
			EnvVars:     []string{"BLOCKFILE_LOG_FILE_ENABLED"},
			Usage:       "whether enable the log to file.",
			Value:       cfg.Log.FileEnabled,
			Destination: &cfg.Log.FileEnabled,
			Category:    "global flags",
		},
		&cli.StringFlag{
			Name:        FlagNameLogDir,
			EnvVars:     []string{"BLOCKFILE_LOG_DIR"},
			Usage:       "log dir",
			Value:       cfg.Log.Dir,
			Destination: &cfg.Log.Dir,
			Category:    "global flags",
		},
		&cli.GenericFlag{
			Name:     FlagNameBlockSize,
			Usage:    "the size of each cached block",
			EnvVars:  []string{"BLOCKFILE_BLOCK_SIZE"},
			Value:    NewSizeSuffixFlag(IfOr(cfg.Cache.BlockSize > 0, cfg.Cache.BlockSize, size.SizeSuffix(blockfile.DefaultBlockSize))),
			Aliases:  []string{"bs"},
			Category: "global flags",
		},
		&cli.IntFlag{
			Name:        FlagNameBlockDepth,
			Usage:       "the maximum number of resident blocks",
			EnvVars:     []string{"BLOCKFILE_BLOCK_DEPTH"},
			Value:       cfg.Cache.BlockDepth,
			Destination: &cfg.Cache.BlockDepth,
			Aliases:     []string{"bd"},
			Category:    "global flags",
		},
		&cli.IntFlag{
			Name:        FlagNameReadAheadDepth,
			Usage:       "the read-ahead distance in blocks, must be less than block-depth",
			EnvVars:     []string{"BLOCKFILE_READAHEAD_DEPTH"},
			Value:       cfg.Cache.ReadAheadDepth,
			Destination: &cfg.Cache.ReadAheadDepth,
			Aliases:     []string{"ra"},
			Category:    "global flags",
		},
	}
)

func fileFlag() cli.Flag {
	return &cli.PathFlag{
		Name:     flagNameFile,
		Usage:    "path of the file to operate on",
		Required: true,
		Aliases:  []string{"f"},
	}
}

func withGlobalFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, GlobalFlags...)
}

func blockOptions(c *cli.Context) []Option[*blockfile.Options] {
	return []Option[*blockfile.Options]{
		blockfile.WithBlockSize(c.Generic(FlagNameBlockSize).(*SizeSuffixFlag).Get().Int64()),
		blockfile.WithBlockDepth(c.Int(FlagNameBlockDepth)),
		blockfile.WithReadAheadDepth(c.Int(FlagNameReadAheadDepth)),
		blockfile.WithLogger(GetLogger().Named("cli")),
	}
}

type SizeSuffixFlag struct {
	sz size.SizeSuffix
}

func NewSizeSuffixFlag(sz size.SizeSuffix) *SizeSuffixFlag {
	return &SizeSuffixFlag{sz: sz}
}

func (k *SizeSuffixFlag) Set(value string) error {
	var x size.SizeSuffix
	if err := x.Set(value); err != nil {
		return errors.Wrapf(err, "err set sizeSuffix")
	}
	k.sz = x
	return nil
}

func (k *SizeSuffixFlag) String() string {
	return k.sz.String()
}

func (k *SizeSuffixFlag) Get() size.SizeSuffix {
	return k.sz
}
