package blockfile

import (
	. "github.com/afeish/blockfile/global" //lint:ignore ST1001 ignore
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultBlockSize      int64 = (1 << 12) - 1
	DefaultBlockDepth           = 64
	DefaultReadAheadDepth       = 4
)

var (
	envCfg = GetEnvCfg()

	DefaultOptions = Options{
		BlockSize:      IfOr(envCfg.Cache.BlockSize > 0, envCfg.Cache.BlockSize.Int64(), DefaultBlockSize),
		BlockDepth:     IfOr(envCfg.Cache.BlockDepth > 0, envCfg.Cache.BlockDepth, DefaultBlockDepth),
		ReadAheadDepth: envCfg.Cache.ReadAheadDepth,
	}
)

// Options configures a Manager and the BlockFile that owns it.
type Options struct {
	// BlockSize is the number of bytes in each cached block.
	BlockSize int64
	// BlockDepth is the maximum number of blocks resident at once.
	BlockDepth int
	// ReadAheadDepth is validated and reported but nothing prefetches yet.
	ReadAheadDepth int

	Logger *zap.Logger
}

func WithBlockSize(blockSize int64) Option[*Options] {
	return OptionFunc[*Options](func(opts *Options) {
		opts.BlockSize = blockSize
	})
}

func WithBlockDepth(blockDepth int) Option[*Options] {
	return OptionFunc[*Options](func(opts *Options) {
		opts.BlockDepth = blockDepth
	})
}

func WithReadAheadDepth(readAheadDepth int) Option[*Options] {
	return OptionFunc[*Options](func(opts *Options) {
		opts.ReadAheadDepth = readAheadDepth
	})
}

func WithLogger(lg *zap.Logger) Option[*Options] {
	return OptionFunc[*Options](func(opts *Options) {
		opts.Logger = lg
	})
}

func (o *Options) Validate() error {
	if o.BlockSize <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "blockSize must be greater than zero, got %d", o.BlockSize)
	}
	if o.BlockDepth <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "blockDepth must be greater than zero, got %d", o.BlockDepth)
	}
	if o.ReadAheadDepth < 0 {
		return errors.Wrapf(ErrInvalidArgument, "readAheadDepth must be zero or more, got %d", o.ReadAheadDepth)
	}
	if o.ReadAheadDepth >= o.BlockDepth {
		return errors.Wrapf(ErrInvalidArgument, "readAheadDepth (%d) must be less than blockDepth (%d)", o.ReadAheadDepth, o.BlockDepth)
	}
	return nil
}

func newOptions(opts ...Option[*Options]) (Options, error) {
	o := DefaultOptions
	ApplyOptions[*Options](&o, opts...)
	if err := o.Validate(); err != nil {
		return o, err
	}
	if o.Logger == nil {
		o.Logger = GetLogger()
	}
	return o, nil
}
