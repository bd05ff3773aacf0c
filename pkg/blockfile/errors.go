package blockfile

import (
	"github.com/afeish/blockfile/pkg/blockfile/block"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument reports a malformed request, raised before any I/O.
	ErrInvalidArgument = block.ErrInvalidArgument
	// ErrOutOfRange reports a block asked for bytes outside its window.
	ErrOutOfRange = block.ErrOutOfRange
	ErrClosed     = errors.New("block file already closed")
)
