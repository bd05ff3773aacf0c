package block

import (
	"context"
	"io"
	"sync"

	. "github.com/afeish/blockfile/global" //lint:ignore ST1001 ignore
	"github.com/afeish/blockfile/pkg/ranfile"
	"github.com/afeish/blockfile/pkg/util/mem"
	"github.com/afeish/blockfile/pkg/util/size"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfRange      = errors.New("offset out of block range")
)

type bufferState int

const (
	stateUnmaterialized bufferState = iota
	stateLoading
	stateResident
)

func (s bufferState) String() string {
	switch s {
	case stateLoading:
		return "loading"
	case stateResident:
		return "resident"
	default:
		return "unmaterialized"
	}
}

// load is one in-flight fetch of a block's content, shared by every caller
// that arrives while it runs.
type load struct {
	done chan struct{}
	err  error
}

// Block is a fixed-capacity window onto the file starting at offset. Its
// buffer is fetched on first use, and writes go through to the file before
// they land in the buffer.
type Block struct {
	mu sync.RWMutex

	file     ranfile.File
	offset   int64
	capacity int64
	used     int64 // logical length, <= capacity
	dirty    int64 // bytes written since load, advisory

	buf      []byte
	pooled   bool // buf came from mem.Allocate
	state    bufferState
	inflight *load

	lg *zap.Logger
}

// New returns an unmaterialized block whose used length is whatever the
// file currently holds inside [offset, offset+capacity).
func New(file ranfile.File, offset, capacity int64, lg *zap.Logger) *Block {
	return &Block{
		file:     file,
		offset:   offset,
		capacity: capacity,
		used:     Min(capacity, Max(0, file.Size()-offset)),
		lg:       lg,
	}
}

// NewWithBuffer returns a block already holding buf. A buf shorter than
// capacity is upgraded to a full-capacity buffer on first materialization.
func NewWithBuffer(file ranfile.File, offset, capacity int64, buf []byte, lg *zap.Logger) *Block {
	used := Min(capacity, int64(len(buf)))
	return &Block{
		file:     file,
		offset:   offset,
		capacity: capacity,
		used:     used,
		buf:      buf[:used],
		state:    stateResident,
		lg:       lg,
	}
}

// ID is the block's position in units of its capacity.
func (b *Block) ID() int64 {
	return b.offset / b.capacity
}

func (b *Block) Offset() int64 {
	return b.offset
}

func (b *Block) Capacity() int64 {
	return b.capacity
}

// Len is the number of valid bytes in the block.
func (b *Block) Len() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.used
}

func (b *Block) Dirty() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dirty
}

// Buffer returns the resident buffer, or nil before the first load.
func (b *Block) Buffer() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state != stateResident {
		return nil
	}
	return b.buf
}

func (b *Block) Materialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state == stateResident
}

// Materialize makes the buffer resident, loading it from the file at most
// once no matter how many callers ask concurrently.
func (b *Block) Materialize(ctx context.Context) ([]byte, error) {
	for {
		b.mu.Lock()
		switch b.state {
		case stateResident:
			if int64(len(b.buf)) < b.capacity {
				b.upgrade()
			}
			buf := b.buf
			b.mu.Unlock()
			return buf, nil

		case stateLoading:
			l := b.inflight
			b.mu.Unlock()
			select {
			case <-l.done:
				if l.err != nil {
					return nil, l.err
				}
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		default:
			l := &load{done: make(chan struct{})}
			b.inflight = l
			b.state = stateLoading
			used := b.used
			b.mu.Unlock()

			data, err := b.file.Read(ctx, b.offset, int(used))

			b.mu.Lock()
			if err != nil {
				b.state = stateUnmaterialized
				l.err = err
			} else {
				b.install(data)
			}
			b.inflight = nil
			b.mu.Unlock()
			close(l.done)

			if err != nil {
				b.lg.Error("load block", zap.Int64("offset", b.offset), zap.Int64("used", used), zap.Error(err))
				return nil, err
			}
			b.lg.Debug("load block", zap.Int64("block-id", b.ID()), zap.Int64("offset", b.offset),
				zap.String("loaded", humanize.IBytes(uint64(len(data)))), zap.String("data", size.ReadSummary(data, 10)))
		}
	}
}

// install keeps data as the buffer, copying it into a full-capacity buffer
// when it came back short. Caller holds b.mu.
func (b *Block) install(data []byte) {
	b.used = Min(b.capacity, int64(len(data)))
	if int64(len(data)) == b.capacity {
		b.buf, b.pooled = data, false
	} else {
		b.buf, b.pooled = mem.Allocate(int(b.capacity)), true
		copy(b.buf, data[:b.used])
	}
	b.dirty = 0
	b.state = stateResident
}

// upgrade swaps an undersized buffer for a zero-padded full-capacity one.
// Caller holds b.mu.
func (b *Block) upgrade() {
	buf := mem.Allocate(int(b.capacity))
	copy(buf, b.buf[:b.used])
	b.buf, b.pooled = buf, true
}

// relative validates that off can be read and returns it relative to the
// block start. Caller holds b.mu.
func (b *Block) relative(off int64) (int64, error) {
	if off < b.offset {
		return 0, errors.Wrapf(ErrOutOfRange, "(<) offset %d, block starts at %d", off, b.offset)
	}
	if off >= b.offset+b.used {
		return 0, errors.Wrapf(ErrOutOfRange, "(>) offset %d, block holds [%d, %d)", off, b.offset, b.offset+b.used)
	}
	return off - b.offset, nil
}

// writable validates that a write can begin at off and returns it relative
// to the block start. Caller holds b.mu.
func (b *Block) writable(off int64) (int64, error) {
	if off < b.offset {
		return 0, errors.Wrapf(ErrOutOfRange, "(<) offset %d, block starts at %d", off, b.offset)
	}
	end := b.offset + b.used
	if (b.used == b.capacity && off >= end) || off > end {
		return 0, errors.Wrapf(ErrOutOfRange, "(>) offset %d, block holds [%d, %d)", off, b.offset, end)
	}
	return off - b.offset, nil
}

// Read returns a copy of up to length bytes at the absolute offset off.
// Reads stop at the block's used length.
func (b *Block) Read(ctx context.Context, off int64, length int) ([]byte, error) {
	if length < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative length %d", length)
	}
	b.mu.RLock()
	_, err := b.relative(off)
	b.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if _, err := b.Materialize(ctx); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	rel, err := b.relative(off)
	if err != nil {
		return nil, err
	}
	n := Min(int64(length), b.used-rel)
	p := make([]byte, n)
	copy(p, b.buf[rel:rel+n])
	return p, nil
}

// Write copies data[start:start+length] into the block at the absolute
// offset off, as far as capacity allows, and writes the same span through
// to the file. It returns the absolute offset following the last byte
// written.
//
// Writing may begin anywhere inside the used length, or exactly at its end
// when the block is not full.
func (b *Block) Write(ctx context.Context, off int64, data []byte, start, length int) (int64, error) {
	if start < 0 || length < 0 || length > len(data)-start {
		return off, errors.Wrapf(ErrInvalidArgument, "data range start=%d length=%d of %d bytes", start, length, len(data))
	}

	b.mu.RLock()
	_, err := b.writable(off)
	b.mu.RUnlock()
	if err != nil {
		return off, err
	}

	if _, err := b.Materialize(ctx); err != nil {
		return off, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rel, err := b.writable(off)
	if err != nil {
		return off, err
	}
	n := Min(int64(length), b.capacity-rel)
	if n == 0 {
		return off, nil
	}
	span := data[start : start+int(n)]

	written, err := b.file.Write(ctx, off, span)
	if err != nil {
		b.lg.Error("write through", zap.Int64("offset", off), zap.Int64("len", n), zap.Error(err))
		return off, err
	}
	if int64(written) != n {
		return off, io.ErrShortWrite
	}

	copy(b.buf[rel:], span)
	b.used = Max(b.used, rel+n)
	b.dirty += n

	b.lg.Debug("write block", zap.Int64("block-id", b.ID()), zap.Int64("offset", off), zap.Int64("written", n),
		zap.Int64("used", b.used), zap.String("data", size.ReadSummary(span, 10)))
	return off + n, nil
}

// Release hands the buffer back to the allocator. The block must not be
// used afterwards.
func (b *Block) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateResident {
		return
	}
	if b.pooled {
		mem.Free(b.buf)
	}
	b.buf, b.pooled = nil, false
	b.state = stateUnmaterialized
}

func (b *Block) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return "block[" + humanize.Comma(b.offset) + "+" + humanize.Comma(b.used) + "/" + humanize.Comma(b.capacity) + " " + b.state.String() + "]"
}
