// Package blockfile gives byte-range access to a random-access file through
// a bounded cache of fixed-size blocks.
//
// A BlockFile serves one owner: callers sharing one must serialize their
// reads and writes. Writes go through to the file block by block, so a
// write that fails part way leaves the blocks before the failure applied;
// the returned offset tells how far it got.
package blockfile

import (
	"context"
	"io"

	. "github.com/afeish/blockfile/global" //lint:ignore ST1001 ignore
	"github.com/afeish/blockfile/pkg/ranfile"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	_ io.ReaderAt = (*BlockFile)(nil)
	_ io.WriterAt = (*BlockFile)(nil)
	_ io.Closer   = (*BlockFile)(nil)
)

type BlockFile struct {
	file ranfile.File
	man  *Manager

	closeCh ClosableCh
	lg      *zap.Logger
}

// New wraps an already open file.
func New(file ranfile.File, opts ...Option[*Options]) (*BlockFile, error) {
	if file == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "file is required")
	}
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return newBlockFile(file, o), nil
}

func newBlockFile(file ranfile.File, o Options) *BlockFile {
	bf := &BlockFile{
		file:    file,
		man:     newManager(file, o),
		closeCh: NewClosableCh(),
		lg:      o.Logger.Named("blockfile"),
	}
	bf.lg.Debug("open block file", zap.String("name", file.Name()), zap.Int64("size", file.Size()),
		zap.Int64("block-size", o.BlockSize), zap.Int("block-depth", o.BlockDepth), zap.Int("readahead-depth", o.ReadAheadDepth))
	return bf
}

// Open opens an existing file.
func Open(fs afero.Fs, path string, writable bool, opts ...Option[*Options]) (*BlockFile, error) {
	return open(path, opts, func() (ranfile.File, error) {
		return ranfile.Open(fs, path, writable)
	})
}

// Create creates path, truncating any existing file.
func Create(fs afero.Fs, path string, opts ...Option[*Options]) (*BlockFile, error) {
	return open(path, opts, func() (ranfile.File, error) {
		return ranfile.Create(fs, path)
	})
}

// OpenOrCreate opens path, falling back to Create only when it does not
// exist and writable is set.
func OpenOrCreate(fs afero.Fs, path string, writable bool, opts ...Option[*Options]) (*BlockFile, error) {
	return open(path, opts, func() (ranfile.File, error) {
		return ranfile.OpenOrCreate(fs, path, writable)
	})
}

func open(path string, opts []Option[*Options], openFn func() (ranfile.File, error)) (*BlockFile, error) {
	if path == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "path is required")
	}
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	file, err := openFn()
	if err != nil {
		return nil, err
	}
	return newBlockFile(file, o), nil
}

func (bf *BlockFile) File() ranfile.File {
	return bf.file
}

func (bf *BlockFile) Manager() *Manager {
	return bf.man
}

func (bf *BlockFile) BlockSize() int64 {
	return bf.man.BlockSize()
}

func (bf *BlockFile) BlockDepth() int {
	return bf.man.BlockDepth()
}

func (bf *BlockFile) ReadAheadDepth() int {
	return bf.man.ReadAheadDepth()
}

func (bf *BlockFile) Size() int64 {
	return bf.file.Size()
}

// Count is the number of blocks the file currently spans.
func (bf *BlockFile) Count() int64 {
	return bf.man.Count()
}

func (bf *BlockFile) Stats() Stats {
	return bf.man.Stats()
}

// Read returns length bytes starting at offset. When the range runs past
// the end of the file it returns the bytes that exist together with io.EOF.
func (bf *BlockFile) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	if bf.closeCh.IsClosed() {
		return nil, ErrClosed
	}
	if offset < 0 || length < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "read offset=%d length=%d", offset, length)
	}
	if length == 0 {
		return []byte{}, nil
	}

	size := bf.file.Size()
	if offset >= size {
		return []byte{}, io.EOF
	}

	var (
		man       = bf.man
		blockSize = man.BlockSize()
		end       = offset + Min(length, size-offset)
		first     = man.BlockID(offset)
		count     = man.BlockID(end-1) - first + 1
		res       = make([]byte, end-offset)
		n         int64
	)
	for i := int64(0); i < count; i++ {
		blk, err := man.Read(ctx, first+i)
		if err != nil {
			return nil, err
		}

		from := IfOr(i == 0, man.BlockRelativeOffset(offset), 0)
		if from >= blk.Len() {
			break
		}
		want := Min(int64(len(res))-n, blockSize-from)
		data, err := blk.Read(ctx, blk.Offset()+from, int(want))
		if err != nil {
			return nil, err
		}
		n += int64(copy(res[n:], data))
		if int64(len(data)) < want {
			break
		}
	}

	bf.lg.Debug("read", zap.Int64("offset", offset), zap.Int64("length", length), zap.Int64("blocks", count), zap.Int64("n", n))
	if n < length {
		return res[:n], io.EOF
	}
	return res, nil
}

// Write writes data at offset and returns the offset following the last
// byte written.
func (bf *BlockFile) Write(ctx context.Context, offset int64, data []byte) (int64, error) {
	return bf.WriteRange(ctx, offset, data, 0, len(data))
}

// WriteRange writes data[start:start+length] at offset and returns the
// offset following the last byte written. Writing may extend the file but
// must not begin past its end.
func (bf *BlockFile) WriteRange(ctx context.Context, offset int64, data []byte, start, length int) (int64, error) {
	if bf.closeCh.IsClosed() {
		return offset, ErrClosed
	}
	if offset < 0 || start < 0 || length < 0 || length > len(data)-start {
		return offset, errors.Wrapf(ErrInvalidArgument, "write offset=%d start=%d length=%d of %d bytes", offset, start, length, len(data))
	}
	if size := bf.file.Size(); offset > size {
		return offset, errors.Wrapf(ErrInvalidArgument, "write offset %d leaves a gap after end of file %d", offset, size)
	}
	if !bf.file.Writable() {
		return offset, errors.Wrapf(ranfile.ErrReadOnly, "write %s", bf.file.Name())
	}

	var (
		man   = bf.man
		until = offset + int64(length)
		cur   = offset
		src   = start
	)
	for id := man.BlockID(offset); cur < until; id++ {
		blk, err := man.Read(ctx, id)
		if err != nil {
			return cur, err
		}
		next, err := blk.Write(ctx, cur, data, src, int(until-cur))
		if err != nil {
			return cur, err
		}
		if next == cur {
			return cur, errors.Errorf("write made no progress in block %d at offset %d", id, cur)
		}
		src += int(next - cur)
		cur = next
	}

	bf.lg.Debug("write", zap.Int64("offset", offset), zap.Int("length", length), zap.Int64("next", cur))
	return cur, nil
}

func (bf *BlockFile) ReadAt(p []byte, off int64) (int, error) {
	data, err := bf.Read(context.Background(), off, int64(len(p)))
	return copy(p, data), err
}

func (bf *BlockFile) WriteAt(p []byte, off int64) (int, error) {
	next, err := bf.Write(context.Background(), off, p)
	return int(next - off), err
}

// Close releases the cached blocks and closes the file. Calling it again is
// a no-op.
func (bf *BlockFile) Close() (err error) {
	bf.closeCh.Close(func() {
		bf.man.release()
		err = bf.file.Close()
		bf.lg.Debug("close block file", zap.String("name", bf.file.Name()))
	})
	return
}
