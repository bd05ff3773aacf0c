// Package ranfile provides random-access files: arbitrary-offset reads and
// writes over an afero filesystem, with short reads at end of file.
package ranfile

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	ErrNotExist = errors.Wrap(os.ErrNotExist, "random access file")
	ErrReadOnly = errors.New("file opened read-only")
	ErrClosed   = errors.New("file already closed")
)

// File is the store a block cache sits on.
type File interface {
	// Read returns up to length bytes at offset. Fewer bytes at end of file
	// is not an error.
	Read(ctx context.Context, offset int64, length int) ([]byte, error)
	// Write stores p at offset and returns the number of bytes written.
	Write(ctx context.Context, offset int64, p []byte) (int, error)
	Size() int64
	Writable() bool
	Name() string
	Close() error
}

var _ File = (*RandomAccessFile)(nil)

type RandomAccessFile struct {
	mu       sync.RWMutex
	f        afero.File
	name     string
	size     int64
	writable bool
	closed   bool
}

// Open opens an existing file. A missing file yields an error matching
// ErrNotExist.
func Open(fs afero.Fs, name string, writable bool) (*RandomAccessFile, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := fs.OpenFile(name, flag, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotExist, "open %s", name)
		}
		return nil, err
	}
	return newFile(f, name, writable)
}

// Create creates name, truncating it if it already exists. The result is
// always writable.
func Create(fs afero.Fs, name string) (*RandomAccessFile, error) {
	f, err := fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return newFile(f, name, true)
}

// OpenOrCreate opens name, creating it only when it is missing and the
// caller asked for write access. Other open errors are returned as is.
func OpenOrCreate(fs afero.Fs, name string, writable bool) (*RandomAccessFile, error) {
	f, err := Open(fs, name, writable)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, ErrNotExist) && writable {
		return Create(fs, name)
	}
	return nil, err
}

func newFile(f afero.File, name string, writable bool) (*RandomAccessFile, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &RandomAccessFile{
		f:        f,
		name:     name,
		size:     info.Size(),
		writable: writable,
	}, nil
}

func (r *RandomAccessFile) Read(ctx context.Context, offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, errors.Errorf("invalid read range offset=%d length=%d", offset, length)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	if offset >= r.size || length == 0 {
		return []byte{}, nil
	}
	if remain := r.size - offset; int64(length) > remain {
		length = int(remain)
	}

	p := make([]byte, length)
	n, err := r.f.ReadAt(p, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return p[:n], nil
}

func (r *RandomAccessFile) Write(ctx context.Context, offset int64, p []byte) (int, error) {
	if offset < 0 {
		return 0, errors.Errorf("invalid write offset %d", offset)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	if !r.writable {
		return 0, errors.Wrapf(ErrReadOnly, "write %s", r.name)
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := r.f.WriteAt(p, offset)
	if end := offset + int64(n); end > r.size {
		r.size = end
	}
	return n, err
}

func (r *RandomAccessFile) Size() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *RandomAccessFile) Writable() bool {
	return r.writable
}

func (r *RandomAccessFile) Name() string {
	return r.name
}

func (r *RandomAccessFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.f.Close()
}
