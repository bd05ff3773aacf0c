package ranfile

import (
	"context"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestOpenMissing(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Open(fs, "/missing", false)
	require.ErrorIs(t, err, ErrNotExist)
	require.True(t, errors.Is(err, os.ErrNotExist))

	_, err = OpenOrCreate(fs, "/missing", false)
	require.ErrorIs(t, err, ErrNotExist)

	exists, err := afero.Exists(fs, "/missing")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestOpenOrCreateWritable(t *testing.T) {
	fs := afero.NewMemMapFs()

	f, err := OpenOrCreate(fs, "/data", true)
	require.NoError(t, err)
	require.True(t, f.Writable())
	require.EqualValues(t, 0, f.Size())
	require.NoError(t, f.Close())

	exists, err := afero.Exists(fs, "/data")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestOpenOrCreateKeepsExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data", []byte("hello"), 0o644))

	f, err := OpenOrCreate(fs, "/data", true)
	require.NoError(t, err)
	defer f.Close()
	require.EqualValues(t, 5, f.Size())
}

func TestCreateTruncates(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data", []byte("hello"), 0o644))

	f, err := Create(fs, "/data")
	require.NoError(t, err)
	defer f.Close()
	require.EqualValues(t, 0, f.Size())
}

func TestReadShortAtEOF(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data", []byte("0123456789"), 0o644))

	f, err := Open(fs, "/data", false)
	require.NoError(t, err)
	defer f.Close()

	p, err := f.Read(ctx, 6, 100)
	require.NoError(t, err)
	require.Equal(t, []byte("6789"), p)

	p, err = f.Read(ctx, 10, 5)
	require.NoError(t, err)
	require.Empty(t, p)

	p, err = f.Read(ctx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("234"), p)

	_, err = f.Read(ctx, -1, 3)
	require.Error(t, err)
}

func TestWriteGrowsSize(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	f, err := Create(fs, "/data")
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write(ctx, 0, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.EqualValues(t, 3, f.Size())

	n, err = f.Write(ctx, 1, []byte("XY"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.EqualValues(t, 3, f.Size())

	p, err := f.Read(ctx, 0, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("aXY"), p)
}

func TestWriteReadOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data", []byte("abc"), 0o644))

	f, err := Open(fs, "/data", false)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(context.Background(), 0, []byte("z"))
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestClosed(t *testing.T) {
	f, err := Create(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Read(context.Background(), 0, 1)
	require.ErrorIs(t, err, ErrClosed)
	_, err = f.Write(context.Background(), 0, []byte("a"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestCanceledContext(t *testing.T) {
	f, err := Create(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Read(ctx, 0, 1)
	require.ErrorIs(t, err, context.Canceled)
}
