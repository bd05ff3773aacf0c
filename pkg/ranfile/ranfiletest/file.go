// Package ranfiletest provides in-memory files that record and fail the
// calls made against them.
package ranfiletest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/afeish/blockfile/pkg/ranfile"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var _ ranfile.File = (*CountingFile)(nil)

// ErrInjected is what FailWritesAfter fails with.
var ErrInjected = errors.New("injected failure")

// CountingFile wraps a ranfile.File and records every Read and Write.
type CountingFile struct {
	ranfile.File

	reads       atomic.Int64
	writes      atomic.Int64
	readOffsets mapset.Set[int64]

	mu        sync.Mutex
	readErr   error
	writeErr  error
	readGate  chan struct{}
	failAfter int64 // fail writes once this many succeeded, -1 disables
}

// NewMemFile returns a CountingFile over a fresh in-memory file holding
// content.
func NewMemFile(t testing.TB, content []byte) *CountingFile {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/blockfile", content, 0o644))
	f, err := ranfile.Open(fs, "/blockfile", true)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return Wrap(f)
}

func Wrap(f ranfile.File) *CountingFile {
	return &CountingFile{
		File:        f,
		readOffsets: mapset.NewSet[int64](),
		failAfter:   -1,
	}
}

func (c *CountingFile) Read(ctx context.Context, offset int64, length int) ([]byte, error) {
	c.mu.Lock()
	gate, err := c.readGate, c.readErr
	c.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.reads.Add(1)
	c.readOffsets.Add(offset)
	if err != nil {
		return nil, err
	}
	return c.File.Read(ctx, offset, length)
}

func (c *CountingFile) Write(ctx context.Context, offset int64, p []byte) (int, error) {
	c.mu.Lock()
	err := c.writeErr
	if err == nil && c.failAfter >= 0 {
		if c.failAfter == 0 {
			err = ErrInjected
		} else {
			c.failAfter--
		}
	}
	c.mu.Unlock()

	c.writes.Add(1)
	if err != nil {
		return 0, err
	}
	return c.File.Write(ctx, offset, p)
}

// Reads is the number of Read calls so far.
func (c *CountingFile) Reads() int64 { return c.reads.Load() }

// Writes is the number of Write calls so far.
func (c *CountingFile) Writes() int64 { return c.writes.Load() }

// ReadOffsets is the set of distinct offsets Read was called with.
func (c *CountingFile) ReadOffsets() mapset.Set[int64] { return c.readOffsets }

func (c *CountingFile) ResetCounters() {
	c.reads.Store(0)
	c.writes.Store(0)
	c.readOffsets.Clear()
}

// FailReads makes every following Read return err; nil restores reads.
func (c *CountingFile) FailReads(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

// FailWrites makes every following Write return err; nil restores writes.
func (c *CountingFile) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// FailWritesAfter lets n more writes through and fails the rest with
// ErrInjected.
func (c *CountingFile) FailWritesAfter(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAfter = n
}

// HoldReads blocks every Read until the returned release func is called.
func (c *CountingFile) HoldReads() (release func()) {
	gate := make(chan struct{})
	c.mu.Lock()
	c.readGate = gate
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.readGate = nil
			c.mu.Unlock()
			close(gate)
		})
	}
}

// Pattern returns n bytes where byte i is i mod 251.
func Pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}
