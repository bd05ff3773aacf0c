package blockfile

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/afeish/blockfile/pkg/blockfile/block"
	"github.com/afeish/blockfile/pkg/ranfile"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/samber/mo"
	"github.com/zhangyunhao116/skipmap"
	"go.uber.org/zap"
	"marwan.io/singleflight"
)

type mruEntry struct {
	id    int64
	block *block.Block
}

// Stats counts how Manager.Read requests were served.
type Stats struct {
	MRUHits   int64
	IndexHits int64
	Misses    int64
	Evictions int64
	Resident  int
}

// Manager keeps up to BlockDepth blocks of a file in memory.
//
// Resident blocks live in a fixed ring of slots. A miss fetches the block,
// advances the head slot and evicts whatever occupied it, so eviction
// follows first-fetch order; re-reading a resident block does not move it.
// An ordered index maps block ids to slots and the most recently served
// block is checked before the index.
type Manager struct {
	mu sync.Mutex

	file           ranfile.File
	blockSize      int64
	blockDepth     int
	readAheadDepth int

	ring  []*block.Block
	head  int
	index *skipmap.OrderedMap[int64, int]
	mru   mo.Option[mruEntry]

	g singleflight.Group[*block.Block]

	mruHits, indexHits, misses, evictions atomic.Int64

	lg *zap.Logger
}

func NewManager(file ranfile.File, opts ...Option[*Options]) (*Manager, error) {
	if file == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "file is required")
	}
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return newManager(file, o), nil
}

func newManager(file ranfile.File, o Options) *Manager {
	return &Manager{
		file:           file,
		blockSize:      o.BlockSize,
		blockDepth:     o.BlockDepth,
		readAheadDepth: o.ReadAheadDepth,
		ring:           make([]*block.Block, o.BlockDepth),
		head:           -1,
		index:          skipmap.New[int64, int](),
		mru:            mo.None[mruEntry](),
		lg:             o.Logger.Named("manager"),
	}
}

func (m *Manager) BlockSize() int64 {
	return m.blockSize
}

func (m *Manager) BlockDepth() int {
	return m.blockDepth
}

func (m *Manager) ReadAheadDepth() int {
	return m.readAheadDepth
}

// Count is the number of blocks the file currently spans.
func (m *Manager) Count() int64 {
	return (m.file.Size() + m.blockSize - 1) / m.blockSize
}

// BlockID returns the id of the block holding the byte at offset.
func (m *Manager) BlockID(offset int64) int64 {
	return offset / m.blockSize
}

// BlockRelativeOffset returns offset relative to the start of its block.
func (m *Manager) BlockRelativeOffset(offset int64) int64 {
	return offset % m.blockSize
}

// Read returns the block with the given id, fetching it from the file on a
// miss. Concurrent misses on the same id share one fetch. The shared fetch
// does not inherit any caller's cancellation; a caller whose ctx ends stops
// waiting with ctx.Err() while the others keep waiting on the fetch.
func (m *Manager) Read(ctx context.Context, id int64) (*block.Block, error) {
	if id < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative block id %d", id)
	}

	m.mu.Lock()
	if e, ok := m.mru.Get(); ok && e.id == id {
		m.mu.Unlock()
		m.mruHits.Add(1)
		return e.block, nil
	}
	if blk, ok := m.lookupLocked(id); ok {
		m.mru = mo.Some(mruEntry{id: id, block: blk})
		m.mu.Unlock()
		m.indexHits.Add(1)
		return blk, nil
	}
	m.mu.Unlock()

	type fetched struct {
		blk *block.Block
		err error
	}
	ch := make(chan fetched, 1)
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		blk, err, _ := m.g.Do(strconv.FormatInt(id, 10), func() (*block.Block, error) {
			return m.fetch(fetchCtx, id)
		})
		ch <- fetched{blk: blk, err: err}
	}()

	select {
	case r := <-ch:
		return r.blk, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) fetch(ctx context.Context, id int64) (*block.Block, error) {
	// a flight for id may have finished between our lookup and this one
	m.mu.Lock()
	if blk, ok := m.lookupLocked(id); ok {
		m.mru = mo.Some(mruEntry{id: id, block: blk})
		m.mu.Unlock()
		m.indexHits.Add(1)
		return blk, nil
	}
	m.mu.Unlock()

	blk := block.New(m.file, id*m.blockSize, m.blockSize, m.lg.Named("block"))
	if _, err := blk.Materialize(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	slot := m.installLocked(id, blk)
	m.mu.Unlock()
	m.misses.Add(1)

	m.lg.Debug("cache miss", zap.Int64("block-id", id), zap.Int("slot", slot),
		zap.String("loaded", humanize.IBytes(uint64(blk.Len()))))
	return blk, nil
}

func (m *Manager) lookupLocked(id int64) (*block.Block, bool) {
	slot, ok := m.index.Load(id)
	if !ok {
		return nil, false
	}
	return m.ring[slot], true
}

// installLocked puts blk in the next ring slot, evicting its occupant.
func (m *Manager) installLocked(id int64, blk *block.Block) int {
	m.head = (m.head + 1) % len(m.ring)
	if evicted := m.ring[m.head]; evicted != nil {
		m.index.Delete(evicted.ID())
		m.evictions.Add(1)
		m.lg.Debug("evict block", zap.Int64("block-id", evicted.ID()), zap.Int("slot", m.head))
	}
	m.ring[m.head] = blk
	m.index.Store(id, m.head)
	m.mru = mo.Some(mruEntry{id: id, block: blk})
	return m.head
}

// Resident lists the ids of the blocks currently held, in ascending order.
func (m *Manager) Resident() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, m.index.Len())
	m.index.Range(func(id int64, _ int) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	resident := m.index.Len()
	m.mu.Unlock()
	return Stats{
		MRUHits:   m.mruHits.Load(),
		IndexHits: m.indexHits.Load(),
		Misses:    m.misses.Load(),
		Evictions: m.evictions.Load(),
		Resident:  resident,
	}
}

// release drops every resident block and returns their buffers to the
// allocator. Blocks handed out earlier must not be used afterwards.
func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, blk := range m.ring {
		if blk == nil {
			continue
		}
		blk.Release()
		m.index.Delete(blk.ID())
		m.ring[i] = nil
	}
	m.mru = mo.None[mruEntry]()
	m.head = -1
}
