package mem

import (
	"sync"
	"sync/atomic"
)

var (
	used  int64
	pools []*sync.Pool
)

const (
	minSize = 1024
	maxSize = 1024 * 1024 * 256
)

// bitCount maps size to the index of the smallest slab holding it.
func bitCount(size int) (count int) {
	for ; size > minSize; count++ {
		size = (size + 1) >> 1
	}
	return
}

func init() {
	// 1KB ~ 256MB
	pools = make([]*sync.Pool, bitCount(maxSize)+1)
	for i := 0; i < len(pools); i++ {
		slotSize := minSize << i
		pools[i] = &sync.Pool{
			New: func() interface{} {
				buffer := make([]byte, slotSize)
				return &buffer
			},
		}
	}
}

func getSlotPool(size int) (*sync.Pool, bool) {
	index := bitCount(size)
	if index >= len(pools) {
		return nil, false
	}
	return pools[index], true
}

// Allocate returns a zeroed slice of len size, drawn from a slab pool when
// one fits.
func Allocate(size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	if pool, found := getSlotPool(size); found {
		slab := *pool.Get().(*[]byte)
		atomic.AddInt64(&used, int64(cap(slab)))
		r := slab[:size]
		zero(r)
		return r
	}
	return make([]byte, size)
}

// Free hands buf back to its pool. buf must not be used afterwards.
func Free(buf []byte) {
	if cap(buf) < minSize || cap(buf)&(cap(buf)-1) != 0 {
		return
	}
	if pool, found := getSlotPool(cap(buf)); found {
		atomic.AddInt64(&used, -int64(cap(buf)))
		buf = buf[:cap(buf)]
		pool.Put(&buf)
	}
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

// AllocMemory reports the bytes currently handed out from the pools.
func AllocMemory() int64 {
	return atomic.LoadInt64(&used)
}
