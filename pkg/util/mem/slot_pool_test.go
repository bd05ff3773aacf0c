package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitCount(t *testing.T) {
	require.Equal(t, 0, bitCount(1))
	require.Equal(t, 0, bitCount(1024))
	require.Equal(t, 1, bitCount(1025))
	require.Equal(t, 2, bitCount(4095))
	require.Equal(t, 2, bitCount(4096))
	require.Equal(t, 3, bitCount(4097))
}

func TestAllocateIsZeroed(t *testing.T) {
	buf := Allocate(4095)
	require.Len(t, buf, 4095)
	require.Equal(t, 4096, cap(buf))
	for i := range buf {
		buf[i] = 0xff
	}
	Free(buf)

	again := Allocate(4000)
	require.Len(t, again, 4000)
	for _, b := range again {
		require.Zero(t, b)
	}
	Free(again)
}

func TestAllocateAccounting(t *testing.T) {
	before := AllocMemory()
	buf := Allocate(2048)
	require.EqualValues(t, before+2048, AllocMemory())
	Free(buf)
	require.EqualValues(t, before, AllocMemory())
}

func TestAllocateEmpty(t *testing.T) {
	require.Len(t, Allocate(0), 0)
	Free(nil)
	Free(make([]byte, 10))
}
