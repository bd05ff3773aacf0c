package global

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOption(t *testing.T) {
	type options struct {
		cap int
	}

	withCap := func(cap int) Option[*options] {
		return OptionFunc[*options](func(opts *options) {
			opts.cap = cap
		})
	}

	defaultOpt := options{cap: 1}

	type teststruct struct {
		opt options
	}

	t1 := teststruct{
		opt: defaultOpt,
	}

	t2 := teststruct{
		opt: defaultOpt,
	}

	ApplyOptions[*options](&t1.opt, withCap(10))
	require.EqualValues(t, 10, t1.opt.cap)

	ApplyOptions[*options](&t2.opt, withCap(2))
	require.EqualValues(t, 10, t1.opt.cap)
	require.EqualValues(t, 2, t2.opt.cap)
	require.EqualValues(t, 1, defaultOpt.cap)
}

func TestMax(t *testing.T) {
	a := Max[int]()
	require.EqualValues(t, 0, a)

	a = Max[int](1, 2, 4, 3)
	require.EqualValues(t, 4, a)
}

func TestMin(t *testing.T) {
	require.EqualValues(t, 0, Min[int64]())
	require.EqualValues(t, -3, Min[int64](5, -3, 7))
	require.EqualValues(t, 10, Min(20, 10, 4095-4085+10))
}

func TestIfOr(t *testing.T) {
	require.Equal(t, "rw", IfOr(true, "rw", "ro"))
	require.Equal(t, "ro", IfOr(false, "rw", "ro"))
}

func TestClosableCh(t *testing.T) {
	c := NewClosableCh()
	require.False(t, c.IsClosed())

	calls := 0
	c.Close(func() { calls++ })
	c.Close(func() { calls++ })
	require.True(t, c.IsClosed())
	require.Equal(t, 1, calls)
}
