package register

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/risor-io/regasm/errz"
)

func TestParameterRegisters(t *testing.T) {
	tests := []struct {
		index      int
		paramCount int
		want       Register
	}{
		{0, 1, -3},
		{0, 3, -5},
		{1, 3, -4},
		{2, 3, -3},
	}
	for _, tt := range tests {
		r := FromParameterIndex(tt.index, tt.paramCount)
		require.Equal(t, tt.want, r)
		require.True(t, r.IsParameter())
		require.Equal(t, tt.index, r.ToParameterIndex(tt.paramCount))
		require.Equal(t, "a"+string(rune('0'+tt.index)), r.Name(tt.paramCount))
	}
	require.False(t, FunctionClosure.IsParameter())
	require.False(t, CurrentContext.IsParameter())
	require.False(t, Register(0).IsParameter())
	require.False(t, Invalid.IsParameter())
}

func TestParameterIndexOutOfRange(t *testing.T) {
	tests := []struct {
		index      int
		paramCount int
	}{
		{2, 2},
		{3, 2},
		{-1, 2},
		{0, 0},
	}
	for _, tt := range tests {
		err := errz.Catch(func() { FromParameterIndex(tt.index, tt.paramCount) })
		var ie *errz.InvariantError
		require.ErrorAs(t, err, &ie, "a%d of %d", tt.index, tt.paramCount)
		require.Equal(t, errz.E5003, ie.Code)
	}
}

func TestRegisterString(t *testing.T) {
	require.Equal(t, "r4", Register(4).String())
	require.Equal(t, "<closure>", FunctionClosure.String())
	require.Equal(t, "<context>", CurrentContext.String())
	require.Equal(t, "r2", Register(2).Name(5))
}

func TestList(t *testing.T) {
	l := NewList(3, 4)
	require.Equal(t, Register(3), l.First())
	require.Equal(t, Register(6), l.Last())
	require.Equal(t, Register(5), l.At(2))
	require.True(t, l.Contains(6))
	require.False(t, l.Contains(7))
	require.Equal(t, NewList(3, 2), l.Truncate(2))
	require.Equal(t, NewList(4, 3), l.PopLeft())
	require.Equal(t, "r3-r6", l.String())
	require.Equal(t, "()", EmptyList().String())
	require.Panics(t, func() { l.At(4) })
}

func TestAllocatorBalanced(t *testing.T) {
	a := NewAllocator(2, 3)
	require.Equal(t, 3, a.NextIndex())

	r := a.NewRegister()
	require.Equal(t, Register(3), r)
	l := a.Acquire(3)
	require.Equal(t, NewList(4, 3), l)
	require.Equal(t, 4, a.TemporaryCount())
	require.True(t, a.IsLive(6))
	require.False(t, a.IsLive(2))

	a.Release(l)
	a.ReleaseRegister(r)
	require.Equal(t, 0, a.TemporaryCount())
	require.Equal(t, 4, a.MaxTemporaryCount())
	require.Equal(t, 7, a.FrameSize())
	require.Equal(t, 0, a.Outstanding())

	again := a.NewRegister()
	require.Equal(t, r, again)
}

func TestAllocatorOutOfOrderRelease(t *testing.T) {
	a := NewAllocator(0, 0)
	first := a.NewRegister()
	a.NewRegister()
	err := errz.Catch(func() { a.ReleaseRegister(first) })
	require.NotNil(t, err)
	var ie *errz.InvariantError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, errz.E5004, ie.Code)
}

func TestAllocatorGrow(t *testing.T) {
	a := NewAllocator(0, 1)
	l := a.Acquire(0)
	l, r := a.Grow(l)
	require.Equal(t, Register(1), r)
	l, r = a.Grow(l)
	require.Equal(t, Register(2), r)
	require.Equal(t, NewList(1, 2), l)
	a.Release(l)
	require.Equal(t, 2, a.MaxTemporaryCount())

	other := a.Acquire(1)
	a.NewRegister()
	require.Panics(t, func() { a.Grow(other) })
}

func TestScope(t *testing.T) {
	a := NewAllocator(0, 0)
	outer := a.NewRegister()
	s := a.NewScope()
	a.NewRegister()
	a.Acquire(4)
	require.Equal(t, 6, a.NextIndex())
	s.Close()
	s.Close()
	require.Equal(t, 1, a.NextIndex())
	require.Equal(t, 1, a.Outstanding())
	a.ReleaseRegister(outer)
	require.Equal(t, 6, a.FrameSize())
}

type recorder struct {
	events []string
}

func (r *recorder) RegisterAllocated(reg Register) {
	r.events = append(r.events, "alloc "+reg.String())
}

func (r *recorder) RegisterListAllocated(l List) {
	r.events = append(r.events, "list "+l.String())
}

func (r *recorder) RegisterListFreed(l List) {
	r.events = append(r.events, "free "+l.String())
}

func TestObserver(t *testing.T) {
	a := NewAllocator(0, 0)
	rec := &recorder{}
	a.SetObserver(rec)
	r := a.NewRegister()
	l := a.Acquire(2)
	a.Release(l)
	a.ReleaseRegister(r)
	require.Equal(t, []string{
		"alloc r0",
		"list r1-r2",
		"free r1-r2",
		"free r0-r0",
	}, rec.events)
}
