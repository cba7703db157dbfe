package regopt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
)

func TestLoadOfMirrorIsAbsorbed(t *testing.T) {
	o := New(nil)
	require.True(t, o.DoStar(3))
	require.False(t, o.DoLdar(3))
	require.True(t, o.DoLdar(4))
	require.False(t, o.DoLdar(4))
	require.Equal(t, 2, o.Absorbed())
}

func TestAccumulatorWriteForgetsMirror(t *testing.T) {
	tests := []struct {
		code   op.Code
		forget bool
	}{
		{op.LdaZero, true},
		{op.Add, true},
		{op.CallProperty, true},
		{op.Return, false},
		{op.StaGlobalStrict, false},
		{op.Mov, false},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			o := New(nil)
			o.DoStar(1)
			o.PrepareForBytecode(tt.code)
			_, valid := o.Mirror()
			require.Equal(t, !tt.forget, valid)
		})
	}
}

func TestOutputRegistersForgetMirror(t *testing.T) {
	o := New(nil)
	o.DoStar(2)
	o.PrepareOutputRegister(1)
	require.False(t, o.DoLdar(2))

	o.PrepareOutputRegisterList(register.NewList(1, 3))
	require.True(t, o.DoLdar(2))

	o.Flush()
	require.True(t, o.DoLdar(2))
}

func TestMov(t *testing.T) {
	o := New(nil)
	require.False(t, o.DoMov(1, 1))
	o.DoStar(2)
	require.True(t, o.DoMov(1, 5))
	require.False(t, o.DoLdar(2))
	require.True(t, o.DoMov(1, 2))
	require.True(t, o.DoLdar(2))
}

func TestObservesAllocator(t *testing.T) {
	alloc := register.NewAllocator(0, 0)
	o := New(alloc)
	r := alloc.NewRegister()
	o.DoStar(r)
	alloc.ReleaseRegister(r)
	_, valid := o.Mirror()
	require.False(t, valid)

	r = alloc.NewRegister()
	require.True(t, o.DoLdar(r))
}
