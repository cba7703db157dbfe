package asm

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/constpool"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/srcpos"
)

type fixture struct {
	w         *Writer
	pool      *constpool.Builder
	positions *srcpos.Builder
}

func newFixture(elide bool) *fixture {
	return newFixtureWith(Config{Elide: elide})
}

func newFixtureWith(cfg Config) *fixture {
	f := &fixture{
		pool:      constpool.New(),
		positions: srcpos.NewBuilder(srcpos.RecordSourcePositions),
	}
	cfg.Pool = f.pool
	cfg.Positions = f.positions
	cfg.Logger = zerolog.Nop()
	f.w = NewWriter(cfg)
	return f
}

func (f *fixture) write(t *testing.T, nodes ...Node) {
	t.Helper()
	for _, n := range nodes {
		require.Nil(t, f.w.Write(n))
	}
}

func decodeAll(t *testing.T, code []byte) []bytecode.Instruction {
	t.Helper()
	all, err := bytecode.NewBytesIter(code).All()
	require.Nil(t, err)
	return all
}

func codes(instrs []bytecode.Instruction) []op.Code {
	result := make([]op.Code, len(instrs))
	for i, in := range instrs {
		result[i] = in.Code
	}
	return result
}

func TestOperandWidthSelection(t *testing.T) {
	tests := []struct {
		name   string
		node   Node
		length int
		scale  op.OperandScale
	}{
		{"byte", NewNode(op.LdaSmi, 5), 2, op.ScaleSingle},
		{"negative byte", NewNode(op.LdaSmi, -128), 2, op.ScaleSingle},
		{"short", NewNode(op.LdaSmi, 300), 4, op.ScaleDouble},
		{"quad", NewNode(op.LdaSmi, 1<<20), 6, op.ScaleQuadruple},
		{"widest operand wins", NewNode(op.Mov, 1, 70000), 10, op.ScaleQuadruple},
		{"parameter register", NewNode(op.Ldar, -5), 2, op.ScaleSingle},
		{"fixed runtime id", NewNode(op.CallRuntime, 1000, 0, 0), 5, op.ScaleSingle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(true)
			f.write(t, tt.node)
			code := f.w.Finalize()
			require.Len(t, code, tt.length)
			instrs := decodeAll(t, code)
			require.Len(t, instrs, 1)
			require.Equal(t, tt.node.Code, instrs[0].Code)
			require.Equal(t, tt.scale, instrs[0].Scale)
			require.Equal(t, tt.node.Operands, instrs[0].Operands)
		})
	}
}

func TestOperandOutOfRange(t *testing.T) {
	tests := []Node{
		NewNode(op.LdaSmi, 1<<40),
		NewNode(op.LdaConstant, -1),
		NewNode(op.CallRuntime, 1<<16, 0, 0),
		NewNode(op.TestTypeOf, 256),
	}
	for _, node := range tests {
		f := newFixture(true)
		err := f.w.Write(node)
		require.True(t, errz.IsLimit(err), node.String())
		require.Equal(t, 0, f.w.Offset())
	}
}

func TestWrongOperandCount(t *testing.T) {
	f := newFixture(true)
	err := errz.Catch(func() { f.w.Write(NewNode(op.Star)) })
	require.True(t, errz.IsInvariant(err))
	err = errz.Catch(func() { f.w.Write(NewNode(op.Jump, 0)) })
	require.True(t, errz.IsInvariant(err))
}

func TestStarLdarElision(t *testing.T) {
	tests := []struct {
		name   string
		elide  bool
		store  srcpos.SourceInfo
		load   srcpos.SourceInfo
		reg    int64
		length int
	}{
		{"elided", true, srcpos.SourceInfo{}, srcpos.SourceInfo{}, 0, 4},
		{"other register", true, srcpos.SourceInfo{}, srcpos.SourceInfo{}, 1, 6},
		{"store has position", true, srcpos.NewExpression(3), srcpos.SourceInfo{}, 0, 6},
		{"load has position", true, srcpos.SourceInfo{}, srcpos.NewStatement(3), 0, 6},
		{"disabled", false, srcpos.SourceInfo{}, srcpos.SourceInfo{}, 0, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.elide)
			f.write(t,
				NewNode(op.LdaSmi, 7),
				NewNode(op.Star, 0).WithSource(tt.store),
				NewNode(op.Ldar, tt.reg).WithSource(tt.load),
			)
			require.Equal(t, tt.length, f.w.Offset())
		})
	}
}

func TestAccumulatorLoadElision(t *testing.T) {
	f := newFixture(true)
	f.write(t,
		NewNode(op.LdaZero),
		NewNode(op.LdaTrue),
		NewNode(op.Return),
	)
	require.Equal(t, []op.Code{op.LdaTrue, op.Return}, codes(decodeAll(t, f.w.Finalize())))
	require.Equal(t, 1, f.w.Stats().Elided)
}

func TestAccumulatorLoadElisionKeepsReaders(t *testing.T) {
	f := newFixture(true)
	f.write(t,
		NewNode(op.LdaZero),
		NewNode(op.Inc, 0),
		NewNode(op.Ldar, 1),
		NewNode(op.Star, 2),
	)
	require.Equal(t,
		[]op.Code{op.LdaZero, op.Inc, op.Ldar, op.Star},
		codes(decodeAll(t, f.w.Finalize())))
}

func TestElisionTransfersPosition(t *testing.T) {
	f := newFixture(true)
	f.write(t,
		NewNode(op.Mov, 0, 1),
		NewNode(op.LdaZero).WithSource(srcpos.NewStatement(10)),
		NewNode(op.LdaConstant, 0),
	)
	require.Equal(t, []op.Code{op.Mov, op.LdaConstant}, codes(decodeAll(t, f.w.Finalize())))
	require.Equal(t, []srcpos.Entry{{Offset: 3, Position: 10, IsStatement: true}}, f.positions.Finalize())
}

func TestElisionBlockedByTwoPositions(t *testing.T) {
	f := newFixture(true)
	f.write(t,
		NewNode(op.LdaZero).WithSource(srcpos.NewStatement(10)),
		NewNode(op.LdaTrue).WithSource(srcpos.NewExpression(12)),
	)
	require.Equal(t, 2, f.w.Offset())
	require.Len(t, f.positions.Finalize(), 2)
}

func TestWriteRawIsNotElided(t *testing.T) {
	f := newFixture(true)
	f.write(t, NewNode(op.LdaZero))
	require.Nil(t, f.w.WriteRaw(NewNode(op.Star, 0)))
	require.Nil(t, f.w.WriteRaw(NewNode(op.Ldar, 0)))
	f.write(t, NewNode(op.LdaTrue))
	require.Equal(t,
		[]op.Code{op.LdaZero, op.Star, op.Ldar, op.LdaTrue},
		codes(decodeAll(t, f.w.Finalize())))
}

func TestDeadCodeAfterReturn(t *testing.T) {
	f := newFixtureWith(Config{Elide: true, DropDeadCode: true})
	end := f.w.NewLabel()
	f.write(t, NewNode(op.LdaZero), NewNode(op.Return))
	require.True(t, f.w.ExitSeen())
	f.write(t, NewNode(op.LdaTrue), NewNode(op.Return))
	require.Nil(t, f.w.WriteJump(NewNode(op.Jump), end))
	require.Equal(t, 2, f.w.Offset())

	require.Nil(t, f.w.Bind(end))
	require.False(t, f.w.ExitSeen())
	f.write(t, NewNode(op.LdaFalse), NewNode(op.Return))
	require.Equal(t,
		[]op.Code{op.LdaZero, op.Return, op.LdaFalse, op.Return},
		codes(decodeAll(t, f.w.Finalize())))
	require.Equal(t, 3, f.w.Stats().DeadDropped)
	require.Equal(t, 0, f.pool.Reserved())
}

func TestDeadCodeIsKeptByDefault(t *testing.T) {
	f := newFixture(true)
	f.write(t, NewNode(op.LdaZero), NewNode(op.Return))
	require.True(t, f.w.ExitSeen())
	f.write(t, NewNode(op.LdaTrue), NewNode(op.Return))
	require.True(t, f.w.ExitSeen())
	require.Equal(t,
		[]op.Code{op.LdaZero, op.Return, op.LdaTrue, op.Return},
		codes(decodeAll(t, f.w.Finalize())))
	require.Equal(t, 0, f.w.Stats().DeadDropped)
}

func TestHandlerMarksStartBlocks(t *testing.T) {
	f := newFixtureWith(Config{Elide: true, DropDeadCode: true})
	h := handler.NewBuilder()
	id := h.NewHandlerEntry()
	f.w.BindTryRegionStart(h, id, 0)
	f.write(t, NewNode(op.LdaZero), NewNode(op.Throw))
	f.w.BindTryRegionEnd(h, id)
	f.write(t, NewNode(op.LdaTrue))
	f.w.BindHandlerTarget(h, id, handler.Caught)
	f.write(t, NewNode(op.Return))

	require.Equal(t, []op.Code{op.LdaZero, op.Throw, op.Return}, codes(decodeAll(t, f.w.Finalize())))
	require.Equal(t, []handler.Entry{
		{TryStart: 0, TryEnd: 2, Handler: 2, Context: 0, Prediction: handler.Caught},
	}, h.Finalize())
}

func TestFinalizeIsSingleUse(t *testing.T) {
	f := newFixture(true)
	f.write(t, NewNode(op.Return))
	code := f.w.Finalize()
	require.Equal(t, []byte{byte(op.Return)}, code)

	err := errz.Catch(func() { f.w.Write(NewNode(op.Return)) })
	var ie *errz.InvariantError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, errz.E5008, ie.Code)
	err = errz.Catch(func() { f.w.Finalize() })
	require.True(t, errz.IsInvariant(err))
}
