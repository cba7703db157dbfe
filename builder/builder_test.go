package builder

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/regopt"
	"github.com/risor-io/regasm/srcpos"
)

func decode(t *testing.T, p *bytecode.Program) []bytecode.Instruction {
	t.Helper()
	instrs, err := bytecode.NewInstructionIter(p).All()
	require.Nil(t, err)
	return instrs
}

func codes(instrs []bytecode.Instruction) []op.Code {
	result := make([]op.Code, len(instrs))
	for i, in := range instrs {
		result[i] = in.Code
	}
	return result
}

func finalize(t *testing.T, b *Builder) *bytecode.Program {
	t.Helper()
	p, err := b.Finalize()
	require.Nil(t, err)
	return p
}

func withOptimizer() Option {
	return WithRegisterOptimizer(func(a *register.Allocator) RegisterOptimizer {
		return regopt.New(a)
	})
}

func TestLoadTrueReturn(t *testing.T) {
	b := New(0, 0)
	b.LoadTrue().Return()
	p := finalize(t, b)
	require.Equal(t, 0, p.FrameSize())
	require.Equal(t, 0, p.ParameterCount())
	require.Equal(t, []op.Code{op.LdaTrue, op.Return}, codes(decode(t, p)))
	require.NotEmpty(t, p.ID())
}

func TestForwardJumpOverTenBytes(t *testing.T) {
	for _, elide := range []bool{true, false} {
		b := New(0, 5, WithElision(elide))
		l := b.NewLabel()
		b.Jump(l)
		for i := 0; i < 5; i++ {
			b.StoreAccumulatorInRegister(b.Local(i))
		}
		b.Bind(l).Return()

		p := finalize(t, b)
		instrs := decode(t, p)
		require.Len(t, instrs, 7)
		require.Equal(t, op.Jump, instrs[0].Code)
		require.Equal(t, []int64{12}, instrs[0].Operands)
		dest, ok := instrs[0].JumpTarget()
		require.True(t, ok)
		require.Equal(t, 12, dest)
		require.Equal(t, op.Return, instrs[6].Code)
		require.Equal(t, 13, p.Length())
	}
}

func TestConditionalJumpOverTenBytes(t *testing.T) {
	b := New(0, 5)
	l := b.NewLabel()
	b.LoadTrue().JumpIfTrue(AlreadyBoolean, l)
	for i := 0; i < 5; i++ {
		b.StoreAccumulatorInRegister(b.Local(i))
	}
	b.Bind(l).LoadFalse().Return()

	instrs := decode(t, finalize(t, b))
	require.Equal(t, op.JumpIfTrue, instrs[1].Code)
	require.Equal(t, []int64{12}, instrs[1].Operands)
	dest, ok := instrs[1].JumpTarget()
	require.True(t, ok)
	require.Equal(t, 13, dest)
}

func TestManyJumpsToOneLabel(t *testing.T) {
	b := New(0, 1)
	l := b.NewLabel()
	for i := 0; i < 4; i++ {
		b.LoadTrue().JumpIfTrue(AlreadyBoolean, l)
		b.StoreAccumulatorInRegister(b.Local(0))
	}
	target := b.Offset()
	b.Bind(l).Return()

	jumps := 0
	for _, in := range decode(t, finalize(t, b)) {
		if in.Code != op.JumpIfTrue {
			continue
		}
		jumps++
		dest, ok := in.JumpTarget()
		require.True(t, ok)
		require.Equal(t, target, dest)
		require.Greater(t, in.Operands[0], int64(0))
	}
	require.Equal(t, 4, jumps)
}

func TestBackwardLoop(t *testing.T) {
	b := New(0, 1)
	head := b.NewLabel()
	done := b.NewLabel()
	b.Bind(head).
		StackCheck(srcpos.NoSourcePosition).
		LoadAccumulatorWithRegister(b.Local(0)).
		JumpIfFalse(ConvertToBoolean, done).
		JumpLoop(head, 0).
		Bind(done).
		Return()

	instrs := decode(t, finalize(t, b))
	require.Equal(t, []op.Code{op.StackCheck, op.Ldar, op.JumpIfToBooleanFalse, op.JumpLoop, op.Return}, codes(instrs))
	dest, ok := instrs[3].JumpTarget()
	require.True(t, ok)
	require.Equal(t, 0, dest)
	dest, ok = instrs[2].JumpTarget()
	require.True(t, ok)
	require.Equal(t, instrs[4].Offset, dest)
}

func TestFinalizeTwice(t *testing.T) {
	b := New(0, 0)
	b.LoadTrue().Return()
	p := finalize(t, b)
	before := p.Bytes()

	err := errz.Catch(func() { b.Finalize() })
	var ie *errz.InvariantError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, errz.E5008, ie.Code)
	require.Equal(t, before, p.Bytes())

	err = errz.Catch(func() { b.LoadFalse() })
	require.ErrorAs(t, err, &ie)
	require.Equal(t, errz.E5008, ie.Code)
}

func TestStarLdarElision(t *testing.T) {
	build := func(opts ...Option) *bytecode.Program {
		b := New(0, 1, opts...)
		b.LoadLiteralSmi(3).
			StoreAccumulatorInRegister(b.Local(0)).
			LoadAccumulatorWithRegister(b.Local(0)).
			Return()
		return finalize(t, b)
	}
	elided := build()
	plain := build(WithElision(false))
	require.Less(t, elided.Length(), plain.Length())
	require.Equal(t, []op.Code{op.LdaSmi, op.Star, op.Return}, codes(decode(t, elided)))
	require.Equal(t, []op.Code{op.LdaSmi, op.Star, op.Ldar, op.Return}, codes(decode(t, plain)))
}

func TestRawTransfersAreKept(t *testing.T) {
	b := New(0, 2, withOptimizer())
	b.LoadLiteralSmi(3).
		OutputStarRaw(b.Local(0)).
		OutputLdarRaw(b.Local(0)).
		OutputMovRaw(b.Local(0), b.Local(1)).
		Return()
	require.Equal(t,
		[]op.Code{op.LdaSmi, op.Star, op.Ldar, op.Mov, op.Return},
		codes(decode(t, finalize(t, b))))
}

func TestRegisterOptimizerAbsorbsLoad(t *testing.T) {
	build := func(opts ...Option) []op.Code {
		b := New(0, 2, opts...)
		b.LoadTrue().
			StoreAccumulatorInRegister(b.Local(0)).
			MoveRegister(b.Local(0), b.Local(1)).
			LoadAccumulatorWithRegister(b.Local(0)).
			Return()
		return codes(decode(t, finalize(t, b)))
	}
	require.Equal(t, []op.Code{op.LdaTrue, op.Star, op.Mov, op.Return}, build(withOptimizer()))
	require.Equal(t, []op.Code{op.LdaTrue, op.Star, op.Mov, op.Ldar, op.Return}, build())
}

func TestImplicitReturn(t *testing.T) {
	b := New(0, 0)
	require.True(t, b.RequiresImplicitReturn())
	p := finalize(t, b)
	require.Equal(t, []op.Code{op.LdaUndefined, op.Return}, codes(decode(t, p)))

	b = New(0, 0, WithImplicitReturn(false))
	p = finalize(t, b)
	require.Equal(t, 0, p.Length())
}

func TestDeadCodeIsDropped(t *testing.T) {
	b := New(0, 0, WithDeadCodeElimination(true))
	b.LoadTrue().Return()
	require.True(t, b.RemainderOfBlockIsDead())
	b.LoadFalse().Throw()
	p := finalize(t, b)
	require.Equal(t, []op.Code{op.LdaTrue, op.Return}, codes(decode(t, p)))
	require.Equal(t, 2, b.Stats().DeadDropped)

	b = New(0, 0)
	b.LoadTrue().Return()
	b.LoadFalse().Throw()
	p = finalize(t, b)
	require.Equal(t, []op.Code{op.LdaTrue, op.Return, op.LdaFalse, op.Throw}, codes(decode(t, p)))
	require.Equal(t, 0, b.Stats().DeadDropped)
}

func TestRegisterValidation(t *testing.T) {
	b := New(2, 1)
	require.True(t, b.RegisterIsValid(b.Parameter(0)))
	require.True(t, b.RegisterIsValid(b.Parameter(1)))
	require.True(t, b.RegisterIsValid(b.Local(0)))
	require.True(t, b.RegisterIsValid(register.CurrentContext))
	require.True(t, b.RegisterIsValid(register.FunctionClosure))
	require.False(t, b.RegisterIsValid(register.FromParameterIndex(0, 3)))
	require.False(t, b.RegisterIsValid(register.Register(-6)))
	require.False(t, b.RegisterIsValid(register.Register(1)))
	require.False(t, b.RegisterIsValid(register.Invalid))

	tmp := b.RegisterAllocator().NewRegister()
	require.True(t, b.RegisterIsValid(tmp))
	require.True(t, b.RegisterListIsValid(register.NewList(b.Local(0), 2)))
	b.RegisterAllocator().ReleaseRegister(tmp)
	require.False(t, b.RegisterIsValid(tmp))
	require.False(t, b.RegisterListIsValid(register.NewList(b.Local(0), 2)))
	require.True(t, b.RegisterListIsValid(register.EmptyList()))

	tests := []struct {
		name string
		fn   func()
	}{
		{"ldar", func() { b.LoadAccumulatorWithRegister(tmp) }},
		{"star", func() { b.StoreAccumulatorInRegister(register.Register(9)) }},
		{"mov", func() { b.MoveRegister(b.Local(0), tmp) }},
		{"operand", func() { b.BinaryOperation(OpAdd, tmp, 0) }},
		{"list", func() { b.CallRuntime(1, register.NewList(b.Local(0), 3)) }},
		{"parameter", func() { b.Parameter(2) }},
		{"local", func() { b.Local(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errz.Catch(tt.fn)
			var ie *errz.InvariantError
			require.ErrorAs(t, err, &ie)
			require.Equal(t, errz.E5003, ie.Code)
		})
	}
}

func TestFrameSize(t *testing.T) {
	b := New(1, 2)
	alloc := b.RegisterAllocator()
	scope := alloc.NewScope()
	args := alloc.Acquire(3)
	b.LoadTrue().StoreAccumulatorInRegister(args.At(2))
	scope.Close()
	require.Equal(t, 0, alloc.TemporaryCount())
	require.Equal(t, 3, alloc.MaxTemporaryCount())
	b.Return()

	p := finalize(t, b)
	require.Equal(t, 5, p.FrameSize())
	require.Equal(t, 5, b.TotalRegisterCount())
	require.Equal(t, 2, p.LocalCount())
	require.Equal(t, 1, p.ParameterCount())
}

func TestConstantDeduplication(t *testing.T) {
	b := New(0, 1)
	b.LoadLiteralString("a").
		StoreAccumulatorInRegister(b.Local(0)).
		LoadLiteralString("b").
		StoreAccumulatorInRegister(b.Local(0)).
		LoadLiteralString("a").
		Return()
	require.Equal(t, 0, b.ConstantPoolEntry("a"))
	p := finalize(t, b)
	require.Equal(t, 2, p.ConstantCount())
	instrs := decode(t, p)
	require.Equal(t, instrs[0].Operands, instrs[4].Operands)
	require.NotEqual(t, instrs[0].Operands, instrs[2].Operands)
}

func TestLoadLiteral(t *testing.T) {
	tests := []struct {
		value    any
		code     op.Code
		constant bool
	}{
		{nil, op.LdaNull, false},
		{true, op.LdaTrue, false},
		{false, op.LdaFalse, false},
		{0, op.LdaZero, false},
		{7, op.LdaSmi, false},
		{int64(-300), op.LdaSmi, false},
		{int64(1) << 40, op.LdaConstant, true},
		{3.0, op.LdaSmi, false},
		{1.5, op.LdaConstant, true},
		{-0.0, op.LdaZero, false},
		{"hi", op.LdaConstant, true},
		{[2]int{1, 2}, op.LdaConstant, true},
	}
	for _, tt := range tests {
		b := New(0, 0)
		b.LoadLiteral(tt.value).Return()
		p := finalize(t, b)
		instrs := decode(t, p)
		require.Equal(t, tt.code, instrs[0].Code, "%v", tt.value)
		if tt.constant {
			require.Equal(t, 1, p.ConstantCount())
		}
	}
}

func TestNegativeZeroUsesPool(t *testing.T) {
	b := New(0, 0)
	negZero := 0.0
	negZero = -negZero
	b.LoadLiteralNumber(negZero).Return()
	p := finalize(t, b)
	require.Equal(t, op.LdaConstant, decode(t, p)[0].Code)
}

func TestLimitFailureIsSticky(t *testing.T) {
	b := New(0, 0, WithConstantPoolCapacity(1))
	b.LoadLiteralString("a").LoadLiteralString("b")
	require.True(t, errz.IsLimit(b.Err()))
	b.LoadTrue().Return()

	p, err := b.Finalize()
	require.Nil(t, p)
	var le *errz.LimitError
	require.ErrorAs(t, err, &le)
	require.Equal(t, errz.E6002, le.Code)
}

func TestOperandTooWide(t *testing.T) {
	b := New(0, 0)
	b.LoadLiteralSmi(1 << 40).Return()
	_, err := b.Finalize()
	var le *errz.LimitError
	require.ErrorAs(t, err, &le)
	require.Equal(t, errz.E6001, le.Code)
}

func TestUnboundLabel(t *testing.T) {
	b := New(0, 0)
	l := b.NewLabel()
	b.LoadTrue().JumpIfTrue(AlreadyBoolean, l).Return()
	err := errz.Catch(func() { b.Finalize() })
	var ie *errz.InvariantError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, errz.E5002, ie.Code)
	require.Contains(t, ie.Message, "label 0 was never bound")
}

func TestLabelBoundTwice(t *testing.T) {
	b := New(0, 0)
	l := b.NewLabel()
	b.Bind(l)
	err := errz.Catch(func() { b.Bind(l) })
	var ie *errz.InvariantError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, errz.E5001, ie.Code)
}

func TestHandlerTable(t *testing.T) {
	b := New(0, 1)
	id := b.NewHandlerEntry()
	b.MarkTryBegin(id, register.CurrentContext).
		LoadTrue().
		Throw().
		MarkTryEnd(id).
		MarkHandler(id, handler.Caught).
		StoreAccumulatorInRegister(b.Local(0)).
		LoadUndefined().
		Return()

	p := finalize(t, b)
	require.Equal(t, []op.Code{op.LdaTrue, op.Throw, op.Star, op.LdaUndefined, op.Return}, codes(decode(t, p)))
	require.Equal(t, 1, p.HandlerCount())
	require.Equal(t, handler.Entry{
		TryStart:   0,
		TryEnd:     2,
		Handler:    2,
		Context:    register.CurrentContext,
		Prediction: handler.Caught,
	}, p.HandlerAt(0))
}

func TestUnbalancedHandler(t *testing.T) {
	tests := []struct {
		name  string
		marks func(b *Builder, id int)
	}{
		{"begin only", func(b *Builder, id int) {
			b.MarkTryBegin(id, register.CurrentContext)
		}},
		{"no handler", func(b *Builder, id int) {
			b.MarkTryBegin(id, register.CurrentContext).LoadTrue().MarkTryEnd(id)
		}},
		{"nothing", func(b *Builder, id int) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(0, 0)
			tt.marks(b, b.NewHandlerEntry())
			b.LoadTrue().Return()
			err := errz.Catch(func() { b.Finalize() })
			var ie *errz.InvariantError
			require.ErrorAs(t, err, &ie)
			require.Equal(t, errz.E5005, ie.Code)
		})
	}

	b := New(0, 0)
	id := b.NewHandlerEntry()
	err := errz.Catch(func() { b.MarkTryEnd(id) })
	require.True(t, errz.IsInvariant(err))
}

func TestSwitchOnSmi(t *testing.T) {
	b := New(0, 0)
	table := b.AllocateJumpTable(2, 0)
	b.LoadLiteralSmi(1).SwitchOnSmi(table)
	b.LoadFalse().Return()
	b.BindJumpTable(table, 0).LoadTrue().Return()
	b.BindJumpTable(table, 1).LoadNull().Return()

	p := finalize(t, b)
	instrs := decode(t, p)
	require.Equal(t, op.SwitchOnSmiNoFeedback, instrs[1].Code)
	require.Equal(t, []int64{0, 2, 0}, instrs[1].Operands)
	require.Equal(t, int64(6), p.ConstantAt(0))
	require.Equal(t, int64(8), p.ConstantAt(1))
}

func TestJumpIfNil(t *testing.T) {
	tests := []struct {
		name     string
		operator Operator
		value    NilValue
		negate   bool
		want     []op.Code
	}{
		{"strict null", OpEqStrict, NullValue, false, []op.Code{op.JumpIfNull}},
		{"strict undefined", OpEqStrict, UndefinedValue, false, []op.Code{op.JumpIfUndefined}},
		{"strict not null", OpEqStrict, NullValue, true, []op.Code{op.JumpIfNotNull}},
		{"sloppy", OpEq, NullValue, false, []op.Code{op.TestUndetectable, op.JumpIfTrue}},
		{"sloppy not", OpEq, UndefinedValue, true, []op.Code{op.TestUndetectable, op.JumpIfFalse}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(1, 0)
			l := b.NewLabel()
			b.LoadAccumulatorWithRegister(b.Parameter(0))
			if tt.negate {
				b.JumpIfNotNil(l, tt.operator, tt.value)
			} else {
				b.JumpIfNil(l, tt.operator, tt.value)
			}
			b.Bind(l).Return()
			got := codes(decode(t, finalize(t, b)))
			require.Equal(t, tt.want, got[1:len(got)-1])
		})
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name string
		emit func(b *Builder)
		code op.Code
	}{
		{"add", func(b *Builder) { b.BinaryOperation(OpAdd, b.Local(0), 1) }, op.Add},
		{"shift smi", func(b *Builder) { b.BinaryOperationSmiLiteral(OpShiftLeft, 2, 1) }, op.ShiftLeftSmi},
		{"inc", func(b *Builder) { b.CountOperation(OpInc, 0) }, op.Inc},
		{"dec", func(b *Builder) { b.CountOperation(OpDec, 0) }, op.Dec},
		{"not", func(b *Builder) { b.LogicalNot(ConvertToBoolean) }, op.ToBooleanLogicalNot},
		{"not boolean", func(b *Builder) { b.LogicalNot(AlreadyBoolean) }, op.LogicalNot},
		{"less", func(b *Builder) { b.CompareOperation(OpLessThan, b.Local(0), 3) }, op.TestLessThan},
		{"instanceof", func(b *Builder) { b.CompareOperation(OpInstanceOf, b.Local(0), 3) }, op.TestInstanceOf},
		{"typeof", func(b *Builder) { b.CompareTypeOf(TypeofString) }, op.TestTypeOf},
		{"strict delete", func(b *Builder) { b.Delete(b.Local(0), Strict) }, op.DeletePropertyStrict},
		{"global typeof", func(b *Builder) { b.LoadGlobal("x", 0, InsideTypeof) }, op.LdaGlobalInsideTypeof},
		{"immutable slot", func(b *Builder) {
			b.LoadContextSlot(register.CurrentContext, 4, 1, ImmutableSlot)
		}, op.LdaImmutableContextSlot},
		{"rest", func(b *Builder) { b.CreateArguments(RestParameter) }, op.CreateRestParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(0, 1)
			b.StoreAccumulatorInRegister(b.Local(0))
			tt.emit(b)
			b.Return()
			instrs := decode(t, finalize(t, b))
			require.Equal(t, tt.code, instrs[1].Code)
		})
	}

	b := New(0, 1)
	err := errz.Catch(func() { b.BinaryOperation(OpEq, b.Local(0), 0) })
	require.True(t, errz.IsInvariant(err))
	err = errz.Catch(func() { b.CountOperation(OpAdd, 0) })
	require.True(t, errz.IsInvariant(err))
}

func TestCalls(t *testing.T) {
	b := New(1, 0)
	alloc := b.RegisterAllocator()
	callee := alloc.NewRegister()
	args := alloc.Acquire(2)
	pair := alloc.Acquire(2)
	b.LoadAccumulatorWithRegister(b.Parameter(0)).
		StoreAccumulatorInRegister(callee).
		CallProperty(callee, args, 5).
		CallUndefinedReceiver(callee, register.EmptyList(), 6).
		CallRuntimeForPair(300, args, pair).
		Return()
	alloc.Release(pair)
	alloc.Release(args)
	alloc.ReleaseRegister(callee)

	instrs := decode(t, finalize(t, b))
	require.Equal(t, []op.Code{op.Ldar, op.Star, op.CallProperty, op.CallUndefinedReceiver, op.CallRuntimeForPair, op.Return}, codes(instrs))
	require.Equal(t, []int64{0, 1, 2, 5}, instrs[2].Operands)
	require.Equal(t, []int64{0, 0, 0, 6}, instrs[3].Operands)
	require.Equal(t, []int64{300, 1, 2, 3}, instrs[4].Operands)

	err := errz.Catch(func() {
		New(0, 2).CallRuntimeForPair(1, register.EmptyList(), register.NewList(0, 1))
	})
	require.True(t, errz.IsInvariant(err))
}

func TestStatementPosition(t *testing.T) {
	b := New(0, 0)
	b.SetStatementPosition(5)
	b.SetExpressionPosition(9)
	b.LoadTrue().Return()
	p := finalize(t, b)
	require.Equal(t, 1, p.PositionCount())
	require.Equal(t, srcpos.Entry{Offset: 0, Position: 5, IsStatement: true}, p.PositionAt(0))
}

func TestExpressionPositionFiltering(t *testing.T) {
	build := func(opts ...Option) *bytecode.Program {
		b := New(0, 1, opts...)
		b.SetExpressionPosition(7)
		b.LoadTrue().
			StoreAccumulatorInRegister(b.Local(0)).
			CallRuntime(1, register.EmptyList()).
			Return()
		return finalize(t, b)
	}
	p := build()
	require.Equal(t, 1, p.PositionCount())
	require.Equal(t, srcpos.Entry{Offset: 3, Position: 7}, p.PositionAt(0))

	p = build(WithExpressionPositionFiltering(false))
	require.Equal(t, srcpos.Entry{Offset: 0, Position: 7}, p.PositionAt(0))

	p = build(WithSourcePositions(srcpos.OmitSourcePositions))
	require.Equal(t, 0, p.PositionCount())
}

func TestDeferredPositionEmitsNop(t *testing.T) {
	b := New(0, 1, withOptimizer())
	b.LoadTrue().StoreAccumulatorInRegister(b.Local(0))
	b.SetStatementPosition(10)
	b.LoadAccumulatorWithRegister(b.Local(0))
	b.SetStatementPosition(20)
	b.Return()

	p := finalize(t, b)
	require.Equal(t, []op.Code{op.LdaTrue, op.Star, op.Nop, op.Return}, codes(decode(t, p)))
	require.Equal(t, 2, p.PositionCount())
	require.Equal(t, srcpos.Entry{Offset: 3, Position: 10, IsStatement: true}, p.PositionAt(0))
	require.Equal(t, srcpos.Entry{Offset: 4, Position: 20, IsStatement: true}, p.PositionAt(1))
}

func TestDeferredPositionAttaches(t *testing.T) {
	b := New(0, 1, withOptimizer())
	b.LoadTrue().StoreAccumulatorInRegister(b.Local(0))
	b.SetStatementPosition(10)
	b.LoadAccumulatorWithRegister(b.Local(0))
	b.Return()

	p := finalize(t, b)
	require.Equal(t, []op.Code{op.LdaTrue, op.Star, op.Return}, codes(decode(t, p)))
	require.Equal(t, 1, p.PositionCount())
	require.Equal(t, srcpos.Entry{Offset: 3, Position: 10, IsStatement: true}, p.PositionAt(0))
}

func TestPendingPositionAtFinalize(t *testing.T) {
	b := New(0, 0, WithImplicitReturn(false))
	b.LoadTrue()
	b.SetStatementPosition(9)
	p := finalize(t, b)
	require.Equal(t, []op.Code{op.LdaTrue, op.Nop}, codes(decode(t, p)))
	require.Equal(t, 1, p.PositionCount())
	require.Equal(t, srcpos.Entry{Offset: 1, Position: 9, IsStatement: true}, p.PositionAt(0))

	b = New(0, 1, withOptimizer(), WithImplicitReturn(false))
	b.LoadTrue().StoreAccumulatorInRegister(b.Local(0))
	b.SetStatementPosition(11)
	b.LoadAccumulatorWithRegister(b.Local(0))
	p = finalize(t, b)
	require.Equal(t, []op.Code{op.LdaTrue, op.Star, op.Nop}, codes(decode(t, p)))
	require.Equal(t, srcpos.Entry{Offset: 3, Position: 11, IsStatement: true}, p.PositionAt(0))

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	b = New(0, 0, WithDeadCodeElimination(true), WithLogger(logger))
	b.LoadTrue().Return()
	b.SetStatementPosition(13)
	p = finalize(t, b)
	require.Equal(t, []op.Code{op.LdaTrue, op.Return}, codes(decode(t, p)))
	require.Equal(t, 0, p.PositionCount())
	require.Contains(t, buf.String(), "dropped unreachable source position")
	require.Contains(t, buf.String(), `"position":13`)
}

func TestReturnPosition(t *testing.T) {
	b := New(0, 0, WithReturnPosition(42), WithName("main"))
	b.LoadTrue().Return()
	p := finalize(t, b)
	require.Equal(t, "main", p.Name())
	entry, ok := p.SourcePositionAt(1)
	require.True(t, ok)
	require.Equal(t, 42, entry.Position)
	require.True(t, entry.IsStatement)
}

func TestDeferredConstants(t *testing.T) {
	b := New(0, 0)
	index := b.AllocateDeferredConstantPoolEntry()
	b.LoadConstantPoolEntry(index).Return()
	b.SetDeferredConstantPoolEntry(index, "late")
	err := errz.Catch(func() { b.SetDeferredConstantPoolEntry(index, "again") })
	var ie *errz.InvariantError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, errz.E5007, ie.Code)

	p := finalize(t, b)
	require.Equal(t, "late", p.ConstantAt(index))
}

func TestUnfilledDeferredConstant(t *testing.T) {
	b := New(0, 0)
	b.AllocateDeferredConstantPoolEntry()
	b.LoadTrue().Return()
	err := errz.Catch(func() { b.Finalize() })
	var ie *errz.InvariantError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, errz.E5007, ie.Code)
}
