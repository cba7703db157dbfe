package builder

import (
	"github.com/risor-io/regasm/asm"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/srcpos"
)

// Labels and jumps

// NewLabel returns an unbound label.
func (b *Builder) NewLabel() Label {
	if b.finalized {
		errz.Panicf(errz.E5008, "builder already finalized")
	}
	return b.writer.NewLabel()
}

// Bind binds l to the current offset and patches the jumps waiting on it.
func (b *Builder) Bind(l Label) *Builder {
	if !b.ready() {
		return b
	}
	b.flush()
	b.fail(b.writer.Bind(l))
	return b
}

// BindTo binds l to the offset of the already bound target.
func (b *Builder) BindTo(target, l Label) *Builder {
	if !b.ready() {
		return b
	}
	b.flush()
	b.fail(b.writer.BindTo(target, l))
	return b
}

// BindJumpTable binds a case of t to the current offset.
func (b *Builder) BindJumpTable(t JumpTable, caseValue int) *Builder {
	if !b.ready() {
		return b
	}
	b.flush()
	b.writer.BindJumpTable(t, caseValue)
	return b
}

// Jump jumps to l unconditionally.
func (b *Builder) Jump(l Label) *Builder {
	return b.jump(op.Jump, l)
}

// JumpLoop jumps back to the loop header l, which must be bound. depth is
// the loop nesting depth.
func (b *Builder) JumpLoop(l Label, depth int) *Builder {
	return b.jump(op.JumpLoop, l, int64(depth))
}

// JumpIfTrue jumps to l if the accumulator is true.
func (b *Builder) JumpIfTrue(mode ToBooleanMode, l Label) *Builder {
	if mode == ConvertToBoolean {
		return b.jump(op.JumpIfToBooleanTrue, l)
	}
	return b.jump(op.JumpIfTrue, l)
}

// JumpIfFalse jumps to l if the accumulator is false.
func (b *Builder) JumpIfFalse(mode ToBooleanMode, l Label) *Builder {
	if mode == ConvertToBoolean {
		return b.jump(op.JumpIfToBooleanFalse, l)
	}
	return b.jump(op.JumpIfFalse, l)
}

// JumpIfNull jumps to l if the accumulator is null.
func (b *Builder) JumpIfNull(l Label) *Builder { return b.jump(op.JumpIfNull, l) }

// JumpIfNotNull jumps to l if the accumulator is not null.
func (b *Builder) JumpIfNotNull(l Label) *Builder { return b.jump(op.JumpIfNotNull, l) }

// JumpIfUndefined jumps to l if the accumulator is undefined.
func (b *Builder) JumpIfUndefined(l Label) *Builder { return b.jump(op.JumpIfUndefined, l) }

// JumpIfNotUndefined jumps to l if the accumulator is not undefined.
func (b *Builder) JumpIfNotUndefined(l Label) *Builder { return b.jump(op.JumpIfNotUndefined, l) }

// JumpIfNotHole jumps to l if the accumulator is not the hole.
func (b *Builder) JumpIfNotHole(l Label) *Builder { return b.jump(op.JumpIfNotHole, l) }

// JumpIfJSReceiver jumps to l if the accumulator is an object.
func (b *Builder) JumpIfJSReceiver(l Label) *Builder { return b.jump(op.JumpIfJSReceiver, l) }

// JumpIfNil jumps to l if the accumulator equals value under operator.
func (b *Builder) JumpIfNil(l Label, operator Operator, value NilValue) *Builder {
	if operator == OpEqStrict {
		if value == NullValue {
			return b.JumpIfNull(l)
		}
		return b.JumpIfUndefined(l)
	}
	return b.CompareNil(operator, value).JumpIfTrue(AlreadyBoolean, l)
}

// JumpIfNotNil jumps to l if the accumulator differs from value under
// operator.
func (b *Builder) JumpIfNotNil(l Label, operator Operator, value NilValue) *Builder {
	if operator == OpEqStrict {
		if value == NullValue {
			return b.JumpIfNotNull(l)
		}
		return b.JumpIfNotUndefined(l)
	}
	return b.CompareNil(operator, value).JumpIfFalse(AlreadyBoolean, l)
}

// SwitchOnSmi dispatches through t on the small integer in the
// accumulator. Values outside the table fall through.
func (b *Builder) SwitchOnSmi(t JumpTable) *Builder {
	if !b.ready() {
		return b
	}
	b.prepare(op.SwitchOnSmiNoFeedback, nil)
	node := asm.NewNode(op.SwitchOnSmiNoFeedback).WithSource(b.currentSourceInfo(op.SwitchOnSmiNoFeedback))
	b.attachOrEmitDeferred(&node)
	b.fail(b.writer.WriteSwitch(node, t))
	return b
}

// StackCheck checks for stack overflow and interrupts. The position, if
// any, is recorded as an expression position.
func (b *Builder) StackCheck(position int) *Builder {
	if position != srcpos.NoSourcePosition && b.ready() && !b.positions.Omit() {
		b.latest = srcpos.NewExpression(position)
	}
	return b.output(op.StackCheck)
}

// Return returns the accumulator.
func (b *Builder) Return() *Builder {
	if b.cfg.returnPosition != srcpos.NoSourcePosition {
		b.latest = srcpos.NewStatement(b.cfg.returnPosition)
	}
	return b.output(op.Return)
}

// Throw throws the accumulator.
func (b *Builder) Throw() *Builder { return b.output(op.Throw) }

// ReThrow rethrows the accumulator without updating its message.
func (b *Builder) ReThrow() *Builder { return b.output(op.ReThrow) }

// SetPendingMessage swaps the accumulator with the pending message.
func (b *Builder) SetPendingMessage() *Builder { return b.output(op.SetPendingMessage) }

// ThrowReferenceErrorIfHole throws a reference error for name if the
// accumulator is the hole.
func (b *Builder) ThrowReferenceErrorIfHole(name string) *Builder {
	return b.output(op.ThrowReferenceErrorIfHole, int64(b.ConstantPoolEntry(name)))
}

// ThrowSuperNotCalledIfHole throws if the accumulator is the hole.
func (b *Builder) ThrowSuperNotCalledIfHole() *Builder {
	return b.output(op.ThrowSuperNotCalledIfHole)
}

// ThrowSuperAlreadyCalledIfNotHole throws unless the accumulator is the
// hole.
func (b *Builder) ThrowSuperAlreadyCalledIfNotHole() *Builder {
	return b.output(op.ThrowSuperAlreadyCalledIfNotHole)
}

// Debugger triggers a debugger break.
func (b *Builder) Debugger() *Builder { return b.output(op.Debugger) }

// IncBlockCounter increments the coverage counter slot.
func (b *Builder) IncBlockCounter(slot int) *Builder {
	return b.output(op.IncBlockCounter, int64(slot))
}

// Iteration and generators

// ForInPrepare prepares the enumeration of receiver into the cache triple.
func (b *Builder) ForInPrepare(receiver register.Register, cache register.List) *Builder {
	checkListLength(cache, 3, "ForInPrepare cache")
	return b.output(op.ForInPrepare, int64(receiver), int64(cache.First()))
}

// ForInContinue tests whether index is below length.
func (b *Builder) ForInContinue(index, length register.Register) *Builder {
	return b.output(op.ForInContinue, int64(index), int64(length))
}

// ForInNext loads the next key of the enumeration.
func (b *Builder) ForInNext(receiver, index register.Register, cache register.List, slot int) *Builder {
	checkListLength(cache, 2, "ForInNext cache")
	return b.output(op.ForInNext, int64(receiver), int64(index), int64(cache.First()), int64(slot))
}

// ForInStep increments index into the accumulator.
func (b *Builder) ForInStep(index register.Register) *Builder {
	return b.output(op.ForInStep, int64(index))
}

// SuspendGenerator saves registers into generator and suspends it.
func (b *Builder) SuspendGenerator(generator register.Register, registers register.List, flags uint8) *Builder {
	first, count := listOperands(registers)
	return b.output(op.SuspendGenerator, int64(generator), first, count, int64(flags))
}

// RestoreGeneratorState loads the resume state of generator.
func (b *Builder) RestoreGeneratorState(generator register.Register) *Builder {
	return b.output(op.RestoreGeneratorState, int64(generator))
}

// RestoreGeneratorRegisters restores registers saved by SuspendGenerator.
func (b *Builder) RestoreGeneratorRegisters(generator register.Register, registers register.List) *Builder {
	first, count := listOperands(registers)
	return b.output(op.RestoreGeneratorRegisters, int64(generator), first, count)
}

// Exception handlers

// NewHandlerEntry allocates a handler table entry and returns its id.
func (b *Builder) NewHandlerEntry() int {
	if b.finalized {
		errz.Panicf(errz.E5008, "builder already finalized")
	}
	return b.handlers.NewHandlerEntry()
}

// MarkTryBegin starts the try region of handler id. context holds the
// context to restore when the handler is entered.
func (b *Builder) MarkTryBegin(id int, context register.Register) *Builder {
	if !b.ready() {
		return b
	}
	b.checkRegister(context)
	b.flush()
	b.writer.BindTryRegionStart(b.handlers, id, context)
	return b
}

// MarkTryEnd ends the try region of handler id.
func (b *Builder) MarkTryEnd(id int) *Builder {
	if !b.ready() {
		return b
	}
	b.flush()
	b.writer.BindTryRegionEnd(b.handlers, id)
	return b
}

// MarkHandler binds the handler of entry id to the current offset.
func (b *Builder) MarkHandler(id int, prediction handler.CatchPrediction) *Builder {
	if !b.ready() {
		return b
	}
	b.flush()
	b.writer.BindHandlerTarget(b.handlers, id, prediction)
	return b
}

// Constant pool

// ConstantPoolEntry returns the index of v, adding it if no equal value is
// present. It returns -1 once the Builder has failed.
func (b *Builder) ConstantPoolEntry(v any) int {
	if !b.ready() {
		return -1
	}
	index, err := b.pool.Insert(v)
	if err != nil {
		b.fail(err)
		return -1
	}
	return index
}

// AllocateDeferredConstantPoolEntry reserves an index whose value is set
// later with SetDeferredConstantPoolEntry.
func (b *Builder) AllocateDeferredConstantPoolEntry() int {
	if !b.ready() {
		return -1
	}
	index, err := b.pool.AllocateDeferred()
	if err != nil {
		b.fail(err)
		return -1
	}
	return index
}

// SetDeferredConstantPoolEntry fills a deferred entry. Each entry is
// filled exactly once.
func (b *Builder) SetDeferredConstantPoolEntry(index int, v any) {
	if !b.ready() {
		return
	}
	b.pool.SetDeferred(index, v)
}

// AllocateJumpTable reserves a jump table for the cases caseBase to
// caseBase+size-1.
func (b *Builder) AllocateJumpTable(size, caseBase int) JumpTable {
	if !b.ready() {
		return -1
	}
	t, err := b.writer.AllocateJumpTable(size, caseBase)
	if err != nil {
		b.fail(err)
		return -1
	}
	return t
}
