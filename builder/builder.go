// Package builder assembles the bytecode of a single function.
//
// A front end drives a Builder with one call per logical operation. Each
// call validates its register operands, resolves constant pool entries,
// and hands an instruction to the asm.Writer, which selects operand widths,
// elides redundant instructions and patches jumps. Finalize freezes the
// instruction stream and its side tables into an immutable
// bytecode.Program.
//
// Calls return the Builder so that they can be chained:
//
//	b := builder.New(1, 0)
//	b.LoadAccumulatorWithRegister(b.Parameter(0)).
//		BinaryOperationSmiLiteral(builder.OpAdd, 1, 0).
//		Return()
//	program, err := b.Finalize()
//
// Misuse of the Builder, such as binding a label twice or referencing a
// register that is not live, panics with an *errz.InvariantError. Values
// that cannot be encoded produce an *errz.LimitError, which is recorded as
// the Builder's failure and returned by Finalize. Once a failure is
// recorded, further calls have no effect.
package builder

import (
	"errors"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/risor-io/regasm/asm"
	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/constpool"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/srcpos"
)

// Label is a jump target. It must be bound exactly once.
type Label = asm.Label

// JumpTable is a set of case targets for SwitchOnSmi.
type JumpTable = asm.JumpTable

// Builder emits the bytecode of one function.
type Builder struct {
	cfg       config
	log       zerolog.Logger
	alloc     *register.Allocator
	pool      *constpool.Builder
	handlers  *handler.Builder
	positions *srcpos.Builder
	writer    *asm.Writer
	optimizer RegisterOptimizer

	// Position waiting for the next instruction that can carry it.
	latest srcpos.SourceInfo
	// Position of an instruction the register optimizer absorbed.
	deferred srcpos.SourceInfo

	failure   error
	finalized bool
}

// New returns a Builder for a function with the given number of parameters
// and fixed locals.
func New(paramCount, localCount int, opts ...Option) *Builder {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Builder{
		cfg:       cfg,
		log:       cfg.logger,
		alloc:     register.NewAllocator(paramCount, localCount),
		handlers:  handler.NewBuilder(),
		positions: srcpos.NewBuilder(cfg.positionMode),
		latest:    srcpos.NoSourceInfo(),
		deferred:  srcpos.NoSourceInfo(),
	}
	if cfg.poolCapacity > 0 {
		b.pool = constpool.NewWithCapacity(cfg.poolCapacity)
	} else {
		b.pool = constpool.New()
	}
	b.writer = asm.NewWriter(asm.Config{
		Pool:         b.pool,
		Positions:    b.positions,
		Logger:       cfg.logger,
		Elide:        cfg.elide,
		DropDeadCode: cfg.dropDeadCode,
	})
	if cfg.optimizerFactory != nil {
		b.optimizer = cfg.optimizerFactory(b.alloc)
	}
	return b
}

// Err returns the first resource limit failure, if any.
func (b *Builder) Err() error {
	return b.failure
}

// ready panics once the Builder is finalized and reports whether emission
// should proceed.
func (b *Builder) ready() bool {
	if b.finalized {
		errz.Panicf(errz.E5008, "builder already finalized")
	}
	return b.failure == nil
}

func (b *Builder) fail(err error) {
	if err == nil || b.failure != nil {
		return
	}
	b.failure = err
	b.log.Debug().Err(err).Int("offset", b.writer.Offset()).Msg("builder failed")
}

// Accessors

// Parameter returns the register of parameter i.
func (b *Builder) Parameter(i int) register.Register {
	if i < 0 || i >= b.alloc.ParameterCount() {
		errz.Panicf(errz.E5003, "parameter %d out of range [0,%d)", i, b.alloc.ParameterCount())
	}
	return register.FromParameterIndex(i, b.alloc.ParameterCount())
}

// Local returns the register of fixed local i.
func (b *Builder) Local(i int) register.Register {
	if i < 0 || i >= b.alloc.LocalCount() {
		errz.Panicf(errz.E5003, "local %d out of range [0,%d)", i, b.alloc.LocalCount())
	}
	return register.Register(i)
}

// RegisterAllocator returns the allocator for temporaries.
func (b *Builder) RegisterAllocator() *register.Allocator {
	return b.alloc
}

// ParameterCount returns the number of parameters.
func (b *Builder) ParameterCount() int {
	return b.alloc.ParameterCount()
}

// LocalsCount returns the number of fixed locals.
func (b *Builder) LocalsCount() int {
	return b.alloc.LocalCount()
}

// TotalRegisterCount returns the number of locals plus the peak number of
// live temporaries.
func (b *Builder) TotalRegisterCount() int {
	return b.alloc.FrameSize()
}

// RequiresImplicitReturn returns true if control can reach the current
// offset.
func (b *Builder) RequiresImplicitReturn() bool {
	return !b.writer.ExitSeen()
}

// RemainderOfBlockIsDead returns true if instructions emitted now would be
// unreachable.
func (b *Builder) RemainderOfBlockIsDead() bool {
	return b.writer.ExitSeen()
}

// Offset returns the offset of the next instruction.
func (b *Builder) Offset() int {
	return b.writer.Offset()
}

// RegisterIsValid returns true if r may be used as an operand now.
func (b *Builder) RegisterIsValid(r register.Register) bool {
	switch {
	case r == register.Invalid:
		return false
	case r == register.FunctionClosure || r == register.CurrentContext:
		return true
	case r.IsParameter():
		i := r.ToParameterIndex(b.alloc.ParameterCount())
		return i >= 0 && i < b.alloc.ParameterCount()
	case r.Index() < b.alloc.LocalCount():
		return r.Index() >= 0
	}
	return b.alloc.IsLive(r)
}

// RegisterListIsValid returns true if every register of l is valid.
func (b *Builder) RegisterListIsValid(l register.List) bool {
	for i := 0; i < l.Count(); i++ {
		if !b.RegisterIsValid(l.At(i)) {
			return false
		}
	}
	return true
}

func (b *Builder) checkRegister(r register.Register) {
	if !b.RegisterIsValid(r) {
		errz.Panicf(errz.E5003, "invalid register %s", r)
	}
}

func (b *Builder) checkRegisterList(l register.List) {
	if !b.RegisterListIsValid(l) {
		errz.Panicf(errz.E5003, "invalid register list %s", l)
	}
}

// validate checks the register operands of an instruction.
func (b *Builder) validate(code op.Code, operands []int64) {
	types := op.GetInfo(code).Operands
	if len(types) != len(operands) {
		errz.Panicf(errz.E5009, "%s takes %d operands, got %d", code, len(types), len(operands))
	}
	for i, t := range types {
		switch {
		case t.IsRegisterList():
			b.checkRegisterList(register.NewList(register.Register(operands[i]), int(operands[i+1])))
		case t.ImplicitRegisterCount() > 1:
			b.checkRegisterList(register.NewList(register.Register(operands[i]), t.ImplicitRegisterCount()))
		case t.IsRegister():
			b.checkRegister(register.Register(operands[i]))
		}
	}
}

// Source positions

// SetStatementPosition attaches a statement position to the next
// instruction.
func (b *Builder) SetStatementPosition(pos int) {
	if pos == srcpos.NoSourcePosition {
		return
	}
	b.latest = srcpos.NewStatement(pos)
}

// SetExpressionPosition attaches an expression position to the next
// instruction that can observe it, unless a statement position is pending.
func (b *Builder) SetExpressionPosition(pos int) {
	if pos == srcpos.NoSourcePosition || b.latest.IsStatement() {
		return
	}
	b.latest = srcpos.NewExpression(pos)
}

// SetExpressionAsStatementPosition attaches an expression's position with
// statement granularity.
func (b *Builder) SetExpressionAsStatementPosition(pos int) {
	b.SetStatementPosition(pos)
}

// currentSourceInfo returns and consumes the pending position if code can
// carry it. Expression positions wait for an instruction with external
// side effects when filtering is enabled.
func (b *Builder) currentSourceInfo(code op.Code) srcpos.SourceInfo {
	if !b.latest.IsValid() || b.positions.Omit() {
		return srcpos.NoSourceInfo()
	}
	if b.latest.IsStatement() || !b.cfg.filterExpressions || !op.IsWithoutExternalSideEffects(code) {
		info := b.latest
		b.latest = srcpos.NoSourceInfo()
		return info
	}
	return srcpos.NoSourceInfo()
}

func (b *Builder) setDeferredSourceInfo(info srcpos.SourceInfo) {
	if info.IsValid() {
		b.deferred = info
	}
}

// attachOrEmitDeferred moves a deferred position onto node. If node has
// a position of its own, a Nop is written to carry the deferred one.
func (b *Builder) attachOrEmitDeferred(node *asm.Node) {
	if !b.deferred.IsValid() {
		return
	}
	switch {
	case !node.Source.IsValid():
		node.Source = b.deferred
	case b.deferred.IsStatement() && node.Source.IsExpression():
		node.Source = node.Source.AsStatement()
	default:
		b.fail(b.writer.Write(asm.NewNode(op.Nop).WithSource(b.deferred)))
	}
	b.deferred = srcpos.NoSourceInfo()
}

// flushPendingPosition writes a Nop for a deferred or statement position
// that no instruction consumed. A position pending in code that is being
// discarded as dead is logged and dropped.
func (b *Builder) flushPendingPosition() {
	info := b.deferred
	if !info.IsValid() && b.latest.IsStatement() && !b.positions.Omit() {
		info = b.latest
	}
	b.deferred = srcpos.NoSourceInfo()
	b.latest = srcpos.NoSourceInfo()
	if !info.IsValid() {
		return
	}
	if b.cfg.dropDeadCode && b.writer.ExitSeen() {
		b.log.Debug().
			Int("position", info.Position).
			Bool("statement", info.IsStatement()).
			Msg("dropped unreachable source position")
		return
	}
	b.fail(b.writer.Write(asm.NewNode(op.Nop).WithSource(info)))
}

// Emission

// output validates and writes a non-jump instruction.
func (b *Builder) output(code op.Code, operands ...int64) *Builder {
	if !b.ready() {
		return b
	}
	b.validate(code, operands)
	b.prepare(code, operands)
	b.write(asm.NewNode(code, operands...).WithSource(b.currentSourceInfo(code)))
	return b
}

func (b *Builder) write(node asm.Node) {
	b.attachOrEmitDeferred(&node)
	b.fail(b.writer.Write(node))
}

// jump writes a jump to l. The operands exclude the displacement.
func (b *Builder) jump(code op.Code, l Label, operands ...int64) *Builder {
	if !b.ready() {
		return b
	}
	b.prepare(code, nil)
	node := asm.NewNode(code, operands...).WithSource(b.currentSourceInfo(code))
	b.attachOrEmitDeferred(&node)
	b.fail(b.writer.WriteJump(node, l))
	return b
}

func (b *Builder) flush() {
	if b.optimizer != nil {
		b.optimizer.Flush()
	}
}

// Finalize assembles the Program. It may be called once; any later call
// on the Builder panics.
func (b *Builder) Finalize() (*bytecode.Program, error) {
	if b.finalized {
		errz.Panicf(errz.E5008, "builder already finalized")
	}
	if b.failure != nil {
		b.finalized = true
		return nil, b.failure
	}
	if b.cfg.implicitReturn && b.RequiresImplicitReturn() {
		b.LoadUndefined().Return()
		if b.failure != nil {
			b.finalized = true
			return nil, b.failure
		}
	}
	b.flush()
	b.flushPendingPosition()
	b.finalized = true
	if b.failure != nil {
		return nil, b.failure
	}

	var result *multierror.Error
	if err := b.writer.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := b.handlers.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		code := errz.E5002
		var ie *errz.InvariantError
		if errors.As(result.Errors[0], &ie) {
			code = ie.Code
		}
		panic(&errz.InvariantError{Code: code, Message: err.Error(), Cause: err})
	}

	code := b.writer.Finalize()
	constants := b.pool.Finalize()
	handlers := b.handlers.Finalize()
	positions := b.positions.Finalize()
	program := bytecode.NewProgram(bytecode.ProgramParams{
		ID:             uuid.Must(uuid.NewV4()).String(),
		Name:           b.cfg.name,
		Code:           code,
		Constants:      constants,
		Handlers:       handlers,
		Positions:      positions,
		ParameterCount: b.alloc.ParameterCount(),
		LocalCount:     b.alloc.LocalCount(),
		FrameSize:      b.alloc.FrameSize(),
	})
	stats := b.writer.Stats()
	b.log.Debug().
		Str("name", b.cfg.name).
		Int("bytes", len(code)).
		Int("instructions", stats.Instructions).
		Int("elided", stats.Elided).
		Int("dead", stats.DeadDropped).
		Int("constant_jumps", stats.ConstantJumps).
		Int("constants", len(constants)).
		Int("frame_size", program.FrameSize()).
		Msg("finalized bytecode")
	return program, nil
}

// Stats returns the writer's counters.
func (b *Builder) Stats() asm.Stats {
	return b.writer.Stats()
}
