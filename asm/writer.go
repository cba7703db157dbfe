package asm

import (
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/risor-io/regasm/constpool"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/srcpos"
)

// Config wires a Writer to the tables it shares with the builder.
type Config struct {
	Pool      *constpool.Builder
	Positions *srcpos.Builder
	Logger    zerolog.Logger
	// Elide enables retraction of redundant accumulator loads.
	Elide bool
	// DropDeadCode discards instructions written after a block ender until
	// the next label or handler mark.
	DropDeadCode bool
}

// Stats counts the work the Writer avoided or deferred.
type Stats struct {
	Instructions  int
	Elided        int
	DeadDropped   int
	ConstantJumps int
}

// last describes the most recently committed instruction while it can
// still be retracted.
type last struct {
	valid     bool
	code      op.Code
	offset    int
	operand   int64
	hasSource bool
}

// Writer appends encoded instructions to a byte stream.
type Writer struct {
	code      []byte
	pool      *constpool.Builder
	positions *srcpos.Builder
	log       zerolog.Logger
	elide     bool
	dropDead  bool

	last     last
	exitSeen bool

	labels  []labelRecord
	tables  []tableRecord
	patches []patch

	stats     Stats
	finalized bool
}

// NewWriter returns a Writer using the pool and position table of cfg.
func NewWriter(cfg Config) *Writer {
	if cfg.Pool == nil {
		cfg.Pool = constpool.New()
	}
	if cfg.Positions == nil {
		cfg.Positions = srcpos.NewBuilder(srcpos.RecordSourcePositions)
	}
	return &Writer{
		pool:      cfg.Pool,
		positions: cfg.Positions,
		log:       cfg.Logger,
		elide:     cfg.Elide,
		dropDead:  cfg.DropDeadCode,
	}
}

// Offset returns the offset the next instruction will be written at.
func (w *Writer) Offset() int {
	return len(w.code)
}

// ExitSeen returns true if the current basic block has already been left
// by a return, throw or unconditional jump.
func (w *Writer) ExitSeen() bool {
	return w.exitSeen
}

// Stats returns the counters accumulated so far.
func (w *Writer) Stats() Stats {
	return w.stats
}

// Write encodes a non-jump instruction, applying elision and, when
// enabled, dead code removal.
func (w *Writer) Write(node Node) error {
	w.checkOpen()
	if op.IsJump(node.Code) || op.IsSwitch(node.Code) || op.IsPrefix(node.Code) {
		errz.Panicf(errz.E5009, "%s cannot be written directly", node.Code)
	}
	node.check(false)
	if w.dropDeadCode() {
		return nil
	}
	if w.elideStarLdar(node) {
		return nil
	}
	scale, err := operandScale(node.Code, node.Operands)
	if err != nil {
		return err
	}
	w.updateExitSeen(node.Code)
	w.maybeElideLast(node)
	w.commit(node, scale)
	return nil
}

// WriteRaw encodes a non-jump instruction without elision. The retraction
// window is closed afterwards.
func (w *Writer) WriteRaw(node Node) error {
	w.checkOpen()
	if op.IsJump(node.Code) || op.IsSwitch(node.Code) || op.IsPrefix(node.Code) {
		errz.Panicf(errz.E5009, "%s cannot be written directly", node.Code)
	}
	node.check(false)
	if w.dropDeadCode() {
		return nil
	}
	scale, err := operandScale(node.Code, node.Operands)
	if err != nil {
		return err
	}
	w.updateExitSeen(node.Code)
	w.commit(node, scale)
	w.Invalidate()
	return nil
}

func (w *Writer) commit(node Node, scale op.OperandScale) {
	offset := len(w.code)
	w.positions.AddPosition(offset, node.Source)
	w.code = appendInstruction(w.code, node.Code, scale, node.Operands)
	w.stats.Instructions++
	w.last = last{
		valid:     true,
		code:      node.Code,
		offset:    offset,
		hasSource: node.Source.IsValid(),
	}
	if len(node.Operands) > 0 {
		w.last.operand = node.Operands[0]
	}
}

// elideStarLdar drops a load of the register that the previous instruction
// just stored the accumulator to.
func (w *Writer) elideStarLdar(node Node) bool {
	if !w.elide || !w.last.valid || w.last.code != op.Star || node.Code != op.Ldar {
		return false
	}
	if w.last.operand != node.Operands[0] || w.last.hasSource || node.Source.IsValid() {
		return false
	}
	w.stats.Elided++
	w.log.Trace().
		Int("offset", w.last.offset).
		Str("register", register.Register(node.Operands[0]).String()).
		Msg("elided load of stored register")
	return true
}

// maybeElideLast retracts an effect-free accumulator load that the next
// instruction overwrites without reading. The retracted instruction's
// position stays in the table at the same offset, so it carries over to
// its replacement.
func (w *Writer) maybeElideLast(next Node) {
	if !w.elide || !w.last.valid {
		return
	}
	if !op.IsAccumulatorLoadWithoutEffects(w.last.code) {
		return
	}
	if op.GetInfo(next.Code).Accumulator != op.AccWrite {
		return
	}
	if w.last.hasSource && next.Source.IsValid() {
		return
	}
	w.log.Trace().
		Int("offset", w.last.offset).
		Str("op", w.last.code.String()).
		Str("next", next.Code.String()).
		Msg("elided accumulator load")
	w.code = w.code[:w.last.offset]
	w.stats.Elided++
	w.stats.Instructions--
	w.last.valid = false
}

// dropDeadCode reports whether the instruction being written is discarded
// as unreachable.
func (w *Writer) dropDeadCode() bool {
	if !w.dropDead || !w.exitSeen {
		return false
	}
	w.stats.DeadDropped++
	return true
}

func (w *Writer) updateExitSeen(code op.Code) {
	if op.EndsBlock(code) {
		w.exitSeen = true
	}
}

// Invalidate closes the retraction window.
func (w *Writer) Invalidate() {
	w.last.valid = false
}

// startBasicBlock is called wherever control can enter.
func (w *Writer) startBasicBlock() {
	w.Invalidate()
	w.exitSeen = false
}

// BindTryRegionStart marks the start of a try region at the current
// offset.
func (w *Writer) BindTryRegionStart(h *handler.Builder, id int, context register.Register) {
	w.checkOpen()
	w.startBasicBlock()
	h.SetTryRegionStart(id, w.Offset(), context)
}

// BindTryRegionEnd marks the end of a try region at the current offset.
func (w *Writer) BindTryRegionEnd(h *handler.Builder, id int) {
	w.checkOpen()
	w.Invalidate()
	h.SetTryRegionEnd(id, w.Offset())
}

// BindHandlerTarget marks the handler of entry id at the current offset.
func (w *Writer) BindHandlerTarget(h *handler.Builder, id int, prediction handler.CatchPrediction) {
	w.checkOpen()
	w.startBasicBlock()
	h.SetHandlerTarget(id, w.Offset(), prediction)
}

func (w *Writer) checkOpen() {
	if w.finalized {
		errz.Panicf(errz.E5008, "instruction stream already finalized")
	}
}

// Validate reports every unbound label and jump table case.
func (w *Writer) Validate() error {
	var result *multierror.Error
	for i, l := range w.labels {
		if !l.bound {
			result = multierror.Append(result, errz.Invariantf(errz.E5002,
				"label %d was never bound (%d pending jumps)", i, l.pending))
		}
	}
	for i, t := range w.tables {
		if !t.switched {
			result = multierror.Append(result, errz.Invariantf(errz.E5006,
				"jump table %d was never dispatched", i))
		}
		for c, bound := range t.bound {
			if !bound {
				result = multierror.Append(result, errz.Invariantf(errz.E5006,
					"jump table %d case %d was never bound", i, t.caseBase+c))
			}
		}
	}
	return result.ErrorOrNil()
}

// Finalize verifies that every jump has been resolved and returns the
// instruction bytes. The Writer cannot be used afterwards.
func (w *Writer) Finalize() []byte {
	w.checkOpen()
	if err := w.Validate(); err != nil {
		panic(&errz.InvariantError{Code: errz.E5002, Message: err.Error(), Cause: err})
	}
	for _, p := range w.patches {
		if !p.resolved {
			errz.Panicf(errz.E5002, "jump at offset %d was never patched", p.offset)
		}
	}
	w.finalized = true
	code := make([]byte, len(w.code))
	copy(code, w.code)
	return code
}
