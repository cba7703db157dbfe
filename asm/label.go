package asm

import (
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/op"
)

// Label is a jump target within one Writer.
type Label int

// JumpTable is a set of switch targets within one Writer.
type JumpTable int

type labelRecord struct {
	offset  int
	bound   bool
	pending int
}

type tableRecord struct {
	first        int // first constant pool index
	caseBase     int
	switchOffset int
	switched     bool
	bound        []bool
}

// patch is a forward jump waiting for its label.
type patch struct {
	offset   int // offset of the jump, prefix included
	operand  int // offset of the displacement operand
	opcode   int // offset of the opcode byte
	size     op.OperandSize
	label    Label
	resolved bool
}

// NewLabel returns a fresh unbound label.
func (w *Writer) NewLabel() Label {
	w.labels = append(w.labels, labelRecord{})
	return Label(len(w.labels) - 1)
}

func (w *Writer) label(l Label) *labelRecord {
	if int(l) < 0 || int(l) >= len(w.labels) {
		errz.Panicf(errz.E5009, "unknown label %d", l)
	}
	return &w.labels[l]
}

// IsBound returns true if the label has been bound.
func (w *Writer) IsBound(l Label) bool {
	return w.label(l).bound
}

// LabelOffset returns the offset a bound label refers to.
func (w *Writer) LabelOffset(l Label) (int, bool) {
	rec := w.label(l)
	return rec.offset, rec.bound
}

// Bind binds the label to the current offset and patches the jumps that
// reference it. A new basic block starts here.
func (w *Writer) Bind(l Label) error {
	w.checkOpen()
	rec := w.label(l)
	if rec.bound {
		errz.Panicf(errz.E5001, "label %d is already bound", l)
	}
	w.startBasicBlock()
	return w.bindTo(l, rec, w.Offset())
}

// BindTo binds the label to the offset of an already bound target.
func (w *Writer) BindTo(target, l Label) error {
	w.checkOpen()
	t := w.label(target)
	if !t.bound {
		errz.Panicf(errz.E5002, "label %d is not bound", target)
	}
	rec := w.label(l)
	if rec.bound {
		errz.Panicf(errz.E5001, "label %d is already bound", l)
	}
	w.Invalidate()
	return w.bindTo(l, rec, t.offset)
}

func (w *Writer) bindTo(l Label, rec *labelRecord, offset int) error {
	rec.offset = offset
	rec.bound = true
	var firstErr error
	for i := range w.patches {
		p := &w.patches[i]
		if p.label != l || p.resolved {
			continue
		}
		if err := w.patchJump(p, offset); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	rec.pending = 0
	return firstErr
}

// patchJump writes the displacement of a forward jump. A displacement that
// does not fit the placeholder is committed to the reserved constant entry
// and the jump becomes its constant variant.
func (w *Writer) patchJump(p *patch, target int) error {
	p.resolved = true
	delta := int64(target - p.offset)
	operand := w.code[p.operand : p.operand+int(p.size)]
	if size, ok := op.SizeForSigned(delta); ok && size <= p.size {
		putOperand(operand, p.size, delta)
		w.pool.DiscardReservedEntry(p.size)
		w.log.Trace().Int("offset", p.offset).Int64("delta", delta).Msg("patched jump")
		return nil
	}
	if _, ok := op.SizeForSigned(delta); !ok {
		w.pool.DiscardReservedEntry(p.size)
		return errz.Limitf(errz.E6003, "jump at offset %d to %d is too far", p.offset, target)
	}
	code := op.Code(w.code[p.opcode])
	constant, ok := op.JumpWithConstantOperand(code)
	if !ok {
		errz.Panicf(errz.E5009, "%s has no constant variant", code)
	}
	index := w.pool.CommitReservedEntry(p.size, delta)
	w.code[p.opcode] = byte(constant)
	putOperand(operand, p.size, int64(index))
	w.stats.ConstantJumps++
	w.log.Trace().
		Int("offset", p.offset).
		Int64("delta", delta).
		Int("index", index).
		Msg("jump displacement moved to constant pool")
	return nil
}

// WriteJump encodes a jump to l. The node lists every operand except the
// displacement, which always comes first. A jump to a bound label is
// backward and encoded directly; a jump to an unbound label is patched when
// the label is bound.
func (w *Writer) WriteJump(node Node, l Label) error {
	w.checkOpen()
	if !op.IsJump(node.Code) || op.IsJumpConstant(node.Code) {
		errz.Panicf(errz.E5009, "%s is not an immediate jump", node.Code)
	}
	node.check(true)
	rec := w.label(l)
	if node.Code == op.JumpLoop && !rec.bound {
		errz.Panicf(errz.E5010, "loop jump to unbound label %d", l)
	}
	if w.dropDeadCode() {
		return nil
	}
	w.updateExitSeen(node.Code)
	w.maybeElideLast(node)

	offset := w.Offset()
	if rec.bound {
		operands := append([]int64{int64(rec.offset - offset)}, node.Operands...)
		scale, err := operandScale(node.Code, operands)
		if err != nil {
			return err
		}
		w.commit(Node{Code: node.Code, Operands: operands, Source: node.Source}, scale)
		w.Invalidate()
		return nil
	}

	size, err := w.pool.CreateReservedEntry()
	if err != nil {
		return err
	}
	scale := op.ScaleForSize(size)
	operands := append([]int64{placeholder(size)}, node.Operands...)
	w.commit(Node{Code: node.Code, Operands: operands, Source: node.Source}, scale)
	w.Invalidate()
	opcode := offset
	if _, ok := op.PrefixForScale(scale); ok {
		opcode++
	}
	w.patches = append(w.patches, patch{
		offset:  offset,
		operand: opcode + 1,
		opcode:  opcode,
		size:    size,
		label:   l,
	})
	rec.pending++
	return nil
}

// AllocateJumpTable reserves size consecutive constant pool entries for the
// targets of a switch over the cases caseBase to caseBase+size-1.
func (w *Writer) AllocateJumpTable(size, caseBase int) (JumpTable, error) {
	w.checkOpen()
	if size <= 0 {
		errz.Panicf(errz.E5006, "jump table size must be positive, got %d", size)
	}
	first, err := w.pool.AllocateRange(size)
	if err != nil {
		return 0, err
	}
	w.tables = append(w.tables, tableRecord{
		first:    first,
		caseBase: caseBase,
		bound:    make([]bool, size),
	})
	return JumpTable(len(w.tables) - 1), nil
}

func (w *Writer) table(t JumpTable) *tableRecord {
	if int(t) < 0 || int(t) >= len(w.tables) {
		errz.Panicf(errz.E5006, "unknown jump table %d", t)
	}
	return &w.tables[t]
}

// JumpTableRange returns the first constant pool index, the size and the
// case base of a table.
func (w *Writer) JumpTableRange(t JumpTable) (first, size, caseBase int) {
	rec := w.table(t)
	return rec.first, len(rec.bound), rec.caseBase
}

// WriteSwitch encodes the dispatch through a jump table. The node carries
// only source info; the operands come from the table.
func (w *Writer) WriteSwitch(node Node, t JumpTable) error {
	w.checkOpen()
	if !op.IsSwitch(node.Code) {
		errz.Panicf(errz.E5009, "%s is not a switch", node.Code)
	}
	rec := w.table(t)
	if rec.switched {
		errz.Panicf(errz.E5006, "jump table %d is already dispatched", t)
	}
	if w.dropDeadCode() {
		return nil
	}
	operands := []int64{int64(rec.first), int64(len(rec.bound)), int64(rec.caseBase)}
	scale, err := operandScale(node.Code, operands)
	if err != nil {
		return err
	}
	w.maybeElideLast(node)
	rec.switchOffset = w.Offset()
	rec.switched = true
	w.commit(Node{Code: node.Code, Operands: operands, Source: node.Source}, scale)
	w.Invalidate()
	return nil
}

// BindJumpTable binds a case of the table to the current offset.
func (w *Writer) BindJumpTable(t JumpTable, caseValue int) {
	w.checkOpen()
	rec := w.table(t)
	if !rec.switched {
		errz.Panicf(errz.E5006, "jump table %d is bound before its switch", t)
	}
	i := caseValue - rec.caseBase
	if i < 0 || i >= len(rec.bound) {
		errz.Panicf(errz.E5006, "case %d is outside jump table %d", caseValue, t)
	}
	if rec.bound[i] {
		errz.Panicf(errz.E5006, "case %d of jump table %d is already bound", caseValue, t)
	}
	w.startBasicBlock()
	rec.bound[i] = true
	w.pool.SetDeferred(rec.first+i, int64(w.Offset()-rec.switchOffset))
}
