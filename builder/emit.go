package builder

import (
	"fmt"

	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
)

type operandKind uint8

const (
	kindValue operandKind = iota
	kindRegister
	kindList
	kindLabel
	kindTable
)

var kindNames = [...]string{
	kindValue:    "value",
	kindRegister: "register",
	kindList:     "register list",
	kindLabel:    "label",
	kindTable:    "jump table",
}

// Operand is a typed operand for Emit.
type Operand struct {
	kind  operandKind
	value int64
	list  register.List
	label Label
	table JumpTable
}

// Reg returns a register operand.
func Reg(r register.Register) Operand {
	return Operand{kind: kindRegister, value: int64(r)}
}

// Regs returns a register list operand. It fills a list operand together
// with its count, or a register pair or triple.
func Regs(l register.List) Operand {
	return Operand{kind: kindList, list: l}
}

// Value returns an immediate, index, runtime id or flag operand.
func Value(v int64) Operand {
	return Operand{kind: kindValue, value: v}
}

// Target returns the label operand of a jump.
func Target(l Label) Operand {
	return Operand{kind: kindLabel, label: l}
}

// Table returns the jump table operand of a switch.
func Table(t JumpTable) Operand {
	return Operand{kind: kindTable, table: t}
}

func (o Operand) String() string {
	switch o.kind {
	case kindRegister:
		return register.Register(o.value).String()
	case kindList:
		return o.list.String()
	case kindLabel:
		return fmt.Sprintf("label %d", o.label)
	case kindTable:
		return fmt.Sprintf("table %d", o.table)
	}
	return fmt.Sprint(o.value)
}

// Emit writes any instruction from typed operands, routing register
// transfers, jumps and switches through their dedicated operations. A
// jump takes its target first, followed by its remaining operands.
// Constant jumps and prefixes are chosen by the encoder and cannot be
// emitted.
func (b *Builder) Emit(code op.Code, operands ...Operand) *Builder {
	if !op.IsValid(byte(code)) {
		errz.Panicf(errz.E5009, "invalid opcode %d", code)
	}
	switch {
	case op.IsPrefix(code) || op.IsJumpConstant(code):
		errz.Panicf(errz.E5009, "%s cannot be emitted directly", code)
	case code == op.Ldar:
		expectOperands(code, operands, kindRegister)
		return b.LoadAccumulatorWithRegister(register.Register(operands[0].value))
	case code == op.Star:
		expectOperands(code, operands, kindRegister)
		return b.StoreAccumulatorInRegister(register.Register(operands[0].value))
	case code == op.Mov:
		expectOperands(code, operands, kindRegister, kindRegister)
		return b.MoveRegister(register.Register(operands[0].value), register.Register(operands[1].value))
	case op.IsSwitch(code):
		expectOperands(code, operands, kindTable)
		return b.SwitchOnSmi(operands[0].table)
	case op.IsJump(code):
		if len(operands) == 0 || operands[0].kind != kindLabel {
			errz.Panicf(errz.E5009, "%s needs a label as its first operand", code)
		}
		rest := make([]int64, 0, len(operands)-1)
		for _, o := range operands[1:] {
			if o.kind != kindValue {
				errz.Panicf(errz.E5009, "%s: unexpected %s operand %s", code, kindNames[o.kind], o)
			}
			rest = append(rest, o.value)
		}
		return b.jump(code, operands[0].label, rest...)
	}
	return b.output(code, encodeOperands(code, operands)...)
}

func expectOperands(code op.Code, operands []Operand, kinds ...operandKind) {
	if len(operands) != len(kinds) {
		errz.Panicf(errz.E5009, "%s takes %d operands, got %d", code, len(kinds), len(operands))
	}
	for i, k := range kinds {
		if operands[i].kind != k {
			errz.Panicf(errz.E5009, "%s operand %d: want %s, got %s", code, i, kindNames[k], kindNames[operands[i].kind])
		}
	}
}

// encodeOperands flattens typed operands into the encoded operand list of
// code. A register list fills both its base and count operands.
func encodeOperands(code op.Code, operands []Operand) []int64 {
	types := op.GetInfo(code).Operands
	encoded := make([]int64, 0, len(types))
	next := 0
	take := func(t op.OperandType) Operand {
		if next >= len(operands) {
			errz.Panicf(errz.E5009, "%s: missing %s operand", code, t)
		}
		o := operands[next]
		next++
		return o
	}
	for i := 0; i < len(types); i++ {
		t := types[i]
		o := take(t)
		switch {
		case t.IsRegisterList():
			if o.kind != kindList {
				errz.Panicf(errz.E5009, "%s: want register list for %s, got %s", code, t, o)
			}
			first, count := listOperands(o.list)
			encoded = append(encoded, first, count)
			i++
		case t.ImplicitRegisterCount() > 1:
			switch o.kind {
			case kindList:
				checkListLength(o.list, t.ImplicitRegisterCount(), fmt.Sprintf("%s %s", code, t))
				encoded = append(encoded, int64(o.list.First()))
			case kindRegister:
				encoded = append(encoded, o.value)
			default:
				errz.Panicf(errz.E5009, "%s: want registers for %s, got %s", code, t, o)
			}
		case t.IsRegister():
			if o.kind != kindRegister {
				errz.Panicf(errz.E5009, "%s: want register for %s, got %s", code, t, o)
			}
			encoded = append(encoded, o.value)
		default:
			if o.kind != kindValue {
				errz.Panicf(errz.E5009, "%s: want value for %s, got %s", code, t, o)
			}
			encoded = append(encoded, o.value)
		}
	}
	if next != len(operands) {
		errz.Panicf(errz.E5009, "%s takes %d operands, got %d", code, next, len(operands))
	}
	return encoded
}
