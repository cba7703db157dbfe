package asm

import (
	"encoding/binary"
	"math"

	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/op"
)

// operandScale returns the smallest scale that encodes every operand of
// the instruction.
func operandScale(code op.Code, operands []int64) (op.OperandScale, error) {
	info := op.GetInfo(code)
	scale := op.ScaleSingle
	for i, t := range info.Operands {
		v := operands[i]
		if !t.IsScalable() {
			limit := int64(math.MaxUint8)
			if op.Size(t, op.ScaleSingle) == op.SizeShort {
				limit = math.MaxUint16
			}
			if v < 0 || v > limit {
				return 0, errz.Limitf(errz.E6001, "%s operand %d (%s) out of range: %d", code, i, t, v)
			}
			continue
		}
		size, ok := op.SizeFor(t, v)
		if !ok {
			return 0, errz.Limitf(errz.E6001, "%s operand %d (%s) out of range: %d", code, i, t, v)
		}
		if s := op.ScaleForSize(size); s > scale {
			scale = s
		}
	}
	return scale, nil
}

// appendInstruction encodes the instruction at the given scale.
func appendInstruction(buf []byte, code op.Code, scale op.OperandScale, operands []int64) []byte {
	if prefix, ok := op.PrefixForScale(scale); ok {
		buf = append(buf, byte(prefix))
	}
	buf = append(buf, byte(code))
	for i, t := range op.GetInfo(code).Operands {
		buf = appendOperand(buf, op.Size(t, scale), operands[i])
	}
	return buf
}

func appendOperand(buf []byte, size op.OperandSize, v int64) []byte {
	switch size {
	case op.SizeByte:
		return append(buf, byte(v))
	case op.SizeShort:
		return binary.LittleEndian.AppendUint16(buf, uint16(v))
	case op.SizeQuad:
		return binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return buf
}

func putOperand(buf []byte, size op.OperandSize, v int64) {
	switch size {
	case op.SizeByte:
		buf[0] = byte(v)
	case op.SizeShort:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case op.SizeQuad:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	}
}

// placeholder returns the operand value written for an unresolved jump of
// the given width.
func placeholder(size op.OperandSize) int64 {
	switch size {
	case op.SizeShort:
		return 0x7f7f
	case op.SizeQuad:
		return 0x7f7f7f7f
	}
	return 0x7f
}
