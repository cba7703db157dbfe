package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/risor-io/regasm/op"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset   int // offset of the first byte, prefix included
	Length   int // encoded length, prefix included
	Code     op.Code
	Scale    op.OperandScale
	Operands []int64
}

// Prefixed returns true if the instruction was encoded with a scaling
// prefix.
func (in Instruction) Prefixed() bool {
	return in.Scale != op.ScaleSingle
}

// JumpTarget returns the destination of an immediate jump.
func (in Instruction) JumpTarget() (int, bool) {
	if !op.IsJump(in.Code) || op.IsJumpConstant(in.Code) {
		return 0, false
	}
	return in.Offset + int(in.Operands[0]), true
}

// Decode decodes the instruction that starts at offset.
func Decode(code []byte, offset int) (Instruction, error) {
	pos := offset
	if pos < 0 || pos >= len(code) {
		return Instruction{}, fmt.Errorf("offset %d is outside the instruction stream", offset)
	}
	scale := op.ScaleSingle
	if c := op.Code(code[pos]); op.IsPrefix(c) {
		scale = op.ScaleForPrefix(c)
		pos++
		if pos >= len(code) {
			return Instruction{}, fmt.Errorf("truncated prefix at offset %d", offset)
		}
	}
	if !op.IsValid(code[pos]) || op.IsPrefix(op.Code(code[pos])) {
		return Instruction{}, fmt.Errorf("invalid opcode 0x%02x at offset %d", code[pos], pos)
	}
	c := op.Code(code[pos])
	pos++
	info := op.GetInfo(c)
	operands := make([]int64, len(info.Operands))
	for i, t := range info.Operands {
		size := int(op.Size(t, scale))
		if pos+size > len(code) {
			return Instruction{}, fmt.Errorf("truncated %s at offset %d", c, offset)
		}
		operands[i] = readOperand(code[pos:pos+size], t.IsSigned())
		pos += size
	}
	return Instruction{
		Offset:   offset,
		Length:   pos - offset,
		Code:     c,
		Scale:    scale,
		Operands: operands,
	}, nil
}

func readOperand(b []byte, signed bool) int64 {
	switch len(b) {
	case 1:
		if signed {
			return int64(int8(b[0]))
		}
		return int64(b[0])
	case 2:
		v := binary.LittleEndian.Uint16(b)
		if signed {
			return int64(int16(v))
		}
		return int64(v)
	case 4:
		v := binary.LittleEndian.Uint32(b)
		if signed {
			return int64(int32(v))
		}
		return int64(v)
	}
	return 0
}

// InstructionIter iterates over the instructions of an encoded stream.
type InstructionIter struct {
	code []byte
	pos  int
	err  error
}

// NewInstructionIter creates a new instruction iterator for the program.
func NewInstructionIter(p *Program) *InstructionIter {
	return &InstructionIter{code: p.code}
}

// NewBytesIter creates a new instruction iterator over raw bytes.
func NewBytesIter(code []byte) *InstructionIter {
	return &InstructionIter{code: code}
}

// Next returns the next instruction. Returns false at the end of the
// stream or on a decoding error, which is then reported by Err.
func (i *InstructionIter) Next() (Instruction, bool) {
	if i.err != nil || i.pos >= len(i.code) {
		return Instruction{}, false
	}
	instr, err := Decode(i.code, i.pos)
	if err != nil {
		i.err = err
		return Instruction{}, false
	}
	i.pos += instr.Length
	return instr, true
}

// Err returns the first decoding error.
func (i *InstructionIter) Err() error {
	return i.err
}

// All returns all remaining instructions as a newly allocated slice.
func (i *InstructionIter) All() ([]Instruction, error) {
	var results []Instruction
	for {
		instr, ok := i.Next()
		if !ok {
			break
		}
		results = append(results, instr)
	}
	return results, i.err
}
