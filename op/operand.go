package op

import "math"

// OperandType is the kind of an instruction operand.
type OperandType uint8

const (
	OperandNone OperandType = iota
	OperandReg
	OperandRegList
	OperandRegPair
	OperandRegOut
	OperandRegOutList
	OperandRegOutPair
	OperandRegOutTriple
	OperandRegCount
	OperandImm
	OperandUImm
	OperandIdx
	OperandRuntimeID
	OperandFlag8
)

var operandTypeNames = [...]string{
	OperandNone:         "None",
	OperandReg:          "Reg",
	OperandRegList:      "RegList",
	OperandRegPair:      "RegPair",
	OperandRegOut:       "RegOut",
	OperandRegOutList:   "RegOutList",
	OperandRegOutPair:   "RegOutPair",
	OperandRegOutTriple: "RegOutTriple",
	OperandRegCount:     "RegCount",
	OperandImm:          "Imm",
	OperandUImm:         "UImm",
	OperandIdx:          "Idx",
	OperandRuntimeID:    "RuntimeID",
	OperandFlag8:        "Flag8",
}

func (t OperandType) String() string {
	if int(t) < len(operandTypeNames) {
		return operandTypeNames[t]
	}
	return "Unknown"
}

// IsRegister returns true for every register operand kind, input or output.
func (t OperandType) IsRegister() bool {
	return t >= OperandReg && t <= OperandRegOutTriple
}

// IsRegisterOutput returns true for register operands the instruction
// writes.
func (t OperandType) IsRegisterOutput() bool {
	return t >= OperandRegOut && t <= OperandRegOutTriple
}

// IsRegisterList returns true for register operands whose length is given
// by the following RegCount operand.
func (t OperandType) IsRegisterList() bool {
	return t == OperandRegList || t == OperandRegOutList
}

// ImplicitRegisterCount returns the number of registers covered by a
// fixed-length register range operand, or 1 for a single register and 0
// for non-register kinds and lists.
func (t OperandType) ImplicitRegisterCount() int {
	switch t {
	case OperandReg, OperandRegOut:
		return 1
	case OperandRegPair, OperandRegOutPair:
		return 2
	case OperandRegOutTriple:
		return 3
	}
	return 0
}

// IsSigned returns true if values of the kind are encoded as two's
// complement.
func (t OperandType) IsSigned() bool {
	return t == OperandImm || t.IsRegister()
}

// IsScalable returns true if the encoded width of the kind follows the
// instruction's operand scale.
func (t OperandType) IsScalable() bool {
	return t != OperandNone && t != OperandRuntimeID && t != OperandFlag8
}

// OperandSize is the encoded width of an operand in bytes.
type OperandSize uint8

const (
	SizeNone  OperandSize = 0
	SizeByte  OperandSize = 1
	SizeShort OperandSize = 2
	SizeQuad  OperandSize = 4
)

func (s OperandSize) String() string {
	switch s {
	case SizeByte:
		return "Byte"
	case SizeShort:
		return "Short"
	case SizeQuad:
		return "Quad"
	}
	return "None"
}

// OperandScale multiplies the width of scalable operands.
type OperandScale uint8

const (
	ScaleSingle    OperandScale = 1
	ScaleDouble    OperandScale = 2
	ScaleQuadruple OperandScale = 4
)

// Size returns the encoded width of an operand of the given kind at the
// given scale.
func Size(t OperandType, scale OperandScale) OperandSize {
	switch t {
	case OperandNone:
		return SizeNone
	case OperandRuntimeID:
		return SizeShort
	case OperandFlag8:
		return SizeByte
	}
	return OperandSize(scale)
}

// ScaleForSize returns the smallest scale that encodes scalable operands
// with the given width.
func ScaleForSize(s OperandSize) OperandScale {
	switch s {
	case SizeQuad:
		return ScaleQuadruple
	case SizeShort:
		return ScaleDouble
	}
	return ScaleSingle
}

// PrefixForScale returns the prefix opcode for a scale, if one is needed.
func PrefixForScale(scale OperandScale) (Code, bool) {
	switch scale {
	case ScaleDouble:
		return Wide, true
	case ScaleQuadruple:
		return ExtraWide, true
	}
	return 0, false
}

// ScaleForPrefix returns the scale introduced by a prefix opcode.
func ScaleForPrefix(c Code) OperandScale {
	switch c {
	case Wide:
		return ScaleDouble
	case ExtraWide:
		return ScaleQuadruple
	}
	return ScaleSingle
}

// SizeForSigned returns the smallest width holding v as a signed value.
// The boolean is false if v does not fit in 32 bits.
func SizeForSigned(v int64) (OperandSize, bool) {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return SizeByte, true
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return SizeShort, true
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return SizeQuad, true
	}
	return SizeNone, false
}

// SizeForUnsigned returns the smallest width holding v as an unsigned
// value. The boolean is false if v is negative or does not fit in 32 bits.
func SizeForUnsigned(v int64) (OperandSize, bool) {
	switch {
	case v < 0:
		return SizeNone, false
	case v <= math.MaxUint8:
		return SizeByte, true
	case v <= math.MaxUint16:
		return SizeShort, true
	case v <= math.MaxUint32:
		return SizeQuad, true
	}
	return SizeNone, false
}

// SizeFor returns the smallest width holding v for an operand of kind t.
func SizeFor(t OperandType, v int64) (OperandSize, bool) {
	if t.IsSigned() {
		return SizeForSigned(v)
	}
	return SizeForUnsigned(v)
}

// InstructionSize returns the encoded length of an instruction at the
// given scale, including the prefix byte if one is needed.
func InstructionSize(c Code, scale OperandScale) int {
	n := 1
	if _, ok := PrefixForScale(scale); ok {
		n++
	}
	for _, t := range infos[c].Operands {
		n += int(Size(t, scale))
	}
	return n
}
