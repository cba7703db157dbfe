package builder

import (
	"fmt"

	"github.com/risor-io/regasm/op"
)

// TypeofMode tells whether a load happens inside a typeof expression,
// where an unresolvable reference is not an error.
type TypeofMode uint8

const (
	NotInsideTypeof TypeofMode = iota
	InsideTypeof
)

// LanguageMode selects sloppy or strict semantics for stores and deletes.
type LanguageMode uint8

const (
	Sloppy LanguageMode = iota
	Strict
)

// LookupHoistingMode marks lookup slot stores of sloppy mode function
// declarations hoisted out of blocks.
type LookupHoistingMode uint8

const (
	NormalLookup LookupHoistingMode = iota
	LegacySloppyLookup
)

// ContextSlotMutability tells whether a context slot can change after
// initialization.
type ContextSlotMutability uint8

const (
	MutableSlot ContextSlotMutability = iota
	ImmutableSlot
)

// ToBooleanMode tells whether a branch must convert the accumulator to a
// boolean first.
type ToBooleanMode uint8

const (
	ConvertToBoolean ToBooleanMode = iota
	AlreadyBoolean
)

// CreateArgumentsType selects the arguments object to create.
type CreateArgumentsType uint8

const (
	MappedArguments CreateArgumentsType = iota
	UnmappedArguments
	RestParameter
)

// NilValue is the value compared against by CompareNil and JumpIfNil.
type NilValue uint8

const (
	NullValue NilValue = iota
	UndefinedValue
)

// TypeofLiteral is the type name compared against by CompareTypeOf.
type TypeofLiteral uint8

const (
	TypeofNumber TypeofLiteral = iota
	TypeofString
	TypeofSymbol
	TypeofBoolean
	TypeofUndefined
	TypeofFunction
	TypeofObject
	TypeofOther
)

// Operator is a binary, count or comparison operator.
type Operator uint8

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitwiseOr
	OpBitwiseXor
	OpBitwiseAnd
	OpShiftLeft
	OpShiftRight
	OpShiftRightLogical
	OpInc
	OpDec
	OpEq
	OpEqStrict
	OpLessThan
	OpGreaterThan
	OpLessThanOrEqual
	OpGreaterThanOrEqual
	OpInstanceOf
	OpIn
)

var operatorNames = [...]string{
	OpAdd:                "+",
	OpSub:                "-",
	OpMul:                "*",
	OpDiv:                "/",
	OpMod:                "%",
	OpBitwiseOr:          "|",
	OpBitwiseXor:         "^",
	OpBitwiseAnd:         "&",
	OpShiftLeft:          "<<",
	OpShiftRight:         ">>",
	OpShiftRightLogical:  ">>>",
	OpInc:                "++",
	OpDec:                "--",
	OpEq:                 "==",
	OpEqStrict:           "===",
	OpLessThan:           "<",
	OpGreaterThan:        ">",
	OpLessThanOrEqual:    "<=",
	OpGreaterThanOrEqual: ">=",
	OpInstanceOf:         "instanceof",
	OpIn:                 "in",
}

func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", o)
}

var binaryOps = map[Operator]op.Code{
	OpAdd:               op.Add,
	OpSub:               op.Sub,
	OpMul:               op.Mul,
	OpDiv:               op.Div,
	OpMod:               op.Mod,
	OpBitwiseOr:         op.BitwiseOr,
	OpBitwiseXor:        op.BitwiseXor,
	OpBitwiseAnd:        op.BitwiseAnd,
	OpShiftLeft:         op.ShiftLeft,
	OpShiftRight:        op.ShiftRight,
	OpShiftRightLogical: op.ShiftRightLogical,
}

var smiOps = map[Operator]op.Code{
	OpAdd:               op.AddSmi,
	OpSub:               op.SubSmi,
	OpMul:               op.MulSmi,
	OpDiv:               op.DivSmi,
	OpMod:               op.ModSmi,
	OpBitwiseOr:         op.BitwiseOrSmi,
	OpBitwiseXor:        op.BitwiseXorSmi,
	OpBitwiseAnd:        op.BitwiseAndSmi,
	OpShiftLeft:         op.ShiftLeftSmi,
	OpShiftRight:        op.ShiftRightSmi,
	OpShiftRightLogical: op.ShiftRightLogicalSmi,
}

var compareOps = map[Operator]op.Code{
	OpEq:                 op.TestEqual,
	OpEqStrict:           op.TestEqualStrict,
	OpLessThan:           op.TestLessThan,
	OpGreaterThan:        op.TestGreaterThan,
	OpLessThanOrEqual:    op.TestLessThanOrEqual,
	OpGreaterThanOrEqual: op.TestGreaterThanOrEqual,
	OpInstanceOf:         op.TestInstanceOf,
	OpIn:                 op.TestIn,
}
