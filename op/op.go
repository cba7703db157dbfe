// Package op defines the opcodes and operand schema used by the register
// bytecode assembler.
//
// Every opcode has a fixed list of operand kinds. The width of a scalable
// operand (registers, immediates, constant pool indices, register counts) is
// chosen per instruction; a Wide or ExtraWide prefix scales all scalable
// operands of the instruction that follows it.
package op

import "strings"

// Code is a single-byte opcode.
type Code uint8

const (
	// Prefixes
	Wide Code = iota
	ExtraWide

	// Accumulator loads
	LdaZero
	LdaSmi
	LdaUndefined
	LdaNull
	LdaTheHole
	LdaTrue
	LdaFalse
	LdaConstant

	// Globals
	LdaGlobal
	LdaGlobalInsideTypeof
	StaGlobalSloppy
	StaGlobalStrict

	// Contexts
	PushContext
	PopContext
	LdaContextSlot
	LdaImmutableContextSlot
	StaContextSlot
	LdaModuleVariable
	StaModuleVariable

	// Lookup slots
	LdaLookupSlot
	LdaLookupSlotInsideTypeof
	StaLookupSlot

	// Register transfers
	Ldar
	Star
	Mov

	// Properties
	LdaNamedProperty
	LdaKeyedProperty
	StaNamedProperty
	StaNamedOwnProperty
	StaKeyedProperty
	StaDataPropertyInLiteral
	DeletePropertyStrict
	DeletePropertySloppy

	// Binary operators
	Add
	Sub
	Mul
	Div
	Mod
	BitwiseOr
	BitwiseXor
	BitwiseAnd
	ShiftLeft
	ShiftRight
	ShiftRightLogical

	// Binary operators with an immediate operand
	AddSmi
	SubSmi
	MulSmi
	DivSmi
	ModSmi
	BitwiseOrSmi
	BitwiseXorSmi
	BitwiseAndSmi
	ShiftLeftSmi
	ShiftRightSmi
	ShiftRightLogicalSmi

	// Unary operators
	Inc
	Dec
	ToBooleanLogicalNot
	LogicalNot
	TypeOf
	GetSuperConstructor

	// Calls
	CallAnyReceiver
	CallProperty
	CallUndefinedReceiver
	CallWithSpread
	CallRuntime
	CallRuntimeForPair
	CallJSRuntime
	Construct
	ConstructWithSpread

	// Tests
	TestEqual
	TestEqualStrict
	TestLessThan
	TestGreaterThan
	TestLessThanOrEqual
	TestGreaterThanOrEqual
	TestInstanceOf
	TestIn
	TestUndetectable
	TestNull
	TestUndefined
	TestTypeOf

	// Conversions
	ToName
	ToNumber
	ToObject
	ToPrimitiveToString
	StringConcat

	// Literals
	CreateRegExpLiteral
	CreateArrayLiteral
	CreateObjectLiteral

	// Closures and contexts
	CreateClosure
	CreateBlockContext
	CreateCatchContext
	CreateFunctionContext
	CreateEvalContext
	CreateWithContext
	CreateMappedArguments
	CreateUnmappedArguments
	CreateRestParameter

	// Jumps with an immediate displacement
	JumpLoop
	Jump
	JumpIfToBooleanTrue
	JumpIfToBooleanFalse
	JumpIfTrue
	JumpIfFalse
	JumpIfNull
	JumpIfNotNull
	JumpIfUndefined
	JumpIfNotUndefined
	JumpIfJSReceiver
	JumpIfNotHole

	// Jumps with a constant pool displacement
	JumpConstant
	JumpIfToBooleanTrueConstant
	JumpIfToBooleanFalseConstant
	JumpIfTrueConstant
	JumpIfFalseConstant
	JumpIfNullConstant
	JumpIfNotNullConstant
	JumpIfUndefinedConstant
	JumpIfNotUndefinedConstant
	JumpIfJSReceiverConstant
	JumpIfNotHoleConstant

	// Switch
	SwitchOnSmiNoFeedback

	// For-in
	ForInPrepare
	ForInContinue
	ForInNext
	ForInStep

	// Control
	StackCheck
	SetPendingMessage
	Throw
	ReThrow
	Return
	ThrowReferenceErrorIfHole
	ThrowSuperNotCalledIfHole
	ThrowSuperAlreadyCalledIfNotHole

	// Generators
	SuspendGenerator
	RestoreGeneratorState
	RestoreGeneratorRegisters

	// Debugging and profiling
	Debugger
	IncBlockCounter
	CollectTypeProfile

	Nop
	Illegal

	codeCount
)

// AccumulatorUse describes how an opcode interacts with the accumulator.
type AccumulatorUse uint8

const (
	AccNone      AccumulatorUse = 0
	AccRead      AccumulatorUse = 1 << 0
	AccWrite     AccumulatorUse = 1 << 1
	AccReadWrite                = AccRead | AccWrite
)

// Reads returns true if the accumulator is an input.
func (a AccumulatorUse) Reads() bool { return a&AccRead != 0 }

// Writes returns true if the accumulator is an output.
func (a AccumulatorUse) Writes() bool { return a&AccWrite != 0 }

// Flags classify opcodes for the assembler, the peephole rules and the
// position filter.
type Flags uint16

const (
	FlagJump Flags = 1 << iota
	FlagJumpConstant
	FlagConditional
	FlagToBoolean
	FlagSwitch
	FlagPrefix
	FlagAccumulatorLoad // loads the accumulator without any other effect
	FlagRegisterLoad    // moves a register without any other effect
	FlagCompareNoEffect
	FlagReturns
	FlagThrows
)

// Info contains information about an opcode.
type Info struct {
	Code        Code
	Name        string
	Accumulator AccumulatorUse
	Operands    []OperandType
	Flags       Flags
}

// OperandCount returns the number of operands of the opcode.
func (i Info) OperandCount() int {
	return len(i.Operands)
}

// Has returns true if all of the given flags are set.
func (i Info) Has(f Flags) bool {
	return i.Flags&f == f
}

var (
	infos        = make([]Info, 256)
	names        = map[string]Code{}
	jumpConstant = map[Code]Code{}
)

func init() {
	const (
		reg      = OperandReg
		regList  = OperandRegList
		regPair  = OperandRegPair
		out      = OperandRegOut
		outList  = OperandRegOutList
		outPair  = OperandRegOutPair
		outTrip  = OperandRegOutTriple
		count    = OperandRegCount
		imm      = OperandImm
		uimm     = OperandUImm
		idx      = OperandIdx
		runtime  = OperandRuntimeID
		flag8    = OperandFlag8
		none     = AccNone
		read     = AccRead
		write    = AccWrite
		rw       = AccReadWrite
		jump     = FlagJump
		cond     = FlagJump | FlagConditional
		toBool   = FlagJump | FlagConditional | FlagToBoolean
		constant = FlagJumpConstant
	)
	type opInfo struct {
		op       Code
		name     string
		acc      AccumulatorUse
		operands []OperandType
		flags    Flags
	}
	ops := []opInfo{
		{Wide, "Wide", none, nil, FlagPrefix},
		{ExtraWide, "ExtraWide", none, nil, FlagPrefix},

		{LdaZero, "LdaZero", write, nil, FlagAccumulatorLoad},
		{LdaSmi, "LdaSmi", write, []OperandType{imm}, FlagAccumulatorLoad},
		{LdaUndefined, "LdaUndefined", write, nil, FlagAccumulatorLoad},
		{LdaNull, "LdaNull", write, nil, FlagAccumulatorLoad},
		{LdaTheHole, "LdaTheHole", write, nil, FlagAccumulatorLoad},
		{LdaTrue, "LdaTrue", write, nil, FlagAccumulatorLoad},
		{LdaFalse, "LdaFalse", write, nil, FlagAccumulatorLoad},
		{LdaConstant, "LdaConstant", write, []OperandType{idx}, FlagAccumulatorLoad},

		{LdaGlobal, "LdaGlobal", write, []OperandType{idx, idx}, 0},
		{LdaGlobalInsideTypeof, "LdaGlobalInsideTypeof", write, []OperandType{idx, idx}, 0},
		{StaGlobalSloppy, "StaGlobalSloppy", read, []OperandType{idx, idx}, 0},
		{StaGlobalStrict, "StaGlobalStrict", read, []OperandType{idx, idx}, 0},

		{PushContext, "PushContext", read, []OperandType{out}, FlagRegisterLoad},
		{PopContext, "PopContext", none, []OperandType{reg}, FlagRegisterLoad},
		{LdaContextSlot, "LdaContextSlot", write, []OperandType{reg, idx, uimm}, 0},
		{LdaImmutableContextSlot, "LdaImmutableContextSlot", write, []OperandType{reg, idx, uimm}, 0},
		{StaContextSlot, "StaContextSlot", read, []OperandType{reg, idx, uimm}, 0},
		{LdaModuleVariable, "LdaModuleVariable", write, []OperandType{imm, uimm}, 0},
		{StaModuleVariable, "StaModuleVariable", read, []OperandType{imm, uimm}, 0},

		{LdaLookupSlot, "LdaLookupSlot", write, []OperandType{idx}, 0},
		{LdaLookupSlotInsideTypeof, "LdaLookupSlotInsideTypeof", write, []OperandType{idx}, 0},
		{StaLookupSlot, "StaLookupSlot", rw, []OperandType{idx, flag8}, 0},

		{Ldar, "Ldar", write, []OperandType{reg}, FlagAccumulatorLoad},
		{Star, "Star", read, []OperandType{out}, FlagRegisterLoad},
		{Mov, "Mov", none, []OperandType{reg, out}, FlagRegisterLoad},

		{LdaNamedProperty, "LdaNamedProperty", write, []OperandType{reg, idx, idx}, 0},
		{LdaKeyedProperty, "LdaKeyedProperty", rw, []OperandType{reg, idx}, 0},
		{StaNamedProperty, "StaNamedProperty", read, []OperandType{reg, idx, idx}, 0},
		{StaNamedOwnProperty, "StaNamedOwnProperty", read, []OperandType{reg, idx, idx}, 0},
		{StaKeyedProperty, "StaKeyedProperty", read, []OperandType{reg, reg, idx}, 0},
		{StaDataPropertyInLiteral, "StaDataPropertyInLiteral", read, []OperandType{reg, reg, flag8, idx}, 0},
		{DeletePropertyStrict, "DeletePropertyStrict", rw, []OperandType{reg}, 0},
		{DeletePropertySloppy, "DeletePropertySloppy", rw, []OperandType{reg}, 0},

		{Add, "Add", rw, []OperandType{reg, idx}, 0},
		{Sub, "Sub", rw, []OperandType{reg, idx}, 0},
		{Mul, "Mul", rw, []OperandType{reg, idx}, 0},
		{Div, "Div", rw, []OperandType{reg, idx}, 0},
		{Mod, "Mod", rw, []OperandType{reg, idx}, 0},
		{BitwiseOr, "BitwiseOr", rw, []OperandType{reg, idx}, 0},
		{BitwiseXor, "BitwiseXor", rw, []OperandType{reg, idx}, 0},
		{BitwiseAnd, "BitwiseAnd", rw, []OperandType{reg, idx}, 0},
		{ShiftLeft, "ShiftLeft", rw, []OperandType{reg, idx}, 0},
		{ShiftRight, "ShiftRight", rw, []OperandType{reg, idx}, 0},
		{ShiftRightLogical, "ShiftRightLogical", rw, []OperandType{reg, idx}, 0},

		{AddSmi, "AddSmi", rw, []OperandType{imm, idx}, 0},
		{SubSmi, "SubSmi", rw, []OperandType{imm, idx}, 0},
		{MulSmi, "MulSmi", rw, []OperandType{imm, idx}, 0},
		{DivSmi, "DivSmi", rw, []OperandType{imm, idx}, 0},
		{ModSmi, "ModSmi", rw, []OperandType{imm, idx}, 0},
		{BitwiseOrSmi, "BitwiseOrSmi", rw, []OperandType{imm, idx}, 0},
		{BitwiseXorSmi, "BitwiseXorSmi", rw, []OperandType{imm, idx}, 0},
		{BitwiseAndSmi, "BitwiseAndSmi", rw, []OperandType{imm, idx}, 0},
		{ShiftLeftSmi, "ShiftLeftSmi", rw, []OperandType{imm, idx}, 0},
		{ShiftRightSmi, "ShiftRightSmi", rw, []OperandType{imm, idx}, 0},
		{ShiftRightLogicalSmi, "ShiftRightLogicalSmi", rw, []OperandType{imm, idx}, 0},

		{Inc, "Inc", rw, []OperandType{idx}, 0},
		{Dec, "Dec", rw, []OperandType{idx}, 0},
		{ToBooleanLogicalNot, "ToBooleanLogicalNot", rw, nil, 0},
		{LogicalNot, "LogicalNot", rw, nil, 0},
		{TypeOf, "TypeOf", rw, nil, 0},
		{GetSuperConstructor, "GetSuperConstructor", read, []OperandType{out}, 0},

		{CallAnyReceiver, "CallAnyReceiver", write, []OperandType{reg, regList, count, idx}, 0},
		{CallProperty, "CallProperty", write, []OperandType{reg, regList, count, idx}, 0},
		{CallUndefinedReceiver, "CallUndefinedReceiver", write, []OperandType{reg, regList, count, idx}, 0},
		{CallWithSpread, "CallWithSpread", write, []OperandType{reg, regList, count}, 0},
		{CallRuntime, "CallRuntime", write, []OperandType{runtime, regList, count}, 0},
		{CallRuntimeForPair, "CallRuntimeForPair", none, []OperandType{runtime, regList, count, outPair}, 0},
		{CallJSRuntime, "CallJSRuntime", write, []OperandType{idx, regList, count}, 0},
		{Construct, "Construct", rw, []OperandType{reg, regList, count, idx}, 0},
		{ConstructWithSpread, "ConstructWithSpread", rw, []OperandType{reg, regList, count}, 0},

		{TestEqual, "TestEqual", rw, []OperandType{reg, idx}, 0},
		{TestEqualStrict, "TestEqualStrict", rw, []OperandType{reg, idx}, 0},
		{TestLessThan, "TestLessThan", rw, []OperandType{reg, idx}, 0},
		{TestGreaterThan, "TestGreaterThan", rw, []OperandType{reg, idx}, 0},
		{TestLessThanOrEqual, "TestLessThanOrEqual", rw, []OperandType{reg, idx}, 0},
		{TestGreaterThanOrEqual, "TestGreaterThanOrEqual", rw, []OperandType{reg, idx}, 0},
		{TestInstanceOf, "TestInstanceOf", rw, []OperandType{reg}, 0},
		{TestIn, "TestIn", rw, []OperandType{reg}, 0},
		{TestUndetectable, "TestUndetectable", rw, nil, FlagCompareNoEffect},
		{TestNull, "TestNull", rw, nil, FlagCompareNoEffect},
		{TestUndefined, "TestUndefined", rw, nil, FlagCompareNoEffect},
		{TestTypeOf, "TestTypeOf", rw, []OperandType{flag8}, FlagCompareNoEffect},

		{ToName, "ToName", read, []OperandType{out}, 0},
		{ToNumber, "ToNumber", read, []OperandType{out, idx}, 0},
		{ToObject, "ToObject", read, []OperandType{out}, 0},
		{ToPrimitiveToString, "ToPrimitiveToString", read, []OperandType{out, idx}, 0},
		{StringConcat, "StringConcat", write, []OperandType{regList, count}, 0},

		{CreateRegExpLiteral, "CreateRegExpLiteral", write, []OperandType{idx, idx, flag8}, 0},
		{CreateArrayLiteral, "CreateArrayLiteral", write, []OperandType{idx, idx, flag8}, 0},
		{CreateObjectLiteral, "CreateObjectLiteral", none, []OperandType{idx, idx, flag8, out}, 0},

		{CreateClosure, "CreateClosure", write, []OperandType{idx, idx, flag8}, 0},
		{CreateBlockContext, "CreateBlockContext", rw, []OperandType{idx}, 0},
		{CreateCatchContext, "CreateCatchContext", rw, []OperandType{reg, idx, idx}, 0},
		{CreateFunctionContext, "CreateFunctionContext", write, []OperandType{uimm}, 0},
		{CreateEvalContext, "CreateEvalContext", write, []OperandType{uimm}, 0},
		{CreateWithContext, "CreateWithContext", rw, []OperandType{reg, idx}, 0},
		{CreateMappedArguments, "CreateMappedArguments", write, nil, 0},
		{CreateUnmappedArguments, "CreateUnmappedArguments", write, nil, 0},
		{CreateRestParameter, "CreateRestParameter", write, nil, 0},

		{JumpLoop, "JumpLoop", none, []OperandType{imm, imm}, jump},
		{Jump, "Jump", none, []OperandType{imm}, jump},
		{JumpIfToBooleanTrue, "JumpIfToBooleanTrue", read, []OperandType{imm}, toBool},
		{JumpIfToBooleanFalse, "JumpIfToBooleanFalse", read, []OperandType{imm}, toBool},
		{JumpIfTrue, "JumpIfTrue", read, []OperandType{imm}, cond},
		{JumpIfFalse, "JumpIfFalse", read, []OperandType{imm}, cond},
		{JumpIfNull, "JumpIfNull", read, []OperandType{imm}, cond},
		{JumpIfNotNull, "JumpIfNotNull", read, []OperandType{imm}, cond},
		{JumpIfUndefined, "JumpIfUndefined", read, []OperandType{imm}, cond},
		{JumpIfNotUndefined, "JumpIfNotUndefined", read, []OperandType{imm}, cond},
		{JumpIfJSReceiver, "JumpIfJSReceiver", read, []OperandType{imm}, cond},
		{JumpIfNotHole, "JumpIfNotHole", read, []OperandType{imm}, cond},

		{JumpConstant, "JumpConstant", none, []OperandType{idx}, jump | constant},
		{JumpIfToBooleanTrueConstant, "JumpIfToBooleanTrueConstant", read, []OperandType{idx}, toBool | constant},
		{JumpIfToBooleanFalseConstant, "JumpIfToBooleanFalseConstant", read, []OperandType{idx}, toBool | constant},
		{JumpIfTrueConstant, "JumpIfTrueConstant", read, []OperandType{idx}, cond | constant},
		{JumpIfFalseConstant, "JumpIfFalseConstant", read, []OperandType{idx}, cond | constant},
		{JumpIfNullConstant, "JumpIfNullConstant", read, []OperandType{idx}, cond | constant},
		{JumpIfNotNullConstant, "JumpIfNotNullConstant", read, []OperandType{idx}, cond | constant},
		{JumpIfUndefinedConstant, "JumpIfUndefinedConstant", read, []OperandType{idx}, cond | constant},
		{JumpIfNotUndefinedConstant, "JumpIfNotUndefinedConstant", read, []OperandType{idx}, cond | constant},
		{JumpIfJSReceiverConstant, "JumpIfJSReceiverConstant", read, []OperandType{idx}, cond | constant},
		{JumpIfNotHoleConstant, "JumpIfNotHoleConstant", read, []OperandType{idx}, cond | constant},

		{SwitchOnSmiNoFeedback, "SwitchOnSmiNoFeedback", read, []OperandType{idx, uimm, imm}, FlagSwitch},

		{ForInPrepare, "ForInPrepare", none, []OperandType{reg, outTrip}, 0},
		{ForInContinue, "ForInContinue", write, []OperandType{reg, reg}, 0},
		{ForInNext, "ForInNext", write, []OperandType{reg, reg, regPair, idx}, 0},
		{ForInStep, "ForInStep", write, []OperandType{reg}, 0},

		{StackCheck, "StackCheck", none, nil, 0},
		{SetPendingMessage, "SetPendingMessage", rw, nil, 0},
		{Throw, "Throw", read, nil, FlagThrows},
		{ReThrow, "ReThrow", read, nil, FlagThrows},
		{Return, "Return", read, nil, FlagReturns},
		{ThrowReferenceErrorIfHole, "ThrowReferenceErrorIfHole", read, []OperandType{idx}, 0},
		{ThrowSuperNotCalledIfHole, "ThrowSuperNotCalledIfHole", read, nil, 0},
		{ThrowSuperAlreadyCalledIfNotHole, "ThrowSuperAlreadyCalledIfNotHole", read, nil, 0},

		{SuspendGenerator, "SuspendGenerator", read, []OperandType{reg, regList, count, flag8}, 0},
		{RestoreGeneratorState, "RestoreGeneratorState", write, []OperandType{reg}, 0},
		{RestoreGeneratorRegisters, "RestoreGeneratorRegisters", none, []OperandType{reg, outList, count}, 0},

		{Debugger, "Debugger", none, nil, 0},
		{IncBlockCounter, "IncBlockCounter", none, []OperandType{idx}, 0},
		{CollectTypeProfile, "CollectTypeProfile", read, []OperandType{imm}, 0},

		{Nop, "Nop", none, nil, 0},
		{Illegal, "Illegal", none, nil, 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:        o.op,
			Name:        o.name,
			Accumulator: o.acc,
			Operands:    o.operands,
			Flags:       o.flags,
		}
		names[strings.ToLower(o.name)] = o.op
	}
	pairs := [][2]Code{
		{Jump, JumpConstant},
		{JumpIfToBooleanTrue, JumpIfToBooleanTrueConstant},
		{JumpIfToBooleanFalse, JumpIfToBooleanFalseConstant},
		{JumpIfTrue, JumpIfTrueConstant},
		{JumpIfFalse, JumpIfFalseConstant},
		{JumpIfNull, JumpIfNullConstant},
		{JumpIfNotNull, JumpIfNotNullConstant},
		{JumpIfUndefined, JumpIfUndefinedConstant},
		{JumpIfNotUndefined, JumpIfNotUndefinedConstant},
		{JumpIfJSReceiver, JumpIfJSReceiverConstant},
		{JumpIfNotHole, JumpIfNotHoleConstant},
	}
	for _, p := range pairs {
		jumpConstant[p[0]] = p[1]
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

// Lookup returns the opcode with the given name. The match is case
// insensitive.
func Lookup(name string) (Code, bool) {
	code, ok := names[strings.ToLower(name)]
	return code, ok
}

// Names returns the names of all defined opcodes in opcode order.
func Names() []string {
	var names []string
	for c := Code(0); c < codeCount; c++ {
		if name := infos[c].Name; name != "" {
			names = append(names, name)
		}
	}
	return names
}

// IsValid returns true if the byte is a defined opcode.
func IsValid(b byte) bool {
	return Code(b) < codeCount && infos[b].Name != ""
}

// String returns the opcode name.
func (c Code) String() string {
	if name := infos[c].Name; name != "" {
		return name
	}
	return "Unknown"
}

// IsJump returns true for every jump opcode, immediate or constant.
func IsJump(c Code) bool {
	return infos[c].Flags&(FlagJump|FlagJumpConstant) != 0
}

// IsJumpConstant returns true if the jump displacement lives in the
// constant pool.
func IsJumpConstant(c Code) bool {
	return infos[c].Has(FlagJumpConstant)
}

// IsForwardJump returns true for jumps that may target an unbound label.
func IsForwardJump(c Code) bool {
	return IsJump(c) && c != JumpLoop
}

// IsConditionalJump returns true if the jump depends on the accumulator.
func IsConditionalJump(c Code) bool {
	return infos[c].Has(FlagConditional)
}

// IsJumpIfToBoolean returns true for jumps that convert the accumulator
// to a boolean, which may call user code.
func IsJumpIfToBoolean(c Code) bool {
	return infos[c].Has(FlagToBoolean)
}

// IsSwitch returns true for jump table dispatch opcodes.
func IsSwitch(c Code) bool {
	return infos[c].Has(FlagSwitch)
}

// IsPrefix returns true for operand scaling prefixes.
func IsPrefix(c Code) bool {
	return infos[c].Has(FlagPrefix)
}

// IsAccumulatorLoadWithoutEffects returns true if the opcode only writes
// the accumulator.
func IsAccumulatorLoadWithoutEffects(c Code) bool {
	return infos[c].Has(FlagAccumulatorLoad)
}

// IsRegisterLoadWithoutEffects returns true if the opcode only writes a
// register.
func IsRegisterLoadWithoutEffects(c Code) bool {
	return infos[c].Has(FlagRegisterLoad)
}

// IsWithoutExternalSideEffects returns true if the opcode cannot call user
// code or throw.
func IsWithoutExternalSideEffects(c Code) bool {
	info := infos[c]
	if info.Flags&(FlagAccumulatorLoad|FlagRegisterLoad|FlagCompareNoEffect|FlagSwitch) != 0 {
		return true
	}
	return IsJump(c) && !IsJumpIfToBoolean(c)
}

// Returns returns true if the opcode returns from the function.
func Returns(c Code) bool {
	return infos[c].Has(FlagReturns)
}

// UnconditionallyThrows returns true if the opcode always throws.
func UnconditionallyThrows(c Code) bool {
	return infos[c].Has(FlagThrows)
}

// EndsBlock returns true if control never falls through the opcode.
func EndsBlock(c Code) bool {
	return Returns(c) || UnconditionallyThrows(c) || c == Jump || c == JumpConstant
}

// JumpWithConstantOperand returns the constant pool variant of an
// immediate jump.
func JumpWithConstantOperand(c Code) (Code, bool) {
	jc, ok := jumpConstant[c]
	return jc, ok
}

