package builder

import (
	"math"

	"github.com/risor-io/regasm/asm"
	"github.com/risor-io/regasm/constpool"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
)

// listOperands returns the encoded base and length of l. Empty lists are
// encoded with base zero.
func listOperands(l register.List) (int64, int64) {
	if l.Count() == 0 {
		return 0, 0
	}
	return int64(l.First()), int64(l.Count())
}

func checkListLength(l register.List, want int, what string) {
	if l.Count() != want {
		errz.Panicf(errz.E5009, "%s needs %d registers, got %s", what, want, l)
	}
}

// Constant loads

// LoadConstantPoolEntry loads constant pool entry into the accumulator.
func (b *Builder) LoadConstantPoolEntry(entry int) *Builder {
	return b.output(op.LdaConstant, int64(entry))
}

// LoadLiteralSmi loads a small integer.
func (b *Builder) LoadLiteralSmi(v int) *Builder {
	if v == 0 {
		return b.output(op.LdaZero)
	}
	return b.output(op.LdaSmi, int64(v))
}

// LoadLiteralNumber loads a number, as a small integer when it is one.
func (b *Builder) LoadLiteralNumber(v float64) *Builder {
	if v >= math.MinInt32 && v <= math.MaxInt32 && v == math.Trunc(v) && !(v == 0 && math.Signbit(v)) {
		return b.LoadLiteralSmi(int(v))
	}
	return b.LoadConstantPoolEntry(b.ConstantPoolEntry(v))
}

// LoadLiteralString loads a string constant.
func (b *Builder) LoadLiteralString(s string) *Builder {
	return b.LoadConstantPoolEntry(b.ConstantPoolEntry(s))
}

// LoadLiteral loads v using the shortest instruction for its type. Values
// without a dedicated load go through the constant pool.
func (b *Builder) LoadLiteral(v any) *Builder {
	switch x := v.(type) {
	case nil:
		return b.LoadNull()
	case bool:
		return b.LoadBoolean(x)
	case int:
		return b.loadInteger(int64(x))
	case int32:
		return b.loadInteger(int64(x))
	case int64:
		return b.loadInteger(x)
	case float32:
		return b.LoadLiteralNumber(float64(x))
	case float64:
		return b.LoadLiteralNumber(x)
	case string:
		return b.LoadLiteralString(x)
	case constpool.HoleValue:
		return b.LoadTheHole()
	}
	return b.LoadConstantPoolEntry(b.ConstantPoolEntry(v))
}

func (b *Builder) loadInteger(v int64) *Builder {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return b.LoadLiteralSmi(int(v))
	}
	return b.LoadConstantPoolEntry(b.ConstantPoolEntry(v))
}

// LoadUndefined loads undefined.
func (b *Builder) LoadUndefined() *Builder { return b.output(op.LdaUndefined) }

// LoadNull loads null.
func (b *Builder) LoadNull() *Builder { return b.output(op.LdaNull) }

// LoadTheHole loads the hole marker of uninitialized bindings.
func (b *Builder) LoadTheHole() *Builder { return b.output(op.LdaTheHole) }

// LoadTrue loads true.
func (b *Builder) LoadTrue() *Builder { return b.output(op.LdaTrue) }

// LoadFalse loads false.
func (b *Builder) LoadFalse() *Builder { return b.output(op.LdaFalse) }

// LoadBoolean loads v.
func (b *Builder) LoadBoolean(v bool) *Builder {
	if v {
		return b.LoadTrue()
	}
	return b.LoadFalse()
}

// Globals

// LoadGlobal loads the global name.
func (b *Builder) LoadGlobal(name string, slot int, mode TypeofMode) *Builder {
	index := b.ConstantPoolEntry(name)
	if mode == InsideTypeof {
		return b.output(op.LdaGlobalInsideTypeof, int64(index), int64(slot))
	}
	return b.output(op.LdaGlobal, int64(index), int64(slot))
}

// StoreGlobal stores the accumulator in the global name.
func (b *Builder) StoreGlobal(name string, slot int, mode LanguageMode) *Builder {
	index := b.ConstantPoolEntry(name)
	if mode == Strict {
		return b.output(op.StaGlobalStrict, int64(index), int64(slot))
	}
	return b.output(op.StaGlobalSloppy, int64(index), int64(slot))
}

// Contexts

// LoadContextSlot loads slot of the context depth levels up the chain
// starting at context.
func (b *Builder) LoadContextSlot(context register.Register, slot, depth int, mutability ContextSlotMutability) *Builder {
	code := op.LdaContextSlot
	if mutability == ImmutableSlot {
		code = op.LdaImmutableContextSlot
	}
	return b.output(code, int64(context), int64(slot), int64(depth))
}

// StoreContextSlot stores the accumulator in slot of the context depth
// levels up the chain starting at context.
func (b *Builder) StoreContextSlot(context register.Register, slot, depth int) *Builder {
	return b.output(op.StaContextSlot, int64(context), int64(slot), int64(depth))
}

// LoadModuleVariable loads a module cell. depth is the distance to the
// module context.
func (b *Builder) LoadModuleVariable(cell, depth int) *Builder {
	return b.output(op.LdaModuleVariable, int64(cell), int64(depth))
}

// StoreModuleVariable stores the accumulator in a module cell.
func (b *Builder) StoreModuleVariable(cell, depth int) *Builder {
	return b.output(op.StaModuleVariable, int64(cell), int64(depth))
}

// PushContext makes the context in the accumulator current and saves the
// previous one in context.
func (b *Builder) PushContext(context register.Register) *Builder {
	return b.output(op.PushContext, int64(context))
}

// PopContext restores context as the current context.
func (b *Builder) PopContext(context register.Register) *Builder {
	return b.output(op.PopContext, int64(context))
}

// CreateBlockContext creates a block context for scope, which is added to
// the constant pool.
func (b *Builder) CreateBlockContext(scope any) *Builder {
	return b.output(op.CreateBlockContext, int64(b.ConstantPoolEntry(scope)))
}

// CreateCatchContext creates the context of a catch block binding name to
// the exception.
func (b *Builder) CreateCatchContext(exception register.Register, name string, scope any) *Builder {
	nameIndex := b.ConstantPoolEntry(name)
	scopeIndex := b.ConstantPoolEntry(scope)
	return b.output(op.CreateCatchContext, int64(exception), int64(nameIndex), int64(scopeIndex))
}

// CreateFunctionContext creates a function context with slots slots.
func (b *Builder) CreateFunctionContext(slots int) *Builder {
	return b.output(op.CreateFunctionContext, int64(slots))
}

// CreateEvalContext creates an eval context with slots slots.
func (b *Builder) CreateEvalContext(slots int) *Builder {
	return b.output(op.CreateEvalContext, int64(slots))
}

// CreateWithContext creates the context of a with statement over object.
func (b *Builder) CreateWithContext(object register.Register, scope any) *Builder {
	return b.output(op.CreateWithContext, int64(object), int64(b.ConstantPoolEntry(scope)))
}

// Register transfers

// LoadAccumulatorWithRegister loads r into the accumulator.
func (b *Builder) LoadAccumulatorWithRegister(r register.Register) *Builder {
	if !b.ready() {
		return b
	}
	b.checkRegister(r)
	info := b.currentSourceInfo(op.Ldar)
	if b.optimizer != nil && !b.optimizer.DoLdar(r) {
		b.setDeferredSourceInfo(info)
		return b
	}
	b.write(asm.NewNode(op.Ldar, int64(r)).WithSource(info))
	return b
}

// StoreAccumulatorInRegister stores the accumulator in r.
func (b *Builder) StoreAccumulatorInRegister(r register.Register) *Builder {
	if !b.ready() {
		return b
	}
	b.checkRegister(r)
	info := b.currentSourceInfo(op.Star)
	if b.optimizer != nil && !b.optimizer.DoStar(r) {
		b.setDeferredSourceInfo(info)
		return b
	}
	b.write(asm.NewNode(op.Star, int64(r)).WithSource(info))
	return b
}

// MoveRegister copies from to to.
func (b *Builder) MoveRegister(from, to register.Register) *Builder {
	if !b.ready() {
		return b
	}
	b.checkRegister(from)
	b.checkRegister(to)
	info := b.currentSourceInfo(op.Mov)
	if b.optimizer != nil && !b.optimizer.DoMov(from, to) {
		b.setDeferredSourceInfo(info)
		return b
	}
	b.write(asm.NewNode(op.Mov, int64(from), int64(to)).WithSource(info))
	return b
}

// OutputLdarRaw writes an Ldar that is never elided.
func (b *Builder) OutputLdarRaw(r register.Register) *Builder {
	return b.raw(op.Ldar, int64(r))
}

// OutputStarRaw writes a Star that is never elided.
func (b *Builder) OutputStarRaw(r register.Register) *Builder {
	return b.raw(op.Star, int64(r))
}

// OutputMovRaw writes a Mov that is never elided.
func (b *Builder) OutputMovRaw(from, to register.Register) *Builder {
	return b.raw(op.Mov, int64(from), int64(to))
}

func (b *Builder) raw(code op.Code, operands ...int64) *Builder {
	if !b.ready() {
		return b
	}
	b.validate(code, operands)
	b.flush()
	node := asm.NewNode(code, operands...).WithSource(b.currentSourceInfo(code))
	b.attachOrEmitDeferred(&node)
	b.fail(b.writer.WriteRaw(node))
	return b
}

// Properties

// LoadNamedProperty loads property name of object.
func (b *Builder) LoadNamedProperty(object register.Register, name string, slot int) *Builder {
	return b.output(op.LdaNamedProperty, int64(object), int64(b.ConstantPoolEntry(name)), int64(slot))
}

// LoadKeyedProperty loads the property of object keyed by the accumulator.
func (b *Builder) LoadKeyedProperty(object register.Register, slot int) *Builder {
	return b.output(op.LdaKeyedProperty, int64(object), int64(slot))
}

// StoreNamedProperty stores the accumulator in property name of object.
func (b *Builder) StoreNamedProperty(object register.Register, name string, slot int) *Builder {
	return b.output(op.StaNamedProperty, int64(object), int64(b.ConstantPoolEntry(name)), int64(slot))
}

// StoreNamedOwnProperty defines own property name of object.
func (b *Builder) StoreNamedOwnProperty(object register.Register, name string, slot int) *Builder {
	return b.output(op.StaNamedOwnProperty, int64(object), int64(b.ConstantPoolEntry(name)), int64(slot))
}

// StoreKeyedProperty stores the accumulator in the property of object
// keyed by key.
func (b *Builder) StoreKeyedProperty(object, key register.Register, slot int) *Builder {
	return b.output(op.StaKeyedProperty, int64(object), int64(key), int64(slot))
}

// StoreDataPropertyInLiteral defines a computed property of an object
// literal.
func (b *Builder) StoreDataPropertyInLiteral(object, name register.Register, flags uint8, slot int) *Builder {
	return b.output(op.StaDataPropertyInLiteral, int64(object), int64(name), int64(flags), int64(slot))
}

// Delete deletes the property of object keyed by the accumulator.
func (b *Builder) Delete(object register.Register, mode LanguageMode) *Builder {
	if mode == Strict {
		return b.output(op.DeletePropertyStrict, int64(object))
	}
	return b.output(op.DeletePropertySloppy, int64(object))
}

// CollectTypeProfile records the type of the accumulator for position.
func (b *Builder) CollectTypeProfile(position int) *Builder {
	return b.output(op.CollectTypeProfile, int64(position))
}

// Lookup slots

// LoadLookupSlot loads a dynamically scoped variable.
func (b *Builder) LoadLookupSlot(name string, mode TypeofMode) *Builder {
	index := b.ConstantPoolEntry(name)
	if mode == InsideTypeof {
		return b.output(op.LdaLookupSlotInsideTypeof, int64(index))
	}
	return b.output(op.LdaLookupSlot, int64(index))
}

// StoreLookupSlot stores the accumulator in a dynamically scoped variable.
func (b *Builder) StoreLookupSlot(name string, mode LanguageMode, hoisting LookupHoistingMode) *Builder {
	flags := int64(mode) | int64(hoisting)<<1
	return b.output(op.StaLookupSlot, int64(b.ConstantPoolEntry(name)), flags)
}

// Closures and literals

// CreateClosure creates a closure from the function template at constant
// pool entry.
func (b *Builder) CreateClosure(entry, slot int, flags uint8) *Builder {
	return b.output(op.CreateClosure, int64(entry), int64(slot), int64(flags))
}

// CreateArguments creates an arguments object of the given kind.
func (b *Builder) CreateArguments(kind CreateArgumentsType) *Builder {
	switch kind {
	case MappedArguments:
		return b.output(op.CreateMappedArguments)
	case UnmappedArguments:
		return b.output(op.CreateUnmappedArguments)
	}
	return b.output(op.CreateRestParameter)
}

// CreateRegExpLiteral creates a regular expression from pattern.
func (b *Builder) CreateRegExpLiteral(pattern string, literal int, flags uint8) *Builder {
	return b.output(op.CreateRegExpLiteral, int64(b.ConstantPoolEntry(pattern)), int64(literal), int64(flags))
}

// CreateArrayLiteral creates an array from the boilerplate at constant
// pool entry.
func (b *Builder) CreateArrayLiteral(entry, literal int, flags uint8) *Builder {
	return b.output(op.CreateArrayLiteral, int64(entry), int64(literal), int64(flags))
}

// CreateObjectLiteral creates an object from the boilerplate at constant
// pool entry and stores it in out.
func (b *Builder) CreateObjectLiteral(entry, literal int, flags uint8, out register.Register) *Builder {
	return b.output(op.CreateObjectLiteral, int64(entry), int64(literal), int64(flags), int64(out))
}

// Calls

// CallProperty calls callable with the receiver in args[0].
func (b *Builder) CallProperty(callable register.Register, args register.List, slot int) *Builder {
	first, count := listOperands(args)
	return b.output(op.CallProperty, int64(callable), first, count, int64(slot))
}

// CallUndefinedReceiver calls callable with an undefined receiver.
func (b *Builder) CallUndefinedReceiver(callable register.Register, args register.List, slot int) *Builder {
	first, count := listOperands(args)
	return b.output(op.CallUndefinedReceiver, int64(callable), first, count, int64(slot))
}

// CallAnyReceiver calls callable with any receiver in args[0].
func (b *Builder) CallAnyReceiver(callable register.Register, args register.List, slot int) *Builder {
	first, count := listOperands(args)
	return b.output(op.CallAnyReceiver, int64(callable), first, count, int64(slot))
}

// CallWithSpread calls callable spreading its last argument.
func (b *Builder) CallWithSpread(callable register.Register, args register.List) *Builder {
	first, count := listOperands(args)
	return b.output(op.CallWithSpread, int64(callable), first, count)
}

// Construct calls constructor as a constructor. The accumulator holds the
// new target.
func (b *Builder) Construct(constructor register.Register, args register.List, slot int) *Builder {
	first, count := listOperands(args)
	return b.output(op.Construct, int64(constructor), first, count, int64(slot))
}

// ConstructWithSpread is Construct spreading the last argument.
func (b *Builder) ConstructWithSpread(constructor register.Register, args register.List) *Builder {
	first, count := listOperands(args)
	return b.output(op.ConstructWithSpread, int64(constructor), first, count)
}

// CallRuntime calls runtime function id.
func (b *Builder) CallRuntime(id int, args register.List) *Builder {
	first, count := listOperands(args)
	return b.output(op.CallRuntime, int64(id), first, count)
}

// CallRuntimeForPair calls runtime function id, which returns two values
// into pair.
func (b *Builder) CallRuntimeForPair(id int, args, pair register.List) *Builder {
	checkListLength(pair, 2, "CallRuntimeForPair result")
	first, count := listOperands(args)
	return b.output(op.CallRuntimeForPair, int64(id), first, count, int64(pair.First()))
}

// CallJSRuntime calls the function at index of the native context.
func (b *Builder) CallJSRuntime(index int, args register.List) *Builder {
	first, count := listOperands(args)
	return b.output(op.CallJSRuntime, int64(index), first, count)
}

// Operators

// BinaryOperation applies operator to reg and the accumulator.
func (b *Builder) BinaryOperation(operator Operator, reg register.Register, slot int) *Builder {
	code, ok := binaryOps[operator]
	if !ok {
		errz.Panicf(errz.E5009, "%s is not a binary operator", operator)
	}
	return b.output(code, int64(reg), int64(slot))
}

// BinaryOperationSmiLiteral applies operator to the accumulator and a
// small integer.
func (b *Builder) BinaryOperationSmiLiteral(operator Operator, literal int, slot int) *Builder {
	code, ok := smiOps[operator]
	if !ok {
		errz.Panicf(errz.E5009, "%s is not a binary operator", operator)
	}
	return b.output(code, int64(literal), int64(slot))
}

// CountOperation increments or decrements the accumulator.
func (b *Builder) CountOperation(operator Operator, slot int) *Builder {
	switch operator {
	case OpInc:
		return b.output(op.Inc, int64(slot))
	case OpDec:
		return b.output(op.Dec, int64(slot))
	}
	errz.Panicf(errz.E5009, "%s is not a count operator", operator)
	return b
}

// LogicalNot negates the accumulator.
func (b *Builder) LogicalNot(mode ToBooleanMode) *Builder {
	if mode == ConvertToBoolean {
		return b.output(op.ToBooleanLogicalNot)
	}
	return b.output(op.LogicalNot)
}

// TypeOf replaces the accumulator with its type name.
func (b *Builder) TypeOf() *Builder {
	return b.output(op.TypeOf)
}

// GetSuperConstructor stores the super constructor of the accumulator in
// out.
func (b *Builder) GetSuperConstructor(out register.Register) *Builder {
	return b.output(op.GetSuperConstructor, int64(out))
}

// CompareOperation compares reg with the accumulator. The slot is ignored
// by instanceof and in.
func (b *Builder) CompareOperation(operator Operator, reg register.Register, slot int) *Builder {
	code, ok := compareOps[operator]
	if !ok {
		errz.Panicf(errz.E5009, "%s is not a comparison operator", operator)
	}
	if code == op.TestInstanceOf || code == op.TestIn {
		return b.output(code, int64(reg))
	}
	return b.output(code, int64(reg), int64(slot))
}

// CompareUndetectable tests whether the accumulator is null, undefined or
// an undetectable object.
func (b *Builder) CompareUndetectable() *Builder { return b.output(op.TestUndetectable) }

// CompareUndefined tests whether the accumulator is undefined.
func (b *Builder) CompareUndefined() *Builder { return b.output(op.TestUndefined) }

// CompareNull tests whether the accumulator is null.
func (b *Builder) CompareNull() *Builder { return b.output(op.TestNull) }

// CompareNil compares the accumulator with null or undefined. Sloppy
// equality matches both.
func (b *Builder) CompareNil(operator Operator, value NilValue) *Builder {
	switch operator {
	case OpEqStrict:
		if value == NullValue {
			return b.CompareNull()
		}
		return b.CompareUndefined()
	case OpEq:
		return b.CompareUndetectable()
	}
	errz.Panicf(errz.E5009, "%s cannot compare with nil", operator)
	return b
}

// CompareTypeOf tests whether the type name of the accumulator is literal.
func (b *Builder) CompareTypeOf(literal TypeofLiteral) *Builder {
	return b.output(op.TestTypeOf, int64(literal))
}

// ToObject converts the accumulator and stores the result in out.
func (b *Builder) ToObject(out register.Register) *Builder {
	return b.output(op.ToObject, int64(out))
}

// ToName converts the accumulator to a property key stored in out.
func (b *Builder) ToName(out register.Register) *Builder {
	return b.output(op.ToName, int64(out))
}

// ToNumber converts the accumulator to a number stored in out.
func (b *Builder) ToNumber(out register.Register, slot int) *Builder {
	return b.output(op.ToNumber, int64(out), int64(slot))
}

// ToPrimitiveToString converts the accumulator to a string stored in out.
func (b *Builder) ToPrimitiveToString(out register.Register, slot int) *Builder {
	return b.output(op.ToPrimitiveToString, int64(out), int64(slot))
}

// StringConcat concatenates the strings in operands into the accumulator.
func (b *Builder) StringConcat(operands register.List) *Builder {
	first, count := listOperands(operands)
	return b.output(op.StringConcat, first, count)
}
