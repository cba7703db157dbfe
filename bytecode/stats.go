package bytecode

// Stats contains statistics about an assembled Program.
type Stats struct {
	// ByteLength is the size of the instruction stream in bytes.
	ByteLength int

	// InstructionCount is the number of decoded instructions.
	InstructionCount int

	// PrefixedCount is the number of instructions with a Wide or
	// ExtraWide prefix.
	PrefixedCount int

	// ConstantCount is the length of the constant pool, holes included.
	ConstantCount int

	// HandlerCount is the number of exception handlers.
	HandlerCount int

	// FrameSize is the number of locals plus the peak number of
	// temporaries.
	FrameSize int

	// FunctionCount is the number of function templates in the pool.
	FunctionCount int
}
