// Package bytecode holds assembled programs and decodes their instruction
// streams.
//
// A [Program] is the frozen result of one builder: the encoded
// instructions of a single function, its constant pool, its exception
// handler table, its source positions and its frame layout. Nothing in a
// Program changes after construction, so it may be read from many
// goroutines at once. [NewProgram] copies the slices it is given and the
// accessors hand out copies or single elements:
//
//	p.ByteAt(0)
//	p.ConstantAt(i)
//	p.HandlerAt(j)
//
// Nested functions are stored in the pool as [Function] templates that
// point at their own Program.
//
// # Encoding
//
// An instruction is an optional Wide or ExtraWide prefix, the opcode byte
// and its operands, little endian. A jump displacement is measured from the
// first byte of the jump including any prefix; constant jumps and jump
// tables keep the same displacement in the pool.
//
// [InstructionIter] walks a stream one [Instruction] at a time:
//
//	it := bytecode.NewInstructionIter(p)
//	for in, ok := it.Next(); ok; in, ok = it.Next() {
//		fmt.Println(in.Offset, in.Code, in.Operands)
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
package bytecode
