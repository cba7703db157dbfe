package bytecode

import (
	"slices"

	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/srcpos"
)

// Program is an assembled function body. It is immutable after creation
// and safe for concurrent use.
type Program struct {
	id             string
	name           string
	code           []byte
	constants      []any
	handlers       []handler.Entry
	positions      []srcpos.Entry
	positionTable  []byte
	parameterCount int
	localCount     int
	frameSize      int
}

// ProgramParams contains parameters for creating a new Program.
type ProgramParams struct {
	ID             string
	Name           string
	Code           []byte
	Constants      []any
	Handlers       []handler.Entry
	Positions      []srcpos.Entry
	ParameterCount int
	LocalCount     int
	FrameSize      int
}

// NewProgram creates a new immutable Program from the given parameters.
// Input slices are copied to ensure immutability. The encoded position
// table is derived from Positions.
func NewProgram(params ProgramParams) *Program {
	frameSize := params.FrameSize
	if frameSize < params.LocalCount {
		frameSize = params.LocalCount
	}
	return &Program{
		id:             params.ID,
		name:           params.Name,
		code:           slices.Clone(params.Code),
		constants:      slices.Clone(params.Constants),
		handlers:       slices.Clone(params.Handlers),
		positions:      slices.Clone(params.Positions),
		positionTable:  srcpos.Encode(params.Positions),
		parameterCount: params.ParameterCount,
		localCount:     params.LocalCount,
		frameSize:      frameSize,
	}
}

// ID returns the unique identifier for this program.
func (p *Program) ID() string {
	return p.id
}

// Name returns the name of this program.
func (p *Program) Name() string {
	return p.name
}

// Length returns the size of the instruction stream in bytes.
func (p *Program) Length() int {
	return len(p.code)
}

// ByteAt returns the instruction byte at the given offset.
func (p *Program) ByteAt(offset int) byte {
	return p.code[offset]
}

// Bytes returns a copy of the instruction stream.
func (p *Program) Bytes() []byte {
	return slices.Clone(p.code)
}

// ConstantCount returns the length of the constant pool.
func (p *Program) ConstantCount() int {
	return len(p.constants)
}

// ConstantAt returns the constant at the given index.
func (p *Program) ConstantAt(index int) any {
	return p.constants[index]
}

// HandlerCount returns the number of exception handlers.
func (p *Program) HandlerCount() int {
	return len(p.handlers)
}

// HandlerAt returns the exception handler at the given index. Handlers are
// ordered by the start of their try region.
func (p *Program) HandlerAt(index int) handler.Entry {
	return p.handlers[index]
}

// PositionCount returns the number of source position entries.
func (p *Program) PositionCount() int {
	return len(p.positions)
}

// PositionAt returns the source position entry at the given index.
func (p *Program) PositionAt(index int) srcpos.Entry {
	return p.positions[index]
}

// SourcePositionAt returns the source position that applies to the
// instruction at the given offset.
func (p *Program) SourcePositionAt(offset int) (srcpos.Entry, bool) {
	return srcpos.Lookup(p.positions, offset)
}

// PositionTable returns a copy of the encoded source position table.
func (p *Program) PositionTable() []byte {
	return slices.Clone(p.positionTable)
}

// ParameterCount returns the number of parameters.
func (p *Program) ParameterCount() int {
	return p.parameterCount
}

// LocalCount returns the number of fixed locals.
func (p *Program) LocalCount() int {
	return p.localCount
}

// FrameSize returns the number of locals plus the peak number of
// temporaries.
func (p *Program) FrameSize() int {
	return p.frameSize
}

// Parameter returns the register of parameter i.
func (p *Program) Parameter(i int) register.Register {
	return register.FromParameterIndex(i, p.parameterCount)
}

// Functions returns the function templates in the constant pool, in index
// order.
func (p *Program) Functions() []*Function {
	var fns []*Function
	for _, c := range p.constants {
		if fn, ok := c.(*Function); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Flatten returns this program and the programs of all nested function
// templates, depth first. Each program appears once.
func (p *Program) Flatten() []*Program {
	seen := map[*Program]bool{}
	var programs []*Program
	var walk func(*Program)
	walk = func(q *Program) {
		if q == nil || seen[q] {
			return
		}
		seen[q] = true
		programs = append(programs, q)
		for _, fn := range q.Functions() {
			walk(fn.Program())
		}
	}
	walk(p)
	return programs
}

// Stats returns statistics about this program.
func (p *Program) Stats() Stats {
	stats := Stats{
		ByteLength:    len(p.code),
		ConstantCount: len(p.constants),
		HandlerCount:  len(p.handlers),
		FrameSize:     p.frameSize,
		FunctionCount: len(p.Functions()),
	}
	it := NewInstructionIter(p)
	for {
		instr, ok := it.Next()
		if !ok {
			break
		}
		stats.InstructionCount++
		if instr.Prefixed() {
			stats.PrefixedCount++
		}
	}
	return stats
}
