package builder

import (
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
)

// RegisterOptimizer removes register transfers whose effect is already in
// place. The Do methods report whether the builder must still emit the
// transfer.
type RegisterOptimizer interface {
	DoLdar(r register.Register) bool
	DoStar(r register.Register) bool
	DoMov(from, to register.Register) bool
	// PrepareForBytecode is called before every other instruction.
	PrepareForBytecode(code op.Code)
	PrepareOutputRegister(r register.Register)
	PrepareOutputRegisterList(l register.List)
	// Flush is called at basic block boundaries.
	Flush()
}

// flushesOptimizer lists instructions that save or restore the whole
// register file.
var flushesOptimizer = map[op.Code]bool{
	op.Debugger:                  true,
	op.SuspendGenerator:          true,
	op.RestoreGeneratorState:     true,
	op.RestoreGeneratorRegisters: true,
}

func (b *Builder) prepare(code op.Code, operands []int64) {
	if b.optimizer == nil {
		return
	}
	if op.IsJump(code) || op.IsSwitch(code) || flushesOptimizer[code] {
		b.optimizer.Flush()
		return
	}
	b.optimizer.PrepareForBytecode(code)
	types := op.GetInfo(code).Operands
	for i, t := range types {
		if !t.IsRegisterOutput() {
			continue
		}
		first := register.Register(operands[i])
		switch {
		case t == op.OperandRegOutList:
			b.optimizer.PrepareOutputRegisterList(register.NewList(first, int(operands[i+1])))
		case t.ImplicitRegisterCount() == 1:
			b.optimizer.PrepareOutputRegister(first)
		default:
			b.optimizer.PrepareOutputRegisterList(register.NewList(first, t.ImplicitRegisterCount()))
		}
	}
}
