// Package dis disassembles finalized bytecode into a readable listing. It
// decodes with the InstructionIter from the bytecode package and resolves
// registers, constants, jump targets and source positions.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/internal/table"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
	"github.com/risor-io/regasm/srcpos"
)

// Instruction is one disassembled instruction.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Scale      op.OperandScale
	Values     []int64
	Operands   []string
	Annotation string
	Constant   any
	Position   *srcpos.Entry
}

// constantOperands gives the operand that indexes the constant pool.
var constantOperands = map[op.Code]int{
	op.LdaConstant:               0,
	op.LdaGlobal:                 0,
	op.LdaGlobalInsideTypeof:     0,
	op.StaGlobalSloppy:           0,
	op.StaGlobalStrict:           0,
	op.LdaLookupSlot:             0,
	op.LdaLookupSlotInsideTypeof: 0,
	op.StaLookupSlot:             0,
	op.LdaNamedProperty:          1,
	op.StaNamedProperty:          1,
	op.StaNamedOwnProperty:       1,
	op.CreateRegExpLiteral:       0,
	op.CreateArrayLiteral:        0,
	op.CreateObjectLiteral:       0,
	op.CreateClosure:             0,
	op.CreateBlockContext:        0,
	op.CreateCatchContext:        1,
	op.CreateWithContext:         1,
	op.ThrowReferenceErrorIfHole: 0,
}

// Disassemble decodes every instruction of p.
func Disassemble(p *bytecode.Program) ([]Instruction, error) {
	var instructions []Instruction
	var position int
	iter := bytecode.NewInstructionIter(p)
	for {
		in, ok := iter.Next()
		if !ok {
			break
		}
		instr := Instruction{
			Offset:   in.Offset,
			Name:     name(in),
			Opcode:   in.Code,
			Scale:    in.Scale,
			Values:   in.Operands,
			Operands: formatOperands(in, p.ParameterCount()),
		}
		var err error
		switch {
		case op.IsJumpConstant(in.Code):
			var delta int64
			delta, err = jumpDelta(p, int(in.Operands[0]))
			instr.Annotation = fmt.Sprintf("-> %d", in.Offset+int(delta))
		case op.IsJump(in.Code):
			target, _ := in.JumpTarget()
			instr.Annotation = fmt.Sprintf("-> %d", target)
		case op.IsSwitch(in.Code):
			instr.Annotation, err = switchTargets(p, in)
		default:
			if index, ok := constantOperands[in.Code]; ok {
				instr.Constant, err = constantValue(p, int(in.Operands[index]))
			} else if in.Code == op.CallRuntime || in.Code == op.CallRuntimeForPair {
				instr.Annotation = fmt.Sprintf("runtime %d", in.Operands[0])
			}
		}
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", in.Offset, err)
		}
		for position < p.PositionCount() && p.PositionAt(position).Offset < in.Offset {
			position++
		}
		if position < p.PositionCount() && p.PositionAt(position).Offset == in.Offset {
			entry := p.PositionAt(position)
			instr.Position = &entry
		}
		instructions = append(instructions, instr)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return instructions, nil
}

func name(in bytecode.Instruction) string {
	switch in.Scale {
	case op.ScaleDouble:
		return in.Code.String() + ".Wide"
	case op.ScaleQuadruple:
		return in.Code.String() + ".ExtraWide"
	}
	return in.Code.String()
}

func formatOperands(in bytecode.Instruction, paramCount int) []string {
	types := op.GetInfo(in.Code).Operands
	var result []string
	for i := 0; i < len(types); i++ {
		t := types[i]
		v := in.Operands[i]
		switch {
		case t.IsRegisterList():
			list := register.EmptyList()
			if in.Operands[i+1] > 0 {
				list = register.NewList(register.Register(v), int(in.Operands[i+1]))
			}
			result = append(result, listName(list, paramCount))
			i++
		case t.ImplicitRegisterCount() > 1:
			list := register.NewList(register.Register(v), t.ImplicitRegisterCount())
			result = append(result, listName(list, paramCount))
		case t.IsRegister():
			result = append(result, register.Register(v).Name(paramCount))
		case op.IsJump(in.Code) && i == 0 && !op.IsJumpConstant(in.Code):
			result = append(result, fmt.Sprintf("%+d", v))
		case t == op.OperandIdx:
			result = append(result, fmt.Sprintf("[%d]", v))
		default:
			result = append(result, fmt.Sprintf("%d", v))
		}
	}
	return result
}

func listName(l register.List, paramCount int) string {
	if l.Count() == 0 {
		return "()"
	}
	return fmt.Sprintf("%s-%s", l.First().Name(paramCount), l.Last().Name(paramCount))
}

func jumpDelta(p *bytecode.Program, index int) (int64, error) {
	c, err := constantValue(p, index)
	if err != nil {
		return 0, err
	}
	delta, ok := c.(int64)
	if !ok {
		return 0, fmt.Errorf("jump constant %d is not an integer: %v", index, c)
	}
	return delta, nil
}

func switchTargets(p *bytecode.Program, in bytecode.Instruction) (string, error) {
	first, size, base := int(in.Operands[0]), int(in.Operands[1]), in.Operands[2]
	parts := make([]string, 0, size)
	for i := 0; i < size; i++ {
		delta, err := jumpDelta(p, first+i)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%d: -> %d", base+int64(i), in.Offset+int(delta)))
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

func constantValue(p *bytecode.Program, index int) (any, error) {
	if index < 0 || p.ConstantCount() <= index {
		return nil, fmt.Errorf("constant index out of range: %d", index)
	}
	return p.ConstantAt(index), nil
}

var (
	bold      = color.New(color.Bold).SprintFunc()
	italic    = color.New(color.Italic).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	green     = color.New(color.FgGreen).SprintFunc()
	magenta   = color.New(color.FgMagenta).SprintFunc()
	cyan      = color.New(color.FgHiCyan).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
	statement = color.New(color.FgHiBlue).SprintFunc()
)

func describe(instr Instruction) string {
	var info []string
	if instr.Position != nil {
		marker := "E>"
		if instr.Position.IsStatement {
			marker = "S>"
		}
		info = append(info, statement(fmt.Sprintf("%s %d", marker, instr.Position.Position)))
	}
	switch c := instr.Constant.(type) {
	case nil:
	case int64:
		info = append(info, yellow(fmt.Sprintf("%d", c)))
	case float64:
		info = append(info, yellow(fmt.Sprintf("%g", c)))
	case string:
		if len(c) > 80 {
			c = c[:77] + "..."
		}
		info = append(info, green(fmt.Sprintf("%q", c)))
	case *bytecode.Function:
		name := c.Name()
		if name == "" {
			name = italic("<anonymous>")
		}
		info = append(info, magenta(fmt.Sprintf("func:%s", name)))
	default:
		info = append(info, bold(fmt.Sprintf("%v", c)))
	}
	if instr.Annotation != "" {
		info = append(info, cyan(instr.Annotation))
	}
	return strings.Join(info, " ")
}

// Print writes instructions as a table to writer.
func Print(instructions []Instruction, writer io.Writer) {
	var lines [][]string
	for _, instr := range instructions {
		lines = append(lines, []string{
			fmt.Sprintf("%d", instr.Offset),
			bold(instr.Name),
			strings.Join(instr.Operands, ", "),
			describe(instr),
		})
	}
	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignLeft,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

// PrintHandlers writes the exception handler table of p.
func PrintHandlers(p *bytecode.Program, writer io.Writer) {
	if p.HandlerCount() == 0 {
		return
	}
	var lines [][]string
	for i := 0; i < p.HandlerCount(); i++ {
		h := p.HandlerAt(i)
		lines = append(lines, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("[%d, %d)", h.TryStart, h.TryEnd),
			fmt.Sprintf("%d", h.Handler),
			h.Context.Name(p.ParameterCount()),
			faint(h.Prediction.String()),
		})
	}
	table.NewTable(writer).
		WithHeader([]string{"#", "RANGE", "HANDLER", "CONTEXT", "PREDICTION"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
			table.AlignLeft,
		}).
		WithRows(lines).
		Render()
}
