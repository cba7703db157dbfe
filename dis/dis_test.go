package dis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/risor-io/regasm/builder"
	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
)

func disableColor(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })
}

func TestDisassembly(t *testing.T) {
	disableColor(t)
	b := builder.New(1, 1)
	b.SetStatementPosition(3)
	b.LoadLiteralString("hi").StoreAccumulatorInRegister(b.Local(0))
	l := b.NewLabel()
	b.LoadAccumulatorWithRegister(b.Parameter(0)).JumpIfFalse(builder.AlreadyBoolean, l)
	b.LoadLiteralSmi(7).Return()
	b.Bind(l).LoadUndefined().Return()
	p, err := b.Finalize()
	require.Nil(t, err)

	instructions, err := Disassemble(p)
	require.Nil(t, err)
	require.Len(t, instructions, 8)
	require.Equal(t, "hi", instructions[0].Constant)
	require.NotNil(t, instructions[0].Position)
	require.Nil(t, instructions[1].Position)

	var buf bytes.Buffer
	Print(instructions, &buf)
	expected := strings.TrimSpace(`
+--------+--------------+----------+-----------+
| OFFSET |    OPCODE    | OPERANDS |   INFO    |
+--------+--------------+----------+-----------+
|      0 | LdaConstant  | [0]      | S> 3 "hi" |
|      2 | Star         | r0       |           |
|      4 | Ldar         | a0       |           |
|      6 | JumpIfFalse  | +5       | -> 11     |
|      8 | LdaSmi       | 7        |           |
|     10 | Return       |          |           |
|     11 | LdaUndefined |          |           |
|     12 | Return       |          |           |
+--------+--------------+----------+-----------+
`)
	require.Equal(t, expected+"\n", buf.String())
}

func TestSwitchAnnotation(t *testing.T) {
	b := builder.New(0, 0)
	table := b.AllocateJumpTable(2, 5)
	b.LoadLiteralSmi(5).SwitchOnSmi(table).LoadFalse().Return()
	b.BindJumpTable(table, 5).LoadTrue().Return()
	b.BindJumpTable(table, 6).LoadNull().Return()
	p, err := b.Finalize()
	require.Nil(t, err)

	instructions, err := Disassemble(p)
	require.Nil(t, err)
	require.Equal(t, "SwitchOnSmiNoFeedback", instructions[1].Name)
	require.Equal(t, "{5: -> 8, 6: -> 10}", instructions[1].Annotation)
	require.Equal(t, []string{"[0]", "2", "5"}, instructions[1].Operands)
}

func TestRegisterListOperands(t *testing.T) {
	b := builder.New(2, 0)
	alloc := b.RegisterAllocator()
	args := alloc.Acquire(2)
	b.CallRuntime(12, args).
		CallUndefinedReceiver(b.Parameter(1), register.EmptyList(), 0).
		Return()
	p, err := b.Finalize()
	require.Nil(t, err)

	instructions, err := Disassemble(p)
	require.Nil(t, err)
	require.Equal(t, []string{"12", "r0-r1"}, instructions[0].Operands)
	require.Equal(t, "runtime 12", instructions[0].Annotation)
	require.Equal(t, []string{"a1", "()", "[0]"}, instructions[1].Operands)
}

func TestWideInstruction(t *testing.T) {
	b := builder.New(0, 0)
	b.LoadLiteralSmi(1000).Return()
	p, err := b.Finalize()
	require.Nil(t, err)

	instructions, err := Disassemble(p)
	require.Nil(t, err)
	require.Equal(t, "LdaSmi.Wide", instructions[0].Name)
	require.Equal(t, op.ScaleDouble, instructions[0].Scale)
	require.Equal(t, []int64{1000}, instructions[0].Values)
}

func TestDisassembleErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"constant out of range", []byte{byte(op.LdaConstant), 5}},
		{"truncated", []byte{byte(op.LdaSmi)}},
		{"constant jump without pool", []byte{byte(op.JumpConstant), 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := bytecode.NewProgram(bytecode.ProgramParams{Code: tt.code})
			_, err := Disassemble(p)
			require.Error(t, err)
		})
	}
}

func TestPrintHandlers(t *testing.T) {
	disableColor(t)
	b := builder.New(0, 0)
	id := b.NewHandlerEntry()
	b.MarkTryBegin(id, register.CurrentContext).
		LoadTrue().
		Throw().
		MarkTryEnd(id).
		MarkHandler(id, handler.Caught).
		Return()
	p, err := b.Finalize()
	require.Nil(t, err)

	var buf bytes.Buffer
	PrintHandlers(p, &buf)
	require.Contains(t, buf.String(), "[0, 2)")
	require.Contains(t, buf.String(), "<context>")
	require.Contains(t, buf.String(), handler.Caught.String())

	buf.Reset()
	PrintHandlers(bytecode.NewProgram(bytecode.ProgramParams{}), &buf)
	require.Empty(t, buf.String())
}
