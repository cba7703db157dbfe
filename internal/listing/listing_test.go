package listing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/risor-io/regasm/builder"
	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/constpool"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/internal/token"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
)

const countdown = `
; counts down from a0
.name countdown
.params 1
.locals 1
.temps 2
  .stmt 1
  Ldar a0
  Star r0
loop:
  Ldar r0
  JumpIfToBooleanFalse @done
  LdaSmi 1
  Star r1
  Ldar r0
  Sub r1, 0
  Star r0
  JumpLoop @loop, 0
done:
  LdaConstant #"finished"
  Return
`

func decode(t *testing.T, p *bytecode.Program) []bytecode.Instruction {
	t.Helper()
	instrs, err := bytecode.NewInstructionIter(p).All()
	require.Nil(t, err)
	return instrs
}

func TestParseHeader(t *testing.T) {
	l, err := Parse(countdown, "countdown.asm")
	require.Nil(t, err)
	require.Equal(t, "countdown", l.Name)
	require.Equal(t, 1, l.Params)
	require.Equal(t, 1, l.Locals)
	require.Equal(t, 2, l.Temps)
	require.Len(t, l.Statements, 15)
	require.Equal(t, "stmt", l.Statements[0].Directive)
	require.Equal(t, "loop", l.Statements[3].Label)
	require.True(t, l.Statements[1].IsInstruction())
	require.Equal(t, op.Ldar, l.Statements[1].Code)
	require.Equal(t, register.FromParameterIndex(0, 1), l.Statements[1].Operands[0].Register)
	require.Equal(t, 8, l.Statements[1].Pos.LineNumber())
}

func TestParseOperands(t *testing.T) {
	src := ".params 2\n" +
		"CallProperty r0, r1-r3, 4\n" +
		"CallRuntime 2 a0-a1\n" +
		"CallUndefinedReceiver <closure>, (), 0\n" +
		"LdaConstant #-1.5\n" +
		"LdaConstant #hole\n" +
		"LdaConstant #null\n" +
		"LdaConstant #0x10\n" +
		"LdaConstant #true\n" +
		"LdaSmi -7\n" +
		"Jump @end\n" +
		"SwitchOnSmiNoFeedback &cases\n"
	l, err := Parse(src, "")
	require.Nil(t, err)
	s := l.Statements

	require.Equal(t, RegisterOperand, s[0].Operands[0].Kind)
	require.Equal(t, ListOperand, s[0].Operands[1].Kind)
	require.Equal(t, register.NewList(1, 3), s[0].Operands[1].List())
	require.Equal(t, int64(4), s[0].Operands[2].Int)

	require.Equal(t, register.NewList(register.FromParameterIndex(0, 2), 2), s[1].Operands[1].List())

	require.Equal(t, register.FunctionClosure, s[2].Operands[0].Register)
	require.Equal(t, register.EmptyList(), s[2].Operands[1].List())

	require.Equal(t, -1.5, s[3].Operands[0].Constant)
	require.Equal(t, constpool.Hole, s[4].Operands[0].Constant)
	require.Nil(t, s[5].Operands[0].Constant)
	require.Equal(t, ConstantOperand, s[5].Operands[0].Kind)
	require.Equal(t, int64(16), s[6].Operands[0].Constant)
	require.Equal(t, true, s[7].Operands[0].Constant)
	require.Equal(t, int64(-7), s[8].Operands[0].Int)
	require.Equal(t, Operand{Kind: LabelOperand, Name: "end", Pos: s[9].Operands[0].Pos}, s[9].Operands[0])
	require.Equal(t, TableOperand, s[10].Operands[0].Kind)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"unknown instruction", "Foo r0", `unknown instruction "Foo"`},
		{"misspelled instruction", "Retrun", `unknown instruction "Retrun"; did you mean one of Return, ReThrow?`},
		{"misspelled directive", ".parmas 1", "unknown directive .parmas; did you mean params?"},
		{"late header", "Return\n.params 1", ".params must precede the first statement"},
		{"bare name", "LdaSmi x", `unexpected name "x"; registers are rN or aN`},
		{"parameter range", "Ldar a0", "parameter a0 out of range (.params 0)"},
		{"unknown directive", ".bogus 1", "unknown directive .bogus"},
		{"directive arity", ".table t 1", ".table takes 3 arguments, got 2"},
		{"directive kind", ".stmt r0", ".stmt argument 1: want integer, got register"},
		{"special register", "Ldar <frame>", "unknown special register <frame>"},
		{"bad list", ".params 1\nCallRuntime 1, r2-a0", `invalid register list end "a0"`},
		{"reversed list", "CallRuntime 1, r2-r1", "empty register list r2-r1"},
		{"bad constant", "LdaConstant #undefined", `unexpected "undefined" in constant`},
		{"statement start", "42", `unexpected INT "42" at start of statement`},
		{"lexer", "Ldar $", `unexpected character '$'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src, "")
			var terr *token.Error
			require.ErrorAs(t, err, &terr)
			require.Equal(t, tt.message, terr.FriendlyErrorMessage())
		})
	}
}

func TestAssembleLoop(t *testing.T) {
	p, err := AssembleSource(countdown, "countdown.asm")
	require.Nil(t, err)
	require.Equal(t, "countdown", p.Name())
	require.Equal(t, 3, p.FrameSize())
	require.Equal(t, 1, p.ParameterCount())

	instrs := decode(t, p)
	codes := make([]op.Code, len(instrs))
	for i, in := range instrs {
		codes[i] = in.Code
	}
	require.Equal(t, []op.Code{
		op.Ldar, op.Star, op.Ldar, op.JumpIfToBooleanFalse, op.LdaSmi, op.Star,
		op.Ldar, op.Sub, op.Star, op.JumpLoop, op.LdaConstant, op.Return,
	}, codes)

	target, ok := instrs[3].JumpTarget()
	require.True(t, ok)
	require.Equal(t, instrs[10].Offset, target)
	target, ok = instrs[9].JumpTarget()
	require.True(t, ok)
	require.Equal(t, instrs[2].Offset, target)
	require.Equal(t, "finished", p.ConstantAt(int(instrs[10].Operands[0])))

	entry, ok := p.SourcePositionAt(0)
	require.True(t, ok)
	require.Equal(t, 1, entry.Position)
}

func TestAssembleSwitchAndHandler(t *testing.T) {
	src := `
.locals 1
.table cases 2 0
.try t0 <context>
  LdaSmi 1
  SwitchOnSmiNoFeedback &cases
  LdaFalse
  Return
.case cases 0
  LdaTrue
  Return
.case cases 1
  LdaNull
  Throw
.endtry t0
.handler t0 caught
  Star r0
  LdaUndefined
  Return
`
	p, err := AssembleSource(src, "")
	require.Nil(t, err)
	require.Equal(t, int64(6), p.ConstantAt(0))
	require.Equal(t, int64(8), p.ConstantAt(1))
	require.Equal(t, 1, p.HandlerCount())
	require.Equal(t, handler.Entry{
		TryStart:   0,
		TryEnd:     12,
		Handler:    12,
		Context:    register.CurrentContext,
		Prediction: handler.Caught,
	}, p.HandlerAt(0))
}

func TestAssembleOptions(t *testing.T) {
	src := ".locals 1\nLdaTrue\nStar r0\nLdar r0\nReturn\n"
	p, err := AssembleSource(src, "")
	require.Nil(t, err)
	require.Len(t, decode(t, p), 3)

	p, err = AssembleSource(src, "", builder.WithElision(false))
	require.Nil(t, err)
	require.Len(t, decode(t, p), 4)
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errz.ErrorCode
		line int
	}{
		{"invalid register", ".locals 1\nLdar r5\nReturn", errz.E5003, 2},
		{"label bound twice", "foo:\nReturn\nfoo:\n", errz.E5001, 3},
		{"missing operand", "LdaSmi\n", errz.E5009, 1},
		{"unbound label", "LdaTrue\nJumpIfTrue @nowhere\nReturn", errz.E5002, 0},
		{"unclosed try", ".try t <context>\nReturn", errz.E5005, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleSource(tt.src, "")
			var ie *errz.InvariantError
			require.ErrorAs(t, err, &ie)
			require.Equal(t, tt.code, ie.Code)
			var terr *token.Error
			if tt.line == 0 {
				require.False(t, errors.As(err, &terr))
				return
			}
			require.ErrorAs(t, err, &terr)
			require.Equal(t, tt.line, terr.Position.LineNumber())
		})
	}

	plain := []struct {
		name    string
		src     string
		message string
	}{
		{"undeclared table", "LdaZero\nSwitchOnSmiNoFeedback &none", `undeclared jump table "none"`},
		{"unknown handler", ".endtry t", `unknown handler "t"`},
		{"prediction", ".try t <context>\n.endtry t\n.handler t maybe", `unknown catch prediction "maybe"`},
		{"duplicate table", ".table t 1 0\n.table t 1 0", `jump table "t" already declared`},
	}
	for _, tt := range plain {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleSource(tt.src, "")
			var terr *token.Error
			require.ErrorAs(t, err, &terr)
			require.Equal(t, tt.message, terr.FriendlyErrorMessage())
		})
	}
}

func TestAssembleLimit(t *testing.T) {
	src := "LdaConstant #\"a\"\nLdaConstant #\"b\"\nReturn"
	_, err := AssembleSource(src, "", builder.WithConstantPoolCapacity(1))
	require.True(t, errz.IsLimit(err))
}
