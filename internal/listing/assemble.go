package listing

import (
	"fmt"

	"github.com/risor-io/regasm/builder"
	"github.com/risor-io/regasm/bytecode"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/handler"
	"github.com/risor-io/regasm/internal/token"
	"github.com/risor-io/regasm/register"
)

var predictions = map[string]handler.CatchPrediction{
	"uncaught":   handler.Uncaught,
	"caught":     handler.Caught,
	"promise":    handler.Promise,
	"desugaring": handler.Desugaring,
	"async":      handler.AsyncAwait,
}

type assembler struct {
	b        *builder.Builder
	labels   map[string]builder.Label
	tables   map[string]builder.JumpTable
	handlers map[string]int
}

// Assemble builds the program described by l. Misuse of the builder, such
// as an invalid register or a label bound twice, is reported at the
// position of the offending statement.
func Assemble(l *Listing, opts ...builder.Option) (*bytecode.Program, error) {
	options := append([]builder.Option{builder.WithName(l.Name)}, opts...)
	a := &assembler{
		b:        builder.New(l.Params, l.Locals, options...),
		labels:   map[string]builder.Label{},
		tables:   map[string]builder.JumpTable{},
		handlers: map[string]int{},
	}
	alloc := a.b.RegisterAllocator()
	temps := register.EmptyList()
	if l.Temps > 0 {
		temps = alloc.Acquire(l.Temps)
	}
	for _, s := range l.Statements {
		var err error
		if perr := errz.Catch(func() { err = a.statement(s) }); perr != nil {
			err = perr
		}
		if err != nil {
			return nil, token.Wrap(s.Pos, err)
		}
	}
	if temps.Count() > 0 {
		alloc.Release(temps)
	}
	var program *bytecode.Program
	var err error
	if perr := errz.Catch(func() { program, err = a.b.Finalize() }); perr != nil {
		return nil, perr
	}
	return program, err
}

// AssembleSource parses and assembles src.
func AssembleSource(src, file string, opts ...builder.Option) (*bytecode.Program, error) {
	l, err := Parse(src, file)
	if err != nil {
		return nil, err
	}
	return Assemble(l, opts...)
}

func (a *assembler) label(name string) builder.Label {
	l, ok := a.labels[name]
	if !ok {
		l = a.b.NewLabel()
		a.labels[name] = l
	}
	return l
}

func (a *assembler) handler(name string, create bool) (int, error) {
	id, ok := a.handlers[name]
	if ok {
		return id, nil
	}
	if !create {
		return 0, fmt.Errorf("unknown handler %q", name)
	}
	id = a.b.NewHandlerEntry()
	a.handlers[name] = id
	return id, nil
}

func (a *assembler) statement(s Statement) error {
	switch {
	case s.Label != "":
		a.b.Bind(a.label(s.Label))
		return nil
	case s.Directive != "":
		return a.directive(s)
	}
	operands := make([]builder.Operand, 0, len(s.Operands))
	for _, o := range s.Operands {
		converted, err := a.operand(o)
		if err != nil {
			return err
		}
		operands = append(operands, converted)
	}
	a.b.Emit(s.Code, operands...)
	return nil
}

func (a *assembler) operand(o Operand) (builder.Operand, error) {
	switch o.Kind {
	case IntOperand:
		return builder.Value(o.Int), nil
	case RegisterOperand:
		return builder.Reg(o.Register), nil
	case ListOperand:
		return builder.Regs(o.List()), nil
	case LabelOperand:
		return builder.Target(a.label(o.Name)), nil
	case TableOperand:
		t, ok := a.tables[o.Name]
		if !ok {
			return builder.Operand{}, fmt.Errorf("undeclared jump table %q", o.Name)
		}
		return builder.Table(t), nil
	case ConstantOperand:
		return builder.Value(int64(a.b.ConstantPoolEntry(o.Constant))), nil
	}
	return builder.Operand{}, fmt.Errorf("unexpected %s operand", o.Kind)
}

func (a *assembler) directive(s Statement) error {
	args := s.Operands
	switch s.Directive {
	case "stmt":
		a.b.SetStatementPosition(int(args[0].Int))
	case "expr":
		a.b.SetExpressionPosition(int(args[0].Int))
	case "table":
		name := args[0].Name
		if _, ok := a.tables[name]; ok {
			return fmt.Errorf("jump table %q already declared", name)
		}
		if args[1].Int <= 0 {
			return fmt.Errorf("jump table %q needs at least one case", name)
		}
		a.tables[name] = a.b.AllocateJumpTable(int(args[1].Int), int(args[2].Int))
	case "case":
		t, ok := a.tables[args[0].Name]
		if !ok {
			return fmt.Errorf("undeclared jump table %q", args[0].Name)
		}
		a.b.BindJumpTable(t, int(args[1].Int))
	case "try":
		id, err := a.handler(args[0].Name, true)
		if err != nil {
			return err
		}
		a.b.MarkTryBegin(id, args[1].Register)
	case "endtry":
		id, err := a.handler(args[0].Name, false)
		if err != nil {
			return err
		}
		a.b.MarkTryEnd(id)
	case "handler":
		id, err := a.handler(args[0].Name, false)
		if err != nil {
			return err
		}
		prediction, ok := predictions[args[1].Name]
		if !ok {
			return fmt.Errorf("unknown catch prediction %q", args[1].Name)
		}
		a.b.MarkHandler(id, prediction)
	}
	return nil
}
