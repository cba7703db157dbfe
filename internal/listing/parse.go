// Package listing reads the textual assembly format accepted by regasm and
// assembles it through the builder.
//
// A listing is line oriented:
//
//	.name   main
//	.params 1
//	.locals 2
//	.temps  1
//	loop:
//	  .stmt 10
//	  Ldar a0
//	  JumpIfToBooleanFalse @done
//	  CallRuntime 4, r0-r1
//	  LdaConstant #"text"
//	  JumpLoop @loop, 0
//	done:
//	  Return
//
// Registers are written rN for locals and temporaries, aN for parameters,
// and <context> or <closure> for the special registers. Register lists are
// rN-rM or (). Jump targets are @label, jump tables &name, and #value adds
// value to the constant pool and stands for its index.
package listing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/risor-io/regasm/constpool"
	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/internal/lexer"
	"github.com/risor-io/regasm/internal/token"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
)

// OperandKind identifies the syntax an operand was written in.
type OperandKind int

const (
	IntOperand OperandKind = iota
	RegisterOperand
	ListOperand
	LabelOperand
	TableOperand
	ConstantOperand
	NameOperand
)

var kindNames = [...]string{
	IntOperand:      "integer",
	RegisterOperand: "register",
	ListOperand:     "register list",
	LabelOperand:    "label",
	TableOperand:    "jump table",
	ConstantOperand: "constant",
	NameOperand:     "name",
}

func (k OperandKind) String() string {
	return kindNames[k]
}

// Operand is one parsed operand.
type Operand struct {
	Kind     OperandKind
	Pos      token.Position
	Int      int64
	Register register.Register
	Count    int
	Name     string
	Constant any
}

// List returns the register list of a ListOperand.
func (o Operand) List() register.List {
	if o.Count == 0 {
		return register.EmptyList()
	}
	return register.NewList(o.Register, o.Count)
}

// Statement is a label, a directive or an instruction. Exactly one of
// Label, Directive and Code is set.
type Statement struct {
	Pos       token.Position
	Label     string
	Directive string
	Code      op.Code
	Operands  []Operand
}

// IsInstruction returns true if the statement emits an instruction.
func (s Statement) IsInstruction() bool {
	return s.Label == "" && s.Directive == ""
}

// Listing is a parsed listing.
type Listing struct {
	Name       string
	Params     int
	Locals     int
	Temps      int
	Statements []Statement
}

// headerDirectives set frame properties and must precede the first
// statement.
var headerDirectives = map[string]bool{
	"name":   true,
	"params": true,
	"locals": true,
	"temps":  true,
}

// directiveArgs lists the operand kinds each body directive takes.
var directiveArgs = map[string][]OperandKind{
	"stmt":    {IntOperand},
	"expr":    {IntOperand},
	"table":   {NameOperand, IntOperand, IntOperand},
	"case":    {NameOperand, IntOperand},
	"try":     {NameOperand, RegisterOperand},
	"endtry":  {NameOperand},
	"handler": {NameOperand, NameOperand},
}

type parser struct {
	lexer   *lexer.Lexer
	current token.Token
	peek    token.Token
	listing *Listing
}

// Parse parses src. file is used in error positions and may be empty.
func Parse(src, file string) (*Listing, error) {
	p := &parser{
		lexer:   lexer.New(src, lexer.WithFile(file)),
		listing: &Listing{},
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	for p.current.Type != token.EOF {
		if err := p.parseLine(); err != nil {
			return nil, err
		}
	}
	return p.listing, nil
}

func (p *parser) advance() error {
	p.current = p.peek
	tok, err := p.lexer.Next()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *parser) atLineEnd() bool {
	return p.current.Type == token.NEWLINE || p.current.Type == token.EOF
}

func (p *parser) parseLine() error {
	switch p.current.Type {
	case token.NEWLINE:
		return p.advance()
	case token.DIRECTIVE:
		return p.parseDirective()
	case token.IDENT:
		if p.peek.Type == token.COLON {
			p.listing.Statements = append(p.listing.Statements, Statement{
				Pos:   p.current.StartPosition,
				Label: p.current.Literal,
			})
			if err := p.advance(); err != nil {
				return err
			}
			return p.advance()
		}
		return p.parseInstruction()
	}
	return token.Errorf(p.current.StartPosition, "unexpected %s %q at start of statement",
		p.current.Type, p.current.Literal)
}

func (p *parser) parseDirective() error {
	tok := p.current
	if err := p.advance(); err != nil {
		return err
	}
	args, err := p.parseOperands()
	if err != nil {
		return err
	}
	if headerDirectives[tok.Literal] {
		return p.header(tok, args)
	}
	kinds, ok := directiveArgs[tok.Literal]
	if !ok {
		return token.Errorf(tok.StartPosition, "%s", withHint(
			"unknown directive ."+tok.Literal, tok.Literal, directiveNames()))
	}
	if err := checkKinds(tok, args, kinds); err != nil {
		return err
	}
	p.listing.Statements = append(p.listing.Statements, Statement{
		Pos:       tok.StartPosition,
		Directive: tok.Literal,
		Operands:  args,
	})
	return nil
}

func directiveNames() []string {
	var names []string
	for name := range headerDirectives {
		names = append(names, name)
	}
	for name := range directiveArgs {
		names = append(names, name)
	}
	return names
}

// withHint appends a "did you mean" hint for name to msg.
func withHint(msg, name string, candidates []string) string {
	if hint := errz.DidYouMean(errz.Suggest(name, candidates)); hint != "" {
		return msg + "; " + hint
	}
	return msg
}

func checkKinds(tok token.Token, args []Operand, kinds []OperandKind) error {
	if len(args) != len(kinds) {
		return token.Errorf(tok.StartPosition, ".%s takes %d arguments, got %d", tok.Literal, len(kinds), len(args))
	}
	for i, k := range kinds {
		if args[i].Kind != k {
			return token.Errorf(args[i].Pos, ".%s argument %d: want %s, got %s", tok.Literal, i+1, k, args[i].Kind)
		}
	}
	return nil
}

func (p *parser) header(tok token.Token, args []Operand) error {
	if len(p.listing.Statements) > 0 {
		return token.Errorf(tok.StartPosition, ".%s must precede the first statement", tok.Literal)
	}
	if tok.Literal == "name" {
		if len(args) != 1 || (args[0].Kind != NameOperand && !isString(args[0])) {
			return token.Errorf(tok.StartPosition, ".name takes a name or a string")
		}
		if args[0].Kind == NameOperand {
			p.listing.Name = args[0].Name
		} else {
			p.listing.Name = args[0].Constant.(string)
		}
		return nil
	}
	if err := checkKinds(tok, args, []OperandKind{IntOperand}); err != nil {
		return err
	}
	n := args[0].Int
	if n < 0 || n > math.MaxInt16 {
		return token.Errorf(args[0].Pos, ".%s out of range: %d", tok.Literal, n)
	}
	switch tok.Literal {
	case "params":
		p.listing.Params = int(n)
	case "locals":
		p.listing.Locals = int(n)
	case "temps":
		p.listing.Temps = int(n)
	}
	return nil
}

func isString(o Operand) bool {
	if o.Kind != ConstantOperand {
		return false
	}
	_, ok := o.Constant.(string)
	return ok
}

func (p *parser) parseInstruction() error {
	tok := p.current
	code, ok := op.Lookup(tok.Literal)
	if !ok {
		return token.Errorf(tok.StartPosition, "%s", withHint(
			fmt.Sprintf("unknown instruction %q", tok.Literal), tok.Literal, op.Names()))
	}
	if err := p.advance(); err != nil {
		return err
	}
	operands, err := p.parseOperands()
	if err != nil {
		return err
	}
	for _, o := range operands {
		if o.Kind == NameOperand {
			return token.Errorf(o.Pos, "unexpected name %q; registers are rN or aN", o.Name)
		}
	}
	p.listing.Statements = append(p.listing.Statements, Statement{
		Pos:      tok.StartPosition,
		Code:     code,
		Operands: operands,
	})
	return nil
}

// parseOperands reads operands up to the end of the line. Commas between
// operands are optional.
func (p *parser) parseOperands() ([]Operand, error) {
	var operands []Operand
	for !p.atLineEnd() {
		if p.current.Type == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		o, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		operands = append(operands, o)
	}
	return operands, nil
}

func (p *parser) expect(t token.Type) (token.Token, error) {
	tok := p.current
	if tok.Type != t {
		return tok, token.Errorf(tok.StartPosition, "expected %s, got %q", t, tok.Literal)
	}
	return tok, p.advance()
}

func (p *parser) parseOperand() (Operand, error) {
	tok := p.current
	o := Operand{Pos: tok.StartPosition}
	switch tok.Type {
	case token.INT, token.MINUS:
		v, err := p.parseInt()
		if err != nil {
			return o, err
		}
		o.Kind = IntOperand
		o.Int = v
		return o, nil
	case token.IDENT:
		if r, ok, err := p.register(tok); ok || err != nil {
			if err != nil {
				return o, err
			}
			if err := p.advance(); err != nil {
				return o, err
			}
			return p.maybeList(o, r)
		}
		o.Kind = NameOperand
		o.Name = tok.Literal
		return o, p.advance()
	case token.LT:
		if err := p.advance(); err != nil {
			return o, err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return o, err
		}
		if _, err := p.expect(token.GT); err != nil {
			return o, err
		}
		o.Kind = RegisterOperand
		switch name.Literal {
		case "context":
			o.Register = register.CurrentContext
		case "closure":
			o.Register = register.FunctionClosure
		default:
			return o, token.Errorf(name.StartPosition, "unknown special register <%s>", name.Literal)
		}
		return o, nil
	case token.LPAREN:
		if err := p.advance(); err != nil {
			return o, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return o, err
		}
		o.Kind = ListOperand
		return o, nil
	case token.AT, token.AMPERSAND:
		if err := p.advance(); err != nil {
			return o, err
		}
		name, err := p.expect(token.IDENT)
		if err != nil {
			return o, err
		}
		o.Kind = LabelOperand
		if tok.Type == token.AMPERSAND {
			o.Kind = TableOperand
		}
		o.Name = name.Literal
		return o, nil
	case token.HASH:
		if err := p.advance(); err != nil {
			return o, err
		}
		c, err := p.parseConstant()
		if err != nil {
			return o, err
		}
		o.Kind = ConstantOperand
		o.Constant = c
		return o, nil
	case token.STRING:
		o.Kind = ConstantOperand
		o.Constant = tok.Literal
		return o, p.advance()
	}
	return o, token.Errorf(tok.StartPosition, "unexpected %q in operand", tok.Literal)
}

func (p *parser) parseInt() (int64, error) {
	negative := false
	if p.current.Type == token.MINUS {
		negative = true
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	tok, err := p.expect(token.INT)
	if err != nil {
		return 0, err
	}
	v, err := lexer.ParseInt(tok.Literal)
	if err != nil {
		return 0, token.Errorf(tok.StartPosition, "invalid integer %q", tok.Literal)
	}
	if negative {
		v = -v
	}
	return v, nil
}

func (p *parser) parseConstant() (any, error) {
	tok := p.current
	switch tok.Type {
	case token.INT:
		return p.parseInt()
	case token.MINUS:
		if p.peek.Type == token.FLOAT {
			if err := p.advance(); err != nil {
				return nil, err
			}
			f, err := p.parseFloat()
			return -f, err
		}
		return p.parseInt()
	case token.FLOAT:
		return p.parseFloat()
	case token.STRING:
		return tok.Literal, p.advance()
	case token.TRUE:
		return true, p.advance()
	case token.FALSE:
		return false, p.advance()
	case token.NULL:
		return nil, p.advance()
	case token.HOLE:
		return constpool.Hole, p.advance()
	}
	return nil, token.Errorf(tok.StartPosition, "unexpected %q in constant", tok.Literal)
}

func (p *parser) parseFloat() (float64, error) {
	tok, err := p.expect(token.FLOAT)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		return 0, token.Errorf(tok.StartPosition, "invalid float %q", tok.Literal)
	}
	return f, nil
}

// register decodes rN and aN. ok is false for other identifiers.
func (p *parser) register(tok token.Token) (register.Register, bool, error) {
	name := tok.Literal
	if len(name) < 2 || (name[0] != 'r' && name[0] != 'a') {
		return 0, false, nil
	}
	digits := name[1:]
	if strings.TrimLeft(digits, "0123456789") != "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n > math.MaxInt16 {
		return 0, true, token.Errorf(tok.StartPosition, "register index out of range: %s", name)
	}
	if name[0] == 'r' {
		return register.Register(n), true, nil
	}
	if n >= p.listing.Params {
		return 0, true, token.Errorf(tok.StartPosition, "parameter %s out of range (.params %d)", name, p.listing.Params)
	}
	return register.FromParameterIndex(n, p.listing.Params), true, nil
}

// maybeList extends a register operand to a list when it is followed by
// "-rM".
func (p *parser) maybeList(o Operand, first register.Register) (Operand, error) {
	o.Kind = RegisterOperand
	o.Register = first
	if p.current.Type != token.MINUS || p.peek.Type != token.IDENT {
		return o, nil
	}
	if err := p.advance(); err != nil {
		return o, err
	}
	tok := p.current
	last, ok, err := p.register(tok)
	if err != nil {
		return o, err
	}
	if !ok || first.IsParameter() != last.IsParameter() {
		return o, token.Errorf(tok.StartPosition, "invalid register list end %q", tok.Literal)
	}
	count := int(last-first) + 1
	if count <= 0 {
		return o, token.Errorf(tok.StartPosition, "empty register list %s-%s", o.Register, tok.Literal)
	}
	o.Kind = ListOperand
	o.Register = first
	o.Count = count
	return o, p.advance()
}
