// Package lexer splits an assembly listing into tokens.
package lexer

import (
	"strconv"

	"github.com/risor-io/regasm/internal/token"
)

var punctuation = map[byte]token.Type{
	',': token.COMMA,
	':': token.COLON,
	'@': token.AT,
	'#': token.HASH,
	'&': token.AMPERSAND,
	'(': token.LPAREN,
	')': token.RPAREN,
	'<': token.LT,
	'>': token.GT,
	'-': token.MINUS,
}

// Lexer produces tokens one at a time. Newlines are significant and are
// returned as NEWLINE tokens. Comments start with ';' or "//" and run to
// the end of the line.
type Lexer struct {
	input     string
	file      string
	pos       int
	line      int
	lineStart int
}

// Option configures a Lexer.
type Option func(*Lexer)

// WithFile sets the file name reported in token positions.
func WithFile(file string) Option {
	return func(l *Lexer) {
		l.file = file
	}
}

// New returns a Lexer over input.
func New(input string, opts ...Option) *Lexer {
	l := &Lexer{input: input}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lexer) position(offset int) token.Position {
	return token.Position{
		Char:      offset,
		LineStart: l.lineStart,
		Line:      l.line,
		Column:    offset - l.lineStart,
		File:      l.file,
	}
}

func (l *Lexer) emit(t token.Type, start, end int, literal string) token.Token {
	l.pos = end
	last := end - 1
	if last < start {
		last = start
	}
	return token.Token{
		Type:          t,
		Literal:       literal,
		StartPosition: l.position(start),
		EndPosition:   l.position(last),
	}
}

// Next returns the next token. At the end of input it keeps returning EOF.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespaceAndComments()
	start := l.pos
	if start >= len(l.input) {
		return l.emit(token.EOF, start, start, ""), nil
	}
	ch := l.input[start]
	switch {
	case ch == '\n':
		tok := l.emit(token.NEWLINE, start, start+1, "\n")
		l.line++
		l.lineStart = l.pos
		return tok, nil
	case ch == '"':
		return l.readString()
	case ch == '.' && start+1 < len(l.input) && isLetter(l.input[start+1]):
		end := l.scanIdentifier(start + 1)
		return l.emit(token.DIRECTIVE, start, end, l.input[start+1:end]), nil
	case isLetter(ch):
		end := l.scanIdentifier(start)
		literal := l.input[start:end]
		return l.emit(token.LookupIdentifier(literal), start, end, literal), nil
	case isDigit(ch):
		return l.readNumber()
	}
	if t, ok := punctuation[ch]; ok {
		return l.emit(t, start, start+1, string(ch)), nil
	}
	tok := l.emit(token.ILLEGAL, start, start+1, string(ch))
	return tok, token.Errorf(tok.StartPosition, "unexpected character %q", ch)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		switch ch := l.input[l.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.pos++
		case ch == ';' || (ch == '/' && l.peek(1) == '/'):
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) scanIdentifier(start int) int {
	end := start
	for end < len(l.input) && (isLetter(l.input[end]) || isDigit(l.input[end])) {
		end++
	}
	return end
}

func (l *Lexer) readNumber() (token.Token, error) {
	start := l.pos
	end := start
	typ := token.INT
	digits := func(valid func(byte) bool) {
		for end < len(l.input) && valid(l.input[end]) {
			end++
		}
	}
	if l.input[start] == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		end += 2
		digits(isHexDigit)
	} else {
		digits(isDigit)
		if end+1 < len(l.input) && l.input[end] == '.' && isDigit(l.input[end+1]) {
			typ = token.FLOAT
			end++
			digits(isDigit)
		}
		if end < len(l.input) && (l.input[end] == 'e' || l.input[end] == 'E') {
			typ = token.FLOAT
			end++
			if end < len(l.input) && (l.input[end] == '+' || l.input[end] == '-') {
				end++
			}
			digits(isDigit)
		}
	}
	if end < len(l.input) && isLetter(l.input[end]) {
		bad := l.scanIdentifier(end)
		tok := l.emit(token.ILLEGAL, start, bad, l.input[start:bad])
		return tok, token.Errorf(tok.StartPosition, "invalid number %q", tok.Literal)
	}
	tok := l.emit(typ, start, end, l.input[start:end])
	if typ == token.INT {
		if _, err := ParseInt(tok.Literal); err != nil {
			tok.Type = token.ILLEGAL
			return tok, token.Errorf(tok.StartPosition, "invalid integer %q", tok.Literal)
		}
	} else if _, err := strconv.ParseFloat(tok.Literal, 64); err != nil {
		tok.Type = token.ILLEGAL
		return tok, token.Errorf(tok.StartPosition, "invalid float %q", tok.Literal)
	}
	return tok, nil
}

func (l *Lexer) readString() (token.Token, error) {
	start := l.pos
	end := start + 1
	for end < len(l.input) {
		switch l.input[end] {
		case '\\':
			end += 2
			continue
		case '\n':
			tok := l.emit(token.ILLEGAL, start, end, l.input[start:end])
			return tok, token.Errorf(tok.StartPosition, "unterminated string literal")
		case '"':
			raw := l.input[start : end+1]
			tok := l.emit(token.STRING, start, end+1, "")
			value, err := strconv.Unquote(raw)
			if err != nil {
				tok.Type = token.ILLEGAL
				tok.Literal = raw
				return tok, token.Errorf(tok.StartPosition, "invalid string literal %s", raw)
			}
			tok.Literal = value
			return tok, nil
		}
		end++
	}
	if end > len(l.input) {
		end = len(l.input)
	}
	tok := l.emit(token.ILLEGAL, start, end, l.input[start:end])
	return tok, token.Errorf(tok.StartPosition, "unterminated string literal")
}

// ParseInt returns the value of an INT literal, which is decimal or has a
// 0x prefix.
func ParseInt(literal string) (int64, error) {
	if len(literal) > 2 && literal[0] == '0' && (literal[1] == 'x' || literal[1] == 'X') {
		v, err := strconv.ParseUint(literal[2:], 16, 64)
		return int64(v), err
	}
	return strconv.ParseInt(literal, 10, 64)
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}
