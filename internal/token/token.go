// Package token defines the tokens of the textual assembly listing.
package token

import "fmt"

// Type describes the type of a token as a string.
type Type string

// Position points to a particular location in an input string.
type Position struct {
	Char      int    // byte offset within the file
	LineStart int    // byte offset of the start of the current line
	Line      int    // 0-indexed line number
	Column    int    // 0-indexed column number
	File      string // filename
}

// LineNumber returns the 1-indexed line number for this position in the input.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position in the input.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

// Advance returns a new Position advanced by n bytes on the same line.
func (p Position) Advance(n int) Position {
	return Position{
		Char:      p.Char + n,
		LineStart: p.LineStart,
		Line:      p.Line,
		Column:    p.Column + n,
		File:      p.File,
	}
}

// IsValid returns true if this position has been set.
func (p Position) IsValid() bool {
	return p.File != "" || p.Line > 0 || p.Column > 0 || p.Char > 0
}

// NoPos is the zero value Position, representing an invalid/unset position.
var NoPos = Position{}

// Token represents one token lexed from a listing.
type Token struct {
	Type          Type
	Literal       string
	StartPosition Position
	EndPosition   Position
}

// Token types
const (
	AMPERSAND Type = "&"
	AT        Type = "@"
	COLON     Type = ":"
	COMMA     Type = ","
	DIRECTIVE Type = "DIRECTIVE"
	EOF       Type = "EOF"
	FALSE     Type = "FALSE"
	FLOAT     Type = "FLOAT"
	GT        Type = ">"
	HASH      Type = "#"
	HOLE      Type = "HOLE"
	IDENT     Type = "IDENT"
	ILLEGAL   Type = "ILLEGAL"
	INT       Type = "INT"
	LPAREN    Type = "("
	LT        Type = "<"
	MINUS     Type = "-"
	NEWLINE   Type = "EOL"
	NULL      Type = "NULL"
	RPAREN    Type = ")"
	STRING    Type = "STRING"
	TRUE      Type = "TRUE"
	UNDEFINED Type = "UNDEFINED"
)

// Constant keywords
var keywords = map[string]Type{
	"false":     FALSE,
	"hole":      HOLE,
	"null":      NULL,
	"true":      TRUE,
	"undefined": UNDEFINED,
}

// LookupIdentifier returns the keyword type of identifier, or IDENT.
func LookupIdentifier(identifier string) Type {
	if tok, ok := keywords[identifier]; ok {
		return tok
	}
	return IDENT
}

// Error is an error at a position in a listing.
type Error struct {
	Position Position
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Position.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Position.File, e.Position.LineNumber(), e.Position.ColumnNumber(), e.Message)
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Position.LineNumber(), e.Position.ColumnNumber(), e.Message)
}

// FriendlyErrorMessage returns the message without its position.
func (e *Error) FriendlyErrorMessage() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap returns an Error at pos caused by err.
func Wrap(pos Position, err error) *Error {
	return &Error{Position: pos, Message: err.Error(), Cause: err}
}

// Errorf returns an Error at pos.
func Errorf(pos Position, format string, args ...any) *Error {
	return &Error{Position: pos, Message: fmt.Sprintf(format, args...)}
}
