// Package srcpos records the mapping from bytecode offsets to source
// positions.
package srcpos

import "fmt"

// NoSourcePosition marks the absence of a position.
const NoSourcePosition = -1

// Kind distinguishes statement positions from expression positions. The
// zero value means no position.
type Kind uint8

const (
	None Kind = iota
	Expression
	Statement
)

// SourceInfo is the position attached to a single instruction.
type SourceInfo struct {
	Position int
	Kind     Kind
}

// NewStatement returns statement info at pos.
func NewStatement(pos int) SourceInfo {
	return SourceInfo{Position: pos, Kind: Statement}
}

// NewExpression returns expression info at pos.
func NewExpression(pos int) SourceInfo {
	return SourceInfo{Position: pos, Kind: Expression}
}

// NoSourceInfo returns info that carries no position.
func NoSourceInfo() SourceInfo {
	return SourceInfo{Position: NoSourcePosition}
}

// IsValid returns true if the info carries a position.
func (s SourceInfo) IsValid() bool {
	return s.Kind != None && s.Position != NoSourcePosition
}

// IsStatement returns true for a valid statement position.
func (s SourceInfo) IsStatement() bool {
	return s.IsValid() && s.Kind == Statement
}

// IsExpression returns true for a valid expression position.
func (s SourceInfo) IsExpression() bool {
	return s.IsValid() && s.Kind == Expression
}

// AsStatement returns the info promoted to a statement position.
func (s SourceInfo) AsStatement() SourceInfo {
	if !s.IsValid() {
		return s
	}
	return NewStatement(s.Position)
}

// AsExpression returns the info demoted to an expression position.
func (s SourceInfo) AsExpression() SourceInfo {
	if !s.IsValid() {
		return s
	}
	return NewExpression(s.Position)
}

func (s SourceInfo) String() string {
	switch {
	case s.IsStatement():
		return fmt.Sprintf("S>%d", s.Position)
	case s.IsExpression():
		return fmt.Sprintf("E>%d", s.Position)
	}
	return ""
}
