// Package register models interpreter frame registers and the
// stack-disciplined allocator for temporaries.
//
// Register indices are signed. Locals and temporaries are non-negative,
// locals first. Negative indices address the special frame slots and the
// parameters, which sit below them.
package register

import (
	"fmt"
	"math"

	"github.com/risor-io/regasm/errz"
)

// Register is a frame slot addressed by an instruction operand.
type Register int32

const (
	// FunctionClosure holds the closure of the running function.
	FunctionClosure Register = -1
	// CurrentContext holds the current context.
	CurrentContext Register = -2
	// Invalid is never a valid operand.
	Invalid Register = math.MinInt32

	lastParameter Register = -3
)

// FromParameterIndex returns the register holding parameter i of a function
// with paramCount parameters. An index outside [0,paramCount) panics.
func FromParameterIndex(i, paramCount int) Register {
	if i < 0 || i >= paramCount {
		errz.Panicf(errz.E5003, "parameter %d out of range [0,%d)", i, paramCount)
	}
	return lastParameter - Register(paramCount) + Register(i) + 1
}

// Index returns the raw operand value.
func (r Register) Index() int {
	return int(r)
}

// IsParameter returns true if r addresses a parameter slot.
func (r Register) IsParameter() bool {
	return r <= lastParameter && r != Invalid
}

// ToParameterIndex is the inverse of FromParameterIndex.
func (r Register) ToParameterIndex(paramCount int) int {
	return int(r-lastParameter) + paramCount - 1
}

// Name returns the assembly name of the register: rN for locals and
// temporaries, aN for parameters.
func (r Register) Name(paramCount int) string {
	if r.IsParameter() {
		return fmt.Sprintf("a%d", r.ToParameterIndex(paramCount))
	}
	return r.String()
}

func (r Register) String() string {
	switch {
	case r == FunctionClosure:
		return "<closure>"
	case r == CurrentContext:
		return "<context>"
	case r == Invalid:
		return "<invalid>"
	case r.IsParameter():
		return fmt.Sprintf("<param %d>", int(lastParameter-r))
	}
	return fmt.Sprintf("r%d", int(r))
}

// List is a contiguous run of registers.
type List struct {
	first Register
	count int
}

// NewList returns the list of count registers starting at first.
func NewList(first Register, count int) List {
	return List{first: first, count: count}
}

// EmptyList returns a list with no registers.
func EmptyList() List {
	return List{first: Invalid}
}

// First returns the first register. It is Invalid for an empty list that
// was not allocated.
func (l List) First() Register { return l.first }

// Last returns the last register of a non-empty list.
func (l List) Last() Register { return l.first + Register(l.count) - 1 }

// Count returns the number of registers in the list.
func (l List) Count() int { return l.count }

// At returns register i of the list.
func (l List) At(i int) Register {
	if i < 0 || i >= l.count {
		panic(fmt.Sprintf("register list index %d out of range [0,%d)", i, l.count))
	}
	return l.first + Register(i)
}

// Truncate returns the first n registers of the list.
func (l List) Truncate(n int) List {
	if n > l.count {
		n = l.count
	}
	return List{first: l.first, count: n}
}

// PopLeft returns the list without its first register.
func (l List) PopLeft() List {
	if l.count == 0 {
		return l
	}
	return List{first: l.first + 1, count: l.count - 1}
}

// Contains returns true if r is part of the list.
func (l List) Contains(r Register) bool {
	return l.count > 0 && r >= l.first && r <= l.Last()
}

func (l List) String() string {
	if l.count == 0 {
		return "()"
	}
	return fmt.Sprintf("%s-%s", l.first, l.Last())
}
