package bytecode

import (
	"fmt"
	"slices"
	"strings"
)

// Function is a function template stored in a constant pool. Closures are
// created from it at run time.
type Function struct {
	id         string
	name       string
	parameters []string
	program    *Program
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	ID         string
	Name       string
	Parameters []string
	Program    *Program
}

// NewFunction creates a new immutable Function from the given parameters.
func NewFunction(params FunctionParams) *Function {
	return &Function{
		id:         params.ID,
		name:       params.Name,
		parameters: slices.Clone(params.Parameters),
		program:    params.Program,
	}
}

// ID returns the unique identifier for this function.
func (f *Function) ID() string {
	return f.id
}

// Name returns the function name, or empty string for anonymous functions.
func (f *Function) Name() string {
	return f.name
}

// Program returns the assembled body of the function.
func (f *Function) Program() *Program {
	return f.program
}

// ParameterCount returns the number of parameters.
func (f *Function) ParameterCount() int {
	return len(f.parameters)
}

// Parameter returns the name of the parameter at the given index.
func (f *Function) Parameter(index int) string {
	return f.parameters[index]
}

// PoolKey deduplicates templates by id in the constant pool.
func (f *Function) PoolKey() any {
	return "function:" + f.id
}

// String returns a string representation of the function.
func (f *Function) String() string {
	name := f.name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("func %s(%s)", name, strings.Join(f.parameters, ", "))
}
