// Package asm encodes instructions into a variable-width byte stream.
//
// The Writer chooses the narrowest operand scale for every instruction,
// emits Wide and ExtraWide prefixes as needed, drops unreachable
// instructions, retracts accumulator loads that are immediately clobbered
// and resolves jumps to labels. Forward jumps are emitted with a
// placeholder operand whose width is fixed by a constant pool reservation,
// so patching never has to move code: a displacement that does not fit the
// placeholder is stored in the constant pool instead and the jump is
// rewritten to its constant variant.
package asm

import (
	"fmt"
	"strings"

	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/srcpos"
)

// Node is an instruction waiting to be encoded.
type Node struct {
	Code     op.Code
	Operands []int64
	Source   srcpos.SourceInfo
}

// NewNode returns a node without source info.
func NewNode(code op.Code, operands ...int64) Node {
	return Node{Code: code, Operands: operands}
}

// WithSource returns a copy of the node carrying source info.
func (n Node) WithSource(info srcpos.SourceInfo) Node {
	n.Source = info
	return n
}

func (n Node) String() string {
	var b strings.Builder
	b.WriteString(n.Code.String())
	for _, v := range n.Operands {
		fmt.Fprintf(&b, " %d", v)
	}
	if n.Source.IsValid() {
		fmt.Fprintf(&b, " (%s)", n.Source)
	}
	return b.String()
}

func (n Node) check(displacement bool) {
	want := op.GetInfo(n.Code).OperandCount()
	if displacement {
		want--
	}
	if len(n.Operands) != want {
		errz.Panicf(errz.E5009, "%s takes %d operands, got %d", n.Code, want, len(n.Operands))
	}
}
