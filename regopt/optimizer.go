// Package regopt removes redundant register transfers by remembering
// which register currently holds the same value as the accumulator.
package regopt

import (
	"github.com/rs/zerolog"

	"github.com/risor-io/regasm/op"
	"github.com/risor-io/regasm/register"
)

// Optimizer tracks a single accumulator mirror. A load of the mirrored
// register is absorbed because the accumulator already holds its value.
type Optimizer struct {
	mirror   register.Register
	valid    bool
	absorbed int
	log      zerolog.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used for trace events.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Optimizer) {
		o.log = log
	}
}

// New returns an optimizer observing the allocator, so that equivalences
// involving released temporaries are forgotten.
func New(alloc *register.Allocator, opts ...Option) *Optimizer {
	o := &Optimizer{mirror: register.Invalid, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if alloc != nil {
		alloc.SetObserver(o)
	}
	return o
}

// Absorbed returns the number of transfers that did not need to be emitted.
func (o *Optimizer) Absorbed() int {
	return o.absorbed
}

// Mirror returns the register known to equal the accumulator.
func (o *Optimizer) Mirror() (register.Register, bool) {
	return o.mirror, o.valid
}

func (o *Optimizer) set(r register.Register) {
	o.mirror = r
	o.valid = true
}

func (o *Optimizer) forget() {
	o.mirror = register.Invalid
	o.valid = false
}

// DoLdar reports whether a load of r into the accumulator must be emitted.
func (o *Optimizer) DoLdar(r register.Register) bool {
	if o.valid && o.mirror == r {
		o.absorbed++
		o.log.Trace().Str("register", r.String()).Msg("absorbed accumulator load")
		return false
	}
	o.set(r)
	return true
}

// DoStar reports whether a store of the accumulator into r must be
// emitted.
func (o *Optimizer) DoStar(r register.Register) bool {
	o.set(r)
	return true
}

// DoMov reports whether a move from one register to another must be
// emitted.
func (o *Optimizer) DoMov(from, to register.Register) bool {
	if from == to {
		o.absorbed++
		return false
	}
	if o.valid && o.mirror == to {
		o.forget()
	}
	return true
}

// PrepareForBytecode is called before any instruction other than a
// register transfer.
func (o *Optimizer) PrepareForBytecode(code op.Code) {
	if op.GetInfo(code).Accumulator.Writes() {
		o.forget()
	}
}

// PrepareOutputRegister is called for every register an instruction
// writes.
func (o *Optimizer) PrepareOutputRegister(r register.Register) {
	if o.valid && o.mirror == r {
		o.forget()
	}
}

// PrepareOutputRegisterList is called for every register range an
// instruction writes.
func (o *Optimizer) PrepareOutputRegisterList(l register.List) {
	if o.valid && l.Contains(o.mirror) {
		o.forget()
	}
}

// Flush forgets everything at a basic block boundary.
func (o *Optimizer) Flush() {
	o.forget()
}

// RegisterAllocated implements register.Observer.
func (o *Optimizer) RegisterAllocated(r register.Register) {
	o.PrepareOutputRegister(r)
}

// RegisterListAllocated implements register.Observer.
func (o *Optimizer) RegisterListAllocated(l register.List) {
	o.PrepareOutputRegisterList(l)
}

// RegisterListFreed implements register.Observer.
func (o *Optimizer) RegisterListFreed(l register.List) {
	o.PrepareOutputRegisterList(l)
}
