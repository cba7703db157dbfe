// Package handler builds the exception handler table of a function.
package handler

import (
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/register"
)

// CatchPrediction tells the runtime how an exception raised in a try
// region is expected to be handled.
type CatchPrediction uint8

const (
	Uncaught CatchPrediction = iota
	Caught
	Promise
	Desugaring
	AsyncAwait
)

func (p CatchPrediction) String() string {
	switch p {
	case Uncaught:
		return "uncaught"
	case Caught:
		return "caught"
	case Promise:
		return "promise"
	case Desugaring:
		return "desugaring"
	case AsyncAwait:
		return "async-await"
	}
	return "unknown"
}

// Entry describes a try region and the handler that covers it.
type Entry struct {
	TryStart   int               // Offset of the first instruction in the region
	TryEnd     int               // Offset just past the region
	Handler    int               // Offset of the handler
	Context    register.Register // Register holding the context on entry
	Prediction CatchPrediction
}

type record struct {
	Entry
	hasStart   bool
	hasEnd     bool
	hasHandler bool
}

// Builder collects handler entries while instructions are emitted.
type Builder struct {
	records []record
}

// NewBuilder returns an empty handler table builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewHandlerEntry allocates a new entry and returns its id.
func (b *Builder) NewHandlerEntry() int {
	b.records = append(b.records, record{Entry: Entry{Context: register.Invalid}})
	return len(b.records) - 1
}

func (b *Builder) get(id int) *record {
	if id < 0 || id >= len(b.records) {
		errz.Panicf(errz.E5005, "unknown handler id %d", id)
	}
	return &b.records[id]
}

// SetTryRegionStart marks the beginning of the try region of entry id.
func (b *Builder) SetTryRegionStart(id, offset int, context register.Register) {
	r := b.get(id)
	if r.hasStart {
		errz.Panicf(errz.E5005, "try region %d already started", id)
	}
	r.TryStart = offset
	r.Context = context
	r.hasStart = true
}

// SetTryRegionEnd marks the end of the try region of entry id.
func (b *Builder) SetTryRegionEnd(id, offset int) {
	r := b.get(id)
	if !r.hasStart {
		errz.Panicf(errz.E5005, "try region %d ended before it started", id)
	}
	if r.hasEnd {
		errz.Panicf(errz.E5005, "try region %d already ended", id)
	}
	r.TryEnd = offset
	r.hasEnd = true
}

// SetHandlerTarget marks the handler of entry id.
func (b *Builder) SetHandlerTarget(id, offset int, prediction CatchPrediction) {
	r := b.get(id)
	if r.hasHandler {
		errz.Panicf(errz.E5005, "handler %d already marked", id)
	}
	r.Handler = offset
	r.Prediction = prediction
	r.hasHandler = true
}

// Len returns the number of allocated entries.
func (b *Builder) Len() int {
	return len(b.records)
}

// Validate reports every entry that is missing a mark.
func (b *Builder) Validate() error {
	var result *multierror.Error
	for id, r := range b.records {
		switch {
		case !r.hasStart:
			result = multierror.Append(result, errz.Invariantf(errz.E5005, "handler %d has no try region start", id))
		case !r.hasEnd:
			result = multierror.Append(result, errz.Invariantf(errz.E5005, "handler %d has no try region end", id))
		case !r.hasHandler:
			result = multierror.Append(result, errz.Invariantf(errz.E5005, "handler %d has no handler target", id))
		}
	}
	return result.ErrorOrNil()
}

// Finalize returns the entries sorted by try start. Entries with equal
// starts keep their allocation order, so outer regions precede the inner
// regions they enclose when they are allocated first.
func (b *Builder) Finalize() []Entry {
	if err := b.Validate(); err != nil {
		panic(&errz.InvariantError{Code: errz.E5005, Message: err.Error(), Cause: err})
	}
	entries := make([]Entry, len(b.records))
	for i, r := range b.records {
		entries[i] = r.Entry
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TryStart < entries[j].TryStart
	})
	return entries
}
