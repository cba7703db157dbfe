// Package constpool builds the constant pool of a function.
//
// Entries are deduplicated by value and keep their index once assigned.
// Indices are split into size classes so that operands referencing the
// pool stay as narrow as possible: the first 256 entries are reachable with
// a one byte operand, the next with two bytes and the rest with four.
// Entries can be reserved ahead of time, either as deferred slots that are
// filled later or as reservations whose size class is all that is known
// until the value is committed.
package constpool

import (
	"math"
	"reflect"

	"github.com/risor-io/regasm/errz"
	"github.com/risor-io/regasm/op"
)

// Keyer is implemented by values that are deduplicated by a derived key
// instead of by themselves. The key must be comparable.
type Keyer interface {
	PoolKey() any
}

// HoleValue pads unused indices in the finalized pool.
type HoleValue struct{}

func (HoleValue) String() string { return "<hole>" }

// Hole is the padding value of the finalized pool.
var Hole = HoleValue{}

type entryState uint8

const (
	stateFilled entryState = iota
	stateDeferred
)

type entry struct {
	value any
	state entryState
}

type slice struct {
	start    int
	capacity int
	size     op.OperandSize
	entries  []entry
	reserved int
}

func (s *slice) available() int {
	return s.capacity - len(s.entries) - s.reserved
}

func (s *slice) contains(index int) bool {
	return index >= s.start && index < s.start+len(s.entries)
}

type floatKey uint64

type float32Key uint32

type keyedKey struct{ key any }

type nilKey struct{}

// Builder accumulates constant pool entries.
type Builder struct {
	slices []*slice
	index  map[any]int
}

// New returns an empty pool with the full 32-bit index space.
func New() *Builder {
	return NewWithCapacity(math.MaxUint32)
}

// NewWithCapacity returns an empty pool holding at most capacity entries.
func NewWithCapacity(capacity int) *Builder {
	b := &Builder{index: map[any]int{}}
	bounds := []struct {
		start, end int
		size       op.OperandSize
	}{
		{0, 1 << 8, op.SizeByte},
		{1 << 8, 1 << 16, op.SizeShort},
		{1 << 16, math.MaxUint32, op.SizeQuad},
	}
	for _, bound := range bounds {
		end := bound.end
		if end > capacity {
			end = capacity
		}
		n := end - bound.start
		if n < 0 {
			n = 0
		}
		b.slices = append(b.slices, &slice{
			start:    bound.start,
			capacity: n,
			size:     bound.size,
		})
	}
	return b
}

func keyOf(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nilKey{}, true
	case Keyer:
		return keyedKey{x.PoolKey()}, true
	case float64:
		return floatKey(math.Float64bits(x)), true
	case float32:
		return float32Key(math.Float32bits(x)), true
	}
	if reflect.ValueOf(v).Comparable() {
		return v, true
	}
	return nil, false
}

func (b *Builder) sliceForSize(size op.OperandSize) *slice {
	for _, s := range b.slices {
		if s.size == size {
			return s
		}
	}
	errz.Panicf(errz.E5011, "no constant pool slice for operand size %s", size)
	return nil
}

func (b *Builder) sliceWithRoom(n int) (*slice, error) {
	for _, s := range b.slices {
		if s.available() >= n {
			return s, nil
		}
	}
	return nil, errz.Limitf(errz.E6002, "no room for %d more constant pool entries", n)
}

func (b *Builder) entryAt(index int) *entry {
	for _, s := range b.slices {
		if s.contains(index) {
			return &s.entries[index-s.start]
		}
	}
	return nil
}

func (b *Builder) add(s *slice, e entry) int {
	index := s.start + len(s.entries)
	s.entries = append(s.entries, e)
	return index
}

func (b *Builder) remember(v any, index int) {
	if key, ok := keyOf(v); ok {
		if _, found := b.index[key]; !found {
			b.index[key] = index
		}
	}
}

// Insert returns the index of v, adding it if no equal value is present.
func (b *Builder) Insert(v any) (int, error) {
	key, comparable := keyOf(v)
	if comparable {
		if index, ok := b.index[key]; ok {
			return index, nil
		}
	}
	s, err := b.sliceWithRoom(1)
	if err != nil {
		return 0, err
	}
	index := b.add(s, entry{value: v})
	if comparable {
		b.index[key] = index
	}
	return index, nil
}

// AllocateDeferred reserves an index whose value is supplied later with
// SetDeferred.
func (b *Builder) AllocateDeferred() (int, error) {
	s, err := b.sliceWithRoom(1)
	if err != nil {
		return 0, err
	}
	return b.add(s, entry{state: stateDeferred}), nil
}

// AllocateRange reserves n consecutive deferred indices within one size
// class and returns the first.
func (b *Builder) AllocateRange(n int) (int, error) {
	if n <= 0 {
		errz.Panicf(errz.E5009, "invalid constant range length %d", n)
	}
	s, err := b.sliceWithRoom(n)
	if err != nil {
		return 0, err
	}
	first := s.start + len(s.entries)
	for i := 0; i < n; i++ {
		b.add(s, entry{state: stateDeferred})
	}
	return first, nil
}

// SetDeferred fills a deferred index. Each deferred index is filled
// exactly once.
func (b *Builder) SetDeferred(index int, v any) {
	e := b.entryAt(index)
	if e == nil || e.state != stateDeferred {
		errz.Panicf(errz.E5007, "constant pool index %d is not an unfilled deferred entry", index)
	}
	e.value = v
	e.state = stateFilled
	b.remember(v, index)
}

// IsDeferred returns true if index is reserved but not yet filled.
func (b *Builder) IsDeferred(index int) bool {
	e := b.entryAt(index)
	return e != nil && e.state == stateDeferred
}

// CreateReservedEntry reserves room in the smallest size class that has
// any and returns that class. The reservation is resolved with
// CommitReservedEntry or DiscardReservedEntry.
func (b *Builder) CreateReservedEntry() (op.OperandSize, error) {
	s, err := b.sliceWithRoom(1)
	if err != nil {
		return op.SizeNone, err
	}
	s.reserved++
	return s.size, nil
}

// CommitReservedEntry resolves a reservation of the given size with v. An
// existing equal entry is reused if its index fits the size.
func (b *Builder) CommitReservedEntry(size op.OperandSize, v any) int {
	s := b.releaseReservation(size)
	key, comparable := keyOf(v)
	if comparable {
		if index, ok := b.index[key]; ok {
			if fits, _ := op.SizeForUnsigned(int64(index)); fits <= size {
				return index
			}
		}
	}
	index := b.add(s, entry{value: v})
	if comparable {
		if _, ok := b.index[key]; !ok {
			b.index[key] = index
		}
	}
	return index
}

// DiscardReservedEntry releases a reservation of the given size.
func (b *Builder) DiscardReservedEntry(size op.OperandSize) {
	b.releaseReservation(size)
}

func (b *Builder) releaseReservation(size op.OperandSize) *slice {
	s := b.sliceForSize(size)
	if s.reserved == 0 {
		errz.Panicf(errz.E5011, "no reserved %s constant pool entry", size)
	}
	s.reserved--
	return s
}

// Reserved returns the number of outstanding reservations.
func (b *Builder) Reserved() int {
	n := 0
	for _, s := range b.slices {
		n += s.reserved
	}
	return n
}

// At returns the value at index. Deferred entries report false until
// they are filled.
func (b *Builder) At(index int) (any, bool) {
	e := b.entryAt(index)
	if e == nil || e.state == stateDeferred {
		return nil, false
	}
	return e.value, true
}

// Size returns the length of the finalized pool, holes included.
func (b *Builder) Size() int {
	for i := len(b.slices) - 1; i >= 0; i-- {
		if s := b.slices[i]; len(s.entries) > 0 {
			return s.start + len(s.entries)
		}
	}
	return 0
}

// Finalize returns the pool in index order. Gaps between size classes are
// padded with Hole. Every deferred entry must have been filled.
func (b *Builder) Finalize() []any {
	result := make([]any, b.Size())
	for i := range result {
		result[i] = Hole
	}
	for _, s := range b.slices {
		for i, e := range s.entries {
			if e.state == stateDeferred {
				errz.Panicf(errz.E5007, "constant pool index %d was never filled", s.start+i)
			}
			result[s.start+i] = e.value
		}
	}
	return result
}
