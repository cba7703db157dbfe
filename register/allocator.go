package register

import (
	"github.com/risor-io/regasm/errz"
)

// Observer is notified about temporary register lifetimes.
type Observer interface {
	RegisterAllocated(r Register)
	RegisterListAllocated(l List)
	RegisterListFreed(l List)
}

// Allocator hands out temporaries above the fixed locals. Temporaries are
// released in strict LIFO order.
type Allocator struct {
	paramCount  int
	localCount  int
	next        int
	maxNext     int
	outstanding []List
	observer    Observer
}

// NewAllocator returns an allocator for a frame with the given number of
// parameters and locals.
func NewAllocator(paramCount, localCount int) *Allocator {
	if paramCount < 0 || localCount < 0 {
		errz.Panicf(errz.E5009, "negative register count (params=%d, locals=%d)", paramCount, localCount)
	}
	return &Allocator{
		paramCount: paramCount,
		localCount: localCount,
		next:       localCount,
		maxNext:    localCount,
	}
}

// SetObserver installs the allocation observer.
func (a *Allocator) SetObserver(o Observer) {
	a.observer = o
}

// NewRegister acquires a single temporary.
func (a *Allocator) NewRegister() Register {
	l := a.acquire(1)
	if a.observer != nil {
		a.observer.RegisterAllocated(l.first)
	}
	return l.first
}

// Acquire acquires count contiguous temporaries.
func (a *Allocator) Acquire(count int) List {
	if count < 0 {
		errz.Panicf(errz.E5009, "negative register list length %d", count)
	}
	l := a.acquire(count)
	if a.observer != nil {
		a.observer.RegisterListAllocated(l)
	}
	return l
}

func (a *Allocator) acquire(count int) List {
	l := List{first: Register(a.next), count: count}
	a.next += count
	if a.next > a.maxNext {
		a.maxNext = a.next
	}
	a.outstanding = append(a.outstanding, l)
	return l
}

// Grow extends the most recently acquired list by one register and returns
// the new register.
func (a *Allocator) Grow(l List) (List, Register) {
	top := len(a.outstanding) - 1
	if top < 0 || a.outstanding[top] != l {
		errz.Panicf(errz.E5004, "can only grow the most recent register list, got %s", l)
	}
	r := Register(a.next)
	if l.count == 0 {
		l.first = r
	}
	l.count++
	a.outstanding[top] = l
	a.next++
	if a.next > a.maxNext {
		a.maxNext = a.next
	}
	if a.observer != nil {
		a.observer.RegisterAllocated(r)
	}
	return l, r
}

// Release frees the most recently acquired list.
func (a *Allocator) Release(l List) {
	top := len(a.outstanding) - 1
	if top < 0 || a.outstanding[top] != l {
		errz.Panicf(errz.E5004, "release of %s is out of order", l)
	}
	a.outstanding = a.outstanding[:top]
	a.next -= l.count
	if a.observer != nil && l.count > 0 {
		a.observer.RegisterListFreed(l)
	}
}

// ReleaseRegister frees a register returned by NewRegister.
func (a *Allocator) ReleaseRegister(r Register) {
	a.Release(List{first: r, count: 1})
}

// ParameterCount returns the number of parameters of the frame.
func (a *Allocator) ParameterCount() int { return a.paramCount }

// LocalCount returns the number of fixed locals of the frame.
func (a *Allocator) LocalCount() int { return a.localCount }

// NextIndex returns the index of the next temporary.
func (a *Allocator) NextIndex() int { return a.next }

// TemporaryCount returns the number of live temporaries.
func (a *Allocator) TemporaryCount() int { return a.next - a.localCount }

// MaxTemporaryCount returns the highest number of simultaneously live
// temporaries seen so far.
func (a *Allocator) MaxTemporaryCount() int { return a.maxNext - a.localCount }

// FrameSize returns the number of non-parameter registers the frame needs.
func (a *Allocator) FrameSize() int { return a.maxNext }

// Outstanding returns the number of unreleased acquisitions.
func (a *Allocator) Outstanding() int { return len(a.outstanding) }

// IsLive returns true if r is a temporary that is currently acquired.
func (a *Allocator) IsLive(r Register) bool {
	return int(r) >= a.localCount && int(r) < a.next
}

// NewScope opens an allocation scope. Closing it releases everything
// acquired since it was opened.
func (a *Allocator) NewScope() *Scope {
	return &Scope{alloc: a, mark: len(a.outstanding)}
}

// Scope releases temporaries in bulk.
type Scope struct {
	alloc  *Allocator
	mark   int
	closed bool
}

// Close releases every list acquired since the scope was opened, most
// recent first. Closing twice is a no-op.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if len(s.alloc.outstanding) < s.mark {
		errz.Panicf(errz.E5004, "scope closed after outer registers were released")
	}
	for len(s.alloc.outstanding) > s.mark {
		s.alloc.Release(s.alloc.outstanding[len(s.alloc.outstanding)-1])
	}
}
