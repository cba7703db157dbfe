package srcpos

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/risor-io/regasm/errz"
)

// Entry maps an instruction offset to a source position.
type Entry struct {
	Offset      int  `json:"offset"`
	Position    int  `json:"position"`
	IsStatement bool `json:"is_statement,omitempty"`
}

// Info returns the entry's position as SourceInfo.
func (e Entry) Info() SourceInfo {
	if e.IsStatement {
		return NewStatement(e.Position)
	}
	return NewExpression(e.Position)
}

// RecordingMode controls whether positions are kept.
type RecordingMode uint8

const (
	RecordSourcePositions RecordingMode = iota
	OmitSourcePositions
)

// Builder collects entries in offset order.
type Builder struct {
	mode    RecordingMode
	entries []Entry
}

// NewBuilder returns an empty table builder.
func NewBuilder(mode RecordingMode) *Builder {
	return &Builder{mode: mode}
}

// Omit returns true if positions are discarded.
func (b *Builder) Omit() bool {
	return b.mode == OmitSourcePositions
}

// AddPosition records info for the instruction at offset. Offsets must not
// decrease. When an entry already exists at offset, a statement replaces an
// expression and anything else is dropped.
func (b *Builder) AddPosition(offset int, info SourceInfo) {
	if b.Omit() || !info.IsValid() {
		return
	}
	entry := Entry{Offset: offset, Position: info.Position, IsStatement: info.IsStatement()}
	if n := len(b.entries); n > 0 {
		last := &b.entries[n-1]
		if offset < last.Offset {
			errz.Panicf(errz.E5009, "source position offset %d precedes %d", offset, last.Offset)
		}
		if offset == last.Offset {
			if entry.IsStatement && !last.IsStatement {
				*last = entry
			}
			return
		}
	}
	b.entries = append(b.entries, entry)
}

// Len returns the number of entries.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Finalize returns a copy of the entries.
func (b *Builder) Finalize() []Entry {
	if len(b.entries) == 0 {
		return nil
	}
	entries := make([]Entry, len(b.entries))
	copy(entries, b.entries)
	return entries
}

// Lookup returns the entry that applies to the instruction at offset: the
// last entry at or before it.
func Lookup(entries []Entry, offset int) (Entry, bool) {
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Offset > offset
	})
	if i == 0 {
		return Entry{}, false
	}
	return entries[i-1], true
}

// Encode packs entries as deltas. Each entry is an unsigned varint holding
// the offset delta shifted left by one with the statement flag in the low
// bit, followed by a signed varint holding the position delta.
func Encode(entries []Entry) []byte {
	var buf []byte
	var offset, position int
	for _, e := range entries {
		flag := uint64(0)
		if e.IsStatement {
			flag = 1
		}
		buf = binary.AppendUvarint(buf, uint64(e.Offset-offset)<<1|flag)
		buf = binary.AppendVarint(buf, int64(e.Position-position))
		offset, position = e.Offset, e.Position
	}
	return buf
}

// Decode reverses Encode.
func Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	var offset, position int
	for len(data) > 0 {
		head, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, fmt.Errorf("source position table: invalid offset delta at entry %d", len(entries))
		}
		data = data[n:]
		delta, n := binary.Varint(data)
		if n <= 0 {
			return nil, fmt.Errorf("source position table: invalid position delta at entry %d", len(entries))
		}
		data = data[n:]
		offset += int(head >> 1)
		position += int(delta)
		entries = append(entries, Entry{
			Offset:      offset,
			Position:    position,
			IsStatement: head&1 == 1,
		})
	}
	return entries, nil
}
