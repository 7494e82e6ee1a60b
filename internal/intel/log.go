// Package intel provides the bounded event journal the player reads to
// follow what happened. It is narration, not an audit trail: once the ring
// is full the oldest entry is dropped.
package intel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries kept before eviction.
const DefaultCapacity = 200

// MaxCapacity bounds the capacity a decoded log may ask for.
const MaxCapacity = 10000

// Kind classifies an entry.
type Kind string

const (
	KindMove      Kind = "MOVE"
	KindScan      Kind = "SCAN"
	KindMine      Kind = "MINE"
	KindBuild     Kind = "BUILD"
	KindDismantle Kind = "DISMANTLE"
	KindAlert     Kind = "ALERT"
	KindSystem    Kind = "SYSTEM"
	KindBoost     Kind = "BOOST"
	KindInvasion  Kind = "INVASION"
)

// Entry is one line of the journal.
type Entry struct {
	ID        string `json:"id"`
	Seq       uint64 `json:"seq"` // Monotonic across evictions
	Turn      int    `json:"turn"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
	Kind      Kind   `json:"kind"`
	Text      string `json:"text"`
}

// Log is a fixed-capacity ring of entries with O(1) append and eviction.
type Log struct {
	buf     []Entry
	head    int // Index of the oldest entry
	size    int
	nextSeq uint64
}

// now stamps entries. Replaced in tests.
var now = time.Now

// NewLog returns an empty log holding at most capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Entry, capacity), nextSeq: 1}
}

// Cap returns the capacity.
func (l *Log) Cap() int {
	return len(l.buf)
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	return l.size
}

// Append records a new entry and returns it. When full, the oldest entry is
// overwritten.
func (l *Log) Append(turn int, kind Kind, text string) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Seq:       l.nextSeq,
		Turn:      turn,
		Timestamp: now().UnixMilli(),
		Kind:      kind,
		Text:      text,
	}
	l.nextSeq++
	l.push(e)
	return e
}

func (l *Log) push(e Entry) {
	if l.size < len(l.buf) {
		l.buf[(l.head+l.size)%len(l.buf)] = e
		l.size++
		return
	}
	l.buf[l.head] = e
	l.head = (l.head + 1) % len(l.buf)
}

// Entries returns a copy of the entries, oldest first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return out
}

// Last returns the most recent entry and true, or false when empty.
func (l *Log) Last() (Entry, bool) {
	if l.size == 0 {
		return Entry{}, false
	}
	return l.buf[(l.head+l.size-1)%len(l.buf)], true
}

// Since returns entries with a sequence number greater than seq, oldest first.
func (l *Log) Since(seq uint64) []Entry {
	var out []Entry
	for i := 0; i < l.size; i++ {
		e := l.buf[(l.head+i)%len(l.buf)]
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// snapshot is the serialized form: a plain ordered slice.
type snapshot struct {
	Capacity int     `json:"capacity"`
	NextSeq  uint64  `json:"next_seq"`
	Entries  []Entry `json:"entries"`
}

// MarshalJSON writes the log as an ordered entry list.
func (l *Log) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		Capacity: len(l.buf),
		NextSeq:  l.nextSeq,
		Entries:  l.Entries(),
	})
}

// UnmarshalJSON rebuilds the ring from an entry list. If the document holds
// more entries than the capacity, only the newest are kept.
func (l *Log) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	capacity := snap.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity > MaxCapacity {
		return fmt.Errorf("log capacity %d exceeds %d", capacity, MaxCapacity)
	}
	fresh := NewLog(capacity)
	for _, e := range snap.Entries {
		fresh.push(e)
		if e.Seq >= fresh.nextSeq {
			fresh.nextSeq = e.Seq + 1
		}
	}
	if snap.NextSeq > fresh.nextSeq {
		fresh.nextSeq = snap.NextSeq
	}
	*l = *fresh
	return nil
}
