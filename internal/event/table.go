package event

import (
	"encoding/json"
	"sort"
)

// Table maps a list index to the event extracted for it. The first event
// inserted for an index wins; later inserts are ignored. A Table is filled
// by one harvest loop and read after it; it does no locking.
type Table struct {
	events map[int]Event
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{events: make(map[int]Event)}
}

// InsertIfAbsent stores e under index unless the index is taken. It reports
// whether e was stored.
func (t *Table) InsertIfAbsent(index int, e Event) bool {
	if _, ok := t.events[index]; ok {
		return false
	}
	t.events[index] = e
	return true
}

// Has reports whether index already holds an event.
func (t *Table) Has(index int) bool {
	_, ok := t.events[index]
	return ok
}

// Get returns the event stored under index.
func (t *Table) Get(index int) (Event, bool) {
	e, ok := t.events[index]
	return e, ok
}

// Len returns the number of stored events.
func (t *Table) Len() int {
	return len(t.events)
}

// Entry pairs an event with its list index.
type Entry struct {
	Index int
	Event Event
}

// Entries returns every event ordered by index.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.events))
	for idx, e := range t.events {
		out = append(out, Entry{Index: idx, Event: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Records returns the export form of every event, ordered by index.
func (t *Table) Records() []Record {
	entries := t.Entries()
	out := make([]Record, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Event.Record(entry.Index))
	}
	return out
}

// MarshalJSON writes the table as an array of records ordered by index.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Records())
}
