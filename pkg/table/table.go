// Package table implements the open-addressed hash table spec.md §4.7
// requires: power-of-two capacity, linear probing, tombstones, and a
// configurable max load factor. It backs both string interning (where it
// is a weak table the GC prunes every cycle) and the VM's globals.
//
// The reference design (table.c) keys entries by ObjString pointer and
// compares by hash. Go's language-level map would hide the tombstone
// behavior spec.md calls out as a testable property ("no phantom
// tombstones"), so this is a from-scratch reimplementation rather than a
// map[string]Value wrapper — the one place in loxgo where a hand-rolled
// data structure is mandated by the spec itself rather than chosen over a
// library.
package table

import "github.com/kristofer/loxgo/pkg/value"

const maxLoad = 0.75

type entry struct {
	key       *value.ObjString
	val       value.Value
	tombstone bool
}

// Table maps interned-string keys to Values.
type Table struct {
	entries []entry
	count   int // live entries + tombstones
	live    int // live entries only
}

// New returns an empty Table.
func New() *Table { return &Table{} }

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int { return t.live }

func capFor(n int) int {
	c := 8
	for c < n {
		c *= 2
	}
	return c
}

// Get returns the value stored for key, if any.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	e := &t.entries[t.find(key)]
	if e.key == nil {
		return value.Nil, false
	}
	return e.val, true
}

// Set stores val under key, growing the table first if needed. It returns
// true if this inserted a brand-new key.
func (t *Table) Set(key *value.ObjString, val value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow(capFor((t.count + 1) * 2))
	}
	idx := t.find(key)
	e := &t.entries[idx]
	isNew := e.key == nil
	if isNew && !e.tombstone {
		t.count++
	}
	if isNew {
		t.live++
	}
	e.key = key
	e.val = val
	e.tombstone = false
	return isNew
}

// Delete removes key, leaving a tombstone behind so later probe chains
// through this slot keep working (spec.md's "no phantom tombstones"
// property: Get after Delete must not resurrect a different key that
// happened to collide on the way to this slot).
func (t *Table) Delete(key *value.ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.find(key)
	e := &t.entries[idx]
	if e.key == nil {
		return false
	}
	e.key = nil
	e.tombstone = true
	t.live--
	return true
}

// find performs the open-addressed probe for key, returning the index into
// t.entries of either the slot already holding key, or the first tombstone
// or empty slot encountered (so Set can reuse it), per table.c's
// findEntry.
func (t *Table) find(key *value.ObjString) int {
	cap := len(t.entries)
	idx := int(key.Hash) & (cap - 1)
	tombstone := -1
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tombstone {
				if tombstone != -1 {
					return tombstone
				}
				return idx
			}
			if tombstone == -1 {
				tombstone = idx
			}
		} else if e.key == key {
			return idx
		}
		idx = (idx + 1) & (cap - 1)
	}
}

func (t *Table) grow(newCap int) {
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	t.live = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		dst := &t.entries[t.find(e.key)]
		dst.key = e.key
		dst.val = e.val
		t.count++
		t.live++
	}
}

// SlotOf resolves key's current index via a normal hashed probe, for a
// caller (the VM's *_I global opcodes) that wants to remember the slot and
// skip the probe on future accesses via FastGet/FastSet. ok is false if
// key is not present.
func (t *Table) SlotOf(key *value.ObjString) (int, bool) {
	if len(t.entries) == 0 {
		return -1, false
	}
	idx := t.find(key)
	if t.entries[idx].key == nil {
		return -1, false
	}
	return idx, true
}

// FastGet returns the value at a previously cached slot without hashing or
// probing, but only if that slot still holds key — a table grow relocates
// every entry, so a cached index from before a grow will either be out of
// range or hold a different key, and this check is what makes a stale
// cache safe rather than a dangling-index bug. Callers must fall back to
// Get (and refresh their cache via SlotOf) when ok is false.
func (t *Table) FastGet(idx int, key *value.ObjString) (value.Value, bool) {
	if idx < 0 || idx >= len(t.entries) {
		return value.Nil, false
	}
	e := &t.entries[idx]
	if e.key != key {
		return value.Nil, false
	}
	return e.val, true
}

// FastSet stores val at a previously cached slot without hashing or
// probing, under the same staleness contract as FastGet: it only succeeds
// if the slot still holds key, which also means key already existed (so,
// unlike Set, there is no new-insertion case to report).
func (t *Table) FastSet(idx int, key *value.ObjString, val value.Value) bool {
	if idx < 0 || idx >= len(t.entries) {
		return false
	}
	e := &t.entries[idx]
	if e.key != key {
		return false
	}
	e.val = val
	return true
}

// FindString probes the table for a string with the given content and
// hash without allocating a new ObjString, letting the interner check
// "have I already seen this exact text" before constructing one.
func (t *Table) FindString(chars string, hash uint32) *value.ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	cap := len(t.entries)
	idx := int(hash) & (cap - 1)
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) & (cap - 1)
	}
}

// Keys returns every live key, used by the GC's weak-table pruning pass
// (delete entries whose key is unmarked) and by globals-root marking.
func (t *Table) Keys() []*value.ObjString {
	keys := make([]*value.ObjString, 0, t.live)
	for i := range t.entries {
		if t.entries[i].key != nil {
			keys = append(keys, t.entries[i].key)
		}
	}
	return keys
}

// Values returns every live value, used by globals-root marking.
func (t *Table) Values() []value.Value {
	vals := make([]value.Value, 0, t.live)
	for i := range t.entries {
		if t.entries[i].key != nil {
			vals = append(vals, t.entries[i].val)
		}
	}
	return vals
}

// Strings wraps a Table as the weak string-interning pool: findString
// check-then-insert, with FNV-1a hashing done up front by the caller.
type Strings struct {
	t *Table
}

// NewStrings returns an empty interning pool.
func NewStrings() *Strings { return &Strings{t: New()} }

// Intern returns the canonical *ObjString for s, allocating one through a
// the given value.Allocator only the first time s is seen.
func (s *Strings) Intern(a value.Allocator, str string) *value.ObjString {
	hash := value.HashString(str)
	if existing := s.t.FindString(str, hash); existing != nil {
		return existing
	}
	obj := value.NewString(a, str)
	s.t.Set(obj, value.Bool(true))
	return obj
}

// Table exposes the backing Table so the GC can enumerate keys to prune
// and mark-sweep can walk it without a copy.
func (s *Strings) Table() *Table { return s.t }

// RemoveUnmarked deletes every interned string whose backing object was not
// reached by the collector's current cycle, implementing spec.md §4.8's
// "weak string table" pass: it must run after mark and before sweep, or
// sweep would free strings this table is still (weakly) referencing.
//
// The collector alternates which bool value means "marked" every cycle
// (see gc.Collector.markColor), so marked must be the caller's current
// cycle color, not a hard-coded polarity — a string left at last cycle's
// color is live, not garbage, on a cycle where the meaning flipped.
func (s *Strings) RemoveUnmarked(marked bool) {
	for _, k := range s.t.Keys() {
		if k.Marked != marked {
			s.t.Delete(k)
		}
	}
}
