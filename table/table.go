// Package table implements the open-addressed, linear-probed hash table
// used for the VM's globals environment and its string intern set. Keys are
// interned string objects; lookup compares key identity first, and falls
// back to hash+length+bytes comparison only when probing for interning
// itself (FindString).
package table

import "crowbc/object"

const maxLoad = 0.75

type entry struct {
	key   *object.Object // nil means empty, or a tombstone if tombstone is true
	value interface{}
	// tombstone marks a deleted slot. Tombstones keep probe chains intact
	// for keys that were inserted after this slot was once occupied.
	tombstone bool
}

// Table is an open-addressed hash table keyed by interned string identity.
type Table struct {
	count   int // live entries plus tombstones; load factor is measured against this
	live    int // live entries only
	entries []entry
}

// New returns an empty Table. Capacity grows lazily on first insert.
func New() *Table {
	return &Table{}
}

// Count returns the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	return t.live
}

// Set inserts or overwrites the value for key. It reports whether key was
// not already present (a "new" key), matching clox's set() contract.
func (t *Table) Set(key *object.Object, value interface{}) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}

	e := t.findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew && !e.tombstone {
		t.count++
	}

	e.key = key
	e.value = value
	e.tombstone = false
	if isNew {
		t.live++
	}
	return isNew
}

// Get retrieves the value stored for key.
func (t *Table) Get(key *object.Object) (interface{}, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return nil, false
	}
	return e.value, true
}

// Delete removes key, leaving a tombstone behind so existing probe chains
// through this slot remain intact.
func (t *Table) Delete(key *object.Object) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = true
	e.tombstone = true
	t.live--
	return true
}

// FindString looks up an interned string by content rather than identity.
// It is the probe used by string interning: a hit returns the canonical
// *object.Object for these bytes, a miss returns nil.
func (t *Table) FindString(chars string, hash uint32) *object.Object {
	if len(t.entries) == 0 {
		return nil
	}

	index := hash % uint32(len(t.entries))
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) % uint32(len(t.entries))
	}
}

// findEntry runs the linear probe for key starting at hash(key) mod
// capacity, treating tombstones as passable. It remembers the first
// tombstone seen on the miss path so Set can reuse that slot.
func (t *Table) findEntry(entries []entry, key *object.Object) *entry {
	index := key.Hash % uint32(len(entries))
	var tombstone *entry

	for {
		e := &entries[index]
		if e.key == nil {
			if !e.tombstone {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) % uint32(len(entries))
	}
}

// grow allocates a new table at doubled capacity (minimum 8) and rehashes
// only the live entries, dropping tombstones.
func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry, newCap)

	t.count = 0
	t.live = 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		dest := t.findEntry(newEntries, e.key)
		dest.key = e.key
		dest.value = e.value
		t.count++
		t.live++
	}
	t.entries = newEntries
}

// ForEach iterates every live entry in the table. Iteration order is not
// specified.
func (t *Table) ForEach(fn func(key *object.Object, value interface{})) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}
