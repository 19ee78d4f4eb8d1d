// Package policy holds the small set of enums shared across every cache
// variant's Set/SetRange operations.
package policy

// Allow controls whether Set (and its range/mode variants) may insert a new
// key, update an existing one, or both. It mirrors allow.hpp from the
// original cappuccino source.
type Allow uint8

const (
	// Insert succeeds only if no live entry exists for the key.
	Insert Allow = 1 << iota
	// Update succeeds only if a live entry already exists for the key.
	Update
	// InsertOrUpdate succeeds unconditionally (the default mode).
	InsertOrUpdate = Insert | Update
)

// InsertAllowed reports whether a, as a bitmask, permits inserting a new key.
func (a Allow) InsertAllowed() bool { return a&Insert != 0 }

// UpdateAllowed reports whether a, as a bitmask, permits updating an existing key.
func (a Allow) UpdateAllowed() bool { return a&Update != 0 }
