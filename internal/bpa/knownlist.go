package bpa

import (
	"sort"

	"github.com/dtnkit/bpa/internal/bundle"
)

// knownEntry is one known-bundle-list row (spec §3): a unique identifier
// plus the deadline past which it can be forgotten.
type knownEntry struct {
	id       bundle.UniqueID
	deadline int64
}

// knownBundleList deduplicates local deliveries. Entries are kept ordered
// by deadline so the lazy-GC sweep stops at the first unexpired entry;
// Contains still scans every remaining entry (spec §4.6 "ordered by expiration deadline ... entries past their
// deadline are lazy-GC'd on insert").
type knownBundleList struct {
	entries []knownEntry
}

func newKnownBundleList() *knownBundleList {
	return &knownBundleList{}
}

// Contains reports whether id is already recorded, sweeping expired
// entries first.
func (l *knownBundleList) Contains(id bundle.UniqueID, nowMs int64) bool {
	l.gc(nowMs)
	for _, e := range l.entries {
		if e.id == id {
			return true
		}
	}
	return false
}

// Insert records id with the given deadline, sweeping expired entries
// first, then inserting in deadline order.
func (l *knownBundleList) Insert(id bundle.UniqueID, deadline int64, nowMs int64) {
	l.gc(nowMs)
	idx := sort.Search(len(l.entries), func(i int) bool { return l.entries[i].deadline >= deadline })
	l.entries = append(l.entries, knownEntry{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = knownEntry{id: id, deadline: deadline}
}

// gc drops every entry whose deadline has passed as of nowMs. Since the
// list is deadline-ordered, expired entries are always a prefix.
func (l *knownBundleList) gc(nowMs int64) {
	i := 0
	for i < len(l.entries) && l.entries[i].deadline <= nowMs {
		i++
	}
	if i > 0 {
		l.entries = l.entries[i:]
	}
}

func (l *knownBundleList) Len() int { return len(l.entries) }
