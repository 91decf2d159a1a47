package bpa

import (
	"sort"

	"github.com/dtnkit/bpa/internal/bundle"
)

// reassemblySlot holds fragments of one original ADU, ordered by fragment
// offset (spec §3 Reassembly list).
type reassemblySlot struct {
	key       bundle.ADUKey
	fragments []*bundle.Bundle // ordered by FragmentOffset
}

// reassemblyList is the BP-owned collection of in-progress reassemblies;
// like the known-bundle list, it needs no lock (spec §5: BP work is
// serialized).
type reassemblyList struct {
	slots []*reassemblySlot
}

func newReassemblyList() *reassemblyList {
	return &reassemblyList{}
}

// Insert adds frag to its slot (creating one if absent), keeping fragments
// ordered by offset.
func (l *reassemblyList) Insert(frag *bundle.Bundle) *reassemblySlot {
	key := frag.ADUKey()
	var slot *reassemblySlot
	for _, s := range l.slots {
		if s.key == key {
			slot = s
			break
		}
	}
	if slot == nil {
		slot = &reassemblySlot{key: key}
		l.slots = append(l.slots, slot)
	}

	idx := sort.Search(len(slot.fragments), func(i int) bool {
		return slot.fragments[i].FragmentOffset >= frag.FragmentOffset
	})
	slot.fragments = append(slot.fragments, nil)
	copy(slot.fragments[idx+1:], slot.fragments[idx:])
	slot.fragments[idx] = frag
	return slot
}

// Len returns the number of in-progress reassembly slots.
func (l *reassemblyList) Len() int { return len(l.slots) }

// Remove deletes slot from the list (called once reassembly completes).
func (l *reassemblyList) Remove(slot *reassemblySlot) {
	for i, s := range l.slots {
		if s == slot {
			l.slots = append(l.slots[:i], l.slots[i+1:]...)
			return
		}
	}
}

// TryReassemble walks slot's fragments and, if they tile
// [0, total_adu_length) without gaps, returns the concatenated payload and
// true. A nil/false result means the slot is still incomplete.
func (s *reassemblySlot) TryReassemble() ([]byte, bool) {
	if len(s.fragments) == 0 {
		return nil, false
	}
	total := s.fragments[0].TotalADULength
	buf := make([]byte, total)

	var covered uint64
	for _, f := range s.fragments {
		if f.FragmentOffset > covered {
			return nil, false // gap
		}
		end := f.FragmentOffset + uint64(f.PayloadLen())
		if end > covered {
			payload := f.Payload()
			if payload != nil {
				copy(buf[f.FragmentOffset:end], payload.Payload)
			}
			covered = end
		}
	}
	return buf, covered >= total
}
