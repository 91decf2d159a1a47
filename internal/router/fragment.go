package router

import (
	"github.com/dtnkit/bpa/internal/bpaerr"
	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/routing"
)

// packFragments greedily packs b's payload left to right across candidates
// in ToMs order (spec §4.3 step 5): each fragment gets the largest payload
// that still fits both the per-fragment MBS and the contact's remaining
// capacity, capped at RouterMaxFragments. Any fragment unable to meet
// FragmentMinPayload fails the whole route.
//
// Real capacity is only committed against a contact's RemainingP0/P1/P2
// counters once RouteBundle accepts the whole plan (see commit), so this
// loop keeps its own running tally of what it has tentatively assigned to
// each candidate so far and subtracts that from availablePayload's answer;
// without it, a contact that already took one fragment would look exactly
// as free on the next iteration and keep absorbing the entire bundle
// instead of handing off to the next contact in schedule order.
func (r *Router) packFragments(b *bundle.Bundle, candidates []*routing.Contact, p routing.Priority) (*Plan, RouteStatus, error) {
	payloadLen := uint64(b.PayloadLen())
	var assignments []FragmentAssignment
	var offset uint64
	consumed := make(map[*routing.Contact]int64, len(candidates))

	ci := 0
	for offset < payloadLen {
		if len(assignments) >= r.cfg.RouterMaxFragments {
			return nil, StatusNoRoute, bpaerr.New(bpaerr.NoRoute, "bundle requires more fragments than RouterMaxFragments allows")
		}
		if ci >= len(candidates) {
			return nil, StatusNoTimelyContact, bpaerr.New(bpaerr.NoTimelyContact, "ran out of contacts before payload was fully assigned")
		}

		c := candidates[ci]
		pos := bundle.FragmentMiddle
		if offset == 0 {
			pos = bundle.FragmentFirst
		}
		remainingPayload := payloadLen - offset
		// Tentatively treat this as the last fragment to size its header
		// correctly; if it turns out not to be, the smaller "middle"
		// header estimate below is conservative enough that packing
		// still converges (mirrors the source's reliance on a
		// conservative, possibly-oversized header estimate, see spec
		// §4.3 step "Fragmentation outcome").
		headerPos := pos
		if remainingPayload <= uint64(r.maxFragmentPayloadHint(c, p)) {
			headerPos = bundle.FragmentLast
		}

		headerOverhead := b.FragmentMinimumSize(headerPos)
		avail := r.availablePayload(c, p, headerOverhead)
		if avail >= 0 && c.RemainingFor(p) != routing.InfiniteCapacity {
			avail -= consumed[c]
		}
		if avail < int64(r.cfg.FragmentMinPayload) {
			ci++
			continue
		}

		take := remainingPayload
		if uint64(avail) < take {
			take = uint64(avail)
		}
		if take < uint64(r.cfg.FragmentMinPayload) && take < remainingPayload {
			ci++
			continue
		}

		assignments = append(assignments, FragmentAssignment{
			Contact:        c,
			Position:       headerPos,
			PayloadOffset:  offset,
			PayloadLength:  take,
			HeaderOverhead: int64(headerOverhead),
		})
		consumed[c] += int64(take) + int64(headerOverhead)
		offset += take
		if take == remainingPayload {
			break
		}
	}

	if len(assignments) > 0 {
		assignments[len(assignments)-1].Position = bundle.FragmentLast
	}

	return &Plan{Assignments: assignments, Priority: p}, StatusOK, nil
}

// maxFragmentPayloadHint estimates the largest payload a fragment on c
// could carry, used only to decide whether the current fragment is likely
// the last one (for header-size selection); it does not commit capacity.
func (r *Router) maxFragmentPayloadHint(c *routing.Contact, p routing.Priority) int64 {
	remaining := c.RemainingFor(p)
	if remaining == routing.InfiniteCapacity {
		return r.cfg.MaximumBundleSize
	}
	return remaining
}
