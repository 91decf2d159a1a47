package bpa

import (
	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/cla"
	"github.com/dtnkit/bpa/internal/routing"
)

// claNotifier adapts Processor to cla.BPNotifier, so internal/cla never
// needs to import internal/bpa.
type claNotifier struct{ p *Processor }

func (n claNotifier) TransmissionResult(cmd cla.Command, success bool) {
	kind := SigTransmissionSuccess
	if !success {
		kind = SigTransmissionFailure
	}
	for _, b := range cmd.Bundles {
		n.p.Enqueue(Signal{Kind: kind, Bundle: b})
	}
}

func (n claNotifier) ContactOver(claAddr string) {
	n.p.Enqueue(Signal{Kind: SigLinkDown, ClaAddr: claAddr})
}

// contactNotifier adapts Processor to contactmgr.ContactNotifier.
type contactNotifier struct{ p *Processor }

func (n contactNotifier) ContactOver(c *routing.Contact) {
	n.p.Enqueue(Signal{Kind: SigContactOver, Contact: c})
}

// TransmissionFailed handles bundles the Contact Manager detached from a
// contact but could not hand to any CLA (no active link), per spec §4.5.
func (n contactNotifier) TransmissionFailed(bundles []*bundle.Bundle) {
	for _, b := range bundles {
		n.p.Enqueue(Signal{Kind: SigTransmissionFailure, Bundle: b})
	}
}

// ScheduleChanged tells the BP the contact schedule moved, so it retries
// whatever it parked in pendingRetry for lack of a route.
func (n contactNotifier) ScheduleChanged() {
	n.p.Enqueue(Signal{Kind: SigScheduleChanged})
}
