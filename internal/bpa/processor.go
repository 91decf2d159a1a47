// Package bpa implements the Bundle Processor (spec C6): the single-
// threaded signal-queue event loop that dispatches every bundle through
// receive, forward, and local-delivery decision points.
package bpa

import (
	"context"
	"sync"

	"github.com/dtnkit/bpa/internal/bpaerr"
	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/cla"
	"github.com/dtnkit/bpa/internal/contactmgr"
	"github.com/dtnkit/bpa/internal/logger"
	"github.com/dtnkit/bpa/internal/metrics"
	"github.com/dtnkit/bpa/internal/routing"
	"github.com/dtnkit/bpa/internal/router"
	"github.com/dtnkit/bpa/pkg/eid"
)

// SignalKind tags one entry in the BP's signal queue (spec §4.6).
type SignalKind int

const (
	SigBundleIncoming SignalKind = iota
	SigBundleLocalDispatch
	SigTransmissionSuccess
	SigTransmissionFailure
	SigContactOver
	SigLinkEstablished
	SigLinkDown
	SigAgentRegister
	SigAgentDeregister
	SigScheduleChanged
)

// FailurePolicy selects TRANSMISSION_FAILURE handling (spec §4.6).
type FailurePolicy int

const (
	PolicyDrop FailurePolicy = iota
	PolicyTryReschedule
)

// Signal is the BP's tagged-union queue entry; only the fields relevant to
// Kind are populated.
type Signal struct {
	Kind SignalKind

	Bundle  *bundle.Bundle
	Contact *routing.Contact
	ClaAddr string
	ClaName string

	SinkID       string
	IsSubscriber bool
	Secret       string
	Callback     DeliveryCallback
	Param        any
	Result       chan error
}

// Config holds the BP's tunables.
type Config struct {
	FailurePolicy  FailurePolicy
	KnownListTTLMs int64 // how long a delivered id is remembered for dedup
	QueueCapacity  int
}

// DefaultConfig returns the BP's default tunables.
func DefaultConfig() Config {
	return Config{FailurePolicy: PolicyTryReschedule, KnownListTTLMs: 3_600_000, QueueCapacity: 256}
}

// Processor is the Bundle Processor task.
type Processor struct {
	localEID eid.EID
	table    *routing.Table
	router   *router.Router
	cm       *contactmgr.Manager
	cfg      Config
	now      func() int64
	metrics  *metrics.Metrics

	registry   *agentRegistry
	known      *knownBundleList
	reassembly *reassemblyList

	// pendingRetry holds bundles whose forwarding failed with no route
	// available right now (PolicyTryReschedule); only touched from the
	// single-threaded event loop, so it needs no lock of its own. They are
	// retried on SigScheduleChanged, once the contact schedule has actually
	// moved, instead of being re-routed in a tight synchronous loop.
	pendingRetry []*bundle.Bundle

	signals chan Signal

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Bundle Processor. The routing table's rescheduling hook
// is wired to this processor (spec §4.2's "injected by the BP").
func New(localEID eid.EID, table *routing.Table, r *router.Router, cm *contactmgr.Manager, cfg Config, now func() int64) *Processor {
	p := &Processor{
		localEID:   localEID,
		table:      table,
		router:     r,
		cm:         cm,
		cfg:        cfg,
		now:        now,
		metrics:    metrics.NullMetrics(),
		registry:   newAgentRegistry(),
		known:      newKnownBundleList(),
		reassembly: newReassemblyList(),
		signals:    make(chan Signal, cfg.QueueCapacity),
	}
	table.SetRescheduleFunc(p.reschedule)
	return p
}

// SetContactManager wires the Contact Manager in after construction, for
// callers that must build Processor and Manager in the opposite order (the
// Manager's constructor needs a ContactNotifier bound to this Processor).
func (p *Processor) SetContactManager(cm *contactmgr.Manager) { p.cm = cm }

// SetMetrics wires a Prometheus metrics collector into the processor. The
// processor runs metrics-free (via metrics.NullMetrics) until this is
// called, so tests and callers that don't care about instrumentation never
// need to pass one in.
func (p *Processor) SetMetrics(m *metrics.Metrics) { p.metrics = m }

// SetAgentTokenVerifier switches agent registration from bare shared-secret
// comparison to signed-token verification (pkg/aap), by wiring v into the
// agent registry. Unset by default, so existing bare-secret registrations
// keep working untouched.
func (p *Processor) SetAgentTokenVerifier(v TokenVerifier) { p.registry.SetVerifier(v) }

// CLANotifier returns the cla.BPNotifier adapter bound to this processor,
// for wiring into a cla.Registry's CLAs.
func (p *Processor) CLANotifier() cla.BPNotifier { return claNotifier{p} }

// ContactNotifier returns the contactmgr.ContactNotifier adapter bound to
// this processor, for wiring into contactmgr.New.
func (p *Processor) ContactNotifier() contactmgr.ContactNotifier { return contactNotifier{p} }

// Enqueue offers sig to the signal queue, blocking if it is full (the BP
// queue has no drop policy: every signal must eventually be observed).
func (p *Processor) Enqueue(sig Signal) {
	p.signals <- sig
}

// DeliverParsed enqueues a freshly-assembled incoming bundle (called by an
// RX task's Parser closure once the codec hands back a *bundle.Bundle).
func (p *Processor) DeliverParsed(b *bundle.Bundle) {
	p.Enqueue(Signal{Kind: SigBundleIncoming, Bundle: b})
}

// SendLocal originates a bundle locally (e.g. on behalf of an agent's send
// call or a built-in agent's reply) and feeds it straight to dispatch,
// skipping the receive path (spec §4.6 BUNDLE_LOCAL_DISPATCH).
func (p *Processor) SendLocal(b *bundle.Bundle) {
	p.Enqueue(Signal{Kind: SigBundleLocalDispatch, Bundle: b})
}

// RegisterAgent implements the Agent interface's register() (spec §6).
func (p *Processor) RegisterAgent(sinkID string, isSubscriber bool, secret string, cb DeliveryCallback, param any) error {
	result := make(chan error, 1)
	p.Enqueue(Signal{Kind: SigAgentRegister, SinkID: sinkID, IsSubscriber: isSubscriber, Secret: secret, Callback: cb, Param: param, Result: result})
	return <-result
}

// DeregisterAgent implements the Agent interface's deregister() (spec §6).
func (p *Processor) DeregisterAgent(sinkID string, isSubscriber bool) {
	p.Enqueue(Signal{Kind: SigAgentDeregister, SinkID: sinkID, IsSubscriber: isSubscriber})
}

// reschedule is the routing table's injected hook (spec §4.2): displaced or
// contact-ended bundles come back around as TRANSMISSION_FAILURE so the
// normal failure policy decides drop vs. retry.
func (p *Processor) reschedule(bundles []*bundle.Bundle) {
	for _, b := range bundles {
		p.Enqueue(Signal{Kind: SigTransmissionFailure, Bundle: b})
	}
}

// Start begins the BP's single-threaded event loop goroutine.
func (p *Processor) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run()
}

// Stop gracefully stops the BP, blocking until its goroutine exits.
func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Processor) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case sig := <-p.signals:
			p.handle(sig)
		}
	}
}

// handle dispatches one signal (spec §4.6's signal table). Exported as
// HandleOne for tests that want deterministic, non-goroutine-driven
// single-step execution.
func (p *Processor) handle(sig Signal) {
	switch sig.Kind {
	case SigBundleIncoming:
		p.receive(sig.Bundle)
	case SigBundleLocalDispatch:
		p.dispatch(sig.Bundle)
	case SigTransmissionSuccess:
		p.onTransmissionSuccess(sig.Bundle)
	case SigTransmissionFailure:
		p.onTransmissionFailure(sig.Bundle)
	case SigContactOver:
		p.onContactOver(sig.Contact)
	case SigLinkEstablished, SigLinkDown:
		if p.cm != nil {
			p.cm.Notify(contactmgr.SignalProcessCurrentBundles)
		}
	case SigScheduleChanged:
		p.retryPendingForwards()
	case SigAgentRegister:
		err := p.registry.Register(sig.SinkID, sig.IsSubscriber, sig.Secret, sig.Callback, sig.Param)
		if sig.Result != nil {
			sig.Result <- err
		}
	case SigAgentDeregister:
		p.registry.Deregister(sig.SinkID, sig.IsSubscriber)
	}
}

// HandleOne processes exactly one signal synchronously, for tests.
func (p *Processor) HandleOne(sig Signal) { p.handle(sig) }

// receive implements spec §4.6's receive path.
func (p *Processor) receive(b *bundle.Bundle) {
	p.metrics.RecordReceived()

	nowMs := p.now()
	b.ReceptionTimestampMs = nowMs
	b.RetentionConstraints |= bundle.DispatchPending

	if b.ProcessingFlags&bundle.FlagReportReception != 0 {
		p.emitReport(b, statusReceived, ReasonNoAdditionalInfo)
	}

	if b.IsExpired(nowMs) {
		p.deleteBundle(b, ReasonLifetimeExpired)
		return
	}

	if p.applyBlockPolicy(b) {
		return // bundle was deleted by block policy
	}

	p.dispatch(b)
}

// applyBlockPolicy walks non-payload blocks the BP does not itself
// interpret (anything but bundle-age/previous-node/hop-count) and applies
// their unprocessable-block flag policy (spec §4.6 step 4). Returns true if
// the bundle was deleted as a result.
func (p *Processor) applyBlockPolicy(b *bundle.Bundle) bool {
	understood := func(t bundle.BlockType) bool {
		switch t {
		case bundle.BlockTypePayload, bundle.BlockTypeBundleAge, bundle.BlockTypePreviousNode, bundle.BlockTypeHopCount:
			return true
		default:
			return false
		}
	}

	kept := b.Blocks[:0:0]
	for _, blk := range b.Blocks {
		if understood(blk.Type) {
			kept = append(kept, blk)
			continue
		}
		switch {
		case blk.Flags&bundle.BlockFlagDeleteBundleIfUnprocessable != 0:
			p.deleteBundle(b, ReasonBlockUnintelligible)
			return true
		case blk.Flags&bundle.BlockFlagReportIfUnprocessable != 0:
			p.emitReport(b, statusDeleted, ReasonBlockUnintelligible)
			fallthrough
		case blk.Flags&bundle.BlockFlagDiscardIfUnprocessable != 0:
			continue // drop the block, keep the bundle
		default:
			kept = append(kept, blk)
		}
	}
	b.Blocks = kept
	for i, blk := range b.Blocks {
		if blk.Type == bundle.BlockTypePayload {
			b.PayloadIndex = i
			break
		}
	}
	return false
}

// dispatch implements spec §4.6's dispatch path.
func (p *Processor) dispatch(b *bundle.Bundle) {
	if b.DestEID.SharesNodePrefix(p.localEID) {
		p.deliverLocally(b)
		return
	}
	p.forward(b)
}

// forward implements spec §4.6's forward path.
func (p *Processor) forward(b *bundle.Bundle) {
	if b.CheckAndIncrementHopCount() {
		p.deleteBundle(b, ReasonHopLimitExceeded)
		return
	}

	b.RetentionConstraints |= bundle.ForwardPending
	b.RetentionConstraints &^= bundle.DispatchPending

	status, plan, err := p.router.RouteBundle(b, p.now(), routing.PriorityNormal)
	if err != nil || status != router.StatusOK {
		p.onForwardingFailure(b, status, err)
		return
	}

	p.enqueueOnContacts(b, plan)

	if p.cm != nil {
		p.cm.Notify(contactmgr.SignalProcessCurrentBundles)
	}
}

// enqueueOnContacts materializes plan's fragment assignments (or the whole
// bundle, for a single assignment covering it entirely) and appends each to
// its contact's queued-bundle list under the table lock, handing off to the
// Contact Manager (spec §4.3/§4.4 boundary).
func (p *Processor) enqueueOnContacts(b *bundle.Bundle, plan *router.Plan) {
	p.table.Lock()
	defer p.table.Unlock()

	if len(plan.Assignments) == 1 && plan.Assignments[0].PayloadOffset == 0 && plan.Assignments[0].PayloadLength == uint64(b.PayloadLen()) {
		a := plan.Assignments[0]
		a.Contact.QueuedBundles = append(a.Contact.QueuedBundles, b)
		return
	}
	for _, a := range plan.Assignments {
		frag := b.Fragment(a.Position, a.PayloadOffset, a.PayloadLength)
		a.Contact.QueuedBundles = append(a.Contact.QueuedBundles, frag)
	}
}

// onForwardingFailure translates a non-OK route outcome (spec §4.6 step 3
// "translate to a status-report reason and either expire or
// forwarding-contraindicated").
func (p *Processor) onForwardingFailure(b *bundle.Bundle, status router.RouteStatus, err error) {
	if status == router.StatusExpired {
		p.deleteBundle(b, ReasonLifetimeExpired)
		return
	}
	p.onFailurePolicy(b, reasonForKind(bpaerr.KindOf(err)))
}

// onFailurePolicy implements TRANSMISSION_FAILURE's configured policy
// (spec §4.6). PolicyTryReschedule parks b on pendingRetry rather than
// re-routing it immediately: a destination with no contact right now still
// has no contact on the very next instruction, so retrying synchronously
// recurses forward -> onForwardingFailure -> onFailurePolicy -> forward
// without bound. Parked bundles are retried once on SigScheduleChanged,
// when the Contact Manager reports the schedule has actually moved.
func (p *Processor) onFailurePolicy(b *bundle.Bundle, reason Reason) {
	switch p.cfg.FailurePolicy {
	case PolicyDrop:
		p.deleteBundle(b, reason)
	case PolicyTryReschedule:
		p.pendingRetry = append(p.pendingRetry, b)
	}
}

// retryPendingForwards re-attempts forwarding every bundle parked by
// onFailurePolicy, fired by SigScheduleChanged (spec §4.4/§4.6 boundary: the
// Contact Manager tells the BP when activation/expiry changed the schedule).
// Bundles that fail again are simply re-parked by onFailurePolicy, not
// retried again in this same pass.
func (p *Processor) retryPendingForwards() {
	pending := p.pendingRetry
	p.pendingRetry = nil
	for _, b := range pending {
		p.forward(b)
	}
}

func (p *Processor) onTransmissionSuccess(b *bundle.Bundle) {
	p.metrics.RecordForwarded()

	if b.ProcessingFlags&bundle.FlagReportForwarding != 0 {
		p.emitReport(b, statusForwarded, ReasonNoAdditionalInfo)
	}
	b.RetentionConstraints &^= bundle.ForwardPending
	b.RetentionConstraints &^= bundle.Own
	if b.RetentionConstraints.IsZero() {
		logger.Debug("bpa: bundle freed after successful transmission")
	}
}

func (p *Processor) onTransmissionFailure(b *bundle.Bundle) {
	p.onFailurePolicy(b, ReasonTransmissionCancelled)
}

// onContactOver implements spec §4.6 CONTACT_OVER: finalize the contact
// exactly once (refcount release on its extra endpoints lives in
// OnContactPassed; the Contact Manager no longer calls it directly, to
// avoid double-releasing) and reschedule whatever is still queued on it as
// TRANSMISSION_FAILURE, so the normal failure policy decides their fate.
func (p *Processor) onContactOver(c *routing.Contact) {
	p.table.Lock()
	bundles := c.QueuedBundles
	c.QueuedBundles = nil
	p.table.Unlock()

	p.table.OnContactPassed(c)

	if len(bundles) > 0 {
		p.reschedule(bundles)
	}
}

// deliverLocally implements spec §4.6's local-delivery path.
func (p *Processor) deliverLocally(b *bundle.Bundle) {
	b.RetentionConstraints &^= bundle.DispatchPending
	nowMs := p.now()

	if p.known.Contains(b.ExtractUniqueID(), nowMs) {
		return // duplicate, silently dropped
	}

	if b.ProcessingFlags&bundle.FlagReportDelivery != 0 {
		p.emitReport(b, statusDelivered, ReasonNoAdditionalInfo)
	}

	sinkID := b.DestEID.SinkID()
	_, hasAgent := p.registry.Lookup(sinkID)
	if !hasAgent && b.ProcessingFlags&bundle.FlagAdminRecord == 0 {
		p.deleteBundle(b, ReasonDestEIDUnintelligible)
		return
	}

	if b.IsFragment() {
		p.deliverFragment(b, nowMs)
		return
	}

	p.rememberDelivered(b, nowMs)
	p.deliverADU(b.ToADU())
}

// deliverFragment implements spec §4.6 step 5: slot lookup/creation,
// ordered insertion, tiling check, and ADU assembly on completion.
func (p *Processor) deliverFragment(frag *bundle.Bundle, nowMs int64) {
	slot := p.reassembly.Insert(frag)
	p.metrics.SetReassemblySlotCount(p.reassembly.Len())
	payload, complete := slot.TryReassemble()
	if !complete {
		return
	}
	p.reassembly.Remove(slot)
	p.metrics.SetReassemblySlotCount(p.reassembly.Len())

	adu := bundle.ADU{Source: frag.SourceEID, Dest: frag.DestEID, Flags: frag.ProcessingFlags &^ bundle.FlagIsFragment, Payload: payload}

	// Record the reassembled original under its own identity so any
	// straggler duplicate fragment delivery is also suppressed (spec §4.6
	// "add the original bundle to the known list").
	original := slot.fragments[0].ExtractUniqueID()
	original.FragmentOffset = 0
	original.PayloadLength = len(payload)
	p.known.Insert(original, p.deliveryDeadline(frag, nowMs), nowMs)

	p.deliverADU(adu)
}

func (p *Processor) rememberDelivered(b *bundle.Bundle, nowMs int64) {
	p.known.Insert(b.ExtractUniqueID(), p.deliveryDeadline(b, nowMs), nowMs)
}

func (p *Processor) deliveryDeadline(b *bundle.Bundle, nowMs int64) int64 {
	if p.cfg.KnownListTTLMs > 0 {
		return nowMs + p.cfg.KnownListTTLMs
	}
	if exp, err := b.ExpirationMs(nowMs); err == nil {
		return exp
	}
	return nowMs
}

// deliverADU implements spec §4.6 "ADU delivery": admin-record unwrapping
// (custody/BIBE) then handing to the registered agent, or silently
// dropping if none.
func (p *Processor) deliverADU(adu bundle.ADU) {
	if adu.Flags&bundle.FlagAdminRecord != 0 {
		p.deliverAdminRecord(adu)
		return
	}

	sinkID := adu.Dest.SinkID()
	entry, ok := p.registry.Lookup(sinkID)
	if !ok {
		return // no storage on missing agent; drop
	}
	p.metrics.RecordDelivered()
	entry.callback(adu, entry.param)
}

func (p *Processor) deliverAdminRecord(adu bundle.ADU) {
	if _, encapsulated, ok := decapsulateBIBE(adu.Payload); ok {
		sink := SinkBIBE
		if adu.Dest.Scheme == eid.SchemeIPN {
			sink = SinkBIBENumeric
		}
		if entry, ok := p.registry.Lookup(sink); ok {
			entry.callback(bundle.ADU{Source: adu.Source, Dest: adu.Dest, Payload: encapsulated}, entry.param)
		}
		return
	}
	// Status reports and custody signals (record types 1 and 3) are
	// received and acknowledged but not acted on further: this agent
	// neither originates custody transfer nor tracks reports on bundles it
	// did not itself source (custody is a Non-goal).
}

// emitReport generates and locally dispatches a status-report bundle, if
// one is warranted (spec §4.6 "Status report generation").
func (p *Processor) emitReport(subject *bundle.Bundle, indicator statusIndicator, reason Reason) {
	report := buildStatusReport(subject, indicator, reason, p.localEID, p.now())
	if report == nil {
		return
	}
	p.SendLocal(report)
}

// deleteBundle implements bundle deletion with a status report when
// warranted (spec §7 policy column for each error kind).
func (p *Processor) deleteBundle(b *bundle.Bundle, reason Reason) {
	p.metrics.RecordDropped(reason.String())

	if b.ProcessingFlags&bundle.FlagReportDeletion != 0 {
		p.emitReport(b, statusDeleted, reason)
	}
	b.RetentionConstraints = 0
}
