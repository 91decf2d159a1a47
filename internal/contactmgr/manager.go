// Package contactmgr implements the Contact Manager (spec C4): a
// long-lived task that activates/deactivates contacts at their scheduled
// boundaries and hands queued bundles to the owning CLA.
package contactmgr

import (
	"context"
	"sync"
	"time"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/logger"
	"github.com/dtnkit/bpa/internal/metrics"
	"github.com/dtnkit/bpa/internal/routing"
)

// Signal is a wake-up reason delivered on the command queue.
type Signal int

const (
	// SignalUnknown covers "woke up for an unspecified/both reason" (spec
	// §4.4: "the unknown/both default").
	SignalUnknown Signal = iota
	SignalUpdateContactList
	SignalProcessCurrentBundles
)

// ContactNotifier is the subset of the Bundle Processor's signal intake the
// Contact Manager needs: emitting CONTACT_OVER when a contact's window
// elapses (spec §4.4 step 1), handing bundles back as TRANSMISSION_FAILURE
// when a CLA link turns out not to be available to drain them onto (spec
// §4.5 "returning nulls means drop or reschedule"), and telling the BP when
// the contact schedule has changed so it can retry anything it parked
// waiting for a route (spec §4.4/§4.6 boundary).
type ContactNotifier interface {
	ContactOver(c *routing.Contact)
	TransmissionFailed(bundles []*bundle.Bundle)
	ScheduleChanged()
}

// CLAHandle is the subset of a CLA's vtable the Contact Manager drives
// directly (spec §4.5): starting/ending a scheduled contact and obtaining
// the per-link TX queue to hand off queued bundles.
type CLAHandle interface {
	StartScheduledContact(nodeAddr, claAddress string) error
	EndScheduledContact(nodeAddr, claAddress string) error
	GetTXQueue(nodeAddr, claAddress string) (TXQueue, bool)
}

// TXQueue is the bounded per-link queue a CLA exposes for enqueueing
// transmission commands (spec §4.5's per-link TX queue).
type TXQueue interface {
	Enqueue(bundles []*bundle.Bundle) bool
}

// CLAResolver resolves a node's CLA address (e.g. "mtcp:1.2.3.4:4556") to
// the CLA implementation registered under that address's scheme.
type CLAResolver interface {
	Resolve(claAddress string) (CLAHandle, bool)
}

// Config holds the Contact Manager's tunables.
type Config struct {
	// MaxConcurrentContacts bounds how many contacts may be Active at once.
	MaxConcurrentContacts int
}

// DefaultConfig returns the Contact Manager's default tunables.
func DefaultConfig() Config {
	return Config{MaxConcurrentContacts: 16}
}

// Manager is the Contact Manager task.
type Manager struct {
	table    *routing.Table
	clas     CLAResolver
	notifier ContactNotifier
	cfg      Config

	cmdQueue chan Signal

	mu     sync.Mutex
	active []*routing.Contact

	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time // overridable for tests
}

// New constructs a Contact Manager. It does not start running until Start
// is called.
func New(table *routing.Table, clas CLAResolver, notifier ContactNotifier, cfg Config) *Manager {
	return &Manager{
		table:    table,
		clas:     clas,
		notifier: notifier,
		cfg:      cfg,
		cmdQueue: make(chan Signal, 64),
		now:      time.Now,
		metrics:  metrics.NullMetrics(),
	}
}

// SetMetrics wires a Prometheus metrics collector into the manager. Runs
// metrics-free until this is called.
func (m *Manager) SetMetrics(ms *metrics.Metrics) { m.metrics = ms }

// Start begins the Contact Manager's event loop goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.run()
}

// Stop gracefully stops the Contact Manager, blocking until its goroutine
// exits.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Notify enqueues a wake-up signal (e.g. after a config-agent mutation to
// the routing table, or a link-state change).
func (m *Manager) Notify(sig Signal) {
	select {
	case m.cmdQueue <- sig:
	default:
		// Queue is full: a pending signal already guarantees a wake-up
		// before the next scheduled event, so dropping this one is safe.
	}
}

func (m *Manager) run() {
	defer m.wg.Done()

	nextEventAt := time.Time{} // zero value = "infinite", block indefinitely

	for {
		var timer <-chan time.Time
		if !nextEventAt.IsZero() {
			d := nextEventAt.Sub(m.now())
			if d < 0 {
				d = 0
			}
			t := time.NewTimer(d)
			defer t.Stop()
			timer = t.C
		}

		select {
		case <-m.ctx.Done():
			return
		case <-timer:
		case sig := <-m.cmdQueue:
			_ = sig // both timeout and any signal run the same tick logic
		}

		nextEventAt = m.tick()
	}
}

// tick performs one iteration of spec §4.4's event loop: remove expired
// contacts, activate upcoming ones, drain queued bundles on active ones,
// and returns the next wake-up time (zero = infinite).
func (m *Manager) tick() time.Time {
	now := m.now()
	nowMs := now.UnixMilli()

	m.removeExpired(nowMs)
	nextMs := m.activateUpcoming(nowMs)
	m.drainQueued()

	if nextMs < 0 {
		return time.Time{}
	}
	return time.UnixMilli(nextMs)
}

// removeExpired implements spec §4.4 step 1: mutex held for the scheduling
// decision, released before signalling the BP and invoking the CLA.
//
// Finalization (releasing a contact's extra-endpoint refcounts and removing
// it from its node) happens exactly once, in the BP's onContactOver handler,
// not here: this only clears Active, and activateUpcoming skips the contact
// because its window has ended, while that finalization is still pending on
// the BP's own goroutine. Calling table.OnContactPassed from both
// places would double-release those refcounts.
func (m *Manager) removeExpired(nowMs int64) {
	m.mu.Lock()
	var expired []*routing.Contact
	remaining := m.active[:0:0]
	for _, c := range m.active {
		if c.ToMs <= nowMs {
			expired = append(expired, c)
		} else {
			remaining = append(remaining, c)
		}
	}
	m.active = remaining
	m.mu.Unlock()

	for _, c := range expired {
		m.table.Lock()
		c.Active = false
		m.table.Unlock()

		if m.notifier != nil {
			m.notifier.ContactOver(c)
		}
		if m.clas != nil && c.Node != nil {
			if handle, ok := m.clas.Resolve(c.Node.ClaAddress); ok {
				if err := handle.EndScheduledContact(c.Node.EID.String(), c.Node.ClaAddress); err != nil {
					logger.Warn("contact manager: end scheduled contact failed", logger.Err(err))
				}
			}
		}
	}
}

// activateUpcoming implements spec §4.4 step 2, returning the minimum of
// all active ToMs and pending future FromMs, or -1 for "infinite". Tells the
// BP via ScheduleChanged whenever it activates at least one contact, so
// bundles parked earlier for lack of a route get a chance to retry (spec
// §4.4/§4.6 boundary) instead of waiting on an unrelated event.
func (m *Manager) activateUpcoming(nowMs int64) int64 {
	nextMs := int64(-1)
	activated := false

	m.table.IterateNodes(func(n *routing.Node) bool {
		for _, c := range n.Contacts {
			if c.Active {
				nextMs = minPositive(nextMs, c.ToMs)
				continue
			}
			if c.FromMs > nowMs {
				nextMs = minPositive(nextMs, c.FromMs)
				continue
			}
			if c.ToMs <= nowMs {
				// Window already over; never (re)activate it.
				continue
			}

			m.mu.Lock()
			belowLimit := len(m.active) < m.cfg.MaxConcurrentContacts
			m.mu.Unlock()
			if !belowLimit {
				continue
			}

			c.Active = true
			m.mu.Lock()
			m.active = append(m.active, c)
			m.mu.Unlock()
			m.metrics.RecordContactActivation()
			activated = true

			if m.clas != nil {
				if handle, ok := m.clas.Resolve(n.ClaAddress); ok {
					if err := handle.StartScheduledContact(n.EID.String(), n.ClaAddress); err != nil {
						logger.Warn("contact manager: start scheduled contact failed", logger.Err(err))
					}
				}
			}
			nextMs = minPositive(nextMs, c.ToMs)
		}
		return true
	})

	if activated && m.notifier != nil {
		m.notifier.ScheduleChanged()
	}

	return nextMs
}

// drainQueued implements spec §4.4 step 3: for each active contact with
// queued bundles, hand them to the owning CLA's TX queue, re-validating the
// contact is still present before touching its bundle list (it may have
// been concurrently deleted between activation and drain).
func (m *Manager) drainQueued() {
	m.mu.Lock()
	active := append([]*routing.Contact(nil), m.active...)
	m.mu.Unlock()

	for _, c := range active {
		m.table.Lock()
		if c.Node == nil || len(c.QueuedBundles) == 0 {
			m.table.Unlock()
			continue
		}
		bundles := c.QueuedBundles
		c.QueuedBundles = nil
		node := c.Node
		m.table.Unlock()

		if m.clas == nil {
			continue
		}
		handle, ok := m.clas.Resolve(node.ClaAddress)
		if !ok {
			continue
		}
		queue, ok := handle.GetTXQueue(node.EID.String(), node.ClaAddress)
		if !ok {
			// No active link: spec §4.5 "returning nulls means drop or
			// reschedule"; hand back to the BP so its failure policy
			// decides, instead of silently discarding the already-detached
			// bundles.
			if m.notifier != nil {
				m.notifier.TransmissionFailed(bundles)
			}
			continue
		}
		queue.Enqueue(bundles)
	}
}

func minPositive(current, candidate int64) int64 {
	if current < 0 {
		return candidate
	}
	if candidate < current {
		return candidate
	}
	return current
}
