package cla

import (
	"context"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/logger"
	"github.com/dtnkit/bpa/internal/metrics"
	"github.com/dtnkit/bpa/pkg/eid"
)

// Serializer writes a bundle's wire form through a CLA's packet framing, in
// the generic shape spec §6 describes for the codec black box: parse/serialize
// driven by caller-supplied callbacks rather than a concrete wire format.
type Serializer func(b *bundle.Bundle, write func(p []byte) (int, error)) error

// TXTask drives one link's TX queue: for each command, refresh hop-tracking
// blocks, serialize through the CLA's packet framing, and report the
// outcome to the BP (spec §4.5 TX task).
type TXTask struct {
	link       Link
	cla        CLA
	queue      *TXQueue
	localEID   eid.EID
	serialize  Serializer
	notifier   BPNotifier
	now        func() int64
	metrics    *metrics.Metrics
}

// NewTXTask constructs a TX task for link, bound to queue.
func NewTXTask(link Link, c CLA, queue *TXQueue, localEID eid.EID, serialize Serializer, notifier BPNotifier, now func() int64) *TXTask {
	return &TXTask{link: link, cla: c, queue: queue, localEID: localEID, serialize: serialize, notifier: notifier, now: now, metrics: metrics.NullMetrics()}
}

// SetMetrics wires a Prometheus metrics collector into the task. Runs
// metrics-free until this is called.
func (t *TXTask) SetMetrics(m *metrics.Metrics) { t.metrics = m }

// Run processes commands until ctx is cancelled or a finalize command
// drains the queue (spec §4.5 "finalize: drain remaining commands as
// failures").
func (t *TXTask) Run(ctx context.Context) {
	for {
		cmd, ok := t.queue.Receive(ctx)
		if !ok {
			return
		}
		t.metrics.SetTXQueueDepth(t.link.ID(), t.queue.Len())
		if cmd.Finalize {
			t.failAll(t.queue.Drain())
			return
		}
		t.processCommand(cmd)
	}
}

func (t *TXTask) processCommand(cmd Command) {
	for _, b := range cmd.Bundles {
		t.updateHopBlocks(b)

		err := t.cla.BeginPacket(t.link, wireSizeEstimate(b))
		if err == nil {
			err = t.serialize(b, func(p []byte) (int, error) {
				return t.cla.SendPacketData(t.link, p)
			})
		}
		if err == nil {
			err = t.cla.EndPacket(t.link)
		}

		if err != nil {
			logger.Warn("cla tx: transmission failed", logger.Err(err))
			t.cla.DisconnectHandler(t.link)
			if t.notifier != nil {
				t.notifier.TransmissionResult(Command{Bundles: []*bundle.Bundle{b}, ClaAddr: cmd.ClaAddr}, false)
			}
			continue
		}
		if t.notifier != nil {
			t.notifier.TransmissionResult(Command{Bundles: []*bundle.Bundle{b}, ClaAddr: cmd.ClaAddr}, true)
		}
	}
}

// updateHopBlocks refreshes the bundle-age and previous-node extension
// blocks immediately before transmission (spec §4.5 TX task step; previous-
// node maintenance is a SUPPLEMENTED FEATURE).
func (t *TXTask) updateHopBlocks(b *bundle.Bundle) {
	b.UpdateBundleAgeBlock(t.now())
	b.UpdatePreviousNodeBlock([]byte(t.localEID.String()))
}

func (t *TXTask) failAll(cmds []Command) {
	if t.notifier == nil {
		return
	}
	for _, cmd := range cmds {
		t.notifier.TransmissionResult(cmd, false)
	}
}

// wireSizeEstimate gives BeginPacket a size hint; the CLA is free to ignore
// it and frame by its own accounting (e.g. length-prefixed or delimited).
func wireSizeEstimate(b *bundle.Bundle) int {
	return b.PayloadLen() + 64
}
