package cla

import (
	"context"

	"github.com/dtnkit/bpa/internal/bufpool"
	"github.com/dtnkit/bpa/internal/logger"
)

// Parser turns assembled wire bytes into a bundle and hands it to notifier,
// the version-dispatched counterpart of Serializer (spec §6's black-box
// codec boundary).
type Parser func(raw []byte) error

// RXTask drives one link's read loop: read bytes, feed them through the
// CLA's framing parser, and on a completed bundle invoke parse + deliver
// (spec §4.5 RX task).
type RXTask struct {
	link   Link
	cla    CLA
	parse  Parser
	bufLen int
}

// NewRXTask constructs an RX task for link.
func NewRXTask(link Link, c CLA, parse Parser, bufLen int) *RXTask {
	if bufLen <= 0 {
		bufLen = 4096
	}
	return &RXTask{link: link, cla: c, parse: parse, bufLen: bufLen}
}

// Run reads and dispatches until ctx is cancelled or the link disconnects.
// The read buffer is drawn from the shared buffer pool (SPEC_FULL.md's
// wiring for archipel-core's per-connection buffer-reuse discipline) rather
// than allocated fresh per link, since RX tasks are long-lived and read
// continuously.
func (t *RXTask) Run(ctx context.Context) {
	t.cla.RXResetParsers(t.link)
	buf := bufpool.Get(t.bufLen)
	defer bufpool.Put(buf)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := t.cla.Read(t.link, buf)
		if err != nil {
			t.cla.DisconnectHandler(t.link)
			return
		}
		if n == 0 {
			continue
		}

		offset := 0
		for offset < n {
			result := t.cla.RXForward(t.link, buf[offset:n], n-offset)
			switch result.Status {
			case ParseError:
				logger.Warn("cla rx: framing parser error, disconnecting")
				t.cla.DisconnectHandler(t.link)
				return
			case ParseBundleReady:
				if err := t.parse(result.RawBundle); err != nil {
					logger.Warn("cla rx: bundle parse failed", logger.Err(err))
				}
				t.cla.RXResetParsers(t.link)
			}
			if result.Consumed <= 0 {
				// Parser made no progress; avoid spinning.
				offset = n
				break
			}
			offset += result.Consumed
		}
	}
}
