package bpa

import (
	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/internal/logger"
	"github.com/dtnkit/bpa/pkg/eid"
)

// Well-known built-in sinks (SPEC_FULL.md SUPPLEMENTED FEATURES: a minimal
// echo agent and an administrative ping, mirroring archipel-core's
// "application_agent_echo" demo agent).
const (
	SinkEcho        = "echo"
	SinkEchoNumeric = "9001"
)

// RegisterBuiltinAgents wires the echo agent(s) into p's registry under
// both the dtn and ipn well-known sink names, so either addressing scheme
// reaches it. Must be called once during startup, before Start: it writes
// the registry directly rather than through the signal queue, since no
// event-loop goroutine is consuming it yet.
func RegisterBuiltinAgents(p *Processor) error {
	echo := &echoAgent{p: p}
	if err := p.registry.Register(SinkEcho, true, "", echo.deliver, nil); err != nil {
		return err
	}
	if err := p.registry.Register(SinkEchoNumeric, true, "", echo.deliver, nil); err != nil {
		return err
	}
	return nil
}

// echoAgent bounces every ADU it receives back to its source, re-dispatched
// through the normal local-dispatch path as a freshly originated bundle.
type echoAgent struct {
	p *Processor
}

func (a *echoAgent) deliver(adu bundle.ADU, _ any) {
	if adu.Source.IsNull() {
		return // nothing to echo back to
	}
	b, err := bundle.NewLocalBundle(
		bundle.V7,
		adu.Dest,
		adu.Source,
		eid.NullDTN,
		0,
		a.p.echoLifetimeMs(),
		a.p.now(),
		0,
		adu.Payload,
	)
	if err != nil {
		logger.Warn("bpa: echo agent failed to build reply", "err", err)
		return
	}
	a.p.SendLocal(b)
}

// echoLifetimeMs is a fixed one-hour lifetime for echo replies; the echo
// agent has no notion of the original request's remaining lifetime since
// ToADU already detached the bundle it arrived in.
func (p *Processor) echoLifetimeMs() int64 { return 3_600_000 }
