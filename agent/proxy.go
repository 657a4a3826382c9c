package agent

import (
	"fmt"

	"github.com/hupe1980/agentbus/core"
)

// Proxy represents a foreign (non-bus-native) system inside the bus. Events
// matching the forward selector are pushed to the Outbound channel, where an
// adapter goroutine translates them into the foreign protocol; inbound
// traffic is injected by the adapter through the bus emission API. The proxy
// pattern is the sole supported interoperability extension point: foreign
// agents never receive references into the bus or other agents.
//
//	proxy := agent.NewProxy("upstream", selector.MustCompile(`{target: "upstream"}`), 64)
//	_ = b.Register(proxy)
//	go func() {
//	    for ev := range proxy.Outbound() {
//	        reply := callForeignSystem(ev)
//	        b.Emit("upstream.reply", reply)
//	    }
//	}()
type Proxy struct {
	*Base
	outbound chan core.Event
}

// NewProxy constructs a proxy agent whose forward selector decides which
// events cross the boundary. buffer sizes the outbound channel; when the
// adapter falls behind and the buffer fills, the forwarding handler fails,
// which the bus reports as an error event rather than blocking dispatch.
func NewProxy(name string, forward core.Selector, buffer int) *Proxy {
	p := &Proxy{
		Base:     New(name),
		outbound: make(chan core.Event, buffer),
	}
	p.React(forward, p.forwardHandler)
	return p
}

// Outbound returns the stream of events forwarded to the foreign system.
func (p *Proxy) Outbound() <-chan core.Event { return p.outbound }

// Close closes the outbound channel. Call after deregistering the proxy and
// once no dispatch can still be in flight.
func (p *Proxy) Close() { close(p.outbound) }

func (p *Proxy) forwardHandler(act *core.Activation) error {
	select {
	case p.outbound <- act.Event:
		return nil
	default:
		return fmt.Errorf("proxy %s: outbound buffer full, dropping event %s", p.Name(), act.Event.ID)
	}
}
