package yarp

import (
	"fmt"
	"time"

	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
)

// Exists reports whether a port is registered and answering on its
// administrative channel. A liveness probe is sent after resolution:
// our servers answer with a version line, foreign name services with a
// dictionary; anything else counts as absent.
func (n *Network) Exists(port string) bool {
	return n.ExistsWithStyle(port, contact.DefaultStyle())
}

// ExistsWithStyle probes a port under an explicit style.
func (n *Network) ExistsWithStyle(port string, style contact.Style) bool {
	resolved, err := n.QueryName(port)
	if err != nil || !resolved.IsValid() {
		if !style.Quiet {
			n.log.Info().Str("port", port).Msg("port not registered")
		}
		return false
	}
	probe := msg.New().AddVocab("ver")
	rpc := style
	rpc.Admin = true
	reply, err := n.writer(contact.FromName(port), probe, rpc)
	if err != nil {
		return false
	}
	head := reply.Get(0).AsString()
	return head == "ver" || head == "dict"
}

// Sync blocks until a port exists, polling on the installed clock. The
// style timeout bounds the wait; without one the call waits forever.
func (n *Network) Sync(port string, style contact.Style) error {
	const pollInterval = 500 * time.Millisecond
	clock := CurrentClock()
	deadline := time.Time{}
	if d := style.TimeoutDuration(); d > 0 {
		deadline = clock.Now().Add(d)
	}
	for {
		if n.ExistsWithStyle(port, quietCopy(style)) {
			return nil
		}
		if !deadline.IsZero() && !clock.Now().Before(deadline) {
			if !style.Quiet {
				n.log.Warn().Str("port", port).Msg("timed out waiting for port")
			}
			return fmt.Errorf("%w: %s", ErrUnreachable, port)
		}
		clock.Delay(pollInterval)
	}
}

func quietCopy(style contact.Style) contact.Style {
	style.Quiet = true
	return style
}

// Exists reports on a port through the shared handle.
func Exists(port string) bool { return Default().Exists(port) }

// Sync waits for a port through the shared handle.
func Sync(port string, style contact.Style) error { return Default().Sync(port, style) }
