package carrier

import (
	"time"

	"github.com/hanyuan666/yarp/contact"
)

// tcpCarrier is the ground transport: connection-oriented push stream
// that can bootstrap the standard handshake itself.
type tcpCarrier struct{ Base }

func newTCP() *tcpCarrier {
	return &tcpCarrier{Base{
		CarrierName: "tcp",
		Bootstrap:   "tcp",
		Push:        true,
		Escape:      true,
	}}
}

func (c *tcpCarrier) New() Carrier { return &tcpCarrier{c.Base.fresh()} }

func (c *tcpCarrier) Dial(addr contact.Contact, timeout time.Duration) (Conn, error) {
	return dialText(addr, timeout, true)
}

// textCarrier is the human-readable variant of tcp, used by default
// for administrative conversations.
type textCarrier struct {
	Base
	ack bool
}

func newText(ack bool) *textCarrier {
	name := "text"
	if ack {
		name = "text_ack"
	}
	return &textCarrier{
		Base: Base{
			CarrierName: name,
			Bootstrap:   name,
			Push:        true,
			Escape:      true,
		},
		ack: ack,
	}
}

func (c *textCarrier) New() Carrier { return &textCarrier{Base: c.Base.fresh(), ack: c.ack} }

func (c *textCarrier) Dial(addr contact.Contact, timeout time.Duration) (Conn, error) {
	return dialText(addr, timeout, true)
}

// udpCarrier pushes datagrams without a session. It bootstraps over
// tcp, so it still counts as competent.
type udpCarrier struct{ Base }

func newUDP() *udpCarrier {
	return &udpCarrier{Base{
		CarrierName:    "udp",
		Bootstrap:      "tcp",
		Push:           true,
		ConnectionLess: true,
	}}
}

func (c *udpCarrier) New() Carrier { return &udpCarrier{c.Base.fresh()} }

// mcastCarrier fans datagrams out to a group; same admin arrangement
// as udp.
type mcastCarrier struct{ Base }

func newMcast() *mcastCarrier {
	return &mcastCarrier{Base{
		CarrierName:    "mcast",
		Bootstrap:      "tcp",
		Push:           true,
		ConnectionLess: true,
	}}
}

func (c *mcastCarrier) New() Carrier { return &mcastCarrier{c.Base.fresh()} }

// mjpegCarrier serves frames to whoever asks: a pull carrier that
// cannot bootstrap the standard handshake. Its links are established
// from the responder side through the standard dialogue.
type mjpegCarrier struct{ Base }

func newMjpeg() *mjpegCarrier {
	return &mjpegCarrier{Base{
		CarrierName: "mjpeg",
	}}
}

func (c *mjpegCarrier) New() Carrier { return &mjpegCarrier{c.Base.fresh()} }

func (c *mjpegCarrier) Connect(src, dst contact.Contact, style contact.Style, mode Mode, reversed bool) (bool, error) {
	if enact == nil {
		return false, nil
	}
	return true, enact(src, dst, style, mode, reversed)
}

// Builtins returns prototypes for the carriers every deployment has.
func Builtins() []Carrier {
	return []Carrier{
		newTCP(),
		newText(false),
		newText(true),
		newUDP(),
		newMcast(),
		newMjpeg(),
	}
}
