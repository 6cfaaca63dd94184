package yarp

import (
	"fmt"
	"time"

	"github.com/hanyuan666/yarp/carrier"
	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/internal/observability"
	"github.com/hanyuan666/yarp/msg"
)

// Write sends a command to a port's administrative channel and returns
// the reply. The transport opened for the call is owned by the call
// and closed on every path.
func (n *Network) Write(dest contact.Contact, cmd *msg.Message, style contact.Style) (*msg.Message, error) {
	return n.writer(dest, cmd, style)
}

func (n *Network) adminWrite(dest contact.Contact, cmd *msg.Message, style contact.Style) (reply *msg.Message, err error) {
	start := time.Now()
	defer func() {
		observability.RecordAdminWrite(err == nil, time.Since(start))
	}()

	// When the name service does not allocate port numbers centrally,
	// the conversation runs through a transient local port identity
	// rather than the bare admin route.
	from := "admin"
	if !n.ns.ServerAllocatesPortNumbers() {
		from = "/network_write"
	}

	addr := dest
	if !addr.IsValid() {
		resolved, qerr := n.ns.QueryName(dest.Name)
		if qerr != nil || !resolved.IsValid() {
			if !style.Quiet {
				n.log.Error().Str("port", dest.Name).Msg("cannot find port")
			}
			return nil, fmt.Errorf("%w: %s", ErrUnresolved, dest.Name)
		}
		addr = resolved
	}
	if style.Carrier != "" {
		addr = addr.WithCarrier(style.Carrier)
	}

	timeout := style.TimeoutDuration()
	conn, err := n.carriers.Connect(addr, timeout)
	if err != nil {
		if !style.Quiet {
			n.log.Error().Str("port", dest.Name).Err(err).Msg("cannot connect to port")
		}
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, dest.Name)
	}
	defer conn.Close()
	if timeout > 0 {
		conn.SetTimeout(timeout)
	}

	routeCarrier := style.Carrier
	if routeCarrier == "" {
		routeCarrier = "text_ack"
	}
	route := carrier.Route{From: from, To: dest.Name, Carrier: routeCarrier}
	if err := conn.Open(route); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, dest.Name)
	}

	if conn.CanEscape() {
		tag := byte('d')
		if style.Admin {
			tag = 'a'
		}
		if err := conn.WriteTag(tag); err != nil {
			if !style.Quiet {
				n.log.Error().Err(err).Msg("could not write to connection")
			}
			return nil, fmt.Errorf("%w: %s", ErrUnreachable, dest.Name)
		}
	}
	if err := conn.WriteMessage(cmd); err != nil {
		if !style.Quiet {
			n.log.Error().Err(err).Msg("could not write to connection")
		}
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, dest.Name)
	}
	if !style.ExpectReply {
		return msg.New(), nil
	}
	reply, err = conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, dest.Name)
	}
	if reply.Size() > 0 && reply.Get(0).AsString() == "fail" {
		return reply, fmt.Errorf("%w: %s", ErrProtocolDenied, reply.String())
	}
	return reply, nil
}
