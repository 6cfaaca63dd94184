package yarp

import (
	"fmt"

	"github.com/hanyuan666/yarp/carrier"
	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
)

// enactConnection drives the administrative dialogue with the chosen
// initiator. src is the port being asked to act; dest is the other end
// of the link. With reversed set, src is the destination of the data
// flow and the probe inspects its inputs rather than its outputs.
//
// compensate permits the one pre-step this procedure may take: when
// the probe shows a connectionless link whose sender would never learn
// about a teardown, a disconnect is issued in the opposite direction
// first. The pre-step itself runs with compensation off, keeping the
// procedure acyclic.
func (n *Network) enactConnection(src, dest contact.Contact, style contact.Style, mode carrier.Mode, reversed, compensate bool) error {
	rpc := contact.Style{
		Admin:       true,
		Quiet:       style.Quiet,
		Timeout:     style.Timeout,
		ExpectReply: true,
	}

	if style.Persistent {
		return n.persistentOp(src, dest, style, mode)
	}

	probe := msg.New().AddVocab("list")
	if reversed {
		probe.AddVocab("in")
	} else {
		probe.AddVocab("out")
	}
	probe.AddString(dest.Name)
	n.log.Debug().Str("port", src.String()).Str("cmd", probe.String()).Msg("asking")
	reply, err := n.writer(src, probe, rpc)
	if err != nil {
		n.noteDud(src)
		return fmt.Errorf("%w: %s", ErrUnreachable, src.Name)
	}

	if reply.Check("carrier") {
		current := reply.Find("carrier").AsString()
		if !style.Quiet {
			n.log.Info().
				Str("src", src.Name).Str("dest", dest.Name).Str("carrier", current).
				Msg("connection found")
		}
		if mode == carrier.ModeExists {
			if contact.BareCarrier(current) == contact.BareCarrier(style.Carrier) {
				return nil
			}
			return fmt.Errorf("%w: connection uses %s, not %s",
				errConnectionNotFound, current, style.Carrier)
		}

		// A connectionless sender keeps pushing after the receiver
		// side is torn down; it has to be told to stop explicitly
		// before the link is changed.
		currentIsPush := true
		if reply.Check("push") {
			currentIsPush = reply.Find("push").AsBool()
		}
		currentIsConnectionless := false
		if reply.Check("connectionless") {
			currentIsConnectionless = reply.Find("connectionless").AsBool()
		}
		if compensate && currentIsConnectionless &&
			((reversed && currentIsPush) || (!reversed && !currentIsPush)) {
			if cerr := n.enactConnection(dest, src, style, carrier.ModeDisconnect, !reversed, false); cerr != nil {
				n.log.Debug().Err(cerr).Msg("compensating disconnect failed")
			}
		}
	}
	if mode == carrier.ModeExists {
		return fmt.Errorf("%w: %s->%s", errConnectionNotFound, src.Name, dest.Name)
	}

	cmd := msg.New()
	if mode == carrier.ModeDisconnect {
		cmd.AddVocab("del")
		cmd.AddString(dest.Name)
	} else {
		cmd.AddVocab("add")
		target := dest
		if style.Carrier != "" {
			target.Carrier = style.Carrier
		}
		cmd.AddString(target.String())
	}

	actor := src
	if actor.Port <= 0 {
		resolved, qerr := n.QueryName(actor.Name)
		if qerr == nil {
			actor = resolved
		}
	}

	n.log.Debug().Str("port", actor.String()).Str("cmd", cmd.String()).Msg("asking")
	reply, err = n.writer(actor, cmd, rpc)
	if err != nil {
		n.noteDud(src)
		return fmt.Errorf("%w: %s", ErrUnreachable, src.Name)
	}

	status := msg.ParseStatus(reply)
	text := status.Text
	if mode == carrier.ModeDisconnect && !status.Ok {
		text = "no such connection"
	}
	if mode == carrier.ModeConnect && !status.Ok {
		n.noteDud(dest)
	}
	if !style.Quiet && (style.VerboseOnSuccess || !status.Ok) {
		if status.Ok {
			n.log.Info().Msgf("Success: %s", text)
		} else {
			n.log.Warn().Msgf("Failure: %s", text)
		}
	}
	if !status.Ok {
		return fmt.Errorf("%w: %s", ErrProtocolDenied, text)
	}
	return nil
}
