package yarp

import (
	"fmt"
	"strings"

	"github.com/hanyuan666/yarp/carrier"
	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/internal/observability"
)

// needsLookup reports whether a contact must go through the name
// service before it can be used: no host, and not a topic.
func needsLookup(c contact.Contact) bool {
	if c.Host != "" {
		return false
	}
	return c.Carrier != "topic"
}

// metaConnect is the arbitration engine. It decides which peer
// initiates, over which carrier, and whether the operation goes to the
// name service instead of any port, then enacts the decision.
//
// Either endpoint may be a topic, in which case the link is virtual
// and only the name server is involved. Otherwise the engine asks the
// source to connect to the destination when the source's carrier can
// initiate and the chosen carrier pushes; when only the destination
// can initiate and the carrier pulls, the request is reversed.
func (n *Network) metaConnect(src, dest string, style contact.Style, mode carrier.Mode) (err error) {
	defer func() {
		observability.RecordConnectionOp(mode.String(), err == nil)
	}()

	n.log.Debug().
		Str("src", src).Str("dest", dest).Str("mode", mode.String()).
		Msg("working on connection")

	// The expressed contacts, without name-server input. Whitespace
	// separates name, carrier and address, so a parsed name never holds
	// any; IsValidName rejects the rest.
	dynamicSrc := contact.FromString(src)
	dynamicDest := contact.FromString(dest)
	if !contact.IsValidName(dynamicSrc.Name) {
		n.diag(style, "no way to make connection, invalid source '%s'", dynamicSrc.Name)
		return fmt.Errorf("%w: source %q", ErrInvalidName, dynamicSrc.Name)
	}
	if !contact.IsValidName(dynamicDest.Name) {
		n.diag(style, "no way to make connection, invalid destination '%s'", dynamicDest.Name)
		return fmt.Errorf("%w: destination %q", ErrInvalidName, dynamicDest.Name)
	}

	topical := style.Persistent ||
		dynamicSrc.Carrier == "topic" || dynamicDest.Carrier == "topic"
	topicalNeedsLookup := !n.ns.ConnectionHasNameOfEndpoints()

	// Complete the contacts from the name server where needed. On a
	// persistent operation a miss is survivable: the subscription is
	// recorded against the dynamic form and reinstated later.
	staticSrc := dynamicSrc
	if needsLookup(dynamicSrc) && (topicalNeedsLookup || !topical) {
		resolved, qerr := n.ns.QueryName(dynamicSrc.Name)
		switch {
		case qerr == nil && resolved.IsValid():
			staticSrc = resolved
		case style.Persistent:
			staticSrc = dynamicSrc
		default:
			n.diag(style, "could not find source port %s", src)
			return fmt.Errorf("%w: source %s", ErrUnresolved, src)
		}
	}
	staticDest := dynamicDest
	if needsLookup(dynamicDest) && (topicalNeedsLookup || !topical) {
		resolved, qerr := n.ns.QueryName(dynamicDest.Name)
		switch {
		case qerr == nil && resolved.IsValid():
			staticDest = resolved
		case style.Persistent:
			staticDest = dynamicDest
		default:
			n.diag(style, "could not find destination port %s", dest)
			return fmt.Errorf("%w: destination %s", ErrUnresolved, dest)
		}
	}
	if staticSrc.Carrier == "" {
		staticSrc.Carrier = "tcp"
	}
	if staticDest.Carrier == "" {
		staticDest.Carrier = "tcp"
	}

	// Two foreign-RPC endpoints cannot talk to each other directly;
	// assume the first is one of ours and fall back to the ground
	// transport on both sides.
	if staticSrc.Carrier == "xmlrpc" &&
		(staticDest.Carrier == "xmlrpc" || strings.HasPrefix(staticDest.Carrier, "rossrv")) &&
		mode == carrier.ModeConnect {
		staticSrc.Carrier = "tcp"
		staticDest.Carrier = "tcp"
	}

	srcIsTopic := staticSrc.Carrier == "topic"
	destIsTopic := staticDest.Carrier == "topic"

	// Persistent port-to-port links bypass the ports entirely.
	if style.Persistent && !srcIsTopic && !destIsTopic {
		return n.persistentOp(staticSrc, staticDest, style, mode)
	}

	// Ask each side's carrier whether it can start the standard
	// handshake. A side that cannot pins the connection to the carrier
	// it registered with.
	carrierConstraint := ""
	srcIsCompetent := false
	destIsCompetent := false
	if !srcIsTopic && !topical {
		if c := n.carriers.Choose(staticSrc.Carrier); c != nil {
			if c.BootstrapName() != "" {
				srcIsCompetent = true
			} else {
				carrierConstraint = staticSrc.Carrier
			}
		}
	}
	if !destIsTopic && !topical {
		if c := n.carriers.Choose(staticDest.Carrier); c != nil {
			if c.BootstrapName() != "" {
				destIsCompetent = true
			} else {
				carrierConstraint = staticDest.Carrier
			}
		}
	}

	if srcIsTopic || destIsTopic {
		return n.topicOp(staticSrc, staticDest, style, mode, srcIsTopic)
	}

	// Carrier selection: an explicit user choice wins, a constraint
	// from a non-competent side must agree with it, and otherwise the
	// registered carriers decide.
	if dynamicSrc.Carrier != "" {
		style.Carrier = dynamicSrc.Carrier
	}
	if dynamicDest.Carrier != "" {
		style.Carrier = dynamicDest.Carrier
	}
	if style.Carrier != "" && carrierConstraint != "" {
		chosen := contact.BareCarrier(style.Carrier)
		constrained := contact.BareCarrier(carrierConstraint)
		if chosen != constrained {
			n.diag(style, "conflict between %s and %s", chosen, constrained)
			return fmt.Errorf("%w: between %s and %s", ErrCarrierConflict, chosen, constrained)
		}
	}
	if carrierConstraint != "" {
		style.Carrier = carrierConstraint
		if contact.BareCarrier(dynamicSrc.Carrier) == contact.BareCarrier(style.Carrier) {
			style.Carrier += contact.CarrierParams(dynamicSrc.Carrier)
		}
		if contact.BareCarrier(dynamicDest.Carrier) == contact.BareCarrier(style.Carrier) {
			style.Carrier += contact.CarrierParams(dynamicDest.Carrier)
		}
	}
	if style.Carrier == "" {
		style.Carrier = staticDest.Carrier
		if contact.BareCarrier(staticSrc.Carrier) == contact.BareCarrier(style.Carrier) {
			style.Carrier += contact.CarrierParams(staticSrc.Carrier)
		}
	}
	if style.Carrier == "" {
		style.Carrier = staticSrc.Carrier
	}

	// Direction decision over the chosen carrier's push/pull flag.
	connectionIsPush := false
	connectionIsPull := false
	var connectionCarrier carrier.Carrier
	if contact.BareCarrier(style.Carrier) != "topic" {
		connectionCarrier = n.carriers.Choose(style.Carrier)
		if connectionCarrier != nil {
			connectionIsPush = connectionCarrier.IsPush()
			connectionIsPull = !connectionIsPush
		}
	}

	if (srcIsCompetent && connectionIsPush) || topical {
		return n.enactConnection(staticSrc, contact.FromString(dest), style, mode, false, true)
	}
	if destIsCompetent && connectionIsPull {
		return n.enactConnection(staticDest, contact.FromString(src), style, mode, true, true)
	}

	if connectionCarrier != nil {
		var handled bool
		var cerr error
		if !connectionIsPull {
			handled, cerr = connectionCarrier.Connect(staticSrc, contact.FromString(dest), style, mode, false)
		} else {
			handled, cerr = connectionCarrier.Connect(staticDest, contact.FromString(src), style, mode, true)
		}
		if handled {
			if cerr != nil {
				n.diag(style, "custom carrier method did not work")
				return cerr
			}
			if !style.Quiet && style.VerboseOnSuccess {
				n.log.Info().Msg("added connection using custom carrier method")
			}
			return nil
		}
	}

	if mode != carrier.ModeDisconnect {
		n.diag(style, "no way to make connection %s->%s", src, dest)
	}
	return fmt.Errorf("%w: %s->%s", ErrNoRoute, src, dest)
}

// persistentOp records or removes a port-to-port subscription with the
// name service. Existence checks on subscriptions are not supported.
func (n *Network) persistentOp(src, dest contact.Contact, style contact.Style, mode carrier.Mode) error {
	var err error
	switch mode {
	case carrier.ModeConnect:
		err = n.ns.ConnectPortToPortPersistently(src, dest, style)
	case carrier.ModeDisconnect:
		err = n.ns.DisconnectPortToPortPersistently(src, dest, style)
	default:
		n.diag(style, "cannot check subscriptions yet")
		return fmt.Errorf("%w: existence check on persistent link", ErrUnsupported)
	}
	if err != nil {
		return err
	}
	if !style.Quiet {
		n.log.Info().Msg("port-to-port persistent connection updated")
	}
	return nil
}

// topicOp installs or removes a virtual link through the name service.
func (n *Network) topicOp(src, dest contact.Contact, style contact.Style, mode carrier.Mode, srcIsTopic bool) error {
	var err error
	switch {
	case mode == carrier.ModeExists:
		n.diag(style, "cannot check subscriptions yet")
		return fmt.Errorf("%w: existence check on topic link", ErrUnsupported)
	case srcIsTopic && mode == carrier.ModeConnect:
		err = n.ns.ConnectTopicToPort(src, dest, style)
	case srcIsTopic:
		err = n.ns.DisconnectTopicFromPort(src, dest, style)
	case mode == carrier.ModeConnect:
		err = n.ns.ConnectPortToTopic(src, dest, style)
	default:
		err = n.ns.DisconnectPortFromTopic(src, dest, style)
	}
	if err != nil {
		return err
	}
	if !style.Quiet && style.VerboseOnSuccess {
		n.log.Info().Str("mode", mode.String()).Msg("topic connection updated")
	}
	return nil
}

// diag emits one human-readable failure line unless the style asks for
// silence.
func (n *Network) diag(style contact.Style, format string, args ...any) {
	if style.Quiet {
		return
	}
	n.log.Warn().Msgf(format, args...)
}
