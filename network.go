// Package yarp is the connection-negotiation core of a distributed
// publish/subscribe middleware: it decides how two named ports should
// be linked and drives the administrative dialogue that realizes the
// decision. Given a source, a destination, and an optional requested
// carrier, the engine resolves names through the configured naming
// space, negotiates capabilities with carrier plugins, picks the
// initiating side, and issues connect, disconnect, or probe commands
// to the chosen port's administrative channel. Persistent and topic
// links are routed to the name service instead of any peer port.
package yarp

import (
	"github.com/rs/zerolog"

	"github.com/hanyuan666/yarp/carrier"
	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
	"github.com/hanyuan666/yarp/namespace"
)

// adminWriter delivers one command to a port's administrative channel
// and returns the reply. Swappable so the engine can be exercised
// without sockets.
type adminWriter func(dest contact.Contact, cmd *msg.Message, style contact.Style) (*msg.Message, error)

// Network binds the engine to a naming space and a carrier registry.
// Most processes use the shared handle from Default; separate Network
// values exist for embedding and tests.
type Network struct {
	ns       *namespace.Multi
	carriers *carrier.Registry
	log      zerolog.Logger
	writer   adminWriter
}

// NewNetwork builds an engine over the given naming space and carrier
// registry.
func NewNetwork(ns *namespace.Multi, carriers *carrier.Registry, log zerolog.Logger) *Network {
	n := &Network{ns: ns, carriers: carriers, log: log}
	n.writer = n.adminWrite
	return n
}

// NewLocalNetwork builds an engine confined to this process: an empty
// in-memory store shadows all resolution. Used by tests and by
// embedded deployments with no name server.
func NewLocalNetwork() *Network {
	multi := namespace.NewMulti(nil)
	multi.SetQueryBypass(namespace.NewMemoryStore())
	return NewNetwork(multi, carrier.NewRegistry(), loggerOrNop())
}

// NameSpace returns the engine's naming-space handle.
func (n *Network) NameSpace() *namespace.Multi { return n.ns }

// Carriers returns the engine's carrier registry.
func (n *Network) Carriers() *carrier.Registry { return n.carriers }

// SetQueryBypass shadows name resolution with an in-process store.
func (n *Network) SetQueryBypass(store namespace.Store) { n.ns.SetQueryBypass(store) }

// QueryBypass returns the installed bypass store, nil when none.
func (n *Network) QueryBypass() namespace.Store { return n.ns.QueryBypass() }

// QueryName completes a dynamic endpoint. A string that already names
// a reachable endpoint is returned as parsed, without consulting the
// name service.
func (n *Network) QueryName(name string) (contact.Contact, error) {
	if server := n.ns.NameServerContact(); server.Name != "" && server.Name == name {
		return server, nil
	}
	c := contact.FromString(name)
	if c.IsValid() {
		return c, nil
	}
	return n.ns.QueryName(name)
}

// RegisterName records a name with the naming space, letting the
// server fill in the address.
func (n *Network) RegisterName(name string) (contact.Contact, error) {
	return n.ns.RegisterName(name)
}

// RegisterContact records a fully specified endpoint.
func (n *Network) RegisterContact(c contact.Contact) (contact.Contact, error) {
	return n.ns.RegisterContact(c)
}

// UnregisterName withdraws a name.
func (n *Network) UnregisterName(name string) error {
	return n.ns.UnregisterName(name)
}

// UnregisterContact withdraws an endpoint registration.
func (n *Network) UnregisterContact(c contact.Contact) error {
	return n.ns.UnregisterContact(c)
}

// NameServerContact returns where the configured name server lives.
func (n *Network) NameServerContact() contact.Contact {
	return n.ns.NameServerContact()
}

// SetNameServerContact points the process at a name server, records it
// in the naming-space config, and swaps the backing client.
func (n *Network) SetNameServerContact(c contact.Contact) error {
	cfg := namespace.Config{
		Namespace: c.Name,
		Host:      c.Host,
		Port:      c.Port,
		Carrier:   c.Carrier,
	}
	if err := namespace.SaveConfig(namespace.ConfigPath(), cfg); err != nil {
		return err
	}
	n.ns.SetNameSpace(namespace.NewClient(c, n.carriers))
	return nil
}

// WriteToNameServer sends a raw command to the name server.
func (n *Network) WriteToNameServer(cmd *msg.Message, style contact.Style) (*msg.Message, error) {
	return n.ns.WriteToNameServer(cmd, style)
}

// noteDud marks an endpoint stale so queries avoid it until it
// registers again. Best effort.
func (n *Network) noteDud(c contact.Contact) {
	if err := n.ns.Announce(c.Name, false); err != nil {
		n.log.Debug().Str("port", c.Name).Err(err).Msg("could not mark port stale")
	}
}

// Connect links src to dest with default style.
func (n *Network) Connect(src, dest string) error {
	return n.ConnectWithStyle(src, dest, contact.DefaultStyle())
}

// ConnectWithStyle links src to dest under an explicit style.
func (n *Network) ConnectWithStyle(src, dest string, style contact.Style) error {
	return n.metaConnect(src, dest, style, carrier.ModeConnect)
}

// Disconnect removes the link from src to dest.
func (n *Network) Disconnect(src, dest string) error {
	return n.DisconnectWithStyle(src, dest, contact.DefaultStyle())
}

// DisconnectWithStyle removes the link under an explicit style.
func (n *Network) DisconnectWithStyle(src, dest string, style contact.Style) error {
	return n.metaConnect(src, dest, style, carrier.ModeDisconnect)
}

// IsConnected reports whether a link from src to dest exists.
func (n *Network) IsConnected(src, dest string) bool {
	return n.IsConnectedWithStyle(src, dest, contact.DefaultStyle())
}

// IsConnectedWithStyle probes a link under an explicit style.
func (n *Network) IsConnectedWithStyle(src, dest string, style contact.Style) bool {
	err := n.metaConnect(src, dest, style, carrier.ModeExists)
	if err != nil && !style.Quiet {
		n.log.Info().Str("src", src).Str("dest", dest).Msg("no connection found")
	}
	return err == nil
}

// Package-level convenience wrappers over the shared handle.

// Connect links src to dest through the process-wide engine.
func Connect(src, dest string) error { return Default().Connect(src, dest) }

// ConnectWithStyle links src to dest under an explicit style.
func ConnectWithStyle(src, dest string, style contact.Style) error {
	return Default().ConnectWithStyle(src, dest, style)
}

// Disconnect removes the link from src to dest.
func Disconnect(src, dest string) error { return Default().Disconnect(src, dest) }

// DisconnectWithStyle removes the link under an explicit style.
func DisconnectWithStyle(src, dest string, style contact.Style) error {
	return Default().DisconnectWithStyle(src, dest, style)
}

// IsConnected reports whether a link from src to dest exists.
func IsConnected(src, dest string) bool { return Default().IsConnected(src, dest) }

// QueryName completes a dynamic endpoint through the shared handle.
func QueryName(name string) (contact.Contact, error) { return Default().QueryName(name) }

// RegisterName records a name with the naming space.
func RegisterName(name string) (contact.Contact, error) { return Default().RegisterName(name) }

// UnregisterName withdraws a name.
func UnregisterName(name string) error { return Default().UnregisterName(name) }

// RegisterCarrier loads a carrier plugin into the shared registry.
func RegisterCarrier(name, library string) error {
	return Default().Carriers().Load(name, library)
}
