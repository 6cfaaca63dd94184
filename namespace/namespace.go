// Package namespace gives the connection engine a uniform view over
// the name services a process participates in: resolving and
// registering port names, recording persistent subscriptions, and
// installing topic links. The wire format of any particular name
// server stays behind this interface.
package namespace

import (
	"errors"

	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
)

var (
	ErrNotFound     = errors.New("namespace: name not found")
	ErrNoNameServer = errors.New("namespace: no name server configured")
	ErrDenied       = errors.New("namespace: name server denied request")
)

// NameSpace is the façade the engine talks to.
type NameSpace interface {
	// NameServerContact returns where the backing name server lives.
	NameServerContact() contact.Contact

	QueryName(name string) (contact.Contact, error)
	RegisterName(name string) (contact.Contact, error)
	RegisterContact(c contact.Contact) (contact.Contact, error)
	UnregisterName(name string) error
	UnregisterContact(c contact.Contact) error

	// Announce marks a registered name active or stale. Inactive
	// entries are duds: kept but not returned by queries until the
	// name registers again.
	Announce(name string, active bool) error

	ConnectPortToPortPersistently(src, dst contact.Contact, style contact.Style) error
	DisconnectPortToPortPersistently(src, dst contact.Contact, style contact.Style) error

	ConnectPortToTopic(src, dst contact.Contact, style contact.Style) error
	DisconnectPortFromTopic(src, dst contact.Contact, style contact.Style) error
	ConnectTopicToPort(src, dst contact.Contact, style contact.Style) error
	DisconnectTopicFromPort(src, dst contact.Contact, style contact.Style) error

	// WriteToNameServer sends a raw command to the name server and
	// returns its reply. Escape hatch for tooling.
	WriteToNameServer(cmd *msg.Message, style contact.Style) (*msg.Message, error)

	// LocalOnly reports whether names never leave this process.
	LocalOnly() bool

	// ServerAllocatesPortNumbers reports whether the name server hands
	// out port numbers centrally.
	ServerAllocatesPortNumbers() bool

	// ConnectionHasNameOfEndpoints reports whether recorded
	// connections carry endpoint names directly, letting topical
	// operations skip resolution.
	ConnectionHasNameOfEndpoints() bool
}

// Subscription is one persistent link recorded centrally.
type Subscription struct {
	Src     string
	Dst     string
	Carrier string
}

// SubscriptionStore keeps persistent subscriptions and topic marks.
// The in-memory store implements it for embedded and test use; the
// redisstore package implements it for deployments that outlive a
// single name-server process.
type SubscriptionStore interface {
	Subscribe(src, dst, carrier string) error
	Unsubscribe(src, dst string) error
	Subscriptions(port string) ([]Subscription, error)
	SetTopic(name string, active bool) error
	IsTopic(name string) (bool, error)
	Topics() ([]string, error)
}
