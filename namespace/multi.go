package namespace

import (
	"sync"

	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
)

// Multi is the process-wide name-space handle. It fronts the active
// name service and lets an in-process Store shadow it: queries,
// registrations, and announcements hit the bypass store when one is
// installed. With no backing service and no bypass every operation
// reports ErrNoNameServer.
type Multi struct {
	mu     sync.RWMutex
	ns     NameSpace
	bypass Store
}

// NewMulti fronts the given name service, which may be nil for a
// process running without one.
func NewMulti(ns NameSpace) *Multi {
	return &Multi{ns: ns}
}

// SetNameSpace swaps the backing name service.
func (m *Multi) SetNameSpace(ns NameSpace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ns = ns
}

// SetQueryBypass installs an in-process store that shadows resolution,
// or removes it when nil.
func (m *Multi) SetQueryBypass(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bypass = store
}

// QueryBypass returns the installed bypass store, nil when none.
func (m *Multi) QueryBypass() Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bypass
}

func (m *Multi) parts() (NameSpace, Store) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ns, m.bypass
}

func (m *Multi) NameServerContact() contact.Contact {
	ns, _ := m.parts()
	if ns == nil {
		return contact.Contact{}
	}
	return ns.NameServerContact()
}

func (m *Multi) QueryName(name string) (contact.Contact, error) {
	ns, bypass := m.parts()
	if bypass != nil {
		if c, ok := bypass.Query(name); ok {
			return c, nil
		}
		if ns == nil {
			return contact.Contact{}, ErrNotFound
		}
	}
	if ns == nil {
		return contact.Contact{}, ErrNoNameServer
	}
	return ns.QueryName(name)
}

func (m *Multi) RegisterName(name string) (contact.Contact, error) {
	ns, bypass := m.parts()
	if bypass != nil {
		return bypass.Register(contact.FromName(name))
	}
	if ns == nil {
		return contact.Contact{}, ErrNoNameServer
	}
	return ns.RegisterName(name)
}

func (m *Multi) RegisterContact(c contact.Contact) (contact.Contact, error) {
	ns, bypass := m.parts()
	if bypass != nil {
		return bypass.Register(c)
	}
	if ns == nil {
		return contact.Contact{}, ErrNoNameServer
	}
	return ns.RegisterContact(c)
}

func (m *Multi) UnregisterName(name string) error {
	ns, bypass := m.parts()
	if bypass != nil {
		return bypass.Unregister(name)
	}
	if ns == nil {
		return ErrNoNameServer
	}
	return ns.UnregisterName(name)
}

func (m *Multi) UnregisterContact(c contact.Contact) error {
	return m.UnregisterName(c.Name)
}

func (m *Multi) Announce(name string, active bool) error {
	ns, bypass := m.parts()
	if bypass != nil {
		return bypass.Announce(name, active)
	}
	if ns == nil {
		return ErrNoNameServer
	}
	return ns.Announce(name, active)
}

func (m *Multi) backing() (NameSpace, error) {
	ns, _ := m.parts()
	if ns == nil {
		return nil, ErrNoNameServer
	}
	return ns, nil
}

func (m *Multi) ConnectPortToPortPersistently(src, dst contact.Contact, style contact.Style) error {
	ns, err := m.backing()
	if err != nil {
		return err
	}
	return ns.ConnectPortToPortPersistently(src, dst, style)
}

func (m *Multi) DisconnectPortToPortPersistently(src, dst contact.Contact, style contact.Style) error {
	ns, err := m.backing()
	if err != nil {
		return err
	}
	return ns.DisconnectPortToPortPersistently(src, dst, style)
}

func (m *Multi) ConnectPortToTopic(src, dst contact.Contact, style contact.Style) error {
	ns, err := m.backing()
	if err != nil {
		return err
	}
	return ns.ConnectPortToTopic(src, dst, style)
}

func (m *Multi) DisconnectPortFromTopic(src, dst contact.Contact, style contact.Style) error {
	ns, err := m.backing()
	if err != nil {
		return err
	}
	return ns.DisconnectPortFromTopic(src, dst, style)
}

func (m *Multi) ConnectTopicToPort(src, dst contact.Contact, style contact.Style) error {
	ns, err := m.backing()
	if err != nil {
		return err
	}
	return ns.ConnectTopicToPort(src, dst, style)
}

func (m *Multi) DisconnectTopicFromPort(src, dst contact.Contact, style contact.Style) error {
	ns, err := m.backing()
	if err != nil {
		return err
	}
	return ns.DisconnectTopicFromPort(src, dst, style)
}

func (m *Multi) WriteToNameServer(cmd *msg.Message, style contact.Style) (*msg.Message, error) {
	ns, err := m.backing()
	if err != nil {
		return nil, err
	}
	return ns.WriteToNameServer(cmd, style)
}

func (m *Multi) LocalOnly() bool {
	ns, bypass := m.parts()
	if ns == nil {
		return bypass != nil
	}
	return ns.LocalOnly()
}

func (m *Multi) ServerAllocatesPortNumbers() bool {
	ns, _ := m.parts()
	if ns == nil {
		return false
	}
	return ns.ServerAllocatesPortNumbers()
}

func (m *Multi) ConnectionHasNameOfEndpoints() bool {
	ns, _ := m.parts()
	if ns == nil {
		return true
	}
	return ns.ConnectionHasNameOfEndpoints()
}
