package namespace

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hanyuan666/yarp/contact"
)

// Store answers name queries from an in-process table. Installed as a
// query bypass it shadows the network name service; the embedded name
// server uses one as its registry.
type Store interface {
	Query(name string) (contact.Contact, bool)
	Register(c contact.Contact) (contact.Contact, error)
	Unregister(name string) error
	Announce(name string, active bool) error
	Names() []string
}

type memoryEntry struct {
	contact contact.Contact
	active  bool
}

// MemoryStore is the in-process registry: a Store plus a
// SubscriptionStore, safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	subs    map[string]Subscription
	topics  map[string]bool
}

// NewMemoryStore builds an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		subs:    make(map[string]Subscription),
		topics:  make(map[string]bool),
	}
}

// Query returns the active registration for name.
func (s *MemoryStore) Query(name string) (contact.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok || !e.active {
		return contact.Contact{}, false
	}
	return e.contact, true
}

// Register records a contact under its name, reactivating duds.
func (s *MemoryStore) Register(c contact.Contact) (contact.Contact, error) {
	if !contact.IsValidName(c.Name) {
		return contact.Contact{}, fmt.Errorf("store: invalid name %q", c.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[c.Name] = memoryEntry{contact: c, active: true}
	return c, nil
}

// Unregister removes a name outright.
func (s *MemoryStore) Unregister(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	return nil
}

// Announce flips the active flag on a registration. Marking an unknown
// name inactive is a no-op; the caller is reporting staleness, not
// asking for it to exist.
func (s *MemoryStore) Announce(name string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return nil
	}
	e.active = active
	s.entries[name] = e
	return nil
}

// Names lists registered names in stable order, duds included.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func subKey(src, dst string) string { return src + "->" + dst }

// Subscribe records a persistent link.
func (s *MemoryStore) Subscribe(src, dst, carrier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[subKey(src, dst)] = Subscription{Src: src, Dst: dst, Carrier: carrier}
	return nil
}

// Unsubscribe drops a persistent link.
func (s *MemoryStore) Unsubscribe(src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[subKey(src, dst)]; !ok {
		return ErrNotFound
	}
	delete(s.subs, subKey(src, dst))
	return nil
}

// Subscriptions returns links touching port, or all links for "".
func (s *MemoryStore) Subscriptions(port string) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Subscription
	for _, sub := range s.subs {
		if port == "" || sub.Src == port || sub.Dst == port {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Src != out[j].Src {
			return out[i].Src < out[j].Src
		}
		return out[i].Dst < out[j].Dst
	})
	return out, nil
}

// SetTopic marks or unmarks a name as a topic.
func (s *MemoryStore) SetTopic(name string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.topics[name] = true
	} else {
		delete(s.topics, name)
	}
	return nil
}

// IsTopic reports whether name is a topic.
func (s *MemoryStore) IsTopic(name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics[name], nil
}

// Topics lists topic names in stable order.
func (s *MemoryStore) Topics() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for name := range s.topics {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
