package carrier

import (
	"fmt"
	"sync"
	"time"

	"github.com/hanyuan666/yarp/contact"
)

// Registry stores carrier prototypes by bare name. Lookups return
// fresh configured instances owned by the caller; the registry is
// additive and duplicate names overwrite.
type Registry struct {
	mu     sync.RWMutex
	protos map[string]Carrier
}

// NewRegistry builds a registry seeded with the built-in carriers.
func NewRegistry() *Registry {
	r := &Registry{protos: make(map[string]Carrier)}
	for _, c := range Builtins() {
		r.Register(c)
	}
	return r
}

// Register installs a prototype under its own name.
func (r *Registry) Register(proto Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protos[proto.Name()] = proto
}

// Choose returns a fresh instance of the named carrier, configured
// with any '+'-parameter suffix on the input, or nil when the bare
// name is unknown.
func (r *Registry) Choose(name string) Carrier {
	bare := contact.BareCarrier(name)
	r.mu.RLock()
	proto, ok := r.protos[bare]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	c := proto.New()
	if err := c.Configure(contact.CarrierParams(name)); err != nil {
		return nil
	}
	return c
}

// Names returns the registered bare names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.protos))
	for name := range r.protos {
		out = append(out, name)
	}
	return out
}

// Connect opens an administrative channel to a resolved contact, using
// the contact's carrier or tcp when it names none.
func (r *Registry) Connect(addr contact.Contact, timeout time.Duration) (Conn, error) {
	name := addr.Carrier
	if name == "" {
		name = "tcp"
	}
	c := r.Choose(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCarrier, contact.BareCarrier(name))
	}
	conn, err := c.Dial(addr, timeout)
	if err == nil {
		return conn, nil
	}
	// Carriers without an admin channel of their own bootstrap the
	// conversation over their bootstrap carrier.
	if boot := c.BootstrapName(); boot != "" && boot != contact.BareCarrier(name) {
		if bc := r.Choose(boot); bc != nil {
			return bc.Dial(addr, timeout)
		}
	}
	return nil, err
}
