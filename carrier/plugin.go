package carrier

import (
	"errors"
	"fmt"
	"os"
	"plugin"
)

var (
	ErrPluginNotFound = errors.New("carrier: plugin not found")
	ErrPluginLoad     = errors.New("carrier: plugin load failed")
	ErrPluginFactory  = errors.New("carrier: plugin has no valid carrier factory")
)

// factorySymbol is the exported symbol a carrier plugin must provide.
const factorySymbol = "NewCarrier"

// Load opens a shared-object carrier plugin and installs its prototype
// under name. The plugin must export `func NewCarrier() carrier.Carrier`.
func (r *Registry) Load(name, library string) error {
	if _, err := os.Stat(library); err != nil {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, library)
	}
	p, err := plugin.Open(library)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPluginLoad, library, err)
	}
	sym, err := p.Lookup(factorySymbol)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPluginFactory, library)
	}
	factory, ok := sym.(func() Carrier)
	if !ok {
		return fmt.Errorf("%w: %s exports %s with the wrong type", ErrPluginFactory, library, factorySymbol)
	}
	proto := factory()
	if proto == nil {
		return fmt.Errorf("%w: %s factory returned nil", ErrPluginFactory, library)
	}
	if name == "" {
		name = proto.Name()
	}
	r.mu.Lock()
	r.protos[name] = proto
	r.mu.Unlock()
	return nil
}
