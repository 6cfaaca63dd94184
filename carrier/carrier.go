// Package carrier defines transport plugins and their registry. A
// carrier advertises capabilities to the connection engine: whether it
// can perform the initiating side of the standard handshake, whether
// data flows from initiator to responder, and whether it keeps a
// session at all. The engine never touches a carrier's wire format; it
// only asks these questions and, for carriers with custom handshakes,
// hands over the whole connect operation.
package carrier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hanyuan666/yarp/contact"
)

var (
	ErrUnknownCarrier = errors.New("carrier: unknown carrier")
	ErrNoAdminChannel = errors.New("carrier: carrier cannot open an admin channel")
)

// Mode selects what the engine is being asked to do with a link.
type Mode int

const (
	ModeConnect Mode = iota
	ModeDisconnect
	ModeExists
)

func (m Mode) String() string {
	switch m {
	case ModeConnect:
		return "connect"
	case ModeDisconnect:
		return "disconnect"
	case ModeExists:
		return "exists"
	}
	return "unknown"
}

// Carrier is one transport plugin. Instances are created per decision
// through Registry.Choose and discarded after use.
type Carrier interface {
	// Name returns the bare carrier name, without parameters.
	Name() string

	// BootstrapName returns the carrier used for the initial
	// handshake. A carrier with an empty bootstrap name cannot
	// initiate and is termed not competent.
	BootstrapName() string

	// IsPush reports whether data flows from initiator to responder.
	// A pull carrier lets the responder initiate instead.
	IsPush() bool

	// IsConnectionless reports whether the carrier keeps no session.
	IsConnectionless() bool

	// CanEscape reports whether administrative traffic can be tagged
	// in-band on connections made with this carrier.
	CanEscape() bool

	// New returns a fresh unconfigured instance of this carrier.
	New() Carrier

	// Configure hands the instance its '+'-parameter suffix.
	Configure(params string) error

	// Dial opens an administrative channel to addr. Carriers that
	// cannot carry admin traffic return ErrNoAdminChannel.
	Dial(addr contact.Contact, timeout time.Duration) (Conn, error)

	// Connect lets a carrier replace the default admin dialogue with
	// its own handshake. It returns false when the carrier has no
	// custom path and the engine should decide what to do.
	Connect(src, dst contact.Contact, style contact.Style, mode Mode, reversed bool) (bool, error)
}

// Enactor drives the standard administrative dialogue. The engine
// installs one at start-up so carrier Connect hooks can fall back on
// it without depending on the engine package.
type Enactor func(actor, peer contact.Contact, style contact.Style, mode Mode, reversed bool) error

var enact Enactor

// SetEnactor installs the dialogue used by built-in Connect hooks.
func SetEnactor(e Enactor) { enact = e }

// Base carries the capability record shared by the built-in carriers.
// Concrete carriers embed it and override what differs.
type Base struct {
	CarrierName    string
	Bootstrap      string
	Push           bool
	ConnectionLess bool
	Escape         bool

	params  string
	options map[string]string
}

func (b *Base) Name() string           { return b.CarrierName }
func (b *Base) BootstrapName() string  { return b.Bootstrap }
func (b *Base) IsPush() bool           { return b.Push }
func (b *Base) IsConnectionless() bool { return b.ConnectionLess }
func (b *Base) CanEscape() bool        { return b.Escape }

// Configure parses a '+k.v+k2.v2' suffix into carrier options.
func (b *Base) Configure(params string) error {
	b.params = params
	if params == "" {
		return nil
	}
	if params[0] != '+' {
		return fmt.Errorf("carrier %s: malformed params %q", b.CarrierName, params)
	}
	b.options = map[string]string{}
	for _, kv := range strings.Split(params[1:], "+") {
		if kv == "" {
			continue
		}
		key, val, _ := strings.Cut(kv, ".")
		b.options[key] = val
	}
	return nil
}

// fresh copies the capability record without any per-instance
// configuration, for prototype New methods.
func (b Base) fresh() Base {
	b.params = ""
	b.options = nil
	return b
}

// Params returns the raw parameter suffix handed to Configure.
func (b *Base) Params() string { return b.params }

// Option returns one configured carrier option.
func (b *Base) Option(key string) (string, bool) {
	v, ok := b.options[key]
	return v, ok
}

func (b *Base) Dial(contact.Contact, time.Duration) (Conn, error) {
	return nil, fmt.Errorf("%w: %s", ErrNoAdminChannel, b.CarrierName)
}

func (b *Base) Connect(contact.Contact, contact.Contact, contact.Style, Mode, bool) (bool, error) {
	return false, nil
}
