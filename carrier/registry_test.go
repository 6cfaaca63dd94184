package carrier

import (
	"errors"
	"testing"

	"github.com/hanyuan666/yarp/contact"
)

func TestChooseStripsParams(t *testing.T) {
	r := NewRegistry()
	c := r.Choose("udp+frame.8192")
	if c == nil {
		t.Fatalf("udp with params not found")
	}
	if c.Name() != "udp" {
		t.Fatalf("name = %q", c.Name())
	}
	base, ok := c.(*udpCarrier)
	if !ok {
		t.Fatalf("unexpected carrier type %T", c)
	}
	if v, ok := base.Option("frame"); !ok || v != "8192" {
		t.Fatalf("frame option = %q %v", v, ok)
	}
}

func TestChooseUnknown(t *testing.T) {
	r := NewRegistry()
	if c := r.Choose("warp+speed.9"); c != nil {
		t.Fatalf("expected nil for unknown carrier, got %v", c.Name())
	}
}

func TestChooseReturnsFreshInstances(t *testing.T) {
	r := NewRegistry()
	a := r.Choose("tcp")
	b := r.Choose("tcp")
	if a == b {
		t.Fatalf("Choose must return per-decision instances")
	}
}

func TestRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register(&mjpegCarrier{Base{CarrierName: "tcp"}})
	c := r.Choose("tcp")
	if c == nil || c.BootstrapName() != "" {
		t.Fatalf("duplicate registration did not overwrite")
	}
}

func TestCapabilityRecords(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		name           string
		competent      bool
		push           bool
		connectionless bool
	}{
		{"tcp", true, true, false},
		{"text", true, true, false},
		{"text_ack", true, true, false},
		{"udp", true, true, true},
		{"mcast", true, true, true},
		{"mjpeg", false, false, false},
	}
	for _, tc := range cases {
		c := r.Choose(tc.name)
		if c == nil {
			t.Fatalf("builtin %s missing", tc.name)
		}
		if got := c.BootstrapName() != ""; got != tc.competent {
			t.Fatalf("%s competence = %v", tc.name, got)
		}
		if c.IsPush() != tc.push {
			t.Fatalf("%s push = %v", tc.name, c.IsPush())
		}
		if c.IsConnectionless() != tc.connectionless {
			t.Fatalf("%s connectionless = %v", tc.name, c.IsConnectionless())
		}
	}
}

func TestLoadMissingPlugin(t *testing.T) {
	r := NewRegistry()
	err := r.Load("warp", "/nonexistent/warp_carrier.so")
	if !errors.Is(err, ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestConnectHookDefault(t *testing.T) {
	r := NewRegistry()
	handled, err := r.Choose("tcp").Connect(
		contact.FromName("/a"), contact.FromName("/b"),
		contact.DefaultStyle(), ModeConnect, false)
	if handled || err != nil {
		t.Fatalf("tcp should have no custom connect path: %v %v", handled, err)
	}
}

func TestMjpegHookUsesEnactor(t *testing.T) {
	SetEnactor(nil)
	c := newMjpeg()
	handled, _ := c.Connect(contact.FromName("/a"), contact.FromName("/b"),
		contact.DefaultStyle(), ModeConnect, true)
	if handled {
		t.Fatalf("without an enactor the hook cannot handle the connect")
	}

	var got struct {
		actor, peer string
		reversed    bool
	}
	SetEnactor(func(actor, peer contact.Contact, style contact.Style, mode Mode, reversed bool) error {
		got.actor = actor.Name
		got.peer = peer.Name
		got.reversed = reversed
		return nil
	})
	defer SetEnactor(nil)
	handled, err := c.Connect(contact.FromName("/dst"), contact.FromName("/src"),
		contact.DefaultStyle(), ModeConnect, true)
	if !handled || err != nil {
		t.Fatalf("hook did not run: %v %v", handled, err)
	}
	if got.actor != "/dst" || got.peer != "/src" || !got.reversed {
		t.Fatalf("hook saw %+v", got)
	}
}
