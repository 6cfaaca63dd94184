package yarp

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hanyuan666/yarp/carrier"
	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
	"github.com/hanyuan666/yarp/namespace"
)

// fakeNS records name-space traffic so tests can pin which calls the
// arbitration engine makes.
type fakeNS struct {
	persistentConnects    []string
	persistentDisconnects []string
	topicOps              []string
	announced             []string
}

func (f *fakeNS) NameServerContact() contact.Contact { return contact.Contact{} }

func (f *fakeNS) QueryName(name string) (contact.Contact, error) {
	return contact.Contact{}, namespace.ErrNotFound
}

func (f *fakeNS) RegisterName(name string) (contact.Contact, error) {
	return contact.Contact{}, namespace.ErrNoNameServer
}

func (f *fakeNS) RegisterContact(c contact.Contact) (contact.Contact, error) {
	return contact.Contact{}, namespace.ErrNoNameServer
}

func (f *fakeNS) UnregisterName(name string) error { return nil }

func (f *fakeNS) UnregisterContact(c contact.Contact) error { return nil }

func (f *fakeNS) Announce(name string, active bool) error {
	f.announced = append(f.announced, name)
	return nil
}

func (f *fakeNS) ConnectPortToPortPersistently(src, dst contact.Contact, style contact.Style) error {
	f.persistentConnects = append(f.persistentConnects, src.Name+"->"+dst.Name)
	return nil
}

func (f *fakeNS) DisconnectPortToPortPersistently(src, dst contact.Contact, style contact.Style) error {
	f.persistentDisconnects = append(f.persistentDisconnects, src.Name+"->"+dst.Name)
	return nil
}

func (f *fakeNS) ConnectPortToTopic(src, dst contact.Contact, style contact.Style) error {
	f.topicOps = append(f.topicOps, "port->topic "+src.Name+"->"+dst.Name)
	return nil
}

func (f *fakeNS) DisconnectPortFromTopic(src, dst contact.Contact, style contact.Style) error {
	f.topicOps = append(f.topicOps, "port-x-topic "+src.Name+"->"+dst.Name)
	return nil
}

func (f *fakeNS) ConnectTopicToPort(src, dst contact.Contact, style contact.Style) error {
	f.topicOps = append(f.topicOps, "topic->port "+src.Name+"->"+dst.Name)
	return nil
}

func (f *fakeNS) DisconnectTopicFromPort(src, dst contact.Contact, style contact.Style) error {
	f.topicOps = append(f.topicOps, "topic-x-port "+src.Name+"->"+dst.Name)
	return nil
}

func (f *fakeNS) WriteToNameServer(cmd *msg.Message, style contact.Style) (*msg.Message, error) {
	return msg.New().AddString("ok"), nil
}

func (f *fakeNS) LocalOnly() bool { return false }

func (f *fakeNS) ServerAllocatesPortNumbers() bool { return true }

func (f *fakeNS) ConnectionHasNameOfEndpoints() bool { return true }

// writeCall is one recorded admin RPC.
type writeCall struct {
	dest string
	cmd  string
}

// scriptedWriter replaces the socket layer: it records every admin RPC
// and answers through the test's respond function, or with a success
// reply when none is set.
type scriptedWriter struct {
	calls   []writeCall
	respond func(dest contact.Contact, cmd *msg.Message) (*msg.Message, error)
}

func (w *scriptedWriter) write(dest contact.Contact, cmd *msg.Message, style contact.Style) (*msg.Message, error) {
	w.calls = append(w.calls, writeCall{dest: dest.Name, cmd: cmd.String()})
	if w.respond != nil {
		return w.respond(dest, cmd)
	}
	return msg.New().AddInt(0).AddString("Added connection"), nil
}

func (w *scriptedWriter) commands() []string {
	out := make([]string, 0, len(w.calls))
	for _, c := range w.calls {
		out = append(out, c.cmd)
	}
	return out
}

// testNetwork wires a Network over a fake name service, an in-memory
// resolution store, and a scripted admin writer.
func testNetwork(t *testing.T) (*Network, *fakeNS, *namespace.MemoryStore, *scriptedWriter) {
	t.Helper()
	ns := &fakeNS{}
	store := namespace.NewMemoryStore()
	multi := namespace.NewMulti(ns)
	multi.SetQueryBypass(store)
	n := NewNetwork(multi, carrier.NewRegistry(), zerolog.Nop())
	w := &scriptedWriter{}
	n.writer = w.write
	return n, ns, store, w
}

func mustRegister(t *testing.T, store *namespace.MemoryStore, spec string) {
	t.Helper()
	if _, err := store.Register(contact.FromString(spec)); err != nil {
		t.Fatalf("register %q: %v", spec, err)
	}
}

func TestConnectClassicCase(t *testing.T) {
	n, _, store, w := testNetwork(t)
	mustRegister(t, store, "/a tcp 127.0.0.1:10001")
	mustRegister(t, store, "/b tcp 127.0.0.1:10002")

	if err := n.Connect("/a", "/b"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	want := []string{"[list] [out] /b", `[add] "/b tcp"`}
	got := w.commands()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for _, call := range w.calls {
		if call.dest != "/a" {
			t.Fatalf("push connection must be driven through the source, got %q", call.dest)
		}
	}
}

func TestConnectPullCarrierViaHook(t *testing.T) {
	n, _, store, w := testNetwork(t)
	mustRegister(t, store, "/a tcp 127.0.0.1:10001")
	mustRegister(t, store, "/b mjpeg 127.0.0.1:10002")

	carrier.SetEnactor(func(actor, peer contact.Contact, style contact.Style, mode carrier.Mode, reversed bool) error {
		return n.enactConnection(actor, peer, style, mode, reversed, true)
	})
	defer carrier.SetEnactor(nil)

	if err := n.Connect("/a", "/b mjpeg+in.stream"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	got := w.commands()
	if len(got) != 2 {
		t.Fatalf("commands = %v", got)
	}
	if got[0] != "[list] [in] /a" {
		t.Fatalf("reversed probe = %q", got[0])
	}
	if !strings.Contains(got[1], "mjpeg+in.stream") {
		t.Fatalf("add command lost carrier params: %q", got[1])
	}
	for _, call := range w.calls {
		if call.dest != "/b" {
			t.Fatalf("pull connection must be driven through the destination, got %q", call.dest)
		}
	}
}

func TestConnectReversedWhenDestCompetentPull(t *testing.T) {
	n, _, store, w := testNetwork(t)
	n.Carriers().Register(&pullCarrier{carrier.Base{
		CarrierName: "rev",
		Bootstrap:   "rev",
	}})
	mustRegister(t, store, "/a tcp 127.0.0.1:10001")
	mustRegister(t, store, "/b rev 127.0.0.1:10002")

	if err := n.Connect("/a", "/b"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(w.calls) == 0 || w.calls[0].cmd != "[list] [in] /a" {
		t.Fatalf("expected reversed probe, got %v", w.commands())
	}
	if w.calls[0].dest != "/b" {
		t.Fatalf("reversed connection must be initiated by the destination")
	}
}

func TestPersistentBypassesAdminRPC(t *testing.T) {
	n, ns, _, w := testNetwork(t)
	style := contact.DefaultStyle()
	style.Persistent = true

	if err := n.DisconnectWithStyle("/a", "/b", style); err != nil {
		t.Fatalf("persistent disconnect: %v", err)
	}
	if len(ns.persistentDisconnects) != 1 || ns.persistentDisconnects[0] != "/a->/b" {
		t.Fatalf("persistent disconnects = %v", ns.persistentDisconnects)
	}
	if len(w.calls) != 0 {
		t.Fatalf("persistent operation must not touch ports: %v", w.commands())
	}

	if err := n.ConnectWithStyle("/a", "/b", style); err != nil {
		t.Fatalf("persistent connect: %v", err)
	}
	if len(ns.persistentConnects) != 1 {
		t.Fatalf("persistent connects = %v", ns.persistentConnects)
	}
	if len(w.calls) != 0 {
		t.Fatalf("persistent operation must not touch ports: %v", w.commands())
	}
}

func TestPersistentExistsUnsupported(t *testing.T) {
	n, _, _, w := testNetwork(t)
	style := contact.DefaultStyle()
	style.Persistent = true
	style.Quiet = true

	if n.IsConnectedWithStyle("/a", "/b", style) {
		t.Fatalf("existence check on a persistent link must fail")
	}
	if len(w.calls) != 0 {
		t.Fatalf("unsupported combination still reached ports: %v", w.commands())
	}
}

func TestExistsCarrierMismatch(t *testing.T) {
	n, _, store, w := testNetwork(t)
	mustRegister(t, store, "/a tcp 127.0.0.1:10001")
	mustRegister(t, store, "/b tcp 127.0.0.1:10002")
	w.respond = func(dest contact.Contact, cmd *msg.Message) (*msg.Message, error) {
		return msg.Parse("(carrier tcp)"), nil
	}
	style := contact.DefaultStyle()
	style.Carrier = "udp"
	style.Quiet = true

	if n.IsConnectedWithStyle("/a", "/b", style) {
		t.Fatalf("probe with mismatched carrier must report absence")
	}
	for _, cmd := range w.commands() {
		if strings.HasPrefix(cmd, "[add]") || strings.HasPrefix(cmd, "[del]") {
			t.Fatalf("existence check issued %q", cmd)
		}
	}
}

func TestExistsCarrierMatch(t *testing.T) {
	n, _, store, _ := testNetwork(t)
	mustRegister(t, store, "/a tcp 127.0.0.1:10001")
	mustRegister(t, store, "/b tcp 127.0.0.1:10002")
	w := &scriptedWriter{}
	w.respond = func(dest contact.Contact, cmd *msg.Message) (*msg.Message, error) {
		return msg.Parse("(carrier tcp+ack.no)"), nil
	}
	n.writer = w.write
	style := contact.DefaultStyle()
	style.Carrier = "tcp"
	style.Quiet = true

	if !n.IsConnectedWithStyle("/a", "/b", style) {
		t.Fatalf("probe with matching bare carrier must succeed")
	}
}

func TestTopicDelegation(t *testing.T) {
	n, ns, _, w := testNetwork(t)

	if err := n.Connect("/bus topic", "/b"); err != nil {
		t.Fatalf("topic connect: %v", err)
	}
	if len(ns.topicOps) != 1 || ns.topicOps[0] != "topic->port /bus->/b" {
		t.Fatalf("topic ops = %v", ns.topicOps)
	}
	if len(w.calls) != 0 {
		t.Fatalf("topic link must not touch ports: %v", w.commands())
	}

	if err := n.Disconnect("/a", "/bus topic"); err != nil {
		t.Fatalf("topic disconnect: %v", err)
	}
	if ns.topicOps[1] != "port-x-topic /a->/bus" {
		t.Fatalf("topic ops = %v", ns.topicOps)
	}
}

func TestUnresolvedSource(t *testing.T) {
	n, ns, store, _ := testNetwork(t)
	mustRegister(t, store, "/b tcp 127.0.0.1:10002")
	style := contact.DefaultStyle()
	style.Quiet = true

	err := n.ConnectWithStyle("/a", "/b", style)
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}

	// The persistent form survives the miss on the dynamic contact.
	style.Persistent = true
	if err := n.ConnectWithStyle("/a", "/b", style); err != nil {
		t.Fatalf("persistent connect with unresolved source: %v", err)
	}
	if len(ns.persistentConnects) != 1 || ns.persistentConnects[0] != "/a->/b" {
		t.Fatalf("persistent connects = %v", ns.persistentConnects)
	}
}

func TestCarrierConflict(t *testing.T) {
	n, _, store, _ := testNetwork(t)
	mustRegister(t, store, "/a tcp 127.0.0.1:10001")
	mustRegister(t, store, "/b mjpeg 127.0.0.1:10002")
	style := contact.DefaultStyle()
	style.Quiet = true

	err := n.ConnectWithStyle("/a udp", "/b", style)
	if !errors.Is(err, ErrCarrierConflict) {
		t.Fatalf("expected ErrCarrierConflict, got %v", err)
	}
}

func TestInvalidNamesRejected(t *testing.T) {
	n, _, _, w := testNetwork(t)
	style := contact.DefaultStyle()
	style.Quiet = true

	if err := n.ConnectWithStyle("nope", "/b", style); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if err := n.ConnectWithStyle("/a", "b/", style); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if len(w.calls) != 0 {
		t.Fatalf("invalid names reached the admin channel: %v", w.commands())
	}
}

func TestCompensatingDisconnect(t *testing.T) {
	n, _, store, w := testNetwork(t)
	mustRegister(t, store, "/a tcp 127.0.0.1:10001")
	mustRegister(t, store, "/b tcp 127.0.0.1:10002")

	probes := 0
	w.respond = func(dest contact.Contact, cmd *msg.Message) (*msg.Message, error) {
		if strings.HasPrefix(cmd.String(), "[list]") {
			probes++
			if probes == 1 {
				return msg.Parse("(carrier udp) (push 0) (connectionless 1)"), nil
			}
			return msg.New(), nil
		}
		return msg.New().AddInt(0).AddString("ok"), nil
	}

	if err := n.Connect("/a", "/b"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	got := w.commands()
	want := []string{"[list] [out] /b", "[list] [in] /a", "[del] /a", `[add] "/b tcp"`}
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
	// The compensating disconnect runs against the other side.
	if w.calls[1].dest != "/b" || w.calls[2].dest != "/b" {
		t.Fatalf("compensation must run in the reverse direction: %+v", w.calls)
	}
}

func TestUnreachableMarksDud(t *testing.T) {
	n, _, store, w := testNetwork(t)
	mustRegister(t, store, "/a tcp 127.0.0.1:10001")
	mustRegister(t, store, "/b tcp 127.0.0.1:10002")
	w.respond = func(dest contact.Contact, cmd *msg.Message) (*msg.Message, error) {
		return nil, errors.New("boom")
	}
	style := contact.DefaultStyle()
	style.Quiet = true

	err := n.ConnectWithStyle("/a", "/b", style)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if _, ok := store.Query("/a"); ok {
		t.Fatalf("unreachable initiator was not marked stale")
	}
}

func TestDisconnectNoRouteStaysQuiet(t *testing.T) {
	n, _, store, _ := testNetwork(t)
	mustRegister(t, store, "/a mjpeg 127.0.0.1:10001")
	mustRegister(t, store, "/b mjpeg 127.0.0.1:10002")
	style := contact.DefaultStyle()
	style.Quiet = true

	// Neither side can initiate and the hook has no enactor installed.
	err := n.DisconnectWithStyle("/a", "/b", style)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

// pullCarrier is a competent pull transport for direction-law tests.
type pullCarrier struct{ carrier.Base }

func (c *pullCarrier) New() carrier.Carrier {
	return &pullCarrier{carrier.Base{CarrierName: c.Base.CarrierName, Bootstrap: c.Base.Bootstrap}}
}

func TestLocalNetworkResolution(t *testing.T) {
	n := NewLocalNetwork()
	if !n.NameSpace().LocalOnly() {
		t.Fatalf("local network should be local only")
	}
	reg, err := n.RegisterContact(contact.FromString("/a tcp 127.0.0.1:10001"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := n.QueryName("/a")
	if err != nil || got != reg {
		t.Fatalf("query = %+v %v", got, err)
	}
	// A string that is already a full address resolves without the store.
	direct, err := n.QueryName("/b tcp 127.0.0.1:9000")
	if err != nil || direct.Port != 9000 {
		t.Fatalf("direct query = %+v %v", direct, err)
	}
	if err := n.UnregisterName("/a"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, err := n.QueryName("/a"); err == nil {
		t.Fatalf("unregistered name still resolves")
	}
}
