package namespace

import (
	"fmt"

	"github.com/hanyuan666/yarp/carrier"
	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/msg"
)

// Client speaks to a remote name server over its administrative
// channel. One request, one reply, one connection per call; the
// engine's calls are infrequent enough that keeping sessions open
// buys nothing.
type Client struct {
	server   contact.Contact
	carriers *carrier.Registry
}

// NewClient binds a client to one name-server contact.
func NewClient(server contact.Contact, carriers *carrier.Registry) *Client {
	return &Client{server: server, carriers: carriers}
}

func (c *Client) NameServerContact() contact.Contact { return c.server }

func (c *Client) LocalOnly() bool { return false }

func (c *Client) ServerAllocatesPortNumbers() bool { return true }

func (c *Client) ConnectionHasNameOfEndpoints() bool { return true }

// WriteToNameServer performs one request/reply exchange with the server.
func (c *Client) WriteToNameServer(cmd *msg.Message, style contact.Style) (*msg.Message, error) {
	if !c.server.IsValid() {
		return nil, ErrNoNameServer
	}
	conn, err := c.carriers.Connect(c.server, style.TimeoutDuration())
	if err != nil {
		return nil, fmt.Errorf("namespace: reach name server: %w", err)
	}
	defer conn.Close()
	if err := conn.Open(carrier.Route{From: "admin", To: c.server.Name, Carrier: "text_ack"}); err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(cmd); err != nil {
		return nil, err
	}
	if !style.ExpectReply {
		return msg.New(), nil
	}
	return conn.ReadMessage()
}

// exchange sends cmd and maps an "ok"/"fail" reply to an error.
func (c *Client) exchange(cmd *msg.Message, style contact.Style) error {
	reply, err := c.WriteToNameServer(cmd, style)
	if err != nil {
		return err
	}
	if reply.Size() > 0 && reply.Get(0).AsString() == "fail" {
		return fmt.Errorf("%w: %s", ErrDenied, reply.String())
	}
	return nil
}

// parseRegistration reads a "register /name carrier host port" reply.
func parseRegistration(reply *msg.Message) (contact.Contact, error) {
	if reply == nil || reply.Size() == 0 || reply.Get(0).AsString() != "register" {
		return contact.Contact{}, ErrNotFound
	}
	out := contact.Contact{
		Name:    reply.Get(1).AsString(),
		Carrier: reply.Get(2).AsString(),
		Host:    reply.Get(3).AsString(),
		Port:    reply.Get(4).AsInt(),
	}
	if !out.IsValid() {
		return out, ErrNotFound
	}
	return out, nil
}

func (c *Client) QueryName(name string) (contact.Contact, error) {
	cmd := msg.New().AddString("query").AddString(name)
	reply, err := c.WriteToNameServer(cmd, contact.DefaultStyle())
	if err != nil {
		return contact.Contact{}, err
	}
	return parseRegistration(reply)
}

func (c *Client) RegisterName(name string) (contact.Contact, error) {
	cmd := msg.New().AddString("register").AddString(name)
	reply, err := c.WriteToNameServer(cmd, contact.DefaultStyle())
	if err != nil {
		return contact.Contact{}, err
	}
	return parseRegistration(reply)
}

func (c *Client) RegisterContact(reg contact.Contact) (contact.Contact, error) {
	cmd := msg.New().AddString("register").AddString(reg.Name)
	if reg.Carrier != "" {
		cmd.AddString(reg.Carrier)
	}
	if reg.IsValid() {
		cmd.AddString(reg.Host).AddInt(reg.Port)
	}
	reply, err := c.WriteToNameServer(cmd, contact.DefaultStyle())
	if err != nil {
		return contact.Contact{}, err
	}
	return parseRegistration(reply)
}

func (c *Client) UnregisterName(name string) error {
	return c.exchange(msg.New().AddString("unregister").AddString(name), contact.DefaultStyle())
}

func (c *Client) UnregisterContact(reg contact.Contact) error {
	return c.UnregisterName(reg.Name)
}

func (c *Client) Announce(name string, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	cmd := msg.New().AddString("announce").AddString(name).AddInt(flag)
	return c.exchange(cmd, contact.DefaultStyle())
}

func (c *Client) subscribe(src, dst string, style contact.Style) error {
	cmd := msg.New().AddString("subscribe").AddString(src).AddString(dst)
	if style.Carrier != "" {
		cmd.AddString(style.Carrier)
	}
	return c.exchange(cmd, style)
}

func (c *Client) unsubscribe(src, dst string, style contact.Style) error {
	cmd := msg.New().AddString("unsubscribe").AddString(src).AddString(dst)
	return c.exchange(cmd, style)
}

func (c *Client) ConnectPortToPortPersistently(src, dst contact.Contact, style contact.Style) error {
	return c.subscribe(src.Name, dst.Name, style)
}

func (c *Client) DisconnectPortToPortPersistently(src, dst contact.Contact, style contact.Style) error {
	return c.unsubscribe(src.Name, dst.Name, style)
}

func (c *Client) ConnectPortToTopic(src, dst contact.Contact, style contact.Style) error {
	return c.subscribe(src.Name, dst.Name, style)
}

func (c *Client) DisconnectPortFromTopic(src, dst contact.Contact, style contact.Style) error {
	return c.unsubscribe(src.Name, dst.Name, style)
}

func (c *Client) ConnectTopicToPort(src, dst contact.Contact, style contact.Style) error {
	return c.subscribe(src.Name, dst.Name, style)
}

func (c *Client) DisconnectTopicFromPort(src, dst contact.Contact, style contact.Style) error {
	return c.unsubscribe(src.Name, dst.Name, style)
}
