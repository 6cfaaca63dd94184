// Package nameserver runs an embedded name server over a namespace
// store: port registrations, persistent subscriptions, and topics,
// served on the same administrative text dialogue the rest of the
// system speaks, with an HTTP view for inspection.
package nameserver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/internal/observability"
	"github.com/hanyuan666/yarp/msg"
	"github.com/hanyuan666/yarp/namespace"
)

// Options configures a server.
type Options struct {
	// Name is the server's own port name, "/root" by default.
	Name string

	// PortMin/PortMax bound allocated port numbers; the allocator
	// starts at 10000 when unset.
	PortMin int
	PortMax int

	// Subs overrides where persistent subscriptions live. The store's
	// own table is used when nil.
	Subs namespace.SubscriptionStore

	Log zerolog.Logger
}

// Server answers name-service requests from a store.
type Server struct {
	name  string
	store *namespace.MemoryStore
	subs  namespace.SubscriptionStore
	log   zerolog.Logger

	mu       sync.Mutex
	nextPort int
	maxPort  int
	nextName int

	ln net.Listener
}

// New builds a server over a fresh in-memory store.
func New(opts Options) *Server {
	store := namespace.NewMemoryStore()
	subs := opts.Subs
	if subs == nil {
		subs = store
	}
	name := opts.Name
	if name == "" {
		name = "/root"
	}
	min := opts.PortMin
	if min <= 0 {
		min = 10000
	}
	max := opts.PortMax
	if max < min {
		max = min + 9999
	}
	return &Server{
		name:     name,
		store:    store,
		subs:     subs,
		log:      opts.Log,
		nextPort: min,
		maxPort:  max,
	}
}

// Store exposes the backing registry, usable as a query bypass for
// in-process deployments.
func (s *Server) Store() *namespace.MemoryStore { return s.store }

// Addr returns the bound admin address once Listen has succeeded.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Listen binds the admin listener.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", strings.TrimSpace(addr))
	if err != nil {
		return fmt.Errorf("nameserver: listen %s: %w", addr, err)
	}
	s.ln = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("name server listening")
	return nil
}

// Serve accepts admin connections until the context ends. Listen must
// have been called.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		return fmt.Errorf("nameserver: Serve before Listen")
	}
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn runs one admin conversation: an optional route header,
// then one command and one reply per line.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				s.log.Warn().Err(err).Msg("name server read")
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" || line == "a" || line == "d" || strings.HasPrefix(line, "yarp ") {
			continue
		}
		reply := s.handleCommand(msg.Parse(line))
		if _, err := conn.Write([]byte(reply.String() + "\n")); err != nil {
			s.log.Warn().Err(err).Msg("name server write")
			return
		}
	}
}

func fail(reason string) *msg.Message {
	return msg.New().AddString("fail").AddString(reason)
}

func registrationReply(c contact.Contact) *msg.Message {
	return msg.New().
		AddString("register").
		AddString(c.Name).
		AddString(c.Carrier).
		AddString(c.Host).
		AddInt(c.Port)
}

// handleCommand dispatches one parsed request.
func (s *Server) handleCommand(cmd *msg.Message) *msg.Message {
	op := cmd.Get(0).AsString()
	reply := s.dispatch(op, cmd)
	ok := reply.Get(0).AsString() != "fail"
	observability.RecordNameServerRequest(op, ok)
	return reply
}

func (s *Server) dispatch(op string, cmd *msg.Message) *msg.Message {
	switch op {
	case "query":
		c, ok := s.store.Query(cmd.Get(1).AsString())
		if !ok {
			return msg.New().AddString("none")
		}
		return registrationReply(c)

	case "register":
		return s.register(cmd)

	case "unregister":
		if err := s.store.Unregister(cmd.Get(1).AsString()); err != nil {
			return fail(err.Error())
		}
		return msg.New().AddString("ok")

	case "announce":
		if err := s.store.Announce(cmd.Get(1).AsString(), cmd.Get(2).AsBool()); err != nil {
			return fail(err.Error())
		}
		return msg.New().AddString("ok")

	case "subscribe":
		src, dst := cmd.Get(1).AsString(), cmd.Get(2).AsString()
		if src == "" || dst == "" {
			return fail("subscribe needs source and destination")
		}
		if err := s.subs.Subscribe(src, dst, cmd.Get(3).AsString()); err != nil {
			return fail(err.Error())
		}
		return msg.New().AddString("ok")

	case "unsubscribe":
		if err := s.subs.Unsubscribe(cmd.Get(1).AsString(), cmd.Get(2).AsString()); err != nil {
			return fail(err.Error())
		}
		return msg.New().AddString("ok")

	case "topic":
		if err := s.subs.SetTopic(cmd.Get(1).AsString(), true); err != nil {
			return fail(err.Error())
		}
		return msg.New().AddString("ok")

	case "untopic":
		if err := s.subs.SetTopic(cmd.Get(1).AsString(), false); err != nil {
			return fail(err.Error())
		}
		return msg.New().AddString("ok")

	case "list":
		out := msg.New()
		for _, name := range s.store.Names() {
			if c, ok := s.store.Query(name); ok {
				out.Add(msg.List(registrationReply(c)))
			}
		}
		return out

	case "ver":
		return msg.New().AddString("ver").AddInt(2).AddInt(4).AddInt(0)

	default:
		return fail("unrecognized command " + op)
	}
}

// register completes and records one registration. A wildcard name
// gets a generated one; a missing host is recorded as 127.0.0.1 (the
// caller's own address is not consulted), and a missing port gets an
// allocated port number.
func (s *Server) register(cmd *msg.Message) *msg.Message {
	c := contact.Contact{
		Name:    cmd.Get(1).AsString(),
		Carrier: cmd.Get(2).AsString(),
		Host:    cmd.Get(3).AsString(),
		Port:    cmd.Get(4).AsInt(),
	}
	if c.Name == contact.Wildcard {
		c.Name = s.allocateName()
	}
	if c.Carrier == "" {
		c.Carrier = "tcp"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port <= 0 {
		port, err := s.allocatePort()
		if err != nil {
			return fail(err.Error())
		}
		c.Port = port
	}
	reg, err := s.store.Register(c)
	if err != nil {
		return fail(err.Error())
	}
	return registrationReply(reg)
}

func (s *Server) allocateName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextName++
	return "/tmp/port/" + strconv.Itoa(s.nextName)
}

func (s *Server) allocatePort() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextPort > s.maxPort {
		return 0, fmt.Errorf("port range exhausted")
	}
	p := s.nextPort
	s.nextPort++
	return p, nil
}
