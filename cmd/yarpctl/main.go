// Command yarpctl is the command-line front end for the connection
// engine: connect and disconnect ports, probe links and ports, talk to
// the name server, and run the embedded name server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/hanyuan666/yarp"
	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/internal/observability"
	"github.com/hanyuan666/yarp/msg"
	"github.com/hanyuan666/yarp/namespace"
	"github.com/hanyuan666/yarp/nameserver"
)

const usage = `usage: yarpctl <command> [flags] [args]

commands:
  connect <src> <dest>     link two ports
  disconnect <src> <dest>  remove a link
  exists <src> [dest]      probe a port, or a link between two ports
  query <name>             resolve a name
  register <name>          register a name
  unregister <name>        withdraw a name
  name <cmd...>            send a raw command to the name server
  server                   run the embedded name server
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	observability.InitLogger("yarpctl")
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "connect", "disconnect", "exists":
		err = runLink(cmd, args)
	case "query", "register", "unregister":
		err = runName(cmd, args)
	case "name":
		err = runRaw(args)
	case "server":
		err = runServer(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "yarpctl: %v\n", err)
		os.Exit(1)
	}
}

func linkStyle(fs *flag.FlagSet, args []string) (contact.Style, []string, error) {
	style := contact.DefaultStyle()
	fs.StringVar(&style.Carrier, "carrier", "", "requested carrier, with optional +params")
	fs.BoolVar(&style.Persistent, "persistent", false, "record the link in the name service")
	fs.BoolVar(&style.Quiet, "quiet", false, "suppress diagnostics")
	fs.Float64Var(&style.Timeout, "timeout", -1, "seconds to wait, <=0 for none")
	if err := fs.Parse(args); err != nil {
		return style, nil, err
	}
	return style, fs.Args(), nil
}

func runLink(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	style, rest, err := linkStyle(fs, args)
	if err != nil {
		return err
	}
	yarp.Init()
	defer yarp.Fini()

	switch {
	case cmd == "connect" && len(rest) == 2:
		return yarp.ConnectWithStyle(rest[0], rest[1], style)
	case cmd == "disconnect" && len(rest) == 2:
		return yarp.DisconnectWithStyle(rest[0], rest[1], style)
	case cmd == "exists" && len(rest) == 1:
		if !yarp.Exists(rest[0]) {
			return fmt.Errorf("port %s not found", rest[0])
		}
		log.Info().Str("port", rest[0]).Msg("port exists")
		return nil
	case cmd == "exists" && len(rest) == 2:
		if !yarp.Default().IsConnectedWithStyle(rest[0], rest[1], style) {
			return fmt.Errorf("no connection from %s to %s", rest[0], rest[1])
		}
		log.Info().Str("src", rest[0]).Str("dest", rest[1]).Msg("connection exists")
		return nil
	}
	return fmt.Errorf("%s: wrong number of arguments", cmd)
}

func runName(cmd string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%s needs exactly one name", cmd)
	}
	yarp.Init()
	defer yarp.Fini()
	name := args[0]

	switch cmd {
	case "query":
		c, err := yarp.QueryName(name)
		if err != nil {
			return err
		}
		fmt.Println(c.String())
	case "register":
		c, err := yarp.RegisterName(name)
		if err != nil {
			return err
		}
		fmt.Println(c.String())
	case "unregister":
		return yarp.UnregisterName(name)
	}
	return nil
}

func runRaw(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("name: empty command")
	}
	yarp.Init()
	defer yarp.Fini()
	reply, err := yarp.Default().WriteToNameServer(msg.Parse(strings.Join(args, " ")), contact.DefaultStyle())
	if err != nil {
		return err
	}
	fmt.Println(reply.String())
	return nil
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	addr := fs.String("addr", ":10000", "admin listen address")
	httpAddr := fs.String("http", "", "HTTP view listen address, empty to disable")
	name := fs.String("name", "/root", "server port name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	yarp.Init()
	defer yarp.Fini()
	logger := log.With().Str("app", "nameserver").Logger()
	min, max := yarp.DefaultPortRange()
	server := nameserver.New(nameserver.Options{
		Name:    *name,
		PortMin: min,
		PortMax: max,
		Log:     logger,
	})
	if err := server.Listen(*addr); err != nil {
		return err
	}

	host, port := splitListen(server.Addr())
	cfg := namespace.Config{Namespace: *name, Host: host, Port: port, Carrier: "tcp"}
	if err := namespace.SaveConfig(namespace.ConfigPath(), cfg); err != nil {
		logger.Warn().Err(err).Msg("could not record naming-space config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *httpAddr != "" {
		go func() {
			if err := server.ServeHTTP(ctx, *httpAddr); err != nil {
				logger.Error().Err(err).Msg("HTTP view stopped")
			}
		}()
	}
	return server.Serve(ctx)
}

func splitListen(addr string) (string, int) {
	c := contact.FromString("/root tcp " + addr)
	if c.Host == "" || c.Host == "::" {
		return "127.0.0.1", c.Port
	}
	return c.Host, c.Port
}
