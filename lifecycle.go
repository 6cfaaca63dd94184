package yarp

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hanyuan666/yarp/carrier"
	"github.com/hanyuan666/yarp/contact"
	"github.com/hanyuan666/yarp/internal/observability"
	"github.com/hanyuan666/yarp/namespace"
)

// environment holds the ambient settings read once at bring-up.
type environment struct {
	verbosity int
	stackSize int
	clockName string
	portRange portRange
}

type portRange struct {
	min, max int
}

func readEnvironment() environment {
	env := environment{}
	if q := envInt("YARP_QUIET"); q > 0 {
		env.verbosity = -q
	} else if v := envInt("YARP_VERBOSE"); v > 0 {
		env.verbosity = v
	}
	env.stackSize = envInt("YARP_STACK_SIZE")
	env.clockName = os.Getenv("YARP_CLOCK")
	env.portRange = parsePortRange(os.Getenv("YARP_PORT_RANGE"))
	return env
}

func envInt(key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return 0
	}
	return v
}

// parsePortRange reads a "min-max" hint for local port allocation.
func parsePortRange(s string) portRange {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return portRange{}
	}
	min, err1 := strconv.Atoi(lo)
	max, err2 := strconv.Atoi(hi)
	if err1 != nil || err2 != nil || min <= 0 || max < min {
		return portRange{}
	}
	return portRange{min: min, max: max}
}

// DefaultPortRange returns the port-allocation hint from the
// environment; (0, 0) when none is set.
func DefaultPortRange() (min, max int) {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalEnv.portRange.min, globalEnv.portRange.max
}

var (
	globalMu   sync.Mutex
	initCount  int
	autoActive bool
	globalEnv  environment
	defaultNet *Network
)

// Init brings the library up, reference counted: every Init needs a
// matching Fini. The first Init reads the environment, installs the
// logger and clock, and builds the carrier registry and name-space
// handle.
func Init() {
	InitWithClock(ClockDefault, nil)
}

// InitWithClock is Init with an explicit clock selection. The custom
// clock is only consulted for ClockCustom.
func InitWithClock(ct ClockType, custom Clock) {
	globalMu.Lock()
	defer globalMu.Unlock()
	initCount++
	if initCount > 1 {
		return
	}
	globalEnv = readEnvironment()
	logger := observability.InitLogger("yarp").
		Level(observability.Verbosity(globalEnv.verbosity))
	if globalEnv.stackSize > 0 {
		logger.Info().Int("stack_size", globalEnv.stackSize).
			Msg("YARP_STACK_SIZE has no effect on goroutine stacks")
	}
	installClock(ct, custom, globalEnv.clockName)

	carriers := carrier.NewRegistry()
	multi := namespace.NewMulti(nil)
	if cfg, err := namespace.LoadConfig(namespace.ConfigPath()); err == nil {
		if server := cfg.ServerContact(); server.IsValid() {
			multi.SetNameSpace(namespace.NewClient(server, carriers))
		}
	} else {
		logger.Warn().Err(err).Msg("naming-space config unreadable")
	}
	defaultNet = NewNetwork(multi, carriers, logger)
	carrier.SetEnactor(func(actor, peer contact.Contact, style contact.Style, mode carrier.Mode, reversed bool) error {
		return defaultNet.enactConnection(actor, peer, style, mode, reversed, true)
	})
}

func installClock(ct ClockType, custom Clock, clockName string) {
	if ct == ClockDefault {
		if clockName != "" {
			ct = ClockNetwork
		} else {
			ct = ClockSystem
		}
	}
	switch ct {
	case ClockNetwork:
		SetClock(&networkClock{source: clockName})
	case ClockCustom:
		SetClock(custom)
	default:
		useSystemClock()
	}
}

// Fini releases one Init reference. On the last release the singletons
// are torn down and the system clock restored.
func Fini() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if initCount == 0 {
		return
	}
	initCount--
	if initCount > 0 {
		return
	}
	useSystemClock()
	carrier.SetEnactor(nil)
	defaultNet = nil
	autoActive = false
	globalEnv = environment{}
}

// AutoInit brings the library up on first use by a component that
// cannot demand an explicit Init from its caller. It takes at most one
// reference per process; callers that Init explicitly must Fini
// explicitly, and the auto reference is dropped by the outer runtime's
// own Fini.
func AutoInit() {
	globalMu.Lock()
	already := autoActive || initCount > 0
	if !already {
		autoActive = true
	}
	globalMu.Unlock()
	if !already {
		Init()
	}
}

// Initialized reports whether the library is up.
func Initialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return initCount > 0
}

// Default returns the process-wide network handle, bringing the
// library up automatically if needed.
func Default() *Network {
	globalMu.Lock()
	n := defaultNet
	globalMu.Unlock()
	if n != nil {
		return n
	}
	AutoInit()
	globalMu.Lock()
	defer globalMu.Unlock()
	return defaultNet
}

// loggerOrNop is used by networks built without Init.
func loggerOrNop() zerolog.Logger {
	return zerolog.Nop()
}
