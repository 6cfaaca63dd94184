package yarp

import "errors"

var (
	// ErrInvalidName rejects a syntactically bad endpoint string.
	ErrInvalidName = errors.New("yarp: invalid port name")

	// ErrUnresolved means the name service could not complete a
	// dynamic endpoint.
	ErrUnresolved = errors.New("yarp: could not resolve port")

	// ErrCarrierConflict means the requested carrier is incompatible
	// with the carrier a non-competent peer registered with.
	ErrCarrierConflict = errors.New("yarp: carrier conflict")

	// ErrUnreachable means the administrative channel to the
	// initiating port could not be used; the port is marked stale.
	ErrUnreachable = errors.New("yarp: port unreachable")

	// ErrProtocolDenied means the peer answered with a failure code or
	// an unrecognized reply shape.
	ErrProtocolDenied = errors.New("yarp: request denied by peer")

	// ErrUnsupported marks combinations the engine refuses, such as an
	// existence check on a persistent link.
	ErrUnsupported = errors.New("yarp: unsupported operation")

	// ErrNoRoute means the case analysis over competence and
	// push/pull found no actor able to initiate the link.
	ErrNoRoute = errors.New("yarp: no way to make connection")
)

// errConnectionNotFound reports an existence probe that came back
// empty; surfaced to callers as a false result, not as a failure kind.
var errConnectionNotFound = errors.New("yarp: connection not found")
