package contact

import "time"

// Style configures one connect, disconnect, or probe operation.
type Style struct {
	// Carrier is the transport requested for the link, possibly with
	// '+'-separated parameters. Empty lets arbitration choose.
	Carrier string

	// Persistent records the link centrally so the name service can
	// reinstate it as its endpoints appear.
	Persistent bool

	// Quiet suppresses human-readable diagnostics.
	Quiet bool

	// VerboseOnSuccess emits success lines when not quiet.
	VerboseOnSuccess bool

	// Admin targets the peer's administrative channel.
	Admin bool

	// Timeout bounds dialing and each I/O step, in seconds. Zero or
	// negative means no timeout.
	Timeout float64

	// ExpectReply reads back a response body after the command.
	ExpectReply bool
}

// DefaultStyle returns the style used when the caller supplies none:
// no timeout, reply expected.
func DefaultStyle() Style {
	return Style{Timeout: -1, ExpectReply: true}
}

// TimeoutDuration converts the style timeout to a duration, zero when
// the style requests no timeout.
func (s Style) TimeoutDuration() time.Duration {
	if s.Timeout <= 0 {
		return 0
	}
	return time.Duration(s.Timeout * float64(time.Second))
}
