package core

// Frame is a raw serialized signaling message.
type Frame []byte

// ConnID is the transient transport-level identifier of one client link.
type ConnID string

// ConnState tracks where a connection sits in its lifecycle. Transitions are
// one-directional: Connected -> Authenticated -> InSession -> Closed.
type ConnState int

const (
	StateConnected ConnState = iota
	StateAuthenticated
	StateInSession
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateInSession:
		return "in_session"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
