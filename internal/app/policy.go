package app

import "github.com/tutorhub/signaling/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

type Policy interface {
	OnBackPressure(sess core.VideoSession, cid core.ConnID) BackpressureAction
}

// DropPolicy keeps best-effort semantics: a slow consumer loses frames but
// stays in the session. Negotiation is retried client-side anyway.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(sess core.VideoSession, cid core.ConnID) BackpressureAction {
	return DropFrame
}

// KickPolicy culls a connection whose outbound queue is full, on the theory
// that a client which stopped draining its socket is gone.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(sess core.VideoSession, cid core.ConnID) BackpressureAction {
	return KickMember
}
