package domain

import "errors"

const MaxSessionIDLen = 128

var (
	ErrSessionIDEmpty   = errors.New("session id empty")
	ErrSessionIDTooLong = errors.New("session id too long")
)

// SessionID names one video call. Clients supply it (typically derived from a
// booking id); the server never generates session ids itself.
type SessionID string

func ParseSessionID(raw string) (SessionID, error) {
	if len(raw) == 0 {
		return "", ErrSessionIDEmpty
	}
	if len(raw) > MaxSessionIDLen {
		return "", ErrSessionIDTooLong
	}
	return SessionID(raw), nil
}
