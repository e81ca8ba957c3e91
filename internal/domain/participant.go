// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUserIDLen = 64

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

type UserID string

// Participant is one connection's membership meta inside a video session.
// No transport or lifecycle logic here.
type Participant struct {
	UserID    UserID `json:"userId"`
	IsTeacher bool   `json:"isTeacher"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(userID string, isTeacher bool) (Participant, error) {
	if len(userID) == 0 {
		return Participant{}, ErrUserIDEmpty
	}
	if len(userID) > MaxUserIDLen {
		return Participant{}, ErrUserIDTooLong
	}
	return Participant{UserID: UserID(userID), IsTeacher: isTeacher}, nil
}
