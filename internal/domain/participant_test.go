package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipant(t *testing.T) {
	p, err := NewParticipant("user-1", true)
	require.NoError(t, err)
	assert.Equal(t, UserID("user-1"), p.UserID)
	assert.True(t, p.IsTeacher)

	_, err = NewParticipant("", false)
	assert.ErrorIs(t, err, ErrUserIDEmpty)

	_, err = NewParticipant(strings.Repeat("x", MaxUserIDLen+1), false)
	assert.ErrorIs(t, err, ErrUserIDTooLong)
}

func TestParseSessionID(t *testing.T) {
	sid, err := ParseSessionID("booking-42")
	require.NoError(t, err)
	assert.Equal(t, SessionID("booking-42"), sid)

	_, err = ParseSessionID("")
	assert.ErrorIs(t, err, ErrSessionIDEmpty)

	_, err = ParseSessionID(strings.Repeat("x", MaxSessionIDLen+1))
	assert.ErrorIs(t, err, ErrSessionIDTooLong)
}
