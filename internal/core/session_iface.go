package core

import "github.com/tutorhub/signaling/internal/domain"

// ClientSession binds a participant's meta and its transport endpoint.
// This is what a video session stores and fans out to.
type ClientSession interface {
	Meta() domain.Participant
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []ConnID
}

// ParticipantDTO is a read-only view for the wire (no transport fields).
type ParticipantDTO struct {
	UserID    domain.UserID `json:"userId"`
	IsTeacher bool          `json:"isTeacher"`
}

// VideoSession is the core-facing API of one signaling session.
// It owns the membership set but never touches transport resources.
//
// Join and Leave take the announcement frame so that the broadcast and the
// membership mutation happen under the same lock: concurrent joiners can never
// observe a torn participant list, and every prior member receives exactly one
// announcement per change.
//
// A session that was closed by CloseIfEmpty refuses further joins (ok=false):
// the factory no longer maps its id to this instance, so the caller must fetch
// a live one and join again.
type VideoSession interface {
	ID() domain.SessionID
	ParticipantCount() int
	ParticipantsSnapshot() []ParticipantDTO

	Join(cid ConnID, cs ClientSession, announce Frame) (snapshot []ParticipantDTO, res PublishResult, ok bool)
	Leave(cid ConnID, announce Frame) (remaining int, ok bool, res PublishResult)
	SendToUser(target domain.UserID, data Frame) PublishResult
	CloseIfEmpty() bool
}

type SessionInfo struct {
	ID               domain.SessionID `json:"id"`
	ParticipantCount int              `json:"participant_count"`
}

type SessionFactory interface {
	GetOrCreate(id domain.SessionID) VideoSession
	Get(id domain.SessionID) (VideoSession, bool)
	List() []SessionInfo
	EvictIfEmpty(id domain.SessionID)
}
