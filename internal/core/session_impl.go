package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tutorhub/signaling/internal/domain"
)

// sessionImpl is a threadsafe in-memory video session.
// It never closes adapter-owned resources.
//
// There is deliberately no uniqueness constraint on user id: the same user may
// be present through several connections (e.g. a reconnect racing the old
// socket's teardown), so lookups by user id walk the membership set instead of
// keeping a one-to-one index.
type sessionImpl struct {
	id     domain.SessionID
	mu     sync.RWMutex
	byCID  map[ConnID]ClientSession
	closed bool
}

func NewVideoSession(id domain.SessionID) VideoSession {
	return &sessionImpl{
		id:    id,
		byCID: make(map[ConnID]ClientSession),
	}
}

func (s *sessionImpl) ID() domain.SessionID { return s.id }

func (s *sessionImpl) ParticipantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCID)
}

// Join announces the newcomer to every existing member, adds it, and returns
// the membership snapshot, all under one critical section. A join that lost
// the race with last-member eviction finds the session closed and gets
// ok=false; nothing is announced in that case.
func (s *sessionImpl) Join(cid ConnID, cs ClientSession, announce Frame) ([]ParticipantDTO, PublishResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, PublishResult{}, false
	}
	res := s.fanoutLocked(cid, announce)
	s.byCID[cid] = cs
	log.Info().Str("module", "core.session").Str("session", string(s.id)).
		Str("cid", string(cid)).Str("user", string(cs.Meta().UserID)).
		Int("participants", len(s.byCID)).Msg("participant joined")
	return s.snapshotLocked(), res, true
}

// CloseIfEmpty marks an empty session as closed so late joiners holding this
// handle are refused instead of landing in an instance the factory already
// forgot. Returns false while any participant remains.
func (s *sessionImpl) CloseIfEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.byCID) > 0 {
		return false
	}
	s.closed = true
	return true
}

func (s *sessionImpl) Leave(cid ConnID, announce Frame) (int, bool, PublishResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.byCID[cid]
	if !ok {
		return len(s.byCID), false, PublishResult{}
	}
	delete(s.byCID, cid)
	res := s.fanoutLocked(cid, announce)
	log.Info().Str("module", "core.session").Str("session", string(s.id)).
		Str("cid", string(cid)).Str("user", string(cs.Meta().UserID)).
		Int("participants", len(s.byCID)).Msg("participant left")
	return len(s.byCID), true, res
}

// SendToUser delivers to every connection bound to target. Zero deliveries is
// not an error: relay is best-effort and a missing target is silently dropped.
func (s *sessionImpl) SendToUser(target domain.UserID, data Frame) PublishResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := PublishResult{}
	for cid, cs := range s.byCID {
		if cs.Meta().UserID != target {
			continue
		}
		if err := cs.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.SentTo++
	}
	return res
}

func (s *sessionImpl) ParticipantsSnapshot() []ParticipantDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// fanoutLocked enqueues data to every member except skip. TrySend never
// blocks, so holding the session lock here cannot stall on a slow socket.
func (s *sessionImpl) fanoutLocked(skip ConnID, data Frame) PublishResult {
	res := PublishResult{}
	if data == nil {
		return res
	}
	for cid, cs := range s.byCID {
		if cid == skip {
			continue
		}
		if err := cs.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.SentTo++
	}
	return res
}

func (s *sessionImpl) snapshotLocked() []ParticipantDTO {
	out := make([]ParticipantDTO, 0, len(s.byCID))
	for _, cs := range s.byCID {
		m := cs.Meta()
		out = append(out, ParticipantDTO{UserID: m.UserID, IsTeacher: m.IsTeacher})
	}
	return out
}
