package app

import (
	"sync"

	"github.com/tutorhub/signaling/internal/core"
	"github.com/tutorhub/signaling/internal/domain"
)

// SessionManagerImpl is the process-wide registry of live video sessions.
// A session exists from the first join of its id until its last participant
// leaves; there is no explicit create or destroy operation.
type SessionManagerImpl struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]core.VideoSession
}

func NewSessionManager() core.SessionFactory {
	return &SessionManagerImpl{sessions: make(map[domain.SessionID]core.VideoSession)}
}

func (f *SessionManagerImpl) GetOrCreate(id domain.SessionID) core.VideoSession {
	f.mu.RLock()
	sess, ok := f.sessions[id]
	f.mu.RUnlock()
	if ok {
		return sess
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess, ok = f.sessions[id]; ok {
		return sess
	}
	sess = core.NewVideoSession(id)
	f.sessions[id] = sess
	return sess
}

func (f *SessionManagerImpl) Get(id domain.SessionID) (core.VideoSession, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sess, ok := f.sessions[id]
	return sess, ok
}

func (f *SessionManagerImpl) List() []core.SessionInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.SessionInfo, 0, len(f.sessions))
	for id, s := range f.sessions {
		out = append(out, core.SessionInfo{ID: id, ParticipantCount: s.ParticipantCount()})
	}
	return out
}

// EvictIfEmpty garbage-collects the session's bookkeeping once its last
// participant is gone. CloseIfEmpty re-checks the count under the session's
// own mutex and marks the instance closed in the same critical section, so a
// joiner that grabbed the handle before the eviction is refused and retries
// against a fresh instance instead of joining an orphan.
func (f *SessionManagerImpl) EvictIfEmpty(id domain.SessionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && s.CloseIfEmpty() {
		delete(f.sessions, id)
	}
}
