package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tutorhub/signaling/internal/core"
	"github.com/tutorhub/signaling/internal/domain"
)

// connEntry tracks what the server knows about one live connection: the bound
// identity (set once on authenticate) and the session back-reference (set once
// on join). Disconnect cleanup is a single lookup here, no pointer-chasing.
type connEntry struct {
	UserID    domain.UserID
	SessionID domain.SessionID
	Session   core.ClientSession
	Cancel    context.CancelFunc
	released  bool
}

type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.ConnID]*connEntry)}
}

func (r *Registry) Register(cid core.ConnID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = &connEntry{Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("registered connection")
}

func (r *Registry) BindUser(cid core.ConnID, uid domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[cid]
	if !ok || entry.released {
		return false
	}
	entry.UserID = uid
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("user", string(uid)).Msg("bound user")
	return true
}

// BindSession records the session back-reference. The session identity must
// be the one BindUser authenticated for this connection; anything else is
// refused the same way as a released connection.
func (r *Registry) BindSession(cid core.ConnID, sid domain.SessionID, cs core.ClientSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[cid]
	if !ok || entry.released || entry.UserID != cs.Meta().UserID {
		return false
	}
	entry.SessionID = sid
	entry.Session = cs
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("session", string(sid)).Msg("bound session")
	return true
}

func (r *Registry) SessionOf(cid core.ConnID) (domain.SessionID, core.ClientSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[cid]
	if !ok || entry.SessionID == "" {
		return "", nil, false
	}
	return entry.SessionID, entry.Session, true
}

// Release removes the connection's bookkeeping and hands back the final entry
// exactly once. A close racing an in-flight message from the same connection
// gets ok=false on the second call, so disconnect cleanup never runs twice.
func (r *Registry) Release(cid core.ConnID) (connEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[cid]
	if !ok || entry.released {
		return connEntry{}, false
	}
	entry.released = true
	delete(r.conns, cid)
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("released connection")
	return *entry, true
}

func (r *Registry) Cancel(cid core.ConnID) bool {
	r.mu.RLock()
	entry, ok := r.conns[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if entry.Cancel != nil {
		entry.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("canceled connection")
	return true
}

func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
