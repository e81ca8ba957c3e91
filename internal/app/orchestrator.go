package app

import (
	"github.com/rs/zerolog/log"

	"github.com/tutorhub/signaling/internal/core"
	"github.com/tutorhub/signaling/internal/domain"
)

// Orchestrator coordinates the registry, the session set and the backpressure
// policy. The transport adapter builds wire frames; membership and delivery
// decisions happen here.
type Orchestrator struct {
	Registry *Registry
	Sessions core.SessionFactory
	Policy   Policy
}

// Join adds the connection to the named session, creating it on first join.
// The returned snapshot includes the joiner and is taken atomically with the
// user-joined announcement (announce) to prior members. farewell is the
// user-left frame broadcast if the join has to be rolled back after the
// announcement already went out.
func (o *Orchestrator) Join(
	cid core.ConnID,
	sid domain.SessionID,
	meta domain.Participant,
	conn core.SignalConnection,
	announce core.Frame,
	farewell core.Frame,
) ([]core.ParticipantDTO, bool) {
	cs := core.NewClientSession(meta, conn)
	for {
		sess := o.Sessions.GetOrCreate(sid)
		snapshot, res, ok := sess.Join(cid, cs, announce)
		if !ok {
			// Lost the race with last-member eviction: the handle is closed
			// and no longer mapped by the manager. Fetch a live instance.
			continue
		}
		if !o.Registry.BindSession(cid, sid, cs) {
			// Connection released while the join was in flight: undo the add
			// and retract the announcement prior members already saw.
			if remaining, left, _ := sess.Leave(cid, farewell); left && remaining == 0 {
				o.Sessions.EvictIfEmpty(sid)
			}
			return nil, false
		}
		o.applyBackpressure(sess, res)
		return snapshot, true
	}
}

// Relay delivers data to every connection of target inside sid. Returns false
// when the sender is not a member of sid; a missing target is not an error.
func (o *Orchestrator) Relay(cid core.ConnID, sid domain.SessionID, target domain.UserID, data core.Frame) bool {
	boundSID, _, ok := o.Registry.SessionOf(cid)
	if !ok || boundSID != sid {
		return false
	}
	sess, ok := o.Sessions.Get(sid)
	if !ok {
		return false
	}
	res := sess.SendToUser(target, data)
	if res.SentTo == 0 && len(res.Dropped) == 0 {
		log.Debug().Str("module", "app.orchestrator").Str("session", string(sid)).
			Str("target", string(target)).Msg("relay target not in session, dropped")
	}
	o.applyBackpressure(sess, res)
	return true
}

// Disconnect runs the exactly-once teardown for a closing connection: release
// the registry entry, leave the session with a user-left announcement, and
// garbage-collect the session once empty. Safe to call for connections that
// never authenticated or joined.
func (o *Orchestrator) Disconnect(cid core.ConnID, announce core.Frame) {
	entry, ok := o.Registry.Release(cid)
	if !ok || entry.SessionID == "" {
		return
	}
	sess, ok := o.Sessions.Get(entry.SessionID)
	if !ok {
		return
	}
	remaining, left, res := sess.Leave(cid, announce)
	if !left {
		return
	}
	o.applyBackpressure(sess, res)
	if remaining == 0 {
		o.Sessions.EvictIfEmpty(entry.SessionID)
	}
}

func (o *Orchestrator) applyBackpressure(sess core.VideoSession, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(sess, slow) {
		case KickMember:
			o.Registry.Cancel(slow)
		case DropFrame, NoAction:
		}
	}
}

type Stats struct {
	Sessions     int `json:"sessions"`
	Participants int `json:"participants"`
	Connections  int `json:"connections"`
}

func (o *Orchestrator) Stats() Stats {
	st := Stats{Connections: o.Registry.ConnCount()}
	for _, info := range o.Sessions.List() {
		st.Sessions++
		st.Participants += info.ParticipantCount
	}
	return st
}
