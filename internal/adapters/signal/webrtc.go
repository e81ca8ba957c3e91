package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tutorhub/signaling/internal/core"
	"github.com/tutorhub/signaling/internal/domain"
)

// relayEnvelope carries WebRTC negotiation payloads in both directions. The
// SDP/ICE content is json.RawMessage on purpose: the server forwards it
// byte-for-byte and never interprets it.
type relayEnvelope struct {
	Type         string          `json:"type"`
	SessionID    string          `json:"sessionId,omitempty"`
	TargetUserID string          `json:"targetUserId,omitempty"`
	FromUserID   string          `json:"fromUserId,omitempty"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

func (ctl *Controller) handleRelay(cl *client, kind string, data []byte) {
	if cl.state != core.StateInSession {
		ctl.sendError(cl.conn, "Not in a session")
		return
	}

	var p relayEnvelope
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Str("kind", kind).Msg("bad relay payload")
		return
	}
	if p.SessionID != cl.sessionID {
		log.Debug().Str("module", "signal").Str("cid", string(cl.cid)).
			Str("session", p.SessionID).Str("kind", kind).Msg("relay names a session this connection is not in, dropped")
		return
	}

	out := relayEnvelope{Type: kind, FromUserID: cl.userID}
	switch kind {
	case "webrtc-offer":
		out.Offer = p.Offer
	case "webrtc-answer":
		out.Answer = p.Answer
	case "webrtc-ice-candidate":
		out.Candidate = p.Candidate
	}

	frame := mustMarshal(out)
	if frame == nil {
		return
	}

	// Best-effort: a sessionId the sender is not joined to, or a target with
	// no connection in the session, drops the message with no error reply.
	if !ctl.Orch.Relay(cl.cid, domain.SessionID(p.SessionID), domain.UserID(p.TargetUserID), frame) {
		log.Debug().Str("module", "signal").Str("cid", string(cl.cid)).
			Str("session", p.SessionID).Str("kind", kind).Msg("relay outside bound session, dropped")
	}
}
