package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tutorhub/signaling/internal/core"
	"github.com/tutorhub/signaling/internal/domain"
)

func (ctl *Controller) handleJoin(cl *client, data []byte) {
	if cl.state == core.StateInSession {
		ctl.sendError(cl.conn, "Already in a session")
		return
	}

	type joinPayload struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
		IsTeacher bool   `json:"isTeacher"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("bad join payload")
		ctl.sendError(cl.conn, "bad_payload")
		return
	}

	sid, err := domain.ParseSessionID(p.SessionID)
	if err != nil {
		ctl.sendError(cl.conn, "Invalid session id")
		return
	}

	meta := domain.Participant{UserID: domain.UserID(cl.userID), IsTeacher: p.IsTeacher}
	announce := mustMarshal(struct {
		Type      string `json:"type"`
		UserID    string `json:"userId"`
		IsTeacher bool   `json:"isTeacher"`
	}{"user-joined", cl.userID, p.IsTeacher})
	farewell := mustMarshal(struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}{"user-left", cl.userID})

	snapshot, ok := ctl.Orch.Join(cl.cid, sid, meta, cl.conn, announce, farewell)
	if !ok {
		// Connection torn down while the join was in flight.
		return
	}
	cl.sessionID = p.SessionID
	cl.state = core.StateInSession

	log.Info().Str("module", "signal").Str("cid", string(cl.cid)).Str("user", cl.userID).
		Str("session", p.SessionID).Bool("teacher", p.IsTeacher).Msg("joined video session")
	ctl.sendJSON(cl.conn, struct {
		Type         string                `json:"type"`
		SessionID    string                `json:"sessionId"`
		Participants []core.ParticipantDTO `json:"participants"`
	}{"session-joined", p.SessionID, snapshot})
}
