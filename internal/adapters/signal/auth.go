package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tutorhub/signaling/internal/core"
	"github.com/tutorhub/signaling/internal/domain"
)

func (ctl *Controller) handleAuthenticate(cl *client, data []byte) {
	// The bound identity never changes after the first success.
	if cl.state != core.StateConnected {
		ctl.sendError(cl.conn, "Already authenticated")
		return
	}

	type authPayload struct {
		Type         string `json:"type"`
		UserID       string `json:"userId"`
		SessionToken string `json:"sessionToken"`
	}
	var p authPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("bad authenticate payload")
		ctl.sendError(cl.conn, "bad_payload")
		return
	}

	if _, err := domain.NewParticipant(p.UserID, false); err != nil {
		ctl.sendError(cl.conn, "Invalid user id")
		return
	}

	if !ctl.limiter.Allow(cl.cid) {
		log.Warn().Str("module", "signal").Str("cid", string(cl.cid)).Msg("authenticate rate limited")
		ctl.sendError(cl.conn, "Too many attempts")
		return
	}

	// Validator may hit a remote identity service; it runs here on the
	// connection's own read pump, never under a session lock.
	if err := ctl.Auth.Validate(p.UserID, p.SessionToken); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Str("user", p.UserID).Msg("authenticate rejected")
		ctl.sendError(cl.conn, "Invalid session token")
		return
	}

	if !ctl.Orch.Registry.BindUser(cl.cid, domain.UserID(p.UserID)) {
		// Connection already torn down.
		return
	}
	cl.userID = p.UserID
	cl.state = core.StateAuthenticated

	log.Info().Str("module", "signal").Str("cid", string(cl.cid)).Str("user", p.UserID).Msg("authenticated")
	ctl.sendJSON(cl.conn, struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}{"authenticated", p.UserID})
}
