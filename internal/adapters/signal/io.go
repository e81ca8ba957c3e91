package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tutorhub/signaling/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			// Kick path: closing the socket unblocks the read pump so its
			// teardown runs.
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cl *client) {
	defer func() {
		log.Info().Str("module", "signal").Str("cid", string(cl.cid)).Msg("readPump closing")
		cl.conn.Close()
		ctl.disconnect(cl)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("cid", string(cl.cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := cl.conn.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("readPump read error")
				return
			}
			ctl.handleMessage(cl, data)
		}
	}
}

// disconnect runs once when the read pump winds down, whatever state the
// connection reached. The registry guard inside Disconnect makes a second
// call a no-op.
func (ctl *Controller) disconnect(cl *client) {
	var announce core.Frame
	if cl.state == core.StateInSession {
		announce = mustMarshal(struct {
			Type   string `json:"type"`
			UserID string `json:"userId"`
		}{"user-left", cl.userID})
	}
	cl.state = core.StateClosed
	ctl.Orch.Disconnect(cl.cid, announce)
	ctl.limiter.Forget(cl.cid)
}

func (ctl *Controller) handleMessage(cl *client, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		// Malformed input is ignored; the connection stays usable.
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("bad json")
		return
	}

	if env.Type != "authenticate" && cl.state == core.StateConnected {
		ctl.sendError(cl.conn, "Authentication required")
		return
	}

	switch env.Type {
	case "authenticate":
		ctl.handleAuthenticate(cl, data)
	case "join-video-session":
		ctl.handleJoin(cl, data)
	case "webrtc-offer", "webrtc-answer", "webrtc-ice-candidate":
		ctl.handleRelay(cl, env.Type, data)
	case "ping":
		ctl.handlePing(cl)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, message string) {
	ctl.sendJSON(c, struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{"error", message})
}

// mustMarshal is for server-built frames whose shape cannot fail to encode.
func mustMarshal(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("frame marshal")
		return nil
	}
	return b
}
