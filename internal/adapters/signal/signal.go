package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tutorhub/signaling/internal/app"
	"github.com/tutorhub/signaling/internal/auth"
	"github.com/tutorhub/signaling/internal/config"
	"github.com/tutorhub/signaling/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch    *app.Orchestrator
	Auth    auth.Validator
	Cfg     *config.Config
	limiter *AttemptLimiter
}

func NewController(orch *app.Orchestrator, v auth.Validator, cfg *config.Config) *Controller {
	return &Controller{
		Orch:    orch,
		Auth:    v,
		Cfg:     cfg,
		limiter: NewAttemptLimiter(cfg.AuthRateLimit, cfg.AuthRateInterval),
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// client is the per-connection state machine record. It is only touched from
// the connection's own read pump, so no mutex is needed.
type client struct {
	cid       core.ConnID
	conn      *wsConn
	state     core.ConnState
	userID    string
	sessionID string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ct := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	cid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("client_token", ct).Msg("new WS connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Register(cid, cancel)

	cl := &client{cid: cid, conn: conn, state: core.StateConnected}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cl)
}
