package core

import "github.com/tutorhub/signaling/internal/domain"

// clientSession implements ClientSession by pairing meta + transport.
type clientSession struct {
	meta domain.Participant
	conn SignalConnection
}

func NewClientSession(meta domain.Participant, conn SignalConnection) ClientSession {
	return &clientSession{meta: meta, conn: conn}
}

func (c *clientSession) Meta() domain.Participant { return c.meta }
func (c *clientSession) Signal() SignalConnection { return c.conn }
