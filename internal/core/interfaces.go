package core

import "github.com/avolkov/relay/internal/domain"

// Frame is an encoded event ready for the wire.
type Frame []byte

// ClientConnection abstracts the transport endpoint of one session.
// Owned by the adapter; the adapter must Close() it.
type ClientConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to the orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []domain.SessionID
}
