package core

import "errors"

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Frame is one encoded outbound message.
type Frame []byte

//go:generate mockgen -destination=mocks/signal_conn_mock.go -package=mocks . SignalConnection

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: it either queues the frame or returns an error.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
