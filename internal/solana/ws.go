package solana

import "context"

// StreamClient defines the best-effort streaming channel interface.
type StreamClient interface {
	// Send writes a JSON message to the stream.
	Send(ctx context.Context, v interface{}) error

	// OnMessage registers a callback for every raw incoming message.
	// Callbacks run sequentially on the read goroutine.
	OnMessage(fn func(message []byte))

	// Close closes the stream connection.
	Close() error
}
