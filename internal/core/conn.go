package core

// Frame is an encoded outbound wire message.
type Frame []byte

// Conn is the transport endpoint owned by a registry entry. TrySend must
// never block: implementations buffer and report backpressure instead.
// The exchange goroutine is the only caller of TrySend; the transport
// adapter drains concurrently.
type Conn interface {
	TrySend(Frame) error
	Close()
}
