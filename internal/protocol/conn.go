package protocol

// Conn is a message-oriented transport seam. Production connections are
// websockets; tests pair two in-memory ends.
type Conn interface {
	// Send queues one complete message for delivery.
	Send(data []byte) error
	// Close tears the connection down. Further Sends fail.
	Close() error
}
