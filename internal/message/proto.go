package message

// Wire constants
const (
	// Goodbye is written to a peer when the server shuts down.
	Goodbye = "server shutting down\n"

	// BufferSize is the size of a single read on either side of the wire.
	BufferSize = 1024
)
