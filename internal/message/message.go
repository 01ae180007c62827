package message

import (
	"bytes"
	"errors"
	"io"
)

// ErrEmptyReply is returned when the peer closed without sending anything.
var ErrEmptyReply = errors.New("empty reply")

// ReadReply reads one reply of at most BufferSize bytes from r
func ReadReply(r io.Reader) ([]byte, error) {
	buf := make([]byte, BufferSize)
	n, err := r.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, ErrEmptyReply
	}
	return nil, err
}

// IsGoodbye checks whether data is the shutdown notice
func IsGoodbye(data []byte) bool {
	return bytes.Equal(data, []byte(Goodbye))
}
