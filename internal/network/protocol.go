package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultMaxMessageSize is the message cap when none is configured.
	DefaultMaxMessageSize = 1 << 20

	// lengthPrefixSize is the size of the length prefix in bytes.
	lengthPrefixSize = 4
)

// ErrMessageTooLarge is returned for messages above the node's cap.
var ErrMessageTooLarge = errors.New("message too large")

// writeMessage writes a length-prefixed message to the writer.
// Format: [4 bytes big-endian length] [payload]
func writeMessage(w io.Writer, data []byte, limit int) error {
	if len(data) > limit {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), limit)
	}

	buf := make([]byte, lengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[lengthPrefixSize:], data)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// readMessage reads a length-prefixed message of at most limit bytes.
func readMessage(r io.Reader, limit int) ([]byte, error) {
	var lengthBuf [lengthPrefixSize]byte

	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if int64(length) > int64(limit) {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, limit)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	return data, nil
}
