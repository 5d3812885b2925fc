package network

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"Nottingham/internal/logger"
)

const (
	// defaultRequestTimeout is the default timeout for Request calls.
	defaultRequestTimeout = 30 * time.Second
)

// ErrPeerClosed is returned for requests on a closed peer.
var ErrPeerClosed = errors.New("peer is closed")

// Peer represents a connection to a remote node.
type Peer struct {
	publicKey ed25519.PublicKey // publicKey is the remote node's ed25519 public key
	address   string            // address is the remote address
	outbound  bool              // outbound is true when this node dialed the peer
	conn      *quic.Conn        // conn is the underlying QUIC connection
	node      *Node             // node is the parent node
	closed    atomic.Bool       // closed indicates if the peer is closed
}

// PublicKey returns the remote node's ed25519 public key.
func (p *Peer) PublicKey() ed25519.PublicKey {
	return p.publicKey
}

// Address returns the remote address.
func (p *Peer) Address() string {
	return p.address
}

// Close closes the peer connection.
func (p *Peer) Close() error {
	if p.closed.Swap(true) {
		return nil // Already closed
	}

	return p.conn.CloseWithError(0, "closed")
}

// Request sends data and waits for the response on a new bidirectional stream.
// The context bounds the whole exchange.
func (p *Peer) Request(ctx context.Context, data []byte) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrPeerClosed
	}

	stream, err := p.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream:\n%w", err)
	}
	defer stream.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultRequestTimeout)
	}
	stream.SetDeadline(deadline)

	// Unblock reads when ctx is canceled before the deadline
	stop := context.AfterFunc(ctx, func() {
		stream.CancelRead(0)
	})
	defer stop()

	if err := writeMessage(stream, data, p.node.maxMessage); err != nil {
		return nil, fmt.Errorf("write request:\n%w", err)
	}

	response, err := readMessage(stream, p.node.maxMessage)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read response:\n%w", err)
	}

	return response, nil
}

// receiveLoop answers incoming requests until the connection drops.
func (p *Peer) receiveLoop() {
	for {
		stream, err := p.conn.AcceptStream(p.node.ctx)
		if err != nil {
			logger.Debug("receive loop ended", "peer", p.address, "error", err)
			break
		}

		go p.handleStream(stream)
	}

	p.handleDisconnect()
}

// handleStream answers one request stream.
func (p *Peer) handleStream(stream *quic.Stream) {
	defer stream.Close()

	ctx, cancel := context.WithTimeout(p.node.ctx, defaultRequestTimeout)
	defer cancel()
	stream.SetDeadline(time.Now().Add(defaultRequestTimeout))

	data, err := readMessage(stream, p.node.maxMessage)
	if err != nil {
		logger.Debug("request read error", "peer", p.address, "error", err)
		return
	}

	response, err := p.node.callOnRequest(ctx, p, data)
	if err != nil {
		logger.Debug("request failed", "peer", p.address, "error", err)
		stream.CancelWrite(1)
		return
	}

	if err := writeMessage(stream, response, p.node.maxMessage); err != nil {
		logger.Debug("response write error", "peer", p.address, "error", err)
		stream.CancelWrite(1)
	}
}

// handleDisconnect handles peer disconnection.
func (p *Peer) handleDisconnect() {
	p.closed.Store(true)
	p.node.handlePeerDisconnect(p)
}
