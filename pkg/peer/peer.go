/*
Package peer implements the companion side of the keyboard protocol.

[Pair] runs the ECDH exchange over a [connector.Connector] and returns the shared key. A [Client]
holding that key encrypts text and mute commands into DataPackets. The keyboard never
acknowledges commands, so a successful send only means the link accepted the write.
*/
package peer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/chaz8081/gostt-kbd/internal/authentication"
	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/connector"
	"github.com/chaz8081/gostt-kbd/pkg/mute"
	"github.com/chaz8081/gostt-kbd/pkg/protocol"
)

var logger = log.New("peer")

// DefaultPairTimeout bounds Pair when ctx has no deadline.
const DefaultPairTimeout = 10 * time.Second

// DefaultChunkDelay separates consecutive text chunks.
const DefaultChunkDelay = 20 * time.Millisecond

var (
	ErrPairingTimeout = errors.New("peer: timed out waiting for the keyboard's public key")
	ErrLinkClosed     = errors.New("peer: link closed during pairing")
	ErrBadKeyLength   = fmt.Errorf("peer: key must be %d bytes", authentication.KeySize)
)

// Pair sends a fresh public key to the keyboard and derives the shared key from its reply.
// Keepalives received while waiting are ignored. A nil rng uses crypto/rand.
func Pair(ctx context.Context, conn connector.Connector, rng io.Reader) ([]byte, error) {
	if rng == nil {
		rng = rand.Reader
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPairTimeout)
		defer cancel()
	}

	private, err := authentication.GenerateKeyPair(rng)
	if err != nil {
		return nil, err
	}
	if err := conn.Send(ctx, authentication.CompressPublicKey(private.PublicKey())); err != nil {
		return nil, fmt.Errorf("peer: failed to send public key: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrPairingTimeout
			}
			return nil, ctx.Err()
		case buf, ok := <-conn.Receive():
			if !ok {
				return nil, ErrLinkClosed
			}
			rsp, err := protocol.DecodeResponsePacket(buf)
			if err != nil {
				logger.Debug("ignoring undecodable notification: %s", err)
				continue
			}
			if rsp.Kind != protocol.ResponsePeerStatus || len(rsp.Payload) != protocol.PublicKeyLength {
				logger.Debug("ignoring %s notification", rsp.Kind)
				continue
			}
			remote, err := authentication.ParseCompressedPublicKey(rsp.Payload)
			if err != nil {
				return nil, fmt.Errorf("peer: keyboard sent an invalid public key: %w", err)
			}
			logger.Info("paired")
			return authentication.DeriveKey(private, remote)
		}
	}
}

// Client sends encrypted commands to a paired keyboard. It is safe for concurrent use.
type Client struct {
	conn       connector.Connector
	key        []byte
	rng        io.Reader
	chunkDelay time.Duration

	lock     sync.Mutex
	sequence uint32
}

// NewClient returns a Client using key, the 32-byte result of Pair.
func NewClient(conn connector.Connector, key []byte) (*Client, error) {
	if len(key) != authentication.KeySize {
		return nil, ErrBadKeyLength
	}
	return &Client{
		conn:       conn,
		key:        append([]byte(nil), key...),
		rng:        rand.Reader,
		chunkDelay: DefaultChunkDelay,
	}, nil
}

// SetChunkDelay changes the pause between text chunks.
func (c *Client) SetChunkDelay(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.chunkDelay = d
}

// SendText types text on the keyboard. Long text is split into chunks that each fit one write.
func (c *Client) SendText(ctx context.Context, text string) error {
	chunks := protocol.ChunkText(text, protocol.MaxPayloadBytes)
	c.lock.Lock()
	delay := c.chunkDelay
	c.lock.Unlock()
	for i, chunk := range chunks {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		plaintext := protocol.MarshalEncryptedData(protocol.MarshalKeyboardPacket([]byte(chunk)))
		if err := c.send(ctx, plaintext); err != nil {
			return fmt.Errorf("peer: chunk %d of %d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// MuteToggle triggers the keyboard's configured mute action.
func (c *Client) MuteToggle(ctx context.Context) error {
	return c.send(ctx, protocol.MarshalCommand(protocol.CommandMuteToggle, nil))
}

// ConfigureMute replaces the keyboard's mute action.
func (c *Client) ConfigureMute(ctx context.Context, action mute.Action) error {
	return c.send(ctx, protocol.MarshalCommand(protocol.CommandMuteConfigure, action.Encode()))
}

func (c *Client) send(ctx context.Context, plaintext []byte) error {
	iv, ciphertext, tag, err := authentication.Encrypt(c.key, plaintext, c.rng)
	if err != nil {
		return err
	}

	// Sequence numbers and writes stay in the same order.
	c.lock.Lock()
	defer c.lock.Unlock()
	c.sequence++
	packet, err := protocol.MarshalDataPacket(iv, tag, ciphertext, c.sequence)
	if err != nil {
		return err
	}
	return c.conn.Send(ctx, packet)
}
